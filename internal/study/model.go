package study

import (
	"encoding/json"
	"strings"
)

// Artifact names a generated study artifact.
type Artifact string

const (
	ArtifactNotes      Artifact = "notes"
	ArtifactFlashcards Artifact = "flashcards"
	ArtifactTree       Artifact = "knowledge_tree"
	ArtifactChat       Artifact = "chat"
)

type StudyNote struct {
	Title       string   `json:"title" validate:"required"`
	Summary     string   `json:"summary" validate:"required"`
	KeyPoints   []string `json:"keyPoints" validate:"required,min=1,dive,required"`
	Explanation string   `json:"explanation" validate:"required"`
}

func (n *StudyNote) trim() {
	n.Title = strings.TrimSpace(n.Title)
	n.Summary = strings.TrimSpace(n.Summary)
	n.Explanation = strings.TrimSpace(n.Explanation)
	for i := range n.KeyPoints {
		n.KeyPoints[i] = strings.TrimSpace(n.KeyPoints[i])
	}
}

type Flashcard struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back"`
	Tag   string `json:"tag,omitempty"`
}

// UnmarshalJSON also accepts question/answer keys, which models emit often enough.
func (f *Flashcard) UnmarshalJSON(data []byte) error {
	var raw struct {
		Front    string `json:"front"`
		Back     string `json:"back"`
		Tag      string `json:"tag"`
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Front = strings.TrimSpace(raw.Front)
	if f.Front == "" {
		f.Front = strings.TrimSpace(raw.Question)
	}
	f.Back = raw.Back
	if strings.TrimSpace(f.Back) == "" {
		f.Back = raw.Answer
	}
	f.Back = strings.TrimSpace(f.Back)
	f.Tag = strings.TrimSpace(raw.Tag)
	return nil
}

type KnowledgeNode struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Description string          `json:"description,omitempty"`
	Children    []KnowledgeNode `json:"children"`
}

// Options selects the credential and model for one generation. Empty fields fall
// back to the process defaults.
type Options struct {
	APIKey string
	Model  string
}

type GenerateRequest struct {
	Content string `json:"content" validate:"required,max=200000"`
	APIKey  string `json:"api_key,omitempty" validate:"omitempty,max=512"`
	Model   string `json:"model,omitempty" validate:"omitempty,max=128"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
	Content  string `json:"content,omitempty" validate:"max=200000"`
	APIKey   string `json:"api_key,omitempty" validate:"omitempty,max=512"`
	Model    string `json:"model,omitempty" validate:"omitempty,max=128"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}
