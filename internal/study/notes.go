package study

import (
	"context"
	"encoding/json"

	"github.com/studyhub/studyhub/internal/extract"
)

// CreateStudyNotes summarizes content into a fully populated StudyNote.
func (g *Generator) CreateStudyNotes(ctx context.Context, content string, opts Options) (*StudyNote, error) {
	m, err := g.model(ArtifactNotes, opts)
	if err != nil {
		return nil, err
	}
	return produce(ctx, g, ArtifactNotes, m, notesPrompt(content), g.decodeNotes)
}

func (g *Generator) decodeNotes(raw string) (*StudyNote, error) {
	var note StudyNote
	if err := json.Unmarshal([]byte(extract.JSONSubstring(raw, false)), &note); err != nil {
		return nil, &parseError{Artifact: ArtifactNotes, Err: err}
	}
	note.trim()
	if err := g.validate.Struct(note); err != nil {
		return nil, &parseError{Artifact: ArtifactNotes, Err: err}
	}
	return &note, nil
}
