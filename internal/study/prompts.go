package study

import (
	"fmt"
	"strings"
)

const notesShape = `{
  "title": "string",
  "summary": "string, 2-4 sentences",
  "keyPoints": ["string", "..."],
  "explanation": "markdown string"
}`

const flashcardsShape = `[
  {"front": "question or term", "back": "answer or definition", "tag": "optional topic"}
]`

const treeShape = `{
  "id": "snake_case_id",
  "label": "Topic",
  "description": "optional one-line description",
  "children": [ { "id": "...", "label": "...", "children": [] } ]
}`

func notesPrompt(content string) string {
	return fmt.Sprintf(`You are an expert tutor. Read the study material below and write concise study notes.

Respond with a single JSON object and nothing else, using exactly this shape:
%s

Rules:
- keyPoints has between 4 and 10 entries, each one sentence.
- explanation uses markdown headings and lists where helpful.
- Use the language of the material.

Material:
"""
%s
"""`, notesShape, content)
}

func flashcardsPrompt(content string) string {
	return fmt.Sprintf(`You are an expert tutor. Create flashcards that test understanding of the study material below.

Respond with a JSON array and nothing else, using exactly this shape:
%s

Rules:
- Create between 8 and 20 cards.
- front is a question or term; back is its answer and must not repeat the front.
- Use the language of the material.

Material:
"""
%s
"""`, flashcardsShape, content)
}

func treePrompt(content string) string {
	return fmt.Sprintf(`You are an expert tutor. Organize the concepts of the study material below into a knowledge tree.

Respond with a single JSON object and nothing else, using exactly this shape:
%s

Rules:
- The root is the overall subject; children are subtopics, nested at most 4 levels.
- Every node has a short label; leaves have an empty children array.
- Use the language of the material.

Material:
"""
%s
"""`, treeShape, content)
}

func reformatPrompt(artifact Artifact, raw string) string {
	shape := notesShape
	kind := "a JSON object"
	switch artifact {
	case ArtifactFlashcards:
		shape, kind = flashcardsShape, "a JSON array"
	case ArtifactTree:
		shape = treeShape
	}
	return fmt.Sprintf(`The text below was meant to be %s with this shape:
%s

Rewrite it as valid JSON with exactly that shape. Return only the JSON: no explanations, no markdown, no code fences.

Text:
%s`, kind, shape, raw)
}

func answerPrompt(front string) string {
	return fmt.Sprintf("Give a concise 1-2 sentence answer to the following flashcard question. Reply with the answer only.\n\n%s",
		strings.TrimSpace(front))
}

func chatPrompt(question, content string) string {
	if strings.TrimSpace(content) == "" {
		return fmt.Sprintf(`You are a patient, accurate study assistant. Answer the student's question clearly and concisely.

Question: %s`, question)
	}
	return fmt.Sprintf(`You are a patient, accurate study assistant. Answer the student's question using the study material below. If the material does not cover it, say so and answer from general knowledge.

Material:
"""
%s
"""

Question: %s`, content, question)
}
