package study

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/studyhub/studyhub/internal/extract"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

var errNotAnObject = errors.New("knowledge tree is not a JSON object")

// CreateKnowledgeTree organizes content into a tree whose nodes always carry an id,
// a label and a children list.
func (g *Generator) CreateKnowledgeTree(ctx context.Context, content string, opts Options) (*KnowledgeNode, error) {
	m, err := g.model(ArtifactTree, opts)
	if err != nil {
		return nil, err
	}
	return produce(ctx, g, ArtifactTree, m, treePrompt(content), decodeTree)
}

func decodeTree(raw string) (*KnowledgeNode, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(extract.JSONSubstring(raw, false)), &obj); err != nil {
		return nil, &parseError{Artifact: ArtifactTree, Err: err}
	}
	if obj == nil {
		return nil, &parseError{Artifact: ArtifactTree, Err: errNotAnObject}
	}
	// {"tree": {...}} and {"root": {...}} wrappers.
	if len(obj) == 1 {
		for _, key := range []string{"tree", "root"} {
			if inner, ok := obj[key].(map[string]any); ok {
				obj = inner
				break
			}
		}
	}
	node := EnsureNodeDefaults(obj)
	return &node, nil
}

// EnsureNodeDefaults normalizes a decoded node and all of its descendants.
//
// The id falls back to the label in snake case, then to "root"; the label falls back to
// the id, then to "Root". Children that are plain strings become leaf nodes, other
// non-object children are dropped.
func EnsureNodeDefaults(raw map[string]any) KnowledgeNode {
	id := stringField(raw, "id")
	label := stringField(raw, "label")

	node := KnowledgeNode{
		ID:          id,
		Label:       label,
		Description: stringField(raw, "description"),
		Children:    []KnowledgeNode{},
	}
	if node.ID == "" && label != "" {
		node.ID = whitespaceRun.ReplaceAllString(strings.ToLower(label), "_")
	}
	if node.ID == "" {
		node.ID = "root"
	}
	if node.Label == "" {
		node.Label = id
	}
	if node.Label == "" {
		node.Label = "Root"
	}

	children, _ := raw["children"].([]any)
	for _, child := range children {
		switch c := child.(type) {
		case map[string]any:
			node.Children = append(node.Children, EnsureNodeDefaults(c))
		case string:
			if strings.TrimSpace(c) != "" {
				node.Children = append(node.Children, EnsureNodeDefaults(map[string]any{"label": c}))
			}
		}
	}
	return node
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return ""
	}
}
