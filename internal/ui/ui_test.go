package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

func TestPrintMarkupWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	u := NewUI(&buf, false)
	u.PrintMarkup("{{yellow}}1{{default}} plain {{unknown}}tail")
	assert.Equal(t, "1 plain tail\n", buf.String())
}

func TestPrintMarkupWithColor(t *testing.T) {
	var buf bytes.Buffer
	u := NewUI(&buf, true)
	u.PrintMarkup("{{green}}ok")
	assert.Equal(t, string(ColorGreen)+"ok"+string(ColorDefault)+"\n", buf.String())
}

func TestMindmapViewTree(t *testing.T) {
	var buf bytes.Buffer
	u := NewUI(&buf, false)
	u.MindmapView(&model.MindmapView{
		Mindmap: &model.Mindmap{
			ID:     "m1",
			Title:  "Plan",
			Status: model.StatusActive,
			Nodes: []model.Node{
				{ID: "a", Parent: "root", Content: model.NodeContent{Text: "A"}},
				{ID: "root", Type: model.NodeRoot, Content: model.NodeContent{Text: "Plan"}, Children: []string{"a", "b"}},
				{ID: "b", Parent: "root", Content: model.NodeContent{Text: "B"}},
				{ID: "a1", Parent: "a", Content: model.NodeContent{Text: "A1"}},
			},
		},
		CanUndo: true,
	})

	want := "Plan [m1] active\n" +
		"└── Plan [root]\n" +
		"    ├── A [a]\n" +
		"    │   └── A1 [a1]\n" +
		"    └── B [b]\n" +
		"4 nodes, 0 edges\n" +
		"undo: true  redo: false\n"
	assert.Equal(t, want, buf.String())
}

func TestPromptString(t *testing.T) {
	u := NewUI(&bytes.Buffer{}, false)
	assert.Equal(t, "> ", u.PromptString("", ""))
	assert.Equal(t, "alice > ", u.PromptString("alice", ""))
	assert.Equal(t, "alice @ m1 > ", u.PromptString("alice", "m1"))
}
