package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/session"
)

func TestCommandParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  model.Command
	}{
		{
			name:  "scope only",
			input: "help",
			want:  model.Command{Scope: "help", Args: []string{}, Options: map[string]string{}},
		},
		{
			name:  "quoted argument and options",
			input: `Mindmap ADD "Team plan" --category=work --public --Title='Q3 goals'`,
			want: model.Command{
				Scope:     "mindmap",
				Operation: "add",
				Args:      []string{"Team plan"},
				Options:   map[string]string{"category": "work", "public": "", "title": "Q3 goals"},
			},
		},
		{
			name:  "negative coordinates stay positional",
			input: "node move n1 -10 20.5",
			want: model.Command{
				Scope:     "node",
				Operation: "move",
				Args:      []string{"n1", "-10", "20.5"},
				Options:   map[string]string{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CommandParse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CommandParse("   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
	_, err = CommandParse(`mindmap add "unterminated`)
	assert.Error(t, err)
}

func TestCLIAdapterPrompt(t *testing.T) {
	dm := newTestDataManager(t)
	logger := log.NewNopLogger()
	sm, err := session.NewSessionManager(dm, logger)
	require.NoError(t, err)
	t.Cleanup(sm.Stop)

	a, err := NewCLIAdapter(sm, logger)
	require.NoError(t, err)
	id, err := a.SessionAdd()
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "> ", a.PromptGet(id))

	_, err = a.ProcessInput(ctx, id, "user select alice alice-pw")
	require.NoError(t, err)
	assert.Equal(t, "alice > ", a.PromptGet(id))

	res, err := a.ProcessInput(ctx, id, `mindmap add "Road map"`)
	require.NoError(t, err)
	view := res.(*model.MindmapView)
	assert.Equal(t, "Road map", view.Mindmap.Title)
	assert.Equal(t, "alice @ "+view.Mindmap.ID[:8]+" > ", a.PromptGet(id))

	a.AdapterStop()
	_, ok := sm.SessionGet(id)
	assert.False(t, ok)
}
