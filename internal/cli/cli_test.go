package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/adapter"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/data"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/session"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	cfg := &model.Config{
		DatabaseType: "sqlite",
		DatabaseDir:  t.TempDir(),
		DatabaseFile: "test.db",
	}
	logger := log.NewNopLogger()
	store, err := storage.NewStorage(cfg, logger)
	require.NoError(t, err)
	dm, err := data.NewDataManager(store, cfg, logger)
	require.NoError(t, err)
	sm, err := session.NewSessionManager(dm, logger)
	require.NoError(t, err)
	a, err := adapter.NewCLIAdapter(sm, logger)
	require.NoError(t, err)

	var out bytes.Buffer
	c, err := NewCLI(a, &out, false, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		sm.Stop()
		dm.EventManager.Wait()
		store.Close()
	})
	return c, &out
}

func TestScriptRunUndoRedo(t *testing.T) {
	c, out := newTestCLI(t)
	script := `
# setup
user add alice pw
user select alice pw
mindmap add Plan
mindmap update --title="Q4 plan"
system undo
system redo
system redo
mindmap view
`
	require.NoError(t, c.ScriptRun(context.Background(), strings.NewReader(script)))

	text := out.String()
	assert.Contains(t, text, "User created: alice")
	assert.Contains(t, text, "? nothing to redo")
	assert.Contains(t, text, "Q4 plan [")
	assert.Contains(t, text, "undo: true  redo: false")
	assert.NotContains(t, text, "# setup")
}

func TestScriptRunStopsOnError(t *testing.T) {
	c, out := newTestCLI(t)
	script := "user add alice\nmindmap view\nuser add bob\n"

	err := c.ScriptRun(context.Background(), strings.NewReader(script))
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNoUser)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, out.String(), "! ")
	assert.NotContains(t, out.String(), "User created: bob")
}

func TestScriptRunExit(t *testing.T) {
	c, out := newTestCLI(t)
	require.NoError(t, c.ScriptRun(context.Background(), strings.NewReader("exit\nuser add bob\n")))
	assert.NotContains(t, out.String(), "User created: bob")
}

func TestHandleHelp(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, c.Execute(context.Background(), "help"))
	assert.Contains(t, out.String(), "system:")

	out.Reset()
	require.NoError(t, c.Execute(context.Background(), "help node"))
	assert.Contains(t, out.String(), "move")
	assert.NotContains(t, out.String(), "purge")

	out.Reset()
	require.NoError(t, c.Execute(context.Background(), "help system undo"))
	assert.Contains(t, out.String(), "Syntax: system undo [id]")

	assert.Error(t, c.Execute(context.Background(), "help nope"))
	assert.Error(t, c.Execute(context.Background(), "help a b c"))
}
