package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

func newTestDataManager(t *testing.T) (*DataManager, *storage.Storage) {
	t.Helper()
	cfg := &model.Config{
		DatabaseType: "sqlite",
		DatabaseDir:  t.TempDir(),
		DatabaseFile: "test.db",
	}
	logger := log.NewNopLogger()
	store, err := storage.NewStorage(cfg, logger)
	require.NoError(t, err)

	dm, err := NewDataManager(store, cfg, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		dm.EventManager.Wait()
		store.Close()
		logger.Close()
	})
	return dm, store
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func mustAdd(t *testing.T, dm *DataManager, owner, title string) *model.Mindmap {
	t.Helper()
	view, err := dm.MindmapManager.MindmapAdd(context.Background(), owner, model.MindmapCreateInfo{
		Title: title,
		Nodes: []model.Node{{ID: "root", Type: model.NodeRoot, Content: model.NodeContent{Text: title}}},
	})
	require.NoError(t, err)
	require.NotNil(t, view.Mindmap)
	return view.Mindmap
}

func mustGet(t *testing.T, dm *DataManager, id, requester string) *model.Mindmap {
	t.Helper()
	m, err := dm.MindmapManager.MindmapGet(context.Background(), id, requester)
	require.NoError(t, err)
	return m
}

// editable is the part of a mindmap that mutations and undo/redo may change.
type editable struct {
	Title         string
	Description   string
	Thumbnail     string
	Nodes         []model.Node
	Edges         []model.Edge
	Viewport      model.Viewport
	Settings      model.Settings
	IsPublic      bool
	ShareToken    string
	Collaborators []model.Collaborator
	Tags          []string
	Category      string
	IsFavorite    bool
	IsTemplate    bool
	Status        model.MindmapStatus
}

func editableOf(m *model.Mindmap) editable {
	c := m.Clone()
	return editable{
		Title:         c.Title,
		Description:   c.Description,
		Thumbnail:     c.Thumbnail,
		Nodes:         c.Nodes,
		Edges:         c.Edges,
		Viewport:      c.Viewport,
		Settings:      c.Settings,
		IsPublic:      c.IsPublic,
		ShareToken:    c.ShareToken,
		Collaborators: c.Collaborators,
		Tags:          c.Tags,
		Category:      c.Category,
		IsFavorite:    c.IsFavorite,
		IsTemplate:    c.IsTemplate,
		Status:        c.Status,
	}
}
