package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	cfg := &model.Config{
		DatabaseType: "sqlite",
		DatabaseDir:  t.TempDir(),
		DatabaseFile: "test.db",
	}
	s, err := NewStorage(cfg, log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMindmap(id, owner, title string) *model.Mindmap {
	now := time.Now().UTC()
	return &model.Mindmap{
		ID:        id,
		OwnerID:   owner,
		Title:     title,
		Nodes:     []model.Node{{ID: "n1", Type: model.NodeRoot, Content: model.NodeContent{Text: title}}},
		Viewport:  model.DefaultViewport(),
		Settings:  model.DefaultSettings(),
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestMindmapSaveGetDelete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	m := testMindmap("m1", "alice", "Roadmap")
	require.NoError(t, s.MindmapSave(ctx, m))

	got, err := s.MindmapGet(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", got.Title)
	assert.Equal(t, "alice", got.OwnerID)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "Roadmap", got.Nodes[0].Content.Text)

	m.Title = "Roadmap v2"
	m.IsFavorite = true
	require.NoError(t, s.MindmapSave(ctx, m))
	got, err = s.MindmapGet(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap v2", got.Title)
	assert.True(t, got.IsFavorite)

	require.NoError(t, s.MindmapDelete(ctx, "m1"))
	_, err = s.MindmapGet(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.MindmapDelete(ctx, "m1"), ErrNotFound)
}

func TestMindmapListFilters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC()
	add := func(id, owner, title string, mutate func(m *model.Mindmap), offset time.Duration) {
		m := testMindmap(id, owner, title)
		m.UpdatedAt = base.Add(offset)
		if mutate != nil {
			mutate(m)
		}
		require.NoError(t, s.MindmapSave(ctx, m))
	}
	add("a", "alice", "Sprint plan", func(m *model.Mindmap) { m.Category = model.CategoryWork }, 1*time.Second)
	add("b", "alice", "Holiday 100% fun", func(m *model.Mindmap) { m.IsFavorite = true }, 2*time.Second)
	add("c", "alice", "Old ideas", func(m *model.Mindmap) { m.Status = model.StatusArchived }, 3*time.Second)
	add("d", "bob", "Sprint retro", nil, 4*time.Second)

	active, err := s.MindmapList(ctx, model.MindmapFilter{OwnerID: "alice", Status: model.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].ID, "most recently updated first")
	assert.Equal(t, "a", active[1].ID)

	work, err := s.MindmapList(ctx, model.MindmapFilter{OwnerID: "alice", Category: model.CategoryWork})
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, "a", work[0].ID)

	favorites, err := s.MindmapList(ctx, model.MindmapFilter{OwnerID: "alice", Favorite: true})
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "b", favorites[0].ID)

	found, err := s.MindmapList(ctx, model.MindmapFilter{OwnerID: "alice", Status: model.StatusActive, Query: "SPRINT"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ID)

	literal, err := s.MindmapList(ctx, model.MindmapFilter{OwnerID: "alice", Query: "100%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "b", literal[0].ID)
}

func addEntry(t *testing.T, hs HistoryStore, id string, state model.HistoryState) *model.HistoryEntry {
	t.Helper()
	entry := &model.HistoryEntry{
		ID:        id,
		MindmapID: "m1",
		ActorID:   "alice",
		Action:    model.ActionToggleFavorite,
		Change:    model.FavoriteChange{Before: boolPtr(false), After: boolPtr(true)},
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, hs.HistoryAdd(context.Background(), entry))
	return entry
}

func TestHistoryNewestOrdering(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	e1 := addEntry(t, s, "e1", model.HistoryActive)
	e2 := addEntry(t, s, "e2", model.HistoryActive)
	assert.Greater(t, e2.Seq, e1.Seq)

	newest, err := s.HistoryNewest(ctx, "m1", "alice", model.HistoryActive)
	require.NoError(t, err)
	assert.Equal(t, "e2", newest.ID)
	change, ok := newest.Change.(model.FavoriteChange)
	require.True(t, ok)
	assert.True(t, *change.After)

	// flipping moves the entry to the head of the reversed side
	require.NoError(t, s.HistoryStateSet(ctx, "e2", model.HistoryReversed, time.Now().UTC()))
	require.NoError(t, s.HistoryStateSet(ctx, "e1", model.HistoryReversed, time.Now().UTC()))

	newest, err = s.HistoryNewest(ctx, "m1", "alice", model.HistoryReversed)
	require.NoError(t, err)
	assert.Equal(t, "e1", newest.ID)

	_, err = s.HistoryNewest(ctx, "m1", "alice", model.HistoryActive)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.HistoryNewest(ctx, "m1", "bob", model.HistoryReversed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryDeleteAndExists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	addEntry(t, s, "e1", model.HistoryActive)
	addEntry(t, s, "e2", model.HistoryReversed)
	addEntry(t, s, "e3", model.HistoryReversed)

	exists, err := s.HistoryExists(ctx, "m1", "alice", model.HistoryReversed)
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := s.HistoryDelete(ctx, "m1", "alice", model.HistoryReversed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	exists, err = s.HistoryExists(ctx, "m1", "alice", model.HistoryReversed)
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := s.HistoryList(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}

func TestHistoryMalformedPayload(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	addEntry(t, s, "e1", model.HistoryActive)
	db := s.db.DB()
	_, err := db.ExecContext(ctx, "UPDATE mindmap_history SET changes = '[1,2]' WHERE id = 'e1'")
	require.NoError(t, err)

	entry, err := s.HistoryNewest(ctx, "m1", "alice", model.HistoryActive)
	assert.ErrorIs(t, err, ErrMalformedChange)
	require.NotNil(t, entry)
	assert.Equal(t, "e1", entry.ID)
	assert.Nil(t, entry.Change)

	_, err = db.ExecContext(ctx, "UPDATE mindmap_history SET action = 'rename_document', changes = '{}' WHERE id = 'e1'")
	require.NoError(t, err)
	_, err = s.HistoryNewest(ctx, "m1", "alice", model.HistoryActive)
	assert.ErrorIs(t, err, ErrMalformedChange)

	entries, err := s.HistoryList(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAtomicRollsBackBothWrites(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	failure := errors.New("history append failed")
	err := s.Atomic(ctx, func(tx Tx) error {
		if err := tx.MindmapSave(ctx, testMindmap("m1", "alice", "Draft")); err != nil {
			return err
		}
		addEntry(t, tx, "e1", model.HistoryActive)
		return failure
	})
	require.ErrorIs(t, err, failure)

	_, err = s.MindmapGet(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)
	exists, err := s.HistoryExists(ctx, "m1", "alice", model.HistoryActive)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Atomic(ctx, func(tx Tx) error {
		if err := tx.MindmapSave(ctx, testMindmap("m1", "alice", "Draft")); err != nil {
			return err
		}
		addEntry(t, tx, "e1", model.HistoryActive)
		return nil
	}))
	_, err = s.MindmapGet(ctx, "m1")
	require.NoError(t, err)
}

func TestAtomicHonoursCancelledContext(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Atomic(ctx, func(tx Tx) error {
		return tx.MindmapSave(ctx, testMindmap("m1", "alice", "Draft"))
	})
	require.Error(t, err)

	_, err = s.MindmapGet(context.Background(), "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserAddAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := &model.User{ID: "u1", Username: "alice", PasswordHash: []byte("hash"), Active: true, Created: now, Updated: now}
	require.NoError(t, s.UserAdd(ctx, u))

	dup := *u
	dup.ID = "u2"
	assert.ErrorIs(t, s.UserAdd(ctx, &dup), ErrAlreadyExists)

	users, err := s.UserGet(ctx, model.UserInfo{Username: "alice"}, model.UserFilter{Username: true})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, []byte("hash"), users[0].PasswordHash)

	users, err = s.UserGet(ctx, model.UserInfo{Username: "nobody"}, model.UserFilter{Username: true})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFileExportImport(t *testing.T) {
	dir := t.TempDir()
	m := testMindmap("m1", "alice", "Roadmap")
	m.Tags = []string{"q3"}

	for _, name := range []string{"roadmap.json", "roadmap.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, FileExport(m, path, ""))

		imported, err := FileImport(path, "")
		require.NoError(t, err, name)
		assert.Equal(t, m.Title, imported.Title, name)
		assert.Equal(t, m.Tags, imported.Tags, name)
		require.Len(t, imported.Nodes, 1, name)
		assert.Equal(t, "n1", imported.Nodes[0].ID, name)
	}

	_, err := FileFormat("roadmap.xml", "xml")
	assert.Error(t, err)
}

func TestPragmasApplyToEveryConnection(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	db := s.db.DB()

	first, err := db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var synchronous, cacheSize, foreignKeys int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&synchronous))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA cache_size").Scan(&cacheSize))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
		assert.Equal(t, 1, synchronous, "connection %d: synchronous=NORMAL", i)
		assert.Equal(t, 5000, cacheSize, "connection %d", i)
		assert.Equal(t, 1, foreignKeys, "connection %d", i)
	}
}
