package data

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/event"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

func TestUndoRedoTitleChange(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	hm := dm.HistoryManager

	m := mustAdd(t, dm, "alice", "A")
	_, err := dm.MindmapManager.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("B")})
	require.NoError(t, err)

	view, err := hm.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "A", view.Mindmap.Title)
	assert.True(t, view.CanRedo)
	assert.True(t, view.CanUndo, "the creation entry is still active")

	view, err = hm.HistoryRedo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "B", view.Mindmap.Title)
	assert.False(t, view.CanRedo)
	assert.Equal(t, "B", mustGet(t, dm, m.ID, "alice").Title)
}

func TestUndoRestoresOnlyEditableState(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()

	m := mustAdd(t, dm, "alice", "A")
	created := mustGet(t, dm, m.ID, "alice")

	_, err := dm.MindmapManager.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("B")})
	require.NoError(t, err)
	updated := mustGet(t, dm, m.ID, "alice")

	_, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	restored := mustGet(t, dm, m.ID, "alice")

	assert.Equal(t, created.ID, restored.ID)
	assert.Equal(t, created.OwnerID, restored.OwnerID)
	assert.Equal(t, created.CreatedAt, restored.CreatedAt)
	assert.False(t, restored.UpdatedAt.Before(updated.UpdatedAt), "undo refreshes updatedAt")
}

func TestUndoAllMutationsReturnsToCreationState(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	mm := dm.MindmapManager

	m := mustAdd(t, dm, "alice", "Plan")
	created := mustGet(t, dm, m.ID, "alice")

	steps := []func() error{
		func() error {
			_, err := mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("Plan v2"), Tags: &[]string{"x"}})
			return err
		},
		func() error { _, err := mm.MindmapFavoriteToggle(ctx, m.ID, "alice"); return err },
		func() error {
			nodes := append(mustGet(t, dm, m.ID, "alice").Nodes, model.Node{ID: "n2", Parent: "root"})
			_, err := mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Nodes: &nodes})
			return err
		},
		func() error { _, err := mm.MindmapArchive(ctx, m.ID, "alice"); return err },
		func() error {
			_, err := mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Viewport: &model.Viewport{X: 10, Y: 20, Zoom: 2}})
			return err
		},
		func() error { _, err := mm.MindmapUnarchive(ctx, m.ID, "alice"); return err },
		func() error { _, err := mm.MindmapDelete(ctx, m.ID, "alice"); return err },
	}
	for _, step := range steps {
		require.NoError(t, step())
	}

	for range steps {
		view, err := dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
		require.NoError(t, err)
		require.NotNil(t, view.Mindmap)
	}

	assert.Equal(t, editableOf(created), editableOf(mustGet(t, dm, m.ID, "alice")))

	// the creation entry is next: undoing it removes the mindmap
	view, err := dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Nil(t, view.Mindmap)
	assert.False(t, view.CanUndo)
	assert.True(t, view.CanRedo)

	_, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoThenRedoIsIdentityPerAction(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ctx context.Context, dm *DataManager, id string) error
	}{
		{"update_document", func(ctx context.Context, dm *DataManager, id string) error {
			_, err := dm.MindmapManager.MindmapUpdate(ctx, id, "alice", model.MindmapUpdateInfo{
				Description: strPtr("details"),
				Edges:       &[]model.Edge{{ID: "e1", Source: "root", Target: "root"}},
			})
			return err
		}},
		{"toggle_favorite", func(ctx context.Context, dm *DataManager, id string) error {
			_, err := dm.MindmapManager.MindmapFavoriteToggle(ctx, id, "alice")
			return err
		}},
		{"archive_document", func(ctx context.Context, dm *DataManager, id string) error {
			_, err := dm.MindmapManager.MindmapArchive(ctx, id, "alice")
			return err
		}},
		{"delete_document", func(ctx context.Context, dm *DataManager, id string) error {
			_, err := dm.MindmapManager.MindmapDelete(ctx, id, "alice")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm, _ := newTestDataManager(t)
			ctx := context.Background()

			m := mustAdd(t, dm, "alice", "Plan")
			before := mustGet(t, dm, m.ID, "alice")
			require.NoError(t, tt.mutate(ctx, dm, m.ID))
			after := mustGet(t, dm, m.ID, "alice")
			require.NotEqual(t, editableOf(before), editableOf(after))

			_, err := dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
			require.NoError(t, err)
			assert.Equal(t, editableOf(before), editableOf(mustGet(t, dm, m.ID, "alice")))

			_, err = dm.HistoryManager.HistoryRedo(ctx, m.ID, "alice")
			require.NoError(t, err)
			assert.Equal(t, editableOf(after), editableOf(mustGet(t, dm, m.ID, "alice")))
		})
	}
}

func TestUndoRedoCreation(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	hm := dm.HistoryManager

	removed := make(chan string, 1)
	dm.EventManager.Subscribe(event.MindmapRemoved, func(e event.Event) {
		removed <- e.Data.(event.MindmapEvent).MindmapID
	})

	m := mustAdd(t, dm, "alice", "Ephemeral")
	created := mustGet(t, dm, m.ID, "alice")

	view, err := hm.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Nil(t, view.Mindmap)
	_, err = dm.MindmapManager.MindmapGet(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	select {
	case id := <-removed:
		assert.Equal(t, m.ID, id)
	case <-time.After(time.Second):
		t.Fatal("no removal event")
	}

	view, err = hm.HistoryRedo(ctx, m.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, view.Mindmap)
	restored := mustGet(t, dm, m.ID, "alice")
	assert.Equal(t, editableOf(created), editableOf(restored))
	assert.Equal(t, created.OwnerID, restored.OwnerID)
	assert.Equal(t, created.CreatedAt, restored.CreatedAt)
}

func TestFavoriteToggleTwiceThenUndoTwice(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	mm := dm.MindmapManager

	m := mustAdd(t, dm, "alice", "Plan")

	view, err := mm.MindmapFavoriteToggle(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.True(t, view.Mindmap.IsFavorite)
	view, err = mm.MindmapFavoriteToggle(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.False(t, view.Mindmap.IsFavorite)

	view, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.True(t, view.Mindmap.IsFavorite)
	view, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.False(t, view.Mindmap.IsFavorite)
	assert.True(t, view.CanRedo)
}

func TestUndoSoftDelete(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()

	m := mustAdd(t, dm, "alice", "Plan")
	_, err := dm.MindmapManager.MindmapDelete(ctx, m.ID, "alice")
	require.NoError(t, err)

	view, err := dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, view.Mindmap.Status)
	assert.Equal(t, model.StatusActive, mustGet(t, dm, m.ID, "alice").Status)
}

func TestUndoDuplicateRemovesOnlyTheCopy(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()

	source := mustAdd(t, dm, "alice", "Source")
	_, err := dm.MindmapManager.MindmapUpdate(ctx, source.ID, "alice", model.MindmapUpdateInfo{IsPublic: boolPtr(true)})
	require.NoError(t, err)

	view, err := dm.MindmapManager.MindmapDuplicate(ctx, source.ID, "bob")
	require.NoError(t, err)
	dupID := view.Mindmap.ID

	view, err = dm.HistoryManager.HistoryUndo(ctx, dupID, "bob")
	require.NoError(t, err)
	assert.Nil(t, view.Mindmap)
	_, err = dm.MindmapManager.MindmapGet(ctx, dupID, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Source", mustGet(t, dm, source.ID, "alice").Title)

	_, err = dm.HistoryManager.HistoryRedo(ctx, dupID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", mustGet(t, dm, dupID, "bob").OwnerID)
}

func TestUndoOnEmptyHistory(t *testing.T) {
	dm, store := newTestDataManager(t)
	ctx := context.Background()

	m := mustAdd(t, dm, "alice", "Plan")
	before := mustGet(t, dm, m.ID, "alice")
	entries, err := store.HistoryList(ctx, m.ID)
	require.NoError(t, err)

	_, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, ErrNothingToUndo)
	assert.True(t, IsNoop(err))
	_, err = dm.HistoryManager.HistoryRedo(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, ErrNothingToRedo)

	assert.Equal(t, before, mustGet(t, dm, m.ID, "alice"))
	after, err := store.HistoryList(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, entries, after)
}

func TestCanUndoCanRedoFlags(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	hm := dm.HistoryManager

	_, err := hm.HistoryStatus(ctx, "nothing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	m := mustAdd(t, dm, "alice", "Plan")
	status, err := hm.HistoryStatus(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.HistoryStatus{CanUndo: true}, status)

	_, err = hm.HistoryStatus(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = hm.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	canUndo, err := hm.HistoryCanUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	canRedo, err := hm.HistoryCanRedo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.False(t, canUndo)
	assert.True(t, canRedo)
}

func TestNewMutationInvalidatesRedo(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	mm := dm.MindmapManager

	m := mustAdd(t, dm, "alice", "A")
	_, err := mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("B")})
	require.NoError(t, err)
	_, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)

	view, err := mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("C")})
	require.NoError(t, err)
	assert.False(t, view.CanRedo)

	_, err = dm.HistoryManager.HistoryRedo(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, ErrNothingToRedo)
	assert.Equal(t, "C", mustGet(t, dm, m.ID, "alice").Title)

	view, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "A", view.Mindmap.Title)
}

func TestCursorsAreIndependentPerMindmap(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()
	mm := dm.MindmapManager

	first := mustAdd(t, dm, "alice", "First")
	second := mustAdd(t, dm, "alice", "Second")
	_, err := mm.MindmapUpdate(ctx, first.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("First v2")})
	require.NoError(t, err)
	_, err = mm.MindmapUpdate(ctx, second.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("Second v2")})
	require.NoError(t, err)

	_, err = dm.HistoryManager.HistoryUndo(ctx, first.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, "First", mustGet(t, dm, first.ID, "alice").Title)
	assert.Equal(t, "Second v2", mustGet(t, dm, second.ID, "alice").Title)

	canRedo, err := dm.HistoryManager.HistoryCanRedo(ctx, second.ID, "alice")
	require.NoError(t, err)
	assert.False(t, canRedo)
}

func TestCorruptEntryIsRejected(t *testing.T) {
	tests := []struct {
		name   string
		action model.HistoryAction
		change model.HistoryChange
	}{
		{"update without before snapshot", model.ActionUpdateDocument, model.SnapshotChange{After: &model.Mindmap{Title: "x"}}},
		{"favorite without before value", model.ActionToggleFavorite, model.FavoriteChange{After: boolPtr(true)}},
		{"status with unknown value", model.ActionArchiveDocument, model.StatusChange{Before: statusPtr("frozen"), After: statusPtr(model.StatusArchived)}},
		{"payload of the wrong kind", model.ActionArchiveDocument, model.FavoriteChange{Before: boolPtr(true), After: boolPtr(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm, store := newTestDataManager(t)
			ctx := context.Background()

			m := mustAdd(t, dm, "alice", "Plan")
			before := mustGet(t, dm, m.ID, "alice")

			entry := &model.HistoryEntry{
				ID:        "corrupt",
				MindmapID: m.ID,
				ActorID:   "alice",
				Action:    tt.action,
				Change:    tt.change,
				State:     model.HistoryActive,
				CreatedAt: time.Now().UTC(),
			}
			require.NoError(t, store.HistoryAdd(ctx, entry))

			_, err := dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
			assert.ErrorIs(t, err, ErrCorruptHistory)

			assert.Equal(t, before, mustGet(t, dm, m.ID, "alice"))
			newest, err := store.HistoryNewest(ctx, m.ID, "alice", model.HistoryActive)
			require.NoError(t, err)
			assert.Equal(t, "corrupt", newest.ID, "entry state is unchanged")
		})
	}
}

func TestUndoAfterPermanentDelete(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()

	m := mustAdd(t, dm, "alice", "Plan")
	_, err := dm.MindmapManager.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("Plan v2")})
	require.NoError(t, err)
	require.NoError(t, dm.MindmapManager.MindmapPurge(ctx, m.ID, "alice"))

	_, err = dm.HistoryManager.HistoryUndo(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := dm.HistoryManager.HistoryList(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	_, err = dm.HistoryManager.HistoryList(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUndoCreationAfterPermanentDelete(t *testing.T) {
	tests := []struct {
		name   string
		create func(t *testing.T, dm *DataManager) string
	}{
		{
			name: "create",
			create: func(t *testing.T, dm *DataManager) string {
				return mustAdd(t, dm, "alice", "Secret").ID
			},
		},
		{
			name: "duplicate",
			create: func(t *testing.T, dm *DataManager) string {
				src := mustAdd(t, dm, "alice", "Secret")
				view, err := dm.MindmapManager.MindmapDuplicate(context.Background(), src.ID, "alice")
				require.NoError(t, err)
				return view.Mindmap.ID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm, _ := newTestDataManager(t)
			ctx := context.Background()
			hm := dm.HistoryManager

			id := tt.create(t, dm)
			require.NoError(t, dm.MindmapManager.MindmapPurge(ctx, id, "alice"))

			_, err := hm.HistoryUndo(ctx, id, "alice")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = hm.HistoryRedo(ctx, id, "alice")
			assert.ErrorIs(t, err, ErrNothingToRedo)

			_, err = dm.MindmapManager.MindmapGet(ctx, id, "alice")
			assert.ErrorIs(t, err, ErrNotFound)

			status, err := hm.HistoryStatus(ctx, id, "alice")
			require.NoError(t, err)
			assert.Equal(t, model.HistoryStatus{CanUndo: true, CanRedo: false}, status, "creation entry stays active")
		})
	}
}

func TestCursorsAreIndependentPerActor(t *testing.T) {
	dm, store := newTestDataManager(t)
	ctx := context.Background()
	hm := dm.HistoryManager
	mm := dm.MindmapManager

	// public so bob may read the cursor flags
	created, err := mm.MindmapAdd(ctx, "alice", model.MindmapCreateInfo{
		Title:    "Plan",
		IsPublic: true,
		Nodes:    []model.Node{{ID: "root", Type: model.NodeRoot, Content: model.NodeContent{Text: "Plan"}}},
	})
	require.NoError(t, err)
	m := created.Mindmap
	snapshot := mustGet(t, dm, m.ID, "alice")

	// bob holds an undone entry on the same mindmap
	require.NoError(t, store.Atomic(ctx, func(tx storage.Tx) error {
		now := time.Now()
		change := model.SnapshotChange{Before: snapshot.Clone(), After: snapshot.Clone()}
		if err := hm.historyRecord(ctx, tx, m.ID, "bob", model.ActionUpdateDocument, change, now); err != nil {
			return err
		}
		entry, err := tx.HistoryNewest(ctx, m.ID, "bob", model.HistoryActive)
		if err != nil {
			return err
		}
		return tx.HistoryStateSet(ctx, entry.ID, model.HistoryReversed, now)
	}))

	bobStatus := model.HistoryStatus{CanUndo: false, CanRedo: true}
	status, err := hm.HistoryStatus(ctx, m.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, bobStatus, status)

	_, err = mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("B")})
	require.NoError(t, err)
	view, err := hm.HistoryUndo(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.True(t, view.CanRedo)

	status, err = hm.HistoryStatus(ctx, m.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, bobStatus, status, "alice's undo leaves bob's cursor alone")

	view, err = mm.MindmapUpdate(ctx, m.ID, "alice", model.MindmapUpdateInfo{Title: strPtr("C")})
	require.NoError(t, err)
	assert.False(t, view.CanRedo)

	status, err = hm.HistoryStatus(ctx, m.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, bobStatus, status, "alice's new mutation prunes only her own redo entries")

	entries, err := store.HistoryList(ctx, m.ID)
	require.NoError(t, err)
	reversed := map[string]int{}
	for _, e := range entries {
		if e.State == model.HistoryReversed {
			reversed[e.ActorID]++
		}
	}
	assert.Equal(t, map[string]int{"bob": 1}, reversed)
}

func TestHistoryListAccess(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()

	m := mustAdd(t, dm, "alice", "Plan")
	_, err := dm.MindmapManager.MindmapFavoriteToggle(ctx, m.ID, "alice")
	require.NoError(t, err)

	entries, err := dm.HistoryManager.HistoryList(ctx, m.ID, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionToggleFavorite, entries[0].Action)
	assert.Equal(t, model.ActionCreateDocument, entries[1].Action)

	_, err = dm.HistoryManager.HistoryList(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestHistoryStepMetrics(t *testing.T) {
	dm, _ := newTestDataManager(t)
	ctx := context.Background()

	noop := historyStepTotal.WithLabelValues("undo", "noop")
	before := testutil.ToFloat64(noop)

	_, err := dm.HistoryManager.HistoryUndo(ctx, "missing", "alice")
	require.ErrorIs(t, err, ErrNothingToUndo)

	assert.Equal(t, before+1, testutil.ToFloat64(noop))
}

func statusPtr(s model.MindmapStatus) *model.MindmapStatus { return &s }
