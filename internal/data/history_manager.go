// Package data provides data management functionality for RiverFlow.
// This file contains the undo/redo engine over the persisted history log.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/event"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

// Store is the persistence used by the managers. *storage.Storage implements it.
type Store interface {
	Atomic(ctx context.Context, fn func(tx storage.Tx) error) error
	storage.MindmapStore
	storage.HistoryStore
	storage.UserStore
}

// HistoryOperations defines the interface for undo/redo operations
type HistoryOperations interface {
	HistoryUndo(ctx context.Context, mindmapID, actorID string) (*model.MindmapView, error)
	HistoryRedo(ctx context.Context, mindmapID, actorID string) (*model.MindmapView, error)
	HistoryCanUndo(ctx context.Context, mindmapID, actorID string) (bool, error)
	HistoryCanRedo(ctx context.Context, mindmapID, actorID string) (bool, error)
	HistoryStatus(ctx context.Context, mindmapID, actorID string) (model.HistoryStatus, error)
	HistoryList(ctx context.Context, mindmapID, requesterID string) ([]*model.HistoryEntry, error)
}

type historyDirection int

const (
	directionUndo historyDirection = iota
	directionRedo
)

func (d historyDirection) String() string {
	if d == directionUndo {
		return "undo"
	}
	return "redo"
}

// source is the state an entry must be in to be the target of d, target the state after the step.
func (d historyDirection) states() (source, target model.HistoryState) {
	if d == directionUndo {
		return model.HistoryActive, model.HistoryReversed
	}
	return model.HistoryReversed, model.HistoryActive
}

func (d historyDirection) nothing() error {
	if d == directionUndo {
		return ErrNothingToUndo
	}
	return ErrNothingToRedo
}

// HistoryManager moves the per-(mindmap, actor) undo cursor and applies
// stored states to the mindmap. Every step is one storage transaction.
type HistoryManager struct {
	store        Store
	eventManager *event.EventManager
	logger       *log.Logger
	now          func() time.Time
}

// NewHistoryManager creates a new HistoryManager instance.
func NewHistoryManager(store Store, eventManager *event.EventManager, logger *log.Logger) (*HistoryManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if store == nil {
		logger.Error(context.Background(), "Store not initialized", nil)
		return nil, fmt.Errorf("store not initialized")
	}
	if eventManager == nil {
		logger.Error(context.Background(), "EventManager not initialized", nil)
		return nil, fmt.Errorf("eventManager not initialized")
	}
	return &HistoryManager{
		store:        store,
		eventManager: eventManager,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// historyRecord appends a new active entry inside tx. The actor's reversed
// entries for the mindmap are dropped first: a new mutation ends the redo branch.
func (hm *HistoryManager) historyRecord(ctx context.Context, tx storage.Tx, mindmapID, actorID string, action model.HistoryAction, change model.HistoryChange, now time.Time) error {
	if change.Kind() != model.ChangeKindOf(action) {
		return fmt.Errorf("history action %s cannot carry change kind %d", action, change.Kind())
	}

	dropped, err := tx.HistoryDelete(ctx, mindmapID, actorID, model.HistoryReversed)
	if err != nil {
		return fmt.Errorf("failed to invalidate redo entries: %w", err)
	}
	if dropped > 0 {
		hm.logger.Debug(ctx, "Redo entries invalidated", log.Fields{"mindmapID": mindmapID, "actorID": actorID, "count": dropped})
	}

	entry := &model.HistoryEntry{
		ID:        uuid.NewString(),
		MindmapID: mindmapID,
		ActorID:   actorID,
		Action:    action,
		Change:    change,
		State:     model.HistoryActive,
		CreatedAt: now,
	}
	if err := tx.HistoryAdd(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// historyStatus reads both cursor flags through q, which may be a transaction.
func historyStatus(ctx context.Context, q storage.HistoryStore, mindmapID, actorID string) (model.HistoryStatus, error) {
	var status model.HistoryStatus
	var err error
	if status.CanUndo, err = q.HistoryExists(ctx, mindmapID, actorID, model.HistoryActive); err != nil {
		return status, err
	}
	if status.CanRedo, err = q.HistoryExists(ctx, mindmapID, actorID, model.HistoryReversed); err != nil {
		return status, err
	}
	return status, nil
}

// HistoryUndo reverts the actor's most recent active entry on the mindmap.
func (hm *HistoryManager) HistoryUndo(ctx context.Context, mindmapID, actorID string) (*model.MindmapView, error) {
	return hm.historyStep(ctx, mindmapID, actorID, directionUndo)
}

// HistoryRedo re-applies the actor's most recently reversed entry on the mindmap.
func (hm *HistoryManager) HistoryRedo(ctx context.Context, mindmapID, actorID string) (*model.MindmapView, error) {
	return hm.historyStep(ctx, mindmapID, actorID, directionRedo)
}

func (hm *HistoryManager) historyStep(ctx context.Context, mindmapID, actorID string, d historyDirection) (view *model.MindmapView, err error) {
	start := time.Now()
	defer func() { observeHistoryStep(d.String(), start, err) }()

	hm.logger.Info(ctx, "History step requested", log.Fields{"direction": d.String(), "mindmapID": mindmapID, "actorID": actorID})

	source, target := d.states()
	var applied *model.HistoryEntry
	err = hm.store.Atomic(ctx, func(tx storage.Tx) error {
		entry, err := tx.HistoryNewest(ctx, mindmapID, actorID, source)
		if errors.Is(err, storage.ErrNotFound) {
			return d.nothing()
		}
		if errors.Is(err, storage.ErrMalformedChange) {
			return fmt.Errorf("%w: %v", ErrCorruptHistory, err)
		}
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		now := hm.now()
		result, err := hm.changeApply(ctx, tx, entry, d, actorID, now)
		if err != nil {
			return err
		}
		if err := tx.HistoryStateSet(ctx, entry.ID, target, now); err != nil {
			return fmt.Errorf("failed to update history entry: %w", err)
		}

		status, err := historyStatus(ctx, tx, mindmapID, actorID)
		if err != nil {
			return err
		}
		view = &model.MindmapView{Mindmap: result, CanUndo: status.CanUndo, CanRedo: status.CanRedo}
		applied = entry
		return nil
	})
	if err != nil {
		switch {
		case IsNoop(err):
			hm.logger.Info(ctx, "History step skipped", log.Fields{"direction": d.String(), "mindmapID": mindmapID, "reason": err.Error()})
		case errors.Is(err, ErrCorruptHistory):
			hm.logger.Error(ctx, "Corrupt history entry", log.Fields{"direction": d.String(), "mindmapID": mindmapID, "actorID": actorID, "error": err})
		default:
			hm.logger.Error(ctx, "History step failed", log.Fields{"direction": d.String(), "mindmapID": mindmapID, "error": err})
		}
		return nil, err
	}

	eventType := event.HistoryUndone
	if d == directionRedo {
		eventType = event.HistoryRedone
	}
	hm.eventManager.Publish(event.Event{Type: eventType, Data: event.MindmapEvent{MindmapID: mindmapID, ActorID: actorID, Action: applied.Action}})
	if view.Mindmap == nil {
		hm.eventManager.Publish(event.Event{Type: event.MindmapRemoved, Data: event.MindmapEvent{MindmapID: mindmapID, ActorID: actorID, Action: applied.Action}})
	}

	hm.logger.Info(ctx, "History step applied", log.Fields{"direction": d.String(), "mindmapID": mindmapID, "entryID": applied.ID, "action": applied.Action})
	return view, nil
}

// changeApply restores one side of entry onto the stored mindmap and returns
// the resulting aggregate, or nil when the step removed it. The payload is
// checked completely before anything is written.
func (hm *HistoryManager) changeApply(ctx context.Context, tx storage.Tx, entry *model.HistoryEntry, d historyDirection, actorID string, now time.Time) (*model.Mindmap, error) {
	if entry.Change == nil || entry.Change.Kind() != model.ChangeKindOf(entry.Action) {
		return nil, fmt.Errorf("%w: entry %s has no payload for action %s", ErrCorruptHistory, entry.ID, entry.Action)
	}

	switch change := entry.Change.(type) {
	case model.SnapshotChange:
		if entry.Action.CreatesDocument() {
			return hm.creationApply(ctx, tx, entry, change, actorID, d, now)
		}
		side := change.Before
		if d == directionRedo {
			side = change.After
		}
		if side == nil {
			return nil, fmt.Errorf("%w: entry %s is missing its %s snapshot", ErrCorruptHistory, entry.ID, sideName(d))
		}
		m, err := hm.ownedLoad(ctx, tx, entry.MindmapID, actorID)
		if err != nil {
			return nil, err
		}
		mindmapApply(m, side, actorID, now)
		return m, hm.save(ctx, tx, m)

	case model.FavoriteChange:
		side := change.Before
		if d == directionRedo {
			side = change.After
		}
		if side == nil {
			return nil, fmt.Errorf("%w: entry %s is missing its %s favorite value", ErrCorruptHistory, entry.ID, sideName(d))
		}
		m, err := hm.ownedLoad(ctx, tx, entry.MindmapID, actorID)
		if err != nil {
			return nil, err
		}
		mindmapApplyFavorite(m, *side, actorID, now)
		return m, hm.save(ctx, tx, m)

	case model.StatusChange:
		side := change.Before
		if d == directionRedo {
			side = change.After
		}
		if side == nil || !side.Valid() {
			return nil, fmt.Errorf("%w: entry %s has no valid %s status", ErrCorruptHistory, entry.ID, sideName(d))
		}
		m, err := hm.ownedLoad(ctx, tx, entry.MindmapID, actorID)
		if err != nil {
			return nil, err
		}
		mindmapApplyStatus(m, *side, actorID, now)
		return m, hm.save(ctx, tx, m)

	default:
		return nil, fmt.Errorf("%w: entry %s has unsupported payload %T", ErrCorruptHistory, entry.ID, change)
	}
}

// creationApply handles entries that brought a mindmap into existence:
// undo removes it, redo re-inserts the recorded aggregate.
func (hm *HistoryManager) creationApply(ctx context.Context, tx storage.Tx, entry *model.HistoryEntry, change model.SnapshotChange, actorID string, d historyDirection, now time.Time) (*model.Mindmap, error) {
	if d == directionUndo {
		// a purged mindmap stays purged; the entry remains active
		if _, err := hm.ownedLoad(ctx, tx, entry.MindmapID, actorID); err != nil {
			return nil, err
		}
		if err := tx.MindmapDelete(ctx, entry.MindmapID); err != nil {
			return nil, fmt.Errorf("failed to remove mindmap: %w", notFound(err, entry.MindmapID))
		}
		return nil, nil
	}

	if change.After == nil || change.After.ID != entry.MindmapID {
		return nil, fmt.Errorf("%w: entry %s has no usable creation snapshot", ErrCorruptHistory, entry.ID)
	}
	m := change.After.Clone()
	m.UpdatedAt = now
	return m, hm.save(ctx, tx, m)
}

func (hm *HistoryManager) ownedLoad(ctx context.Context, tx storage.Tx, mindmapID, actorID string) (*model.Mindmap, error) {
	m, err := tx.MindmapGet(ctx, mindmapID)
	if err != nil {
		return nil, notFound(err, mindmapID)
	}
	if mindmapPermission(m, actorID) != permOwner {
		return nil, fmt.Errorf("%w: only the owner can change mindmap %s", ErrAccessDenied, mindmapID)
	}
	return m, nil
}

func (hm *HistoryManager) save(ctx context.Context, tx storage.Tx, m *model.Mindmap) error {
	if err := tx.MindmapSave(ctx, m); err != nil {
		return fmt.Errorf("failed to save mindmap: %w", err)
	}
	return nil
}

func sideName(d historyDirection) string {
	if d == directionUndo {
		return "before"
	}
	return "after"
}

// HistoryCanUndo reports whether the actor has an active entry on the mindmap.
func (hm *HistoryManager) HistoryCanUndo(ctx context.Context, mindmapID, actorID string) (bool, error) {
	return hm.store.HistoryExists(ctx, mindmapID, actorID, model.HistoryActive)
}

// HistoryCanRedo reports whether the actor has a reversed entry on the mindmap.
func (hm *HistoryManager) HistoryCanRedo(ctx context.Context, mindmapID, actorID string) (bool, error) {
	return hm.store.HistoryExists(ctx, mindmapID, actorID, model.HistoryReversed)
}

// HistoryStatus returns both flags at once. It needs read access while the
// mindmap exists; once it is gone, only actors with entries on it get an answer.
func (hm *HistoryManager) HistoryStatus(ctx context.Context, mindmapID, actorID string) (model.HistoryStatus, error) {
	m, err := hm.store.MindmapGet(ctx, mindmapID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.HistoryStatus{}, fmt.Errorf("failed to load mindmap: %w", err)
	}
	if m != nil && mindmapPermission(m, actorID) == permNone {
		return model.HistoryStatus{}, fmt.Errorf("%w: no read access to mindmap %s", ErrAccessDenied, mindmapID)
	}

	status, err := historyStatus(ctx, hm.store, mindmapID, actorID)
	if err != nil {
		return status, fmt.Errorf("failed to read history status: %w", err)
	}
	if m == nil && !status.CanUndo && !status.CanRedo {
		return status, fmt.Errorf("mindmap %s: %w", mindmapID, ErrNotFound)
	}
	return status, nil
}

// HistoryList returns the history of a mindmap, newest first. Readers of the
// mindmap see every entry; once the mindmap is gone, actors only see their own.
func (hm *HistoryManager) HistoryList(ctx context.Context, mindmapID, requesterID string) ([]*model.HistoryEntry, error) {
	m, err := hm.store.MindmapGet(ctx, mindmapID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load mindmap: %w", err)
	}
	if m != nil && mindmapPermission(m, requesterID) == permNone {
		return nil, fmt.Errorf("%w: no read access to mindmap %s", ErrAccessDenied, mindmapID)
	}

	entries, err := hm.store.HistoryList(ctx, mindmapID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if m != nil {
		return entries, nil
	}

	own := entries[:0]
	for _, e := range entries {
		if e.ActorID == requesterID {
			own = append(own, e)
		}
	}
	if len(own) == 0 {
		return nil, fmt.Errorf("mindmap %s: %w", mindmapID, ErrNotFound)
	}
	return own, nil
}
