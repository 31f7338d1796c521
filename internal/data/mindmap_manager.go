// Package data provides data management functionality for RiverFlow.
// This file contains the mutation service for mindmaps.
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

// MindmapOperations defines the interface for mindmap-related operations
type MindmapOperations interface {
	MindmapAdd(ctx context.Context, ownerID string, info model.MindmapCreateInfo) (*model.MindmapView, error)
	MindmapGet(ctx context.Context, id, requesterID string) (*model.Mindmap, error)
	MindmapUpdate(ctx context.Context, id, requesterID string, info model.MindmapUpdateInfo) (*model.MindmapView, error)
	MindmapFavoriteToggle(ctx context.Context, id, requesterID string) (*model.MindmapView, error)
	MindmapArchive(ctx context.Context, id, requesterID string) (*model.MindmapView, error)
	MindmapUnarchive(ctx context.Context, id, requesterID string) (*model.MindmapView, error)
	MindmapDelete(ctx context.Context, id, requesterID string) (*model.MindmapView, error)
	MindmapDuplicate(ctx context.Context, sourceID, requesterID string) (*model.MindmapView, error)
	MindmapPurge(ctx context.Context, id, requesterID string) error
	MindmapList(ctx context.Context, ownerID string) ([]*model.Mindmap, error)
	MindmapListByCategory(ctx context.Context, ownerID, category string) ([]*model.Mindmap, error)
	MindmapListFavorites(ctx context.Context, ownerID string) ([]*model.Mindmap, error)
	MindmapListArchived(ctx context.Context, ownerID string) ([]*model.Mindmap, error)
	MindmapSearch(ctx context.Context, ownerID, query string) ([]*model.Mindmap, error)
}

// MindmapManager applies mutations to mindmaps and records each one in the
// history log within the same transaction.
type MindmapManager struct {
	store          Store
	historyManager *HistoryManager
	eventManager   *event.EventManager
	logger         *log.Logger
	now            func() time.Time
}

// NewMindmapManager creates a new MindmapManager instance.
func NewMindmapManager(store Store, historyManager *HistoryManager, eventManager *event.EventManager, logger *log.Logger) (*MindmapManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	if store == nil {
		logger.Error(ctx, "Store not initialized", nil)
		return nil, fmt.Errorf("store not initialized")
	}
	if historyManager == nil {
		logger.Error(ctx, "HistoryManager not initialized", nil)
		return nil, fmt.Errorf("historyManager not initialized")
	}
	if eventManager == nil {
		logger.Error(ctx, "EventManager not initialized", nil)
		return nil, fmt.Errorf("eventManager not initialized")
	}
	return &MindmapManager{
		store:          store,
		historyManager: historyManager,
		eventManager:   eventManager,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// mutation is one recorded change: fn edits m in place and returns the
// history payload describing it.
type mutation struct {
	action model.HistoryAction
	fn     func(m *model.Mindmap, now time.Time) (model.HistoryChange, error)
}

// mindmapMutate runs load, authorize, mutate, save and record as one unit.
func (mm *MindmapManager) mindmapMutate(ctx context.Context, id, requesterID string, mut mutation) (view *model.MindmapView, err error) {
	defer func() { observeMutation(mut.action, err) }()

	err = mm.store.Atomic(ctx, func(tx storage.Tx) error {
		m, err := tx.MindmapGet(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if mindmapPermission(m, requesterID) != permOwner {
			return fmt.Errorf("%w: only the owner can change mindmap %s", ErrAccessDenied, id)
		}

		now := mm.now()
		change, err := mut.fn(m, now)
		if err != nil {
			return err
		}
		if err := tx.MindmapSave(ctx, m); err != nil {
			return fmt.Errorf("failed to save mindmap: %w", err)
		}
		if err := mm.historyManager.historyRecord(ctx, tx, id, requesterID, mut.action, change, now); err != nil {
			return err
		}

		status, err := historyStatus(ctx, tx, id, requesterID)
		if err != nil {
			return err
		}
		view = &model.MindmapView{Mindmap: m, CanUndo: status.CanUndo, CanRedo: status.CanRedo}
		return nil
	})
	if err != nil {
		mm.logger.Warn(ctx, "Mindmap mutation rejected", log.Fields{"action": mut.action, "mindmapID": id, "requesterID": requesterID, "error": err})
		return nil, err
	}

	mm.eventManager.Publish(event.Event{Type: event.MindmapUpdated, Data: event.MindmapEvent{MindmapID: id, ActorID: requesterID, Action: mut.action}})
	mm.logger.Info(ctx, "Mindmap mutated", log.Fields{"action": mut.action, "mindmapID": id, "requesterID": requesterID})
	return view, nil
}

// mindmapInsert stores a brand new mindmap with its creation entry.
func (mm *MindmapManager) mindmapInsert(ctx context.Context, m *model.Mindmap, action model.HistoryAction) (view *model.MindmapView, err error) {
	defer func() { observeMutation(action, err) }()

	err = mm.store.Atomic(ctx, func(tx storage.Tx) error {
		if err := tx.MindmapSave(ctx, m); err != nil {
			return fmt.Errorf("failed to save mindmap: %w", err)
		}
		change := model.SnapshotChange{Before: nil, After: m.Clone()}
		if err := mm.historyManager.historyRecord(ctx, tx, m.ID, m.OwnerID, action, change, m.CreatedAt); err != nil {
			return err
		}
		status, err := historyStatus(ctx, tx, m.ID, m.OwnerID)
		if err != nil {
			return err
		}
		view = &model.MindmapView{Mindmap: m, CanUndo: status.CanUndo, CanRedo: status.CanRedo}
		return nil
	})
	if err != nil {
		mm.logger.Error(ctx, "Failed to add mindmap", log.Fields{"action": action, "ownerID": m.OwnerID, "error": err})
		return nil, err
	}

	mm.eventManager.Publish(event.Event{Type: event.MindmapAdded, Data: event.MindmapEvent{MindmapID: m.ID, ActorID: m.OwnerID, Action: action}})
	mm.logger.Info(ctx, "Mindmap added", log.Fields{"action": action, "mindmapID": m.ID, "ownerID": m.OwnerID})
	return view, nil
}

// MindmapAdd creates a new mindmap owned by ownerID.
func (mm *MindmapManager) MindmapAdd(ctx context.Context, ownerID string, info model.MindmapCreateInfo) (*model.MindmapView, error) {
	mm.logger.Info(ctx, "Adding new mindmap", log.Fields{"ownerID": ownerID, "title": info.Title})

	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if err := validateStruct(info); err != nil {
		observeMutation(model.ActionCreateDocument, err)
		return nil, err
	}

	now := mm.now()
	m := &model.Mindmap{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       info.Title,
		Description: info.Description,
		Thumbnail:   info.Thumbnail,
		Nodes:       nodesNormalize(info.Nodes, ownerID, now),
		Edges:       edgesNormalize(info.Edges),
		Viewport:    model.DefaultViewport(),
		Settings:    model.DefaultSettings(),
		IsPublic:    info.IsPublic,
		Tags:        append([]string{}, info.Tags...),
		Category:    info.Category,
		IsTemplate:  info.IsTemplate,
		Status:      model.StatusActive,
		AIGenerated: info.AIGenerated,
		AIMetadata:  info.AIMetadata,
		CreatedAt:   now,
	}
	if info.Viewport != nil {
		m.Viewport = *info.Viewport
	}
	if info.Settings != nil {
		m.Settings = info.Settings.Clone()
	}
	mindmapTouch(m, ownerID, now)

	return mm.mindmapInsert(ctx, m, model.ActionCreateDocument)
}

// MindmapGet returns the mindmap if the requester may read it.
func (mm *MindmapManager) MindmapGet(ctx context.Context, id, requesterID string) (*model.Mindmap, error) {
	m, err := mm.store.MindmapGet(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	if mindmapPermission(m, requesterID) == permNone {
		mm.logger.Warn(ctx, "Mindmap read denied", log.Fields{"mindmapID": id, "requesterID": requesterID})
		return nil, fmt.Errorf("%w: no read access to mindmap %s", ErrAccessDenied, id)
	}
	return m, nil
}

// MindmapUpdate merges the provided fields into the mindmap. The history
// entry holds the complete state before and after the change.
func (mm *MindmapManager) MindmapUpdate(ctx context.Context, id, requesterID string, info model.MindmapUpdateInfo) (*model.MindmapView, error) {
	mm.logger.Info(ctx, "Updating mindmap", log.Fields{"mindmapID": id, "requesterID": requesterID})

	if err := validateUpdate(info); err != nil {
		observeMutation(model.ActionUpdateDocument, err)
		return nil, err
	}

	return mm.mindmapMutate(ctx, id, requesterID, mutation{
		action: model.ActionUpdateDocument,
		fn: func(m *model.Mindmap, now time.Time) (model.HistoryChange, error) {
			before := m.Clone()
			desired := m.Clone()
			mindmapMerge(desired, info, requesterID, now)
			mindmapApply(m, desired, requesterID, now)
			return model.SnapshotChange{Before: before, After: m.Clone()}, nil
		},
	})
}

// MindmapFavoriteToggle flips the favorite flag.
func (mm *MindmapManager) MindmapFavoriteToggle(ctx context.Context, id, requesterID string) (*model.MindmapView, error) {
	return mm.mindmapMutate(ctx, id, requesterID, mutation{
		action: model.ActionToggleFavorite,
		fn: func(m *model.Mindmap, now time.Time) (model.HistoryChange, error) {
			before, after := m.IsFavorite, !m.IsFavorite
			mindmapApplyFavorite(m, after, requesterID, now)
			return model.FavoriteChange{Before: &before, After: &after}, nil
		},
	})
}

// MindmapArchive moves the mindmap to the archived status.
func (mm *MindmapManager) MindmapArchive(ctx context.Context, id, requesterID string) (*model.MindmapView, error) {
	return mm.mindmapStatusSet(ctx, id, requesterID, model.ActionArchiveDocument, model.StatusArchived)
}

// MindmapUnarchive moves the mindmap back to the active status.
func (mm *MindmapManager) MindmapUnarchive(ctx context.Context, id, requesterID string) (*model.MindmapView, error) {
	return mm.mindmapStatusSet(ctx, id, requesterID, model.ActionUnarchiveDocument, model.StatusActive)
}

// MindmapDelete soft-deletes the mindmap. The aggregate stays in the store
// and the deletion can be undone.
func (mm *MindmapManager) MindmapDelete(ctx context.Context, id, requesterID string) (*model.MindmapView, error) {
	return mm.mindmapStatusSet(ctx, id, requesterID, model.ActionDeleteDocument, model.StatusDeleted)
}

func (mm *MindmapManager) mindmapStatusSet(ctx context.Context, id, requesterID string, action model.HistoryAction, status model.MindmapStatus) (*model.MindmapView, error) {
	mm.logger.Info(ctx, "Changing mindmap status", log.Fields{"mindmapID": id, "status": status})
	return mm.mindmapMutate(ctx, id, requesterID, mutation{
		action: action,
		fn: func(m *model.Mindmap, now time.Time) (model.HistoryChange, error) {
			before, after := m.Status, status
			mindmapApplyStatus(m, after, requesterID, now)
			return model.StatusChange{Before: &before, After: &after}, nil
		},
	})
}

// MindmapDuplicate copies a readable mindmap into a new one owned by the
// requester. The source and its history are not touched.
func (mm *MindmapManager) MindmapDuplicate(ctx context.Context, sourceID, requesterID string) (*model.MindmapView, error) {
	mm.logger.Info(ctx, "Duplicating mindmap", log.Fields{"sourceID": sourceID, "requesterID": requesterID})

	source, err := mm.MindmapGet(ctx, sourceID, requesterID)
	if err != nil {
		observeMutation(model.ActionDuplicateDocument, err)
		return nil, err
	}

	now := mm.now()
	c := source.Clone()
	m := &model.Mindmap{
		ID:          uuid.NewString(),
		OwnerID:     requesterID,
		Title:       c.Title,
		Description: c.Description,
		Thumbnail:   c.Thumbnail,
		Nodes:       c.Nodes,
		Edges:       c.Edges,
		Viewport:    c.Viewport,
		Settings:    c.Settings,
		Tags:        c.Tags,
		Category:    c.Category,
		Status:      model.StatusActive,
		AIGenerated: c.AIGenerated,
		AIMetadata:  c.AIMetadata,
		Metadata:    model.Metadata{ForkedFrom: sourceID},
		CreatedAt:   now,
	}
	mindmapTouch(m, requesterID, now)

	return mm.mindmapInsert(ctx, m, model.ActionDuplicateDocument)
}

// MindmapPurge removes the mindmap for good. Nothing is recorded, so it
// cannot be undone.
func (mm *MindmapManager) MindmapPurge(ctx context.Context, id, requesterID string) error {
	mm.logger.Info(ctx, "Permanently deleting mindmap", log.Fields{"mindmapID": id, "requesterID": requesterID})

	err := mm.store.Atomic(ctx, func(tx storage.Tx) error {
		m, err := tx.MindmapGet(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if mindmapPermission(m, requesterID) != permOwner {
			return fmt.Errorf("%w: only the owner can delete mindmap %s", ErrAccessDenied, id)
		}
		return notFound(tx.MindmapDelete(ctx, id), id)
	})
	if err != nil {
		mm.logger.Warn(ctx, "Permanent delete rejected", log.Fields{"mindmapID": id, "error": err})
		return err
	}

	mm.eventManager.Publish(event.Event{Type: event.MindmapRemoved, Data: event.MindmapEvent{MindmapID: id, ActorID: requesterID}})
	return nil
}

// MindmapList returns the owner's active mindmaps, most recently updated first.
func (mm *MindmapManager) MindmapList(ctx context.Context, ownerID string) ([]*model.Mindmap, error) {
	return mm.mindmapList(ctx, model.MindmapFilter{OwnerID: ownerID, Status: model.StatusActive})
}

// MindmapListByCategory returns the owner's active mindmaps of one category.
func (mm *MindmapManager) MindmapListByCategory(ctx context.Context, ownerID, category string) ([]*model.Mindmap, error) {
	if err := validate.Var(category, "required,oneof=work personal education project brainstorming ai-generated other"); err != nil {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	return mm.mindmapList(ctx, model.MindmapFilter{OwnerID: ownerID, Status: model.StatusActive, Category: category})
}

// MindmapListFavorites returns the owner's active favorite mindmaps.
func (mm *MindmapManager) MindmapListFavorites(ctx context.Context, ownerID string) ([]*model.Mindmap, error) {
	return mm.mindmapList(ctx, model.MindmapFilter{OwnerID: ownerID, Status: model.StatusActive, Favorite: true})
}

// MindmapListArchived returns the owner's archived mindmaps.
func (mm *MindmapManager) MindmapListArchived(ctx context.Context, ownerID string) ([]*model.Mindmap, error) {
	return mm.mindmapList(ctx, model.MindmapFilter{OwnerID: ownerID, Status: model.StatusArchived})
}

// MindmapSearch matches query against title and description of the owner's active mindmaps.
func (mm *MindmapManager) MindmapSearch(ctx context.Context, ownerID, query string) ([]*model.Mindmap, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", ErrInvalidInput)
	}
	return mm.mindmapList(ctx, model.MindmapFilter{OwnerID: ownerID, Status: model.StatusActive, Query: query})
}

func (mm *MindmapManager) mindmapList(ctx context.Context, filter model.MindmapFilter) ([]*model.Mindmap, error) {
	if filter.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	mindmaps, err := mm.store.MindmapList(ctx, filter)
	if err != nil {
		mm.logger.Error(ctx, "Failed to list mindmaps", log.Fields{"ownerID": filter.OwnerID, "error": err})
		return nil, fmt.Errorf("failed to list mindmaps: %w", err)
	}
	return mindmaps, nil
}

// MindmapExport writes a readable mindmap to a JSON or YAML file.
func (mm *MindmapManager) MindmapExport(ctx context.Context, id, requesterID, filename, format string) error {
	m, err := mm.MindmapGet(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if err := storage.FileExport(m, filename, format); err != nil {
		mm.logger.Error(ctx, "Failed to export mindmap", log.Fields{"mindmapID": id, "filename": filename, "error": err})
		return fmt.Errorf("failed to export mindmap: %w", err)
	}
	mm.logger.Info(ctx, "Mindmap exported", log.Fields{"mindmapID": id, "filename": filename})
	return nil
}

// MindmapImport reads a mindmap file and adds its content as a new mindmap
// owned by ownerID. Identity, owner and counters in the file are ignored.
func (mm *MindmapManager) MindmapImport(ctx context.Context, ownerID, filename, format string) (*model.MindmapView, error) {
	imported, err := storage.FileImport(filename, format)
	if err != nil {
		return nil, fmt.Errorf("failed to import mindmap: %w", err)
	}
	if err := MindmapValidate(imported); err != nil {
		return nil, err
	}

	info := model.MindmapCreateInfo{
		Title:       imported.Title,
		Description: imported.Description,
		Thumbnail:   imported.Thumbnail,
		Nodes:       imported.Nodes,
		Edges:       imported.Edges,
		Tags:        imported.Tags,
		Category:    imported.Category,
		IsTemplate:  imported.IsTemplate,
		AIGenerated: imported.AIGenerated,
		AIMetadata:  imported.AIMetadata,
	}
	if imported.Viewport.Zoom != 0 {
		info.Viewport = &imported.Viewport
	}
	if imported.Settings.ConnectionMode != "" {
		info.Settings = &imported.Settings
	}
	view, err := mm.MindmapAdd(ctx, ownerID, info)
	if err != nil && !errors.Is(err, ErrInvalidInput) {
		mm.logger.Error(ctx, "Failed to import mindmap", log.Fields{"filename": filename, "error": err})
	}
	return view, err
}
