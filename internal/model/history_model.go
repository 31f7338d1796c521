package model

import "time"

// HistoryAction names the mutation recorded by a history entry.
type HistoryAction string

const (
	ActionCreateDocument    HistoryAction = "create_document"
	ActionUpdateDocument    HistoryAction = "update_document"
	ActionDuplicateDocument HistoryAction = "duplicate_document"
	ActionToggleFavorite    HistoryAction = "toggle_favorite"
	ActionArchiveDocument   HistoryAction = "archive_document"
	ActionUnarchiveDocument HistoryAction = "unarchive_document"
	ActionDeleteDocument    HistoryAction = "delete_document"
)

// HistoryState is the position of an entry relative to the undo cursor.
type HistoryState string

const (
	HistoryActive   HistoryState = "active"
	HistoryReversed HistoryState = "reversed"
)

// ChangeKind identifies the payload shape stored with an entry.
type ChangeKind int

const (
	ChangeUnknown ChangeKind = iota
	ChangeSnapshot
	ChangeFavorite
	ChangeStatus
)

// ChangeKindOf maps an action to the only payload shape it may carry.
func ChangeKindOf(action HistoryAction) ChangeKind {
	switch action {
	case ActionCreateDocument, ActionDuplicateDocument, ActionUpdateDocument:
		return ChangeSnapshot
	case ActionToggleFavorite:
		return ChangeFavorite
	case ActionArchiveDocument, ActionUnarchiveDocument, ActionDeleteDocument:
		return ChangeStatus
	default:
		return ChangeUnknown
	}
}

// CreatesDocument reports whether undoing the action removes the document.
func (a HistoryAction) CreatesDocument() bool {
	return a == ActionCreateDocument || a == ActionDuplicateDocument
}

// HistoryChange is the before/after payload of an entry. Implemented by
// SnapshotChange, FavoriteChange and StatusChange only.
type HistoryChange interface {
	Kind() ChangeKind
}

// SnapshotChange carries full aggregate snapshots. Before is nil for
// document creation.
type SnapshotChange struct {
	Before *Mindmap `json:"before"`
	After  *Mindmap `json:"after"`
}

func (SnapshotChange) Kind() ChangeKind { return ChangeSnapshot }

// FavoriteChange carries the favorite flag on both sides.
type FavoriteChange struct {
	Before *bool `json:"before"`
	After  *bool `json:"after"`
}

func (FavoriteChange) Kind() ChangeKind { return ChangeFavorite }

// StatusChange carries the lifecycle status on both sides.
type StatusChange struct {
	Before *MindmapStatus `json:"before"`
	After  *MindmapStatus `json:"after"`
}

func (StatusChange) Kind() ChangeKind { return ChangeStatus }

// HistoryEntry is one reversible mutation of a mindmap by one actor.
type HistoryEntry struct {
	ID        string        `json:"id"`
	MindmapID string        `json:"mindmapId"`
	ActorID   string        `json:"actorId"`
	Action    HistoryAction `json:"action"`
	Change    HistoryChange `json:"changes"`
	State     HistoryState  `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	// Seq orders entries of the log. It is reassigned whenever the state flips.
	Seq int64 `json:"-"`
}

// HistoryStatus tells a client which of undo and redo are currently possible.
type HistoryStatus struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}
