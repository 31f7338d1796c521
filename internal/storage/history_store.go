package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// ErrMalformedChange is returned when a stored payload does not decode into
// the shape its action requires.
var ErrMalformedChange = errors.New("malformed history change")

// HistoryStore defines the append-mostly log of reversible mutations.
type HistoryStore interface {
	HistoryAdd(ctx context.Context, entry *model.HistoryEntry) error
	HistoryNewest(ctx context.Context, mindmapID, actorID string, state model.HistoryState) (*model.HistoryEntry, error)
	HistoryStateSet(ctx context.Context, id string, state model.HistoryState, at time.Time) error
	HistoryDelete(ctx context.Context, mindmapID, actorID string, state model.HistoryState) (int64, error)
	HistoryExists(ctx context.Context, mindmapID, actorID string, state model.HistoryState) (bool, error)
	HistoryList(ctx context.Context, mindmapID string) ([]*model.HistoryEntry, error)
}

// HistoryStorage implements the HistoryStore interface.
type HistoryStorage struct {
	q      queryer
	logger *log.Logger
}

const historyColumns = "id, mindmap_id, actor_id, action, changes, state, seq, created_at"

// nextSeq is evaluated inside the same statement as the write, so the
// transaction lock makes it unique and increasing.
const nextSeq = "(SELECT COALESCE(MAX(seq), 0) + 1 FROM mindmap_history)"

// HistoryAdd appends an entry and fills in its Seq.
func (s *HistoryStorage) HistoryAdd(ctx context.Context, entry *model.HistoryEntry) error {
	if entry.Change == nil {
		return fmt.Errorf("history entry %s has no change: %w", entry.ID, ErrMalformedChange)
	}
	changes, err := json.Marshal(entry.Change)
	if err != nil {
		return fmt.Errorf("failed to encode history change: %w", err)
	}

	err = s.q.QueryRowContext(ctx,
		"INSERT INTO mindmap_history ("+historyColumns+") VALUES (?, ?, ?, ?, ?, ?, "+nextSeq+", ?) RETURNING seq",
		entry.ID, entry.MindmapID, entry.ActorID, string(entry.Action), string(changes),
		string(entry.State), entry.CreatedAt.UnixNano(),
	).Scan(&entry.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("history entry %s: %w", entry.ID, ErrAlreadyExists)
		}
		s.logger.Error(ctx, "Failed to add history entry", log.Fields{"error": err, "mindmapID": entry.MindmapID})
		return fmt.Errorf("failed to add history entry: %w", err)
	}

	s.logger.Debug(ctx, "History entry added", log.Fields{"entryID": entry.ID, "action": entry.Action, "seq": entry.Seq})
	return nil
}

// HistoryNewest returns the most recent entry of (mindmapID, actorID) in the
// given state, or ErrNotFound. A malformed payload is reported together with
// the entry so callers can identify it.
func (s *HistoryStorage) HistoryNewest(ctx context.Context, mindmapID, actorID string, state model.HistoryState) (*model.HistoryEntry, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+historyColumns+" FROM mindmap_history WHERE mindmap_id = ? AND actor_id = ? AND state = ? ORDER BY seq DESC LIMIT 1",
		mindmapID, actorID, string(state),
	)
	entry, err := historyScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no %s history entry for mindmap %s: %w", state, mindmapID, ErrNotFound)
	}
	return entry, err
}

// HistoryStateSet flips the entry state and moves it to the head of the log.
func (s *HistoryStorage) HistoryStateSet(ctx context.Context, id string, state model.HistoryState, at time.Time) error {
	result, err := s.q.ExecContext(ctx,
		"UPDATE mindmap_history SET state = ?, created_at = ?, seq = "+nextSeq+" WHERE id = ?",
		string(state), at.UnixNano(), id,
	)
	if err != nil {
		s.logger.Error(ctx, "Failed to update history entry", log.Fields{"error": err, "entryID": id})
		return fmt.Errorf("failed to update history entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// HistoryDelete removes every entry of (mindmapID, actorID) in the given state.
func (s *HistoryStorage) HistoryDelete(ctx context.Context, mindmapID, actorID string, state model.HistoryState) (int64, error) {
	result, err := s.q.ExecContext(ctx,
		"DELETE FROM mindmap_history WHERE mindmap_id = ? AND actor_id = ? AND state = ?",
		mindmapID, actorID, string(state),
	)
	if err != nil {
		s.logger.Error(ctx, "Failed to delete history entries", log.Fields{"error": err, "mindmapID": mindmapID})
		return 0, fmt.Errorf("failed to delete history entries: %w", err)
	}
	return result.RowsAffected()
}

// HistoryExists reports whether (mindmapID, actorID) has an entry in the given state.
func (s *HistoryStorage) HistoryExists(ctx context.Context, mindmapID, actorID string, state model.HistoryState) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM mindmap_history WHERE mindmap_id = ? AND actor_id = ? AND state = ?)",
		mindmapID, actorID, string(state),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return exists, nil
}

// HistoryList returns all entries of a mindmap, newest first. Entries whose
// payload cannot be decoded are returned with a nil Change.
func (s *HistoryStorage) HistoryList(ctx context.Context, mindmapID string) ([]*model.HistoryEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+historyColumns+" FROM mindmap_history WHERE mindmap_id = ? ORDER BY seq DESC",
		mindmapID,
	)
	if err != nil {
		s.logger.Error(ctx, "Failed to query history", log.Fields{"error": err, "mindmapID": mindmapID})
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*model.HistoryEntry
	for rows.Next() {
		entry, err := historyScan(rows)
		if err != nil && !errors.Is(err, ErrMalformedChange) {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func historyScan(row rowScanner) (*model.HistoryEntry, error) {
	var (
		entry     model.HistoryEntry
		action    string
		changes   string
		state     string
		createdAt int64
	)
	if err := row.Scan(&entry.ID, &entry.MindmapID, &entry.ActorID, &action, &changes, &state, &entry.Seq, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history row: %w", err)
	}
	entry.Action = model.HistoryAction(action)
	entry.State = model.HistoryState(state)
	entry.CreatedAt = time.Unix(0, createdAt).UTC()

	change, err := changeDecode(entry.Action, []byte(changes))
	if err != nil {
		return &entry, fmt.Errorf("history entry %s: %w", entry.ID, err)
	}
	entry.Change = change
	return &entry, nil
}

// changeDecode picks the payload shape from the action. It only checks that
// the JSON matches that shape; missing sides are left nil for the caller to judge.
func changeDecode(action model.HistoryAction, raw []byte) (model.HistoryChange, error) {
	switch model.ChangeKindOf(action) {
	case model.ChangeSnapshot:
		var c model.SnapshotChange
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChange, err)
		}
		return c, nil
	case model.ChangeFavorite:
		var c model.FavoriteChange
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChange, err)
		}
		return c, nil
	case model.ChangeStatus:
		var c model.StatusChange
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChange, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedChange, action)
	}
}
