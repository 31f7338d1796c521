package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// MindmapStore defines the interface for mindmap-related storage operations.
type MindmapStore interface {
	MindmapGet(ctx context.Context, id string) (*model.Mindmap, error)
	MindmapSave(ctx context.Context, mindmap *model.Mindmap) error
	MindmapDelete(ctx context.Context, id string) error
	MindmapList(ctx context.Context, filter model.MindmapFilter) ([]*model.Mindmap, error)
}

// MindmapStorage implements the MindmapStore interface.
type MindmapStorage struct {
	q      queryer
	logger *log.Logger
}

// MindmapGet loads the aggregate with the given id.
func (s *MindmapStorage) MindmapGet(ctx context.Context, id string) (*model.Mindmap, error) {
	var document string
	err := s.q.QueryRowContext(ctx, "SELECT document FROM mindmaps WHERE id = ?", id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mindmap %s: %w", id, ErrNotFound)
	}
	if err != nil {
		s.logger.Error(ctx, "Failed to query mindmap", log.Fields{"error": err, "mindmapID": id})
		return nil, fmt.Errorf("failed to query mindmap: %w", err)
	}
	return mindmapDecode(document)
}

// MindmapSave inserts the aggregate or replaces the stored copy.
func (s *MindmapStorage) MindmapSave(ctx context.Context, m *model.Mindmap) error {
	document, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode mindmap: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO mindmaps (id, owner_id, title, description, category, status, is_public, is_favorite, is_template, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			status = excluded.status,
			is_public = excluded.is_public,
			is_favorite = excluded.is_favorite,
			is_template = excluded.is_template,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		m.ID, m.OwnerID, m.Title, m.Description, m.Category, string(m.Status),
		m.IsPublic, m.IsFavorite, m.IsTemplate, string(document),
		m.CreatedAt.UnixNano(), m.UpdatedAt.UnixNano(),
	)
	if err != nil {
		s.logger.Error(ctx, "Failed to save mindmap", log.Fields{"error": err, "mindmapID": m.ID})
		return fmt.Errorf("failed to save mindmap: %w", err)
	}

	s.logger.Debug(ctx, "Mindmap saved", log.Fields{"mindmapID": m.ID, "status": m.Status})
	return nil
}

// MindmapDelete removes the aggregate. History rows are kept.
func (s *MindmapStorage) MindmapDelete(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM mindmaps WHERE id = ?", id)
	if err != nil {
		s.logger.Error(ctx, "Failed to delete mindmap", log.Fields{"error": err, "mindmapID": id})
		return fmt.Errorf("failed to delete mindmap: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mindmap %s: %w", id, ErrNotFound)
	}
	return nil
}

// MindmapList returns the mindmaps matching filter, most recently updated first.
func (s *MindmapStorage) MindmapList(ctx context.Context, filter model.MindmapFilter) ([]*model.Mindmap, error) {
	query := "SELECT document FROM mindmaps WHERE 1=1"
	var args []interface{}

	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Favorite {
		query += " AND is_favorite = 1"
	}
	if filter.Query != "" {
		query += ` AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`
		pattern := "%" + likeEscape(strings.ToLower(filter.Query)) + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error(ctx, "Failed to query mindmaps", log.Fields{"error": err, "ownerID": filter.OwnerID})
		return nil, fmt.Errorf("failed to query mindmaps: %w", err)
	}
	defer rows.Close()

	var mindmaps []*model.Mindmap
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan mindmap row: %w", err)
		}
		m, err := mindmapDecode(document)
		if err != nil {
			return nil, err
		}
		mindmaps = append(mindmaps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mindmap rows: %w", err)
	}
	return mindmaps, nil
}

func mindmapDecode(document string) (*model.Mindmap, error) {
	var m model.Mindmap
	if err := json.Unmarshal([]byte(document), &m); err != nil {
		return nil, fmt.Errorf("failed to decode mindmap document: %w", err)
	}
	return &m, nil
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
