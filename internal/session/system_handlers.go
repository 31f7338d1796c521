package session

import (
	"context"
	"fmt"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/data"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// handleSystemUndo handles: system undo [id]
func handleSystemUndo(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	return historyStep(ctx, s, cmd, sm.dataManager.HistoryManager.HistoryUndo)
}

// handleSystemRedo handles: system redo [id]
func handleSystemRedo(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	return historyStep(ctx, s, cmd, sm.dataManager.HistoryManager.HistoryRedo)
}

// historyStep runs an undo or redo on the target mindmap. Nothing to undo
// or redo is passed through unwrapped so callers can report it as a no-op.
func historyStep(ctx context.Context, s *Session, cmd model.Command, step viewOperation) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, fmt.Sprintf("system %s [id]", cmd.Operation)); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	view, err := step(ctx, id, userID)
	if err != nil {
		if data.IsNoop(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to %s: %w", cmd.Operation, err)
	}
	return view, nil
}

// handleSystemStatus handles: system status [id]
func handleSystemStatus(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, "system status [id]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	status, err := sm.dataManager.HistoryManager.HistoryStatus(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history status: %w", err)
	}
	return status, nil
}
