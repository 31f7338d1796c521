package data

import (
	"errors"
	"fmt"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

var (
	ErrNotFound       = errors.New("mindmap not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")
	ErrCorruptHistory = errors.New("corrupt history entry")
	ErrInvalidInput   = errors.New("invalid input")
)

// IsNoop reports whether err only says there was no history step to take.
func IsNoop(err error) bool {
	return errors.Is(err, ErrNothingToUndo) || errors.Is(err, ErrNothingToRedo)
}

// notFound converts a storage miss into ErrNotFound and passes other errors through.
func notFound(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("mindmap %s: %w", id, ErrNotFound)
	}
	return err
}
