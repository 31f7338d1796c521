// Package session manages user sessions and dispatches parsed commands
// to the data layer on behalf of the session's current user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

var (
	ErrNoUser    = errors.New("no user selected")
	ErrNoMindmap = errors.New("no mindmap selected")
)

// CommandHandler is a function type for command handlers
type CommandHandler func(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error)

// Session represents an individual user session
type Session struct {
	ID           string
	userID       string
	username     string
	mindmapID    string
	lastActivity time.Time
	mu           sync.Mutex
}

func newSession(id string) *Session {
	return &Session{ID: id, lastActivity: time.Now()}
}

// User returns the id and name of the current user.
func (s *Session) User() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return "", "", ErrNoUser
	}
	return s.userID, s.username, nil
}

// UserSet switches the current user and drops the mindmap selection.
func (s *Session) UserSet(userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.username = username
	s.mindmapID = ""
}

// Mindmap returns the id of the selected mindmap.
func (s *Session) Mindmap() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mindmapID == "" {
		return "", ErrNoMindmap
	}
	return s.mindmapID, nil
}

// MindmapSet selects a mindmap; an empty id clears the selection.
func (s *Session) MindmapSet(mindmapID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mindmapID = mindmapID
}

func (s *Session) mindmapClear(mindmapID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mindmapID != mindmapID {
		return false
	}
	s.mindmapID = ""
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

// commandHandlers returns the dispatch table keyed by scope, then operation.
func commandHandlers() map[string]map[string]CommandHandler {
	return map[string]map[string]CommandHandler{
		"user": {
			"add":    handleUserAdd,
			"select": handleUserSelect,
			"list":   handleUserList,
		},
		"mindmap": {
			"add":       handleMindmapAdd,
			"select":    handleMindmapSelect,
			"view":      handleMindmapView,
			"list":      handleMindmapList,
			"update":    handleMindmapUpdate,
			"favorite":  handleMindmapFavorite,
			"archive":   handleMindmapArchive,
			"unarchive": handleMindmapUnarchive,
			"delete":    handleMindmapDelete,
			"purge":     handleMindmapPurge,
			"duplicate": handleMindmapDuplicate,
			"search":    handleMindmapSearch,
			"history":   handleMindmapHistory,
			"export":    handleMindmapExport,
			"import":    handleMindmapImport,
		},
		"node": {
			"add":    handleNodeAdd,
			"update": handleNodeUpdate,
			"move":   handleNodeMove,
			"delete": handleNodeDelete,
		},
		"edge": {
			"add":    handleEdgeAdd,
			"delete": handleEdgeDelete,
		},
		"system": {
			"undo":   handleSystemUndo,
			"redo":   handleSystemRedo,
			"status": handleSystemStatus,
		},
	}
}

// argsCheck fails unless the command has between min and max positional arguments.
func argsCheck(cmd model.Command, min, max int, usage string) error {
	if len(cmd.Args) < min || len(cmd.Args) > max {
		return fmt.Errorf("%s %s: invalid number of arguments, usage: %s", cmd.Scope, cmd.Operation, usage)
	}
	return nil
}

func sessionFields(s *Session, cmd model.Command) log.Fields {
	return log.Fields{"sessionID": s.ID, "scope": cmd.Scope, "operation": cmd.Operation}
}
