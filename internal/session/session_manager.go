package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/data"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/event"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

const (
	defaultSessionTimeout  = 30 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

// ErrSessionNotFound is returned for an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

type commandResult struct {
	value interface{}
	err   error
}

type commandExecution struct {
	ctx     context.Context
	session *Session
	command model.Command
	result  chan commandResult
}

// SessionManager handles multiple sessions. Commands of all sessions are
// executed one at a time by a single executor goroutine.
type SessionManager struct {
	sessions      map[string]*Session
	mu            sync.RWMutex
	dataManager   *data.DataManager
	handlers      map[string]map[string]CommandHandler
	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once
	commandQueue  chan commandExecution
	logger        *log.Logger
}

// NewSessionManager creates a new SessionManager and starts its executor
// and cleanup goroutines. Stop releases them.
func NewSessionManager(dataManager *data.DataManager, logger *log.Logger) (*SessionManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if dataManager == nil {
		logger.Error(context.Background(), "DataManager not initialized", nil)
		return nil, fmt.Errorf("dataManager not initialized")
	}

	sm := &SessionManager{
		sessions:     make(map[string]*Session),
		dataManager:  dataManager,
		handlers:     commandHandlers(),
		done:         make(chan struct{}),
		commandQueue: make(chan commandExecution, 100),
		logger:       logger,
	}

	dataManager.EventManager.Subscribe(event.MindmapRemoved, sm.handleMindmapRemoved)

	go sm.commandExecutor()
	sm.startCleanupRoutine()

	logger.Info(context.Background(), "SessionManager created", nil)
	return sm, nil
}

// SessionAdd creates a new session and returns its id.
func (sm *SessionManager) SessionAdd() (string, error) {
	ctx := context.Background()

	id, err := generateSessionID()
	if err != nil {
		sm.logger.Error(ctx, "Failed to generate session ID", log.Fields{"error": err})
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}

	sm.mu.Lock()
	sm.sessions[id] = newSession(id)
	sm.mu.Unlock()

	sm.logger.Info(ctx, "Session added", log.Fields{"sessionID": id})
	return id, nil
}

// SessionGet retrieves a session by id.
func (sm *SessionManager) SessionGet(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[sessionID]
	return s, ok
}

// SessionDelete removes a session.
func (sm *SessionManager) SessionDelete(sessionID string) {
	sm.mu.Lock()
	_, ok := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if !ok {
		sm.logger.Warn(context.Background(), "Attempted to delete non-existent session", log.Fields{"sessionID": sessionID})
		return
	}
	sm.logger.Info(context.Background(), "Session deleted", log.Fields{"sessionID": sessionID})
}

// SessionRun executes a command for a specific session.
func (sm *SessionManager) SessionRun(ctx context.Context, sessionID string, cmd model.Command) (interface{}, error) {
	s, ok := sm.SessionGet(sessionID)
	if !ok {
		sm.logger.Error(ctx, "Session not found", log.Fields{"sessionID": sessionID})
		return nil, ErrSessionNotFound
	}

	sm.logger.Command(ctx, "Command received", log.Fields{
		"sessionID": sessionID,
		"scope":     cmd.Scope,
		"operation": cmd.Operation,
		"args":      cmd.Args,
	})

	exec := commandExecution{ctx: ctx, session: s, command: cmd, result: make(chan commandResult, 1)}
	select {
	case sm.commandQueue <- exec:
	case <-sm.done:
		return nil, errors.New("session manager stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-exec.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// commandExecutor processes commands from the queue
func (sm *SessionManager) commandExecutor() {
	for {
		select {
		case exec := <-sm.commandQueue:
			value, err := sm.commandRun(exec.ctx, exec.session, exec.command)
			exec.result <- commandResult{value: value, err: err}
		case <-sm.done:
			return
		}
	}
}

func (sm *SessionManager) commandRun(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	fields := sessionFields(s, cmd)
	s.touch(time.Now())

	ops, ok := sm.handlers[cmd.Scope]
	if !ok {
		sm.logger.Error(ctx, "Invalid command scope", fields)
		return nil, fmt.Errorf("invalid command scope: %s", cmd.Scope)
	}
	handler, ok := ops[cmd.Operation]
	if !ok {
		sm.logger.Error(ctx, "Invalid command operation", fields)
		return nil, fmt.Errorf("invalid %s operation: %s", cmd.Scope, cmd.Operation)
	}

	result, err := handler(ctx, sm, s, cmd)
	if err != nil && !data.IsNoop(err) {
		fields["error"] = err
		sm.logger.Error(ctx, "Command execution failed", fields)
		return nil, err
	}
	sm.logger.Debug(ctx, "Command executed", fields)
	return result, err
}

// handleMindmapRemoved clears the selection of sessions pointing at a purged
// mindmap. Undo of a creation also removes the document but keeps the
// selection, so the creation can be redone.
func (sm *SessionManager) handleMindmapRemoved(e event.Event) {
	ev, ok := e.Data.(event.MindmapEvent)
	if !ok || ev.Action != "" {
		return
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, s := range sm.sessions {
		if s.mindmapClear(ev.MindmapID) {
			sm.logger.Debug(context.Background(), "Cleared selection of removed mindmap", log.Fields{"sessionID": s.ID, "mindmapID": ev.MindmapID})
		}
	}
}

// startCleanupRoutine starts a goroutine that periodically cleans up inactive sessions
func (sm *SessionManager) startCleanupRoutine() {
	sm.cleanupTicker = time.NewTicker(defaultCleanupInterval)
	go func() {
		for {
			select {
			case <-sm.cleanupTicker.C:
				sm.cleanupInactiveSessions(time.Now())
			case <-sm.done:
				sm.cleanupTicker.Stop()
				return
			}
		}
	}()
}

// Stop terminates the executor and cleanup goroutines.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		sm.logger.Info(context.Background(), "Stopping session manager", nil)
		close(sm.done)
	})
}

func (sm *SessionManager) cleanupInactiveSessions(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, s := range sm.sessions {
		if s.idleSince(now) > defaultSessionTimeout {
			delete(sm.sessions, id)
			sm.logger.Info(context.Background(), "Removed inactive session", log.Fields{"sessionID": id})
		}
	}
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
