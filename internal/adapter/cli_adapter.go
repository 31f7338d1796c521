// Package adapter connects the outer surfaces (interactive shell, scripts,
// HTTP) to the session and data layers.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/shlex"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/session"
)

// ErrEmptyCommand is returned for blank input lines.
var ErrEmptyCommand = errors.New("empty command")

// CLIAdapter turns text lines into commands and runs them in a session.
type CLIAdapter struct {
	sessionManager *session.SessionManager
	sessions       map[string]bool
	sessionMutex   sync.RWMutex
	logger         *log.Logger
}

// NewCLIAdapter creates a new instance of CLIAdapter using the provided SessionManager
func NewCLIAdapter(sm *session.SessionManager, logger *log.Logger) (*CLIAdapter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if sm == nil {
		return nil, fmt.Errorf("sessionManager not initialized")
	}
	return &CLIAdapter{
		sessionManager: sm,
		sessions:       make(map[string]bool),
		logger:         logger,
	}, nil
}

// SessionAdd adds a new cli session
func (a *CLIAdapter) SessionAdd() (string, error) {
	sessionID, err := a.sessionManager.SessionAdd()
	if err != nil {
		return "", err
	}
	a.sessionMutex.Lock()
	a.sessions[sessionID] = true
	a.sessionMutex.Unlock()
	a.logger.Info(context.Background(), "New CLI session added", log.Fields{"sessionID": sessionID})
	return sessionID, nil
}

// SessionDelete deletes a cli session
func (a *CLIAdapter) SessionDelete(sessionID string) {
	a.sessionMutex.Lock()
	delete(a.sessions, sessionID)
	a.sessionMutex.Unlock()
	a.sessionManager.SessionDelete(sessionID)
}

// AdapterStop removes every session opened through the adapter.
func (a *CLIAdapter) AdapterStop() {
	a.sessionMutex.Lock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	a.sessions = make(map[string]bool)
	a.sessionMutex.Unlock()

	for _, id := range ids {
		a.sessionManager.SessionDelete(id)
	}
	a.logger.Info(context.Background(), "CLI adapter stopped", log.Fields{"sessions": len(ids)})
}

// ProcessInput converts the input string into command and runs it
func (a *CLIAdapter) ProcessInput(ctx context.Context, sessionID, input string) (interface{}, error) {
	cmd, err := CommandParse(input)
	if err != nil {
		return nil, err
	}
	return a.CommandRun(ctx, sessionID, cmd)
}

// CommandParse splits a line with shell quoting into scope, operation,
// positional arguments and --key=value options. A bare --flag is stored
// with an empty value.
func CommandParse(input string) (model.Command, error) {
	words, err := shlex.Split(input)
	if err != nil {
		return model.Command{}, fmt.Errorf("failed to parse command: %w", err)
	}

	var fields []string
	options := make(map[string]string)
	for _, w := range words {
		if strings.HasPrefix(w, "--") && len(w) > 2 {
			key, value, _ := strings.Cut(w[2:], "=")
			options[strings.ToLower(key)] = value
			continue
		}
		fields = append(fields, w)
	}
	if len(fields) == 0 {
		return model.Command{}, ErrEmptyCommand
	}

	cmd := model.Command{
		Scope:   strings.ToLower(fields[0]),
		Args:    []string{},
		Options: options,
	}
	if len(fields) > 1 {
		cmd.Operation = strings.ToLower(fields[1])
		cmd.Args = fields[2:]
	}
	return cmd, nil
}

// CommandRun runs an already parsed command in the session.
func (a *CLIAdapter) CommandRun(ctx context.Context, sessionID string, cmd model.Command) (interface{}, error) {
	return a.sessionManager.SessionRun(ctx, sessionID, cmd)
}

// SessionState returns the current username and the short id of the
// selected mindmap; either is empty when unset.
func (a *CLIAdapter) SessionState(sessionID string) (string, string) {
	s, ok := a.sessionManager.SessionGet(sessionID)
	if !ok {
		return "", ""
	}
	_, username, err := s.User()
	if err != nil {
		return "", ""
	}
	mindmapID, err := s.Mindmap()
	if err != nil {
		return username, ""
	}
	if len(mindmapID) > 8 {
		mindmapID = mindmapID[:8]
	}
	return username, mindmapID
}

// PromptGet gets the current prompt of the session
func (a *CLIAdapter) PromptGet(sessionID string) string {
	username, mindmapID := a.SessionState(sessionID)
	switch {
	case username == "":
		return "> "
	case mindmapID == "":
		return fmt.Sprintf("%s > ", username)
	default:
		return fmt.Sprintf("%s @ %s > ", username, mindmapID)
	}
}
