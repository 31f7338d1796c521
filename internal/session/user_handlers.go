package session

import (
	"context"
	"fmt"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// handleUserAdd handles: user add <username> [password]
func handleUserAdd(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 2, "user add <username> [password]"); err != nil {
		return nil, err
	}
	info := model.UserInfo{Username: cmd.Args[0], Active: true}
	if len(cmd.Args) == 2 {
		info.Password = cmd.Args[1]
	}

	user, err := sm.dataManager.UserManager.UserAdd(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to add user: %w", err)
	}
	sm.logger.Info(ctx, "User added from session", log.Fields{"sessionID": s.ID, "username": user.Username})
	return user, nil
}

// handleUserSelect handles: user select <username> [password]
func handleUserSelect(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 2, "user select <username> [password]"); err != nil {
		return nil, err
	}
	username := cmd.Args[0]
	password := ""
	if len(cmd.Args) == 2 {
		password = cmd.Args[1]
	}

	userID, err := sm.dataManager.UserManager.UserResolve(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	s.UserSet(userID, username)
	sm.logger.Info(ctx, "User selected", log.Fields{"sessionID": s.ID, "username": username})
	return username, nil
}

// handleUserList handles: user list
func handleUserList(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 0, "user list"); err != nil {
		return nil, err
	}
	users, err := sm.dataManager.UserManager.UserList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
