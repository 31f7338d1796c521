package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// UserStore defines the interface for user-related storage operations.
type UserStore interface {
	UserAdd(ctx context.Context, user *model.User) error
	UserGet(ctx context.Context, userInfo model.UserInfo, userFilter model.UserFilter) ([]*model.User, error)
}

// UserStorage implements the UserStore interface.
type UserStorage struct {
	q      queryer
	logger *log.Logger
}

// UserAdd inserts a new user. Usernames are unique.
func (s *UserStorage) UserAdd(ctx context.Context, user *model.User) error {
	s.logger.Info(ctx, "Adding new user", log.Fields{"username": user.Username})

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, active, created, updated) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.PasswordHash, user.Active, user.Created.UnixNano(), user.Updated.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Warn(ctx, "User already exists", log.Fields{"username": user.Username})
			return fmt.Errorf("user '%s': %w", user.Username, ErrAlreadyExists)
		}
		s.logger.Error(ctx, "Failed to add user", log.Fields{"error": err, "username": user.Username})
		return fmt.Errorf("failed to add user: %w", err)
	}
	return nil
}

// UserGet retrieves users based on the provided info and filter.
func (s *UserStorage) UserGet(ctx context.Context, userInfo model.UserInfo, userFilter model.UserFilter) ([]*model.User, error) {
	query := "SELECT id, username, password_hash, active, created, updated FROM users WHERE 1=1"
	var args []interface{}

	if userFilter.ID {
		query += " AND id = ?"
		args = append(args, userInfo.ID)
	}
	if userFilter.Username {
		query += " AND username = ?"
		args = append(args, userInfo.Username)
	}
	if userFilter.Active {
		query += " AND active = ?"
		args = append(args, userInfo.Active)
	}
	query += " ORDER BY username"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error(ctx, "Failed to query users", log.Fields{"error": err})
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var (
			u                model.User
			created, updated int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.Created = time.Unix(0, created).UTC()
		u.Updated = time.Unix(0, updated).UTC()
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
