// Package data provides data management functionality for RiverFlow.
// This file contains the local user accounts that back the identity resolver.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/event"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

// ErrInvalidCredentials is returned when a username and password do not resolve to an active user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// IdentityResolver turns credentials into the stable user id used as actor id.
type IdentityResolver interface {
	UserResolve(ctx context.Context, username, password string) (string, error)
}

// UserManager handles local user accounts.
type UserManager struct {
	userStore    storage.UserStore
	eventManager *event.EventManager
	logger       *log.Logger
}

// NewUserManager creates a new UserManager instance.
func NewUserManager(userStore storage.UserStore, eventManager *event.EventManager, logger *log.Logger) (*UserManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if userStore == nil {
		logger.Error(context.Background(), "UserStore not initialized", nil)
		return nil, fmt.Errorf("userStore not initialized")
	}
	if eventManager == nil {
		logger.Error(context.Background(), "EventManager not initialized", nil)
		return nil, fmt.Errorf("eventManager not initialized")
	}
	return &UserManager{
		userStore:    userStore,
		eventManager: eventManager,
		logger:       logger,
	}, nil
}

// UserAdd creates a user with a bcrypt hash of the password. An empty
// password is allowed and stores no hash.
func (um *UserManager) UserAdd(ctx context.Context, info model.UserInfo) (*model.User, error) {
	um.logger.Info(ctx, "Adding new user", log.Fields{"username": info.Username})

	if err := validateStruct(info); err != nil {
		return nil, err
	}

	var hash []byte
	if info.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(info.Password), bcrypt.DefaultCost)
		if err != nil {
			um.logger.Error(ctx, "Failed to hash password", log.Fields{"error": err})
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     info.Username,
		PasswordHash: hash,
		Active:       info.Active,
		Created:      now,
		Updated:      now,
	}
	if err := um.userStore.UserAdd(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: user '%s' already exists", ErrInvalidInput, info.Username)
		}
		return nil, fmt.Errorf("failed to add user: %w", err)
	}

	um.eventManager.Publish(event.Event{Type: event.UserAdded, Data: user.ID})
	return user, nil
}

// UserGet returns the user with the given username.
func (um *UserManager) UserGet(ctx context.Context, username string) (*model.User, error) {
	users, err := um.userStore.UserGet(ctx, model.UserInfo{Username: username}, model.UserFilter{Username: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user '%s': %w", username, storage.ErrNotFound)
	}
	return users[0], nil
}

// UserList returns all users ordered by username.
func (um *UserManager) UserList(ctx context.Context) ([]*model.User, error) {
	users, err := um.userStore.UserGet(ctx, model.UserInfo{}, model.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UserResolve checks the password of an active user and returns its id.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (um *UserManager) UserResolve(ctx context.Context, username, password string) (string, error) {
	user, err := um.UserGet(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			um.logger.Warn(ctx, "Authentication failed", log.Fields{"username": username, "reason": "unknown user"})
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !user.Active {
		um.logger.Warn(ctx, "Authentication failed", log.Fields{"username": username, "reason": "inactive"})
		return "", ErrInvalidCredentials
	}

	if len(user.PasswordHash) == 0 {
		if password != "" {
			return "", ErrInvalidCredentials
		}
		return user.ID, nil
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		um.logger.Warn(ctx, "Authentication failed", log.Fields{"username": username, "reason": "password mismatch"})
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}
