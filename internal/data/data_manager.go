// Package data provides data management functionality for RiverFlow.
// It coordinates operations between the user, mindmap and history managers.
package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/event"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

// DataManager is the main struct that coordinates all data operations
type DataManager struct {
	UserManager    *UserManager
	MindmapManager *MindmapManager
	HistoryManager *HistoryManager
	EventManager   *event.EventManager
	Config         *model.Config
	Logger         *log.Logger
}

// NewDataManager creates a new DataManager over store and ensures the
// configured default user exists.
func NewDataManager(store Store, cfg *model.Config, logger *log.Logger) (*DataManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}

	eventManager := event.NewEventManager(logger)
	m := &DataManager{
		EventManager: eventManager,
		Config:       cfg,
		Logger:       logger,
	}

	var err error
	m.HistoryManager, err = NewHistoryManager(store, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HistoryManager: %w", err)
	}

	m.MindmapManager, err = NewMindmapManager(store, m.HistoryManager, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create MindmapManager: %w", err)
	}

	m.UserManager, err = NewUserManager(store, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create UserManager: %w", err)
	}

	if cfg.DefaultUserActive && cfg.DefaultUser != "" {
		if err := m.defaultUserEnsure(context.Background()); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *DataManager) defaultUserEnsure(ctx context.Context) error {
	_, err := m.UserManager.UserGet(ctx, m.Config.DefaultUser)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to check default user existence: %w", err)
	}

	_, err = m.UserManager.UserAdd(ctx, model.UserInfo{
		Username: m.Config.DefaultUser,
		Password: m.Config.DefaultUserPassword,
		Active:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to create default user: %w", err)
	}
	m.Logger.Info(ctx, "Default user created", log.Fields{"username": m.Config.DefaultUser})
	return nil
}
