// Package config provides functionality for loading, saving, and managing
// application configuration settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "./data/config.json"

var (
	mu            sync.RWMutex
	currentConfig *model.Config
	configPath    = DefaultPath
	validate      = validator.New()
)

// ConfigDefault returns the configuration written on first start.
func ConfigDefault() *model.Config {
	return &model.Config{
		DatabaseType:        "sqlite",
		DatabaseDir:         "./data",
		DatabaseFile:        "riverflow.db",
		LogFolder:           "./logs",
		LogLevel:            "info",
		CommandLog:          "commands.log",
		ErrorLog:            "errors.log",
		InfoLog:             "info.log",
		HistoryFile:         "./data/.riverflow_history",
		HTTPAddr:            "127.0.0.1:8080",
		MetricsEnabled:      true,
		DefaultUser:         "guest",
		DefaultUserActive:   true,
		DefaultUserPassword: "",
	}
}

// ConfigLoad loads the configuration from the JSON file at path.
// If the file doesn't exist, it is created with the default configuration.
func ConfigLoad(path string) error {
	if path == "" {
		path = DefaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := ConfigDefault()
		if err := configWrite(path, cfg); err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
		setCurrent(path, cfg)
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// Missing keys keep their default values.
	cfg := ConfigDefault()
	if err := json.Unmarshal(file, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	setCurrent(path, cfg)
	return nil
}

// ConfigSave saves the provided configuration to the current config file.
func ConfigSave(cfg *model.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mu.RLock()
	path := configPath
	mu.RUnlock()

	if err := configWrite(path, cfg); err != nil {
		return err
	}
	setCurrent(path, cfg)
	return nil
}

// ConfigGet returns the current configuration.
func ConfigGet() *model.Config {
	mu.RLock()
	defer mu.RUnlock()
	return currentConfig
}

// DatabasePath joins the database directory and file name.
func DatabasePath(cfg *model.Config) string {
	return filepath.Join(cfg.DatabaseDir, cfg.DatabaseFile)
}

func configWrite(path string, cfg *model.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func setCurrent(path string, cfg *model.Config) {
	mu.Lock()
	defer mu.Unlock()
	configPath = path
	currentConfig = cfg
}
