package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/adapter"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/cli"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/config"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/data"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/session"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/storage"
)

type runMode int

const (
	shellMode runMode = iota
	scriptMode
	serveMode
)

// bootstrap loads the configuration, wires logger, storage, data manager and
// session manager, then runs the surface selected by mode until it returns
// or the process receives SIGINT/SIGTERM.
func bootstrap(parent context.Context, mode runMode, scriptPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.ConfigLoad(configPath); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.ConfigGet()

	logger, err := log.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
		}
	}()

	logger.Info(ctx, "Application started", log.Fields{"config": configPath, "mode": mode})

	store, err := storage.NewStorage(cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize storage", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(context.Background(), "Failed to close storage", log.Fields{"error": err})
		}
	}()

	dataManager, err := data.NewDataManager(store, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize data manager", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize data manager: %w", err)
	}
	defer dataManager.EventManager.Wait()

	logger.Info(ctx, "Data manager initialized", nil)

	if mode == serveMode {
		httpAdapter, err := adapter.NewHTTPAdapter(dataManager, logger)
		if err != nil {
			logger.Error(ctx, "Failed to initialize HTTP adapter", log.Fields{"error": err})
			return fmt.Errorf("failed to initialize HTTP adapter: %w", err)
		}
		fmt.Printf("Listening on %s\n", cfg.HTTPAddr)
		if err := httpAdapter.AdapterStart(ctx, cfg.HTTPAddr); err != nil {
			logger.Error(ctx, "HTTP adapter error", log.Fields{"error": err})
			return err
		}
		logger.Info(context.Background(), "Application shutting down", nil)
		return nil
	}

	sessionManager, err := session.NewSessionManager(dataManager, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize session manager", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	defer sessionManager.Stop()

	cliAdapter, err := adapter.NewCLIAdapter(sessionManager, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize CLI adapter", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize CLI adapter: %w", err)
	}
	defer cliAdapter.AdapterStop()

	useColor := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
	cliInstance, err := cli.NewCLI(cliAdapter, os.Stdout, useColor, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize CLI", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize CLI: %w", err)
	}
	defer cliInstance.Close()

	if mode == scriptMode {
		f, err := os.Open(scriptPath)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		return cliInstance.ScriptRun(ctx, f)
	}

	if err := cliInstance.Run(ctx, cfg.HistoryFile); err != nil {
		logger.Error(context.Background(), "CLI error", log.Fields{"error": err})
		return fmt.Errorf("CLI error: %w", err)
	}

	logger.Info(context.Background(), "Application shutting down", nil)
	fmt.Println("Goodbye!")
	return nil
}
