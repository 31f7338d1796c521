// Package cli provides the interactive shell and the script runner of RiverFlow.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/adapter"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/data"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/ui"
)

var errExit = errors.New("exit requested")

// CLI represents the command-line interface
type CLI struct {
	adapter   *adapter.CLIAdapter
	sessionID string
	UI        *ui.UI
	rl        *readline.Instance
	logger    *log.Logger
}

// NewCLI opens a session through the adapter. Output goes to w.
func NewCLI(a *adapter.CLIAdapter, w io.Writer, useColor bool, logger *log.Logger) (*CLI, error) {
	if a == nil {
		return nil, fmt.Errorf("cli adapter not initialized")
	}
	sessionID, err := a.SessionAdd()
	if err != nil {
		return nil, fmt.Errorf("failed to add cli session: %w", err)
	}
	return &CLI{
		adapter:   a,
		sessionID: sessionID,
		UI:        ui.NewUI(w, useColor),
		logger:    logger,
	}, nil
}

// Close ends the CLI session.
func (c *CLI) Close() {
	c.adapter.SessionDelete(c.sessionID)
}

// Run reads commands interactively until exit, EOF or ctx cancellation.
func (c *CLI) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	c.rl = rl
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	c.UI.Println("Welcome to RiverFlow!")
	c.UI.Info("Type 'help' for a list of commands or 'exit' to quit.")

	for {
		rl.SetPrompt(c.prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			c.UI.Info("Use 'exit' or 'quit' to exit the program.")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if err := c.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			c.report(err)
		}
	}
}

// ScriptRun executes one command per line. Blank lines and lines starting
// with # are skipped. The first failing command stops the script; nothing
// to undo or redo does not count as a failure.
func (c *CLI) ScriptRun(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.UI.PrintlnColored(c.prompt()+line, ui.ColorWhite)

		err := c.Execute(ctx, line)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			c.report(err)
			if !data.IsNoop(err) {
				c.logger.Error(ctx, "Script command failed", log.Fields{"line": lineNo, "command": line, "error": err})
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

// Execute runs a single input line and prints its result.
func (c *CLI) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	cmd, err := adapter.CommandParse(line)
	if err != nil {
		return err
	}

	switch {
	case cmd.Scope == "exit" || cmd.Scope == "quit":
		return errExit
	case cmd.Scope == "system" && (cmd.Operation == "exit" || cmd.Operation == "quit"):
		return errExit
	case cmd.Scope == "help":
		words := cmd.Args
		if cmd.Operation != "" {
			words = append([]string{cmd.Operation}, words...)
		}
		return c.HandleHelp(words)
	}

	if cmd.Scope == "user" && (cmd.Operation == "add" || cmd.Operation == "select") && len(cmd.Args) == 1 && c.rl != nil {
		password, err := c.rl.ReadPassword("Password (empty for none): ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if len(password) > 0 {
			cmd.Args = append(cmd.Args, string(password))
		}
	}

	result, err := c.adapter.CommandRun(ctx, c.sessionID, cmd)
	if err != nil {
		return err
	}
	c.resultPrint(result)
	return nil
}

func (c *CLI) report(err error) {
	if data.IsNoop(err) {
		c.UI.Warning(err.Error())
		return
	}
	c.UI.Error(err.Error())
}

func (c *CLI) prompt() string {
	user, mindmap := c.adapter.SessionState(c.sessionID)
	return c.UI.PromptString(user, mindmap)
}

// resultPrint renders a command result by type.
func (c *CLI) resultPrint(result interface{}) {
	switch r := result.(type) {
	case nil:
	case *model.MindmapView:
		c.UI.MindmapView(r)
	case *model.Mindmap:
		c.UI.Success(fmt.Sprintf("Selected mindmap %s (%s)", r.Title, r.ID))
	case []*model.Mindmap:
		c.UI.MindmapList(r)
	case []*model.HistoryEntry:
		c.UI.HistoryList(r)
	case []*model.User:
		c.UI.UserList(r)
	case *model.User:
		c.UI.Success("User created: " + r.Username)
	case model.HistoryStatus:
		c.UI.Info(fmt.Sprintf("undo: %t  redo: %t", r.CanUndo, r.CanRedo))
	case string:
		c.UI.Success(r)
	default:
		c.UI.Printf("%v\n", r)
	}
}
