// Package log provides structured logging of commands, errors and
// operational messages on top of log/slog.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// Fields are the structured attributes attached to a log message.
type Fields map[string]interface{}

type logMessage struct {
	level  LogLevel
	msg    string
	fields Fields
	ctx    context.Context
}

// Logger writes commands to the command log, errors to the error log and
// everything at or above the configured level to the info log.
type Logger struct {
	commandLogger *slog.Logger
	errorLogger   *slog.Logger
	infoLogger    *slog.Logger
	files         []*os.File
	level         LogLevel
	logChan       chan logMessage
	done          chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewLogger opens the log files named in cfg inside cfg.LogFolder.
func NewLogger(cfg *model.Config) (*Logger, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.LogFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	var files []*os.File
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(cfg.LogFolder, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		files = append(files, f)
		return f, nil
	}

	commandFile, err := open(cfg.CommandLog)
	if err != nil {
		return nil, err
	}
	errorFile, err := open(cfg.ErrorLog)
	if err != nil {
		return nil, err
	}
	infoFile, err := open(cfg.InfoLog)
	if err != nil {
		return nil, err
	}

	l := newLogger(commandFile, errorFile, infoFile, level)
	l.files = files
	return l, nil
}

// NewWriterLogger sends all three logs to w. Used by tests and by the
// serve command when logging to stderr.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	return newLogger(w, w, w, level)
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

func newLogger(commandW, errorW, infoW io.Writer, level LogLevel) *Logger {
	l := &Logger{
		commandLogger: slog.New(slog.NewJSONHandler(commandW, &slog.HandlerOptions{Level: slog.LevelInfo})),
		errorLogger:   slog.New(slog.NewJSONHandler(errorW, &slog.HandlerOptions{Level: slog.LevelError})),
		infoLogger:    slog.New(slog.NewJSONHandler(infoW, &slog.HandlerOptions{Level: level.toSlogLevel()})),
		level:         level,
		logChan:       make(chan logMessage, 100),
		done:          make(chan struct{}),
	}
	l.wg.Add(1)
	go l.processLogs()
	return l
}

func (l *Logger) processLogs() {
	defer l.wg.Done()
	for {
		select {
		case m := <-l.logChan:
			l.write(m)
		case <-l.done:
			// drain what was queued before Close
			for {
				select {
				case m := <-l.logChan:
					l.write(m)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(m logMessage) {
	attrs := make([]any, 0, len(m.fields)*2)
	for k, v := range m.fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, k, v)
	}

	switch m.level {
	case LevelCommand:
		l.commandLogger.InfoContext(m.ctx, m.msg, attrs...)
	case LevelError:
		l.errorLogger.ErrorContext(m.ctx, m.msg, attrs...)
		l.infoLogger.ErrorContext(m.ctx, m.msg, attrs...)
	case LevelWarn:
		l.infoLogger.WarnContext(m.ctx, m.msg, attrs...)
	case LevelInfo:
		l.infoLogger.InfoContext(m.ctx, m.msg, attrs...)
	case LevelDebug:
		l.infoLogger.DebugContext(m.ctx, m.msg, attrs...)
	}
}

func (l *Logger) log(ctx context.Context, level LogLevel, msg string, fields Fields) {
	if l == nil {
		return
	}
	if level != LevelCommand && level > l.level {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-l.done:
	case l.logChan <- logMessage{level: level, msg: msg, fields: fields, ctx: ctx}:
	}
}

// Command records a command entered by a user.
func (l *Logger) Command(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelCommand, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelDebug, msg, fields)
}

// Close flushes queued messages and closes the log files.
func (l *Logger) Close() error {
	var firstErr error
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		for _, f := range l.files {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to close log file: %w", err)
			}
		}
	})
	return firstErr
}
