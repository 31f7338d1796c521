// Package logview follows the JSON log files written by the logger and
// prints them in a compact colored form.
package logview

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/ui"
)

// Entry is one decoded log line.
type Entry map[string]interface{}

// Viewer tails every *.log file of a directory.
type Viewer struct {
	dir       string
	filter    string
	interval  time.Duration
	out       io.Writer
	useColor  bool
	positions map[string]int64
}

// NewViewer creates a viewer for dir. Lines not containing filter
// (case-insensitive) are skipped; an empty filter shows everything.
func NewViewer(dir, filter string, interval time.Duration, out io.Writer, useColor bool) (*Viewer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("log directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Viewer{
		dir:       dir,
		filter:    strings.ToLower(filter),
		interval:  interval,
		out:       out,
		useColor:  useColor,
		positions: make(map[string]int64),
	}, nil
}

// Follow prints new lines until ctx is cancelled.
func (v *Viewer) Follow(ctx context.Context) error {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()
	for {
		if err := v.Scan(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Scan prints every line appended since the previous scan. A file that
// shrank is read again from the start.
func (v *Viewer) Scan() error {
	files, err := filepath.Glob(filepath.Join(v.dir, "*.log"))
	if err != nil {
		return fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Strings(files)
	for _, path := range files {
		if err := v.scanFile(path); err != nil {
			v.line(ui.ColorRed, err.Error())
		}
	}
	return nil
}

func (v *Viewer) scanFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("error getting file stats for %s: %w", filepath.Base(path), err)
	}
	pos, known := v.positions[path]
	if !known {
		v.line(ui.ColorGreen, "New log file detected: "+filepath.Base(path))
	}
	if stat.Size() < pos {
		v.line(ui.ColorYellow, filepath.Base(path)+" has been truncated, starting from beginning")
		pos = 0
	}
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking in %s: %w", filepath.Base(path), err)
	}

	reader := bufio.NewReader(f)
	for {
		raw, err := reader.ReadString('\n')
		if err == io.EOF {
			// partial line; picked up on the next scan
			break
		}
		if err != nil {
			return fmt.Errorf("error reading %s: %w", filepath.Base(path), err)
		}
		pos += int64(len(raw))

		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			v.line(ui.ColorRed, "Error parsing log entry: "+err.Error())
			continue
		}
		text := v.Format(entry)
		if v.filter == "" || strings.Contains(strings.ToLower(text), v.filter) {
			fmt.Fprintln(v.out, text)
		}
	}
	v.positions[path] = pos
	return nil
}

// Format renders an entry as "time LEVEL msg" followed by one indented
// line per remaining field, sorted by key.
func (v *Viewer) Format(entry Entry) string {
	timestamp, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)

	if t, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		timestamp = t.Format("06-01-02 15:04:05.000000")
	}
	level = strings.ToUpper(level)

	var b strings.Builder
	b.WriteString(v.colorize(timestamp, ui.ColorLightPurple))
	b.WriteString(" ")
	b.WriteString(v.colorize(fmt.Sprintf("%-5s", level), levelColor(level)))
	b.WriteString(" ")
	b.WriteString(msg)

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if k != "time" && k != "level" && k != "msg" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n    %s %v", v.colorize(k+":", ui.ColorLightBlue), entry[k])
	}
	return b.String()
}

func levelColor(level string) ui.Color {
	switch level {
	case "DEBUG":
		return ui.ColorLightBlue
	case "INFO":
		return ui.ColorGreen
	case "WARN":
		return ui.ColorYellow
	case "ERROR":
		return ui.ColorRed
	default:
		return ui.ColorWhite
	}
}

func (v *Viewer) colorize(s string, c ui.Color) string {
	if !v.useColor {
		return s
	}
	return string(c) + s + string(ui.ColorDefault)
}

func (v *Viewer) line(c ui.Color, s string) {
	fmt.Fprintln(v.out, v.colorize(s, c))
}
