// Package ui renders command results of the RiverFlow shell.
package ui

import (
	"fmt"
	"io"
	"strings"
)

// UI writes plain or colored text to a writer.
type UI struct {
	writer   io.Writer
	useColor bool
}

func NewUI(w io.Writer, useColor bool) *UI {
	return &UI{writer: w, useColor: useColor}
}

func (u *UI) colorize(message string, color Color) string {
	if !u.useColor || color == ColorDefault {
		return message
	}
	return fmt.Sprintf("%s%s%s", color, message, ColorDefault)
}

func (u *UI) Print(message string) {
	fmt.Fprint(u.writer, message)
}

func (u *UI) Printf(format string, args ...interface{}) {
	fmt.Fprintf(u.writer, format, args...)
}

func (u *UI) Println(message string) {
	fmt.Fprintln(u.writer, message)
}

func (u *UI) PrintColored(message string, color Color) {
	fmt.Fprint(u.writer, u.colorize(message, color))
}

func (u *UI) PrintlnColored(message string, color Color) {
	fmt.Fprintln(u.writer, u.colorize(message, color))
}

func (u *UI) Error(message string) {
	u.Print(u.colorize("!", ColorRed) + " " + u.colorize(message, ColorLightOrange) + "\n")
}

func (u *UI) Success(message string) {
	u.PrintlnColored(message, ColorLightGreen)
}

func (u *UI) Warning(message string) {
	u.Print(u.colorize("?", ColorLightRed) + " " + u.colorize(message, ColorLightYellow) + "\n")
}

func (u *UI) Info(message string) {
	u.PrintlnColored(message, ColorGray)
}

// PromptString builds "user @ mindmap > " with the parts that are set.
func (u *UI) PromptString(user, mindmap string) string {
	var b strings.Builder
	if user != "" {
		b.WriteString(u.colorize(user, ColorLightBlue))
		if mindmap != "" {
			b.WriteString(u.colorize(" @ ", ColorWhite))
			b.WriteString(u.colorize(mindmap, ColorLightPurple))
		}
		b.WriteString(" ")
	}
	b.WriteString(u.colorize("> ", ColorGreen))
	return b.String()
}

// PrintMarkup prints a line containing {{color}} tags; each tag colors the
// text up to the next tag.
func (u *UI) PrintMarkup(line string) {
	var b strings.Builder
	color := ColorDefault
	for len(line) > 0 {
		start := strings.Index(line, "{{")
		end := strings.Index(line, "}}")
		if start == -1 || end < start {
			b.WriteString(u.colorize(line, color))
			break
		}
		b.WriteString(u.colorize(line[:start], color))
		c, ok := markupColors[line[start:end+2]]
		if !ok {
			c = ColorDefault
		}
		color = c
		line = line[end+2:]
	}
	u.Println(b.String())
}
