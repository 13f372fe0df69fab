// Package logging configures logrus and names the categories log lines are
// grouped by in the terminal UI.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// CategoryField is the logrus field holding an entry's Category.
const CategoryField = "category"

// Category groups log entries for colouring.
type Category string

// Log categories.
const (
	Normal     Category = "normal"
	Error      Category = "error"
	Canvas     Category = "canvas"
	Artist     Category = "artist"
	Color      Category = "color"
	Navigation Category = "navigation"
	Playback   Category = "playback"
	Control    Category = "control"
	Connection Category = "connection"
	Display    Category = "display"
	Search     Category = "search"
)

// With returns a logger tagged with c.
func With(c Category) *logrus.Entry {
	return logrus.WithField(CategoryField, c)
}

// CategoryOf reads the category of e. Entries at error level or above are
// always Error; untagged entries are Normal.
func CategoryOf(e *logrus.Entry) Category {
	if e.Level <= logrus.ErrorLevel {
		return Error
	}
	switch v := e.Data[CategoryField].(type) {
	case Category:
		return v
	case string:
		return Category(v)
	}
	return Normal
}

// Options control Setup.
type Options struct {
	Level   logrus.Level
	Output  io.Writer
	LogFile string
}

// Output is where Setup sent the standard logger.
type Output struct {
	file *os.File
}

// Setup configures the standard logger. When LogFile is set, entries are
// also appended to that file until the returned Output is closed.
func Setup(opts Options) (*Output, error) {
	logrus.SetLevel(opts.Level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	o := &Output{}
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		o.file = f
	}
	o.SetConsole(opts.Output)
	return o, nil
}

// SetConsole replaces the console half of the output, keeping the log file.
// A nil w means stderr.
func (o *Output) SetConsole(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	if o.file != nil {
		w = io.MultiWriter(w, o.file)
	}
	logrus.SetOutput(w)
}

// Close closes the log file, if any.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	logrus.SetOutput(os.Stderr)
	return o.file.Close()
}
