// Package bridge turns text commands from a Resonite client into Spotify
// calls and JSON replies.
package bridge

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownCommand is returned for commands the bridge does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrEmptyCommand is returned for blank messages.
	ErrEmptyCommand = errors.New("empty command")
	// ErrBadArgument is returned when a command's data cannot be used.
	ErrBadArgument = errors.New("bad argument")
	// ErrNothingPlaying is returned when a command needs a current track.
	ErrNothingPlaying = errors.New("no current song active")
)

// Command is a parsed client message: the first word and everything after it.
type Command struct {
	Name string
	Data string
}

// ParseCommand splits raw at the first space. Surrounding whitespace is
// dropped and the name is lower-cased.
func ParseCommand(raw string) (Command, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Command{}, ErrEmptyCommand
	}
	name, data, _ := strings.Cut(raw, " ")
	return Command{
		Name: strings.ToLower(name),
		Data: strings.TrimSpace(data),
	}, nil
}

// String renders the command for logs, shortening long data.
func (c Command) String() string {
	if c.Data == "" {
		return c.Name
	}
	data := c.Data
	if r := []rune(data); len(r) > 20 {
		data = string(r[:20]) + "..."
	}
	return c.Name + " " + data
}
