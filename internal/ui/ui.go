// Package ui renders the terminal dashboard: connection status, a log
// window and the now playing panel.
package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/logging"
	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

const eventBuffer = 256

// ColorSource extracts the dominant colour of an image.
type ColorSource interface {
	DominantColor(ctx context.Context, imageURL string) (media.RGB, error)
}

// Options configure the UI. Both fields may be nil.
type Options struct {
	Colors ColorSource
	// Refresh is called when the user asks for a redraw.
	Refresh func()
}

// UI is the terminal dashboard. It receives connection events, playback
// updates and log entries from other goroutines.
type UI struct {
	opts   Options
	events chan tea.Msg
	done   chan struct{}
}

// New creates a UI. Events sent before Run are queued.
func New(opts Options) *UI {
	return &UI{
		opts:   opts,
		events: make(chan tea.Msg, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	defer close(u.done)

	p := tea.NewProgram(
		newModel(u.opts.Colors, u.opts.Refresh, time.Now()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	go u.forward(p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (u *UI) forward(p *tea.Program) {
	for {
		select {
		case msg := <-u.events:
			p.Send(msg)
		case <-u.done:
			return
		}
	}
}

func (u *UI) send(msg tea.Msg) {
	select {
	case u.events <- msg:
	case <-u.done:
	}
}

// ClientConnected implements websocket.Observer.
func (u *UI) ClientConnected(id string) {
	u.send(connMsg{id: id, connected: true})
}

// ClientDisconnected implements websocket.Observer.
func (u *UI) ClientDisconnected(id string) {
	u.send(connMsg{id: id})
}

// PlaybackUpdated implements websocket.Listener.
func (u *UI) PlaybackUpdated(pb *spotify.Playback, e media.Enrichment) {
	u.send(playbackMsg{pb: pb, extras: e, at: time.Now()})
}

// Hook returns a logrus hook that copies entries into the log window.
func (u *UI) Hook() logrus.Hook {
	return &hook{events: u.events}
}

// hook never blocks the logger: entries that do not fit in the buffer are
// dropped.
type hook struct {
	events chan<- tea.Msg
}

func (h *hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *hook) Fire(e *logrus.Entry) error {
	select {
	case h.events <- logMsg(newLogEntry(e)):
	default:
	}
	return nil
}

func newLogEntry(e *logrus.Entry) logEntry {
	text := e.Message
	if err, ok := e.Data[logrus.ErrorKey].(error); ok {
		text += ": " + err.Error()
	}
	return logEntry{at: e.Time, category: logging.CategoryOf(e), text: text}
}
