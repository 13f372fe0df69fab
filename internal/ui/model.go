package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"resonite-spotify/internal/logging"
	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

const (
	frameInterval = 40 * time.Millisecond
	recolorWait   = 10 * time.Second
)

// --- Messages ---

type tickMsg time.Time

type logMsg logEntry

type playbackMsg struct {
	pb     *spotify.Playback
	extras media.Enrichment
	at     time.Time
}

type connMsg struct {
	id        string
	connected bool
}

type colorMsg struct {
	color media.ANSIColor
}

type logEntry struct {
	at       time.Time
	category logging.Category
	text     string
	frame    int
}

func (l logEntry) line() string {
	return "[" + l.at.Format("15:04:05") + "] " + l.text
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	width, height int
	now           time.Time
	spinner       spinner.Model
	clients       []string
	logs          []logEntry

	pb           *spotify.Playback
	extras       media.Enrichment
	receivedAt   time.Time
	noTrackSince time.Time

	prevText      string
	carouselFrame int

	border  media.ANSIColor
	colors  ColorSource
	refresh func()
}

func newModel(colors ColorSource, refresh func(), now time.Time) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ansi(media.Red))

	if refresh == nil {
		refresh = func() {}
	}
	return model{
		now:           now,
		spinner:       s,
		logs:          make([]logEntry, 0, maxLogEntries),
		noTrackSince:  now,
		carouselFrame: carouselFrames,
		border:        media.White,
		colors:        colors,
		refresh:       refresh,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		if m.carouselFrame < carouselFrames {
			m.carouselFrame++
		}
		for i := range m.logs {
			if m.logs[i].frame < logSlideFrames {
				m.logs[i].frame++
			}
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logMsg:
		m.logs = append(m.logs, logEntry(msg))
		if len(m.logs) > maxLogEntries {
			m.logs = m.logs[len(m.logs)-maxLogEntries:]
		}
		return m, nil

	case connMsg:
		m.clients = removeID(m.clients, msg.id)
		if msg.connected {
			m.clients = append(m.clients, msg.id)
		}
		return m, nil

	case playbackMsg:
		m.setPlayback(msg)
		return m, nil

	case colorMsg:
		m.border = msg.color
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.refresh()
		return m, tea.ClearScreen
	case "1", "2", "3", "4", "5", "6", "7":
		m.border = media.ANSIColor(key[0] - '0')
		logging.With(logging.Display).Infof("Border colour set to %s", m.border)
	case "c":
		m.border = m.border%media.White + 1
		logging.With(logging.Display).Infof("Border colour set to %s", m.border)
	case "f":
		return m, m.recolor()
	}
	return m, nil
}

// recolor extracts the border colour from the current album art again.
func (m model) recolor() tea.Cmd {
	if m.colors == nil || m.pb == nil || m.pb.Item == nil || m.pb.Item.Album.ImageURL == "" {
		logging.With(logging.Color).Info("No album art to take a colour from")
		return nil
	}
	colors, url := m.colors, m.pb.Item.Album.ImageURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), recolorWait)
		defer cancel()
		rgb, err := colors.DominantColor(ctx, url)
		if err != nil {
			logging.With(logging.Color).WithError(err).Warn("Colour extraction failed")
			return nil
		}
		c := media.NearestANSI(rgb)
		logging.With(logging.Color).Infof("Track color: %s (%s)", rgb.Hex(), c)
		return colorMsg{color: c}
	}
}

func (m *model) setPlayback(msg playbackMsg) {
	if trackID(m.pb) != trackID(msg.pb) {
		m.prevText = m.nowText()
		m.carouselFrame = 0
		if c, ok := media.ParseANSI(msg.extras.ANSI); ok {
			m.border = c
		}
		if msg.pb == nil || msg.pb.Item == nil {
			m.noTrackSince = msg.at
		}
	}
	m.pb, m.extras, m.receivedAt = msg.pb, msg.extras, msg.at
}

func trackID(pb *spotify.Playback) string {
	if pb == nil || pb.Item == nil {
		return ""
	}
	return pb.Item.ID
}

// nowText is the first row of the now playing panel.
func (m model) nowText() string {
	if m.pb == nil || m.pb.Item == nil {
		if m.now.Sub(m.noTrackSince) < noTrackBlank {
			return ""
		}
		return pauseIcon + " " + waitingText
	}
	return trackText(m.pb)
}

func (m model) progress() int {
	if m.pb == nil || m.pb.Item == nil {
		return 0
	}
	return interpolate(m.pb.ProgressMs, m.pb.Item.DurationMs, m.pb.IsPlaying, m.now.Sub(m.receivedAt))
}

func (m model) View() string {
	if m.width <= 2 || m.height <= 0 {
		return ""
	}
	inner := m.width - 2
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ansi(m.border)).
		Width(inner)

	status := box.Render(m.statusLine(inner))
	playing := box.Render(m.nowPlaying(inner))
	logHeight := max(m.height-lipgloss.Height(status)-lipgloss.Height(playing)-2, 1)
	logs := box.Height(logHeight).Render(m.logLines(inner, logHeight))

	return lipgloss.JoinVertical(lipgloss.Left, status, logs, playing)
}

func (m model) statusLine(width int) string {
	left := lipgloss.NewStyle().Bold(true).Foreground(ansi(m.border)).Render(appName)
	right := lipgloss.NewStyle().Foreground(ansi(m.border)).Render(m.now.Format("15:04:05"))

	var mid string
	if n := len(m.clients); n > 0 {
		mid = lipgloss.NewStyle().Bold(true).Foreground(ansi(media.Green)).
			Render("Client " + shortID(m.clients[n-1]) + ": ● CONNECTED")
	} else {
		mid = m.spinner.View() + lipgloss.NewStyle().Faint(true).Foreground(ansi(media.Red)).
			Render(" Websocket: ○ DISCONNECTED")
	}
	return spread(width, left, mid, right)
}

func (m model) logLines(width, height int) string {
	logs := m.logs
	if len(logs) > height {
		logs = logs[len(logs)-height:]
	}
	lines := make([]string, len(logs))
	for i, l := range logs {
		lines[i] = styleFor(l.category).Render(slideIn(truncate(l.line(), width), l.frame))
	}
	return strings.Join(lines, "\n")
}

func (m model) nowPlaying(width int) string {
	text := m.nowText()
	first := center(truncate(text, width), width)
	if m.carouselFrame < carouselFrames && m.prevText != "" {
		first = carousel(m.prevText, text, width, m.carouselFrame)
	}

	var second string
	if m.pb != nil && m.pb.Item != nil {
		second = progressLine(m.progress(), m.pb.Item.DurationMs, width)
	}
	style := lipgloss.NewStyle().Foreground(ansi(m.border))
	return style.Render(first) + "\n" + style.Render(second)
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
