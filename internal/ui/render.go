package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"resonite-spotify/internal/logging"
	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

const (
	appName     = "Resonite Spotify"
	waitingText = "Nothing is playing - Waiting for Spotify data..."

	playIcon        = "▶"
	pauseIcon       = "⏸"
	shuffleIcon     = "🔀"
	repeatTrackIcon = "🔂"
	repeatIcon      = "🔁"
	filledBlock     = "▰"
	emptyBlock      = "▱"

	carouselFrames    = 20
	logSlideFrames    = 8
	maxLogEntries     = 100
	compactWidth      = 80
	maxProgressBlocks = 50
	noTrackBlank      = 10 * time.Second
)

var categoryStyles = map[logging.Category]lipgloss.Style{
	logging.Error:      lipgloss.NewStyle().Foreground(ansi(media.Red)).Bold(true),
	logging.Canvas:     lipgloss.NewStyle().Foreground(ansi(media.Magenta)).Bold(true),
	logging.Artist:     lipgloss.NewStyle().Foreground(ansi(media.Blue)).Bold(true),
	logging.Color:      lipgloss.NewStyle().Foreground(ansi(media.Yellow)).Bold(true),
	logging.Navigation: lipgloss.NewStyle().Foreground(ansi(media.Cyan)).Bold(true),
	logging.Playback:   lipgloss.NewStyle().Foreground(ansi(media.Green)).Bold(true),
	logging.Control:    lipgloss.NewStyle().Foreground(ansi(media.Green)),
	logging.Connection: lipgloss.NewStyle().Foreground(ansi(media.Yellow)).Bold(true).Underline(true),
	logging.Display:    lipgloss.NewStyle().Foreground(ansi(media.Yellow)),
	logging.Search:     lipgloss.NewStyle().Foreground(ansi(media.Magenta)),
}

func styleFor(c logging.Category) lipgloss.Style {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func ansi(c media.ANSIColor) lipgloss.Color {
	return lipgloss.Color(strconv.Itoa(int(c)))
}

// formatClock renders milliseconds as MM:SS.
func formatClock(ms int) string {
	if ms <= 0 {
		return "00:00"
	}
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}

func progressBar(progress, duration, blocks int) string {
	if blocks <= 0 {
		return ""
	}
	filled := 0
	if duration > 0 && progress > 0 {
		filled = min(progress*blocks/duration, blocks)
	}
	return strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, blocks-filled)
}

// progressLine is the second row of the now playing panel.
func progressLine(progress, duration, width int) string {
	cur, total := formatClock(progress), formatClock(duration)
	if width < compactWidth {
		return center(cur+" / "+total, width)
	}
	blocks := min(width-len(cur)-len(total)-4, maxProgressBlocks)
	return center(cur+" "+progressBar(progress, duration, blocks)+" "+total, width)
}

func statusIcons(playing, shuffle bool, repeat string) string {
	icons := pauseIcon
	if playing {
		icons = playIcon
	}
	if shuffle {
		icons += shuffleIcon
	}
	switch repeat {
	case spotify.RepeatTrack:
		icons += repeatTrackIcon
	case spotify.RepeatContext:
		icons += repeatIcon
	}
	return icons
}

func trackText(pb *spotify.Playback) string {
	artist := "-"
	if a := pb.Item.PrimaryArtist(); a != nil {
		artist = a.Name
	}
	return statusIcons(pb.IsPlaying, pb.ShuffleState, pb.RepeatState) + " " + pb.Item.Name + " - " + artist
}

func center(s string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}

// carousel draws frame of the track change animation: old slides from the
// centre out to the left while cur slides in from the right edge.
func carousel(old, cur string, width, frame int) string {
	if width <= 0 {
		return ""
	}
	line := []rune(strings.Repeat(" ", width))
	o, n := []rune(truncate(old, width)), []rune(truncate(cur, width))
	p := float64(min(frame, carouselFrames)) / carouselFrames

	mid := width / 2
	oldFrom, oldTo := mid-len(o)/2, -len(o)
	newFrom, newTo := width, mid-len(n)/2

	put(line, o, oldFrom+int(p*float64(oldTo-oldFrom)))
	put(line, n, newFrom+int(p*float64(newTo-newFrom)))
	return string(line)
}

func put(line, text []rune, at int) {
	for i, r := range text {
		if x := at + i; x >= 0 && x < len(line) {
			line[x] = r
		}
	}
}

// slideIn shows the tail of text growing from the left edge, fast at first.
func slideIn(text string, frame int) string {
	if frame >= logSlideFrames {
		return text
	}
	r := []rune(text)
	p := math.Pow(float64(frame)/logSlideFrames, 0.15)
	shown := int(float64(len(r)) * p)
	return string(r[len(r)-shown:])
}

// interpolate advances progress by the time since the last poll while
// playing.
func interpolate(progress, duration int, playing bool, since time.Duration) int {
	if playing && since > 0 {
		progress += int(since.Milliseconds())
	}
	if duration > 0 && progress > duration {
		progress = duration
	}
	return progress
}

// spread lays left, mid and right out on one line of width cells with mid
// centred.
func spread(width int, left, mid, right string) string {
	lw, mw, rw := lipgloss.Width(left), lipgloss.Width(mid), lipgloss.Width(right)
	lgap := max((width-mw)/2-lw, 1)
	rgap := max(width-lw-lgap-mw-rw, 1)
	return left + strings.Repeat(" ", lgap) + mid + strings.Repeat(" ", rgap) + right
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
