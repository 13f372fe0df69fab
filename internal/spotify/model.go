package spotify

import "strings"

// Artist is a reference to a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album is a reference to a Spotify album with its largest cover image.
type Album struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Track represents the track object from the Spotify API.
type Track struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	DurationMs int      `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// PrimaryArtist returns the first credited artist, or nil.
func (t *Track) PrimaryArtist() *Artist {
	if t == nil || len(t.Artists) == 0 {
		return nil
	}
	return &t.Artists[0]
}

// ArtistNames joins all artist names with ", ".
func (t *Track) ArtistNames() string {
	if t == nil {
		return ""
	}
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Playback is the player state mirrored from the Spotify API.
// Item is nil when nothing is playing.
type Playback struct {
	IsPlaying     bool   `json:"is_playing"`
	ProgressMs    int    `json:"progress_ms"`
	Timestamp     int64  `json:"timestamp"`
	Item          *Track `json:"item"`
	ContextURI    string `json:"context_uri,omitempty"`
	ShuffleState  bool   `json:"shuffle_state"`
	RepeatState   string `json:"repeat_state"`
	VolumePercent int    `json:"volume_percent"`
	Device        string `json:"device,omitempty"`
}

// States returns the control flags of p.
func (p *Playback) States() States {
	if p == nil {
		return States{RepeatState: RepeatOff}
	}
	repeat := p.RepeatState
	if repeat == "" {
		repeat = RepeatOff
	}
	return States{
		IsPlaying:     p.IsPlaying,
		ShuffleState:  p.ShuffleState,
		RepeatState:   repeat,
		VolumePercent: p.VolumePercent,
		Device:        p.Device,
	}
}

// Repeat modes in the order the player cycles through them.
const (
	RepeatOff     = "off"
	RepeatTrack   = "track"
	RepeatContext = "context"
)

// NextRepeat returns the repeat mode that follows current.
func NextRepeat(current string) string {
	switch current {
	case RepeatTrack:
		return RepeatContext
	case RepeatContext:
		return RepeatOff
	default:
		return RepeatTrack
	}
}

// States are the playback control flags sent to clients.
type States struct {
	IsPlaying     bool   `json:"is_playing"`
	ShuffleState  bool   `json:"shuffle_state"`
	RepeatState   string `json:"repeat_state"`
	VolumePercent int    `json:"volume_percent"`
	Device        string `json:"device,omitempty"`
}

// Entry kinds.
const (
	KindTrack    = "track"
	KindAlbum    = "album"
	KindArtist   = "artist"
	KindPlaylist = "playlist"
)

// Entry is one row of a browse listing.
type Entry struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Subtitle   string `json:"subtitle,omitempty"`
	URI        string `json:"uri"`
	ImageURL   string `json:"image_url,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

// Listing is a page of entries, such as a playlist, an album or search results.
type Listing struct {
	Title   string  `json:"title,omitempty"`
	URI     string  `json:"uri,omitempty"`
	Offset  int     `json:"offset"`
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}

// ArtistPage is the artist overview.
type ArtistPage struct {
	Artist    Entry    `json:"artist"`
	Followers int      `json:"followers"`
	Genres    []string `json:"genres,omitempty"`
	TopTracks []Entry  `json:"top_tracks"`
	Albums    []Entry  `json:"albums"`
}

// Device is a Spotify Connect device.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Active        bool   `json:"active"`
	Restricted    bool   `json:"restricted"`
	VolumePercent int    `json:"volume_percent"`
}
