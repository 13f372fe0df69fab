package bridge

import (
	"encoding/json"

	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

// Reply types.
const (
	TypeNowPlaying  = "now_playing"
	TypeStates      = "states"
	TypeAck         = "ack"
	TypeListing     = "listing"
	TypeArtist      = "artist"
	TypeCanvas      = "canvas"
	TypeArtistImage = "artist_image"
	TypeTrackColor  = "track_color"
	TypeError       = "error"
)

// Reply is the JSON envelope sent to clients.
type Reply struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Push    bool   `json:"push,omitempty"`
}

// errorEnvelope always carries the command key, empty or not.
type errorEnvelope struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

// Encode marshals r.
func (r Reply) Encode() ([]byte, error) {
	if r.Type == TypeError {
		return json.Marshal(errorEnvelope{Type: r.Type, Command: r.Command, Error: r.Error})
	}
	return json.Marshal(r)
}

// ErrorReply wraps err for command.
func ErrorReply(command string, err error) Reply {
	return Reply{Type: TypeError, Command: command, Error: err.Error()}
}

// NowPlaying is the payload of now_playing replies and pushes.
type NowPlaying struct {
	IsPlaying  bool           `json:"is_playing"`
	ProgressMs int            `json:"progress_ms"`
	Timestamp  int64          `json:"timestamp,omitempty"`
	Item       *spotify.Track `json:"item"`
	ContextURI string         `json:"context_uri,omitempty"`
	media.Enrichment
	States *spotify.States `json:"states,omitempty"`
}

// NewNowPlaying builds the payload for pb. States are included when
// withStates is set.
func NewNowPlaying(pb *spotify.Playback, e media.Enrichment, withStates bool) NowPlaying {
	if pb == nil {
		return NowPlaying{}
	}
	np := NowPlaying{
		IsPlaying:  pb.IsPlaying,
		ProgressMs: pb.ProgressMs,
		Timestamp:  pb.Timestamp,
		Item:       pb.Item,
		ContextURI: pb.ContextURI,
		Enrichment: e,
	}
	if withStates {
		st := pb.States()
		np.States = &st
	}
	return np
}

// NowPlayingPush is the message broadcast when playback changes.
func NowPlayingPush(pb *spotify.Playback, e media.Enrichment) Reply {
	return Reply{Type: TypeNowPlaying, Data: NewNowPlaying(pb, e, true), Push: true}
}

// StatesReply carries the playback control flags.
func StatesReply(st spotify.States) Reply {
	return Reply{Type: TypeStates, Data: st}
}

// Ack confirms a command that has no other result.
type Ack struct {
	Message string `json:"message"`
}

// MediaResult answers get_canvas_video, get_artist_image and
// get_track_color.
type MediaResult struct {
	Available bool   `json:"available"`
	URL       string `json:"url,omitempty"`
	Color     string `json:"color,omitempty"`
	ANSI      string `json:"ansi,omitempty"`
}
