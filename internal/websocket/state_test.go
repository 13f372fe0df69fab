package websocket

import (
	"testing"

	"resonite-spotify/internal/spotify"
)

func TestHasStateChanged(t *testing.T) {
	a := &spotify.Track{ID: "a"}
	b := &spotify.Track{ID: "b"}
	base := spotify.Playback{IsPlaying: true, Item: a, RepeatState: spotify.RepeatOff, VolumePercent: 50}

	with := func(f func(*spotify.Playback)) *spotify.Playback {
		pb := base
		f(&pb)
		return &pb
	}

	tests := []struct {
		name      string
		prev, cur *spotify.Playback
		changed   bool
		track     bool
	}{
		{"first poll", nil, &base, true, true},
		{"same", &base, with(func(*spotify.Playback) {}), false, false},
		{"progress only", &base, with(func(p *spotify.Playback) { p.ProgressMs = 9000 }), false, false},
		{"new track", &base, with(func(p *spotify.Playback) { p.Item = b }), true, true},
		{"stopped", &base, with(func(p *spotify.Playback) { p.Item = nil }), true, true},
		{"paused", &base, with(func(p *spotify.Playback) { p.IsPlaying = false }), true, false},
		{"shuffle", &base, with(func(p *spotify.Playback) { p.ShuffleState = true }), true, false},
		{"repeat", &base, with(func(p *spotify.Playback) { p.RepeatState = spotify.RepeatTrack }), true, false},
		{"volume", &base, with(func(p *spotify.Playback) { p.VolumePercent = 51 }), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasStateChanged(tt.prev, tt.cur); got != tt.changed {
				t.Errorf("hasStateChanged() = %v, want %v", got, tt.changed)
			}
			if got := trackChanged(tt.prev, tt.cur); got != tt.track {
				t.Errorf("trackChanged() = %v, want %v", got, tt.track)
			}
		})
	}
}
