package websocket

import "resonite-spotify/internal/spotify"

// hasStateChanged reports whether cur differs from prev in anything clients
// display: the track, the playing flag, shuffle, repeat or volume.
func hasStateChanged(prev, cur *spotify.Playback) bool {
	if prev == nil {
		return true
	}
	if trackChanged(prev, cur) {
		return true
	}
	return prev.IsPlaying != cur.IsPlaying ||
		prev.ShuffleState != cur.ShuffleState ||
		prev.RepeatState != cur.RepeatState ||
		prev.VolumePercent != cur.VolumePercent
}

// trackChanged reports whether cur plays a different track than prev.
func trackChanged(prev, cur *spotify.Playback) bool {
	if prev == nil {
		return true
	}
	if (prev.Item == nil) != (cur.Item == nil) {
		return true
	}
	return prev.Item != nil && prev.Item.ID != cur.Item.ID
}
