package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

type fakePlayer struct {
	playback *spotify.Playback
	err      error
	calls    []string
	listing  *spotify.Listing
	artist   *spotify.ArtistPage
}

func (f *fakePlayer) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakePlayer) Playback(context.Context) (*spotify.Playback, error) {
	if f.playback == nil {
		return &spotify.Playback{RepeatState: spotify.RepeatOff}, nil
	}
	cp := *f.playback
	return &cp, nil
}

func (f *fakePlayer) CurrentlyPlaying(ctx context.Context) (*spotify.Playback, error) {
	return f.Playback(ctx)
}

func (f *fakePlayer) Resume(context.Context) error   { return f.record("resume") }
func (f *fakePlayer) Pause(context.Context) error    { return f.record("pause") }
func (f *fakePlayer) Next(context.Context) error     { return f.record("next") }
func (f *fakePlayer) Previous(context.Context) error { return f.record("previous") }
func (f *fakePlayer) Seek(_ context.Context, ms int) error {
	return f.record("seek %d", ms)
}
func (f *fakePlayer) SetShuffle(_ context.Context, on bool) error {
	return f.record("shuffle %v", on)
}
func (f *fakePlayer) SetRepeat(_ context.Context, state string) error {
	return f.record("repeat %s", state)
}
func (f *fakePlayer) SetVolume(_ context.Context, v int) error {
	return f.record("volume %d", v)
}
func (f *fakePlayer) PlayTracks(_ context.Context, uris ...string) error {
	return f.record("tracks %s", strings.Join(uris, ","))
}
func (f *fakePlayer) PlayContext(_ context.Context, contextURI, offsetURI string) error {
	return f.record("context %s %s", contextURI, offsetURI)
}
func (f *fakePlayer) Playlists(context.Context) (*spotify.Listing, error) {
	return f.listing, f.record("playlists")
}
func (f *fakePlayer) PlaylistTracks(_ context.Context, uri string, offset int) (*spotify.Listing, error) {
	return f.listing, f.record("playlist %s %d", uri, offset)
}
func (f *fakePlayer) Album(_ context.Context, uri string) (*spotify.Listing, error) {
	return f.listing, f.record("album %s", uri)
}
func (f *fakePlayer) Artist(_ context.Context, uri string) (*spotify.ArtistPage, error) {
	return f.artist, f.record("artist %s", uri)
}
func (f *fakePlayer) Search(_ context.Context, kinds, query string) (*spotify.Listing, error) {
	return f.listing, f.record("search %s|%s", kinds, query)
}
func (f *fakePlayer) Queue(context.Context) (*spotify.Listing, error) {
	return f.listing, f.record("queue")
}

type fakeMedia struct {
	canvas media.Canvas
	image  string
	color  media.RGB
	err    error
}

func (f *fakeMedia) Canvas(context.Context, string) (media.Canvas, error) { return f.canvas, f.err }
func (f *fakeMedia) ArtistImage(context.Context, string) (string, error) { return f.image, f.err }
func (f *fakeMedia) DominantColor(context.Context, string) (media.RGB, error) {
	return f.color, f.err
}
func (f *fakeMedia) Enrich(_ context.Context, t *spotify.Track) media.Enrichment {
	if t == nil || f.err != nil {
		return media.Enrichment{}
	}
	return media.Enrichment{CanvasURL: f.canvas.VideoURL, ArtistImageURL: f.image, Color: f.color.Hex()}
}

var testTrack = &spotify.Track{
	ID:         "t1",
	URI:        "spotify:track:t1",
	Name:       "Song",
	DurationMs: 180000,
	Artists:    []spotify.Artist{{ID: "a1", Name: "Artist"}},
	Album:      spotify.Album{ID: "al1", Name: "Album", ImageURL: "http://img/1"},
}

func newTestDispatcher(pb *spotify.Playback) (*Dispatcher, *fakePlayer, *fakeMedia) {
	p := &fakePlayer{
		playback: pb,
		listing:  &spotify.Listing{Title: "L"},
		artist:   &spotify.ArtistPage{Artist: spotify.Entry{Name: "R"}},
	}
	m := &fakeMedia{
		canvas: media.Canvas{VideoURL: "http://canvas/v.mp4"},
		image:  "http://img/artist",
		color:  media.RGB{R: 30, G: 60, B: 200},
	}
	return NewDispatcher(p, m), p, m
}

func TestHandle_UnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(nil)
	r := d.Handle(context.Background(), NewSession("c1"), "dance now")
	if r.Type != TypeError || r.Command != "dance" || !strings.Contains(r.Error, "unknown command") {
		t.Errorf("reply = %+v", r)
	}
}

func TestHandle_EmptyCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(nil)
	r := d.Handle(context.Background(), NewSession("c1"), "  ")
	if r.Type != TypeError {
		t.Fatalf("reply = %+v, want error", r)
	}
	raw, err := r.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"command":""`) {
		t.Errorf("encoded error %s has no command key", raw)
	}
}

func TestHandle_DisplayArtistMissing(t *testing.T) {
	d, p, _ := newTestDispatcher(nil)
	p.artist = nil
	r := d.Handle(context.Background(), NewSession("c1"), "display_artist spotify:artist:gone")
	if r.Type != TypeError || !strings.Contains(r.Error, "not found") {
		t.Errorf("reply = %+v", r)
	}
}

func TestHandle_ControlCommands(t *testing.T) {
	tests := []struct {
		name      string
		playback  *spotify.Playback
		raw       string
		wantCalls []string
		wantType  string
		check     func(t *testing.T, data any)
	}{
		{
			name:      "next",
			raw:       "next",
			wantCalls: []string{"next"},
			wantType:  TypeAck,
		},
		{
			name:      "previous restarts late in track",
			playback:  &spotify.Playback{Item: testTrack, ProgressMs: 4001},
			raw:       "previous",
			wantCalls: []string{"seek 0"},
			wantType:  TypeAck,
		},
		{
			name:      "previous skips early in track",
			playback:  &spotify.Playback{Item: testTrack, ProgressMs: 4000},
			raw:       "previous",
			wantCalls: []string{"previous"},
			wantType:  TypeAck,
		},
		{
			name:      "pause while playing",
			playback:  &spotify.Playback{IsPlaying: true, Item: testTrack},
			raw:       "pause",
			wantCalls: []string{"pause"},
			wantType:  TypeStates,
			check: func(t *testing.T, data any) {
				if data.(spotify.States).IsPlaying {
					t.Error("states still playing after pause")
				}
			},
		},
		{
			name:      "pause toggles to resume when paused",
			playback:  &spotify.Playback{IsPlaying: false, Item: testTrack},
			raw:       "pause",
			wantCalls: []string{"resume"},
			wantType:  TypeStates,
			check: func(t *testing.T, data any) {
				if !data.(spotify.States).IsPlaying {
					t.Error("states not playing after resume")
				}
			},
		},
		{
			name:      "shuffle flips",
			playback:  &spotify.Playback{ShuffleState: true},
			raw:       "shuffle",
			wantCalls: []string{"shuffle false"},
			wantType:  TypeStates,
			check: func(t *testing.T, data any) {
				if data.(spotify.States).ShuffleState {
					t.Error("shuffle still on")
				}
			},
		},
		{
			name:      "repeat cycles off to track",
			playback:  &spotify.Playback{RepeatState: spotify.RepeatOff},
			raw:       "repeat",
			wantCalls: []string{"repeat track"},
			wantType:  TypeStates,
		},
		{
			name:      "repeat cycles context to off",
			playback:  &spotify.Playback{RepeatState: spotify.RepeatContext},
			raw:       "repeat",
			wantCalls: []string{"repeat off"},
			wantType:  TypeStates,
			check: func(t *testing.T, data any) {
				if got := data.(spotify.States).RepeatState; got != spotify.RepeatOff {
					t.Errorf("repeat = %q", got)
				}
			},
		},
		{
			name:      "volume",
			playback:  &spotify.Playback{VolumePercent: 10},
			raw:       "volume 55",
			wantCalls: []string{"volume 55"},
			wantType:  TypeStates,
			check: func(t *testing.T, data any) {
				if got := data.(spotify.States).VolumePercent; got != 55 {
					t.Errorf("volume = %d", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p, _ := newTestDispatcher(tt.playback)
			r := d.Handle(context.Background(), NewSession("c1"), tt.raw)
			if r.Type != tt.wantType {
				t.Fatalf("reply = %+v, want type %s", r, tt.wantType)
			}
			if !reflect.DeepEqual(p.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", p.calls, tt.wantCalls)
			}
			if tt.check != nil {
				tt.check(t, r.Data)
			}
		})
	}
}

func TestHandle_VolumeRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"volume", "volume loud", "volume 101", "volume -1"} {
		d, p, _ := newTestDispatcher(nil)
		r := d.Handle(context.Background(), NewSession("c1"), raw)
		if r.Type != TypeError || !strings.Contains(r.Error, ErrBadArgument.Error()) {
			t.Errorf("%q: reply = %+v, want bad argument", raw, r)
		}
		if len(p.calls) != 0 {
			t.Errorf("%q: calls = %v, want none", raw, p.calls)
		}
	}
}

func TestHandle_PlayDependsOnView(t *testing.T) {
	tests := []struct {
		name  string
		setup string
		raw   string
		want  string
	}{
		{"search track", "search track song", "play track spotify:track:1", "tracks spotify:track:1"},
		{"search album", "search album x", "play album spotify:album:9", "context spotify:album:9 "},
		{"queue", "list_queue", "play track spotify:track:2", "context spotify:playlist:ctx spotify:track:2"},
		{"playlist with offset", "display_playlist spotify:playlist:p 0", "play track spotify:playlist:p spotify:track:3", "context spotify:playlist:p spotify:track:3"},
		{"album without offset", "display_album spotify:album:a", "play album spotify:album:a", "context spotify:album:a "},
		{"artist track", "display_artist spotify:artist:r", "play track spotify:track:4", "tracks spotify:track:4"},
		{"artist context", "display_artist spotify:artist:r", "play artist spotify:artist:r", "context spotify:artist:r "},
		{"no view track", "", "play track spotify:track:5", "tracks spotify:track:5"},
		{"no view playlist", "", "play playlist spotify:playlist:z", "context spotify:playlist:z "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p, _ := newTestDispatcher(&spotify.Playback{Item: testTrack, ContextURI: "spotify:playlist:ctx"})
			s := NewSession("c1")
			if tt.setup != "" {
				if r := d.Handle(context.Background(), s, tt.setup); r.Type == TypeError {
					t.Fatalf("setup reply = %+v", r)
				}
			}
			p.calls = nil

			r := d.Handle(context.Background(), s, tt.raw)
			if r.Type != TypeAck {
				t.Fatalf("reply = %+v", r)
			}
			if len(p.calls) != 1 || p.calls[0] != tt.want {
				t.Errorf("calls = %q, want %q", p.calls, tt.want)
			}
		})
	}
}

func TestHandle_PlayNeedsArguments(t *testing.T) {
	d, _, _ := newTestDispatcher(nil)
	r := d.Handle(context.Background(), NewSession("c1"), "play spotify:track:1")
	if r.Type != TypeError || r.Command != "play" {
		t.Errorf("reply = %+v", r)
	}
}

func TestHandle_Browse(t *testing.T) {
	tests := []struct {
		raw      string
		wantCall string
		wantType string
		wantView View
	}{
		{"list_playlists", "playlists", TypeListing, ViewPlaylists},
		{"search track,album daft punk", "search track,album|daft punk", TypeListing, ViewSearch},
		{"list_queue", "queue", TypeListing, ViewQueue},
		{"display_album spotify:album:1", "album spotify:album:1", TypeListing, ViewAlbum},
		{"display_playlist spotify:user:me:collection 50", "playlist spotify:user:me:collection 50", TypeListing, ViewPlaylist},
		{"display_playlist spotify:playlist:p", "playlist spotify:playlist:p 0", TypeListing, ViewPlaylist},
		{"display_artist spotify:artist:1", "artist spotify:artist:1", TypeArtist, ViewArtist},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, p, _ := newTestDispatcher(nil)
			p.artist = &spotify.ArtistPage{Artist: spotify.Entry{Name: "A"}}
			s := NewSession("c1")
			r := d.Handle(context.Background(), s, tt.raw)
			if r.Type != tt.wantType {
				t.Fatalf("reply = %+v, want %s", r, tt.wantType)
			}
			if len(p.calls) != 1 || p.calls[0] != tt.wantCall {
				t.Errorf("calls = %q, want %q", p.calls, tt.wantCall)
			}
			if s.View() != tt.wantView {
				t.Errorf("view = %q, want %q", s.View(), tt.wantView)
			}
		})
	}
}

func TestHandle_BrowseBadArguments(t *testing.T) {
	for _, raw := range []string{"search", "search track", "display_album", "display_playlist", "display_playlist spotify:playlist:p x", "display_artist"} {
		d, p, _ := newTestDispatcher(nil)
		r := d.Handle(context.Background(), NewSession("c1"), raw)
		if r.Type != TypeError {
			t.Errorf("%q: reply = %+v, want error", raw, r)
		}
		if len(p.calls) != 0 {
			t.Errorf("%q: calls = %v", raw, p.calls)
		}
	}
}

func TestHandle_QueueErrorKeepsView(t *testing.T) {
	d, p, _ := newTestDispatcher(nil)
	s := NewSession("c1")
	d.Handle(context.Background(), s, "search track x")
	p.err = spotify.ErrEmpty

	r := d.Handle(context.Background(), s, "list_queue")
	if r.Type != TypeError {
		t.Fatalf("reply = %+v", r)
	}
	if s.View() != ViewSearch {
		t.Errorf("view = %q, want search", s.View())
	}
}

func TestHandle_SpotifyErrorBecomesReply(t *testing.T) {
	d, p, _ := newTestDispatcher(nil)
	p.err = errors.New("next: Player command failed: Restriction violated")
	r := d.Handle(context.Background(), NewSession("c1"), "next")
	if r.Type != TypeError || r.Command != "next" || !strings.Contains(r.Error, "Restriction violated") {
		t.Errorf("reply = %+v", r)
	}
}

func TestHandle_CurrentInfo(t *testing.T) {
	d, _, _ := newTestDispatcher(&spotify.Playback{
		IsPlaying:     true,
		ProgressMs:    1000,
		Item:          testTrack,
		ShuffleState:  true,
		RepeatState:   spotify.RepeatTrack,
		VolumePercent: 70,
	})
	r := d.Handle(context.Background(), NewSession("c1"), "current_info")
	if r.Type != TypeNowPlaying || r.Command != "current_info" {
		t.Fatalf("reply = %+v", r)
	}

	raw, err := r.Encode()
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Type string `json:"type"`
		Data struct {
			IsPlaying  bool   `json:"is_playing"`
			CanvasURL  string `json:"canvas_url"`
			ArtistURL  string `json:"artist_image_url"`
			TrackColor string `json:"track_color"`
			Item       struct {
				Name string `json:"name"`
			} `json:"item"`
			States struct {
				RepeatState   string `json:"repeat_state"`
				VolumePercent int    `json:"volume_percent"`
			} `json:"states"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Data.Item.Name != "Song" || got.Data.CanvasURL != "http://canvas/v.mp4" || got.Data.ArtistURL != "http://img/artist" {
		t.Errorf("payload = %s", raw)
	}
	if got.Data.TrackColor != "#1e3cc8" || got.Data.States.RepeatState != "track" || got.Data.States.VolumePercent != 70 {
		t.Errorf("payload = %s", raw)
	}
}

func TestHandle_CurrentTrackWithoutStates(t *testing.T) {
	d, _, _ := newTestDispatcher(&spotify.Playback{IsPlaying: true, Item: testTrack})
	r := d.Handle(context.Background(), NewSession("c1"), "current_song")
	np, ok := r.Data.(NowPlaying)
	if !ok {
		t.Fatalf("reply = %+v", r)
	}
	if np.States != nil {
		t.Error("current_song included states")
	}
}

func TestHandle_NothingPlaying(t *testing.T) {
	for _, raw := range []string{"current_info", "current_track", "get_canvas_video", "get_artist_image", "get_track_color"} {
		d, _, _ := newTestDispatcher(&spotify.Playback{})
		r := d.Handle(context.Background(), NewSession("c1"), raw)
		if r.Type != TypeError || !strings.Contains(r.Error, ErrNothingPlaying.Error()) {
			t.Errorf("%s: reply = %+v", raw, r)
		}
	}
}

func TestHandle_MediaCommands(t *testing.T) {
	d, _, m := newTestDispatcher(&spotify.Playback{Item: testTrack})
	s := NewSession("c1")

	r := d.Handle(context.Background(), s, "get_canvas_video")
	if want := (MediaResult{Available: true, URL: "http://canvas/v.mp4"}); r.Type != TypeCanvas || r.Data != want {
		t.Errorf("canvas reply = %+v", r)
	}
	r = d.Handle(context.Background(), s, "get_artist_image")
	if want := (MediaResult{Available: true, URL: "http://img/artist"}); r.Type != TypeArtistImage || r.Data != want {
		t.Errorf("artist image reply = %+v", r)
	}
	r = d.Handle(context.Background(), s, "get_track_color")
	if want := (MediaResult{Available: true, Color: "#1e3cc8", ANSI: "blue"}); r.Type != TypeTrackColor || r.Data != want {
		t.Errorf("track colour reply = %+v", r)
	}

	m.err = media.ErrNotFound
	for _, raw := range []string{"get_canvas_video", "get_artist_image", "get_track_color"} {
		r := d.Handle(context.Background(), s, raw)
		if r.Type == TypeError || r.Data != (MediaResult{}) {
			t.Errorf("%s with missing media: reply = %+v", raw, r)
		}
	}
}
