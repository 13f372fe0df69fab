package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	spotifyapi "github.com/zmb3/spotify/v2"
)

const (
	pageSize       = 50
	searchLimit    = 20
	artistAlbums   = 20
	fallbackMarket = "US"
)

// ErrEmpty is returned when a listing the client asked for has no items.
var ErrEmpty = errors.New("nothing to list")

// Client is a thread-safe client for interacting with the Spotify API.
type Client struct {
	api             *spotifyapi.Client
	market          string
	preferredDevice string

	mu     sync.Mutex
	userID string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	market  string
	device  string
	baseURL string
}

// WithMarket sets the market used for search and artist top tracks.
func WithMarket(market string) Option {
	return func(o *clientOptions) { o.market = market }
}

// WithPreferredDevice names the Spotify Connect device to fall back to when
// no device is active.
func WithPreferredDevice(name string) Option {
	return func(o *clientOptions) { o.device = name }
}

// WithBaseURL points the client at a different Web API root. The URL must
// end with a slash.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// NewClient wraps an authorized HTTP client. The returned client is safe for
// concurrent use.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	o := clientOptions{market: "from_token"}
	for _, opt := range opts {
		opt(&o)
	}

	var apiOpts []spotifyapi.ClientOption
	if o.baseURL != "" {
		apiOpts = append(apiOpts, spotifyapi.WithBaseURL(o.baseURL))
	}

	return &Client{
		api:             spotifyapi.New(httpClient, apiOpts...),
		market:          o.market,
		preferredDevice: o.device,
	}
}

// Playback fetches the full player state. When nothing is playing Spotify
// answers 204 and the returned Playback has a nil Item.
func (c *Client) Playback(ctx context.Context) (*Playback, error) {
	st, err := c.api.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("get player state: %w", err)
	}
	if st == nil {
		return &Playback{RepeatState: RepeatOff}, nil
	}

	repeat := st.RepeatState
	if repeat == "" {
		repeat = RepeatOff
	}
	return &Playback{
		IsPlaying:     st.Playing,
		ProgressMs:    int(st.Progress),
		Timestamp:     st.Timestamp,
		Item:          convertTrack(st.Item),
		ContextURI:    string(st.PlaybackContext.URI),
		ShuffleState:  st.ShuffleState,
		RepeatState:   repeat,
		VolumePercent: int(st.Device.Volume),
		Device:        st.Device.Name,
	}, nil
}

// CurrentlyPlaying fetches the user's currently playing track without the
// device and control flags.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*Playback, error) {
	cp, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("get currently playing: %w", err)
	}
	if cp == nil {
		return &Playback{RepeatState: RepeatOff}, nil
	}
	return &Playback{
		IsPlaying:   cp.Playing,
		ProgressMs:  int(cp.Progress),
		Timestamp:   cp.Timestamp,
		Item:        convertTrack(cp.Item),
		ContextURI:  string(cp.PlaybackContext.URI),
		RepeatState: RepeatOff,
	}, nil
}

// Resume continues playback on the active device.
func (c *Client) Resume(ctx context.Context) error {
	return c.control(ctx, "resume", func(opt *spotifyapi.PlayOptions) error {
		return c.api.PlayOpt(ctx, opt)
	})
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.control(ctx, "pause", func(opt *spotifyapi.PlayOptions) error {
		return c.api.PauseOpt(ctx, opt)
	})
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	return c.control(ctx, "next", func(opt *spotifyapi.PlayOptions) error {
		return c.api.NextOpt(ctx, opt)
	})
}

// Previous goes back to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	return c.control(ctx, "previous", func(opt *spotifyapi.PlayOptions) error {
		return c.api.PreviousOpt(ctx, opt)
	})
}

// Seek moves the playhead of the current track.
func (c *Client) Seek(ctx context.Context, positionMs int) error {
	return c.control(ctx, "seek", func(opt *spotifyapi.PlayOptions) error {
		return c.api.SeekOpt(ctx, positionMs, opt)
	})
}

// SetShuffle turns shuffle on or off.
func (c *Client) SetShuffle(ctx context.Context, on bool) error {
	return c.control(ctx, "shuffle", func(opt *spotifyapi.PlayOptions) error {
		return c.api.ShuffleOpt(ctx, on, opt)
	})
}

// SetRepeat sets the repeat mode to off, track or context.
func (c *Client) SetRepeat(ctx context.Context, state string) error {
	return c.control(ctx, "repeat", func(opt *spotifyapi.PlayOptions) error {
		return c.api.RepeatOpt(ctx, state, opt)
	})
}

// SetVolume sets the volume of the active device, clamped to 0..100.
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	percent = max(0, min(100, percent))
	return c.control(ctx, "volume", func(opt *spotifyapi.PlayOptions) error {
		return c.api.VolumeOpt(ctx, percent, opt)
	})
}

// PlayTracks plays the given track URIs.
func (c *Client) PlayTracks(ctx context.Context, uris ...string) error {
	list := make([]spotifyapi.URI, 0, len(uris))
	for _, u := range uris {
		list = append(list, spotifyapi.URI(u))
	}
	return c.control(ctx, "play tracks", func(opt *spotifyapi.PlayOptions) error {
		opt.URIs = list
		return c.api.PlayOpt(ctx, opt)
	})
}

// PlayContext plays an album, playlist, artist or Liked Songs context,
// starting at offsetURI when it is not empty.
func (c *Client) PlayContext(ctx context.Context, contextURI, offsetURI string) error {
	uri := spotifyapi.URI(contextURI)
	return c.control(ctx, "play context", func(opt *spotifyapi.PlayOptions) error {
		opt.PlaybackContext = &uri
		if offsetURI != "" {
			opt.PlaybackOffset = &spotifyapi.PlaybackOffset{URI: spotifyapi.URI(offsetURI)}
		}
		return c.api.PlayOpt(ctx, opt)
	})
}

// Playlists lists the user's playlists, headed by a Liked Songs entry.
func (c *Client) Playlists(ctx context.Context) (*Listing, error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	page, err := c.api.CurrentUsersPlaylists(ctx, spotifyapi.Limit(pageSize))
	if err != nil {
		return nil, fmt.Errorf("get playlists: %w", err)
	}

	entries := make([]Entry, 0, len(page.Playlists)+1)
	entries = append(entries, Entry{
		Kind: KindPlaylist,
		Name: "Liked Songs",
		URI:  likedSongsURI(userID),
	})
	for _, p := range page.Playlists {
		entries = append(entries, playlistEntry(p))
	}
	return &Listing{Title: "Playlists", Total: int(page.Total) + 1, Entries: entries}, nil
}

// PlaylistTracks lists one page of a playlist, or of Liked Songs when uri
// is a collection URI.
func (c *Client) PlaylistTracks(ctx context.Context, uri string, offset int) (*Listing, error) {
	if IsCollectionURI(uri) {
		return c.LikedSongs(ctx, offset)
	}
	id := IDFromURI(uri)

	pl, err := c.api.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	items, err := c.api.GetPlaylistItems(ctx, id, spotifyapi.Limit(pageSize), spotifyapi.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("get playlist items: %w", err)
	}
	if len(items.Items) == 0 {
		return nil, fmt.Errorf("playlist %s: %w", pl.Name, ErrEmpty)
	}

	entries := make([]Entry, 0, len(items.Items))
	for _, it := range items.Items {
		if it.Track.Track == nil {
			continue
		}
		entries = append(entries, trackEntry(*it.Track.Track))
	}
	return &Listing{
		Title:   pl.Name,
		URI:     string(pl.URI),
		Offset:  offset,
		Total:   int(items.Total),
		Entries: entries,
	}, nil
}

// LikedSongs lists one page of the user's saved tracks.
func (c *Client) LikedSongs(ctx context.Context, offset int) (*Listing, error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	page, err := c.api.CurrentUsersTracks(ctx, spotifyapi.Limit(pageSize), spotifyapi.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("get saved tracks: %w", err)
	}
	if len(page.Tracks) == 0 {
		return nil, fmt.Errorf("liked songs: %w", ErrEmpty)
	}

	entries := make([]Entry, 0, len(page.Tracks))
	for _, st := range page.Tracks {
		entries = append(entries, trackEntry(st.FullTrack))
	}
	return &Listing{
		Title:   "Liked Songs",
		URI:     likedSongsURI(userID),
		Offset:  offset,
		Total:   int(page.Total),
		Entries: entries,
	}, nil
}

// Album lists the tracks of an album.
func (c *Client) Album(ctx context.Context, uri string) (*Listing, error) {
	al, err := c.api.GetAlbum(ctx, IDFromURI(uri))
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	if len(al.Tracks.Tracks) == 0 {
		return nil, fmt.Errorf("album %s: %w", al.Name, ErrEmpty)
	}

	cover := firstImage(al.Images)
	entries := make([]Entry, 0, len(al.Tracks.Tracks))
	for _, t := range al.Tracks.Tracks {
		entries = append(entries, simpleTrackEntry(t, cover))
	}
	return &Listing{
		Title:   al.Name,
		URI:     string(al.URI),
		Total:   int(al.Tracks.Total),
		Entries: entries,
	}, nil
}

// Artist fetches an artist with their top tracks and albums.
func (c *Client) Artist(ctx context.Context, uri string) (*ArtistPage, error) {
	id := IDFromURI(uri)
	ar, err := c.api.GetArtist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}

	market := c.market
	if market == "" || market == "from_token" {
		market = fallbackMarket
	}
	top, err := c.api.GetArtistsTopTracks(ctx, id, market)
	if err != nil {
		return nil, fmt.Errorf("get artist top tracks: %w", err)
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("artist %s: %w", ar.Name, ErrEmpty)
	}
	albums, err := c.api.GetArtistAlbums(ctx, id, nil, spotifyapi.Limit(artistAlbums))
	if err != nil {
		return nil, fmt.Errorf("get artist albums: %w", err)
	}

	page := &ArtistPage{
		Artist:    artistEntry(*ar),
		Followers: int(ar.Followers.Count),
		Genres:    ar.Genres,
		TopTracks: make([]Entry, 0, len(top)),
		Albums:    make([]Entry, 0, len(albums.Albums)),
	}
	for _, t := range top {
		page.TopTracks = append(page.TopTracks, trackEntry(t))
	}
	for _, a := range albums.Albums {
		page.Albums = append(page.Albums, albumEntry(a))
	}
	return page, nil
}

// ArtistImage returns the URL of the artist's largest image, or "".
func (c *Client) ArtistImage(ctx context.Context, artistID string) (string, error) {
	ar, err := c.api.GetArtist(ctx, spotifyapi.ID(artistID))
	if err != nil {
		return "", fmt.Errorf("get artist: %w", err)
	}
	return firstImage(ar.Images), nil
}

// SearchTypes are the result kinds Search accepts.
var SearchTypes = map[string]spotifyapi.SearchType{
	KindTrack:    spotifyapi.SearchTypeTrack,
	KindAlbum:    spotifyapi.SearchTypeAlbum,
	KindArtist:   spotifyapi.SearchTypeArtist,
	KindPlaylist: spotifyapi.SearchTypePlaylist,
}

// Search runs a catalogue search. kinds is a comma-separated subset of
// track, album, artist and playlist; results are listed in that order.
func (c *Client) Search(ctx context.Context, kinds, query string) (*Listing, error) {
	var (
		st    spotifyapi.SearchType
		order []string
	)
	for _, k := range strings.Split(kinds, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		t, ok := SearchTypes[k]
		if !ok {
			return nil, fmt.Errorf("unsupported search type %q", k)
		}
		st |= t
		order = append(order, k)
	}

	res, err := c.api.Search(ctx, query, st, spotifyapi.Market(c.market), spotifyapi.Limit(searchLimit))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	listing := &Listing{Title: query}
	for _, k := range order {
		switch k {
		case KindTrack:
			if res.Tracks != nil {
				for _, t := range res.Tracks.Tracks {
					listing.Entries = append(listing.Entries, trackEntry(t))
				}
				listing.Total += int(res.Tracks.Total)
			}
		case KindAlbum:
			if res.Albums != nil {
				for _, a := range res.Albums.Albums {
					listing.Entries = append(listing.Entries, albumEntry(a))
				}
				listing.Total += int(res.Albums.Total)
			}
		case KindArtist:
			if res.Artists != nil {
				for _, a := range res.Artists.Artists {
					listing.Entries = append(listing.Entries, artistEntry(a))
				}
				listing.Total += int(res.Artists.Total)
			}
		case KindPlaylist:
			if res.Playlists != nil {
				for _, p := range res.Playlists.Playlists {
					listing.Entries = append(listing.Entries, playlistEntry(p))
				}
				listing.Total += int(res.Playlists.Total)
			}
		}
	}
	return listing, nil
}

// Queue lists the upcoming tracks. It returns ErrEmpty when the queue is
// empty.
func (c *Client) Queue(ctx context.Context) (*Listing, error) {
	q, err := c.api.GetQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("get queue: %w", err)
	}
	if len(q.Items) == 0 {
		return nil, fmt.Errorf("queue: %w", ErrEmpty)
	}

	entries := make([]Entry, 0, len(q.Items))
	for _, t := range q.Items {
		entries = append(entries, trackEntry(t))
	}
	return &Listing{Title: "Queue", Total: len(entries), Entries: entries}, nil
}

func (c *Client) currentUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.userID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	u, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("get current user: %w", err)
	}

	c.mu.Lock()
	c.userID = u.ID
	c.mu.Unlock()
	return u.ID, nil
}

func likedSongsURI(userID string) string {
	return "spotify:user:" + userID + ":collection"
}
