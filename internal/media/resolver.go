// Package media looks up the extras shown next to a track: its Canvas video,
// the artist's image and a colour taken from the album art.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"resonite-spotify/internal/spotify"
)

const maxBodySize = 10 << 20

// ErrNotFound is returned when a track, artist or image has nothing to offer.
// It is remembered so the lookup is not repeated.
var ErrNotFound = errors.New("not available")

// ArtistSource resolves an artist id to an image URL.
type ArtistSource interface {
	ArtistImage(ctx context.Context, artistID string) (string, error)
}

// Canvas is the result of a Canvas lookup.
type Canvas struct {
	VideoURL       string `json:"canvas_url"`
	ArtistImageURL string `json:"artist_image_url,omitempty"`
}

// Enrichment bundles the extras for one track. Empty fields were not found.
type Enrichment struct {
	CanvasURL      string `json:"canvas_url,omitempty"`
	ArtistImageURL string `json:"artist_image_url,omitempty"`
	Color          string `json:"track_color,omitempty"`
	ANSI           string `json:"-"`
}

type lookup[T any] struct {
	value T
	err   error
}

// Resolver performs the lookups and caches every answer, found or not, for
// the lifetime of the process. It is safe for concurrent use.
type Resolver struct {
	client    *http.Client
	canvasURL string
	artists   ArtistSource

	mu       sync.Mutex
	canvases map[string]lookup[Canvas]
	images   map[string]lookup[string]
	colors   map[string]lookup[RGB]
}

// NewResolver creates a Resolver. An empty canvasURL turns Canvas lookups off.
func NewResolver(client *http.Client, canvasURL string, artists ArtistSource) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		client:    client,
		canvasURL: canvasURL,
		artists:   artists,
		canvases:  make(map[string]lookup[Canvas]),
		images:    make(map[string]lookup[string]),
		colors:    make(map[string]lookup[RGB]),
	}
}

// Canvas returns the Canvas video of a track.
func (r *Resolver) Canvas(ctx context.Context, trackID string) (Canvas, error) {
	if trackID == "" || r.canvasURL == "" {
		return Canvas{}, ErrNotFound
	}
	return cached(ctx, r, r.canvases, trackID, func() (Canvas, error) {
		return r.fetchCanvas(ctx, trackID)
	})
}

// ArtistImage returns the artist's image URL.
func (r *Resolver) ArtistImage(ctx context.Context, artistID string) (string, error) {
	if artistID == "" || r.artists == nil {
		return "", ErrNotFound
	}
	return cached(ctx, r, r.images, artistID, func() (string, error) {
		u, err := r.artists.ArtistImage(ctx, artistID)
		if err != nil {
			return "", err
		}
		if u == "" {
			return "", ErrNotFound
		}
		return u, nil
	})
}

// DominantColor downloads an image and returns its most vibrant colour.
func (r *Resolver) DominantColor(ctx context.Context, imageURL string) (RGB, error) {
	if imageURL == "" {
		return RGB{}, ErrNotFound
	}
	return cached(ctx, r, r.colors, imageURL, func() (RGB, error) {
		body, err := r.get(ctx, imageURL)
		if err != nil {
			return RGB{}, err
		}
		return ExtractColor(bytes.NewReader(body))
	})
}

// Enrich runs the three lookups for t concurrently. Lookups that fail are
// left empty.
func (r *Resolver) Enrich(ctx context.Context, t *spotify.Track) Enrichment {
	var e Enrichment
	if t == nil {
		return e
	}
	log := logrus.WithField("track", t.ID)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		c, err := r.Canvas(ctx, t.ID)
		if err != nil {
			log.WithError(err).Debug("no canvas for track")
			return
		}
		e.CanvasURL = c.VideoURL
	}()
	go func() {
		defer wg.Done()
		a := t.PrimaryArtist()
		if a == nil {
			return
		}
		u, err := r.ArtistImage(ctx, a.ID)
		if err != nil {
			log.WithError(err).WithField("artist", a.ID).Debug("no artist image")
			return
		}
		e.ArtistImageURL = u
	}()
	go func() {
		defer wg.Done()
		c, err := r.DominantColor(ctx, t.Album.ImageURL)
		if err != nil {
			log.WithError(err).Debug("no track colour")
			return
		}
		e.Color = c.Hex()
		e.ANSI = NearestANSI(c).String()
	}()
	wg.Wait()
	return e
}

// cached answers key from m, or runs fetch and stores its outcome. Results
// of a cancelled context are not stored.
func cached[T any](ctx context.Context, r *Resolver, m map[string]lookup[T], key string, fetch func() (T, error)) (T, error) {
	r.mu.Lock()
	hit, ok := m[key]
	r.mu.Unlock()
	if ok {
		return hit.value, hit.err
	}

	v, err := fetch()
	if err != nil && ctx.Err() != nil {
		return v, err
	}

	r.mu.Lock()
	m[key] = lookup[T]{value: v, err: err}
	r.mu.Unlock()
	return v, err
}

func (r *Resolver) fetchCanvas(ctx context.Context, trackID string) (Canvas, error) {
	u, err := url.Parse(r.canvasURL)
	if err != nil {
		return Canvas{}, fmt.Errorf("canvas url: %w", err)
	}
	q := u.Query()
	q.Set("trackId", trackID)
	u.RawQuery = q.Encode()

	body, err := r.get(ctx, u.String())
	if err != nil {
		return Canvas{}, err
	}

	first := gjson.GetBytes(body, "canvasesList.0")
	videoURL := first.Get("canvasUrl").String()
	if videoURL == "" {
		return Canvas{}, ErrNotFound
	}
	return Canvas{
		VideoURL:       videoURL,
		ArtistImageURL: first.Get("artist.artistImgUrl").String(),
	}, nil
}

func (r *Resolver) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
