package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"resonite-spotify/internal/spotify"
)

type fakeArtists struct {
	calls atomic.Int32
	urls  map[string]string
}

func (f *fakeArtists) ArtistImage(_ context.Context, id string) (string, error) {
	f.calls.Add(1)
	return f.urls[id], nil
}

func pngBytes(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	fill(img, img.Bounds(), c)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type mediaServer struct {
	*httptest.Server
	canvasHits atomic.Int32
	imageHits  atomic.Int32
}

func newMediaServer(t *testing.T) *mediaServer {
	t.Helper()
	art := pngBytes(t, color.RGBA{30, 60, 200, 255})
	ms := &mediaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/canvas", func(w http.ResponseWriter, r *http.Request) {
		ms.canvasHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("trackId") {
		case "with-canvas":
			_, _ = w.Write([]byte(`{"canvasesList":[{"canvasUrl":"https://canvaz.scdn.co/v.mp4","artist":{"artistImgUrl":"https://i.scdn.co/artist.jpg"}}]}`))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"canvasesList":[]}`))
		}
	})
	mux.HandleFunc("/art.png", func(w http.ResponseWriter, _ *http.Request) {
		ms.imageHits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(art)
	})
	ms.Server = httptest.NewServer(mux)
	t.Cleanup(ms.Close)
	return ms
}

func TestResolver_Canvas(t *testing.T) {
	ms := newMediaServer(t)
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", nil)
	ctx := context.Background()

	c, err := r.Canvas(ctx, "with-canvas")
	if err != nil {
		t.Fatalf("Canvas() error = %v", err)
	}
	if c.VideoURL != "https://canvaz.scdn.co/v.mp4" || c.ArtistImageURL != "https://i.scdn.co/artist.jpg" {
		t.Errorf("Canvas() = %+v", c)
	}

	if _, err := r.Canvas(ctx, "with-canvas"); err != nil {
		t.Fatalf("cached Canvas() error = %v", err)
	}
	if n := ms.canvasHits.Load(); n != 1 {
		t.Errorf("canvas requests = %d, want 1", n)
	}
}

func TestResolver_CanvasMissingIsCached(t *testing.T) {
	ms := newMediaServer(t)
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", nil)

	for i := 0; i < 3; i++ {
		if _, err := r.Canvas(context.Background(), "plain"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Canvas() error = %v, want ErrNotFound", err)
		}
	}
	if n := ms.canvasHits.Load(); n != 1 {
		t.Errorf("canvas requests = %d, want 1", n)
	}
}

func TestResolver_CanvasServerError(t *testing.T) {
	ms := newMediaServer(t)
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", nil)

	_, err := r.Canvas(context.Background(), "broken")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Canvas() error = %v, want upstream error", err)
	}
}

func TestResolver_CancelledLookupNotCached(t *testing.T) {
	ms := newMediaServer(t)
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Canvas(ctx, "with-canvas"); err == nil {
		t.Fatal("Canvas() with cancelled context succeeded")
	}
	if _, err := r.Canvas(context.Background(), "with-canvas"); err != nil {
		t.Errorf("Canvas() after cancelled lookup error = %v", err)
	}
}

func TestResolver_CanvasDisabled(t *testing.T) {
	r := NewResolver(http.DefaultClient, "", nil)
	if _, err := r.Canvas(context.Background(), "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Canvas() error = %v, want ErrNotFound", err)
	}
}

func TestResolver_ArtistImage(t *testing.T) {
	artists := &fakeArtists{urls: map[string]string{"a1": "https://i.scdn.co/a1.jpg"}}
	r := NewResolver(http.DefaultClient, "", artists)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		u, err := r.ArtistImage(ctx, "a1")
		if err != nil || u != "https://i.scdn.co/a1.jpg" {
			t.Fatalf("ArtistImage() = %q, %v", u, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := r.ArtistImage(ctx, "no-image"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ArtistImage() error = %v, want ErrNotFound", err)
		}
	}
	if n := artists.calls.Load(); n != 2 {
		t.Errorf("artist lookups = %d, want 2", n)
	}
}

func TestResolver_DominantColor(t *testing.T) {
	ms := newMediaServer(t)
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", nil)

	for i := 0; i < 2; i++ {
		c, err := r.DominantColor(context.Background(), ms.URL+"/art.png")
		if err != nil {
			t.Fatalf("DominantColor() error = %v", err)
		}
		if c.Hex() != "#1e3cc8" {
			t.Errorf("DominantColor() = %s, want #1e3cc8", c.Hex())
		}
	}
	if n := ms.imageHits.Load(); n != 1 {
		t.Errorf("image requests = %d, want 1", n)
	}
	if _, err := r.DominantColor(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("DominantColor(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestResolver_Enrich(t *testing.T) {
	ms := newMediaServer(t)
	artists := &fakeArtists{urls: map[string]string{"a1": "https://i.scdn.co/a1.jpg"}}
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", artists)

	track := &spotify.Track{
		ID:      "with-canvas",
		Artists: []spotify.Artist{{ID: "a1", Name: "Artist"}},
		Album:   spotify.Album{ImageURL: ms.URL + "/art.png"},
	}
	e := r.Enrich(context.Background(), track)
	want := Enrichment{
		CanvasURL:      "https://canvaz.scdn.co/v.mp4",
		ArtistImageURL: "https://i.scdn.co/a1.jpg",
		Color:          "#1e3cc8",
		ANSI:           "blue",
	}
	if e != want {
		t.Errorf("Enrich() = %+v, want %+v", e, want)
	}

	if got := r.Enrich(context.Background(), nil); got != (Enrichment{}) {
		t.Errorf("Enrich(nil) = %+v, want empty", got)
	}
}

func TestResolver_EnrichPartial(t *testing.T) {
	ms := newMediaServer(t)
	r := NewResolver(ms.Client(), ms.URL+"/api/canvas", &fakeArtists{})

	e := r.Enrich(context.Background(), &spotify.Track{ID: "plain", Artists: []spotify.Artist{{ID: "a2"}}})
	if e != (Enrichment{}) {
		t.Errorf("Enrich() = %+v, want empty", e)
	}
}
