package spotify

import (
	"net/url"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"
)

// IDFromURI extracts the base-62 id from a Spotify URI ("spotify:album:xyz"),
// an open.spotify.com link or a bare id.
func IDFromURI(s string) spotifyapi.ID {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			return spotifyapi.ID(parts[len(parts)-1])
		}
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return spotifyapi.ID(s[i+1:])
	}
	return spotifyapi.ID(s)
}

// IsCollectionURI reports whether uri points at the user's Liked Songs.
func IsCollectionURI(uri string) bool {
	return strings.Contains(uri, "collection")
}

func firstImage(images []spotifyapi.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func convertArtists(in []spotifyapi.SimpleArtist) []Artist {
	out := make([]Artist, 0, len(in))
	for _, a := range in {
		out = append(out, Artist{ID: a.ID.String(), Name: a.Name, URI: string(a.URI)})
	}
	return out
}

func convertAlbum(a spotifyapi.SimpleAlbum) Album {
	return Album{
		ID:       a.ID.String(),
		URI:      string(a.URI),
		Name:     a.Name,
		ImageURL: firstImage(a.Images),
	}
}

func convertTrack(t *spotifyapi.FullTrack) *Track {
	if t == nil || t.ID == "" {
		return nil
	}
	return &Track{
		ID:         t.ID.String(),
		URI:        string(t.URI),
		Name:       t.Name,
		DurationMs: int(t.Duration),
		Artists:    convertArtists(t.Artists),
		Album:      convertAlbum(t.Album),
	}
}

func artistNames(in []spotifyapi.SimpleArtist) string {
	names := make([]string, 0, len(in))
	for _, a := range in {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func trackEntry(t spotifyapi.FullTrack) Entry {
	return Entry{
		Kind:       KindTrack,
		Name:       t.Name,
		Subtitle:   artistNames(t.Artists),
		URI:        string(t.URI),
		ImageURL:   firstImage(t.Album.Images),
		DurationMs: int(t.Duration),
	}
}

func simpleTrackEntry(t spotifyapi.SimpleTrack, imageURL string) Entry {
	return Entry{
		Kind:       KindTrack,
		Name:       t.Name,
		Subtitle:   artistNames(t.Artists),
		URI:        string(t.URI),
		ImageURL:   imageURL,
		DurationMs: int(t.Duration),
	}
}

func albumEntry(a spotifyapi.SimpleAlbum) Entry {
	return Entry{
		Kind:     KindAlbum,
		Name:     a.Name,
		Subtitle: artistNames(a.Artists),
		URI:      string(a.URI),
		ImageURL: firstImage(a.Images),
	}
}

func artistEntry(a spotifyapi.FullArtist) Entry {
	return Entry{
		Kind:     KindArtist,
		Name:     a.Name,
		URI:      string(a.URI),
		ImageURL: firstImage(a.Images),
	}
}

func playlistEntry(p spotifyapi.SimplePlaylist) Entry {
	return Entry{
		Kind:     KindPlaylist,
		Name:     p.Name,
		Subtitle: p.Owner.DisplayName,
		URI:      string(p.URI),
		ImageURL: firstImage(p.Images),
	}
}

func convertDevice(d spotifyapi.PlayerDevice) Device {
	return Device{
		ID:            d.ID.String(),
		Name:          d.Name,
		Type:          d.Type,
		Active:        d.Active,
		Restricted:    d.Restricted,
		VolumePercent: int(d.Volume),
	}
}
