package bridge

import "sync"

// View is the listing a client last asked for. It decides how play reads
// its arguments.
type View string

// Views.
const (
	ViewNone      View = ""
	ViewPlaylists View = "playlists"
	ViewSearch    View = "search"
	ViewQueue     View = "queue"
	ViewPlaylist  View = "playlist"
	ViewAlbum     View = "album"
	ViewArtist    View = "artist"
)

// Session is the per-connection state of a client.
type Session struct {
	ID string

	mu   sync.Mutex
	view View
}

// NewSession creates a Session for the client with the given id.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// ShortID is the first eight characters of the id, as shown in logs.
func (s *Session) ShortID() string {
	if len(s.ID) <= 8 {
		return s.ID
	}
	return s.ID[:8]
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) setView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}
