package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/logging"
	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

// Player is the subset of the Spotify client the bridge drives.
type Player interface {
	Playback(ctx context.Context) (*spotify.Playback, error)
	CurrentlyPlaying(ctx context.Context) (*spotify.Playback, error)
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error
	SetShuffle(ctx context.Context, on bool) error
	SetRepeat(ctx context.Context, state string) error
	SetVolume(ctx context.Context, percent int) error
	PlayTracks(ctx context.Context, uris ...string) error
	PlayContext(ctx context.Context, contextURI, offsetURI string) error
	Playlists(ctx context.Context) (*spotify.Listing, error)
	PlaylistTracks(ctx context.Context, uri string, offset int) (*spotify.Listing, error)
	Album(ctx context.Context, uri string) (*spotify.Listing, error)
	Artist(ctx context.Context, uri string) (*spotify.ArtistPage, error)
	Search(ctx context.Context, kinds, query string) (*spotify.Listing, error)
	Queue(ctx context.Context) (*spotify.Listing, error)
}

// Enricher supplies the media extras for a track.
type Enricher interface {
	Canvas(ctx context.Context, trackID string) (media.Canvas, error)
	ArtistImage(ctx context.Context, artistID string) (string, error)
	DominantColor(ctx context.Context, imageURL string) (media.RGB, error)
	Enrich(ctx context.Context, t *spotify.Track) media.Enrichment
}

// restartThresholdMs is how far into a track "previous" restarts it instead
// of skipping back.
const restartThresholdMs = 4000

type handlerFunc func(ctx context.Context, s *Session, data string) (Reply, error)

// Dispatcher maps commands to Spotify calls.
type Dispatcher struct {
	player   Player
	media    Enricher
	handlers map[string]handlerFunc
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(player Player, enricher Enricher) *Dispatcher {
	d := &Dispatcher{player: player, media: enricher}
	d.handlers = map[string]handlerFunc{
		"current_info":     d.currentInfo,
		"current_track":    d.currentTrack,
		"current_song":     d.currentTrack,
		"current_states":   d.currentStates,
		"next":             d.next,
		"previous":         d.previous,
		"play":             d.play,
		"pause":            d.togglePlayback,
		"resume":           d.togglePlayback,
		"shuffle":          d.shuffle,
		"repeat":           d.repeat,
		"volume":           d.volume,
		"list_playlists":   d.listPlaylists,
		"search":           d.search,
		"list_queue":       d.listQueue,
		"display_album":    d.displayAlbum,
		"display_playlist": d.displayPlaylist,
		"display_artist":   d.displayArtist,
		"get_canvas_video": d.canvas,
		"get_artist_image": d.artistImage,
		"get_track_color":  d.trackColor,
	}
	return d
}

// Handle parses raw and runs it for session s. Failures are returned as
// error replies.
func (d *Dispatcher) Handle(ctx context.Context, s *Session, raw string) Reply {
	cmd, err := ParseCommand(raw)
	if err != nil {
		return ErrorReply("", err)
	}
	logging.With(logging.Connection).Infof("Client %s command: %s", s.ShortID(), cmd)

	h, ok := d.handlers[cmd.Name]
	if !ok {
		logging.With(logging.Error).WithField("command", cmd.Name).Warn("Unknown command")
		return ErrorReply(cmd.Name, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name))
	}

	reply, err := h(ctx, s, cmd.Data)
	if err != nil {
		logrus.WithError(err).WithField("command", cmd.Name).Error("command failed")
		return ErrorReply(cmd.Name, err)
	}
	reply.Command = cmd.Name
	return reply
}

func (d *Dispatcher) currentInfo(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.Playback(ctx)
	if err != nil {
		return Reply{}, err
	}
	if pb.Item == nil {
		return Reply{}, ErrNothingPlaying
	}
	e := d.media.Enrich(ctx, pb.Item)
	return Reply{Type: TypeNowPlaying, Data: NewNowPlaying(pb, e, true)}, nil
}

func (d *Dispatcher) currentTrack(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.CurrentlyPlaying(ctx)
	if err != nil {
		return Reply{}, err
	}
	if pb.Item == nil {
		return Reply{}, ErrNothingPlaying
	}
	e := d.media.Enrich(ctx, pb.Item)
	return Reply{Type: TypeNowPlaying, Data: NewNowPlaying(pb, e, false)}, nil
}

func (d *Dispatcher) currentStates(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.Playback(ctx)
	if err != nil {
		return Reply{}, err
	}
	return StatesReply(pb.States()), nil
}

func (d *Dispatcher) next(ctx context.Context, _ *Session, _ string) (Reply, error) {
	if err := d.player.Next(ctx); err != nil {
		return Reply{}, err
	}
	logging.With(logging.Playback).Info("Next track")
	return Reply{Type: TypeAck, Data: Ack{Message: "next track"}}, nil
}

func (d *Dispatcher) previous(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.Playback(ctx)
	if err != nil {
		return Reply{}, err
	}
	if pb.ProgressMs > restartThresholdMs {
		if err := d.player.Seek(ctx, 0); err != nil {
			return Reply{}, err
		}
		logging.With(logging.Playback).Info("Restarted track")
		return Reply{Type: TypeAck, Data: Ack{Message: "restarted track"}}, nil
	}
	if err := d.player.Previous(ctx); err != nil {
		return Reply{}, err
	}
	logging.With(logging.Playback).Info("Previous track")
	return Reply{Type: TypeAck, Data: Ack{Message: "previous track"}}, nil
}

// play reads "<kind> <uri> [offset uri]" according to the session's view.
func (d *Dispatcher) play(ctx context.Context, s *Session, data string) (Reply, error) {
	args := strings.Fields(data)
	if len(args) < 2 {
		return Reply{}, fmt.Errorf("%w: play expects <kind> <uri> [offset uri]", ErrBadArgument)
	}
	kind, uri := strings.ToLower(args[0]), args[1]
	var offset string
	if len(args) > 2 {
		offset = args[2]
	}

	log := logging.With(logging.Playback)
	var err error
	switch view := s.View(); view {
	case ViewSearch:
		if kind == spotify.KindTrack {
			err = d.player.PlayTracks(ctx, uri)
		} else {
			err = d.player.PlayContext(ctx, uri, "")
		}
		log = log.WithField("from", view)
	case ViewQueue:
		var pb *spotify.Playback
		pb, err = d.player.CurrentlyPlaying(ctx)
		if err != nil {
			return Reply{}, err
		}
		if pb.ContextURI == "" {
			err = d.player.PlayTracks(ctx, uri)
		} else {
			err = d.player.PlayContext(ctx, pb.ContextURI, uri)
		}
		log = log.WithField("from", view)
	case ViewPlaylist, ViewAlbum:
		err = d.player.PlayContext(ctx, uri, offset)
		log = log.WithField("from", view)
	default:
		if kind == spotify.KindTrack && offset == "" {
			err = d.player.PlayTracks(ctx, uri)
		} else {
			err = d.player.PlayContext(ctx, uri, offset)
		}
	}
	if err != nil {
		return Reply{}, err
	}
	log.WithField("uri", uri).Info("Playing selection")
	return Reply{Type: TypeAck, Data: Ack{Message: "playing " + uri}}, nil
}

// togglePlayback pauses when playing and resumes otherwise, whichever of
// pause or resume was sent.
func (d *Dispatcher) togglePlayback(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.Playback(ctx)
	if err != nil {
		logrus.WithError(err).Debug("player state unavailable, assuming paused")
		pb = &spotify.Playback{}
	}

	st := pb.States()
	if pb.IsPlaying {
		err = d.player.Pause(ctx)
	} else {
		err = d.player.Resume(ctx)
	}
	if err != nil {
		return Reply{}, err
	}
	st.IsPlaying = !pb.IsPlaying

	if st.IsPlaying {
		logging.With(logging.Control).Info("Playback resumed")
	} else {
		logging.With(logging.Control).Info("Playback paused")
	}
	return StatesReply(st), nil
}

func (d *Dispatcher) shuffle(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.Playback(ctx)
	if err != nil {
		return Reply{}, err
	}
	on := !pb.ShuffleState
	if err := d.player.SetShuffle(ctx, on); err != nil {
		return Reply{}, err
	}
	st := pb.States()
	st.ShuffleState = on
	logging.With(logging.Control).WithField("shuffle", on).Info("Shuffle changed")
	return StatesReply(st), nil
}

func (d *Dispatcher) repeat(ctx context.Context, _ *Session, _ string) (Reply, error) {
	pb, err := d.player.Playback(ctx)
	if err != nil {
		return Reply{}, err
	}
	mode := spotify.NextRepeat(pb.RepeatState)
	if err := d.player.SetRepeat(ctx, mode); err != nil {
		return Reply{}, err
	}
	st := pb.States()
	st.RepeatState = mode
	logging.With(logging.Control).WithField("repeat", mode).Info("Repeat mode changed")
	return StatesReply(st), nil
}

func (d *Dispatcher) volume(ctx context.Context, _ *Session, data string) (Reply, error) {
	v, err := strconv.Atoi(strings.TrimSuffix(data, "%"))
	if err != nil || v < 0 || v > 100 {
		return Reply{}, fmt.Errorf("%w: volume expects 0..100, got %q", ErrBadArgument, data)
	}
	if err := d.player.SetVolume(ctx, v); err != nil {
		return Reply{}, err
	}

	pb, err := d.player.Playback(ctx)
	if err != nil {
		logrus.WithError(err).Debug("player state unavailable after volume change")
		pb = &spotify.Playback{}
	}
	st := pb.States()
	st.VolumePercent = v
	logging.With(logging.Control).WithField("volume", v).Info("Volume changed")
	return StatesReply(st), nil
}

func (d *Dispatcher) listPlaylists(ctx context.Context, s *Session, _ string) (Reply, error) {
	s.setView(ViewPlaylists)
	l, err := d.player.Playlists(ctx)
	if err != nil {
		return Reply{}, err
	}
	logging.With(logging.Navigation).WithField("count", len(l.Entries)).Info("Listing playlists")
	return Reply{Type: TypeListing, Data: l}, nil
}

func (d *Dispatcher) search(ctx context.Context, s *Session, data string) (Reply, error) {
	s.setView(ViewSearch)
	kinds, query, _ := strings.Cut(data, " ")
	query = strings.TrimSpace(query)
	if kinds == "" || query == "" {
		return Reply{}, fmt.Errorf("%w: search expects <types> <query>", ErrBadArgument)
	}
	logging.With(logging.Search).Infof("Searching for %s: %s", kinds, query)

	l, err := d.player.Search(ctx, kinds, query)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Type: TypeListing, Data: l}, nil
}

func (d *Dispatcher) listQueue(ctx context.Context, s *Session, _ string) (Reply, error) {
	l, err := d.player.Queue(ctx)
	if err != nil {
		return Reply{}, err
	}
	s.setView(ViewQueue)
	logging.With(logging.Navigation).Info("Listing queue")
	return Reply{Type: TypeListing, Data: l}, nil
}

func (d *Dispatcher) displayAlbum(ctx context.Context, s *Session, data string) (Reply, error) {
	s.setView(ViewAlbum)
	if data == "" {
		return Reply{}, fmt.Errorf("%w: display_album expects <album uri>", ErrBadArgument)
	}
	l, err := d.player.Album(ctx, data)
	if err != nil {
		return Reply{}, err
	}
	logging.With(logging.Display).Infof("Displaying album: %s", l.Title)
	return Reply{Type: TypeListing, Data: l}, nil
}

func (d *Dispatcher) displayPlaylist(ctx context.Context, s *Session, data string) (Reply, error) {
	s.setView(ViewPlaylist)
	args := strings.Fields(data)
	if len(args) == 0 {
		return Reply{}, fmt.Errorf("%w: display_playlist expects <playlist uri> [offset]", ErrBadArgument)
	}
	offset := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return Reply{}, fmt.Errorf("%w: invalid offset %q", ErrBadArgument, args[1])
		}
		offset = n
	}

	l, err := d.player.PlaylistTracks(ctx, args[0], offset)
	if err != nil {
		return Reply{}, err
	}
	logging.With(logging.Display).Infof("Displaying playlist: %s", l.Title)
	return Reply{Type: TypeListing, Data: l}, nil
}

func (d *Dispatcher) displayArtist(ctx context.Context, s *Session, data string) (Reply, error) {
	s.setView(ViewArtist)
	if data == "" {
		return Reply{}, fmt.Errorf("%w: display_artist expects <artist uri>", ErrBadArgument)
	}
	page, err := d.player.Artist(ctx, data)
	if err != nil {
		return Reply{}, err
	}
	if page == nil {
		return Reply{}, fmt.Errorf("artist %s not found", data)
	}
	logging.With(logging.Display).Infof("Displaying artist: %s", page.Artist.Name)
	return Reply{Type: TypeArtist, Data: page}, nil
}

func (d *Dispatcher) currentItem(ctx context.Context) (*spotify.Track, error) {
	pb, err := d.player.CurrentlyPlaying(ctx)
	if err != nil {
		return nil, err
	}
	if pb.Item == nil {
		return nil, ErrNothingPlaying
	}
	return pb.Item, nil
}

func (d *Dispatcher) canvas(ctx context.Context, _ *Session, _ string) (Reply, error) {
	t, err := d.currentItem(ctx)
	if err != nil {
		return Reply{}, err
	}
	log := logging.With(logging.Canvas).WithField("track", t.Name)

	c, err := d.media.Canvas(ctx, t.ID)
	if err != nil {
		log.WithError(err).Info("No canvas found for current playing song")
		return Reply{Type: TypeCanvas, Data: MediaResult{}}, nil
	}
	log.Info("Canvas found")
	return Reply{Type: TypeCanvas, Data: MediaResult{Available: true, URL: c.VideoURL}}, nil
}

func (d *Dispatcher) artistImage(ctx context.Context, _ *Session, _ string) (Reply, error) {
	t, err := d.currentItem(ctx)
	if err != nil {
		return Reply{}, err
	}
	a := t.PrimaryArtist()
	if a == nil {
		return Reply{Type: TypeArtistImage, Data: MediaResult{}}, nil
	}
	log := logging.With(logging.Artist).WithField("artist", a.Name)

	u, err := d.media.ArtistImage(ctx, a.ID)
	if err != nil {
		log.WithError(err).Info("No artist image available")
		return Reply{Type: TypeArtistImage, Data: MediaResult{}}, nil
	}
	log.Info("Artist image found")
	return Reply{Type: TypeArtistImage, Data: MediaResult{Available: true, URL: u}}, nil
}

func (d *Dispatcher) trackColor(ctx context.Context, _ *Session, _ string) (Reply, error) {
	t, err := d.currentItem(ctx)
	if err != nil {
		return Reply{}, err
	}
	log := logging.With(logging.Color).WithField("track", t.Name)

	c, err := d.media.DominantColor(ctx, t.Album.ImageURL)
	if err != nil {
		log.WithError(err).Info("No track colour available")
		return Reply{Type: TypeTrackColor, Data: MediaResult{}}, nil
	}
	log.Infof("Track color: %s", c.Hex())
	return Reply{Type: TypeTrackColor, Data: MediaResult{
		Available: true,
		Color:     c.Hex(),
		ANSI:      media.NearestANSI(c).String(),
	}}, nil
}
