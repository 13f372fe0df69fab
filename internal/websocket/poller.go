package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/bridge"
	"resonite-spotify/internal/logging"
	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
)

const (
	defaultPollInterval = 3 * time.Second
	// nudgeDelay gives Spotify time to apply a command before the next poll.
	nudgeDelay = 500 * time.Millisecond
)

// PlaybackSource fetches the player state.
type PlaybackSource interface {
	Playback(ctx context.Context) (*spotify.Playback, error)
}

// TrackEnricher looks up the media extras of a track.
type TrackEnricher interface {
	Enrich(ctx context.Context, t *spotify.Track) media.Enrichment
}

// Listener receives every successful poll.
type Listener interface {
	PlaybackUpdated(pb *spotify.Playback, e media.Enrichment)
}

type nopListener struct{}

func (nopListener) PlaybackUpdated(*spotify.Playback, media.Enrichment) {}

// Poller is responsible for fetching data from the Spotify API periodically.
type Poller struct {
	source   PlaybackSource
	media    TrackEnricher
	hub      *Hub
	listener Listener
	interval time.Duration
	nudge    chan struct{}

	mu         sync.RWMutex
	lastState  *spotify.Playback
	lastExtras media.Enrichment
}

// NewPoller creates a new Poller. listener may be nil.
func NewPoller(source PlaybackSource, enricher TrackEnricher, hub *Hub, interval time.Duration, listener Listener) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if listener == nil {
		listener = nopListener{}
	}
	return &Poller{
		source:   source,
		media:    enricher,
		hub:      hub,
		listener: listener,
		interval: interval,
		nudge:    make(chan struct{}, 1),
	}
}

// Run starts the polling loop. It must be run in a separate goroutine.
func (p *Poller) Run(ctx context.Context) {
	logrus.WithField("interval", p.interval).Info("poller started")
	defer logrus.Info("poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	soon := time.NewTimer(nudgeDelay)
	soon.Stop()
	defer soon.Stop()

	p.UpdateState(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.UpdateState(ctx)
		case <-p.nudge:
			soon.Reset(nudgeDelay)
		case <-soon.C:
			p.UpdateState(ctx)
		}
	}
}

// Nudge schedules an early poll, typically after a command changed playback.
func (p *Poller) Nudge() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// UpdateState fetches the latest state, compares it, and broadcasts if needed.
func (p *Poller) UpdateState(ctx context.Context) {
	current, err := p.source.Playback(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("failed to get playback state")
		}
		return
	}

	p.mu.RLock()
	prev, extras := p.lastState, p.lastExtras
	p.mu.RUnlock()

	changed := hasStateChanged(prev, current)
	if trackChanged(prev, current) {
		extras = p.media.Enrich(ctx, current.Item)
		logTrackChange(current, extras)
	}

	p.mu.Lock()
	p.lastState, p.lastExtras = current, extras
	p.mu.Unlock()

	if changed {
		logrus.WithFields(logrus.Fields{
			"isPlaying": current.IsPlaying,
			"track":     trackName(current),
			"clients":   p.hub.Len(),
		}).Debug("state changed, broadcasting update")
		p.hub.Broadcast(bridge.NowPlayingPush(current, extras))
	}
	p.listener.PlaybackUpdated(current, extras)
}

// Greeting returns the messages a new client receives: the playback states
// followed by the last known track, if any. Before the first poll the state
// is fetched on demand.
func (p *Poller) Greeting(ctx context.Context) []bridge.Reply {
	p.mu.RLock()
	last, extras := p.lastState, p.lastExtras
	p.mu.RUnlock()

	if last == nil {
		pb, err := p.source.Playback(ctx)
		if err != nil {
			logrus.WithError(err).Warn("failed to get playback state for new client")
			return []bridge.Reply{bridge.StatesReply(spotify.States{RepeatState: spotify.RepeatOff})}
		}
		last = pb
		extras = media.Enrichment{}
	}

	replies := []bridge.Reply{bridge.StatesReply(last.States())}
	if last.Item != nil {
		replies = append(replies, bridge.NowPlayingPush(last, extras))
	}
	return replies
}

func trackName(pb *spotify.Playback) string {
	if pb.Item == nil {
		return "Nothing"
	}
	return pb.Item.Name
}

func logTrackChange(pb *spotify.Playback, e media.Enrichment) {
	if pb.Item == nil {
		logging.With(logging.Playback).Info("Nothing is playing")
		return
	}
	logging.With(logging.Playback).Infof("Now playing: %s - %s", pb.Item.Name, pb.Item.ArtistNames())
	if e.CanvasURL != "" {
		logging.With(logging.Canvas).Infof("Canvas URL found: %s", shorten(e.CanvasURL, 30))
	} else {
		logging.With(logging.Canvas).Info("No canvas found for current playing song")
	}
	if e.ArtistImageURL != "" {
		logging.With(logging.Artist).Infof("Artist image URL: %s", shorten(e.ArtistImageURL, 30))
	}
	if e.Color != "" {
		logging.With(logging.Color).Infof("Track color: %s", e.Color)
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
