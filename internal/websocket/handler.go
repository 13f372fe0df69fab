package websocket

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/bridge"
)

// newWebsocketHandler upgrades the request and starts the client's pumps.
// Commands run under ctx, which outlives the request.
func (s *Server) newWebsocketHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).WithField("origin", r.Header.Get("Origin")).Warn("websocket upgrade failed")
			return
		}

		client := newClient(uuid.NewString(), s.hub, conn)
		if !s.admit(ctx, client) {
			client.close()
			return
		}

		go client.writePump()
		go client.readPump(ctx, s.handleMessage)
	}
}

// admit queues the greeting and then registers the client, so broadcasts
// always follow the greeting. The greeting fits in the send buffer.
func (s *Server) admit(ctx context.Context, c *Client) bool {
	for _, reply := range s.poller.Greeting(ctx) {
		c.enqueue(reply)
	}
	return s.hub.Register(c)
}

// handleMessage runs one command and queues the reply. Commands that change
// playback trigger an early poll so every client sees the result.
func (s *Server) handleMessage(ctx context.Context, c *Client, msg string) {
	reply := s.dispatcher.Handle(ctx, c.session, msg)
	switch reply.Type {
	case bridge.TypeAck, bridge.TypeStates:
		s.poller.Nudge()
	}
	c.enqueue(reply)
}

// healthHandler responds to Docker health checks.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		logrus.WithError(err).Warn("failed to write health check response")
	}
}

// upgradeRequiredHandler answers plain HTTP requests to the websocket path.
func upgradeRequiredHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Upgrade", "websocket")
	w.Header().Set("Connection", "Upgrade")
	w.WriteHeader(http.StatusUpgradeRequired)
	if _, err := w.Write([]byte("426 Upgrade Required")); err != nil {
		logrus.WithError(err).Warn("failed to write upgrade required response")
	}
}
