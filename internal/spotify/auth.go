package spotify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested at login.
var Scopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryRead,
}

const callbackPage = `<html><body style="font-family:sans-serif"><h1>Spotify login complete</h1><p>You can close this tab and return to Resonite.</p></body></html>`

// Authenticator runs the authorization-code flow and produces HTTP clients
// whose tokens refresh automatically and are cached on disk.
type Authenticator struct {
	auth        *spotifyauth.Authenticator
	conf        *oauth2.Config
	redirectURI string
	store       TokenStore
	httpClient  *http.Client
	openBrowser func(string) error
}

// NewAuthenticator creates an Authenticator. httpClient carries the token
// exchange and refresh requests.
func NewAuthenticator(clientID, clientSecret, redirectURI string, store TokenStore, httpClient *http.Client) *Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Authenticator{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(clientID),
			spotifyauth.WithClientSecret(clientSecret),
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithScopes(Scopes...),
		),
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		redirectURI: redirectURI,
		store:       store,
		httpClient:  httpClient,
		openBrowser: open.Run,
	}
}

// Login returns an authorized HTTP client. A cached token is reused when
// present; otherwise the user is sent through the browser login.
func (a *Authenticator) Login(ctx context.Context) (*http.Client, error) {
	tok, err := a.store.Load()
	if err == nil {
		logrus.WithField("cache", a.store.Path).Info("using cached spotify token")
		return a.Client(ctx, tok), nil
	}
	if !errors.Is(err, ErrNoCachedToken) {
		logrus.WithError(err).Warn("ignoring unreadable token cache")
	}

	tok, err = a.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(tok); err != nil {
		logrus.WithError(err).Warn("failed to cache spotify token")
	}
	return a.Client(ctx, tok), nil
}

// Client builds an HTTP client around tok. ctx must outlive the client since
// token refreshes run under it.
func (a *Authenticator) Client(ctx context.Context, tok *oauth2.Token) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	src := newSavingTokenSource(a.conf.TokenSource(ctx, tok), a.store, tok)
	return oauth2.NewClient(ctx, src)
}

type tokenResult struct {
	tok *oauth2.Token
	err error
}

// authorize serves the redirect URI locally, opens the Spotify consent page
// and waits for the callback.
func (a *Authenticator) authorize(ctx context.Context) (*oauth2.Token, error) {
	u, err := url.Parse(a.redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect uri: %w", err)
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "80")
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", host)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback on %s: %w", host, err)
	}

	state := uuid.NewString()
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	results := make(chan tokenResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "" && r.URL.Query().Get("error") == "" {
			http.NotFound(w, r)
			return
		}
		tok, err := a.auth.Token(exchangeCtx, state, r)
		select {
		case results <- tokenResult{tok: tok, err: err}:
		default:
		}
		if err != nil {
			http.Error(w, "Spotify login failed: "+err.Error(), http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(callbackPage)); err != nil {
			logrus.WithError(err).Debug("failed to write oauth callback page")
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("oauth callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Debug("oauth callback server shutdown")
		}
	}()

	authURL := a.auth.AuthURL(state)
	logrus.WithField("url", authURL).Info("log in to spotify in your browser")
	if err := a.openBrowser(authURL); err != nil {
		logrus.WithError(err).Warn("could not open browser, visit the login url manually")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("spotify login: %w", res.err)
		}
		logrus.Info("spotify login complete")
		return res.tok, nil
	}
}
