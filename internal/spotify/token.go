package spotify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNoCachedToken is returned by TokenStore.Load when no usable token is
// cached.
var ErrNoCachedToken = errors.New("no cached token")

// TokenStore persists the OAuth token as JSON. An empty path disables
// persistence.
type TokenStore struct {
	Path string
}

// Load reads the cached token. Tokens without a refresh token are treated as
// absent since they cannot outlive the current access token.
func (s TokenStore) Load() (*oauth2.Token, error) {
	if s.Path == "" {
		return nil, ErrNoCachedToken
	}
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCachedToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token cache: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token cache: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoCachedToken
	}
	return &tok, nil
}

// Save writes tok atomically with owner-only permissions.
func (s TokenStore) Save(tok *oauth2.Token) error {
	if s.Path == "" || tok == nil {
		return nil
	}
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".token-*")
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// savingTokenSource writes every newly issued token back to the store.
type savingTokenSource struct {
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func newSavingTokenSource(base oauth2.TokenSource, store TokenStore, current *oauth2.Token) *savingTokenSource {
	s := &savingTokenSource{base: base, store: store}
	if current != nil {
		s.last = current.AccessToken
	}
	return s
}

// Token implements oauth2.TokenSource.
func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			logrus.WithError(err).Warn("failed to cache refreshed spotify token")
		} else {
			logrus.WithField("expiry", tok.Expiry).Debug("spotify token refreshed")
		}
	}
	return tok, nil
}
