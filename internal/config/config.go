package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCredentialsPath = "IDs.txt"
	DefaultCanvasAPIURL    = "https://spotifycanvas-indol.vercel.app/api/canvas"

	defaultBindHost     = "localhost"
	defaultPollInterval = 3 * time.Second
	defaultMarket       = "from_token"
	defaultTokenCache   = ".spotify_token.json"
)

var (
	// ErrTemplateCreated is returned when the credentials file did not exist
	// and a template was written in its place.
	ErrTemplateCreated = errors.New("credentials template created")
	// ErrTemplateUnedited is returned when the credentials file still holds
	// the template placeholders.
	ErrTemplateUnedited = errors.New("credentials file still contains template values")
	ErrMissingField     = errors.New("missing credentials field")
	ErrInvalidPort      = errors.New("invalid port")
	ErrPortConflict     = errors.New("websocket port collides with redirect uri port")
)

// Config holds the application configuration.
type Config struct {
	BindHost       string
	ServerPort     int
	AllowedOrigins []string
	LogLevel       logrus.Level
	PollInterval   time.Duration
	CanvasAPIURL   string
	Spotify        struct {
		ClientID     string
		ClientSecret string
		RedirectURI  string
		Market       string
		TokenCache   string
		DeviceName   string
	}
}

// Addr is the websocket listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.ServerPort))
}

// Load reads the credentials file at path, applies environment overrides
// (including a .env file if present) and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment variables")
	}

	if path == "" {
		path = DefaultCredentialsPath
	}
	if err := EnsureCredentialsFile(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := ParseCredentials(string(raw))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.Spotify.ClientID = envOr("SPOTIFY_CLIENT_ID", creds.ClientID)
	cfg.Spotify.ClientSecret = envOr("SPOTIFY_CLIENT_SECRET", creds.ClientSecret)
	cfg.Spotify.RedirectURI = envOr("SPOTIFY_REDIRECT_URI", creds.RedirectURI)
	cfg.Spotify.Market = envOr("SPOTIFY_MARKET", defaultMarket)
	cfg.Spotify.TokenCache = envOr("TOKEN_CACHE", defaultTokenCache)
	cfg.Spotify.DeviceName = os.Getenv("SPOTIFY_DEVICE")

	port := envOr("SERVER_PORT", creds.Port)
	if port == "" {
		return nil, fmt.Errorf("%w: Port ID", ErrMissingField)
	}
	cfg.ServerPort, err = parsePort(port)
	if err != nil {
		return nil, err
	}

	cfg.BindHost = envOr("BIND_HOST", defaultBindHost)
	cfg.CanvasAPIURL = envOr("CANVAS_API_URL", DefaultCanvasAPIURL)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.PollInterval = defaultPollInterval
	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			logrus.WithField("value", raw).Warn("invalid POLL_INTERVAL, using default")
		} else {
			cfg.PollInterval = d
		}
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = logrus.DebugLevel
	case "warn":
		cfg.LogLevel = logrus.WarnLevel
	case "error":
		cfg.LogLevel = logrus.ErrorLevel
	default:
		cfg.LogLevel = logrus.InfoLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Spotify.ClientID == "":
		return fmt.Errorf("%w: Client ID", ErrMissingField)
	case c.Spotify.ClientSecret == "":
		return fmt.Errorf("%w: Client Secret", ErrMissingField)
	case c.Spotify.RedirectURI == "":
		return fmt.Errorf("%w: Redirect URI", ErrMissingField)
	}

	u, err := url.Parse(c.Spotify.RedirectURI)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid redirect uri %q", c.Spotify.RedirectURI)
	}
	if u.Port() == strconv.Itoa(c.ServerPort) {
		return fmt.Errorf("%w: %d (use a different port than the callback uri)", ErrPortConflict, c.ServerPort)
	}
	return nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	return p, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
