package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/config"
	"resonite-spotify/internal/logging"
	"resonite-spotify/internal/media"
	"resonite-spotify/internal/spotify"
	"resonite-spotify/internal/ui"
	"resonite-spotify/internal/websocket"
)

var (
	red       = color.New(color.FgRed, color.Bold)
	yellow    = color.New(color.FgYellow)
	cyan      = color.New(color.FgCyan)
	boldWhite = color.New(color.FgWhite, color.Bold)
)

type flags struct {
	ids      string
	debug    bool
	headless bool
	devices  bool
	logFile  string
}

func main() {
	var f flags
	flag.StringVar(&f.ids, "ids", config.DefaultCredentialsPath, "Path to the credentials file")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&f.headless, "headless", false, "Log to stderr instead of showing the terminal dashboard")
	flag.BoolVar(&f.devices, "devices", false, "List Spotify Connect devices and exit")
	flag.StringVar(&f.logFile, "log-file", "", "Also append log output to this file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		explain(f, err)
		os.Exit(1)
	}
}

func explain(f flags, err error) {
	switch {
	case errors.Is(err, config.ErrTemplateCreated):
		yellow.Printf("Created %s.\n", f.ids)
		fmt.Println("Fill in your Spotify Client ID, Client Secret, Redirect URI and Port ID, then start again.")
	case errors.Is(err, config.ErrTemplateUnedited):
		yellow.Printf("%s still contains the template values.\n", f.ids)
		fmt.Println("Replace them with the values from your Spotify developer dashboard.")
	default:
		red.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, err := config.Load(f.ids)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if f.debug {
		level = logrus.DebugLevel
	}
	out, err := logging.Setup(logging.Options{Level: level, Output: os.Stderr, LogFile: f.logFile})
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close log file: %v\n", err)
		}
	}()

	httpClient := spotify.NewHTTPClient(0)
	auth := spotify.NewAuthenticator(
		cfg.Spotify.ClientID,
		cfg.Spotify.ClientSecret,
		cfg.Spotify.RedirectURI,
		spotify.TokenStore{Path: cfg.Spotify.TokenCache},
		httpClient,
	)
	cyan.Println("Connecting to Spotify...")
	authorized, err := auth.Login(ctx)
	if err != nil {
		return fmt.Errorf("spotify login: %w", err)
	}
	client := spotify.NewClient(authorized,
		spotify.WithMarket(cfg.Spotify.Market),
		spotify.WithPreferredDevice(cfg.Spotify.DeviceName),
	)

	if f.devices {
		return printDevices(ctx, os.Stdout, client)
	}

	resolver := media.NewResolver(httpClient, cfg.CanvasAPIURL, client)
	opts := websocket.Options{
		Addr:           cfg.Addr(),
		AllowedOrigins: cfg.AllowedOrigins,
		PollInterval:   cfg.PollInterval,
	}

	if f.headless || !isatty.IsTerminal(os.Stdout.Fd()) {
		boldWhite.Printf("Websocket listening on ws://%s\n", cfg.Addr())
		return websocket.NewServer(opts, client, resolver).Run(ctx)
	}
	return runDashboard(ctx, out, opts, client, resolver)
}

// runDashboard serves the websocket while the terminal UI owns the screen.
// Quitting the UI stops the server and a server failure closes the UI.
func runDashboard(ctx context.Context, out *logging.Output, opts websocket.Options, client *spotify.Client, resolver *media.Resolver) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var srv *websocket.Server
	dash := ui.New(ui.Options{
		Colors:  resolver,
		Refresh: func() { srv.Nudge() },
	})
	opts.Observer, opts.Listener = dash, dash
	srv = websocket.NewServer(opts, client, resolver)

	out.SetConsole(io.Discard)
	logrus.AddHook(dash.Hook())
	logrus.WithField("addr", opts.Addr).Info("Websocket server starting")

	errc := make(chan error, 1)
	go func() {
		err := srv.Run(ctx)
		cancel()
		errc <- err
	}()

	uiErr := dash.Run(ctx)
	cancel()
	return errors.Join(uiErr, <-errc)
}
