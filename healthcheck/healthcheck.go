// Command healthcheck probes the bridge's /health endpoint and exits 1 when
// it does not answer "OK" in time.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultHost    = "localhost"
	defaultPort    = "6969"
	requestTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := probe(ctx, healthURL()); err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
}

// healthURL follows the bridge's BIND_HOST and SERVER_PORT settings. A
// wildcard bind address is probed on localhost.
func healthURL() string {
	host := os.Getenv("BIND_HOST")
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = defaultHost
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = defaultPort
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

func probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != "OK" {
		return fmt.Errorf("unexpected body %q", body)
	}
	return nil
}
