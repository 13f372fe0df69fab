package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"resonite-spotify/internal/spotify"
)

type fakeLister struct {
	devices []spotify.Device
	err     error
}

func (f fakeLister) Devices(context.Context) ([]spotify.Device, error) {
	return f.devices, f.err
}

func TestPrintDevices(t *testing.T) {
	var buf bytes.Buffer
	lister := fakeLister{devices: []spotify.Device{
		{ID: "abc123", Name: "Desk PC", Type: "Computer", Active: true, VolumePercent: 70},
		{ID: "def456", Name: "Kitchen", Type: "Speaker", Restricted: true},
	}}
	if err := printDevices(context.Background(), &buf, lister); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Desk PC", "Computer", "Active", "70%", "abc123", "Kitchen", "(restricted)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDevices_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printDevices(context.Background(), &buf, fakeLister{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No Spotify devices found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintDevices_Error(t *testing.T) {
	boom := errors.New("boom")
	err := printDevices(context.Background(), &bytes.Buffer{}, fakeLister{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
