package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"resonite-spotify/internal/spotify"
)

// deviceLister lists Spotify Connect devices.
type deviceLister interface {
	Devices(ctx context.Context) ([]spotify.Device, error)
}

// printDevices renders the available devices as a table.
func printDevices(ctx context.Context, w io.Writer, lister deviceLister) error {
	devices, err := lister.Devices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No Spotify devices found. Open Spotify on any device and try again.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Name", "Type", "Status", "Volume", "Device ID"})
	for i, d := range devices {
		status := "Idle"
		if d.Active {
			status = color.New(color.FgGreen).Sprint("Active")
		}
		if d.Restricted {
			status += " (restricted)"
		}
		t.AppendRow(table.Row{
			i + 1,
			color.New(color.Bold).Sprint(d.Name),
			d.Type,
			status,
			fmt.Sprintf("%d%%", d.VolumePercent),
			d.ID,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
