package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	spotifyapi "github.com/zmb3/spotify/v2"
)

// ErrNoDevice is returned when Spotify reports no available playback device.
var ErrNoDevice = errors.New("no spotify device available, open spotify on any device")

// Devices lists the user's Spotify Connect devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	devs, err := c.api.PlayerDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	out := make([]Device, 0, len(devs))
	for _, d := range devs {
		out = append(out, convertDevice(d))
	}
	return out, nil
}

// EnsureDevice picks the device commands are routed to when none is active:
// the active device if any, then the preferred device by name, then the
// first unrestricted device.
func (c *Client) EnsureDevice(ctx context.Context) (Device, error) {
	devs, err := c.Devices(ctx)
	if err != nil {
		return Device{}, err
	}
	d, ok := pickDevice(devs, c.preferredDevice)
	if !ok {
		return Device{}, ErrNoDevice
	}

	logrus.WithFields(logrus.Fields{"device": d.Name, "type": d.Type, "active": d.Active}).Debug("spotify device selected")
	return d, nil
}

func pickDevice(devs []Device, preferred string) (Device, bool) {
	for _, d := range devs {
		if d.Active {
			return d, true
		}
	}
	if preferred != "" {
		for _, d := range devs {
			if strings.EqualFold(d.Name, preferred) && !d.Restricted {
				return d, true
			}
		}
	}
	for _, d := range devs {
		if !d.Restricted {
			return d, true
		}
	}
	return Device{}, false
}

// control runs a player call. When Spotify reports there is no active device
// the call is retried once after transferring playback to EnsureDevice's pick.
func (c *Client) control(ctx context.Context, action string, call func(*spotifyapi.PlayOptions) error) error {
	err := call(&spotifyapi.PlayOptions{})
	if err == nil {
		return nil
	}
	if !isNoActiveDevice(err) {
		return fmt.Errorf("%s: %w", action, err)
	}

	d, derr := c.EnsureDevice(ctx)
	if derr != nil {
		return fmt.Errorf("%s: %w", action, derr)
	}
	id := spotifyapi.ID(d.ID)
	if !d.Active {
		if err := c.api.TransferPlayback(ctx, id, false); err != nil {
			return fmt.Errorf("%s: transfer playback to %s: %w", action, d.Name, err)
		}
	}

	logrus.WithFields(logrus.Fields{"action": action, "device": d.Name}).Info("retrying on selected device")
	if err := call(&spotifyapi.PlayOptions{DeviceID: &id}); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func isNoActiveDevice(err error) bool {
	var se spotifyapi.Error
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound
	}
	var pse *spotifyapi.Error
	if errors.As(err, &pse) {
		return pse.Status == http.StatusNotFound
	}
	return false
}
