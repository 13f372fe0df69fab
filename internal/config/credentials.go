package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	placeholderClientID = "ClientIdHere"
	placeholderSecret   = "SecretHere"
)

// CredentialsTemplate is written on first run when no credentials file exists.
const CredentialsTemplate = `# You'll find your Client ID and Client Secret in your Spotify application developer panel under Settings.
Client ID: ` + placeholderClientID + `
Client Secret: ` + placeholderSecret + `

# Under the same settings menu you'll find a "Redirect" section, which lets you hook up a link for the API to redirect you to once it's connected
Redirect URI: http://localhost:8000/callback

# The port ID allows you to choose what port this websocket will connect through
# You MUST have the same port ID hooked up in Resonite as you put in here!
Port ID: 6969
`

// Credentials is the content of the credentials file.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Port         string
}

// EnsureCredentialsFile writes the template to path when it does not exist
// and returns ErrTemplateCreated. An existing file is left untouched.
func EnsureCredentialsFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat credentials file: %w", err)
	}
	if err := os.WriteFile(path, []byte(CredentialsTemplate), 0o600); err != nil {
		return fmt.Errorf("create credentials template: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrTemplateCreated, path)
}

// ParseCredentials parses "Key: value" lines. Keys are matched
// case-insensitively, comment and blank lines are skipped and angle brackets
// around values are removed.
func ParseCredentials(content string) (Credentials, error) {
	if strings.Contains(content, placeholderClientID) || strings.Contains(content, placeholderSecret) {
		return Credentials{}, ErrTemplateUnedited
	}

	var c Credentials
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.NewReplacer("<", "", ">", "").Replace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "client id":
			c.ClientID = value
		case "client secret", "secret id":
			c.ClientSecret = value
		case "redirect uri":
			c.RedirectURI = value
		case "port id", "port":
			c.Port = value
		}
	}
	if err := sc.Err(); err != nil {
		return Credentials{}, fmt.Errorf("scan credentials: %w", err)
	}
	return c, nil
}
