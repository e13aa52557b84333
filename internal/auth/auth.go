// Package auth provides game-server credentials and session URLs.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// ErrNoToken is returned when a token file holds no token.
var ErrNoToken = errors.New("token is empty")

// Credentials holds the bearer token issued by the account backend.
type Credentials struct {
	Token string // Access token from /auth/login
}

// LoadCredentials builds credentials from an inline token or a token file.
// The inline token wins when both are set. Both empty yields anonymous
// credentials.
func LoadCredentials(token, tokenPath string) (*Credentials, error) {
	if token != "" {
		return &Credentials{Token: strings.TrimSpace(token)}, nil
	}
	if tokenPath == "" {
		return &Credentials{}, nil
	}

	t, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	return &Credentials{Token: t}, nil
}

// LoadToken reads a bearer token from a file, ignoring surrounding whitespace.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNoToken
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Anonymous reports whether the credentials carry no token.
func (c *Credentials) Anonymous() bool {
	return c == nil || c.Token == ""
}

// Header returns the WebSocket handshake headers for these credentials.
func (c *Credentials) Header() http.Header {
	h := http.Header{}
	if !c.Anonymous() {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	return h
}

// SessionURL returns the game-session endpoint for room. The server reads
// the room and token from the query string; existing query parameters on
// base are kept.
func SessionURL(base, room string, creds *Credentials) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ws url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported ws url scheme %q", u.Scheme)
	}

	q := u.Query()
	if room != "" {
		q.Set("room", room)
	}
	if !creds.Anonymous() {
		q.Set("token", creds.Token)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
