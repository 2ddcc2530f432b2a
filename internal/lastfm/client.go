// Package lastfm wraps the Last.fm API for headless scrobbling: session
// management, the desktop authorization callback flow, and track.scrobble
// submission.
package lastfm

import (
	"errors"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned when an operation requires authentication.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client wraps the Last.fm API for scrobbling operations.
type Client struct {
	api        *lastfm.Api
	apiKey     string
	apiSecret  string
	sessionKey string
}

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string) *Client {
	return &Client{
		api:       lastfm.New(apiKey, apiSecret),
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// SetSessionKey sets the authenticated session key.
func (c *Client) SetSessionKey(key string) {
	c.sessionKey = key
	c.api.SetSession(key)
}

// SessionKey returns the current session key.
func (c *Client) SessionKey() string {
	return c.sessionKey
}

// IsAuthenticated returns true if a session key is set.
func (c *Client) IsAuthenticated() bool {
	return c.sessionKey != ""
}

// CallbackAuthURL returns the authorization URL for the callback flow.
// Last.fm redirects the user's browser to callbackURL with an authorized
// token appended after they approve access.
func (c *Client) CallbackAuthURL(callbackURL string) string {
	return fmt.Sprintf("https://www.last.fm/api/auth/?api_key=%s&cb=%s", c.apiKey, callbackURL)
}

// GetSession exchanges an authorized token for a session key.
func (c *Client) GetSession(token string) (username, sessionKey string, err error) {
	err = c.api.LoginWithToken(token)
	if err != nil {
		return "", "", fmt.Errorf("get session: %w", err)
	}

	sessionKey = c.api.GetSessionKey()
	c.sessionKey = sessionKey

	userInfo, err := c.api.User.GetInfo(nil)
	if err != nil {
		// Session is valid but couldn't get username - still return session
		return "unknown", sessionKey, nil //nolint:nilerr // username is optional
	}

	return userInfo.Name, sessionKey, nil
}

// Scrobble submits a track play to Last.fm.
func (c *Client) Scrobble(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist":    track.Artist,
		"track":     track.Track,
		"timestamp": track.Timestamp.Unix(),
	}

	if track.Album != "" {
		params["album"] = track.Album
	}

	_, err := c.api.Track.Scrobble(params)
	if err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}
