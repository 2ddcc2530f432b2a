// Package config loads settings from config.toml and the secret bundle
// from .env-style sources. File values layer in order (last wins):
// ~/.config/ytmscrobble/config.toml, ./config.toml, ./.env, then the
// process environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	DatabasePath string `koanf:"database_path"` // empty means the XDG default

	Lastfm  LastfmConfig  `koanf:"lastfm"`
	Ytmusic YtmusicConfig `koanf:"ytmusic"`
	Pacing  PacingConfig  `koanf:"pacing"`
}

// LastfmConfig holds the Last.fm credential bundle.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	Username   string `koanf:"username"`
	SessionKey string `koanf:"session_key"`
}

// YtmusicConfig holds the history source settings.
type YtmusicConfig struct {
	Endpoint   string `koanf:"endpoint"`    // ytmusicapi-compatible history feed URL
	AuthHeader string `koanf:"auth_header"` // browser-auth blob, optional
}

// PacingConfig holds submission timing knobs. Zero values fall back to the
// defaults in GetPacing.
type PacingConfig struct {
	ScrobbleDelaySeconds   int `koanf:"scrobble_delay_seconds"`
	APICallDelayMillis     int `koanf:"api_call_delay_ms"`
	TimestampOffsetSeconds int `koanf:"timestamp_offset_seconds"`
	DuplicateWindowHours   int `koanf:"duplicate_window_hours"`
	RetentionHours         int `koanf:"retention_hours"`
}

// Pacing is PacingConfig resolved to durations with defaults applied.
type Pacing struct {
	ScrobbleDelay   time.Duration // pause between consecutive submissions
	APICallDelay    time.Duration // pause between auxiliary API calls
	TimestampOffset time.Duration // backdate applied to submitted timestamps
	DuplicateWindow time.Duration // lookback for duplicate checks
	Retention       time.Duration // age past which stored records are purged
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for _, p := range configPaths(path) {
		if _, err := os.Stat(p); err == nil {
			if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	// Secrets: .env in the working directory, then the process environment.
	if _, err := os.Stat(".env"); err == nil {
		if err := k.Load(file.Provider(".env"), dotenv.Parser()); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Flat env-style names win over config file sections. The LAST_FM_* /
	// LASTFM_* spellings match what earlier versions of this tool used.
	overlay := map[string]*string{
		"LAST_FM_API":      &cfg.Lastfm.APIKey,
		"LAST_FM_SECRET":   &cfg.Lastfm.APISecret,
		"LAST_FM_USERNAME": &cfg.Lastfm.Username,
		"LASTFM_SESSION":   &cfg.Lastfm.SessionKey,
		"YTMUSIC_ENDPOINT": &cfg.Ytmusic.Endpoint,
		"YTMUSIC_AUTH":     &cfg.Ytmusic.AuthHeader,
	}
	for key, dst := range overlay {
		if v := k.String(key); v != "" {
			*dst = v
		}
	}

	if cfg.DatabasePath != "" {
		cfg.DatabasePath = expandPath(cfg.DatabasePath)
	}

	return cfg, nil
}

func configPaths(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}

	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ytmscrobble", "config.toml"))
	}
	// ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")
	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm API credentials are configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// HasYtmusicConfig returns true if a history source is configured.
func (c *Config) HasYtmusicConfig() bool {
	return c.Ytmusic.Endpoint != ""
}

// GetPacing returns the pacing configuration with defaults applied.
func (c *Config) GetPacing() Pacing {
	p := Pacing{
		ScrobbleDelay:   90 * time.Second,
		APICallDelay:    500 * time.Millisecond,
		TimestampOffset: 30 * time.Second,
		DuplicateWindow: 2 * time.Hour,
		Retention:       6 * time.Hour,
	}

	if c.Pacing.ScrobbleDelaySeconds > 0 {
		p.ScrobbleDelay = time.Duration(c.Pacing.ScrobbleDelaySeconds) * time.Second
	}
	if c.Pacing.APICallDelayMillis > 0 {
		p.APICallDelay = time.Duration(c.Pacing.APICallDelayMillis) * time.Millisecond
	}
	if c.Pacing.TimestampOffsetSeconds > 0 {
		p.TimestampOffset = time.Duration(c.Pacing.TimestampOffsetSeconds) * time.Second
	}
	if c.Pacing.DuplicateWindowHours > 0 {
		p.DuplicateWindow = time.Duration(c.Pacing.DuplicateWindowHours) * time.Hour
	}
	if c.Pacing.RetentionHours > 0 {
		p.Retention = time.Duration(c.Pacing.RetentionHours) * time.Hour
	}

	return p
}
