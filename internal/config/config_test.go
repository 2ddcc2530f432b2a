package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chtmp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(originalWd) })
	return tmpDir
}

func TestLoad_TomlConfig(t *testing.T) {
	chtmp(t)

	configContent := `
database_path = "/var/lib/ytmscrobble/scrobbles.db"

[lastfm]
api_key = "key-from-toml"
api_secret = "secret-from-toml"

[ytmusic]
endpoint = "http://localhost:8080/history"
auth_header = "SAPISIDHASH blob"

[pacing]
scrobble_delay_seconds = 60
retention_hours = 12
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lastfm.APIKey != "key-from-toml" {
		t.Errorf("Lastfm.APIKey = %q, want %q", cfg.Lastfm.APIKey, "key-from-toml")
	}
	if cfg.Ytmusic.Endpoint != "http://localhost:8080/history" {
		t.Errorf("Ytmusic.Endpoint = %q", cfg.Ytmusic.Endpoint)
	}
	if !cfg.HasLastfmConfig() {
		t.Error("HasLastfmConfig() = false, want true")
	}
	if !cfg.HasYtmusicConfig() {
		t.Error("HasYtmusicConfig() = false, want true")
	}

	pacing := cfg.GetPacing()
	if pacing.ScrobbleDelay != 60*time.Second {
		t.Errorf("ScrobbleDelay = %v, want 60s", pacing.ScrobbleDelay)
	}
	if pacing.Retention != 12*time.Hour {
		t.Errorf("Retention = %v, want 12h", pacing.Retention)
	}
	// Unset knobs keep their defaults.
	if pacing.TimestampOffset != 30*time.Second {
		t.Errorf("TimestampOffset = %v, want 30s default", pacing.TimestampOffset)
	}
}

func TestLoad_DotenvSecrets(t *testing.T) {
	chtmp(t)

	envContent := `LAST_FM_API=key-from-env-file
LAST_FM_SECRET=secret-from-env-file
LAST_FM_USERNAME=alice
LASTFM_SESSION=session-from-env-file
YTMUSIC_ENDPOINT=http://localhost:8080/history
`
	if err := os.WriteFile(".env", []byte(envContent), 0o600); err != nil {
		t.Fatalf("could not write .env file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lastfm.APIKey != "key-from-env-file" {
		t.Errorf("Lastfm.APIKey = %q, want value from .env", cfg.Lastfm.APIKey)
	}
	if cfg.Lastfm.Username != "alice" {
		t.Errorf("Lastfm.Username = %q, want %q", cfg.Lastfm.Username, "alice")
	}
	if cfg.Lastfm.SessionKey != "session-from-env-file" {
		t.Errorf("Lastfm.SessionKey = %q, want value from .env", cfg.Lastfm.SessionKey)
	}
}

func TestLoad_EnvOverridesDotenv(t *testing.T) {
	chtmp(t)

	if err := os.WriteFile(".env", []byte("LAST_FM_API=key-from-env-file\n"), 0o600); err != nil {
		t.Fatalf("could not write .env file: %v", err)
	}
	t.Setenv("LAST_FM_API", "key-from-process-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lastfm.APIKey != "key-from-process-env" {
		t.Errorf("Lastfm.APIKey = %q, want the process env to win", cfg.Lastfm.APIKey)
	}
}

func TestLoad_EnvOverridesToml(t *testing.T) {
	chtmp(t)

	configContent := `
[lastfm]
api_key = "key-from-toml"
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	t.Setenv("LAST_FM_API", "key-from-process-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lastfm.APIKey != "key-from-process-env" {
		t.Errorf("Lastfm.APIKey = %q, want the process env to win", cfg.Lastfm.APIKey)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	tmpDir := chtmp(t)

	explicit := filepath.Join(tmpDir, "other.toml")
	if err := os.WriteFile(explicit, []byte("database_path = \"/tmp/explicit.db\"\n"), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabasePath != "/tmp/explicit.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "/tmp/explicit.db")
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	chtmp(t)

	if err := os.WriteFile("config.toml", []byte("invalid = [[["), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

func TestGetPacing_Defaults(t *testing.T) {
	cfg := Config{}
	pacing := cfg.GetPacing()

	if pacing.ScrobbleDelay != 90*time.Second {
		t.Errorf("ScrobbleDelay = %v, want 90s", pacing.ScrobbleDelay)
	}
	if pacing.APICallDelay != 500*time.Millisecond {
		t.Errorf("APICallDelay = %v, want 500ms", pacing.APICallDelay)
	}
	if pacing.TimestampOffset != 30*time.Second {
		t.Errorf("TimestampOffset = %v, want 30s", pacing.TimestampOffset)
	}
	if pacing.DuplicateWindow != 2*time.Hour {
		t.Errorf("DuplicateWindow = %v, want 2h", pacing.DuplicateWindow)
	}
	if pacing.Retention != 6*time.Hour {
		t.Errorf("Retention = %v, want 6h", pacing.Retention)
	}
}

func TestGetPacing_InvalidValues(t *testing.T) {
	cfg := Config{
		Pacing: PacingConfig{
			ScrobbleDelaySeconds: -10,
			RetentionHours:       -1,
		},
	}
	pacing := cfg.GetPacing()

	if pacing.ScrobbleDelay != 90*time.Second {
		t.Errorf("ScrobbleDelay with invalid value = %v, want 90s default", pacing.ScrobbleDelay)
	}
	if pacing.Retention != 6*time.Hour {
		t.Errorf("Retention with invalid value = %v, want 6h default", pacing.Retention)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tilde expands to home", input: "~/scrobbles.db", expected: filepath.Join(home, "scrobbles.db")},
		{name: "absolute path unchanged", input: "/var/lib/db", expected: "/var/lib/db"},
		{name: "relative path unchanged", input: "data/db", expected: "data/db"},
		{name: "empty string unchanged", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := expandPath(tt.input); result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
