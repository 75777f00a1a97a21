package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
telegram:
  token: "12345:abcdef"
access:
  admins: [5815294733]
  required_channels: ["@first", "@second"]
  movies_channel: "@movies"
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "12345:abcdef" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if got := cfg.Access.RequiredChannels; len(got) != 2 || got[0] != "@first" || got[1] != "@second" {
		t.Fatalf("required channels = %v", got)
	}

	// Defaults.
	if cfg.Broadcast.RatePerSec != 30 {
		t.Fatalf("broadcast rate default = %d, want 30", cfg.Broadcast.RatePerSec)
	}
	if cfg.PollTimeout().Seconds() != 10 {
		t.Fatalf("poll timeout default = %v", cfg.PollTimeout())
	}
	if cfg.Storage.Path == "" {
		t.Fatal("expected storage path default")
	}
}

func TestLoadUnknownKeyRejected(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+"\nsurprise: true\n"))
	if err == nil {
		t.Fatal("expected unknown key to fail strict decode")
	}
}

func TestLoadMissingTokenRejected(t *testing.T) {
	_, err := Load(writeConfig(t, `
access:
  admins: [1]
`))
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestLoadNoAdminsRejected(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  token: "t"
`))
	if err == nil || !strings.Contains(err.Error(), "admins") {
		t.Fatalf("expected admins error, got %v", err)
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("KINOUZ_TOKEN", "env-token")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
}

func TestSnapshot(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dyn := cfg.Snapshot()
	if !dyn.IsAdmin(5815294733) {
		t.Fatal("expected admin")
	}
	if dyn.IsAdmin(123) {
		t.Fatal("unexpected admin")
	}
	if dyn.MoviesChannel != "@movies" {
		t.Fatalf("movies channel = %q", dyn.MoviesChannel)
	}

	// Snapshot must be detached from later config mutation.
	cfg.Access.RequiredChannels[0] = "@mutated"
	if dyn.RequiredChannels[0] != "@first" {
		t.Fatal("snapshot shares backing array with config")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+`
storage:
  busy_timeout: "not-a-duration"
`))
	if err == nil {
		t.Fatal("expected duration parse error")
	}
}
