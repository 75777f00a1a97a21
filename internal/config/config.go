// Package config loads the bot configuration from a YAML (or JSON) file with
// strict key checking, applies environment overrides for secrets, and exposes
// the hot-reloadable access section as an atomically swappable snapshot.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Access    AccessConfig    `json:"access"`
	Storage   StorageConfig   `json:"storage"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Logging   LoggingConfig   `json:"logging"`
	Health    HealthConfig    `json:"health"`
	Digest    DigestConfig    `json:"digest"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

// AccessConfig is the hot-reloadable part: who administers the bot and which
// channels every user must belong to.
type AccessConfig struct {
	Admins []int64 `json:"admins"`
	// RequiredChannels are checked in the order listed; the join prompt
	// renders missing channels in the same order.
	RequiredChannels []string `json:"required_channels"`
	// MoviesChannel is the overflow channel offered when a code is not found
	// ("@name"; empty disables the link-out).
	MoviesChannel string `json:"movies_channel"`
}

type StorageConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type BroadcastConfig struct {
	RatePerSec int `json:"rate_per_sec"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type HealthConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Metrics bool   `json:"metrics,omitempty"`
}

// DigestConfig controls the optional scheduled stats digest for admins.
// Schedule is a cron expression evaluated in Timezone.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// envOverrides keeps secrets out of the config file.
type envOverrides struct {
	Token       string `env:"KINOUZ_TOKEN"`
	StoragePath string `env:"KINOUZ_DB_PATH"`
}

// Load reads, strictly decodes, defaults and validates the config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	j, format, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(j))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", format, err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, err
	}
	if ov.Token != "" {
		cfg.Telegram.Token = ov.Token
	}
	if ov.StoragePath != "" {
		cfg.Storage.Path = ov.StoragePath
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeout == "" {
		c.Telegram.PollTimeout = "10s"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./kinouz.db"
	}
	if c.Broadcast.RatePerSec <= 0 {
		c.Broadcast.RatePerSec = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Health.Addr == "" {
		c.Health.Addr = "0.0.0.0:8080"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required (or set KINOUZ_TOKEN)")
	}
	if _, err := parseDuration(c.Telegram.PollTimeout); err != nil {
		return fmt.Errorf("telegram.poll_timeout: %w", err)
	}
	if c.Storage.BusyTimeout != "" {
		if _, err := parseDuration(c.Storage.BusyTimeout); err != nil {
			return fmt.Errorf("storage.busy_timeout: %w", err)
		}
	}
	if len(c.Access.Admins) == 0 {
		return errors.New("access.admins must list at least one user id")
	}
	return nil
}

func (c *Config) PollTimeout() time.Duration {
	d, _ := parseDuration(c.Telegram.PollTimeout)
	return d
}

func (c *Config) StorageBusyTimeout() time.Duration {
	if c.Storage.BusyTimeout == "" {
		return 0
	}
	d, _ := parseDuration(c.Storage.BusyTimeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("duration must not be negative")
	}
	return d, nil
}

// Dynamic is the snapshot of the hot-reloadable settings, read by the router
// on every message and swapped atomically by the watcher.
type Dynamic struct {
	Admins           map[int64]bool
	RequiredChannels []string
	MoviesChannel    string
	AdminIDs         []int64
}

func (d *Dynamic) IsAdmin(userID int64) bool {
	return d != nil && d.Admins[userID]
}

// Snapshot builds the Dynamic view of this config.
func (c *Config) Snapshot() *Dynamic {
	admins := make(map[int64]bool, len(c.Access.Admins))
	ids := make([]int64, 0, len(c.Access.Admins))
	for _, id := range c.Access.Admins {
		if !admins[id] {
			ids = append(ids, id)
		}
		admins[id] = true
	}
	return &Dynamic{
		Admins:           admins,
		RequiredChannels: append([]string(nil), c.Access.RequiredChannels...),
		MoviesChannel:    c.Access.MoviesChannel,
		AdminIDs:         ids,
	}
}
