package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultHome = "~/.local/share/nas-game/server"
	// PlaceholderAPIKey is substituted when STEAM_GRID_API_KEY is unset
	PlaceholderAPIKey = "key"
)

type env struct {
	Home             string        `envconfig:"NASGAME_HOME" default:"~/.local/share/nas-game/server"`
	SteamGridAPIKey  string        `envconfig:"STEAM_GRID_API_KEY"`
	SteamGridBaseURL string        `envconfig:"STEAM_GRID_BASE_URL" default:"https://www.steamgriddb.com/api/v2"`
	FetchConcurrency int           `envconfig:"NASGAME_FETCH_CONCURRENCY" default:"5"`
	FetchTimeout     time.Duration `envconfig:"NASGAME_FETCH_TIMEOUT" default:"30s"`
	TranscodeWorkers int           `envconfig:"NASGAME_TRANSCODE_WORKERS" default:"4"`
	AutoOptimize     bool          `envconfig:"NASGAME_AUTO_OPTIMIZE" default:"false"`
	LogLevel         string        `envconfig:"NASGAME_LOG_LEVEL" default:"info"`
	ServerURL        string        `envconfig:"NASGAME_SERVER_URL"`
}

// Config is built once at startup and passed to whoever needs it
type Config struct {
	Layout           Layout
	SteamGridAPIKey  string
	SteamGridBaseURL string
	FetchConcurrency int
	FetchTimeout     time.Duration
	TranscodeWorkers int
	AutoOptimize     bool
	LogLevel         string
	ServerURL        string

	// APIKeyMissing is set when the placeholder key was substituted
	APIKeyMissing bool
}

// Load reads ./.env, the process environment, and then <home>/.env.
// Variables already present in the environment always win.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	home := expandPath(e.Home)
	if err := loadDotEnv(filepath.Join(home, ".env")); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg := &Config{
		Layout:           NewLayout(expandPath(e.Home)),
		SteamGridAPIKey:  strings.TrimSpace(e.SteamGridAPIKey),
		SteamGridBaseURL: strings.TrimRight(strings.TrimSpace(e.SteamGridBaseURL), "/"),
		FetchConcurrency: e.FetchConcurrency,
		FetchTimeout:     e.FetchTimeout,
		TranscodeWorkers: e.TranscodeWorkers,
		AutoOptimize:     e.AutoOptimize,
		LogLevel:         e.LogLevel,
		ServerURL:        strings.TrimSpace(e.ServerURL),
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.SteamGridAPIKey == "" {
		c.SteamGridAPIKey = PlaceholderAPIKey
		c.APIKeyMissing = true
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 5
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.TranscodeWorkers <= 0 {
		c.TranscodeWorkers = 4
	}
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func expandPath(path string) string {
	if path == "" {
		path = defaultHome
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return strings.Replace(path, "~", home, 1)
	}
	return path
}
