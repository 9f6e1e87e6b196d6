package nasgame

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/0xADE/nas-game/internal/config"
)

// ServerURLEnv overrides the server address for clients
const ServerURLEnv = "NASGAME_SERVER_URL"

// resolveBaseURL picks the server URL: explicit value, then the
// environment, then the settings file, then the default address.
func resolveBaseURL(explicit string) (string, error) {
	raw := strings.TrimSpace(explicit)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv(ServerURLEnv))
	}
	if raw == "" {
		settings := config.DefaultSettings()
		if cfg, err := config.Load(); err == nil {
			if s, err := config.LoadSettings(cfg.Layout.SettingsPath()); err == nil {
				settings = s
			}
		}
		raw = "http://" + settings.Addr()
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
