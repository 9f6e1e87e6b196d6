package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/fileutil"
)

const (
	DefaultIP   = "127.0.0.1"
	DefaultPort = 53317
)

// ServerSettings is read once at startup and never mutated afterwards
type ServerSettings struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

func DefaultSettings() ServerSettings {
	return ServerSettings{IP: DefaultIP, Port: DefaultPort}
}

// Addr returns the listen address
func (s ServerSettings) Addr() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// LoadSettings reads the settings file. A missing ip falls back to the
// default; an out of range port is a parse failure.
func LoadSettings(path string) (ServerSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServerSettings{}, apperr.New(apperr.FailedToReadFile, "load settings", path, err)
	}
	var s ServerSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return ServerSettings{}, apperr.New(apperr.FailedToParse, "load settings", path, err)
	}
	s.IP = strings.TrimSpace(s.IP)
	if s.IP == "" {
		s.IP = DefaultIP
	}
	if s.Port <= 0 || s.Port > 65535 {
		return ServerSettings{}, apperr.New(apperr.FailedToParse, "load settings", path,
			fmt.Errorf("port %d out of range", s.Port))
	}
	return s, nil
}

// WriteSettings writes s, or the defaults when s is nil
func WriteSettings(path string, s *ServerSettings) error {
	settings := DefaultSettings()
	if s != nil {
		settings = *s
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return apperr.New(apperr.FailedToSerialize, "write settings", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return apperr.New(apperr.FailedToWrite, "write settings", path, err)
	}
	return nil
}
