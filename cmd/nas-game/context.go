package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/0xADE/nas-game/client/nasgame"
	"github.com/0xADE/nas-game/internal/config"
	"github.com/0xADE/nas-game/internal/logging"
	"github.com/sirupsen/logrus"
)

type commandContext struct {
	serverFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     *logrus.Logger
}

func newCommandContext(serverFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		serverFlag:   serverFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("load configuration: %w", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.LogLevel = *c.logLevelFlag
		}
		c.config = cfg
		c.logger = logging.New(cfg.LogLevel, nil)
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *logrus.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

// serverURL resolves the flag, then NASGAME_SERVER_URL, then the settings file
func (c *commandContext) serverURL() string {
	if c.serverFlag != nil {
		if v := strings.TrimSpace(*c.serverFlag); v != "" {
			return v
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return ""
	}
	if cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	settings, err := config.LoadSettings(cfg.Layout.SettingsPath())
	if err != nil {
		settings = config.DefaultSettings()
	}
	return "http://" + settings.Addr()
}

func (c *commandContext) client() (*nasgame.Client, error) {
	return nasgame.NewClient(c.serverURL())
}
