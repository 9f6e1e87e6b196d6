package main

import (
	"fmt"

	"github.com/0xADE/nas-game/internal/assets"
	"github.com/0xADE/nas-game/internal/config"
	"github.com/0xADE/nas-game/internal/fetchindex"
	"github.com/0xADE/nas-game/internal/steamgrid"
	"github.com/0xADE/nas-game/internal/transcode"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// services are the long-lived pieces shared by the server and offline runs
type services struct {
	lock    *flock.Flock
	index   *fetchindex.Index
	fetcher *assets.Fetcher
	pool    *transcode.Pool
}

// openServices takes the data directory lock and opens everything that
// touches files under it. Only one process may hold it at a time.
func openServices(cfg *config.Config, log *logrus.Logger) (*services, error) {
	if err := cfg.Layout.Prepare(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.Layout.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", cfg.Layout.LockPath(), err)
	}
	if !ok {
		return nil, fmt.Errorf("another nas-game server is using %s", cfg.Layout.Base)
	}

	if cfg.APIKeyMissing {
		log.Warn("STEAM_GRID_API_KEY is not set; using a placeholder key, cover downloads will fail authentication")
	}
	sg, err := steamgrid.New(cfg.SteamGridAPIKey, cfg.SteamGridBaseURL)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	index, err := fetchindex.Open(cfg.Layout.FetchIndexPath())
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open fetch index: %w", err)
	}

	return &services{
		lock:  lock,
		index: index,
		fetcher: assets.NewFetcher(sg,
			assets.WithConcurrency(cfg.FetchConcurrency),
			assets.WithTimeout(cfg.FetchTimeout),
			assets.WithRecorder(index),
			assets.WithLogger(log),
		),
		pool: transcode.NewPool(cfg.TranscodeWorkers, log),
	}, nil
}

func (s *services) Close(log *logrus.Logger) {
	s.pool.Close()
	if err := s.index.Close(); err != nil {
		log.WithError(err).Warn("failed to close fetch index")
	}
	if err := s.lock.Unlock(); err != nil {
		log.WithError(err).Warn("failed to release lock")
	}
}
