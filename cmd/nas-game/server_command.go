package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/assets"
	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/0xADE/nas-game/internal/config"
	"github.com/0xADE/nas-game/internal/imagewatch"
	"github.com/0xADE/nas-game/internal/transcode"
	"github.com/0xADE/nas-game/server"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type serverFlags struct {
	start          bool
	info           bool
	writeDefaults  bool
	optimizeImages bool
	downloadImages []string
}

func newServerCommand(ctx *commandContext) *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run or inspect the catalog server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flags.start && !flags.info && !flags.writeDefaults && !flags.optimizeImages && len(flags.downloadImages) == 0 {
				return cmd.Help()
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServerCommand(cmd, cfg, ctx.log(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.start, "start", false, "Start the HTTP server")
	cmd.Flags().BoolVar(&flags.info, "info", false, "Print the server configuration")
	cmd.Flags().BoolVar(&flags.writeDefaults, "default", false, "Write default server settings")
	cmd.Flags().BoolVar(&flags.optimizeImages, "optimize-images", false, "Transcode staged images and exit")
	cmd.Flags().StringSliceVar(&flags.downloadImages, "download-images", nil, "Download covers for the named games and exit")

	return cmd
}

func runServerCommand(cmd *cobra.Command, cfg *config.Config, log *logrus.Logger, flags serverFlags) error {
	layout := cfg.Layout
	if err := layout.Prepare(); err != nil {
		return err
	}

	settings, err := config.LoadSettings(layout.SettingsPath())
	if err != nil {
		log.WithError(err).Warn("server settings unavailable, using defaults")
		settings = config.DefaultSettings()
	}

	if flags.writeDefaults {
		if err := config.WriteSettings(layout.SettingsPath(), nil); err != nil {
			log.WithError(err).Error("failed to write default settings")
		} else {
			log.WithField("path", layout.SettingsPath()).Info("default settings written")
		}
	}

	if flags.info {
		fmt.Fprintln(cmd.OutOrStdout(), renderInfo(cfg, settings))
	}

	if !flags.start && !flags.optimizeImages && len(flags.downloadImages) == 0 {
		return nil
	}

	svc, err := openServices(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close(log)

	if len(flags.downloadImages) > 0 {
		res := svc.fetcher.FetchMissing(cmd.Context(), flags.downloadImages, layout.StagingDir())
		fmt.Fprintf(cmd.OutOrStdout(), "fetched %d, skipped %d, failed %d\n", len(res.Fetched), len(res.Skipped), len(res.Failed))
	}

	if flags.optimizeImages {
		rep, err := svc.pool.TranscodeAll(cmd.Context(), layout.StagingDir(), layout.OutputDir())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "converted %d, failed %d, ignored %d\n", len(rep.Converted), len(rep.Failed), len(rep.Ignored))
	}

	if flags.start {
		return serve(cfg, log, settings, svc)
	}
	return nil
}

func serve(cfg *config.Config, log *logrus.Logger, settings config.ServerSettings, svc *services) error {
	layout := cfg.Layout

	lib, err := catalog.LoadOrEmpty(layout.LibraryPath())
	if err != nil {
		log.WithError(err).WithField("kind", apperr.KindOf(err)).Warn("game library unavailable, starting empty")
	}
	store := catalog.NewStore(lib)
	log.WithField("entries", store.Len()).Info("game library loaded")

	srv, err := server.NewServer(settings.Addr(), server.Options{
		Layout:    layout,
		Store:     store,
		Fetcher:   svc.fetcher,
		Optimizer: svc.pool,
		Status:    svc.index,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AutoOptimize {
		w, err := imagewatch.New(layout.StagingDir(), func(path string) {
			if err := svc.pool.Do(ctx, path, layout.OutputDir(), &transcode.DefaultSize); err != nil {
				log.WithError(err).WithField("file", filepath.Base(path)).Warn("auto optimize failed")
			}
		}, 0, log)
		if err != nil {
			return fmt.Errorf("watch staging directory: %w", err)
		}
		go w.Run(ctx)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		if err := <-serverErr; err != nil {
			log.WithError(err).Error("error stopping server")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("server stopped")
	return nil
}

func renderInfo(cfg *config.Config, settings config.ServerSettings) string {
	layout := cfg.Layout

	entries := "unreadable"
	if lib, err := catalog.Load(layout.LibraryPath()); err == nil {
		entries = strconv.Itoa(len(lib.Entries))
	}
	staged, stagedBytes := countImages(layout.StagingDir())
	optimized, optimizedBytes := countImages(layout.OutputDir())

	apiKey := "set"
	if cfg.APIKeyMissing {
		apiKey = "missing (placeholder)"
	}

	rows := [][]string{
		{"Listen address", settings.Addr()},
		{"Base directory", layout.Base},
		{"Settings file", layout.SettingsPath()},
		{"Library file", layout.LibraryPath()},
		{"Library entries", entries},
		{"Staged images", fmt.Sprintf("%d (%s)", staged, humanize.Bytes(stagedBytes))},
		{"Optimized images", fmt.Sprintf("%d (%s)", optimized, humanize.Bytes(optimizedBytes))},
		{"Fetch index", layout.FetchIndexPath()},
		{"SteamGridDB API key", apiKey},
		{"Fetch concurrency", strconv.Itoa(cfg.FetchConcurrency)},
		{"Fetch timeout", cfg.FetchTimeout.String()},
		{"Transcode workers", strconv.Itoa(cfg.TranscodeWorkers)},
		{"Auto optimize", strconv.FormatBool(cfg.AutoOptimize)},
	}
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

func countImages(dir string) (int, uint64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var n int
	var total uint64
	for _, e := range entries {
		if !e.Type().IsRegular() || !assets.IsImageFile(e.Name()) {
			continue
		}
		if info, err := e.Info(); err == nil {
			n++
			total += uint64(info.Size())
		}
	}
	return n, total
}
