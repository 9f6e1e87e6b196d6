package config

import (
	"os"
	"path/filepath"

	"github.com/0xADE/nas-game/internal/apperr"
)

const (
	SettingsFile   = "server_settings.json"
	LibraryFile    = "game_library.json"
	FetchIndexFile = "fetch_index.db"
	LockFile       = "server.lock"
)

// Layout resolves every on-disk location under the base directory
type Layout struct {
	Base string
}

func NewLayout(base string) Layout {
	return Layout{Base: filepath.Clean(base)}
}

func (l Layout) SettingsPath() string   { return filepath.Join(l.Base, SettingsFile) }
func (l Layout) LibraryPath() string    { return filepath.Join(l.Base, LibraryFile) }
func (l Layout) FetchIndexPath() string { return filepath.Join(l.Base, FetchIndexFile) }
func (l Layout) LockPath() string       { return filepath.Join(l.Base, LockFile) }
func (l Layout) ImagesDir() string      { return filepath.Join(l.Base, "images") }

// StagingDir holds downloaded, untranscoded covers
func (l Layout) StagingDir() string { return filepath.Join(l.ImagesDir(), "non-optimized") }

// OutputDir holds transcoded covers
func (l Layout) OutputDir() string { return filepath.Join(l.ImagesDir(), "optimized") }

// Prepare creates the base, staging and output directories
func (l Layout) Prepare() error {
	for _, dir := range []string{l.Base, l.StagingDir(), l.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.New(apperr.FailedToCreateFolder, "prepare layout", dir, err)
		}
	}
	return nil
}
