package catalog

import (
	"encoding/json"
	"os"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/fileutil"
)

const filePermissions = 0o644

// Load reads a catalog file. Failures are tagged FailedToReadFile or
// FailedToParse; callers are expected to fall back to an empty catalog.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, apperr.New(apperr.FailedToReadFile, "load catalog", path, err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, apperr.New(apperr.FailedToParse, "load catalog", path, err)
	}
	return c.Clone(), nil
}

// LoadOrEmpty loads path and returns an empty catalog together with the
// error when that fails, so startup never blocks on a bad file.
func LoadOrEmpty(path string) (Catalog, error) {
	c, err := Load(path)
	if err != nil {
		return Catalog{Entries: []Entry{}}, err
	}
	return c, nil
}

// Save serializes c and atomically replaces path
func Save(path string, c Catalog) error {
	c = c.Clone()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return apperr.New(apperr.FailedToSerialize, "save catalog", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, filePermissions); err != nil {
		return apperr.New(apperr.FailedToWrite, "save catalog", path, err)
	}
	return nil
}
