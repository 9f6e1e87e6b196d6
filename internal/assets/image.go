package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xADE/nas-game/internal/apperr"
)

// ImageExtensions are the extensions a cached cover may carry
var ImageExtensions = []string{"webp", "jpg", "jpeg", "png"}

// ImageExists reports whether dir holds name.<ext> for any ImageExtensions entry
func ImageExists(dir, name string) bool {
	for _, ext := range ImageExtensions {
		info, err := os.Stat(filepath.Join(dir, name+"."+ext))
		if err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// ValidateName rejects names that cannot be used as a file stem in the
// staging directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperr.New(apperr.InvalidPath, "validate name", name, errors.New("empty name"))
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return apperr.New(apperr.InvalidPath, "validate name", name, errors.New("name contains a path separator"))
	case name == "." || strings.Contains(name, ".."):
		return apperr.New(apperr.InvalidPath, "validate name", name, errors.New("name escapes the staging directory"))
	}
	return nil
}

func supportedExt(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range ImageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// IsImageFile reports whether name carries one of ImageExtensions
func IsImageFile(name string) bool {
	return supportedExt(filepath.Ext(name))
}
