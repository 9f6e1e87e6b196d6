package launchers

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DesktopEntry is the subset of a .desktop file used for game discovery
type DesktopEntry struct {
	Name       string
	Exec       string
	Categories []string
	NoDisplay  bool
	Path       string
}

// DefaultDesktopDirs lists the per-user and system application directories
func DefaultDesktopDirs() []string {
	dirs := []string{
		"/usr/share/applications",
		"/usr/local/share/applications",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local/share/applications"),
			filepath.Join(home, "Desktop"),
		)
	}
	return dirs
}

// ParseDesktopFile parses the [Desktop Entry] group of a .desktop file
func ParseDesktopFile(path string) (*DesktopEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entry := &DesktopEntry{Path: path}

	scanner := bufio.NewScanner(file)
	var inDesktopEntry bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inDesktopEntry = strings.Trim(line, "[]") == "Desktop Entry"
			continue
		}
		if !inDesktopEntry {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Name":
			entry.Name = value
		case "Exec":
			entry.Exec = value
		case "NoDisplay":
			entry.NoDisplay = strings.EqualFold(value, "true")
		case "Categories":
			for _, cat := range strings.Split(value, ";") {
				if cat = strings.TrimSpace(cat); cat != "" {
					entry.Categories = append(entry.Categories, cat)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if entry.Name == "" && entry.Exec == "" {
		return nil, fmt.Errorf("missing required fields")
	}
	if entry.Name == "" {
		entry.Name = strings.TrimSuffix(filepath.Base(path), ".desktop")
	}
	return entry, nil
}

var (
	steamRunRe  = regexp.MustCompile(`steam://rungameid/(\d+)`)
	heroicRunRe = regexp.MustCompile(`heroic://launch/(?:(legendary|gog|nile|sideload)/)?([^\s"']+)`)
	lutrisRunRe = regexp.MustCompile(`lutris:rungame(?:id)?/([^\s"']+)`)
)

// DetectLauncher maps an Exec line to the launcher that runs it
func DetectLauncher(exec string) (launcher, id string, ok bool) {
	if m := steamRunRe.FindStringSubmatch(exec); m != nil {
		return Steam, m[1], true
	}
	if m := heroicRunRe.FindStringSubmatch(exec); m != nil {
		switch m[1] {
		case "legendary":
			return Epic, m[2], true
		case "gog":
			return GOG, m[2], true
		default:
			return Heroic, m[2], true
		}
	}
	if m := lutrisRunRe.FindStringSubmatch(exec); m != nil {
		return Lutris, m[1], true
	}
	return "", "", false
}

// ScanDesktop walks dirs for .desktop files that start a game through a
// known launcher. Unreadable directories and files are skipped.
func ScanDesktop(dirs []string, out chan<- Discovered) error {
	defer close(out)
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(path, ".desktop") {
				return nil
			}

			entry, err := ParseDesktopFile(path)
			if err != nil || entry.NoDisplay {
				return nil
			}
			launcher, id, ok := DetectLauncher(entry.Exec)
			if !ok {
				return nil
			}
			out <- discovered(entry.Name, path, launcher, id)
			return nil
		})
	}
	return nil
}
