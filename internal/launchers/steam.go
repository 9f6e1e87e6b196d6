package launchers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/andygrunwald/vdf"
)

// Steam ships runtimes and redistributables as apps; they are not games
var steamToolPrefixes = []string{
	"Proton",
	"Steam Linux Runtime",
	"Steamworks Common Redistributables",
	"Steamworks Shared",
}

// AppManifest is the part of appmanifest_<id>.acf we need
type AppManifest struct {
	AppID string
	Name  string
}

func parseVDF(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := vdf.NewParser(f).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// lookup finds key case-insensitively; Steam is inconsistent about casing
func lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func lookupString(m map[string]interface{}, key string) string {
	v, _ := lookup(m, key)
	s, _ := v.(string)
	return s
}

func lookupMap(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := lookup(m, key)
	sub, _ := v.(map[string]interface{})
	return sub
}

// ParseAppManifest reads one appmanifest_<id>.acf file
func ParseAppManifest(path string) (AppManifest, error) {
	m, err := parseVDF(path)
	if err != nil {
		return AppManifest{}, err
	}
	state := lookupMap(m, "AppState")
	if state == nil {
		return AppManifest{}, fmt.Errorf("%s: missing AppState", path)
	}
	am := AppManifest{
		AppID: strings.TrimSpace(lookupString(state, "appid")),
		Name:  strings.TrimSpace(lookupString(state, "name")),
	}
	if am.AppID == "" || am.Name == "" {
		return AppManifest{}, fmt.Errorf("%s: missing appid or name", path)
	}
	return am, nil
}

// LibraryFolders returns the steamapps directories of every library known
// to the Steam install at root. root itself is always included.
func LibraryFolders(root string) ([]string, error) {
	folders := []string{filepath.Join(root, "steamapps")}

	m, err := parseVDF(filepath.Join(root, "steamapps", "libraryfolders.vdf"))
	if err != nil {
		if os.IsNotExist(err) {
			return folders, nil
		}
		return folders, err
	}
	libs := lookupMap(m, "libraryfolders")
	if libs == nil {
		return folders, nil
	}

	keys := make([]string, 0, len(libs))
	for k := range libs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := map[string]bool{filepath.Clean(folders[0]): true}
	for _, k := range keys {
		var libPath string
		switch v := libs[k].(type) {
		case map[string]interface{}:
			libPath = lookupString(v, "path")
		case string:
			// pre-2021 format stores the path directly under a numeric key
			if _, err := strconv.Atoi(k); err == nil {
				libPath = v
			}
		}
		if libPath == "" {
			continue
		}
		dir := filepath.Clean(filepath.Join(libPath, "steamapps"))
		if !seen[dir] {
			seen[dir] = true
			folders = append(folders, dir)
		}
	}
	return folders, nil
}

func isSteamTool(name string) bool {
	for _, p := range steamToolPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ScanSteam emits every installed game from the Steam install at root
func ScanSteam(root string, out chan<- Discovered) error {
	defer close(out)

	folders, err := LibraryFolders(root)
	for _, dir := range folders {
		manifests, _ := filepath.Glob(filepath.Join(dir, "appmanifest_*.acf"))
		sort.Strings(manifests)
		for _, path := range manifests {
			am, err := ParseAppManifest(path)
			if err != nil || isSteamTool(am.Name) {
				continue
			}
			out <- discovered(am.Name, path, Steam, am.AppID)
		}
	}
	return err
}

// DefaultSteamRoot returns the usual Linux Steam install location
func DefaultSteamRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, candidate := range []string{
		filepath.Join(home, ".local/share/Steam"),
		filepath.Join(home, ".steam/steam"),
		filepath.Join(home, ".var/app/com.valvesoftware.Steam/.local/share/Steam"),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return filepath.Join(home, ".local/share/Steam")
}
