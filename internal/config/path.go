package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns where docket keeps its Pebble data when dataDir is
// unset: $XDG_DATA_HOME/docket, then the platform's conventional location,
// then ~/.docket. Without a home directory it returns ./data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "docket")
	}

	candidates := []struct{ parent, dir string }{
		{"/var/lib", "/var/lib/docket"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "Docket")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "Docket")},
	}
	for _, c := range candidates {
		if isDir(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(home, ".docket")
}

// ResolveDataDir returns cfg.DataDir, or DefaultDataDir when it is empty.
func (c Config) ResolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
