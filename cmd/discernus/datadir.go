// ABOUTME: XDG-based data directory resolution for discernus persistent state.
// ABOUTME: Checks XDG_DATA_HOME and falls back to ~/.local/share/discernus.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolveDataDir returns the data directory to use, preferring an explicit
// override and falling back to the XDG-based default.
func resolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return defaultDataDir()
}

// defaultDataDir returns the default data directory for persistent state.
// It checks XDG_DATA_HOME first, then falls back to ~/.local/share/discernus.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "discernus"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "discernus"), nil
}
