package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir returns the kitt configuration directory.
//
// Resolution order:
//  1. $XDG_CONFIG_HOME/kitt (if set)
//  2. os.UserConfigDir()/kitt (Windows)
//  3. ~/.config/kitt (macOS, Linux)
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kitt"), nil
	}
	if runtime.GOOS == "windows" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("paths: config dir: %w", err)
		}
		return filepath.Join(dir, "kitt"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("paths: config dir: %w", err)
	}
	return filepath.Join(home, ".config", "kitt"), nil
}

// DataDir returns the kitt data directory for transcripts, history, and logs.
//
// Resolution order:
//  1. $XDG_DATA_HOME/kitt (if set)
//  2. %LOCALAPPDATA%/kitt (Windows)
//  3. ~/.local/share/kitt (macOS, Linux)
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "kitt"), nil
	}
	if runtime.GOOS == "windows" {
		dir := os.Getenv("LOCALAPPDATA")
		if dir == "" {
			var err error
			dir, err = os.UserCacheDir()
			if err != nil {
				return "", fmt.Errorf("paths: data dir: %w", err)
			}
		}
		return filepath.Join(dir, "kitt"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("paths: data dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "kitt"), nil
}

// WorkDir returns the installation working directory (~/.kitt).
// Downloaded artifacts and build output live here; the installer steps
// use it as their working directory and idempotency-check target.
func WorkDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("paths: work dir: %w", err)
	}
	return filepath.Join(home, ".kitt"), nil
}

// ConfigFile returns the path to the config.yaml file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// TranscriptDB returns the path to the SQLite transcript database.
func TranscriptDB() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcript.db"), nil
}
