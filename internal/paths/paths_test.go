package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDirXDGOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-config", "kitt") {
		t.Errorf("ConfigDir = %q, want /tmp/xdg-config/kitt", dir)
	}
}

func TestDataDirXDGOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-data", "kitt") {
		t.Errorf("DataDir = %q, want /tmp/xdg-data/kitt", dir)
	}
}

func TestDefaultDirsUnderHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	cfgDir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if !strings.HasSuffix(cfgDir, filepath.Join(".config", "kitt")) {
		t.Errorf("ConfigDir = %q, want suffix .config/kitt", cfgDir)
	}

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if !strings.HasSuffix(dataDir, filepath.Join(".local", "share", "kitt")) {
		t.Errorf("DataDir = %q, want suffix .local/share/kitt", dataDir)
	}
}

func TestWorkDir(t *testing.T) {
	dir, err := WorkDir()
	if err != nil {
		t.Fatalf("WorkDir: %v", err)
	}
	if !strings.HasSuffix(dir, ".kitt") {
		t.Errorf("WorkDir = %q, want suffix .kitt", dir)
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	path, err := ConfigFile()
	if err != nil {
		t.Fatalf("ConfigFile: %v", err)
	}
	if path != filepath.Join("/tmp/xdg-config", "kitt", "config.yaml") {
		t.Errorf("ConfigFile = %q", path)
	}
}

func TestTranscriptDB(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	path, err := TranscriptDB()
	if err != nil {
		t.Fatalf("TranscriptDB: %v", err)
	}
	if path != filepath.Join("/tmp/xdg-data", "kitt", "transcript.db") {
		t.Errorf("TranscriptDB = %q", path)
	}
}
