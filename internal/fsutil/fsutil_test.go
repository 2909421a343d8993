package fsutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/deploymenttheory/go-simplefs/internal/osutil"
)

func TestCreateDirIfNotExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := CreateDirIfNotExists(dir); err != nil {
		t.Fatalf("CreateDirIfNotExists failed: %v", err)
	}
	if !DirExists(dir) {
		t.Error("directory was not created")
	}
	if err := CreateDirIfNotExists(dir); err != nil {
		t.Errorf("second call should be a no-op, got: %v", err)
	}
}

func TestCreateFileWithDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.img")

	f, err := CreateFileWithDirs(path)
	if err != nil {
		t.Fatalf("CreateFileWithDirs failed: %v", err)
	}
	f.Close()

	if !FileExists(path) {
		t.Error("file was not created")
	}
	if FileExists(filepath.Dir(path)) || !DirExists(filepath.Dir(path)) {
		t.Error("parent directory misclassified")
	}
}

func TestGetConfigDirDevMode(t *testing.T) {
	t.Setenv("SIMPLEFS_DEV", "true")

	dir, err := GetConfigDir("simplefs")
	if err != nil {
		t.Fatal(err)
	}
	if dir != "config" {
		t.Errorf("GetConfigDir() = %q in dev mode; want %q", dir, "config")
	}
}

func TestGetLogDir(t *testing.T) {
	t.Setenv("SIMPLEFS_DEV", "true")
	if dir, err := GetLogDir("simplefs"); err != nil || dir != "logs" {
		t.Errorf("GetLogDir() = %q, %v in dev mode; want %q", dir, err, "logs")
	}

	if runtime.GOOS == osutil.Windows || runtime.GOOS == osutil.MacOS {
		return
	}
	t.Setenv("SIMPLEFS_DEV", "")
	t.Setenv("SIMPLEFS_ENV", "")
	t.Setenv("DEV", "")
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	if dir, err := GetLogDir("simplefs"); err != nil || dir != filepath.Join(state, "simplefs", "logs") {
		t.Errorf("GetLogDir() = %q, %v; want it under XDG_STATE_HOME", dir, err)
	}
}
