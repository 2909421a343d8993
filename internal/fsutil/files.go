// fsutil/files.go
package fsutil

import (
	"os"
	"path/filepath"
)

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CreateDir creates a directory if it doesn't exist
func CreateDir(path string, perm os.FileMode) error {
	if DirExists(path) {
		return nil
	}
	return os.MkdirAll(path, perm)
}

// CreateDirIfNotExists creates a directory with standard permissions if it doesn't exist
func CreateDirIfNotExists(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return CreateDir(path, 0755)
}

// CreateFileWithDirs creates (or truncates) a file, creating its parent directories first
func CreateFileWithDirs(path string) (*os.File, error) {
	if err := CreateDirIfNotExists(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return os.Create(path)
}
