// Package fsutil holds the small filesystem helpers shared by the model
// registry, the manager and the CLI.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// ResolveDir expands '~', makes path absolute and checks it is a directory.
func ResolveDir(path string) (string, error) {
	p, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("models dir: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("models dir %s is not a directory", abs)
	}
	return abs, nil
}

// IsRegularFile reports whether path names an existing non-directory file.
func IsRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// SizeMB returns the size of the file at path in whole megabytes, never less
// than 1.
func SizeMB(path string) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 1, err
	}
	if fi.IsDir() {
		return 1, fmt.Errorf("%s is a directory", path)
	}
	mb := int(fi.Size() / (1 << 20))
	if mb <= 0 {
		mb = 1
	}
	return mb, nil
}
