//go:build !windows

package log

import (
	"os"
	"path/filepath"
)

func getDefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "pulse"), nil
}
