package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
)

// expandPath expands a leading ~ in fileName to the user's home directory.
func expandPath(fileName string) (string, error) {
	p, err := homedir.Expand(fileName)
	if err != nil {
		return "", fmt.Errorf("error expanding config file path %q: %w", fileName, err)
	}
	return p, nil
}

// fileExists returns true if name exists and is not a directory.
func fileExists(name string) bool {
	info, err := os.Stat(name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
