package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// SystemDir is the hidden directory catset keeps inside an fs store.
const SystemDir = ".catset"

// FindRoot recursively looks upwards for a dataset root indicator.
// Indicators are: the .catset directory, a .git directory, or a catset.yaml
// / catset.json config file. It returns the absolute path of the first
// directory that has one.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, SystemDir) || hasFile(dir, ".git") ||
			hasFile(dir, "catset.yaml") || hasFile(dir, "catset.json") {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

// ResolvePath makes the fs store path absolute. The default path "." is
// resolved to the enclosing dataset root, so commands work from any
// subdirectory; without a root it stays the working directory.
func ResolvePath(path string) (string, error) {
	if path == "" || path == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		if root, err := FindRoot(cwd); err == nil {
			return root, nil
		}
		return cwd, nil
	}
	return filepath.Abs(path)
}

func hasFile(dir, name string) bool {
	path := filepath.Join(dir, name)
	_, err := os.Stat(path)
	return err == nil
}
