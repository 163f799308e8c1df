package files

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindUp searches dir and each of its ancestors for an entry with the given
// name, returning the full path of the first match.
func FindUp(name, dir string) (string, error) {
	curDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", dir, err)
	}
	for {
		entries, err := os.ReadDir(curDir)
		if err != nil {
			return "", fmt.Errorf("reading dir %q: %w", curDir, err)
		}
		for _, e := range entries {
			if name == e.Name() {
				return filepath.Join(curDir, name), nil
			}
		}
		newDir := filepath.Dir(curDir)
		if newDir == curDir {
			return "", fmt.Errorf("%q not found in %q or any parent", name, dir)
		}
		curDir = newDir
	}
}
