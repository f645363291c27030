package utils

import (
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Exists reports whether the path exists.
func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil || !os.IsNotExist(err)
}

// CreateNestedDirectory creates the directory and any missing parents.
func CreateNestedDirectory(path string) error {
	return errors.Wrapf(os.MkdirAll(path, 0o755), "failed to create directory %s", path)
}

// ListDir returns the sorted file names inside a directory.
func ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", path)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
