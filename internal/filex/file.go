// Package filex provides small filesystem helpers shared by the upload
// pipeline and its quarantine area.
package filex

import (
	"fmt"
	"os"
)

// EnsureDir creates dir (and any parents) with the given permissions if it
// does not exist yet. Existing directories are left untouched.
func EnsureDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether path exists. Errors other than "not exist" are
// treated as existing so that callers fail later with a real error.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
