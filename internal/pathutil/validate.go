// Package pathutil keeps artifact reads inside the results directory.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/ci/build/results/lru_result.txt" becomes ".../results/lru_result.txt".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ArtifactPath joins an artifact name onto the results directory and checks
// that the result stays inside it. Names must be relative; "..", absolute
// paths, NUL bytes and symlinked parents that escape the directory are
// rejected. The artifact itself need not exist.
func ArtifactPath(resultsDir, name string) (string, error) {
	switch {
	case name == "":
		return "", fmt.Errorf("artifact name is empty")
	case strings.ContainsRune(name, '\x00'):
		return "", fmt.Errorf("artifact name %q contains a null byte", name)
	case filepath.IsAbs(name):
		return "", fmt.Errorf("artifact name %q must be relative to the results directory", name)
	}

	path := filepath.Join(resultsDir, name)
	if err := within(path, resultsDir); err != nil {
		return "", err
	}
	return path, nil
}

// within reports an error unless path, after cleaning and resolving
// symlinks on its parents, lies inside dir.
func within(path, dir string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve artifact path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("cannot resolve results directory: %w", err)
	}

	// The artifact may not exist; resolve its parent and re-append the name.
	parent, err := resolveExisting(filepath.Dir(absPath))
	if err != nil {
		return err
	}
	base, err := resolveExisting(absDir)
	if err != nil {
		return err
	}

	resolved := filepath.Join(parent, filepath.Base(absPath))
	if resolved != base && !strings.HasPrefix(resolved, base+string(os.PathSeparator)) {
		return fmt.Errorf("artifact %q is outside the results directory", RedactPath(absPath))
	}
	return nil
}

// resolveExisting resolves symlinks on the deepest existing ancestor of p and
// re-appends the missing tail.
func resolveExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(p)
	if parent == p {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(p))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(p)), nil
}
