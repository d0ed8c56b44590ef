package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizeName reduces a game title to a filesystem-safe filename stem.
// Letters, digits, spaces, hyphens and underscores pass through; everything
// else becomes an underscore. Leading and trailing whitespace is dropped.
func SanitizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return strings.TrimSpace(mapped)
}

// UniqueFilename returns a path under dir for stem+ext that does not clash
// with an existing file, appending _1, _2, ... as needed.
func UniqueFilename(dir, stem, ext string) (string, error) {
	candidate := filepath.Join(dir, stem+ext)
	for n := 1; ; n++ {
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		if n > 10000 {
			return "", fmt.Errorf("no free filename for %s%s in %s", stem, ext, dir)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

// ValidateOutputDir checks that dir exists, is a directory, and is writable
// by actually creating and removing a probe file. Permission bits alone are
// not trusted; mounts and ACLs lie.
func ValidateOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output dir %s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".writecheck-")
	if err != nil {
		return fmt.Errorf("output dir %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
