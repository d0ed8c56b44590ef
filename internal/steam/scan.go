package steam

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scanner enumerates and validates clip directories under capture roots.
// Scanning is synchronous and read-only; callers on a latency-sensitive path
// are expected to run it off that path.
type Scanner struct {
	logger *slog.Logger
}

func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logger}
}

// Scan walks the given capture roots and returns the valid clips matching
// the kind filter (no kinds = all kinds), deduplicated by path and sorted
// most recent first. Clips whose timestamp could not be extracted sort last,
// keeping their relative order. Unreadable roots are logged and skipped so
// one bad root cannot hide the others.
func (s *Scanner) Scan(roots []CaptureRoot, kinds ...MediaKind) []Clip {
	wanted := kindSet(kinds)

	var clips []Clip
	seen := make(map[string]bool)
	for _, root := range roots {
		if wanted != nil && !wanted[root.Kind] {
			continue
		}
		for _, dir := range s.candidates(root) {
			if _, ok := FindManifest(dir); !ok {
				continue
			}

			canonical := canonicalPath(dir)
			if seen[canonical] {
				continue
			}
			seen[canonical] = true

			meta := ExtractMeta(filepath.Base(dir))
			if meta.RecordedAt.IsZero() && s.logger != nil {
				s.logger.Warn("could not extract timestamp from clip folder name",
					"dir", filepath.Base(dir))
			}

			clips = append(clips, Clip{
				Path:       canonical,
				AccountID:  root.AccountID,
				GameID:     meta.GameID,
				RecordedAt: meta.RecordedAt,
				Kind:       root.Kind,
				Valid:      true,
			})
		}
	}

	// Zero timestamps never compare After anything, so they sink to the
	// end; the stable sort keeps their relative order.
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].RecordedAt.After(clips[j].RecordedAt)
	})
	return clips
}

// FindInvalid returns clip candidates that are missing their manifest at
// both known locations. These are incomplete recordings; deleting them is
// left to the caller.
func (s *Scanner) FindInvalid(roots []CaptureRoot) []string {
	var invalid []string
	seen := make(map[string]bool)
	for _, root := range roots {
		for _, dir := range s.candidates(root) {
			if _, ok := FindManifest(dir); ok {
				continue
			}
			canonical := canonicalPath(dir)
			if seen[canonical] {
				continue
			}
			seen[canonical] = true
			invalid = append(invalid, canonical)
		}
	}
	return invalid
}

// DeleteInvalid recursively removes the given clip directories. It is the
// only destructive operation in this package and is never invoked
// automatically. Per-path failures are collected, not fatal.
func (s *Scanner) DeleteInvalid(paths []string) (deleted int, failed []string) {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			if s.logger != nil {
				s.logger.Error("failed to delete invalid clip", "path", p, "error", err)
			}
			failed = append(failed, p)
			continue
		}
		if s.logger != nil {
			s.logger.Info("deleted invalid clip", "path", p)
		}
		deleted++
	}
	return deleted, failed
}

// candidates lists the immediate subdirectories of a root that follow the
// capture tool's underscore-delimited naming convention.
func (s *Scanner) candidates(root CaptureRoot) []string {
	entries, err := os.ReadDir(root.Path)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("cannot read capture root", "path", root.Path, "error", err)
		}
		return nil
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.Contains(entry.Name(), "_") {
			continue
		}
		dirs = append(dirs, filepath.Join(root.Path, entry.Name()))
	}
	return dirs
}

func kindSet(kinds []MediaKind) map[MediaKind]bool {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[MediaKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

func canonicalPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
