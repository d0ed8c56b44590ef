// Package steam locates and validates Steam game-recording clip directories.
//
// Steam writes recordings under <userdata>/<steamid>/gamerecordings, split
// into "clips" (manually saved) and "video" (background recordings). An
// alternate recording root can be configured per account inside
// localconfig.vdf. A clip directory is only playable once Steam has written
// its session.mpd manifest; anything without one is an aborted recording.
package steam

import (
	"os"
	"path/filepath"
	"time"
)

// MediaKind distinguishes manually captured clips from background recordings.
type MediaKind string

const (
	KindManual     MediaKind = "manual"
	KindBackground MediaKind = "background"
)

// CaptureRoot is one directory that directly contains clip folders.
type CaptureRoot struct {
	AccountID string    `json:"account_id"`
	Path      string    `json:"path"`
	Kind      MediaKind `json:"kind"`
}

// Clip is one discovered recording. Records are built fresh on every scan
// and are never persisted.
type Clip struct {
	Path       string    `json:"path"`
	AccountID  string    `json:"account_id"`
	GameID     string    `json:"game_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	Kind       MediaKind `json:"kind"`
	Valid      bool      `json:"valid"`
}

// Account is one Steam account found under the userdata root.
type Account struct {
	ID    string        `json:"id"`
	Roots []CaptureRoot `json:"roots"`
}

// FindManifest returns the path of the clip's session.mpd manifest. Steam
// Deck recordings keep it in a data/ subfolder, desktop ones at the top.
func FindManifest(clipDir string) (string, bool) {
	candidates := []string{
		filepath.Join(clipDir, "session.mpd"),
		filepath.Join(clipDir, "data", "session.mpd"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
