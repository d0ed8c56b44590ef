package assembly

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clipdeck/clipdeck-agent/internal/steam"
)

// Thumbnail renders a small JPEG of the clip's opening frame into cacheDir
// and returns its path. Results are cached by clip path; a cached file is
// returned without touching ffmpeg again.
func (a *Assembler) Thumbnail(ctx context.Context, clip steam.Clip, cacheDir string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create thumbnail cache: %w", err)
	}

	sum := sha256.Sum256([]byte(clip.Path))
	dst := filepath.Join(cacheDir, hex.EncodeToString(sum[:8])+".jpg")
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	manifest, ok := steam.FindManifest(clip.Path)
	if !ok {
		return "", fmt.Errorf("clip %s has no session.mpd manifest", filepath.Base(clip.Path))
	}

	tmp, err := os.MkdirTemp(a.cfg.WorkDir, "thumb-")
	if err != nil {
		return "", fmt.Errorf("cannot create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	sample := filepath.Join(tmp, "sample.mp4")
	if err := concatFirstSample(filepath.Dir(manifest), videoStream, sample); err != nil {
		return "", fmt.Errorf("video sample: %w", err)
	}

	err = a.runFFmpeg(ctx,
		"-ss", "00:00:00.100",
		"-i", sample,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		dst,
	)
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("thumbnail: %w", err)
	}
	return dst, nil
}
