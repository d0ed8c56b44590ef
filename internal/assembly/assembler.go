// Package assembly turns raw Steam recording segments into standalone MP4
// files. Steam stores each recording as fragmented-MP4 streams (a video
// stream 0 and usually an audio stream 1) split into an init segment plus
// numbered chunks; assembly concatenates each stream back together and
// remuxes them with ffmpeg, copying the codecs without re-encoding.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/steam"
)

const (
	videoStream = 0
	audioStream = 1
)

// NameResolver maps a Steam app id to a display name. Resolution never
// fails outright: unknown ids come back as a placeholder string.
type NameResolver interface {
	Resolve(ctx context.Context, gameID string) string
}

// Config holds the assembler's configuration.
type Config struct {
	FFmpegPath string // path to ffmpeg binary; empty = auto-detect
	WorkDir    string // scratch space for concatenated streams
	Names      NameResolver
	Logger     *slog.Logger
}

// Assembler converts clip directories into playable MP4 files.
type Assembler struct {
	cfg    Config
	ffmpeg string // resolved ffmpeg path
}

// New creates an Assembler, resolving the ffmpeg binary path. A missing
// ffmpeg is a hard error: nothing in this package works without it.
func New(cfg Config) (*Assembler, error) {
	ffmpeg, err := resolveFFmpeg(cfg.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create work dir: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("assembler initialised",
			"ffmpeg", ffmpeg,
			"work_dir", cfg.WorkDir,
		)
	}

	return &Assembler{cfg: cfg, ffmpeg: ffmpeg}, nil
}

// Result is the outcome of assembling one clip.
type Result struct {
	Clip       steam.Clip `json:"clip"`
	OutputPath string     `json:"output_path,omitempty"`
	Err        error      `json:"-"`
	Error      string     `json:"error,omitempty"`
}

// Assemble converts one clip directory into an MP4 under outDir and returns
// the path of the file it wrote. Scratch files are always removed before
// returning, success or not.
func (a *Assembler) Assemble(ctx context.Context, clip steam.Clip, outDir string) (string, error) {
	manifest, ok := steam.FindManifest(clip.Path)
	if !ok {
		return "", fmt.Errorf("clip %s has no session.mpd manifest", filepath.Base(clip.Path))
	}
	dataDir := filepath.Dir(manifest)

	tmp, err := os.MkdirTemp(a.cfg.WorkDir, "assemble-")
	if err != nil {
		return "", fmt.Errorf("cannot create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmp); rmErr != nil && a.cfg.Logger != nil {
			a.cfg.Logger.Warn("scratch dir not removed", "dir", tmp, "error", rmErr)
		}
	}()

	videoPath := filepath.Join(tmp, "video.mp4")
	if err := concatStream(dataDir, videoStream, videoPath); err != nil {
		return "", fmt.Errorf("video stream: %w", err)
	}

	audioPath := filepath.Join(tmp, "audio.mp4")
	hasAudio := true
	if err := concatStream(dataDir, audioStream, audioPath); err != nil {
		if !errors.Is(err, ErrMissingInit) && !errors.Is(err, ErrMissingChunks) {
			return "", fmt.Errorf("audio stream: %w", err)
		}
		hasAudio = false
		if a.cfg.Logger != nil {
			a.cfg.Logger.Warn("audio stream incomplete, producing silent clip",
				"clip", filepath.Base(clip.Path), "reason", err)
		}
	}

	outPath, err := a.outputPath(ctx, clip, outDir)
	if err != nil {
		return "", err
	}

	args := []string{"-i", videoPath}
	if hasAudio {
		args = append(args, "-i", audioPath, "-c:v", "copy", "-c:a", "copy")
	} else {
		args = append(args, "-c:v", "copy", "-an")
	}
	args = append(args, outPath)

	if err := a.runFFmpeg(ctx, args...); err != nil {
		// A failed remux can leave a truncated output behind.
		os.Remove(outPath)
		return "", fmt.Errorf("remux: %w", err)
	}

	if a.cfg.Logger != nil {
		a.cfg.Logger.Info("clip assembled",
			"clip", filepath.Base(clip.Path),
			"output", filepath.Base(outPath),
			"audio", hasAudio,
		)
	}
	return outPath, nil
}

// AssembleAll converts a batch of clips, isolating failures per clip. The
// output directory is checked for writability up front so a bad destination
// fails the batch before any work is done.
func (a *Assembler) AssembleAll(ctx context.Context, clips []steam.Clip, outDir string) ([]Result, error) {
	if err := ValidateOutputDir(outDir); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(clips))
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		out, err := a.Assemble(ctx, clip, outDir)
		res := Result{Clip: clip, OutputPath: out, Err: err}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// outputPath builds the destination filename: <game>_<YYYYMMDD-HHMMSS>.mp4,
// with placeholders for missing metadata and a numeric suffix on collision.
func (a *Assembler) outputPath(ctx context.Context, clip steam.Clip, outDir string) (string, error) {
	name := "UnknownGame"
	if clip.GameID != "" && a.cfg.Names != nil {
		name = a.cfg.Names.Resolve(ctx, clip.GameID)
	}
	base := SanitizeName(name)
	if base == "" {
		base = "clip"
	}

	stamp := "UnknownTime"
	if !clip.RecordedAt.IsZero() {
		stamp = clip.RecordedAt.Format("20060102-150405")
	}

	return UniqueFilename(outDir, base+"_"+stamp, ".mp4")
}

// withTimeout is a small helper so individual ffmpeg invocations cannot
// hang a job forever.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
