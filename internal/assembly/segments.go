package assembly

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrMissingInit means the stream's init segment is absent.
	ErrMissingInit = errors.New("init segment not found")
	// ErrMissingChunks means the init segment exists but no media chunks do.
	ErrMissingChunks = errors.New("no media chunks found")
)

// concatStream rebuilds one fragmented-MP4 stream by concatenating its init
// segment and every media chunk, in chunk order, into dst. Steam names the
// pieces init-stream<N>.<ext> and chunk-stream<N>-<seq>.m4s, where <seq> is
// zero-padded so lexical order is chunk order.
func concatStream(dataDir string, stream int, dst string) error {
	inits, err := filepath.Glob(filepath.Join(dataDir, fmt.Sprintf("init-stream%d.*", stream)))
	if err != nil {
		return err
	}
	if len(inits) == 0 {
		return fmt.Errorf("stream %d: %w", stream, ErrMissingInit)
	}

	chunks, err := filepath.Glob(filepath.Join(dataDir, fmt.Sprintf("chunk-stream%d-*.m4s", stream)))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("stream %d: %w", stream, ErrMissingChunks)
	}
	sort.Strings(chunks)

	return concatFiles(append(inits[:1:1], chunks...), dst)
}

// concatFirstSample writes just the init segment and the first media chunk
// of a stream, enough input for ffmpeg to decode an opening frame.
func concatFirstSample(dataDir string, stream int, dst string) error {
	inits, err := filepath.Glob(filepath.Join(dataDir, fmt.Sprintf("init-stream%d.*", stream)))
	if err != nil {
		return err
	}
	if len(inits) == 0 {
		return fmt.Errorf("stream %d: %w", stream, ErrMissingInit)
	}

	chunks, err := filepath.Glob(filepath.Join(dataDir, fmt.Sprintf("chunk-stream%d-*.m4s", stream)))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("stream %d: %w", stream, ErrMissingChunks)
	}
	sort.Strings(chunks)

	return concatFiles([]string{inits[0], chunks[0]}, dst)
}

func concatFiles(srcs []string, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	for _, src := range srcs {
		in, err := os.Open(src)
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			return fmt.Errorf("copying %s: %w", filepath.Base(src), err)
		}
	}
	return out.Close()
}
