package assembly

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConcatStreamOrdersChunks(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "init-stream0.mp4"), "INIT")
	// Written out of order; zero-padded names must still concatenate in
	// sequence order.
	mustWrite(t, filepath.Join(dir, "chunk-stream0-00003.m4s"), "C3")
	mustWrite(t, filepath.Join(dir, "chunk-stream0-00001.m4s"), "C1")
	mustWrite(t, filepath.Join(dir, "chunk-stream0-00002.m4s"), "C2")
	// A second stream's segments must not leak in.
	mustWrite(t, filepath.Join(dir, "init-stream1.mp4"), "X")
	mustWrite(t, filepath.Join(dir, "chunk-stream1-00001.m4s"), "X")

	dst := filepath.Join(t.TempDir(), "out.mp4")
	if err := concatStream(dir, 0, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "INITC1C2C3" {
		t.Errorf("concatenated = %q, want INITC1C2C3", got)
	}
}

func TestConcatStreamMissingPieces(t *testing.T) {
	empty := t.TempDir()
	if err := concatStream(empty, 0, filepath.Join(t.TempDir(), "out")); !errors.Is(err, ErrMissingInit) {
		t.Errorf("empty dir: err = %v, want ErrMissingInit", err)
	}

	initOnly := t.TempDir()
	mustWrite(t, filepath.Join(initOnly, "init-stream0.mp4"), "INIT")
	if err := concatStream(initOnly, 0, filepath.Join(t.TempDir(), "out")); !errors.Is(err, ErrMissingChunks) {
		t.Errorf("init only: err = %v, want ErrMissingChunks", err)
	}
}

func TestConcatFirstSample(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "init-stream0.mp4"), "INIT")
	mustWrite(t, filepath.Join(dir, "chunk-stream0-00001.m4s"), "C1")
	mustWrite(t, filepath.Join(dir, "chunk-stream0-00002.m4s"), "C2")

	dst := filepath.Join(t.TempDir(), "sample.mp4")
	if err := concatFirstSample(dir, 0, dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "INITC1" {
		t.Errorf("sample = %q, want INITC1", got)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Counter-Strike 2", "Counter-Strike 2"},
		{"HELLDIVERS™ 2", "HELLDIVERS_ 2"},
		{"Baldur's Gate 3", "Baldur_s Gate 3"},
		{"a/b\\c:d", "a_b_c_d"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueFilename(t *testing.T) {
	dir := t.TempDir()

	first, err := UniqueFilename(dir, "clip", ".mp4")
	if err != nil {
		t.Fatal(err)
	}
	if first != filepath.Join(dir, "clip.mp4") {
		t.Errorf("first = %q", first)
	}

	mustWrite(t, first, "x")
	second, err := UniqueFilename(dir, "clip", ".mp4")
	if err != nil {
		t.Fatal(err)
	}
	if second != filepath.Join(dir, "clip_1.mp4") {
		t.Errorf("second = %q, want clip_1.mp4", second)
	}

	mustWrite(t, second, "x")
	third, err := UniqueFilename(dir, "clip", ".mp4")
	if err != nil {
		t.Fatal(err)
	}
	if third != filepath.Join(dir, "clip_2.mp4") {
		t.Errorf("third = %q, want clip_2.mp4", third)
	}
}
