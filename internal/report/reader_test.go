package report

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestReader_Read(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "lru_result.txt", []byte("L1 Cache - Hits: 8, Misses: 2, Hit Ratio: 0.80\r\n"))

	r := NewReader(dir)
	a, err := r.Read("lru_result.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if a.Name != "lru_result.txt" {
		t.Errorf("Name = %q, want %q", a.Name, "lru_result.txt")
	}
	if a.Text != "L1 Cache - Hits: 8, Misses: 2, Hit Ratio: 0.80\n" {
		t.Errorf("Text = %q, want CRLF folded", a.Text)
	}
	if len(a.Digest) != 64 {
		t.Errorf("Digest length = %d, want 64", len(a.Digest))
	}
}

func TestReader_Read_DigestStable(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "a.txt", []byte("memory cache virtual"))

	r := NewReader(dir)
	first, err := r.Read("a.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	second, err := r.Read("a.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if first.Digest != second.Digest {
		t.Errorf("digest changed between reads: %s vs %s", first.Digest, second.Digest)
	}
}

func TestReader_Read_Missing(t *testing.T) {
	r := NewReader(t.TempDir())

	_, err := r.Read("nope_result.txt")
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("Read() error = %v, want ErrMissing", err)
	}
	var readErr *ReadError
	if errors.As(err, &readErr) {
		t.Error("missing artifact should not be a ReadError")
	}
}

func TestReader_Read_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "dir_result.txt"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeArtifact(t, dir, "binary_result.txt", []byte{0xff, 0xfe, 0x00, 0x41})

	tests := []struct {
		name        string
		artifact    string
		errContains string
	}{
		{"directory", "dir_result.txt", "is a directory"},
		{"invalid utf-8", "binary_result.txt", "UTF-8"},
		{"escapes results dir", "../outside.txt", "outside the results directory"},
	}

	r := NewReader(dir)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Read(tt.artifact)
			var readErr *ReadError
			if !errors.As(err, &readErr) {
				t.Fatalf("Read() error = %v, want *ReadError", err)
			}
			if errors.Is(err, ErrMissing) {
				t.Error("ReadError must not match ErrMissing")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestReader_Read_TooLarge(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "big.txt", []byte(strings.Repeat("x", 32)))

	r := &Reader{dir: dir, maxSize: 16}
	_, err := r.Read("big.txt")
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("Read() error = %v, want *ReadError", err)
	}
}

func TestReader_Read_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	dir := t.TempDir()
	writeArtifact(t, dir, "locked.txt", []byte("memory"))
	if err := os.Chmod(filepath.Join(dir, "locked.txt"), 0000); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	_, err := NewReader(dir).Read("locked.txt")
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("Read() error = %v, want *ReadError", err)
	}
}

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeArtifact(t, dir, "file.txt", []byte("x"))

	if err := CheckDir(dir); err != nil {
		t.Errorf("CheckDir(existing) error = %v", err)
	}
	if err := CheckDir(filepath.Join(dir, "absent")); !errors.Is(err, ErrNoResultsDir) {
		t.Errorf("CheckDir(absent) error = %v, want ErrNoResultsDir", err)
	}
	if err := CheckDir(file); !errors.Is(err, ErrNoResultsDir) {
		t.Errorf("CheckDir(file) error = %v, want ErrNoResultsDir", err)
	}
}
