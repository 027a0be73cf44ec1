// Package report loads simulator result artifacts from a results directory.
//
// A read resolves to exactly one of three outcomes: the artifact text,
// ErrMissing when the file does not exist, or a *ReadError for anything that
// prevented the content from being used (permissions, size, encoding, a
// directory in place of a file). Callers turn each outcome into a verdict;
// nothing here panics or exits.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/pathutil"
	"github.com/nvandessel/simverify/internal/sanitize"
)

// ErrMissing is returned when an artifact does not exist in the results directory.
var ErrMissing = errors.New("result file not found")

// ErrNoResultsDir is returned by CheckDir when the results directory is absent.
var ErrNoResultsDir = errors.New("results directory not found")

// ReadError reports an artifact that exists but could not be used.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Artifact is the loaded content of one result file.
type Artifact struct {
	// Name is the artifact name as listed in the manifest.
	Name string

	// Path is the resolved file path.
	Path string

	// Text is the normalised report body handed to validators.
	Text string

	// Digest is the hex SHA-256 of the raw file bytes.
	Digest string
}

// Reader reads artifacts from a single results directory.
type Reader struct {
	dir     string
	maxSize int64
}

// NewReader creates a Reader rooted at dir.
func NewReader(dir string) *Reader {
	return &Reader{dir: dir, maxSize: constants.MaxArtifactSize}
}

// CheckDir verifies that dir exists and is a directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", dir, ErrNoResultsDir)
		}
		return fmt.Errorf("checking results directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", dir, ErrNoResultsDir)
	}
	return nil
}

// Read loads the named artifact.
func (r *Reader) Read(name string) (Artifact, error) {
	path, err := pathutil.ArtifactPath(r.dir, name)
	if err != nil {
		return Artifact{}, &ReadError{Name: name, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%s: %w", name, ErrMissing)
		}
		return Artifact{}, &ReadError{Name: name, Err: err}
	}
	if info.IsDir() {
		return Artifact{}, &ReadError{Name: name, Err: errors.New("is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, &ReadError{Name: name, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.maxSize+1))
	if err != nil {
		return Artifact{}, &ReadError{Name: name, Err: err}
	}
	if int64(len(data)) > r.maxSize {
		return Artifact{}, &ReadError{Name: name, Err: fmt.Errorf("exceeds %d bytes", r.maxSize)}
	}
	if !utf8.Valid(data) {
		return Artifact{}, &ReadError{Name: name, Err: errors.New("content is not valid UTF-8")}
	}

	sum := sha256.Sum256(data)
	return Artifact{
		Name:   name,
		Path:   path,
		Text:   sanitize.NormalizeReport(string(data)),
		Digest: hex.EncodeToString(sum[:]),
	}, nil
}
