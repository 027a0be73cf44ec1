// Package integrity verifies a results directory against a SHA256SUMS-style
// checksum file, optionally authenticated by an armored detached OpenPGP
// signature.
package integrity

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/nvandessel/simverify/internal/pathutil"
)

// ErrIntegrity is wrapped by every verification failure.
var ErrIntegrity = errors.New("results integrity check failed")

// maxSignatureSize bounds the detached signature read (signatures are < 1KB).
const maxSignatureSize = 64 * 1024

// Options configures a Verifier. Relative ChecksumsFile and SignatureFile
// paths resolve against the results directory.
type Options struct {
	ChecksumsFile string
	SignatureFile string
	Keyring       string
}

// Mismatch is one file whose content does not match its listed digest.
type Mismatch struct {
	Name     string
	Expected string

	// Actual is empty when the file could not be read.
	Actual string
	Err    error
}

func (m Mismatch) String() string {
	if m.Err != nil {
		return fmt.Sprintf("%s: %v", m.Name, m.Err)
	}
	return fmt.Sprintf("%s: expected %s, got %s", m.Name, m.Expected, m.Actual)
}

// Report describes a successful verification.
type Report struct {
	// Files is the number of files checked.
	Files int

	// Signer is the primary key fingerprint of the signing key, empty when
	// no signature was checked.
	Signer string
}

// Verifier checks one results directory.
type Verifier struct {
	dir  string
	opts Options
}

// NewVerifier creates a Verifier for dir.
func NewVerifier(dir string, opts Options) *Verifier {
	return &Verifier{dir: dir, opts: opts}
}

// Verify checks the signature (when configured) and then every listed digest.
func (v *Verifier) Verify() (Report, error) {
	var rep Report

	if v.opts.ChecksumsFile == "" {
		return rep, fmt.Errorf("%w: no checksums file configured", ErrIntegrity)
	}
	sumsPath := v.resolve(v.opts.ChecksumsFile)
	sums, err := os.ReadFile(sumsPath)
	if err != nil {
		return rep, fmt.Errorf("%w: reading checksums file: %v", ErrIntegrity, err)
	}

	if v.opts.SignatureFile != "" {
		signer, err := v.checkSignature(sums)
		if err != nil {
			return rep, err
		}
		rep.Signer = signer
	}

	entries, err := ParseChecksums(bytes.NewReader(sums))
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if len(entries) == 0 {
		return rep, fmt.Errorf("%w: checksums file lists no files", ErrIntegrity)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var mismatches []Mismatch
	for _, name := range names {
		expected := entries[name]
		path, err := pathutil.ArtifactPath(v.dir, name)
		if err != nil {
			mismatches = append(mismatches, Mismatch{Name: name, Expected: expected, Err: err})
			continue
		}
		actual, err := FileDigest(path)
		if err != nil {
			mismatches = append(mismatches, Mismatch{Name: name, Expected: expected, Err: err})
			continue
		}
		if actual != expected {
			mismatches = append(mismatches, Mismatch{Name: name, Expected: expected, Actual: actual})
		}
	}
	rep.Files = len(names)

	if len(mismatches) > 0 {
		lines := make([]string, len(mismatches))
		for i, m := range mismatches {
			lines[i] = m.String()
		}
		return rep, fmt.Errorf("%w: %d of %d files do not match: %s",
			ErrIntegrity, len(mismatches), len(names), strings.Join(lines, "; "))
	}
	return rep, nil
}

func (v *Verifier) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(v.dir, p)
}

func (v *Verifier) checkSignature(signed []byte) (string, error) {
	if v.opts.Keyring == "" {
		return "", fmt.Errorf("%w: signature file configured without a keyring", ErrIntegrity)
	}

	keyring, err := LoadKeyring(v.opts.Keyring)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	sigFile, err := os.Open(v.resolve(v.opts.SignatureFile))
	if err != nil {
		return "", fmt.Errorf("%w: opening signature file: %v", ErrIntegrity, err)
	}
	defer sigFile.Close()

	sig := io.LimitReader(sigFile, maxSignatureSize)
	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(signed), sig, nil)
	if err != nil {
		return "", fmt.Errorf("%w: signature verification failed: %v", ErrIntegrity, err)
	}
	if signer == nil || signer.PrimaryKey == nil {
		return "", nil
	}
	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

// LoadKeyring reads an armored public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in keyring")
	}
	return entities, nil
}

// ParseChecksums reads "<hex sha256>  <name>" lines in sha256sum format.
// A "*" before the name (binary mode) is accepted. Blank lines and lines
// starting with "#" are skipped.
func ParseChecksums(r io.Reader) (map[string]string, error) {
	sums := make(map[string]string)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		digest, name, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"<sha256>  <name>\"", lineNo)
		}
		name = strings.TrimPrefix(strings.TrimLeft(name, " "), "*")
		digest = strings.ToLower(digest)

		if len(digest) != sha256.Size*2 {
			return nil, fmt.Errorf("line %d: digest must be %d hex characters", lineNo, sha256.Size*2)
		}
		if _, err := hex.DecodeString(digest); err != nil {
			return nil, fmt.Errorf("line %d: digest is not hex", lineNo)
		}
		if name == "" {
			return nil, fmt.Errorf("line %d: missing file name", lineNo)
		}
		if prev, dup := sums[name]; dup && prev != digest {
			return nil, fmt.Errorf("line %d: %s listed twice with different digests", lineNo, name)
		}
		sums[name] = digest
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}
	return sums, nil
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksums writes a sha256sum-format file for the named files in dir.
func WriteChecksums(dir string, names []string, w io.Writer) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		path, err := pathutil.ArtifactPath(dir, name)
		if err != nil {
			return err
		}
		digest, err := FileDigest(path)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", digest, name); err != nil {
			return err
		}
	}
	return nil
}
