// Package snapshot writes and restores xz-compressed copies of a table file.
//
// A snapshot is the raw backing file compressed as a single xz stream. The
// BLAKE3 digest of the uncompressed bytes identifies it; Restore can check
// that digest before the restored file replaces anything.
package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

var (
	// ErrDigestMismatch means restored bytes do not hash to the expected digest.
	ErrDigestMismatch = errors.New("snapshot digest mismatch")

	// ErrExists means the restore target exists and overwriting was not requested.
	ErrExists = errors.New("restore target exists")
)

// Manifest describes the uncompressed contents of a snapshot.
type Manifest struct {
	Digest string `json:"blake3"`
	Size   int64  `json:"size"`
}

// Backup compresses the file at src into w. The table using src must be
// flushed or closed first.
func Backup(src string, w io.Writer) (Manifest, error) {
	f, err := os.Open(src)
	if err != nil {
		return Manifest{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	xw, err := xz.NewWriter(w)
	if err != nil {
		return Manifest{}, fmt.Errorf("create xz writer: %w", err)
	}

	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(xw, h), f)
	if err != nil {
		xw.Close()
		return Manifest{}, fmt.Errorf("compress %s: %w", src, err)
	}
	if err := xw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("finish xz stream: %w", err)
	}
	return Manifest{Digest: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// BackupFile writes a snapshot of src to dst, replacing dst only when force is set.
func BackupFile(src, dst string, force bool) (Manifest, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrExists, dst)
		}
		return Manifest{}, err
	}

	m, err := Backup(src, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return Manifest{}, err
	}
	return m, nil
}

// RestoreOptions controls Restore.
type RestoreOptions struct {
	// Digest, when set, must equal the BLAKE3 hex digest of the restored bytes.
	Digest string

	// Force allows replacing an existing file at the target path.
	Force bool
}

// Restore decompresses r into dst. The data is staged in a temporary file
// beside dst and renamed into place only after the digest check passes.
func Restore(r io.Reader, dst string, opts RestoreOptions) (Manifest, error) {
	if !opts.Force {
		if _, err := os.Stat(dst); err == nil {
			return Manifest{}, fmt.Errorf("%w: %s", ErrExists, dst)
		}
	}

	xr, err := xz.NewReader(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("open xz stream: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return Manifest{}, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), xr)
	if err != nil {
		tmp.Close()
		return Manifest{}, fmt.Errorf("decompress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Manifest{}, err
	}
	if err := tmp.Close(); err != nil {
		return Manifest{}, err
	}

	m := Manifest{Digest: hex.EncodeToString(h.Sum(nil)), Size: n}
	if opts.Digest != "" && opts.Digest != m.Digest {
		return Manifest{}, fmt.Errorf("%w: want %s, got %s", ErrDigestMismatch, opts.Digest, m.Digest)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// RestoreFile restores the snapshot stored at src.
func RestoreFile(src, dst string, opts RestoreOptions) (Manifest, error) {
	f, err := os.Open(src)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	return Restore(f, dst, opts)
}

// FileDigest returns the BLAKE3 hex digest of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the BLAKE3 hex digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
