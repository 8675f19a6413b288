// Package quarantine preserves corrupt persisted-state files instead of
// deleting them, per spec §6: "Corrupt files are reported and replaced with
// defaults; never deleted silently."
//
// The compression approach is adapted from the teacher's
// internal/backup/archive.go (createTarGzFromDir / verifyTarGz), which
// gzips rotated backup directories before removing the originals; here a
// single corrupt file is gzipped into a quarantine directory next to it
// before the caller replaces it with a fresh default.
package quarantine

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const dirName = "quarantine"

// Store gzips the file at path into <dir(path)>/quarantine/<base>-<ts>.gz
// and returns the quarantine file's path. The original file is left
// untouched; callers are expected to overwrite or remove it themselves
// once the corrupt content is safely preserved.
func Store(path string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("quarantine: open %s: %w", path, err)
	}
	defer src.Close()

	qDir := filepath.Join(filepath.Dir(path), dirName)
	if err := os.MkdirAll(qDir, 0o755); err != nil {
		return "", fmt.Errorf("quarantine: mkdir %s: %w", qDir, err)
	}

	name := fmt.Sprintf("%s-%s.gz", filepath.Base(path), now.UTC().Format("20060102T150405Z"))
	dstPath := filepath.Join(qDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("quarantine: create %s: %w", dstPath, err)
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("quarantine: compress %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("quarantine: finalize %s: %w", dstPath, err)
	}

	if err := verify(dstPath); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("quarantine: verify %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// verify round-trips the gzip file to make sure it is readable, mirroring
// the teacher's verifyTarGz safety check before trusting an archive.
func verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer r.Close()

	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("quarantined file is empty")
	}
	return nil
}
