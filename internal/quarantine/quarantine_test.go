package quarantine

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: :::"), 0o644); err != nil {
		t.Fatal(err)
	}

	qPath, err := Store(path, time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original file should remain: %v", err)
	}

	f, err := os.Open(qPath)
	if err != nil {
		t.Fatalf("open quarantined file: %v", err)
	}
	defer f.Close()

	r, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "not: valid: yaml: :::" {
		t.Fatalf("unexpected quarantined content: %q", data)
	}
}

func TestStoreMissingFile(t *testing.T) {
	if _, err := Store(filepath.Join(t.TempDir(), "missing.yaml"), time.Now()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
