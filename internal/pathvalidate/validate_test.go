package pathvalidate

import (
	"errors"
	"path/filepath"
	"testing"
)

func identityResolver(symlinks map[string]string) func(string) (string, error) {
	return func(p string) (string, error) {
		if target, ok := symlinks[p]; ok {
			return target, nil
		}
		return p, nil
	}
}

func TestValidateInsideWorkspace(t *testing.T) {
	res, err := Validate("/home/u/sample/README.md", []string{"/home/u/sample"}, false, identityResolver(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outside {
		t.Fatal("expected Outside=false")
	}
	if res.Resolved != "/home/u/sample/README.md" {
		t.Fatalf("resolved = %q", res.Resolved)
	}
}

func TestValidateOutsideWorkspaceRejected(t *testing.T) {
	_, err := Validate("/home/u/sample/../../etc/passwd", []string{"/home/u/sample"}, false, identityResolver(nil))
	var oerr *OutsideWorkspaceError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OutsideWorkspaceError, got %v", err)
	}
	if oerr.Resolved != "/home/etc/passwd" {
		t.Fatalf("resolved = %q", oerr.Resolved)
	}
}

func TestValidateOutsideWorkspaceAllowed(t *testing.T) {
	res, err := Validate("/etc/passwd", []string{"/home/u/sample"}, true, identityResolver(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Outside {
		t.Fatal("expected Outside=true")
	}
}

func TestValidateSymlinkEscapeTreatedAsOutside(t *testing.T) {
	symlinks := map[string]string{
		filepath.Clean("/home/u/sample/link"): "/etc/passwd",
	}
	_, err := Validate("/home/u/sample/link", []string{"/home/u/sample"}, false, identityResolver(symlinks))
	var oerr *OutsideWorkspaceError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OutsideWorkspaceError for symlink escape, got %v", err)
	}
}

func TestIsInsideRejectsSiblingWithSamePrefix(t *testing.T) {
	if IsInside("/home/u/sample-extra/file", "/home/u/sample") {
		t.Fatal("sibling directory with shared string prefix must not be inside")
	}
}

func TestIsInsideWorkspaceRootItself(t *testing.T) {
	if !IsInside("/home/u/sample", "/home/u/sample") {
		t.Fatal("workspace root itself should be inside")
	}
}
