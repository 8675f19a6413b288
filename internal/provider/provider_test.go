package provider

import "testing"

func TestLookupKnownProviders(t *testing.T) {
	cases := map[string]string{
		"github.com":    "blob",
		"GitLab.com":    "blob",
		"bitbucket.org": "src",
	}
	for host, wantSegment := range cases {
		p, ok := Lookup(host)
		if !ok {
			t.Fatalf("Lookup(%q) not found", host)
		}
		if p.BlobSegment != wantSegment {
			t.Fatalf("Lookup(%q).BlobSegment = %q, want %q", host, p.BlobSegment, wantSegment)
		}
	}
}

func TestLookupUnknownHost(t *testing.T) {
	if _, ok := Lookup("sourcehut.org"); ok {
		t.Fatal("expected unknown host to miss registry")
	}
}

func TestFragmentToLineColSingleLine(t *testing.T) {
	line, end, ok := FragmentToLineCol("L42")
	if !ok || line != 42 || end != 0 {
		t.Fatalf("line=%d end=%d ok=%v", line, end, ok)
	}
}

func TestFragmentToLineColRange(t *testing.T) {
	line, end, ok := FragmentToLineCol("L10-L20")
	if !ok || line != 10 || end != 20 {
		t.Fatalf("line=%d end=%d ok=%v", line, end, ok)
	}
}

func TestFragmentToLineColLinesForm(t *testing.T) {
	line, end, ok := FragmentToLineCol("lines-5:10")
	if !ok || line != 5 || end != 10 {
		t.Fatalf("line=%d end=%d ok=%v", line, end, ok)
	}
}

func TestFragmentToLineColUnrecognized(t *testing.T) {
	if _, _, ok := FragmentToLineCol("some-anchor"); ok {
		t.Fatal("expected unrecognized fragment to yield ok=false")
	}
}
