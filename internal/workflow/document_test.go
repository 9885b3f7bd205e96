package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesAndSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.json")
	if err := os.WriteFile(path, []byte(`{"zeta":1,"alpha":{"url":"https://x?a=1&b=2"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc.Filename() != "wf.json" {
		t.Fatalf("wrong filename: %s", doc.Filename())
	}
	want := "{\n  \"alpha\": {\n    \"url\": \"https://x?a=1&b=2\"\n  },\n  \"zeta\": 1\n}"
	if doc.Pretty != want {
		t.Fatalf("serialization mismatch:\n%s\nwant:\n%s", doc.Pretty, want)
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.json")
	if err := os.WriteFile(path, []byte(`{"b":2,"a":1,"c":[3,2,1]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	first, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Pretty != second.Pretty {
		t.Fatal("same document produced different serializations")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"nodes": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrDocument) {
		t.Fatalf("expected ErrDocument, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); !errors.Is(err, ErrDocument) {
		t.Fatalf("expected ErrDocument, got %v", err)
	}
}
