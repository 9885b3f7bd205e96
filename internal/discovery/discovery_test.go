package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"name": "wf"}`), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverDirectoryMirrorsTree(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "wf")
	out := filepath.Join(root, "out")
	writeFile(t, filepath.Join(in, "a.json"))
	writeFile(t, filepath.Join(in, "sub", "b.json"))
	writeFile(t, filepath.Join(in, "sub", "notes.txt"))

	items, err := Discover(in, out)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].OutputPath != filepath.Join(out, "a.md") {
		t.Fatalf("wrong mirrored path: %s", items[0].OutputPath)
	}
	if items[1].OutputPath != filepath.Join(out, "sub", "b.md") {
		t.Fatalf("wrong mirrored path: %s", items[1].OutputPath)
	}
	if items[1].RelativePath != filepath.Join("sub", "b.json") {
		t.Fatalf("wrong relative path: %s", items[1].RelativePath)
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "wf", "a.json")
	out := filepath.Join(root, "out")
	writeFile(t, src)

	items, err := Discover(src, out)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(items))
	}
	if items[0].OutputPath != filepath.Join(out, "a.md") {
		t.Fatalf("wrong output path: %s", items[0].OutputPath)
	}
	if items[0].RelativePath != "a.json" {
		t.Fatalf("wrong relative path: %s", items[0].RelativePath)
	}
}

func TestDiscoverOrderIsLexicographic(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "wf")
	for _, name := range []string{"z.json", "a.json", "m/inner.json", "b.json"} {
		writeFile(t, filepath.Join(in, name))
	}

	items, err := Discover(in, filepath.Join(root, "out"))
	if err != nil {
		t.Fatal(err)
	}
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.SourcePath
	}
	if !sort.StringsAreSorted(paths) {
		t.Fatalf("items not in lexicographic order: %v", paths)
	}
}

func TestDiscoverMissingPath(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	if !errors.Is(err, ErrInputPath) {
		t.Fatalf("expected ErrInputPath, got %v", err)
	}
}

func TestDiscoverSingleFileWrongExtension(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.yaml")
	if err := os.WriteFile(src, []byte("x: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Discover(src, root); !errors.Is(err, ErrInputPath) {
		t.Fatalf("expected ErrInputPath for non-json file, got %v", err)
	}
}

func TestDiscoverEmptyDirectoryIsNotAnError(t *testing.T) {
	items, err := Discover(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("empty directory should not be an error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestFlatFallbackNeverFails(t *testing.T) {
	out := "out"
	item := newItem(filepath.Join("/somewhere", "else", "wf.json"), "relative-base", out)
	if item.OutputPath != filepath.Join(out, "wf.md") {
		t.Fatalf("expected flat fallback path, got %s", item.OutputPath)
	}
	if item.RelativePath != "" {
		t.Fatalf("fallback items have no relative path, got %q", item.RelativePath)
	}
}

func TestFilterSelection(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "wf")
	writeFile(t, filepath.Join(in, "a.json"))
	writeFile(t, filepath.Join(in, "b.json"))

	items, err := Discover(in, filepath.Join(root, "out"))
	if err != nil {
		t.Fatal(err)
	}

	kept := FilterSelection(items, []string{filepath.Join(in, "b.json")})
	if len(kept) != 1 || kept[0].Name() != "b.json" {
		t.Fatalf("expected only b.json, got %v", kept)
	}
	if got := FilterSelection(items, nil); len(got) != len(items) {
		t.Fatal("nil selection should keep everything")
	}
	if got := FilterSelection(items, []string{}); len(got) != 0 {
		t.Fatal("empty selection should keep nothing")
	}
}
