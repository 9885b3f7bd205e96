// internal/discovery/discovery.go
//
// Discovery enumerates workflow documents beneath an input path and pairs
// each with the output location its documentation will be written to. The
// output tree mirrors the input tree relative to the base input root.

package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// WorkflowExt is the extension recognized as a workflow document.
	WorkflowExt = ".json"
	// OutputExt is the extension of generated documentation files.
	OutputExt = ".md"
)

// ErrInputPath reports an unusable input path. It is fatal: no batch can run
// without a readable input root.
var ErrInputPath = errors.New("discovery: input path unusable")

// WorkItem is one discovered workflow document and its resolved destination.
type WorkItem struct {
	// SourcePath is the absolute path of the workflow document.
	SourcePath string
	// RelativePath is SourcePath relative to the base input root, or ""
	// when the relation could not be computed and the flat fallback applies.
	RelativePath string
	// OutputPath is where the generated document will be written.
	OutputPath string
}

// Name returns the bare file name of the source document.
func (w WorkItem) Name() string {
	return filepath.Base(w.SourcePath)
}

// Discover enumerates workflow documents under inputPath in lexicographic
// order by full path. A single .json file yields exactly one item with its
// parent directory as the base root; a directory is walked recursively. An
// empty result from a directory is not an error here, the caller decides.
func Discover(inputPath, outputRoot string) ([]WorkItem, error) {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputPath, inputPath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputPath, inputPath, err)
	}

	if !info.IsDir() {
		if !isWorkflowFile(abs) {
			return nil, fmt.Errorf("%w: %s is not a %s file", ErrInputPath, inputPath, WorkflowExt)
		}
		base := filepath.Dir(abs)
		return []WorkItem{newItem(abs, base, outputRoot)}, nil
	}

	var items []WorkItem
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree entries are excluded rather than
			// failing the whole discovery.
			return nil
		}
		if d.IsDir() || !isWorkflowFile(path) {
			return nil
		}
		items = append(items, newItem(path, abs, outputRoot))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", ErrInputPath, inputPath, walkErr)
	}
	// WalkDir visits in lexical order per directory; the collected slice is
	// already deterministic, full-path ordered.
	return items, nil
}

// FilterSelection keeps only the items whose source path appears in selected.
// A nil selection keeps everything; the interactive front-end uses this to
// run a user-picked subset.
func FilterSelection(items []WorkItem, selected []string) []WorkItem {
	if selected == nil {
		return items
	}
	keep := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		if abs, err := filepath.Abs(s); err == nil {
			keep[abs] = struct{}{}
		}
	}
	var out []WorkItem
	for _, it := range items {
		if _, ok := keep[it.SourcePath]; ok {
			out = append(out, it)
		}
	}
	return out
}

// newItem computes the mirrored output path for source under baseRoot. When
// the source cannot be expressed relative to the base root the item falls
// back to a flat path directly under the output root; the fallback never
// fails, so discovery always yields a usable destination.
func newItem(source, baseRoot, outputRoot string) WorkItem {
	rel, err := filepath.Rel(baseRoot, source)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return WorkItem{
			SourcePath: source,
			OutputPath: filepath.Join(outputRoot, stem(source)+OutputExt),
		}
	}
	return WorkItem{
		SourcePath:   source,
		RelativePath: rel,
		OutputPath:   filepath.Join(outputRoot, strings.TrimSuffix(rel, filepath.Ext(rel))+OutputExt),
	}
}

func isWorkflowFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), WorkflowExt)
}

func stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
