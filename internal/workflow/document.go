// internal/workflow/document.go
//
// Workflow documents are opaque JSON values: flowscribe does not validate
// that they describe any particular workflow shape. This package only parses
// them and produces the deterministic serialization embedded in prompts.

package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDocument reports a workflow document that could not be read or parsed.
// It is isolated to the one item it belongs to.
var ErrDocument = errors.New("workflow: unreadable document")

// Document is one parsed workflow definition.
type Document struct {
	// Path is the absolute source path of the document.
	Path string
	// Pretty is the deterministic serialization used for prompt embedding:
	// two-space indentation and stable key order, so the same document
	// always produces the same prompt.
	Pretty string
}

// Filename returns the bare file name of the document.
func (d *Document) Filename() string {
	return filepath.Base(d.Path)
}

// Load reads and parses one workflow document. Any read or parse failure is
// an ErrDocument; content beyond being valid JSON is never checked.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDocument, path, err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrDocument, path, err)
	}

	pretty, err := serialize(value)
	if err != nil {
		return nil, fmt.Errorf("%w: serialize %s: %v", ErrDocument, path, err)
	}

	return &Document{Path: path, Pretty: pretty}, nil
}

// serialize re-encodes the parsed value. encoding/json sorts map keys, which
// gives the stable ordering; HTML escaping is disabled so embedded URLs and
// expressions stay readable in the prompt.
func serialize(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
