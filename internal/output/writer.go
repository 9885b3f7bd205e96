// internal/output/writer.go
//
// OutputWriter persists generated documents at their mirrored paths. Writes
// go through a same-directory temp file plus rename, so a target file is
// either fully replaced or untouched; a failed item never leaves a
// half-written document behind.

package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWrite reports a filesystem failure while persisting a document. It is
// isolated to the item being written.
var ErrWrite = errors.New("output: write failed")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer writes generated text files, creating intermediate directories as
// needed. MkdirAll is idempotent, so concurrent workers creating sibling
// directories do not race.
type Writer struct{}

// NewWriter returns a ready writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write atomically replaces path with text.
func (w *Writer) Write(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrWrite, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".flowscribe-*")
	if err != nil {
		return fmt.Errorf("%w: temp file in %s: %v", ErrWrite, dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replace %s: %v", ErrWrite, path, err)
	}
	return nil
}
