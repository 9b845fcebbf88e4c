// Whole-file JSON persistence for collections.

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
)

// ReadJSON returns the decoded contents of the file at path, or def when the
// file does not exist or cannot be parsed.
//
// Numbers in untyped values (any, map[string]any) are decoded as
// json.Number. A corrupt file is indistinguishable from a missing one for the
// caller and will be overwritten by the next write.
func ReadJSON[T any](path string, def T) T {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is built from the data directory
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read collection, using default", "path", path, "err", err)
		}
		return def
	}
	v, err := decodeJSON[T](data)
	if err != nil {
		slog.Warn("Failed to parse collection, using default", "path", path, "err", err)
		return def
	}
	return v
}

// decodeJSON decodes exactly one JSON value. Numbers inside untyped values
// become json.Number so that rewriting a collection never rounds them.
func decodeJSON[T any](data []byte) (T, error) {
	var v T
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(&v); err != nil {
		return v, err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return v, errors.New("unexpected data after the top-level value")
	}
	return v, nil
}

// WriteJSON serializes v with two-space indentation and replaces the file at
// path. The replacement is atomic: readers see either the old or the new
// contents.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return WriteFile(path, &buf)
}

// WriteFile atomically replaces the file at path with the content of r. A
// new file is created readable by everyone (0o644); an existing file keeps
// its mode.
func WriteFile(path string, r io.Reader) error {
	_, statErr := os.Stat(path)
	if err := atomic.WriteFile(path, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if os.IsNotExist(statErr) {
		// atomic.WriteFile creates new files 0o600.
		if err := os.Chmod(path, 0o644); err != nil { //nolint:gosec // G302: data files are meant to be human readable
			return fmt.Errorf("failed to set permissions on %s: %w", path, err)
		}
	}
	return nil
}

// EnsureDir creates path and its parents when it does not exist yet.
func EnsureDir(path string) error {
	if fi, err := os.Stat(path); err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
