// Package ioutils provides file system utilities for the catalog updater.
//
// This package contains functions for:
//   - JSON file reading and writing
//   - Atomic file replacement
//   - Scoped temporary directories
//   - Directory creation and removal
//
// All functions that accept a context.Context check it before touching the
// file system, though file operations themselves are not interruptible.
package ioutils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadJSON decodes the JSON file at path into v.
//
// Returns an error wrapping fs.ErrNotExist if the file does not exist, so
// callers can distinguish "no data yet" with errors.Is.
//
// Example:
//
//	var registry model.Registry
//	err := ReadJSON(ctx, "data/all.json", &registry)
func ReadJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// MarshalJSON encodes v with 2-space indentation and a trailing newline,
// the on-disk format of every data file. HTML characters are written as is,
// so URLs keep their literal '&'.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v to path as indented JSON.
//
// Parent directories are created as needed. The file is replaced atomically
// (see WriteFileAtomic), so readers never observe a half-written file and a
// failed write leaves any previous content untouched.
//
// Example:
//
//	err := WriteJSON(ctx, "data/shard/1.json", result)
func WriteJSON(ctx context.Context, path string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFileAtomic(ctx, path, data)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place. The file is created with mode 0644.
func WriteFileAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}

// TempDir creates a new temporary directory and returns it together with a
// cleanup function that removes it recursively.
//
// The cleanup function is safe to call more than once. Use it with defer so
// the directory is removed on every return path:
//
//	dir, cleanup, err := TempDir("chrome-extensions-")
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
func TempDir(pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", func() {}, err
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup, nil
}

// RemoveAll removes path and everything below it. A missing path is not an
// error.
func RemoveAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.RemoveAll(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
