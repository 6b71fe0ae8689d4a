// Package testutils provides shared test infrastructure: an in-memory
// extension store and helpers to lay out a data directory.
package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	ioutils "github.com/sudosubin/nix-chrome-extensions/internal/io"
	"github.com/sudosubin/nix-chrome-extensions/internal/model"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

// Package is what FakeResolver serves for one reference.
type Package struct {
	Hash    string
	Version string
	Size    int64
}

// FakeResolver is an in-memory update.Resolver.
//
// Refs maps an extension id to its current reference, Packages maps a
// reference to its content and ResolveErrs makes resolution of an id fail.
// Fetches records every reference passed to FetchAndInspect.
type FakeResolver struct {
	mu          sync.Mutex
	Refs        map[string]string
	Packages    map[string]Package
	ResolveErrs map[string]error
	Fetches     []string
	Resolves    int
}

// NewFakeResolver creates an empty FakeResolver.
func NewFakeResolver() *FakeResolver {
	return &FakeResolver{
		Refs:        make(map[string]string),
		Packages:    make(map[string]Package),
		ResolveErrs: make(map[string]error),
	}
}

// Publish makes id resolve to ref and serves pkg under ref.
func (f *FakeResolver) Publish(id, ref string, pkg Package) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refs[id] = ref
	f.Packages[ref] = pkg
}

// ResolveReference implements update.Resolver.
func (f *FakeResolver) ResolveReference(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resolves++

	if err, ok := f.ResolveErrs[id]; ok {
		return "", err
	}
	ref, ok := f.Refs[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", update.ErrResolutionFailed, id)
	}
	return ref, nil
}

// FetchAndInspect implements update.Resolver.
func (f *FakeResolver) FetchAndInspect(ctx context.Context, ref string) (*update.Inspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches = append(f.Fetches, ref)

	pkg, ok := f.Packages[ref]
	if !ok {
		return nil, fmt.Errorf("no package at %s", ref)
	}
	return &update.Inspection{Hash: pkg.Hash, Version: pkg.Version, Size: pkg.Size}, nil
}

// FetchCount returns how many full fetches happened.
func (f *FakeResolver) FetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Fetches)
}

// WriteJSON writes v into dir/name, failing the test on error.
func WriteJSON(t *testing.T, dir, name string, v any) {
	t.Helper()
	if err := ioutils.WriteJSON(context.Background(), filepath.Join(dir, name), v); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// WriteRegistry writes an all.json registry into dir.
func WriteRegistry(t *testing.T, dir string, reg model.Registry) {
	t.Helper()
	WriteJSON(t, dir, "all.json", reg)
}

// ReadFile returns the content of dir/name, failing the test on error.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}
