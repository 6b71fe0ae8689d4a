// Package catalog owns the files of the data directory: the registry, the
// per-site catalogs and the intermediate shard results.
//
// Layout of a data directory:
//
//	data/all.json               registry: site -> [{id, pname}]
//	data/<site>.json            catalog:  [extension record] sorted by id
//	data/shard/<index>.json     shard result: site -> [extension record]
//	data/shard/<index>.failed.json  items a keep-going run could not update
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ioutils "github.com/sudosubin/nix-chrome-extensions/internal/io"
	"github.com/sudosubin/nix-chrome-extensions/internal/model"
)

const (
	jsonExt   = ".json"
	failedExt = ".failed.json"
)

// ErrInvalidSite is returned for site names that cannot be stored as
// <site>.json in the data directory.
var ErrInvalidSite = errors.New("invalid site name")

// Store reads and writes the data directory.
type Store struct {
	dir          string
	registryFile string
	shardDir     string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir, registryFile, shardDir string) *Store {
	return &Store{
		dir:          dir,
		registryFile: registryFile,
		shardDir:     shardDir,
	}
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// RegistryPath returns the path of the registry file.
func (s *Store) RegistryPath() string {
	return filepath.Join(s.dir, s.registryFile)
}

// CatalogPath returns the path of a site's catalog file.
func (s *Store) CatalogPath(site string) string {
	return filepath.Join(s.dir, site+jsonExt)
}

// ShardDir returns the directory holding shard results.
func (s *Store) ShardDir() string {
	return filepath.Join(s.dir, s.shardDir)
}

// ShardPath returns the result file of shard index.
func (s *Store) ShardPath(index int) string {
	return filepath.Join(s.ShardDir(), strconv.Itoa(index)+jsonExt)
}

// FailuresPath returns the failure sidecar of shard index.
func (s *Store) FailuresPath(index int) string {
	return filepath.Join(s.ShardDir(), strconv.Itoa(index)+failedExt)
}

// LoadRegistry reads the registry file. A missing registry is an error.
func (s *Store) LoadRegistry(ctx context.Context) (model.Registry, error) {
	var reg model.Registry
	if err := ioutils.ReadJSON(ctx, s.RegistryPath(), &reg); err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if reg == nil {
		reg = model.Registry{}
	}
	for _, site := range reg.Sites() {
		if err := s.CheckSite(site); err != nil {
			return nil, fmt.Errorf("read registry: %w", err)
		}
	}
	return reg, nil
}

// CheckSite reports whether site can name a catalog file. The name must be a
// plain file name and must not collide with the registry file or the shard
// directory.
func (s *Store) CheckSite(site string) error {
	switch {
	case site == "", site == ".", site == "..",
		site != filepath.Base(site), strings.ContainsAny(site, `/\`):
		return fmt.Errorf("%w: %q", ErrInvalidSite, site)
	case site+jsonExt == s.registryFile, site == strings.TrimSuffix(s.registryFile, filepath.Ext(s.registryFile)):
		return fmt.Errorf("%w: %q is the registry file", ErrInvalidSite, site)
	case site == s.shardDir, site+jsonExt == s.shardDir:
		return fmt.Errorf("%w: %q is the shard directory", ErrInvalidSite, site)
	}
	return nil
}

// SaveRegistry writes the registry with every site's items sorted by id.
func (s *Store) SaveRegistry(ctx context.Context, reg model.Registry) error {
	if err := ioutils.WriteJSON(ctx, s.RegistryPath(), reg.Sorted()); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// LoadCatalog reads a site's catalog. A site without a catalog file yet has
// no records.
func (s *Store) LoadCatalog(ctx context.Context, site string) ([]model.Extension, error) {
	if err := s.CheckSite(site); err != nil {
		return nil, err
	}

	var records []model.Extension
	err := ioutils.ReadJSON(ctx, s.CatalogPath(site), &records)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", site, err)
	}
	return records, nil
}

// LoadCatalogs reads the catalogs of the given sites.
func (s *Store) LoadCatalogs(ctx context.Context, sites []string) (model.Catalog, error) {
	c := make(model.Catalog, len(sites))
	for _, site := range sites {
		records, err := s.LoadCatalog(ctx, site)
		if err != nil {
			return nil, err
		}
		c[site] = records
	}
	return c, nil
}

// SaveCatalog writes a site's catalog sorted by id.
func (s *Store) SaveCatalog(ctx context.Context, site string, records []model.Extension) error {
	if err := s.CheckSite(site); err != nil {
		return err
	}

	sorted := make([]model.Extension, len(records))
	copy(sorted, records)
	model.SortByID(sorted)

	if err := ioutils.WriteJSON(ctx, s.CatalogPath(site), sorted); err != nil {
		return fmt.Errorf("write catalog %s: %w", site, err)
	}
	return nil
}

// WriteShard writes the result of shard index.
func (s *Store) WriteShard(ctx context.Context, index int, result model.Catalog) error {
	if result == nil {
		result = model.Catalog{}
	}
	if err := ioutils.WriteJSON(ctx, s.ShardPath(index), result); err != nil {
		return fmt.Errorf("write shard %d: %w", index, err)
	}
	return nil
}

// WriteShardFailures writes the failure sidecar of shard index, or removes a
// stale one when there are no failures.
func (s *Store) WriteShardFailures(ctx context.Context, index int, failures []model.Failure) error {
	path := s.FailuresPath(index)
	if len(failures) == 0 {
		return ioutils.RemoveAll(ctx, path)
	}
	if err := ioutils.WriteJSON(ctx, path, failures); err != nil {
		return fmt.Errorf("write shard %d failures: %w", index, err)
	}
	return nil
}

// ShardFiles lists the shard result files in directory order. Failure
// sidecars, directories and non-JSON files are skipped. A missing shard
// directory yields no files and no error.
func (s *Store) ShardFiles(ctx context.Context) ([]string, error) {
	return s.listShardDir(ctx, func(name string) bool {
		return strings.HasSuffix(name, jsonExt) && !strings.HasSuffix(name, failedExt)
	})
}

// FailureFiles lists the failure sidecars in the shard directory.
func (s *Store) FailureFiles(ctx context.Context) ([]string, error) {
	return s.listShardDir(ctx, func(name string) bool {
		return strings.HasSuffix(name, failedExt)
	})
}

func (s *Store) listShardDir(ctx context.Context, keep func(name string) bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.ShardDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read shard directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !keep(name) {
			continue
		}
		files = append(files, filepath.Join(s.ShardDir(), name))
	}
	return files, nil
}

// ReadShard reads one shard result file.
func (s *Store) ReadShard(ctx context.Context, path string) (model.Catalog, error) {
	var result model.Catalog
	if err := ioutils.ReadJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("read shard: %w", err)
	}
	return result, nil
}

// ReadShardFailures reads one failure sidecar.
func (s *Store) ReadShardFailures(ctx context.Context, path string) ([]model.Failure, error) {
	var failures []model.Failure
	if err := ioutils.ReadJSON(ctx, path, &failures); err != nil {
		return nil, fmt.Errorf("read shard failures: %w", err)
	}
	return failures, nil
}

// RemoveShards deletes the shard directory and everything in it. It is not
// an error if the directory does not exist.
func (s *Store) RemoveShards(ctx context.Context) error {
	return ioutils.RemoveAll(ctx, s.ShardDir())
}
