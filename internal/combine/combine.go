package combine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sudosubin/nix-chrome-extensions/internal/catalog"
	"github.com/sudosubin/nix-chrome-extensions/internal/config"
	"github.com/sudosubin/nix-chrome-extensions/internal/limit"
	"github.com/sudosubin/nix-chrome-extensions/internal/model"
	"github.com/sudosubin/nix-chrome-extensions/internal/progress"
)

// ErrDuplicateRecord is returned when two shards carry the same id with
// different hashes.
var ErrDuplicateRecord = errors.New("duplicate record with different hash")

// SiteSummary describes the catalog written for one site.
type SiteSummary struct {
	Site       string
	Records    int
	Duplicates int
}

// Summary describes one combine run.
type Summary struct {
	Sites       []SiteSummary
	ShardFiles  int
	FailedItems []model.Failure
}

// Combiner merges shard results.
type Combiner struct {
	settings   *config.Settings
	store      *catalog.Store
	onProgress progress.Func
}

// NewCombiner creates a new Combiner.
func NewCombiner(settings *config.Settings, store *catalog.Store, onProgress progress.Func) *Combiner {
	return &Combiner{
		settings:   settings,
		store:      store,
		onProgress: onProgress,
	}
}

// Run combines every shard result into the per-site catalogs and removes the
// shard directory. Nothing is removed if any step before it fails.
func (c *Combiner) Run(ctx context.Context) (*Summary, error) {
	c.onProgress.Emit(progress.LevelInfo, "format %s", c.store.RegistryPath())
	registry, err := c.store.LoadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveRegistry(ctx, registry); err != nil {
		return nil, err
	}

	pattern := filepath.Join(c.store.ShardDir(), "*.json")

	c.onProgress.Emit(progress.LevelInfo, "read %s", pattern)
	files, err := c.store.ShardFiles(ctx)
	if err != nil {
		return nil, err
	}
	shards, err := c.readShards(ctx, files)
	if err != nil {
		return nil, err
	}

	summary := &Summary{ShardFiles: len(files)}
	if summary.FailedItems, err = c.readFailures(ctx); err != nil {
		return nil, err
	}

	c.onProgress.Emit(progress.LevelInfo, "combine %s", pattern)
	merged := Merge(shards)

	final := make(model.Catalog, len(merged))
	for _, site := range merged.Sites() {
		if err := c.store.CheckSite(site); err != nil {
			return nil, err
		}
		records, dups, err := Dedup(merged[site])
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site, err)
		}
		if dups > 0 {
			c.onProgress.Emit(progress.LevelWarning, "%s: dropped %d duplicate records", site, dups)
		}
		final[site] = records
		summary.Sites = append(summary.Sites, SiteSummary{Site: site, Records: len(records), Duplicates: dups})
	}

	c.onProgress.Emit(progress.LevelInfo, "write %s", filepath.Join(c.store.Dir(), "*.json"))
	for _, site := range final.Sites() {
		if err := c.store.SaveCatalog(ctx, site, final[site]); err != nil {
			return nil, err
		}
		c.onProgress.Emit(progress.LevelVerbose, "wrote %s: %d records", c.store.CatalogPath(site), len(final[site]))
	}

	c.onProgress.Emit(progress.LevelInfo, "remove %s", pattern)
	if err := c.store.RemoveShards(ctx); err != nil {
		return nil, err
	}

	return summary, nil
}

func (c *Combiner) readShards(ctx context.Context, files []string) ([]model.Catalog, error) {
	tasks := make([]limit.Task[model.Catalog], len(files))
	for i, file := range files {
		tasks[i] = func(ctx context.Context) (model.Catalog, error) {
			return c.store.ReadShard(ctx, file)
		}
	}
	return limit.Run(ctx, c.settings.MaxConcurrent, tasks)
}

func (c *Combiner) readFailures(ctx context.Context) ([]model.Failure, error) {
	files, err := c.store.FailureFiles(ctx)
	if err != nil {
		return nil, err
	}

	var all []model.Failure
	for _, file := range files {
		failures, err := c.store.ReadShardFailures(ctx, file)
		if err != nil {
			return nil, err
		}
		for _, f := range failures {
			c.onProgress.Emit(progress.LevelWarning, "not updated %s/%s: %s", f.Site, f.ID, f.Error)
		}
		all = append(all, failures...)
	}
	return all, nil
}

// Merge appends every shard's records per site, in shard order and then
// record order within a shard.
func Merge(shards []model.Catalog) model.Catalog {
	merged := model.Catalog{}
	for _, result := range shards {
		for site, records := range result {
			merged[site] = append(merged[site], records...)
		}
	}
	return merged
}

// Dedup removes repeated ids from records and sorts the result by id. The
// last record seen for an id wins. Two records for the same id with
// different hashes fail with ErrDuplicateRecord.
func Dedup(records []model.Extension) ([]model.Extension, int, error) {
	out := make([]model.Extension, 0, len(records))
	seen := make(map[string]int, len(records))
	dups := 0

	for _, record := range records {
		i, ok := seen[record.ID]
		if !ok {
			seen[record.ID] = len(out)
			out = append(out, record)
			continue
		}
		if out[i].Hash != record.Hash {
			return nil, 0, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateRecord, record.ID, out[i].Hash, record.Hash)
		}
		out[i] = record
		dups++
	}

	model.SortByID(out)
	return out, dups, nil
}
