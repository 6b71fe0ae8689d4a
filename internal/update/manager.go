package update

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sudosubin/nix-chrome-extensions/internal/catalog"
	"github.com/sudosubin/nix-chrome-extensions/internal/config"
	"github.com/sudosubin/nix-chrome-extensions/internal/limit"
	"github.com/sudosubin/nix-chrome-extensions/internal/model"
	"github.com/sudosubin/nix-chrome-extensions/internal/progress"
	"github.com/sudosubin/nix-chrome-extensions/internal/shard"
)

// TimeLayout is the format of Extension.LastUpdated.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Outcome classifies what happened to one item.
type Outcome int

const (
	// OutcomeSkipped means the reference was unchanged and nothing was fetched.
	OutcomeSkipped Outcome = iota
	// OutcomeNew means the item had no previous record.
	OutcomeNew
	// OutcomeChanged means the package hash or version changed.
	OutcomeChanged
	// OutcomeUnchanged means the reference moved but the content did not.
	OutcomeUnchanged
	// OutcomeFailed means the item could not be updated (keep-going only).
	OutcomeFailed
)

// Result is the outcome of updating one item.
type Result struct {
	Record  model.Extension
	Outcome Outcome
	Size    int64
}

// Manager runs update shards.
type Manager struct {
	settings  *config.Settings
	store     *catalog.Store
	resolvers map[string]Resolver
	now       func() time.Time

	total int32
	done  int32

	onProgress progress.Func
}

// NewManager creates a new update Manager. resolvers maps a registry site to
// the Resolver for that store.
func NewManager(settings *config.Settings, store *catalog.Store, resolvers map[string]Resolver, onProgress progress.Func) *Manager {
	return &Manager{
		settings:   settings,
		store:      store,
		resolvers:  resolvers,
		now:        time.Now,
		onProgress: onProgress,
	}
}

// GetProgress returns how many items of the current run are finished.
func (m *Manager) GetProgress() (done, total int32) {
	return atomic.LoadInt32(&m.done), atomic.LoadInt32(&m.total)
}

// UpdateItem brings one item's record up to date.
//
// The item's reference is always resolved. If prev has the same reference,
// prev is returned untouched. Otherwise the package is fetched and a new
// record is built; its LastUpdated is now if there was no previous record or
// the hash or version differ, and prev's LastUpdated otherwise.
func (m *Manager) UpdateItem(ctx context.Context, item model.TrackedItem, prev *model.Extension) (*Result, error) {
	resolver, ok := m.resolvers[item.Site]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSite, item.Site)
	}

	ref, err := resolver.ResolveReference(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	if prev != nil && prev.URL == ref {
		m.onProgress.Emit(progress.LevelInfo, "skip %s: url unchanged", item.ID)
		return &Result{Record: *prev, Outcome: OutcomeSkipped}, nil
	}

	m.onProgress.Emit(progress.LevelInfo, "download and unzip %s", item.ID)

	cur, err := resolver.FetchAndInspect(ctx, ref)
	if err != nil {
		return nil, err
	}
	m.onProgress.Emit(progress.LevelVerbose, "fetched %s: %s, version %s", item.ID, humanize.Bytes(uint64(cur.Size)), cur.Version)

	record := model.Extension{
		ID:      item.ID,
		PName:   item.PName,
		Version: cur.Version,
		URL:     ref,
		Hash:    cur.Hash,
	}

	result := &Result{Record: record, Size: cur.Size}
	switch {
	case prev == nil:
		result.Outcome = OutcomeNew
		result.Record.LastUpdated = m.timestamp()
		m.onProgress.Emit(progress.LevelSuccess, "new %s: %s", item.ID, cur.Version)
	case prev.Hash != cur.Hash || prev.Version != cur.Version:
		result.Outcome = OutcomeChanged
		result.Record.LastUpdated = m.timestamp()
		m.onProgress.Emit(progress.LevelSuccess, "update %s: %s -> %s (%s)", item.ID, prev.Version, cur.Version, DescribeVersionChange(prev.Version, cur.Version))
	default:
		result.Outcome = OutcomeUnchanged
		result.Record.LastUpdated = prev.LastUpdated
		m.onProgress.Emit(progress.LevelVerbose, "keep %s: url changed, content unchanged", item.ID)
	}

	return result, nil
}

func (m *Manager) timestamp() string {
	return m.now().UTC().Format(TimeLayout)
}

// Run updates every item of one shard and writes the shard result file.
//
// Without keep-going, the first failing item aborts the run and no shard file
// is written. With keep-going, failed items keep their previous record (if
// they have one), are listed in the shard's failure sidecar, and the run
// still succeeds.
func (m *Manager) Run(ctx context.Context, spec shard.Spec) (*Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	m.onProgress.Emit(progress.LevelInfo, "update shard: %s", spec)

	registry, err := m.store.LoadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	items := registry.Tracked()

	previous, err := m.store.LoadCatalogs(ctx, registry.Sites())
	if err != nil {
		return nil, err
	}

	sharded := shard.Plan(items, spec)
	m.onProgress.Emit(progress.LevelInfo, "load sharded extensions: %d", len(sharded))

	atomic.StoreInt32(&m.total, int32(len(sharded)))
	atomic.StoreInt32(&m.done, 0)

	tasks := make([]limit.Task[*Result], len(sharded))
	for i, item := range sharded {
		prev := previous.Find(item.Site, item.ID)
		tasks[i] = func(ctx context.Context) (*Result, error) {
			defer atomic.AddInt32(&m.done, 1)
			r, err := m.UpdateItem(ctx, item, prev)
			if err != nil {
				return nil, &ItemError{ID: item.ID, Site: item.Site, Err: err}
			}
			return r, nil
		}
	}

	report := newReport(spec, len(sharded))

	var results []*Result
	if m.settings.KeepGoing {
		results = m.settle(ctx, sharded, previous, tasks, report)
	} else {
		results, err = limit.Run(ctx, m.settings.MaxConcurrent, tasks)
		if err != nil {
			m.onProgress.Emit(progress.LevelError, "update shard %s failed: %v", spec, err)
			return nil, err
		}
	}

	records := make([]model.Extension, 0, len(results))
	for i, r := range results {
		if r == nil {
			continue
		}
		records = append(records, r.Record)
		report.add(sharded[i].Site, r)
	}

	grouped, err := GroupBySite(records, items)
	if err != nil {
		return nil, err
	}

	if err := m.store.WriteShard(ctx, spec.Index, grouped); err != nil {
		return nil, err
	}
	if err := m.store.WriteShardFailures(ctx, spec.Index, report.Failures); err != nil {
		return nil, err
	}

	m.onProgress.Emit(progress.LevelSuccess, "wrote %s", m.store.ShardPath(spec.Index))
	return report, nil
}

// settle runs tasks capturing each failure. A failed item is replaced by its
// previous record so the combined catalog does not lose it.
func (m *Manager) settle(ctx context.Context, items []model.TrackedItem, previous model.Catalog, tasks []limit.Task[*Result], report *Report) []*Result {
	settled := limit.RunSettled(ctx, m.settings.MaxConcurrent, tasks)

	results := make([]*Result, len(settled))
	for i, s := range settled {
		if s.Err == nil {
			results[i] = s.Value
			continue
		}

		item := items[i]
		m.onProgress.Emit(progress.LevelWarning, "failed %s: %v", item.ID, s.Err)
		report.Failures = append(report.Failures, model.Failure{ID: item.ID, Site: item.Site, Error: s.Err.Error()})

		if prev := previous.Find(item.Site, item.ID); prev != nil {
			results[i] = &Result{Record: *prev, Outcome: OutcomeFailed}
		} else {
			report.site(item.Site).Failed++
		}
	}
	return results
}

// GroupBySite groups records by the site of the tracked item with the same id.
// A record without a matching tracked item fails with ErrOrphanRecord.
func GroupBySite(records []model.Extension, items []model.TrackedItem) (model.Catalog, error) {
	sites := make(map[string]string, len(items))
	for _, item := range items {
		if _, ok := sites[item.ID]; !ok {
			sites[item.ID] = item.Site
		}
	}

	grouped := model.Catalog{}
	for _, record := range records {
		site, ok := sites[record.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrOrphanRecord, record.ID)
		}
		grouped[site] = append(grouped[site], record)
	}
	return grouped, nil
}
