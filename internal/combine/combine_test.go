package combine_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/sudosubin/nix-chrome-extensions/internal/catalog"
	"github.com/sudosubin/nix-chrome-extensions/internal/combine"
	"github.com/sudosubin/nix-chrome-extensions/internal/config"
	"github.com/sudosubin/nix-chrome-extensions/internal/model"
	"github.com/sudosubin/nix-chrome-extensions/internal/shard"
	"github.com/sudosubin/nix-chrome-extensions/internal/testutils"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

func newCombiner(t *testing.T) (*combine.Combiner, *catalog.Store, string) {
	t.Helper()
	dir := t.TempDir()
	settings := config.DefaultSettings()
	settings.DataDir = dir
	store := catalog.NewStore(dir, settings.RegistryFile, settings.ShardDir)
	return combine.NewCombiner(settings, store, nil), store, dir
}

func rec(id, hash string) model.Extension {
	return model.Extension{ID: id, PName: id, Version: "1", URL: "R-" + id, Hash: hash, LastUpdated: "2026-01-01T00:00:00.000Z"}
}

func TestCombiner_Run(t *testing.T) {
	c, store, dir := newCombiner(t)
	ctx := context.Background()

	testutils.WriteRegistry(t, dir, model.Registry{
		"site-a": {{ID: "c", PName: "c"}, {ID: "a", PName: "a"}, {ID: "b", PName: "b"}},
		"site-b": {{ID: "x", PName: "x"}},
	})
	if err := store.WriteShard(ctx, 1, model.Catalog{"site-a": {rec("c", "H"), rec("a", "H")}}); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteShard(ctx, 2, model.Catalog{"site-a": {rec("b", "H")}, "site-b": {rec("x", "H")}}); err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantSummary := &combine.Summary{
		ShardFiles: 2,
		Sites: []combine.SiteSummary{
			{Site: "site-a", Records: 3},
			{Site: "site-b", Records: 1},
		},
	}
	if !reflect.DeepEqual(summary, wantSummary) {
		t.Errorf("Run() = %+v, want %+v", summary, wantSummary)
	}

	siteA, err := store.LoadCatalog(ctx, "site-a")
	if err != nil {
		t.Fatal(err)
	}
	if want := []model.Extension{rec("a", "H"), rec("b", "H"), rec("c", "H")}; !reflect.DeepEqual(siteA, want) {
		t.Errorf("site-a = %+v, want %+v", siteA, want)
	}

	registry, err := store.LoadRegistry(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := registry["site-a"]; got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("registry not normalized: %+v", got)
	}

	if _, err := os.Stat(store.ShardDir()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("shard directory not removed: %v", err)
	}
}

func TestCombiner_Run_Deterministic(t *testing.T) {
	shards := map[int]model.Catalog{
		1: {"site-a": {rec("m", "H1"), rec("b", "H2")}},
		2: {"site-a": {rec("z", "H3")}, "site-b": {rec("q", "H4"), rec("d", "H5")}},
		3: {"site-a": {rec("a", "H6")}},
	}

	run := func() map[string]string {
		c, store, dir := newCombiner(t)
		ctx := context.Background()
		testutils.WriteRegistry(t, dir, model.Registry{"site-a": nil, "site-b": nil})
		for index, result := range shards {
			if err := store.WriteShard(ctx, index, result); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := c.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return map[string]string{
			"site-a": testutils.ReadFile(t, dir, "site-a.json"),
			"site-b": testutils.ReadFile(t, dir, "site-b.json"),
		}
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("combine output differs between runs:\n%v\n%v", first, second)
	}
}

func TestCombiner_Run_SortedOutput(t *testing.T) {
	c, store, dir := newCombiner(t)
	ctx := context.Background()
	testutils.WriteRegistry(t, dir, model.Registry{})

	ids := []string{"pq", "ab", "Zz", "b", "aa", "a1", "0x"}
	for i, id := range ids {
		if err := store.WriteShard(ctx, i+1, model.Catalog{"site-a": {rec(id, "H")}}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records, err := store.LoadCatalog(ctx, "site-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(ids) {
		t.Fatalf("got %d records, want %d", len(records), len(ids))
	}
	if !sort.SliceIsSorted(records, func(i, j int) bool { return records[i].ID < records[j].ID }) {
		t.Errorf("records not sorted by id: %+v", records)
	}
}

func TestCombiner_Run_MissingShardDir(t *testing.T) {
	c, store, dir := newCombiner(t)
	ctx := context.Background()

	testutils.WriteRegistry(t, dir, model.Registry{"site-a": {{ID: "b", PName: "b"}, {ID: "a", PName: "a"}}})
	existing := []model.Extension{rec("a", "H")}
	if err := store.SaveCatalog(ctx, "site-a", existing); err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.ShardFiles != 0 || len(summary.Sites) != 0 {
		t.Errorf("Run() = %+v, want empty summary", summary)
	}

	got, err := store.LoadCatalog(ctx, "site-a")
	if err != nil || !reflect.DeepEqual(got, existing) {
		t.Errorf("catalog touched: %+v, %v", got, err)
	}
	registry, err := store.LoadRegistry(ctx)
	if err != nil || registry["site-a"][0].ID != "a" {
		t.Errorf("registry not normalized: %+v, %v", registry, err)
	}
}

func TestCombiner_Run_Failures(t *testing.T) {
	c, store, dir := newCombiner(t)
	ctx := context.Background()

	testutils.WriteRegistry(t, dir, model.Registry{"site-a": {{ID: "a", PName: "a"}}})
	if err := store.WriteShard(ctx, 1, model.Catalog{"site-a": {rec("a", "H")}}); err != nil {
		t.Fatal(err)
	}
	failures := []model.Failure{{ID: "b", Site: "site-a", Error: "extension is not available"}}
	if err := store.WriteShardFailures(ctx, 1, failures); err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.ShardFiles != 1 || !reflect.DeepEqual(summary.FailedItems, failures) {
		t.Errorf("Run() = %+v", summary)
	}
}

func TestCombiner_Run_ConflictingDuplicate(t *testing.T) {
	c, store, dir := newCombiner(t)
	ctx := context.Background()

	testutils.WriteRegistry(t, dir, model.Registry{"site-a": {{ID: "a", PName: "a"}}})
	if err := store.WriteShard(ctx, 1, model.Catalog{"site-a": {rec("a", "H1")}}); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteShard(ctx, 2, model.Catalog{"site-a": {rec("a", "H2")}}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Run(ctx); !errors.Is(err, combine.ErrDuplicateRecord) {
		t.Fatalf("Run() error = %v, want ErrDuplicateRecord", err)
	}
	if _, err := os.Stat(store.ShardPath(1)); err != nil {
		t.Errorf("shard files removed after failed combine: %v", err)
	}
}

func TestMerge(t *testing.T) {
	got := combine.Merge([]model.Catalog{
		{"site-a": {rec("b", "H")}},
		{"site-a": {rec("a", "H")}, "site-b": {rec("x", "H")}},
	})
	want := model.Catalog{
		"site-a": {rec("b", "H"), rec("a", "H")},
		"site-b": {rec("x", "H")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestDedup(t *testing.T) {
	older := rec("a", "H")
	newer := rec("a", "H")
	newer.LastUpdated = "2026-02-01T00:00:00.000Z"

	got, dups, err := combine.Dedup([]model.Extension{older, rec("c", "H"), newer, rec("b", "H")})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}
	want := []model.Extension{newer, rec("b", "H"), rec("c", "H")}
	if !reflect.DeepEqual(got, want) || dups != 1 {
		t.Errorf("Dedup() = %+v, %d; want %+v, 1", got, dups, want)
	}

	if _, _, err := combine.Dedup([]model.Extension{rec("a", "H1"), rec("a", "H2")}); !errors.Is(err, combine.ErrDuplicateRecord) {
		t.Errorf("Dedup() error = %v, want ErrDuplicateRecord", err)
	}
}

// updateThenCombine runs the given shards through the update manager, in
// order, and combines the results.
func updateThenCombine(t *testing.T, specs []shard.Spec) (*catalog.Store, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	settings := config.DefaultSettings()
	settings.DataDir = dir
	store := catalog.NewStore(dir, settings.RegistryFile, settings.ShardDir)

	testutils.WriteRegistry(t, dir, model.Registry{"site-a": {
		{ID: "zeta", PName: "zeta"},
		{ID: "alpha", PName: "alpha"},
	}})

	resolver := testutils.NewFakeResolver()
	resolver.Publish("zeta", "R-zeta", testutils.Package{Hash: "H-zeta", Version: "2.0"})
	resolver.Publish("alpha", "R-alpha", testutils.Package{Hash: "H-alpha", Version: "1.0"})

	m := update.NewManager(settings, store, map[string]update.Resolver{"site-a": resolver}, nil)
	for _, spec := range specs {
		if _, err := m.Run(ctx, spec); err != nil {
			t.Fatalf("update %s: %v", spec, err)
		}
	}

	if _, err := combine.NewCombiner(settings, store, nil).Run(ctx); err != nil {
		t.Fatalf("combine: %v", err)
	}
	return store, dir
}

func TestUpdateThenCombine_TwoShards(t *testing.T) {
	orders := map[string][]shard.Spec{
		"1 then 2": {{Index: 1, Size: 2}, {Index: 2, Size: 2}},
		"2 then 1": {{Index: 2, Size: 2}, {Index: 1, Size: 2}},
	}

	for name, specs := range orders {
		t.Run(name, func(t *testing.T) {
			store, _ := updateThenCombine(t, specs)

			records, err := store.LoadCatalog(context.Background(), "site-a")
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != 2 || records[0].ID != "alpha" || records[1].ID != "zeta" {
				t.Errorf("site-a = %+v, want alpha and zeta", records)
			}
			if records[0].Hash != "H-alpha" || records[1].Version != "2.0" {
				t.Errorf("unexpected records: %+v", records)
			}
		})
	}
}

func TestUpdateThenCombine_MatchesSingleShard(t *testing.T) {
	clearStamps := func(records []model.Extension) []model.Extension {
		for i := range records {
			records[i].LastUpdated = ""
		}
		return records
	}

	single, _ := updateThenCombine(t, []shard.Spec{shard.Default})
	split, _ := updateThenCombine(t, []shard.Spec{{Index: 1, Size: 2}, {Index: 2, Size: 2}})

	a, err := single.LoadCatalog(context.Background(), "site-a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := split.LoadCatalog(context.Background(), "site-a")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(clearStamps(a), clearStamps(b)) {
		t.Errorf("sharded run differs from single run:\n%+v\n%+v", a, b)
	}
}

func TestUpdateThenCombine_EndToEnd(t *testing.T) {
	_, dir := updateThenCombine(t, []shard.Spec{shard.Default})

	got := testutils.ReadFile(t, dir, "site-a.json")
	var records []model.Extension
	if err := json.Unmarshal([]byte(got), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("site-a.json has %d records", len(records))
	}
	for _, r := range records {
		if _, err := time.Parse(update.TimeLayout, r.LastUpdated); err != nil {
			t.Errorf("LastUpdated %q: %v", r.LastUpdated, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "shard")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("shard directory not removed: %v", err)
	}
}

func TestCombiner_Run_SiteCollidesWithRegistry(t *testing.T) {
	c, store, dir := newCombiner(t)
	ctx := context.Background()

	testutils.WriteRegistry(t, dir, model.Registry{"site-a": {{ID: "abc", PName: "foo"}}})
	if err := store.WriteShard(ctx, 1, model.Catalog{"all": {rec("abc", "H")}, "site-a": {rec("abc", "H")}}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Run(ctx); !errors.Is(err, catalog.ErrInvalidSite) {
		t.Fatalf("Run() error = %v, want ErrInvalidSite", err)
	}

	registry, err := store.LoadRegistry(ctx)
	if err != nil || len(registry["site-a"]) != 1 {
		t.Errorf("registry damaged: %+v, %v", registry, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "site-a.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("catalog written despite invalid site: %v", err)
	}
}
