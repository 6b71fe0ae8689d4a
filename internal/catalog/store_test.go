package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sudosubin/nix-chrome-extensions/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), "all.json", "shard")
}

func TestStore_Registry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.LoadRegistry(ctx); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("LoadRegistry() on empty dir error = %v, want fs.ErrNotExist", err)
	}

	reg := model.Registry{"site-a": {{ID: "b", PName: "bee"}, {ID: "a", PName: "ay"}}}
	if err := s.SaveRegistry(ctx, reg); err != nil {
		t.Fatalf("SaveRegistry() error = %v", err)
	}

	got, err := os.ReadFile(s.RegistryPath())
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "site-a": [
    {
      "id": "a",
      "pname": "ay"
    },
    {
      "id": "b",
      "pname": "bee"
    }
  ]
}
`
	if string(got) != want {
		t.Errorf("registry file =\n%s\nwant\n%s", got, want)
	}

	loaded, err := s.LoadRegistry(ctx)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	if loaded["site-a"][0].ID != "a" {
		t.Errorf("LoadRegistry() = %+v", loaded)
	}
}

func TestStore_Catalog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	records, err := s.LoadCatalog(ctx, "site-a")
	if err != nil || records != nil {
		t.Fatalf("LoadCatalog() missing = %v, %v; want nil, nil", records, err)
	}

	in := []model.Extension{{ID: "z"}, {ID: "a"}}
	if err := s.SaveCatalog(ctx, "site-a", in); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}
	if in[0].ID != "z" {
		t.Error("SaveCatalog() sorted the caller's slice")
	}

	all, err := s.LoadCatalogs(ctx, []string{"site-a", "site-b"})
	if err != nil {
		t.Fatalf("LoadCatalogs() error = %v", err)
	}
	if len(all["site-a"]) != 2 || all["site-a"][0].ID != "a" {
		t.Errorf("site-a = %+v", all["site-a"])
	}
	if len(all["site-b"]) != 0 {
		t.Errorf("site-b = %+v, want empty", all["site-b"])
	}
}

func TestStore_Shards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	files, err := s.ShardFiles(ctx)
	if err != nil || len(files) != 0 {
		t.Fatalf("ShardFiles() without dir = %v, %v", files, err)
	}

	if err := s.WriteShard(ctx, 2, model.Catalog{"site-a": {{ID: "b"}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteShard(ctx, 1, model.Catalog{"site-a": {{ID: "a"}}}); err != nil {
		t.Fatal(err)
	}
	failures := []model.Failure{{ID: "c", Site: "site-a", Error: "boom"}}
	if err := s.WriteShardFailures(ctx, 1, failures); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.ShardDir(), "README.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.ShardDir(), "nested.json"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err = s.ShardFiles(ctx)
	if err != nil {
		t.Fatalf("ShardFiles() error = %v", err)
	}
	want := []string{s.ShardPath(1), s.ShardPath(2)}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("ShardFiles() = %v, want %v", files, want)
	}

	failed, err := s.FailureFiles(ctx)
	if err != nil || len(failed) != 1 || failed[0] != s.FailuresPath(1) {
		t.Errorf("FailureFiles() = %v, %v", failed, err)
	}

	gotFailures, err := s.ReadShardFailures(ctx, failed[0])
	if err != nil || !reflect.DeepEqual(gotFailures, failures) {
		t.Errorf("ReadShardFailures() = %+v, %v", gotFailures, err)
	}

	result, err := s.ReadShard(ctx, files[1])
	if err != nil || result["site-a"][0].ID != "b" {
		t.Errorf("ReadShard() = %+v, %v", result, err)
	}

	// An empty failure list removes a stale sidecar.
	if err := s.WriteShardFailures(ctx, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.FailuresPath(1)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("stale failure sidecar still present: %v", err)
	}

	if err := s.RemoveShards(ctx); err != nil {
		t.Fatalf("RemoveShards() error = %v", err)
	}
	if _, err := os.Stat(s.ShardDir()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("shard dir still present: %v", err)
	}
	if err := s.RemoveShards(ctx); err != nil {
		t.Errorf("RemoveShards() on missing dir error = %v", err)
	}
}

func TestStore_CheckSite(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		site    string
		wantErr bool
	}{
		{"chrome-web-store", false},
		{"site.v2", false},
		{"", true},
		{".", true},
		{"..", true},
		{"../x", true},
		{"a/b", true},
		{`a\b`, true},
		{"all", true},
		{"shard", true},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			err := s.CheckSite(tt.site)
			if tt.wantErr != errors.Is(err, ErrInvalidSite) {
				t.Errorf("CheckSite(%q) error = %v, wantErr %v", tt.site, err, tt.wantErr)
			}
		})
	}
}

func TestStore_InvalidSite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	registry := []byte(`{"all": [{"id": "abc", "pname": "foo"}]}` + "\n")
	if err := os.WriteFile(s.RegistryPath(), registry, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadRegistry(ctx); !errors.Is(err, ErrInvalidSite) {
		t.Errorf("LoadRegistry() error = %v, want ErrInvalidSite", err)
	}

	if err := s.SaveCatalog(ctx, "all", []model.Extension{{ID: "abc"}}); !errors.Is(err, ErrInvalidSite) {
		t.Errorf("SaveCatalog(all) error = %v, want ErrInvalidSite", err)
	}
	if err := s.SaveCatalog(ctx, "../outside", nil); !errors.Is(err, ErrInvalidSite) {
		t.Errorf("SaveCatalog(../outside) error = %v, want ErrInvalidSite", err)
	}

	got, err := os.ReadFile(s.RegistryPath())
	if err != nil || string(got) != string(registry) {
		t.Errorf("registry file changed: %q, %v", got, err)
	}
}
