package ioutils

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSON_Format(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	data := []map[string]string{{"id": "abc", "pname": "foo"}}
	if err := WriteJSON(ctx, path, data); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := "[\n  {\n    \"id\": \"abc\",\n    \"pname\": \"foo\"\n  }\n]\n"
	if string(got) != want {
		t.Errorf("file content = %q, want %q", got, want)
	}

	// No temporary files may be left next to the target.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestMarshalJSON_NoHTMLEscape(t *testing.T) {
	got, err := MarshalJSON(map[string]string{"url": "https://example.com/crx?a=1&b=<2>"})
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	want := "{\n  \"url\": \"https://example.com/crx?a=1&b=<2>\"\n}\n"
	if string(got) != want {
		t.Errorf("MarshalJSON() = %q, want %q", got, want)
	}
}

func TestReadJSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("roundtrip", func(t *testing.T) {
		path := filepath.Join(dir, "registry.json")
		in := map[string][]string{"site": {"a", "b"}}
		if err := WriteJSON(ctx, path, in); err != nil {
			t.Fatal(err)
		}

		var out map[string][]string
		if err := ReadJSON(ctx, path, &out); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if len(out["site"]) != 2 || out["site"][1] != "b" {
			t.Errorf("ReadJSON() = %v", out)
		}
	})

	t.Run("missing", func(t *testing.T) {
		var out any
		err := ReadJSON(ctx, filepath.Join(dir, "missing.json"), &out)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("ReadJSON() error = %v, want fs.ErrNotExist", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		var out any
		if err := ReadJSON(ctx, path, &out); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var out any
		if err := ReadJSON(cctx, filepath.Join(dir, "registry.json"), &out); !errors.Is(err, context.Canceled) {
			t.Errorf("ReadJSON() error = %v, want context.Canceled", err)
		}
	})
}

func TestTempDir_Cleanup(t *testing.T) {
	dir, cleanup, err := TempDir("ioutils-test-")
	if err != nil {
		t.Fatalf("TempDir() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cleanup()
	cleanup()

	if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("temp dir still exists after cleanup: %v", err)
	}
}

func TestRemoveAll_Missing(t *testing.T) {
	if err := RemoveAll(context.Background(), filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Errorf("RemoveAll() error = %v", err)
	}
}
