package local

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "subdir", "nested")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.basePath != newDir {
		t.Errorf("basePath = %v, want %v", store.basePath, newDir)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_Put_Get(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	type record struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	original := []record{{Name: "a", Value: 1}, {Name: "b", Value: 2}}
	if err := store.Put("records", original); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var loaded []record
	if err := store.Get("records", &loaded); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if len(loaded) != 2 || loaded[0] != original[0] || loaded[1] != original[1] {
		t.Errorf("Get() = %+v, want %+v", loaded, original)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var data []string
	if err := store.Get("missing", &data); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Get_Malformed(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var data []string
	err := store.Get("broken", &data)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Get() error = %v, want ErrDecode", err)
	}
}

func TestStore_Put_Overwrite(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	store.Put("item", map[string]int{"value": 1})
	store.Put("item", map[string]int{"value": 2})

	var loaded map[string]int
	if err := store.Get("item", &loaded); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loaded["value"] != 2 {
		t.Errorf("value = %v, want 2 (overwritten)", loaded["value"])
	}
}

func TestStore_Put_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	for i := 0; i < 3; i++ {
		if err := store.Put("item", i); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "item.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want [item.json]", names)
	}
}

func TestStore_InvalidKey(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := store.Put(key, 1); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
		var v int
		if err := store.Get(key, &v); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestStore_Concurrency(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.Put("shared", map[string]int{"value": n})
		}(i)
		go func() {
			defer wg.Done()
			var v map[string]int
			store.Get("shared", &v)
		}()
	}
	wg.Wait()

	var final map[string]int
	if err := store.Get("shared", &final); err != nil {
		t.Fatalf("Get() after concurrent writes error = %v", err)
	}
}
