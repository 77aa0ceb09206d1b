package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	idx, err := NewMemoryIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(dir, "faiss_index", "index.bin")
	return NewStore(idx, indexPath, filepath.Join(dir, "faiss_index", "id_to_filename.json"))
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore(t, dir)
	if err := s.Add(ctx, 0, []float32{1, 0}, "a.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, 1, []float32{0, 1}, "b.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	fresh := newTestStore(t, dir)
	ok, err := fresh.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Load reported no index")
	}
	if fresh.Size() != 2 {
		t.Errorf("Size=%d, want 2", fresh.Size())
	}
	res, err := fresh.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].ID != 1 || fresh.Filename(res[0].ID) != "b.jpg" {
		t.Errorf("got id %d (%s), want 1 (b.jpg)", res[0].ID, fresh.Filename(res[0].ID))
	}
	if fresh.Filename(99) != UnknownFilename {
		t.Errorf("Filename(99)=%s", fresh.Filename(99))
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	ok, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if ok || s.Exists() || s.Size() != 0 {
		t.Errorf("missing index should leave the store empty (ok=%v size=%d)", ok, s.Size())
	}
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())
	_ = s.Add(ctx, 0, []float32{1, 1}, "a.jpg")
	idx, _ := NewMemoryIndex(2)
	if err := s.Reset(idx); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 0 || s.mapping.Len() != 0 {
		t.Errorf("Reset left size=%d mapping=%d", s.Size(), s.mapping.Len())
	}
	if got := s.Filename(0); got != UnknownFilename {
		t.Errorf("Filename(0)=%q after Reset, want %q", got, UnknownFilename)
	}
}
