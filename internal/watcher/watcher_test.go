package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) onChange(changes []Change) {
	r.mu.Lock()
	r.batches = append(r.batches, changes)
	r.mu.Unlock()
}

func (r *recorder) snapshot() [][]Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Change(nil), r.batches...)
}

func startWatcher(t *testing.T, dir string, rec *recorder) *Watcher {
	t.Helper()
	w := NewWatcher(dir, []string{".jpg", ".png"}, rec.onChange, WithDebounce(200*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_CoalescesBurstIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	for _, name := range []string{"b.jpg", "a.png", "notes.txt"} {
		if err := writeFile(filepath.Join(dir, name), "x"); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(700 * time.Millisecond)

	batches := rec.snapshot()
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %d: %v", len(batches), batches)
	}
	got := batches[0]
	if len(got) != 2 {
		t.Fatalf("expected 2 image changes, got %v", got)
	}
	if filepath.Base(got[0].Path) != "a.png" || filepath.Base(got[1].Path) != "b.jpg" {
		t.Errorf("changes not sorted by path: %v", got)
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.jpg")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatcher(t, dir, rec)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)

	batches := rec.snapshot()
	if len(batches) != 1 || len(batches[0]) != 1 || !batches[0][0].Removed {
		t.Errorf("expected one removal, got %v", batches)
	}
}

func TestWatcher_IgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	if err := os.MkdirAll(filepath.Join(dir, "nested.jpg"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	if batches := rec.snapshot(); len(batches) != 0 {
		t.Errorf("directory creation should not trigger changes, got %v", batches)
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := startWatcher(t, dir, rec)

	if err := writeFile(filepath.Join(dir, "a.jpg"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if batches := rec.snapshot(); len(batches) != 0 {
		t.Errorf("expected no batches after Stop, got %v", batches)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "products", "new")
	w := NewWatcher(root, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("directory should exist after Start: %v", err)
	}
	if w.Dir() != root {
		t.Errorf("Dir() = %q, want %q", w.Dir(), root)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.jpg", []string{".jpg"}, true},
		{"/a/b.JPG", []string{".jpg"}, true},
		{"/a/b.png", []string{"png"}, true},
		{"/a/b.txt", []string{".jpg"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
