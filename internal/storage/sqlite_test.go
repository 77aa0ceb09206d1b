package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/katachi/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "katachi.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_ReplaceAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	products := []*models.Product{
		{ID: 0, Filename: "a.jpg", Path: "/p/a.jpg", Format: "jpeg", Width: 640, Height: 480, SizeBytes: 1234, ModTime: mod},
		{ID: 1, Filename: "b.png", Path: "/p/b.png", Format: "png", Width: 10, Height: 20, SizeBytes: 99, ModTime: mod},
	}
	if err := store.ReplaceProducts(ctx, products); err != nil {
		t.Fatal(err)
	}
	if products[0].IndexedAt.IsZero() {
		t.Error("IndexedAt should be set")
	}

	got, err := store.GetProduct(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "b.png" || got.Width != 10 || got.Height != 20 || got.Format != "png" {
		t.Errorf("got %+v", got)
	}
	if !got.ModTime.Equal(mod) {
		t.Errorf("ModTime=%v, want %v", got.ModTime, mod)
	}

	byName, err := store.GetProductByFilename(ctx, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != 0 {
		t.Errorf("ID=%d, want 0", byName.ID)
	}

	if _, err := store.GetProduct(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}
	if _, err := store.GetProductByFilename(ctx, "zzz.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_ReplaceDropsOldRows(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_ = store.ReplaceProducts(ctx, []*models.Product{
		{ID: 0, Filename: "old1.jpg", Path: "old1.jpg"},
		{ID: 1, Filename: "old2.jpg", Path: "old2.jpg"},
	})
	if err := store.ReplaceProducts(ctx, []*models.Product{{ID: 0, Filename: "new.jpg", Path: "new.jpg"}}); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountProducts(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountProducts: %v, %d", err, n)
	}
	got, _ := store.GetProduct(ctx, 0)
	if got == nil || got.Filename != "new.jpg" {
		t.Errorf("got %+v, want new.jpg", got)
	}
}

func TestSQLiteStorage_List(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	var products []*models.Product
	for i := 0; i < 5; i++ {
		products = append(products, &models.Product{ID: int64(i), Filename: string(rune('a'+i)) + ".jpg"})
	}
	if err := store.ReplaceProducts(ctx, products); err != nil {
		t.Fatal(err)
	}
	list, err := store.ListProducts(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Errorf("got %d products starting at %v", len(list), list)
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	store := newTestStorage(t)
	n, err := store.CountProducts(context.Background())
	if err != nil || n != 0 {
		t.Errorf("CountProducts: %v, %d", err, n)
	}
}
