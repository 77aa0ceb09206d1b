package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/katachi/internal/models"
)

func newIndexed(t *testing.T, path string, filenames ...string) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	for i, name := range filenames {
		if err := idx.Index(context.Background(), &models.Product{ID: int64(i), Filename: name}); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	return idx
}

func TestBleveIndex_SearchFindsFilenameTerms(t *testing.T) {
	idx := newIndexed(t, filepath.Join(t.TempDir(), "bleve"),
		"red_sneaker_01.jpg", "BlackLeatherBoot.png", "canvas-tote-bag.webp")
	ctx := context.Background()

	results, err := idx.Search(ctx, "sneaker", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 0 {
		t.Fatalf("results=%v, want product 0", results)
	}

	results, err = idx.Search(ctx, "leather boot", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != 1 {
		t.Errorf("camelCase filename should match split words, got %v", results)
	}

	results, _ = idx.Search(ctx, "TOTE", 10, nil)
	if len(results) != 1 || results[0].ID != 2 {
		t.Errorf("search should be case-insensitive, got %v", results)
	}

	results, _ = idx.Search(ctx, "jpg", 10, nil)
	if len(results) != 0 {
		t.Errorf("extension should not be indexed, got %v", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newIndexed(t, "", "red_sneaker.jpg", "brown_loafer.jpg")
	ctx := context.Background()

	exact, _ := idx.Search(ctx, "sneakr", 10, nil)
	if len(exact) != 0 {
		t.Errorf("exact search should not match typo, got %v", exact)
	}
	fuzzy, err := idx.Search(ctx, "sneakr", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) != 1 || fuzzy[0].ID != 0 {
		t.Errorf("fuzzy results=%v, want product 0", fuzzy)
	}
}

func TestBleveIndex_ResetAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = idx.Index(ctx, &models.Product{ID: 7, Filename: "green_bag.jpg"})
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if n, _ := reopened.DocCount(); n != 1 {
		t.Errorf("DocCount after reopen=%d, want 1", n)
	}
	if err := reopened.Reset(); err != nil {
		t.Fatal(err)
	}
	if n, _ := reopened.DocCount(); n != 0 {
		t.Errorf("DocCount after Reset=%d, want 0", n)
	}
	if err := reopened.Index(ctx, &models.Product{ID: 0, Filename: "blue_boot.jpg"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := reopened.DocCount(); n != 1 {
		t.Errorf("DocCount=%d, want 1", n)
	}
}

func TestBleveIndex_DeleteAndTerms(t *testing.T) {
	idx := newIndexed(t, "", "red_bag.jpg", "blue_bag.jpg")
	ctx := context.Background()
	if err := idx.Delete(ctx, 0); err != nil {
		t.Fatal(err)
	}
	results, _ := idx.Search(ctx, "bag", 10, nil)
	if len(results) != 1 || results[0].ID != 1 {
		t.Errorf("results=%v, want only product 1", results)
	}
	terms, err := idx.Terms()
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, term := range terms {
		found[term] = true
	}
	if !found["blue"] || !found["bag"] {
		t.Errorf("terms=%v, want blue and bag", terms)
	}
}

func TestFilenameTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"red_sneaker_01.jpg", []string{"red", "sneaker", "01"}},
		{"BlackLeatherBoot.png", []string{"black", "leather", "boot"}},
		{"tote-bag2.webp", []string{"tote", "bag", "2"}},
		{"plain", []string{"plain"}},
		{".hidden", []string{"hidden"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := FilenameTerms(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("FilenameTerms(%q)=%v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("FilenameTerms(%q)=%v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}
