package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical empty", "", "", 0},
		{"identical word", "boot", "boot", 0},
		{"identical unicode", "こんにちは", "こんにちは", 0},
		{"empty a", "", "hello", 5},
		{"empty b", "hello", "", 5},
		{"one substitution", "boot", "bolt", 1},
		{"one insertion", "bag", "bags", 1},
		{"one deletion", "sneaker", "snaker", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
		{"case difference", "Boot", "boot", 1},
		{"unicode substitution", "café", "cafe", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevenshteinDistance(tt.a, tt.b); got != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
			if got := LevenshteinDistance(tt.b, tt.a); got != tt.expected {
				t.Errorf("distance should be symmetric: (%q, %q) = %d", tt.b, tt.a, got)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	dict := []string{"sneaker", "sneakers", "speaker", "boot", "loafer"}
	got := Suggest(dict, "sneakr", 2, 5)
	want := []string{"sneaker", "sneakers", "speaker"}
	if len(got) != len(want) {
		t.Fatalf("Suggest=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Suggest[%d]=%s, want %s", i, got[i], want[i])
		}
	}

	if got := Suggest(dict, "boot", 1, 5); len(got) != 0 {
		t.Errorf("exact match should produce no suggestions, got %v", got)
	}
	if got := Suggest(dict, "sneakr", 2, 1); len(got) != 1 {
		t.Errorf("limit not applied: %v", got)
	}
}
