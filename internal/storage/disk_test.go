package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	indexDir := filepath.Join(dir, "faiss_index")
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"index.bin":           "0123456789",
		"index.bin_ids.npy":   "npy",
		"id_to_filename.json": "{}",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(indexDir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	db := filepath.Join(dir, "katachi.db")
	if err := os.WriteFile(db, []byte("sqlite"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  Usage
	}{
		{"index dir", []string{indexDir}, Usage{Files: 3, Bytes: 15}},
		{"single file", []string{db}, Usage{Files: 1, Bytes: 6}},
		{"dir and file", []string{indexDir, db}, Usage{Files: 4, Bytes: 21}},
		{"missing skipped", []string{filepath.Join(dir, "nope"), db}, Usage{Files: 1, Bytes: 6}},
		{"empty skipped", []string{"", db}, Usage{Files: 1, Bytes: 6}},
		{"nothing", nil, Usage{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsage(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
