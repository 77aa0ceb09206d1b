package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshedden/gonpy"
)

// writeIDs stores ids as a one-dimensional int64 NumPy array.
func writeIDs(path string, ids []int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ids dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ids file: %w", err)
	}
	w, err := gonpy.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("open ids writer: %w", err)
	}
	w.Shape = []int{len(ids)}
	// WriteInt64 closes the underlying file.
	if err := w.WriteInt64(ids); err != nil {
		return fmt.Errorf("write ids: %w", err)
	}
	return nil
}

// readIDs loads a one-dimensional integer NumPy array. A missing file yields an empty list.
func readIDs(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []int64{}, nil
		}
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer f.Close()
	r, err := gonpy.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read ids header: %w", err)
	}
	if len(r.Shape) > 1 {
		return nil, fmt.Errorf("ids file has shape %v, want one dimension", r.Shape)
	}
	var ids []int64
	switch strings.TrimLeft(r.Dtype, "<>|=") {
	case "i8":
		ids, err = r.GetInt64()
	case "i4":
		var small []int32
		small, err = r.GetInt32()
		ids = make([]int64, len(small))
		for i, v := range small {
			ids[i] = int64(v)
		}
	default:
		return nil, fmt.Errorf("ids file has dtype %s, want integer", r.Dtype)
	}
	if err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return ids, nil
}
