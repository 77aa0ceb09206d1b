package catalog

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/katachi/internal/storage"
)

// Status summarizes the catalog for the status command and /api/v1/status.
type Status struct {
	ProductsDir   string `json:"products_dir"`
	ImagesOnDisk  int    `json:"images_on_disk"`
	IndexedImages int    `json:"indexed_images"`
	StoredRecords int64  `json:"stored_records"`
	KeywordDocs   uint64 `json:"keyword_docs"`
	Dimensions    int    `json:"dimensions"`
	IndexPath     string `json:"index_path"`
	IndexFiles    int    `json:"index_files"`
	IndexBytes    int64  `json:"index_bytes"`
	// Stale is set when the products directory no longer matches the index.
	Stale bool `json:"stale"`
}

// Status reports counts from every index. Missing pieces report zero.
func (c *Catalog) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		ProductsDir:   c.productsDir,
		IndexedImages: c.store.Size(),
		Dimensions:    c.store.Dimensions(),
		IndexPath:     c.store.IndexPath(),
	}
	if names, err := ListImages(c.productsDir, c.extensions); err == nil {
		st.ImagesOnDisk = len(names)
	}
	if c.storage != nil {
		n, err := c.storage.CountProducts(ctx)
		if err != nil {
			return nil, err
		}
		st.StoredRecords = n
	}
	if c.keywords != nil {
		n, err := c.keywords.DocCount()
		if err != nil {
			return nil, err
		}
		st.KeywordDocs = n
	}
	usage, err := storage.DiskUsage(filepath.Dir(c.store.IndexPath()))
	if err != nil {
		return nil, err
	}
	st.IndexFiles = usage.Files
	st.IndexBytes = usage.Bytes
	st.Stale = st.ImagesOnDisk != st.IndexedImages
	return st, nil
}
