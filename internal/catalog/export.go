package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/hyperjump/katachi/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Products"

var exportHeader = []interface{}{"ID", "Filename", "Format", "Width", "Height", "Size (bytes)", "Modified", "Indexed"}

// Export writes the stored product records as an xlsx workbook to w.
func (c *Catalog) Export(ctx context.Context, w io.Writer) (int, error) {
	var products []*models.Product
	if c.storage != nil {
		var err error
		products, err = c.storage.ListProducts(ctx, 0, -1)
		if err != nil {
			return 0, fmt.Errorf("list products: %w", err)
		}
	}
	f, err := productWorkbook(products)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(products), nil
}

func productWorkbook(products []*models.Product) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			p.ID,
			p.Filename,
			p.Format,
			p.Width,
			p.Height,
			p.SizeBytes,
			p.ModTime.Format("2006-01-02 15:04:05"),
			p.IndexedAt.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
