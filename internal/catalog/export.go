package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"ID", "Name", "Price", "Stock", "Category", "Images", "Description", "CreatedAt", "UpdatedAt",
}

// ExportProducts writes every product as an .xlsx workbook to w.
func ExportProducts(ctx context.Context, svc Service, w io.Writer) error {
	products, err := svc.ListProducts(ctx, Filter{})
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("export: failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.String())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(p.CategoryName)
		row.AddCell().SetString(strings.Join(p.Images, ","))
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("export: failed to write workbook: %w", err)
	}
	return nil
}
