// Package export renders the purchase ledger into spreadsheet form.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"puerto-real/internal/core"
)

const (
	PurchasesSheet = "Purchases"
	ItemsSheet     = "Items"

	// numFmtTwoDecimals is the excelize built-in "0.00" format.
	numFmtTwoDecimals = 2
)

var (
	purchaseHeader = []any{"Code", "Supplier", "Date", "Items", "Total"}
	itemHeader     = []any{"Code", "Line", "Item", "Unit price"}
)

// WritePurchasesXLSX writes one row per purchase to the Purchases sheet and
// one row per line item to the Items sheet, in the order given.
func WritePurchasesXLSX(w io.Writer, purchases []core.Purchase) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PurchasesSheet); err != nil {
		return fmt.Errorf("naming purchases sheet: %w", err)
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return fmt.Errorf("creating items sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return fmt.Errorf("creating amount style: %w", err)
	}

	if err := writeHeader(f, PurchasesSheet, purchaseHeader, bold); err != nil {
		return err
	}
	if err := writeHeader(f, ItemsSheet, itemHeader, bold); err != nil {
		return err
	}

	itemRow := 2
	for i, p := range purchases {
		row := i + 2
		values := []any{p.Code, p.SupplierName, p.Date, len(p.Items), p.TotalAmount.InexactFloat64()}
		if err := setRow(f, PurchasesSheet, row, values); err != nil {
			return err
		}
		if err := styleCell(f, PurchasesSheet, 5, row, money); err != nil {
			return err
		}

		for n, it := range p.Items {
			if err := setRow(f, ItemsSheet, itemRow, []any{p.Code, n + 1, it.Name, it.UnitPrice.InexactFloat64()}); err != nil {
				return err
			}
			if err := styleCell(f, ItemsSheet, 4, itemRow, money); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.SetColWidth(PurchasesSheet, "A", "E", 16); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(ItemsSheet, "A", "D", 16); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleCell(f *excelize.File, sheet string, col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}
