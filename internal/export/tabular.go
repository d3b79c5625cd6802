package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
)

// writeWorkbook renders the document as a spreadsheet: an "OCR Results"
// sheet holding the recognized content and a "Metadata" sheet with the
// export provenance.
func writeWorkbook(path string, meta Metadata, doc *normalize.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	const resultsSheet = "OCR Results"
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}

	row := 1
	if err := setCell(f, resultsSheet, 1, row, "Text"); err != nil {
		return err
	}
	row++

	if doc != nil {
		for _, line := range doc.Lines {
			if line.Kind == normalize.KindTableMarker {
				if line.Grid >= 0 && line.Grid < len(doc.Grids) {
					var err error
					row, err = writeGrid(f, resultsSheet, row, &doc.Grids[line.Grid])
					if err != nil {
						return err
					}
				}
				continue
			}
			if err := setCell(f, resultsSheet, 1, row, line.String()); err != nil {
				return err
			}
			row++
		}
	}

	if err := writeMetadataSheet(f, meta); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// writeGrid lays a table grid into the sheet starting at startRow. Span
// origins are merged across their covered range so the workbook mirrors
// the recognized table structure.
func writeGrid(f *excelize.File, sheet string, startRow int, grid *normalize.TableGrid) (int, error) {
	for r, cells := range grid.Rows {
		for c, cell := range cells {
			if !cell.IsSpanOrigin {
				continue
			}
			if err := setCell(f, sheet, c+1, startRow+r, cell.Text); err != nil {
				return startRow, err
			}
			if cell.RowSpan > 1 || cell.ColSpan > 1 {
				topLeft, err := excelize.CoordinatesToCellName(c+1, startRow+r)
				if err != nil {
					return startRow, err
				}
				bottomRight, err := excelize.CoordinatesToCellName(c+cell.ColSpan, startRow+r+cell.RowSpan-1)
				if err != nil {
					return startRow, err
				}
				if err := f.MergeCell(sheet, topLeft, bottomRight); err != nil {
					return startRow, err
				}
			}
		}
	}
	return startRow + len(grid.Rows), nil
}

func writeMetadataSheet(f *excelize.File, meta Metadata) error {
	const sheet = "Metadata"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][2]string{
		{"Original File", meta.OriginalFile},
		{"OCR Engine", meta.Engine},
		{"Document Type", meta.DocumentType},
		{"Export Time", meta.ExportedAt.Format("2006-01-02 15:04:05")},
	}
	for i, kv := range rows {
		if err := setCell(f, sheet, 1, i+1, kv[0]); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, i+1, kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell (%d,%d): %w", col, row, err)
	}
	return f.SetCellValue(sheet, name, value)
}
