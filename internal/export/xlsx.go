package export

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the dataset as a single-sheet workbook. The sheet name
// is whatever the caller passes, typically the table name.
func WriteXLSX(w io.Writer, sheet string, ds *Dataset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	writeRow := func(rowIdx int, cells []string) error {
		values := make([]any, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(1, ds.Header); err != nil {
		return err
	}
	for i, row := range ds.Rows {
		if err := writeRow(i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
