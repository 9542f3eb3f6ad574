package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes the dataset as RFC 4180 CSV, header first.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Header); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
