package export

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes one row per metric and one column per fiscal year, with
// display-formatted cells. A UTF-8 BOM lets Excel detect the encoding.
func WriteCSV(w io.Writer, r *Report) error {
	if err := flush(w, []byte("\ufeff")); err != nil {
		return err
	}
	cw := csv.NewWriter(w)

	header := []string{"指標"}
	for _, y := range r.Table.Years {
		header = append(header, "FY"+strconv.Itoa(y))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range r.Table.Rows {
		if err := cw.Write(append([]string{row.Label}, row.Cells...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
