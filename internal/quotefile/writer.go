package quotefile

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/quote-pivot/internal/model"
	"github.com/sells-group/quote-pivot/internal/pivot"
)

// WriteOptions configures grid output.
type WriteOptions struct {
	Delimiter  rune   // default ','
	DateLayout string // default model.DateLayout
	CRLF       bool
}

func (o WriteOptions) layout() string {
	if o.DateLayout == "" {
		return model.DateLayout
	}
	return o.DateLayout
}

// WriteGrid writes grid as delimited text. The header row starts with a blank
// cell and every row ends with a trailing separator.
func WriteGrid(w io.Writer, grid pivot.Grid, opts WriteOptions) error {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	cw.UseCRLF = opts.CRLF

	if err := cw.Write(headerRecord(grid)); err != nil {
		return eris.Wrap(err, "quotefile: write header")
	}
	for _, row := range grid.Rows {
		if err := cw.Write(dataRecord(row, opts.layout())); err != nil {
			return eris.Wrap(err, "quotefile: write row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "quotefile: flush")
	}
	return nil
}

func headerRecord(grid pivot.Grid) []string {
	rec := make([]string, 0, len(grid.Columns)+2)
	rec = append(rec, "")
	for _, col := range grid.Columns {
		rec = append(rec, col.Source)
	}
	return append(rec, "")
}

func dataRecord(row pivot.Row, layout string) []string {
	rec := make([]string, 0, len(row.Cells)+2)
	rec = append(rec, row.Date.Format(layout))
	for _, c := range row.Cells {
		if c.Present {
			rec = append(rec, c.Price.String())
		} else {
			rec = append(rec, "")
		}
	}
	return append(rec, "")
}

// WriteGridXLSX writes grid as a single-sheet workbook with the same layout
// as WriteGrid, minus the trailing separators. Prices are numeric cells.
func WriteGridXLSX(w io.Writer, grid pivot.Grid, opts WriteOptions) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Pivot")
	if err != nil {
		return eris.Wrap(err, "quotefile: add sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("")
	for _, col := range grid.Columns {
		header.AddCell().SetString(col.Source)
	}

	for _, row := range grid.Rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Date.Format(opts.layout()))
		for _, c := range row.Cells {
			cell := r.AddCell()
			if c.Present {
				cell.SetFloat(c.Price.InexactFloat64())
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "quotefile: write xlsx")
	}
	return nil
}
