// Package quotefile reads raw quote records from delimited text or XLSX
// sources and writes pivoted grids back out.
package quotefile

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/fetcher"
	"github.com/sells-group/quote-pivot/internal/model"
)

// FieldCount is the number of columns in a quote row:
// ObservationDate, Shorthand, From, To, Price.
const FieldCount = 5

// Options configures how quote rows are parsed.
type Options struct {
	Delimiter  rune   // default ','
	DateLayout string // default model.DateLayout
	NoHeader   bool   // the first row is data, not a header
	Sheet      string // XLSX sheet name; empty means the first sheet
}

func (o Options) layout() string {
	if o.DateLayout == "" {
		return model.DateLayout
	}
	return o.DateLayout
}

// ReadError is a row the reader skipped.
type ReadError struct {
	Line   int    `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}

func (e ReadError) String() string {
	return fmt.Sprintf("Line %d, %s", e.Line, e.Reason)
}

// Result holds the parsed records and the rows that could not be parsed.
type Result struct {
	Records []model.QuoteRecord
	Errors  []ReadError
}

// Messages renders the read errors in display form.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.String()
	}
	return out
}

// Read parses delimited quote rows from r. A leading byte order mark is
// dropped. Malformed rows are collected in Result.Errors; only I/O failures
// and cancellation return an error.
func Read(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, fetcher.Decode(r), fetcher.CSVOptions{
		Delimiter:  opts.Delimiter,
		HasHeader:  !opts.NoHeader,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	res := &Result{}
	for row := range rowCh {
		res.add(row, opts.layout())
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "quotefile: read")
	}

	zap.L().Debug("quotefile: read complete",
		zap.Int("records", len(res.Records)),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// ReadXLSX parses quote rows from a workbook on disk.
func ReadXLSX(path string, opts Options) (*Result, error) {
	rows, err := fetcher.ReadXLSX(path, xlsxOptions(opts))
	if err != nil {
		return nil, eris.Wrap(err, "quotefile: read xlsx")
	}
	return fromRows(rows, opts), nil
}

// ReadXLSXBytes parses quote rows from an in-memory workbook.
func ReadXLSXBytes(data []byte, opts Options) (*Result, error) {
	rows, err := fetcher.ReadXLSXBytes(data, xlsxOptions(opts))
	if err != nil {
		return nil, eris.Wrap(err, "quotefile: read xlsx")
	}
	return fromRows(rows, opts), nil
}

func xlsxOptions(opts Options) fetcher.XLSXOptions {
	xo := fetcher.XLSXOptions{SheetName: opts.Sheet, DateLayout: opts.layout()}
	if !opts.NoHeader {
		xo.SkipRows = 1
	}
	return xo
}

func fromRows(rows []fetcher.Row, opts Options) *Result {
	res := &Result{}
	for _, row := range rows {
		for i := range row.Fields {
			row.Fields[i] = strings.TrimSpace(row.Fields[i])
		}
		// Sheets pad short rows; trailing blank cells past the quote columns are not data.
		for len(row.Fields) > FieldCount && row.Fields[len(row.Fields)-1] == "" {
			row.Fields = row.Fields[:len(row.Fields)-1]
		}
		for len(row.Fields) < FieldCount && allBlank(row.Fields) {
			row.Fields = append(row.Fields, "")
		}
		res.add(row, opts.layout())
	}
	return res
}

func (r *Result) add(row fetcher.Row, layout string) {
	rec, reason := parseRow(row, layout)
	if reason != "" {
		r.Errors = append(r.Errors, ReadError{Line: row.Line, Reason: reason})
		return
	}
	r.Records = append(r.Records, rec)
}

// parseRow converts one row. A non-empty reason means the row is skipped.
func parseRow(row fetcher.Row, layout string) (model.QuoteRecord, string) {
	rec := model.QuoteRecord{LineNumber: row.Line}
	if len(row.Fields) != FieldCount {
		return rec, fmt.Sprintf("expected %d fields but found %d", FieldCount, len(row.Fields))
	}

	var reason string
	if rec.ObservationDate, reason = parseDate(row.Fields[0], "ObservationDate", layout); reason != "" {
		return rec, reason
	}
	rec.PeriodLabel = row.Fields[1]
	if rec.PeriodFrom, reason = parseDate(row.Fields[2], "From", layout); reason != "" {
		return rec, reason
	}
	if rec.PeriodTo, reason = parseDate(row.Fields[3], "To", layout); reason != "" {
		return rec, reason
	}
	rec.Price = parsePrice(row.Fields[4])
	return rec, ""
}

func parseDate(s, field, layout string) (*time.Time, string) {
	if s == "" {
		return nil, ""
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, fmt.Sprintf("can not parse %s '%s'", field, s)
	}
	return &t, ""
}

// parsePrice reads an invariant-culture decimal. Blank is absent; anything
// unparsable counts as zero, which validation then rejects.
func parsePrice(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
	}
	return decimal.NewNullDecimal(d)
}

func allBlank(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}
