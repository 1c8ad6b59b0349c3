package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the dd/MM/yyyy layout used in quote files and diagnostics.
const DateLayout = "02/01/2006"

// QuoteRecord is a raw row from a quote source. Every field except LineNumber is optional.
type QuoteRecord struct {
	LineNumber      int                 `json:"line_number"`
	ObservationDate *time.Time          `json:"observation_date,omitempty"`
	PeriodLabel     string              `json:"period_label,omitempty"`
	PeriodFrom      *time.Time          `json:"period_from,omitempty"`
	PeriodTo        *time.Time          `json:"period_to,omitempty"`
	Price           decimal.NullDecimal `json:"price"`
}

// HasPrice reports whether the record carries a nonzero price. An absent price
// and a zero price both count as no price.
func (q QuoteRecord) HasPrice() bool {
	return q.Price.Valid && !q.Price.Decimal.IsZero()
}

// IsEmpty reports whether no field carries data.
func (q QuoteRecord) IsEmpty() bool {
	return q.ObservationDate == nil &&
		strings.TrimSpace(q.PeriodLabel) == "" &&
		q.PeriodFrom == nil &&
		q.PeriodTo == nil &&
		!q.HasPrice()
}

// ValidatedRecord is a quote that passed validation, with any recovered bounds applied.
type ValidatedRecord struct {
	LineNumber      int             `json:"line_number"`
	ObservationDate time.Time       `json:"observation_date"`
	PeriodLabel     string          `json:"period_label"`
	PeriodFrom      time.Time       `json:"period_from"`
	PeriodTo        time.Time       `json:"period_to"`
	Price           decimal.Decimal `json:"price"`
}

// Outcome is the result of validating a batch of quote records. Errors and
// Warnings are nil when nothing was reported in that category.
type Outcome struct {
	Validated []ValidatedRecord `json:"validated"`
	Errors    []string          `json:"errors"`
	Warnings  []string          `json:"warnings"`
}

// HasErrors reports whether any record was dropped with an error.
func (o Outcome) HasErrors() bool {
	return len(o.Errors) > 0
}

// HasWarnings reports whether any warning was raised.
func (o Outcome) HasWarnings() bool {
	return len(o.Warnings) > 0
}

// DatePtr returns a pointer to t. Handy for building records in code and tests.
func DatePtr(t time.Time) *time.Time {
	return &t
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
