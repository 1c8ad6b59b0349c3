// Package validate checks raw quote records, drops the unrecoverable ones and
// recovers missing period bounds from the period label.
package validate

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/model"
	"github.com/sells-group/quote-pivot/internal/period"
)

// Validator applies the per-record decision tree.
type Validator struct {
	parser  period.Parser
	minYear int
}

// New creates a Validator. Observation dates before parser.MinYear() are flagged as suspicious.
func New(parser period.Parser) *Validator {
	return &Validator{parser: parser, minYear: parser.MinYear()}
}

// ValidateAndFix processes records in input order. Record problems never
// produce a Go error; they are reported in the returned Outcome.
func (v *Validator) ValidateAndFix(records []model.QuoteRecord) model.Outcome {
	var out model.Outcome
	log := zap.L().With(zap.String("component", "validate"))

	for _, rec := range records {
		fixed, warnings, errMsg := v.check(rec)
		out.Warnings = append(out.Warnings, warnings...)
		if errMsg != "" {
			log.Debug("record dropped", zap.Int("line", rec.LineNumber), zap.String("reason", errMsg))
			out.Errors = append(out.Errors, errMsg)
			continue
		}
		if fixed == nil {
			continue
		}
		out.Validated = append(out.Validated, *fixed)
	}

	log.Debug("validation complete",
		zap.Int("records", len(records)),
		zap.Int("validated", len(out.Validated)),
		zap.Int("errors", len(out.Errors)),
		zap.Int("warnings", len(out.Warnings)),
	)
	return out
}

// check runs the decision tree for one record. rec is a value copy, so the
// caller's slice is never touched. A nil record with no error means the line
// was skipped as empty.
func (v *Validator) check(rec model.QuoteRecord) (*model.ValidatedRecord, []string, string) {
	line := rec.LineNumber

	if rec.IsEmpty() {
		return nil, []string{fmt.Sprintf("Line %d is empty", line)}, ""
	}

	if !rec.HasPrice() {
		return nil, nil, fmt.Sprintf("Line %d has empty price, can not recover", line)
	}

	if rec.ObservationDate == nil {
		return nil, nil, fmt.Sprintf("Line %d has empty ObservationDate, can not recover", line)
	}

	var warnings []string
	if rec.ObservationDate.Year() < v.minYear {
		warnings = append(warnings, fmt.Sprintf("Line %d has suspicious ObservationDate '%s'",
			line, rec.ObservationDate.Format(model.DateLayout)))
	}

	if strings.TrimSpace(rec.PeriodLabel) == "" {
		return nil, warnings, fmt.Sprintf("Line %d has empty Shorthand, can not recover", line)
	}

	bounds, err := v.parser.Strict(rec.PeriodLabel)
	if err != nil {
		return nil, warnings, fmt.Sprintf("Line %d has incorrect Shorthand '%s'", line, rec.PeriodLabel)
	}

	from, w := recoverBound(line, "From", rec.PeriodFrom, bounds.From, rec.PeriodLabel)
	warnings = append(warnings, w...)
	to, w := recoverBound(line, "To", rec.PeriodTo, bounds.To, rec.PeriodLabel)
	warnings = append(warnings, w...)

	return &model.ValidatedRecord{
		LineNumber:      line,
		ObservationDate: *rec.ObservationDate,
		PeriodLabel:     rec.PeriodLabel,
		PeriodFrom:      from,
		PeriodTo:        to,
		Price:           rec.Price.Decimal,
	}, warnings, ""
}

// recoverBound fills an absent bound from the label. A supplied bound that
// disagrees with the label is kept as is and flagged.
func recoverBound(line int, field string, supplied *time.Time, derived time.Time, label string) (time.Time, []string) {
	if supplied == nil {
		return derived, []string{fmt.Sprintf("Line %d recovered %s using Shorthand", line, field)}
	}
	if !supplied.Equal(derived) {
		return *supplied, []string{fmt.Sprintf("Line %d has suspicious %s '%s' for Shorthand '%s'",
			line, field, supplied.Format(model.DateLayout), label)}
	}
	return *supplied, nil
}
