// Package period parses compact quarter labels such as "Q2_09" into calendar-quarter bounds.
package period

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultCenturyPivot is the two-digit year at or above which a label year is read as 19xx.
const DefaultCenturyPivot = 60

// MinYear is the earliest year the default parser can produce.
const MinYear = 1900 + DefaultCenturyPivot

// UnknownYear marks a label the tolerant parser could not read.
const UnknownYear = -1

// Bounds is an inclusive calendar quarter.
type Bounds struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Label is a tolerantly parsed period label used for column ordering.
type Label struct {
	Source  string `json:"source"`
	Quarter string `json:"quarter"`
	Year    int    `json:"year"`
}

// Valid reports whether the label was readable.
func (l Label) Valid() bool {
	return l.Year != UnknownYear
}

// FormatError is returned by strict parsing when a label is malformed.
type FormatError struct {
	Label  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("period: invalid label %q: %s", e.Label, e.Reason)
}

// Parser resolves two-digit years against a century pivot.
type Parser struct {
	centuryPivot int
}

// NewParser returns a Parser using the given century pivot. Values outside
// [0, 99] fall back to DefaultCenturyPivot.
func NewParser(centuryPivot int) Parser {
	if centuryPivot < 0 || centuryPivot > 99 {
		centuryPivot = DefaultCenturyPivot
	}
	return Parser{centuryPivot: centuryPivot}
}

// Default returns a Parser using DefaultCenturyPivot.
func Default() Parser {
	return NewParser(DefaultCenturyPivot)
}

// CenturyPivot returns the configured pivot.
func (p Parser) CenturyPivot() int {
	return p.centuryPivot
}

// MinYear returns the earliest full year this parser can produce.
func (p Parser) MinYear() int {
	return 1900 + p.centuryPivot
}

// Strict parses text into quarter bounds. It fails with *FormatError on any malformed input.
func (p Parser) Strict(text string) (Bounds, error) {
	quarter, year, reason := p.split(text)
	if reason != "" {
		return Bounds{}, &FormatError{Label: text, Reason: reason}
	}

	first, ok := quarterStart(quarter)
	if !ok {
		return Bounds{}, &FormatError{Label: text, Reason: "incorrect 'quarter' part"}
	}

	from := time.Date(year, first, 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of the month after the quarter is the quarter's last day.
	to := time.Date(year, first+3, 0, 0, 0, 0, 0, time.UTC)
	return Bounds{From: from, To: to}, nil
}

// Tolerant parses text for ordering purposes and never fails. Malformed labels
// come back with an empty Quarter and UnknownYear.
func (p Parser) Tolerant(text string) Label {
	quarter, year, reason := p.split(text)
	if reason != "" {
		return Label{Source: text, Year: UnknownYear}
	}
	if _, ok := quarterStart(quarter); !ok {
		return Label{Source: text, Year: UnknownYear}
	}
	return Label{Source: text, Quarter: quarter, Year: year}
}

// split applies the shared label rules and returns the raw quarter part and the
// resolved full year. A non-empty reason means the label is malformed.
func (p Parser) split(text string) (quarter string, year int, reason string) {
	if strings.TrimSpace(text) == "" {
		return "", 0, "can not parse empty value"
	}

	parts := strings.Split(text, "_")
	if len(parts) != 2 {
		return "", 0, "invalid format, please use 'Q#_##'"
	}

	yy, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "incorrect 'year' part"
	}
	if yy < 0 || yy > 99 {
		return "", 0, "incorrect 'year' value"
	}

	if yy >= p.centuryPivot {
		year = 1900 + yy
	} else {
		year = 2000 + yy
	}
	return parts[0], year, ""
}

func quarterStart(quarter string) (time.Month, bool) {
	switch strings.ToUpper(quarter) {
	case "Q1":
		return time.January, true
	case "Q2":
		return time.April, true
	case "Q3":
		return time.July, true
	case "Q4":
		return time.October, true
	default:
		return 0, false
	}
}

// ParseStrict parses text with the default century pivot.
func ParseStrict(text string) (Bounds, error) {
	return Default().Strict(text)
}

// ParseTolerant parses text with the default century pivot.
func ParseTolerant(text string) Label {
	return Default().Tolerant(text)
}

// Compare orders labels by year, then by the raw quarter text.
func Compare(a, b Label) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	return strings.Compare(a.Quarter, b.Quarter)
}

// Sort orders labels in place with Compare. Equal labels keep their relative order.
func Sort(labels []Label) {
	slices.SortStableFunc(labels, Compare)
}
