// Package pivot arranges validated quotes into a date by period-label grid.
package pivot

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/model"
	"github.com/sells-group/quote-pivot/internal/period"
)

// Cell is a single grid value. Blank cells have Present == false.
type Cell struct {
	Price   decimal.Decimal `json:"price"`
	Present bool            `json:"present"`
}

// Row holds the cells of one observation date, one per grid column.
type Row struct {
	Date  time.Time `json:"date"`
	Cells []Cell    `json:"cells"`
}

// Collision notes a cell that matched more than one record. The first match won.
type Collision struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Count int       `json:"count"`
}

func (c Collision) String() string {
	return fmt.Sprintf("Found more than one price value for ObservationDate=%s and Shorthand=%s",
		c.Date.Format(model.DateLayout), c.Label)
}

// Grid is the pivoted result.
type Grid struct {
	Columns    []period.Label `json:"columns"`
	Rows       []Row          `json:"rows"`
	Collisions []Collision    `json:"collisions,omitempty"`
}

// Builder builds grids, ordering columns with its parser's tolerant mode.
type Builder struct {
	parser period.Parser
}

// NewBuilder creates a Builder.
func NewBuilder(parser period.Parser) *Builder {
	return &Builder{parser: parser}
}

// Build derives ordered columns and rows from validated and resolves every cell.
func (b *Builder) Build(validated []model.ValidatedRecord) Grid {
	var grid Grid

	seen := make(map[string]bool)
	for _, rec := range validated {
		if seen[rec.PeriodLabel] {
			continue
		}
		seen[rec.PeriodLabel] = true
		grid.Columns = append(grid.Columns, b.parser.Tolerant(rec.PeriodLabel))
	}
	period.Sort(grid.Columns)

	// Record indexes per date, in validated order.
	byDate := make(map[time.Time][]int)
	var dates []time.Time
	for i, rec := range validated {
		d := dateOnly(rec.ObservationDate)
		if _, ok := byDate[d]; !ok {
			dates = append(dates, d)
		}
		byDate[d] = append(byDate[d], i)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	for _, d := range dates {
		row := Row{Date: d, Cells: make([]Cell, len(grid.Columns))}
		for c, col := range grid.Columns {
			var matches int
			for _, i := range byDate[d] {
				if validated[i].PeriodLabel != col.Source {
					continue
				}
				if matches == 0 {
					row.Cells[c] = Cell{Price: validated[i].Price, Present: true}
				}
				matches++
			}
			if matches > 1 {
				coll := Collision{Date: d, Label: col.Source, Count: matches}
				zap.L().Warn(coll.String(), zap.Int("count", matches))
				grid.Collisions = append(grid.Collisions, coll)
			}
		}
		grid.Rows = append(grid.Rows, row)
	}

	return grid
}

// Build is a convenience wrapper using the default parser.
func Build(validated []model.ValidatedRecord) Grid {
	return NewBuilder(period.Default()).Build(validated)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
