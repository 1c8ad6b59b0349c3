// Package pipeline runs one quote source through read, validate, pivot and
// write, asking a Confirmer whether to go on when rows had to be dropped, and
// records the run in the store.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/model"
	"github.com/sells-group/quote-pivot/internal/period"
	"github.com/sells-group/quote-pivot/internal/pivot"
	"github.com/sells-group/quote-pivot/internal/quotefile"
	"github.com/sells-group/quote-pivot/internal/store"
	"github.com/sells-group/quote-pivot/internal/validate"
)

// ErrAborted is returned when the Confirmer declines to continue.
var ErrAborted = eris.New("pipeline: aborted")

// Source is the quote input of a run.
type Source struct {
	Name   string    // recorded as the run's source
	Reader io.Reader // delimited text, or a workbook when XLSX is set
	XLSX   bool
}

// Sink receives the pivoted grid.
type Sink struct {
	Name   string
	Writer io.Writer
	XLSX   bool
}

// Options configures a Pipeline.
type Options struct {
	Parser period.Parser
	Read   quotefile.Options
	Write  quotefile.WriteOptions
}

// Pipeline is safe for concurrent use when its store is.
type Pipeline struct {
	store     store.Store
	opts      Options
	validator *validate.Validator
	builder   *pivot.Builder
}

// New creates a Pipeline. A nil store records nothing.
func New(st store.Store, opts Options) *Pipeline {
	if st == nil {
		st = store.Nop{}
	}
	return &Pipeline{
		store:     st,
		opts:      opts,
		validator: validate.New(opts.Parser),
		builder:   pivot.NewBuilder(opts.Parser),
	}
}

// Result is everything a run produced.
type Result struct {
	RunID   string
	Read    *quotefile.Result
	Outcome model.Outcome
	Grid    pivot.Grid
	Output  string
}

// Collisions renders the grid's duplicate-cell notes.
func (r *Result) Collisions() []string {
	out := make([]string, len(r.Grid.Collisions))
	for i, c := range r.Grid.Collisions {
		out[i] = c.String()
	}
	return out
}

// Summary condenses the result for run history.
func (r *Result) Summary() *model.RunSummary {
	s := &model.RunSummary{
		Validated:  len(r.Outcome.Validated),
		Errors:     r.Outcome.Errors,
		Warnings:   r.Outcome.Warnings,
		Collisions: r.Collisions(),
		Columns:    len(r.Grid.Columns),
		Rows:       len(r.Grid.Rows),
		Output:     r.Output,
	}
	if r.Read != nil {
		s.Records = len(r.Read.Records)
		s.ReadErrors = r.Read.Messages()
	}
	if len(s.Collisions) == 0 {
		s.Collisions = nil
	}
	return s
}

// Run processes src and writes the grid to sink when sink is non-nil. The
// partial Result is returned alongside ErrAborted so callers can report
// what was found.
func (p *Pipeline) Run(ctx context.Context, src Source, sink *Sink, c Confirmer) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("source", src.Name))

	run, err := p.store.CreateRun(ctx, src.Name)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	res := &Result{RunID: run.ID}

	finish := func(status model.RunStatus, msg string) {
		if err := p.store.FinishRun(ctx, run.ID, status, msg); err != nil {
			log.Warn("pipeline: failed to record run status", zap.String("status", string(status)), zap.Error(err))
		}
	}
	fail := func(err error) (*Result, error) {
		finish(model.RunStatusFailed, err.Error())
		return res, err
	}

	// Read
	res.Read, err = p.read(ctx, src)
	if err != nil {
		return fail(err)
	}
	log.Info("pipeline: read complete",
		zap.Int("records", len(res.Read.Records)),
		zap.Int("read_errors", len(res.Read.Errors)),
	)
	if len(res.Read.Errors) > 0 {
		if ok, err := p.confirm(ctx, c, StageRead, res.Read.Messages()); err != nil {
			return fail(err)
		} else if !ok {
			finish(model.RunStatusAborted, "declined after read errors")
			return res, ErrAborted
		}
	}

	// Validate
	res.Outcome = p.validator.ValidateAndFix(res.Read.Records)
	log.Info("pipeline: validation complete",
		zap.Int("validated", len(res.Outcome.Validated)),
		zap.Int("errors", len(res.Outcome.Errors)),
		zap.Int("warnings", len(res.Outcome.Warnings)),
	)
	if res.Outcome.HasErrors() {
		if ok, err := p.confirm(ctx, c, StageValidate, res.Outcome.Errors); err != nil {
			return fail(err)
		} else if !ok {
			finish(model.RunStatusAborted, "declined after validation errors")
			return res, ErrAborted
		}
	}

	// Pivot
	res.Grid = p.builder.Build(res.Outcome.Validated)
	log.Info("pipeline: grid built",
		zap.Int("columns", len(res.Grid.Columns)),
		zap.Int("rows", len(res.Grid.Rows)),
		zap.Int("collisions", len(res.Grid.Collisions)),
	)

	// Write
	if sink != nil {
		if err := p.write(sink, res.Grid); err != nil {
			return fail(err)
		}
		res.Output = sink.Name
	}

	if _, err := p.store.SaveQuotes(ctx, run.ID, res.Outcome.Validated); err != nil {
		log.Warn("pipeline: failed to save quotes", zap.Error(err))
	}
	if err := p.store.CompleteRun(ctx, run.ID, res.Summary()); err != nil {
		log.Warn("pipeline: failed to complete run", zap.Error(err))
	}

	log.Info("pipeline: run complete", zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (p *Pipeline) read(ctx context.Context, src Source) (*quotefile.Result, error) {
	if src.Reader == nil {
		return nil, eris.Errorf("pipeline: source %s has no reader", src.Name)
	}
	if !src.XLSX {
		res, err := quotefile.Read(ctx, src.Reader, p.opts.Read)
		return res, eris.Wrapf(err, "pipeline: read %s", src.Name)
	}

	data, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", src.Name)
	}
	res, err := quotefile.ReadXLSXBytes(data, p.opts.Read)
	return res, eris.Wrapf(err, "pipeline: read %s", src.Name)
}

func (p *Pipeline) write(sink *Sink, grid pivot.Grid) error {
	var err error
	if sink.XLSX {
		err = quotefile.WriteGridXLSX(sink.Writer, grid, p.opts.Write)
	} else {
		err = quotefile.WriteGrid(sink.Writer, grid, p.opts.Write)
	}
	return eris.Wrapf(err, "pipeline: write %s", sink.Name)
}

func (p *Pipeline) confirm(ctx context.Context, c Confirmer, stage Stage, problems []string) (bool, error) {
	if c == nil {
		c = NeverContinue
	}
	ok, err := c.Confirm(ctx, stage, problems)
	if err != nil {
		return false, eris.Wrapf(err, "pipeline: confirm after %s", stage)
	}
	return ok, nil
}
