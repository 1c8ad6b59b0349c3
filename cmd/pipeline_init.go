package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/config"
	"github.com/sells-group/quote-pivot/internal/fetcher"
	"github.com/sells-group/quote-pivot/internal/period"
	"github.com/sells-group/quote-pivot/internal/pipeline"
	"github.com/sells-group/quote-pivot/internal/quotefile"
	"github.com/sells-group/quote-pivot/internal/store"
)

// pipelineEnv holds everything a command needs to run quote sources.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Store    store.Store
	Opener   *fetcher.Opener
}

// Close releases the store.
func (e *pipelineEnv) Close() {
	if e.Store == nil {
		return
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("failed to close store", zap.Error(err))
	}
}

// initPipeline validates the config for mode and wires store, fetchers and
// pipeline. sheet selects the worksheet of workbook sources.
func initPipeline(ctx context.Context, mode, sheet string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.Int("century_pivot", cfg.Pivot.CenturyPivot),
	)

	return &pipelineEnv{
		Pipeline: pipeline.New(st, pipelineOptions(cfg, sheet)),
		Store:    st,
		Opener:   newOpener(cfg.Fetch),
	}, nil
}

func pipelineOptions(c *config.Config, sheet string) pipeline.Options {
	delim := c.Pivot.DelimiterRune()
	return pipeline.Options{
		Parser: period.NewParser(c.Pivot.CenturyPivot),
		Read: quotefile.Options{
			Delimiter:  delim,
			DateLayout: c.Pivot.DateLayout,
			Sheet:      sheet,
		},
		Write: quotefile.WriteOptions{
			Delimiter:  delim,
			DateLayout: c.Pivot.DateLayout,
			CRLF:       c.Pivot.CRLF,
		},
	}
}

func newOpener(fc config.FetchConfig) *fetcher.Opener {
	timeout := time.Duration(fc.TimeoutSecs) * time.Second
	return fetcher.NewOpener(
		fetcher.HTTPOptions{
			UserAgent:  fc.UserAgent,
			Timeout:    timeout,
			MaxRetries: fc.MaxRetries,
			RatePerSec: fc.RatePerSec,
		},
		fetcher.FTPOptions{Timeout: timeout},
	)
}
