//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/quote-pivot/internal/config"
	"github.com/sells-group/quote-pivot/internal/pipeline"
	"github.com/sells-group/quote-pivot/internal/store"
)

const quoteCSV = "ObservationDate,Shorthand,From,To,Price\n" +
	"05/01/2010,Q1_10,01/01/2010,31/03/2010,0.5\n" +
	"05/01/2010,Q2_10,,,0.6\n" +
	"06/01/2010,Q2_10,01/04/2010,30/06/2010,0.75\n"

const quoteCSVWithErrors = quoteCSV +
	"06/01/2010,,01/04/2010,30/06/2010,0.8\n" +
	"07/01/2010,Q1_10,01/01/2010\n"

func testConfig() *config.Config {
	return &config.Config{
		Pivot: config.PivotConfig{CenturyPivot: 60, DateLayout: "02/01/2006", Delimiter: ","},
		Fetch: config.FetchConfig{TimeoutSecs: 5, MaxRetries: 1, UserAgent: "test", RatePerSec: 100},
		Batch: config.BatchConfig{MaxConcurrentFiles: 2},
		Store: config.StoreConfig{Driver: "none"},
	}
}

func newTestEnv(t *testing.T, st store.Store) *pipelineEnv {
	t.Helper()
	c := testConfig()
	if st == nil {
		st = store.Nop{}
	}
	return &pipelineEnv{
		Pipeline: pipeline.New(st, pipelineOptions(c, "")),
		Store:    st,
		Opener:   newOpener(c.Fetch),
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
