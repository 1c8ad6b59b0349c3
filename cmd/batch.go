package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/quote-pivot/internal/fetcher"
	"github.com/sells-group/quote-pivot/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch --out-dir DIR <src>...",
	Short: "Pivot several quote files concurrently",
	Long: "Pivots each source into DIR/<name>_pivot.csv (or .xlsx with --xlsx). Batches never prompt: " +
		"sources with dropped rows are skipped unless --yes is given.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		outDir, _ := cmd.Flags().GetString("out-dir")
		yes, _ := cmd.Flags().GetBool("yes")
		xlsxOut, _ := cmd.Flags().GetBool("xlsx")
		sheet, _ := cmd.Flags().GetString("sheet")

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", outDir)
		}

		env, err := initPipeline(ctx, "pivot", sheet)
		if err != nil {
			return err
		}
		defer env.Close()

		confirmer := pipeline.NeverContinue
		if yes || cfg.Pivot.AssumeYes {
			confirmer = pipeline.AlwaysContinue
		}

		jobs := planBatch(args, outDir, xlsxOut)
		return processBatch(ctx, jobs, cfg.Batch.MaxConcurrentFiles, func(ctx context.Context, j batchJob) (*pipeline.Result, error) {
			return pivotSource(ctx, env, j.Src, j.Dst, confirmer)
		})
	},
}

func init() {
	batchCmd.Flags().String("out-dir", ".", "directory for the grids")
	batchCmd.Flags().Bool("yes", false, "pivot sources even when rows are dropped")
	batchCmd.Flags().Bool("xlsx", false, "write workbook grids instead of CSV")
	batchCmd.Flags().String("sheet", "", "worksheet to read from workbook sources (default first sheet)")
	rootCmd.AddCommand(batchCmd)
}

// batchJob is one source and the grid path it is pivoted to.
type batchJob struct {
	Src string
	Dst string
}

// planBatch derives an output path per source, suffixing repeated names so
// no two sources write the same file.
func planBatch(srcs []string, outDir string, xlsxOut bool) []batchJob {
	ext := ".csv"
	if xlsxOut {
		ext = ".xlsx"
	}

	used := make(map[string]int)
	jobs := make([]batchJob, 0, len(srcs))
	for _, src := range srcs {
		base := fetcher.BaseName(src)
		stem := strings.TrimSuffix(base, path.Ext(base))
		if stem == "" || stem == "." || stem == "/" {
			stem = "quotes"
		}
		name := stem + "_pivot"
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		jobs = append(jobs, batchJob{Src: src, Dst: filepath.Join(outDir, name+ext)})
	}
	return jobs
}

// pivotFunc is the callback signature for pivoting one batch job.
type pivotFunc func(ctx context.Context, j batchJob) (*pipeline.Result, error)

// processBatch runs jobs with at most concurrency in flight. One source
// failing never stops the others; the returned error counts the sources that
// produced no grid.
func processBatch(ctx context.Context, jobs []batchJob, concurrency int, pivot pivotFunc) error {
	if len(jobs) == 0 {
		zap.L().Info("no sources given")
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("sources", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, aborted, failed atomic.Int64

	for _, job := range jobs {
		g.Go(func() error {
			log := zap.L().With(zap.String("source", job.Src))

			res, err := pivot(gctx, job)
			switch {
			case errors.Is(err, pipeline.ErrAborted):
				aborted.Add(1)
				log.Warn("source skipped, rows were dropped", zap.Strings("problems", problems(res)))
				return nil
			case err != nil:
				failed.Add(1)
				log.Error("pivot failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("pivot complete",
				zap.String("dst", job.Dst),
				zap.Int("validated", len(res.Outcome.Validated)),
				zap.Int("warnings", len(res.Outcome.Warnings)),
				zap.Int("collisions", len(res.Grid.Collisions)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("aborted", aborted.Load()),
		zap.Int64("failed", failed.Load()),
	)

	if n := aborted.Load() + failed.Load(); n > 0 {
		return eris.Errorf("batch: %d of %d sources produced no grid", n, len(jobs))
	}
	return nil
}

func problems(res *pipeline.Result) []string {
	if res == nil {
		return nil
	}
	var out []string
	if res.Read != nil {
		out = append(out, res.Read.Messages()...)
	}
	return append(out, res.Outcome.Errors...)
}
