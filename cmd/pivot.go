package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/fetcher"
	"github.com/sells-group/quote-pivot/internal/pipeline"
)

var pivotCmd = &cobra.Command{
	Use:   "pivot <src> <dst>",
	Short: "Pivot a quote file into a date by period grid",
	Long: "Reads <src> (a local path, http(s):// or ftp:// URL, or - for stdin), validates it and writes the grid " +
		"to <dst> (- for stdout). A .xlsx extension selects workbook input or output. When rows are dropped " +
		"the problems are listed and you are asked whether to continue.",
	Example: "  quote-pivot pivot quotes.csv grid.csv\n  quote-pivot pivot https://example.com/quotes.xlsx grid.xlsx --yes",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sheet, _ := cmd.Flags().GetString("sheet")
		yes, _ := cmd.Flags().GetBool("yes")
		if crlf, _ := cmd.Flags().GetBool("crlf"); crlf {
			cfg.Pivot.CRLF = true
		}

		env, err := initPipeline(ctx, "pivot", sheet)
		if err != nil {
			return err
		}
		defer env.Close()

		src, dst := args[0], args[1]
		confirmer := newPromptConfirmer(yes || cfg.Pivot.AssumeYes, src == fetcher.StdinSource)

		res, err := pivotSource(ctx, env, src, dst, confirmer)
		if res != nil {
			printResult(os.Stderr, res)
		}
		if errors.Is(err, pipeline.ErrAborted) {
			fmt.Fprintln(os.Stderr, "Aborted, no grid written.")
		}
		return err
	},
}

func init() {
	pivotCmd.Flags().Bool("yes", false, "continue without asking when rows are dropped")
	pivotCmd.Flags().String("sheet", "", "worksheet to read from workbook sources (default first sheet)")
	pivotCmd.Flags().Bool("crlf", false, "end grid lines with CRLF")
	rootCmd.AddCommand(pivotCmd)
}

// pivotSource runs src through the pipeline and writes the grid to dst.
// Nothing is written when the run fails or is declined.
func pivotSource(ctx context.Context, env *pipelineEnv, src, dst string, c pipeline.Confirmer) (*pipeline.Result, error) {
	rc, err := env.Opener.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	var buf bytes.Buffer
	sink := &pipeline.Sink{Name: dst, Writer: &buf, XLSX: fetcher.IsXLSX(dst)}
	source := pipeline.Source{Name: src, Reader: rc, XLSX: fetcher.IsXLSX(src)}

	res, err := env.Pipeline.Run(ctx, source, sink, c)
	if err != nil {
		return res, err
	}

	if err := writeOutput(dst, buf.Bytes()); err != nil {
		return res, err
	}
	zap.L().Info("grid written", zap.String("dst", dst), zap.Int("bytes", buf.Len()))
	return res, nil
}

func writeOutput(dst string, data []byte) error {
	if dst == fetcher.StdinSource {
		_, err := os.Stdout.Write(data)
		return eris.Wrap(err, "write stdout")
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", dst)
	}
	return nil
}

// printResult lists warnings and collision notes, then a one-line summary.
func printResult(w io.Writer, res *pipeline.Result) {
	fyi := append(append([]string{}, res.Outcome.Warnings...), res.Collisions()...)
	if len(fyi) > 0 {
		fmt.Fprintln(w, "FYI:")
		for _, msg := range fyi {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	if res.Read == nil {
		return
	}
	fmt.Fprintf(w, "%d records read, %d validated, %d dates x %d periods (run %s)\n",
		len(res.Read.Records), len(res.Outcome.Validated), len(res.Grid.Rows), len(res.Grid.Columns), res.RunID)
}
