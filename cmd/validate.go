package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/quote-pivot/internal/fetcher"
	"github.com/sells-group/quote-pivot/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate <src>",
	Short: "Report the problems in a quote file without writing a grid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, _ := cmd.Flags().GetString("format")
		sheet, _ := cmd.Flags().GetString("sheet")
		strict, _ := cmd.Flags().GetBool("strict")
		switch format {
		case "text", "json", "yaml":
		default:
			return eris.Errorf("unknown report format %q (want text, json or yaml)", format)
		}

		env, err := initPipeline(ctx, "pivot", sheet)
		if err != nil {
			return err
		}
		defer env.Close()

		src := args[0]
		rc, err := env.Opener.Open(ctx, src)
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		res, err := env.Pipeline.Run(ctx, pipeline.Source{Name: src, Reader: rc, XLSX: fetcher.IsXLSX(src)}, nil, pipeline.AlwaysContinue)
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		report := newValidationReport(src, res)
		if err := writeReport(os.Stdout, report, format); err != nil {
			return err
		}
		if strict && report.problems() > 0 {
			return eris.Errorf("validate: %d problems found in %s", report.problems(), src)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("format", "text", "report format: text, json or yaml")
	validateCmd.Flags().String("sheet", "", "worksheet to read from workbook sources (default first sheet)")
	validateCmd.Flags().Bool("strict", false, "exit non-zero when any row was dropped")
	rootCmd.AddCommand(validateCmd)
}

// validationReport is the machine-readable result of the validate command.
type validationReport struct {
	Source     string   `json:"source" yaml:"source"`
	RunID      string   `json:"run_id" yaml:"run_id"`
	Records    int      `json:"records" yaml:"records"`
	Validated  int      `json:"validated" yaml:"validated"`
	Columns    int      `json:"columns" yaml:"columns"`
	Rows       int      `json:"rows" yaml:"rows"`
	ReadErrors []string `json:"read_errors" yaml:"read_errors"`
	Errors     []string `json:"errors" yaml:"errors"`
	Warnings   []string `json:"warnings" yaml:"warnings"`
	Collisions []string `json:"collisions" yaml:"collisions"`
}

func newValidationReport(src string, res *pipeline.Result) validationReport {
	r := validationReport{
		Source:     src,
		RunID:      res.RunID,
		Validated:  len(res.Outcome.Validated),
		Columns:    len(res.Grid.Columns),
		Rows:       len(res.Grid.Rows),
		ReadErrors: []string{},
		Errors:     append([]string{}, res.Outcome.Errors...),
		Warnings:   append([]string{}, res.Outcome.Warnings...),
		Collisions: res.Collisions(),
	}
	if res.Read != nil {
		r.Records = len(res.Read.Records)
		r.ReadErrors = append(r.ReadErrors, res.Read.Messages()...)
	}
	return r
}

func (r validationReport) problems() int {
	return len(r.ReadErrors) + len(r.Errors)
}

func writeReport(w io.Writer, r validationReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "encode json report")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode yaml report")
		}
		return eris.Wrap(enc.Close(), "encode yaml report")
	case "text", "":
		writeTextReport(w, r)
		return nil
	default:
		return eris.Errorf("unknown report format %q (want text, json or yaml)", format)
	}
}

func writeTextReport(w io.Writer, r validationReport) {
	fmt.Fprintf(w, "Source:    %s\n", r.Source)
	fmt.Fprintf(w, "Run:       %s\n", r.RunID)
	fmt.Fprintf(w, "Records:   %d read, %d validated\n", r.Records, r.Validated)
	fmt.Fprintf(w, "Grid:      %d dates x %d periods\n", r.Rows, r.Columns)

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", title, len(lines))
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
	section("Read errors", r.ReadErrors)
	section("Errors", r.Errors)
	section("Warnings", r.Warnings)
	section("Collisions", r.Collisions)
}
