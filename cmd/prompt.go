package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/term"

	"github.com/sells-group/quote-pivot/internal/pipeline"
)

// promptConfirmer lists the dropped rows and asks on the terminal whether to
// go on. Without a terminal it declines unless assumeYes is set.
type promptConfirmer struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	assumeYes   bool
}

// newPromptConfirmer builds a confirmer on stdin and stderr. stdinBusy is set
// when stdin carries the quote data and cannot answer prompts.
func newPromptConfirmer(assumeYes, stdinBusy bool) *promptConfirmer {
	return &promptConfirmer{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		interactive: !stdinBusy && term.IsTerminal(int(os.Stdin.Fd())),
		assumeYes:   assumeYes,
	}
}

func (p *promptConfirmer) Confirm(ctx context.Context, stage pipeline.Stage, problems []string) (bool, error) {
	switch stage {
	case pipeline.StageRead:
		fmt.Fprintln(p.out, "The following lines could not be read and were skipped:")
	default:
		fmt.Fprintln(p.out, "The following records were dropped:")
	}
	for _, msg := range problems {
		fmt.Fprintf(p.out, "  %s\n", msg)
	}

	if p.assumeYes {
		return true, nil
	}
	if !p.interactive {
		fmt.Fprintln(p.out, "Not continuing: no terminal to confirm on (use --yes to continue anyway).")
		return false, nil
	}

	fmt.Fprint(p.out, "Continue? [y/N] ")
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *promptConfirmer) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "prompt: cancelled")
	case r := <-ch:
		if r.err != nil && r.err != io.EOF {
			return "", eris.Wrap(r.err, "prompt: read answer")
		}
		return strings.TrimSpace(r.line), nil
	}
}
