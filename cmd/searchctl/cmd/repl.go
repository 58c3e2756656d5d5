package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/session"
)

func newReplCmd(global *globalOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Search as you type, one line of input per keystroke batch",
		Long: `Read queries from stdin and run them through a debounced search session.
Each line replaces the current query; only the last line typed within the
debounce window is searched.

Commands:
  :select <id>   pick a result from the current list
  :clear         drop the query and results
  :quit          exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := buildPipeline(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer p.close()

			if !cmd.Flags().Changed("debounce") {
				debounce = p.cfg.Search.Debounce
			}
			searcher := session.ExecutorSearcher(p.executor, p.defaultOptions())
			return runRepl(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), searcher, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", session.DefaultDebounce, "Quiet period before a query runs")
	return cmd
}

// runRepl drives a session from in until EOF or :quit. At EOF it waits for
// a pending search to settle so its results are printed.
func runRepl(ctx context.Context, in io.Reader, out io.Writer, searcher session.Searcher, debounce time.Duration) error {
	var outMu sync.Mutex
	settled := make(chan struct{}, 1)

	sess := session.New(ctx, searcher,
		session.WithDebounce(debounce),
		session.WithListener(func(snap session.Snapshot) {
			switch snap.State {
			case session.Results, session.NoResults:
				outMu.Lock()
				printResult(out, snap.Result)
				outMu.Unlock()
			case session.Error:
				outMu.Lock()
				fmt.Fprintf(out, "search failed: %v\n", snap.Err)
				outMu.Unlock()
			default:
				return
			}
			select {
			case settled <- struct{}{}:
			default:
			}
		}),
	)
	defer sess.Close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == ":quit":
			return nil
		case line == ":clear":
			sess.Clear()
		case strings.HasPrefix(line, ":select "):
			id := strings.TrimSpace(strings.TrimPrefix(line, ":select "))
			doc, ok := sess.Select(id)
			outMu.Lock()
			if ok {
				fmt.Fprintf(out, "selected %s: %s\n", doc.ID, doc.Title)
			} else {
				fmt.Fprintf(out, "no result with id %q\n", id)
			}
			outMu.Unlock()
		default:
			sess.Input(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	for {
		switch sess.State() {
		case session.Debouncing, session.Searching:
		default:
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settled:
		case <-time.After(debounce + 50*time.Millisecond):
		}
	}
}
