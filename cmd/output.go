package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/sells-group/warmline/internal/pipeline"
)

func outcomeMarker(o pipeline.Outcome) string {
	switch o {
	case pipeline.OutcomeSucceeded:
		return color.New(color.FgGreen).Sprint("OK     ")
	case pipeline.OutcomeSkipped:
		return color.New(color.FgYellow).Sprint("SKIP   ")
	default:
		return color.New(color.FgRed).Sprint("ERROR  ")
	}
}

// resultPrinter returns a reporter that writes one line per entity.
func resultPrinter(w io.Writer) func(pipeline.Result) {
	return func(r pipeline.Result) {
		line := outcomeMarker(r.Outcome) + " " + r.Label
		if r.Detail != "" {
			line += "  " + color.New(color.FgCyan).Sprint(r.Detail)
		}
		if r.Err != nil {
			line += "  " + r.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
}

func printSummary(w io.Writer, s *pipeline.Summary) {
	title := s.Stage
	if s.DryRun {
		title += color.New(color.FgHiMagenta).Sprint(" (dry run)")
	}
	fmt.Fprintf(w, "\n%s: processed %d, succeeded %d, skipped %d, errored %d\n",
		title, s.Processed, s.Succeeded, s.Skipped, s.Errored)

	if len(s.Counters) > 0 {
		keys := make([]string, 0, len(s.Counters))
		for k := range s.Counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, s.Counters[k]))
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, " "))
	}

	if s.Aborted {
		msg := "aborted"
		if s.Err != nil {
			msg += ": " + s.Err.Error()
		}
		fmt.Fprintln(w, color.New(color.FgRed).Sprint(msg))
	}
}
