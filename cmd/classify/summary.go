package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"logclassifier/internal/insights"
)

var (
	green = color.New(color.FgGreen)
	cyan  = color.New(color.FgCyan)
	bold  = color.New(color.Bold)
	dim   = color.New(color.Faint)
)

const barWidth = 30

// newProgressPrinter redraws a single progress line, at most once per percent
func newProgressPrinter(w io.Writer) func(done, total int) {
	var (
		mu   sync.Mutex
		last = -1
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		pct := 100
		if total > 0 {
			pct = done * 100 / total
		}
		if pct == last && done != total {
			return
		}
		last = pct

		fmt.Fprintf(w, "\rClassifying %s/%s logs (%d%%)", humanize.Comma(int64(done)), humanize.Comma(int64(total)), pct)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

func printSummary(w io.Writer, output string, s insights.Summary) error {
	green.Fprintf(w, "✓ Classified %s logs in %s seconds\n", humanize.Comma(int64(s.Total)), s.ProcessingTime)

	size := ""
	if info, err := os.Stat(output); err == nil {
		size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
	}
	fmt.Fprintf(w, "Output: %s%s\n", output, dim.Sprint(size))

	if s.Total == 0 {
		return nil
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Log categories")
	maxCount := 0
	for _, c := range s.Categories {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	for _, c := range s.Categories {
		n := c.Count * barWidth / maxCount
		if n == 0 {
			n = 1
		}
		fmt.Fprintf(w, "  %-22s %8s  %s\n", c.Label, humanize.Comma(int64(c.Count)), cyan.Sprint(strings.Repeat("█", n)))
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Source systems")
	for _, src := range s.Sources {
		fmt.Fprintf(w, "  %-22s %8s  %6s\n", src.Source, humanize.Comma(int64(src.Count)), src.Percentage)
	}

	if len(s.Stages) > 0 {
		parts := make([]string, len(s.Stages))
		for i, st := range s.Stages {
			parts[i] = fmt.Sprintf("%s %s", st.Stage, humanize.Comma(int64(st.Count)))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", bold.Sprint("Stages:"), strings.Join(parts, ", "))
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Sample classifications")
	for _, sample := range s.Samples {
		fmt.Fprintf(w, "  %s %s → %s\n", dim.Sprintf("[%s]", sample.Source), sample.LogMessage, green.Sprint(sample.TargetLabel))
	}
	return nil
}
