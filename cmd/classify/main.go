// Command classify labels a CSV of log lines offline with the same pipeline
// the web service uses and prints a summary of the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"logclassifier/internal/classifier"
	"logclassifier/internal/config"
	"logclassifier/internal/exporter"
	"logclassifier/internal/infrastructure"
	"logclassifier/internal/insights"
	"logclassifier/internal/logcsv"
	"logclassifier/internal/services"
	"logclassifier/internal/validation"
	"logclassifier/pkg/contracts"
	"logclassifier/pkg/contracts/domain"
)

// errUsage marks flag errors, which exit with status 2
var errUsage = errors.New("usage error")

type options struct {
	input   string
	output  string
	format  string
	workers int
	noColor bool
	quiet   bool
	verbose bool
	version bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.input, "input", "i", "", "CSV file with source and log_message columns (required)")
	fs.StringVarP(&opts.output, "output", "o", "", "Output file (default <input>_classified.<format>)")
	fs.StringVarP(&opts.format, "format", "f", "", "Output format: csv or xlsx (default from --output, else csv)")
	fs.IntVarP(&opts.workers, "workers", "w", 0, "Concurrent classifications (default from configuration)")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Write debug logs to stderr")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: classify --input logs.csv [options]

Classifies every row of a CSV through the regex, model and LLM stages and
writes the labeled rows with a target_label column.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  classify --input logs.csv
  classify -i logs.csv -o report.xlsx
  classify -i logs.csv --format xlsx --workers 8
`)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errUsage
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if opts.version {
		return opts, nil
	}
	if opts.input == "" {
		fmt.Fprintln(stderr, "--input is required")
		fs.Usage()
		return nil, errUsage
	}
	if opts.workers < 0 {
		return nil, fmt.Errorf("%w: --workers must not be negative", errUsage)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}
	if opts.noColor {
		color.NoColor = true
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := infrastructure.NewLoggerWithWriter(stderr, &slog.HandlerOptions{Level: level})

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateCSVFile(opts.input); err != nil {
		return err
	}
	output, format, err := validator.ResolveOutput(opts.input, opts.output, opts.format)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.workers > 0 {
		cfg.Classifier.Workers = opts.workers
	}

	table, err := readTable(opts.input)
	if err != nil {
		return err
	}

	pipeline, err := classifier.NewFromConfig(cfg.Classifier, cfg.LLM, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}

	var progress classifier.ProgressFunc
	if !opts.quiet {
		progress = newProgressPrinter(stderr)
	}

	start := time.Now()
	results, err := pipeline.ClassifyAll(ctx, table.Inputs(), progress)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	labels := make([]string, len(results))
	for i, res := range results {
		labels[i] = res.Label
	}
	labeled, err := table.WithLabels(labels)
	if err != nil {
		return err
	}
	run := services.BuildRun(filepath.Base(opts.input), labeled, results, time.Since(start))
	summary := insights.Summarize(run.Logs, run.ProcessingSeconds)

	if err := writeOutput(output, format, run, summary, logger); err != nil {
		return err
	}

	return printSummary(stdout, output, summary)
}

func readTable(path string) (*logcsv.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	table, err := logcsv.Parse(f)
	if err != nil {
		if errors.Is(err, logcsv.ErrMissingColumns) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return table, nil
}

func writeOutput(path, format string, run *domain.Run, summary insights.Summary, logger *slog.Logger) error {
	if format == validation.FormatCSV {
		w := exporter.NewCSVWriter(&config.Paths{ResourcesDir: filepath.Dir(path)}, logger)
		return w.WriteCSV(path, exporter.WriteOptions{Headers: run.Header, Records: run.Rows()})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exporter.WriteXLSX(f, run, summary); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
