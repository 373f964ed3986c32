// Command resultsreport prints the summary table for one filter selection and
// optionally writes the entries time series as a PNG chart.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ansel1/merry"

	"resultsdash/internal/app"
	"resultsdash/internal/config"
	"resultsdash/internal/logging"
	"resultsdash/internal/query"
	"resultsdash/internal/report"
)

var exitFunc = os.Exit

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	configPath     string
	start, end     int
	mode           string
	characteristic string
	subjects       stringList
	format         string
	chartPath      string
	set            map[string]bool
}

func main() {
	exitFunc(cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resultsreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configPath, "config", os.Getenv("RESULTSDASH_CONFIG"), "path to a .yaml or .toml config file")
	fs.IntVar(&opts.start, "start", 0, "first start year (default: earliest in the dataset)")
	fs.IntVar(&opts.end, "end", 0, "last start year (default: latest in the dataset)")
	fs.StringVar(&opts.mode, "mode", string(query.ModePercentage), "indicator mode: percentage or absolute")
	fs.StringVar(&opts.characteristic, "characteristic", "", "cohort (default: All Students)")
	fs.Var(&opts.subjects, "subject", "subject to include; repeat for several (default: first subject)")
	fs.StringVar(&opts.format, "format", "text", "summary output: text, csv or json")
	fs.StringVar(&opts.chartPath, "chart", "", "write the entries time series to this PNG file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	mode, ok := query.ParseMode(opts.mode)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "resultsreport: unknown mode %q\n", opts.mode)
		return 2
	}
	switch opts.format {
	case "text", "csv", "json":
	default:
		_, _ = fmt.Fprintf(stderr, "resultsreport: unknown format %q\n", opts.format)
		return 2
	}

	if err := run(ctx, opts, mode, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "resultsreport: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, mode query.Mode, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logging.Configure(cfg.Log, stderr)
	ds, err := app.LoadDataset(ctx, cfg, logging.New("source"))
	if err != nil {
		return err
	}
	engine := query.NewEngine(ds)

	p := engine.Options().Defaults.Params()
	p.Mode = mode
	if opts.set["start"] {
		p.StartYear = opts.start
	}
	if opts.set["end"] {
		p.EndYear = opts.end
	}
	if opts.set["characteristic"] {
		p.Characteristic = opts.characteristic
	}
	if opts.set["subject"] {
		p.Subjects = opts.subjects
	}

	table := engine.BuildSummaryTable(p)
	switch opts.format {
	case "csv":
		err = report.WriteCSV(stdout, table)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		payload := report.Table(table)
		err = enc.Encode(map[string]any{"parameters": p, "columns": payload.Columns, "data": payload.Data})
	default:
		report.WriteText(stdout, table)
	}
	if err != nil {
		return merry.Prepend(err, "write summary")
	}

	if opts.chartPath == "" {
		return nil
	}
	return writeChart(opts.chartPath, engine.BuildTimeSeries(p))
}

func writeChart(path string, ts query.TimeSeries) (err error) {
	if !ts.HasPoints() {
		return merry.Prependf(report.ErrNothingToPlot, "chart %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return merry.Prepend(err, "create chart")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = merry.Prepend(cerr, "close chart")
		}
	}()
	if err := report.WritePNG(f, ts); err != nil {
		if errors.Is(err, report.ErrNothingToPlot) {
			return err
		}
		return merry.Prepend(err, "render chart")
	}
	return nil
}
