package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"subtrack/internal/report"
	"subtrack/internal/stats"
	"subtrack/internal/storage/memory"
)

// run loads the file, computes the statistics and writes them in the
// requested format. With an Xlsx path the workbook is written as well.
func run(params *Params, out io.Writer, now time.Time) error {
	rng, err := stats.ParseTimeRange(params.Range)
	if err != nil {
		return err
	}

	subs, err := memory.LoadSeed(params.File, now)
	if err != nil {
		return fmt.Errorf("load %s: %w", params.File, err)
	}

	result, err := stats.Compute(subs, rng, now)
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}

	sections := report.Sections(result, rng, now)
	switch params.Format {
	case "json":
		err = report.WriteJSON(out, result, rng, now)
	case "", "table":
		err = report.WriteTable(out, sections)
	default:
		return fmt.Errorf("unknown format %q", params.Format)
	}
	if err != nil {
		return err
	}

	if params.Xlsx == "" {
		return nil
	}
	f, err := os.Create(params.Xlsx)
	if err != nil {
		return err
	}
	if err := report.WriteXLSX(f, sections); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", params.Xlsx, err)
	}
	return f.Close()
}
