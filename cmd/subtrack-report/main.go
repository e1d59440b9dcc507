package main

import (
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	File   string `descr:"Path to the subscriptions YAML file" positional:"true"`
	Range  string `descr:"Statistics time range" alts:"30days,90days,6months,1year" strict:"true" default:"30days"`
	Format string `descr:"Output format" alts:"table,json" strict:"true" default:"table"`
	Xlsx   string `descr:"Also write the report as an Excel workbook to this path" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("subtrack-report").
		WithShort("Summarize subscription costs from a YAML file").
		WithLong("Normalizes every subscription to a 30-day month and prints monthly, yearly and weekly totals, category shares, the most expensive subscriptions, the monthly trend and the status breakdown.").
		WithRunFunc(func(params *Params) {
			if err := run(params, os.Stdout, time.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}
