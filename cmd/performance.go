package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	portfolio "github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/renderer"
	"github.com/google/subcommands"
)

type performanceCmd struct {
	portfolio string
	start     string
	end       string
}

func (*performanceCmd) Name() string     { return "performance" }
func (*performanceCmd) Synopsis() string { return "chart the value of a portfolio over a period" }
func (*performanceCmd) Usage() string {
	return `pcs performance -p <portfolio> -s <start_date> [-d <end_date>]

  Samples the portfolio value over the period and draws it as a bar chart. The
  sampling step is chosen among 1, 7, 14, 30, 90, 180 and 365 days to get a readable
  number of bars.
`
}

func (c *performanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id or name")
	f.StringVar(&c.start, "s", "-1y", "The start date of the period.")
	f.StringVar(&c.end, "d", "0d", "The end date of the period.")
}

func (c *performanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := portfolio.ParseDate(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
		return subcommands.ExitUsageError
	}
	to, err := portfolio.ParseDate(c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		return subcommands.ExitUsageError
	}
	r := portfolio.NewRange(from, to)

	b, done, err := openBook(ctx)
	if err != nil {
		return fail("Error loading user: %v", err)
	}
	defer done()
	p, err := findPortfolio(b.User(), c.portfolio)
	if err != nil {
		return fail("Error: %v", err)
	}

	perf, err := b.Performance(ctx, p.ID, r)
	if err != nil {
		return fail("Error computing performance: %v", err)
	}
	printMarkdown(renderer.RenderPerformance(renderer.NewPerformance(p.Name, r, perf)))
	return subcommands.ExitSuccess
}
