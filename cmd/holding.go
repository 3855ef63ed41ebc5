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

// reportFlags are shared by the reports on a single day.
type reportFlags struct {
	portfolio string
	date      string
}

func (c *reportFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id or name")
	f.StringVar(&c.date, "d", "0d", "Date of the report. See the user manual for supported date formats.")
}

// open parses the date, opens the book, and finds the portfolio.
func (c *reportFlags) open(ctx context.Context) (*portfolio.Book, *portfolio.Portfolio, portfolio.Date, func(), error) {
	day, err := portfolio.ParseDate(c.date)
	if err != nil {
		return nil, nil, day, nil, fmt.Errorf("invalid date: %w", err)
	}
	b, done, err := openBook(ctx)
	if err != nil {
		return nil, nil, day, nil, err
	}
	p, err := findPortfolio(b.User(), c.portfolio)
	if err != nil {
		done()
		return nil, nil, day, nil, err
	}
	return b, p, day, done, nil
}

// --- Composition Command ---

type compositionCmd struct{ reportFlags }

func (*compositionCmd) Name() string     { return "composition" }
func (*compositionCmd) Synopsis() string { return "display the stocks held on a specific date" }
func (*compositionCmd) Usage() string {
	return `pcs composition -p <portfolio> [-d <date>]

  Displays the stocks held on a given date with their price, market value, and the
  money committed so far.
`
}

func (c *compositionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, p, day, done, err := c.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer done()

	h, err := renderer.NewHolding(ctx, b, p.ID, day)
	if err != nil {
		return fail("Error creating holding report: %v", err)
	}
	printMarkdown(renderer.RenderHolding(h))
	return subcommands.ExitSuccess
}

// --- Value Command ---

type valueCmd struct{ reportFlags }

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "print the market value of a portfolio" }
func (*valueCmd) Usage() string {
	return `pcs value -p <portfolio> [-d <date>]

  Prints the market value of the portfolio, using the latest known price of each
  stock on or before the date.
`
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, p, day, done, err := c.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer done()

	v, err := b.Value(ctx, p.ID, day)
	if err != nil {
		return fail("Error computing value: %v", err)
	}
	fmt.Printf("%s value on %s: %s\n", p.Name, day, v)
	return subcommands.ExitSuccess
}

// --- Cost Basis Command ---

type costBasisCmd struct{ reportFlags }

func (*costBasisCmd) Name() string     { return "cost-basis" }
func (*costBasisCmd) Synopsis() string { return "print the money committed to a portfolio" }
func (*costBasisCmd) Usage() string {
	return `pcs cost-basis -p <portfolio> [-d <date>]

  Prints the money spent on purchases and commissions up to the date. Sales do not
  reduce the cost basis.
`
}

func (c *costBasisCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, p, day, done, err := c.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer done()

	v, err := b.CostBasis(ctx, p.ID, day)
	if err != nil {
		return fail("Error computing cost basis: %v", err)
	}
	fmt.Printf("%s cost basis on %s: %s\n", p.Name, day, v)
	return subcommands.ExitSuccess
}
