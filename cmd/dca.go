package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	portfolio "github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type dcaCmd struct {
	portfolio  string
	start      string
	end        string
	every      int
	amount     string
	commission string
	weights    string
}

func (*dcaCmd) Name() string     { return "dca" }
func (*dcaCmd) Synopsis() string { return "apply a dollar cost averaging plan to a portfolio" }
func (*dcaCmd) Usage() string {
	return `pcs dca -p <portfolio> -s <start_date> -e <end_date> -amount <dollars> -w AAPL=60,MSFT=40 [-every <days>] [-c <commission>]

  Buys the weighted stocks every few days from the start date up to the end date,
  investing the same amount each time. Each buy is the whole number of shares the
  amount affords at the price of that day. Either every transaction of the plan is
  recorded, or none.
`
}

func (c *dcaCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id or name")
	f.StringVar(&c.start, "s", "", "First execution date.")
	f.StringVar(&c.end, "e", "0d", "Last possible execution date.")
	f.IntVar(&c.every, "every", 30, "Days between two executions.")
	f.StringVar(&c.amount, "amount", "", "Dollars invested on each execution.")
	f.StringVar(&c.commission, "c", "", "Commission per execution. Defaults to the user commission.")
	f.StringVar(&c.weights, "w", "", "Comma separated TICKER=PERCENT weights, summing to 100.")
}

// parseWeights parses TICKER=PERCENT pairs separated by commas.
func parseWeights(v string) (map[string]decimal.Decimal, error) {
	weights := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ticker, pct, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q, want TICKER=PERCENT", pair)
		}
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if _, dup := weights[ticker]; dup {
			return nil, fmt.Errorf("ticker %s is weighted twice", ticker)
		}
		w, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", pair, err)
		}
		weights[ticker] = w
	}
	return weights, nil
}

func (c *dcaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.start == "" || c.amount == "" || c.weights == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
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
	amount, err := portfolio.ParseMoney(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	weights, err := parseWeights(c.weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing weights: %v\n", err)
		return subcommands.ExitUsageError
	}

	b, done, err := openBook(ctx)
	if err != nil {
		return fail("Error loading user: %v", err)
	}
	defer done()
	p, err := findPortfolio(b.User(), c.portfolio)
	if err != nil {
		return fail("Error: %v", err)
	}
	commission := b.User().Commission
	if c.commission != "" {
		if commission, err = portfolio.ParseMoney(c.commission); err != nil {
			return fail("Error parsing commission: %v", err)
		}
	}

	// a reversed range is rejected rather than swapped
	spec := portfolio.PlanSpec{
		Range:      portfolio.Range{From: from, To: to},
		Interval:   c.every,
		Amount:     amount,
		Commission: commission,
		Weights:    weights,
	}
	rec, txs, err := b.ApplyPlan(ctx, p.ID, spec)
	if err != nil {
		if len(txs) == 0 {
			return fail("Error applying plan: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	fmt.Printf("Plan %s recorded %d transaction(s)\n", rec.ID, len(txs))
	printMarkdown(renderer.RenderTransactions(&renderer.Transactions{Portfolio: p.Name, Transactions: txs}))
	return subcommands.ExitSuccess
}
