package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	portfolio "github.com/etnz/stockfolio"
	"github.com/google/subcommands"
)

// stocksFlag collects repeated -stock TICKER:QUANTITY[:DATE] values.
type stocksFlag []portfolio.Stock

func (s *stocksFlag) String() string {
	parts := make([]string, len(*s))
	for i, st := range *s {
		parts[i] = fmt.Sprintf("%s:%s", st.Ticker, st.Quantity)
		if !st.Date.IsZero() {
			parts[i] += ":" + st.Date.String()
		}
	}
	return strings.Join(parts, ",")
}

func (s *stocksFlag) Set(v string) error {
	st, err := parseStock(v)
	if err != nil {
		return err
	}
	*s = append(*s, st)
	return nil
}

// parseStock parses TICKER:QUANTITY or TICKER:QUANTITY:DATE.
func parseStock(v string) (portfolio.Stock, error) {
	fields := strings.Split(v, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return portfolio.Stock{}, fmt.Errorf("invalid stock %q, want TICKER:QUANTITY[:DATE]", v)
	}
	st := portfolio.Stock{Ticker: strings.ToUpper(strings.TrimSpace(fields[0]))}
	q, err := portfolio.ParseQuantity(fields[1])
	if err != nil {
		return st, fmt.Errorf("invalid quantity in %q: %w", v, err)
	}
	st.Quantity = q
	if len(fields) == 3 {
		if st.Date, err = portfolio.ParseDate(fields[2]); err != nil {
			return st, fmt.Errorf("invalid date in %q: %w", v, err)
		}
	}
	return st, nil
}

type portfolioCreateCmd struct {
	name   string
	kind   string
	stocks stocksFlag
}

func (*portfolioCreateCmd) Name() string     { return "portfolio-create" }
func (*portfolioCreateCmd) Synopsis() string { return "create a rigid or flexible portfolio" }
func (*portfolioCreateCmd) Usage() string {
	return `pcs portfolio-create -name <name> [-kind flexible]
pcs portfolio-create -name <name> -kind rigid -stock AAPL:10[:2022-01-03] [-stock ...]

  Creates a portfolio. A flexible portfolio starts with an empty ledger, use buy and
  sell to fill it. A rigid portfolio holds the given stocks forever.
`
}

func (c *portfolioCreateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the portfolio.")
	f.StringVar(&c.kind, "kind", string(portfolio.Flexible), "Kind of portfolio: rigid or flexible.")
	f.Var(&c.stocks, "stock", "Stock of a rigid portfolio as TICKER:QUANTITY[:DATE]. Repeat for each stock.")
}

func (c *portfolioCreateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		return fail("Error: -name is required")
	}
	kind, err := portfolio.ParseKind(c.kind)
	if err != nil {
		return fail("Error: %v", err)
	}
	if kind == portfolio.Flexible && len(c.stocks) > 0 {
		return fail("Error: -stock only applies to rigid portfolios")
	}

	b, done, err := openBook(ctx)
	if err != nil {
		return fail("Error loading user: %v", err)
	}
	defer done()

	var p *portfolio.Portfolio
	switch kind {
	case portfolio.Rigid:
		p, err = b.CreateRigidPortfolio(ctx, c.name, c.stocks)
	default:
		p, err = b.CreateFlexiblePortfolio(c.name)
	}
	if err != nil {
		return fail("Error creating portfolio: %v", err)
	}
	fmt.Printf("Created portfolio %s\n", p)
	return subcommands.ExitSuccess
}
