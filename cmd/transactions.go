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
)

// tradeFlags are shared by buy and sell.
type tradeFlags struct {
	portfolio  string
	date       string
	security   string
	quantity   string
	commission string
}

func (c *tradeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id or name")
	f.StringVar(&c.date, "d", "0d", "Transaction date. See the user manual for supported date formats.")
	f.StringVar(&c.security, "s", "", "Security ticker")
	f.StringVar(&c.quantity, "q", "", "Number of shares, a positive whole number")
	f.StringVar(&c.commission, "c", "", "Commission in dollars. Defaults to the user commission.")
}

// record builds the transaction and records it in the portfolio ledger.
func (c *tradeFlags) record(ctx context.Context, f *flag.FlagSet, action portfolio.Action) subcommands.ExitStatus {
	if c.security == "" || c.quantity == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := portfolio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	q, err := portfolio.ParseQuantity(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
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

	ticker := strings.ToUpper(c.security)
	tx := portfolio.NewBuy(day, ticker, q, commission)
	if action == portfolio.ActionSell {
		tx = portfolio.NewSell(day, ticker, q, commission)
	}
	if err := b.Record(ctx, p.ID, tx); err != nil {
		return fail("Error recording transaction: %v", err)
	}
	fmt.Println(renderer.Transaction(tx))
	return subcommands.ExitSuccess
}

// --- Buy Command ---

type buyCmd struct{ tradeFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase shares to open or add to a position" }
func (*buyCmd) Usage() string {
	return `pcs buy -p <portfolio> -s <security> -q <quantity> [-d <date>] [-c <commission>]

  Records a purchase in a flexible portfolio. The date must not precede the listing
  of the security.
`
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.record(ctx, f, portfolio.ActionBuy)
}

// --- Sell Command ---

type sellCmd struct{ tradeFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares of a position" }
func (*sellCmd) Usage() string {
	return `pcs sell -p <portfolio> -s <security> -q <quantity> [-d <date>] [-c <commission>]

  Records a sale in a flexible portfolio. The position must hold enough shares at
  that date and at every later date.
`
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.record(ctx, f, portfolio.ActionSell)
}

// --- Tx Command ---

type txCmd struct {
	portfolio string
	start     string
	date      string
	head      int
	tail      int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions of a flexible portfolio" }
func (*txCmd) Usage() string {
	return `pcs tx -p <portfolio> [-s <start_date>] [-d <end_date>] [-head <n>] [-tail <n>]

  Lists transactions from the ledger, with options for filtering and limiting the output.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id or name")
	f.StringVar(&c.start, "s", "", "The start date of the range.")
	f.StringVar(&c.date, "d", "", "The end date of the range.")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.head > 0 && c.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
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
	all, err := b.Transactions(p.ID)
	if err != nil {
		return fail("Error: %v", err)
	}

	// without flags the whole ledger is listed
	var from, to portfolio.Date
	if c.start != "" {
		if from, err = portfolio.ParseDate(c.start); err != nil {
			return fail("Error parsing start date: %v", err)
		}
	}
	if c.date != "" {
		if to, err = portfolio.ParseDate(c.date); err != nil {
			return fail("Error parsing end date: %v", err)
		}
	}
	var transactions []portfolio.Transaction
	for _, tx := range all {
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}
		if !to.IsZero() && tx.Date.After(to) {
			continue
		}
		transactions = append(transactions, tx)
	}

	if c.head > 0 && len(transactions) > c.head {
		transactions = transactions[:c.head]
	}
	if c.tail > 0 && len(transactions) > c.tail {
		transactions = transactions[len(transactions)-c.tail:]
	}

	printMarkdown(renderer.RenderTransactions(&renderer.Transactions{Portfolio: p.Name, Transactions: transactions}))
	return subcommands.ExitSuccess
}

// --- Sort Ledger Command ---

type sortLedgerCmd struct {
	portfolio string
}

func (*sortLedgerCmd) Name() string     { return "sort-ledger" }
func (*sortLedgerCmd) Synopsis() string { return "reorder a ledger file chronologically" }
func (*sortLedgerCmd) Usage() string {
	return `pcs sort-ledger -p <portfolio>

  Rewrites the ledger file in chronological order. Transactions of the same day keep
  their relative order. Useful after editing or appending to the file by hand.
`
}

func (c *sortLedgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id or name")
}

func (c *sortLedgerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// The ledger cannot be loaded while out of order, so sort the file through the store.
	store := portfolio.NewStore(cfg.DataDir)
	u, err := store.LoadUserRecord(cfg.User)
	if err != nil {
		return fail("Error loading user: %v", err)
	}
	p, err := findPortfolio(u, c.portfolio)
	if err != nil {
		return fail("Error: %v", err)
	}
	if err := store.SortLedgerFile(u, p); err != nil {
		return fail("Error sorting ledger: %v", err)
	}
	fmt.Printf("Ledger of portfolio %s is in chronological order\n", p)
	return subcommands.ExitSuccess
}
