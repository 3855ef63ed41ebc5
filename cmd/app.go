// Package cmd implements the CLI application to manage stock portfolios.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	portfolio "github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/market"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&userCreateCmd{}, "users")
	c.Register(&userShowCmd{}, "users")
	c.Register(&commissionCmd{}, "users")
	c.Register(&portfolioCreateCmd{}, "users")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dcaCmd{}, "transactions")
	c.Register(&txCmd{}, "transactions")
	c.Register(&sortLedgerCmd{}, "transactions")

	c.Register(&compositionCmd{}, "reports")
	c.Register(&valueCmd{}, "reports")
	c.Register(&costBasisCmd{}, "reports")
	c.Register(&performanceCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile    = flag.String("config", "pcs.yaml", "Path to the YAML configuration file.")
	dataDirFlag   = flag.String("data", "", "Folder holding users and ledgers. Overrides the configuration.")
	marketDirFlag = flag.String("market", "", "Market folder with listings and prices. Overrides the configuration.")
	userFlag      = flag.Int("user", 0, "User id. Overrides the configuration.")
	logLevelFlag  = flag.String("log-level", "", "Log level: debug, info, warn, error. Overrides the configuration.")
	rawFlag       = flag.Bool("raw", false, "Print raw markdown instead of rendering it for the terminal.")
)

// cfg is the configuration in use, set by Setup.
var cfg = DefaultConfig()

// Setup loads the configuration and configures logging. Call it once flags are parsed.
func Setup() error {
	_ = godotenv.Load()

	c, err := LoadConfig(*configFile, os.Getenv)
	if err != nil {
		return err
	}
	if *dataDirFlag != "" {
		c.DataDir = *dataDirFlag
	}
	if *marketDirFlag != "" {
		c.MarketDir = *marketDirFlag
	}
	if *userFlag != 0 {
		c.User = *userFlag
	}
	if *logLevelFlag != "" {
		c.LogLevel = *logLevelFlag
	}
	if *rawFlag {
		c.Raw = true
	}
	cfg = c
	setupLogger(cfg.LogLevel, cfg.PrettyLogs)
	log.Debug().Str("data", cfg.DataDir).Str("market", cfg.MarketDir).Int("user", cfg.User).Msg("configuration loaded")
	return nil
}

// openMarket returns the EODHD market behind a SQLite cache when an API key is
// configured, and the market folder otherwise.
func openMarket() (portfolio.Market, func(), error) {
	if cfg.EODHDAPIKey != "" {
		cache, err := market.OpenCache(cfg.CacheFile, market.NewEODHD(cfg.EODHDAPIKey))
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { cache.Close() }, nil
	}
	q, err := market.DecodeFolder(cfg.MarketDir)
	if err != nil {
		return nil, nil, err
	}
	return q, func() {}, nil
}

// openBook opens the configured user book. Call the returned func once done.
func openBook(ctx context.Context) (*portfolio.Book, func(), error) {
	m, closeMarket, err := openMarket()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open market: %w", err)
	}
	b, err := portfolio.OpenBook(ctx, portfolio.NewStore(cfg.DataDir), m, cfg.User)
	if err != nil {
		closeMarket()
		return nil, nil, err
	}
	return b, closeMarket, nil
}

// findPortfolio finds a portfolio by id or by name.
func findPortfolio(u *portfolio.User, ref string) (*portfolio.Portfolio, error) {
	if ref == "" {
		return nil, fmt.Errorf("a portfolio is required, use -p <id or name>")
	}
	if id, err := strconv.Atoi(ref); err == nil {
		return u.Portfolio(id)
	}
	return u.FindPortfolio(ref)
}

// fail prints an error and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

// printMarkdown prints markdown to stdout, rendered for the terminal unless raw output
// is configured.
func printMarkdown(md string) {
	if cfg.Raw {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	log.Debug().Err(err).Msg("cannot render markdown, printing it raw")
	fmt.Print(md)
}
