package cmd

import (
	"context"
	"flag"
	"fmt"

	portfolio "github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/renderer"
	"github.com/google/subcommands"
)

type userCreateCmd struct {
	name       string
	commission string
}

func (*userCreateCmd) Name() string     { return "user-create" }
func (*userCreateCmd) Synopsis() string { return "create a new user" }
func (*userCreateCmd) Usage() string {
	return `pcs user-create -name <name> [-commission <amount>]

  Creates a user and prints its id. Use -user <id> or PCS_USER to work with it.
`
}

func (c *userCreateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the user.")
	f.StringVar(&c.commission, "commission", "0", "Default commission charged per transaction, in dollars.")
}

func (c *userCreateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		return fail("Error: -name is required")
	}
	commission, err := portfolio.ParseMoney(c.commission)
	if err != nil {
		return fail("Error parsing commission: %v", err)
	}
	u, err := portfolio.NewStore(cfg.DataDir).CreateUser(c.name, commission)
	if err != nil {
		return fail("Error creating user: %v", err)
	}
	fmt.Printf("Created user %d %q\n", u.ID, u.Name)
	return subcommands.ExitSuccess
}

type userShowCmd struct{}

func (*userShowCmd) Name() string     { return "user-show" }
func (*userShowCmd) Synopsis() string { return "display the user and its portfolios" }
func (*userShowCmd) Usage() string {
	return `pcs user-show

  Displays the user, its default commission, its portfolios, and the DCA plans applied.
`
}

func (*userShowCmd) SetFlags(*flag.FlagSet) {}

func (c *userShowCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, done, err := openBook(ctx)
	if err != nil {
		return fail("Error loading user: %v", err)
	}
	defer done()
	printMarkdown(renderer.RenderUser(b.User()))
	return subcommands.ExitSuccess
}

type commissionCmd struct{}

func (*commissionCmd) Name() string     { return "commission" }
func (*commissionCmd) Synopsis() string { return "set the default commission of the user" }
func (*commissionCmd) Usage() string {
	return `pcs commission <amount>

  Sets the commission charged by default on every transaction.
`
}

func (*commissionCmd) SetFlags(*flag.FlagSet) {}

func (c *commissionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("Error: expected exactly one amount")
	}
	amount, err := portfolio.ParseMoney(f.Arg(0))
	if err != nil {
		return fail("Error parsing commission: %v", err)
	}
	b, done, err := openBook(ctx)
	if err != nil {
		return fail("Error loading user: %v", err)
	}
	defer done()
	if err := b.SetCommission(amount); err != nil {
		return fail("Error setting commission: %v", err)
	}
	fmt.Printf("Default commission set to %s\n", amount)
	return subcommands.ExitSuccess
}
