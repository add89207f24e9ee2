package cmd

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/etnz/stocktracker"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and favorites" }
func (*accountsCmd) Usage() string {
	return `stk accounts
`
}

func (*accountsCmd) SetFlags(f *flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	accounts := a.db.Accounts()
	ids := slices.Sorted(maps.Keys(accounts))
	if len(ids) == 0 {
		fmt.Println("No accounts.")
	}
	for _, id := range ids {
		acc := accounts[id]
		fmt.Printf("%s\t%s\t%s\t%s\n", acc.ID, acc.Name, acc.DefaultCurrency, strings.Join(acc.Holders, ", "))
	}

	favorites := a.db.Favorites()
	if len(favorites) == 0 {
		return subcommands.ExitSuccess
	}
	fmt.Println("\nFavorites:")
	for _, id := range slices.Sorted(maps.Keys(favorites)) {
		fav := favorites[id]
		fmt.Printf("%s\t%s\taccounts: %s\tholders: %s\n", fav.ID, fav.Name, strings.Join(fav.Filters.Accounts, ", "), strings.Join(fav.Filters.Holders, ", "))
	}
	return subcommands.ExitSuccess
}

type addAccountCmd struct {
	name     string
	currency string
	broker   string
	holders  string
	kind     string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "add or replace an account" }
func (*addAccountCmd) Usage() string {
	return `stk add-account [-n <name>] [-cur <currency>] [-holders a,b] <id>
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Display name")
	f.StringVar(&c.currency, "cur", "", "Default currency of the account")
	f.StringVar(&c.broker, "broker", "", "Broker name")
	f.StringVar(&c.holders, "holders", "", "Comma separated list of account holders")
	f.StringVar(&c.kind, "type", "", "Account type (margin, registered, ...)")
}

func (c *addAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single account id is required.")
		return subcommands.ExitUsageError
	}
	acc := stocktracker.Account{
		ID:              f.Arg(0),
		Name:            c.name,
		Broker:          c.broker,
		DefaultCurrency: strings.ToUpper(c.currency),
		AccountType:     c.kind,
		Holders:         splitList(c.holders),
		IsActive:        true,
	}
	if acc.DefaultCurrency != "" {
		if err := stocktracker.ValidateCurrency(acc.DefaultCurrency); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.db.AddAccount(ctx, acc); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding account: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Info().Str("id", acc.ID).Msg("account saved")
	return subcommands.ExitSuccess
}

type addFavoriteCmd struct {
	name     string
	accounts string
	holders  string
}

func (*addFavoriteCmd) Name() string     { return "add-favorite" }
func (*addFavoriteCmd) Synopsis() string { return "save a combination of accounts and holders" }
func (*addFavoriteCmd) Usage() string {
	return `stk add-favorite [-n <name>] [-accounts a,b] [-holders a,b] <id>

  The favorite id can then be passed with -f to stats and report.
`
}

func (c *addFavoriteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Display name")
	f.StringVar(&c.accounts, "accounts", "", "Comma separated list of account ids")
	f.StringVar(&c.holders, "holders", "", "Comma separated list of account holders")
}

func (c *addFavoriteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single favorite id is required.")
		return subcommands.ExitUsageError
	}
	fav := stocktracker.Favorite{
		ID:   f.Arg(0),
		Name: c.name,
		Filters: stocktracker.FavoriteFilters{
			Accounts: splitList(c.accounts),
			Holders:  splitList(c.holders),
		},
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.db.AddFavorite(ctx, fav); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding favorite: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Info().Str("id", fav.ID).Msg("favorite saved")
	return subcommands.ExitSuccess
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var res []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res
}
