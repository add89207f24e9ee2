package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/renderer"
	"github.com/google/subcommands"
)

type statsCmd struct {
	favorite string
	simple   bool
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "value the portfolio at current prices and rates" }
func (*statsCmd) Usage() string {
	return `stk stats [-f <favorite>] [-simple]

  Values every holding at its current price converted at the live rate, against a
  cost basis converted at the rate of each buy's trade date.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.favorite, "f", "", "Restrict to the accounts of a saved favorite")
	f.BoolVar(&c.simple, "simple", false, "Only sum the costs, without fetching prices nor rates")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cur, err := a.currency()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	txs, err := a.transactions(c.favorite)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.simple {
		s := stocktracker.CalculateSimpleStats(txs, cur)
		fmt.Printf("%d positions, %s invested\n", s.TotalPositions, stocktracker.M(s.TotalInvested, s.Currency))
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.Stats(a.calculator().PortfolioStats(ctx, txs, cur)))
	return subcommands.ExitSuccess
}

type holdingsCmd struct {
	account string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display current positions at cost" }
func (*holdingsCmd) Usage() string {
	return `stk holdings [-a <account>]

  Displays the quantity and cost of every open position, without prices.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Only the holdings of this account")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cur, err := a.currency()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.account != "" {
		printMarkdown(renderer.Account(stocktracker.SummarizeAccount(a.db.Transactions(), a.db.Accounts(), c.account, cur)))
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.Holdings(stocktracker.CalculateHoldings(a.db.Transactions(), cur), cur))
	return subcommands.ExitSuccess
}

type reportCmd struct {
	favorite string
	period   string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display cost based reports on the transactions" }
func (*reportCmd) Usage() string {
	return `stk report [-f <favorite>] [-r FROM..TO] <diversification|monthly|currencies|activity>

  diversification  share of each holding in the invested cost
  monthly          buys and sells per month
  currencies       amounts bought per transaction currency
  activity         buy and sell totals, fees included
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.favorite, "f", "", "Restrict to the accounts of a saved favorite")
	f.StringVar(&c.period, "r", "", "Restrict to a date range FROM..TO, either side may be empty")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single report name is required.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cur, err := a.currency()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	txs, err := a.transactions(c.favorite)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	rg, err := date.ParseRange(c.period)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	txs = stocktracker.InRange(txs, rg)

	switch f.Arg(0) {
	case "diversification":
		printMarkdown(renderer.Diversification(stocktracker.Diversification(txs, cur), cur))
	case "monthly":
		printMarkdown(renderer.Monthly(stocktracker.MonthlyActivity(txs, cur), cur))
	case "currencies":
		printMarkdown(renderer.Currencies(stocktracker.CurrencyBreakdown(txs)))
	case "activity", "fees":
		printMarkdown(renderer.Activity(stocktracker.SummarizeTransactions(txs, cur)))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown report %q.\n", f.Arg(0))
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
