package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type rateCmd struct {
	on string
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "display exchange rates" }
func (*rateCmd) Usage() string {
	return `stk rate [-d <date>] [<from> <to>]

  Without currencies, displays every known rate against the reporting currency.
  With two currencies, displays the rate to convert from into to.
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.on, "d", "", "Date of the rates (YYYY-MM-DD), defaults to the live rates")
}

func (c *rateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 && f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expecting either no currency or a pair of currencies.")
		return subcommands.ExitUsageError
	}
	var on date.Date
	if c.on != "" {
		var err error
		if on, err = date.Parse(c.on); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if f.NArg() == 2 {
		from, to := strings.ToUpper(f.Arg(0)), strings.ToUpper(f.Arg(1))
		var rate decimal.Decimal
		if on.IsZero() {
			rate, err = a.rates.Rate(ctx, from, to)
		} else {
			rate, err = a.rates.HistoricalRate(ctx, on, from, to)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting rate: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("1 %s = %s %s\n", from, rate.Round(6), to)
		return subcommands.ExitSuccess
	}

	cur, err := a.currency()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	var snap *fx.Snapshot
	if on.IsZero() {
		snap, err = a.rates.LiveRates(ctx)
	} else {
		snap, err = a.rates.RatesForDate(ctx, on)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting rates: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.Rates(snap, cur))
	return subcommands.ExitSuccess
}

type convertCmd struct {
	on string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "convert an amount between currencies" }
func (*convertCmd) Usage() string {
	return `stk convert [-d <date>] <amount> <from> <to>
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.on, "d", "", "Convert at the rates of this date (YYYY-MM-DD) instead of the live rates")
}

func (c *convertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "Error: amount, from and to are required.")
		return subcommands.ExitUsageError
	}
	amount, err := decimal.NewFromString(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	from, to := strings.ToUpper(f.Arg(1)), strings.ToUpper(f.Arg(2))
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var converted decimal.Decimal
	if c.on == "" {
		converted, err = a.rates.Convert(ctx, amount, from, to)
	} else {
		var on date.Date
		if on, err = date.Parse(c.on); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		converted, err = a.rates.ConvertHistorical(ctx, amount, from, to, on)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.Conversion(amount, from, converted, to))
	return subcommands.ExitSuccess
}

type backfillCmd struct{}

func (*backfillCmd) Name() string { return "backfill" }
func (*backfillCmd) Synopsis() string {
	return "fill the missing exchange rates of transactions from historical rates"
}
func (*backfillCmd) Usage() string {
	return `stk backfill

  Records, on every transaction in a foreign currency without a rate or with a
  fallback one, the historical rate of its trade date and the converted amounts.
`
}

func (*backfillCmd) SetFlags(f *flag.FlagSet) {}

func (*backfillCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	res, err := stocktracker.BackfillFXRates(ctx, a.db, a.rates, cur)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error backfilling rates: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.Backfill(res, cur))
	return subcommands.ExitSuccess
}
