package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/renderer"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type txCmd struct {
	symbol  string
	account string
	period  string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions" }
func (*txCmd) Usage() string {
	return `stk tx [-s <symbol>] [-a <account>] [-r FROM..TO]
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Only the transactions of this symbol")
	f.StringVar(&c.account, "a", "", "Only the transactions of this account")
	f.StringVar(&c.period, "r", "", "Only the transactions in the date range FROM..TO")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rg, err := date.ParseRange(c.period)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	txs := stocktracker.InRange(a.db.Transactions(), rg)
	if c.symbol != "" {
		txs = stocktracker.SymbolHistory(txs, strings.ToUpper(c.symbol))
	}
	if c.account != "" {
		txs = stocktracker.AccountTransactions(txs, c.account)
	}
	printMarkdown(renderer.Transactions(txs))
	return subcommands.ExitSuccess
}

type addCmd struct {
	on       string
	symbol   string
	company  string
	exchange string
	account  string
	quantity string
	price    string
	fees     string
	currency string
	rate     string
	broker   string
	note     string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a buy or a sell" }
func (*addCmd) Usage() string {
	return `stk add -s <symbol> -q <quantity> -p <price> [options] <buy|sell>

  Records a transaction. The total is quantity times price, plus the fees for a buy
  and minus the fees for a sell. When the currency is not the reporting currency,
  the amounts are converted at the -rate given, or at the historical rate of the
  trade date.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.on, "d", date.Today().String(), "Trade date (YYYY-MM-DD)")
	f.StringVar(&c.symbol, "s", "", "Symbol")
	f.StringVar(&c.company, "n", "", "Company name")
	f.StringVar(&c.exchange, "x", "", "Exchange (NYSE, NASDAQ, LSE, TSX, ...)")
	f.StringVar(&c.account, "a", "", "Account id")
	f.StringVar(&c.quantity, "q", "", "Quantity")
	f.StringVar(&c.price, "p", "", "Price per share")
	f.StringVar(&c.fees, "fees", "0", "Fees, in the transaction currency")
	f.StringVar(&c.currency, "cur", "USD", "Transaction currency")
	f.StringVar(&c.rate, "rate", "", "Exchange rate from the contract note, into the reporting currency")
	f.StringVar(&c.broker, "broker", "", "Broker name")
	f.StringVar(&c.note, "note", "", "Contract note number")
}

// transaction builds the transaction described by the flags.
func (c *addCmd) transaction(side stocktracker.Side) (stocktracker.Transaction, error) {
	tx := stocktracker.Transaction{
		Type:           side,
		Symbol:         strings.ToUpper(c.symbol),
		Company:        c.company,
		Exchange:       strings.ToUpper(c.exchange),
		AccountID:      c.account,
		Currency:       strings.ToUpper(c.currency),
		Broker:         c.broker,
		ContractNoteNo: c.note,
		FXRateSource:   stocktracker.FXNone,
	}
	var err error
	if tx.Date, err = date.Parse(c.on); err != nil {
		return tx, fmt.Errorf("invalid date: %w", err)
	}
	if tx.Quantity, err = decimal.NewFromString(c.quantity); err != nil {
		return tx, fmt.Errorf("invalid quantity %q: %w", c.quantity, err)
	}
	if tx.Price, err = decimal.NewFromString(c.price); err != nil {
		return tx, fmt.Errorf("invalid price %q: %w", c.price, err)
	}
	if tx.Fees, err = decimal.NewFromString(c.fees); err != nil {
		return tx, fmt.Errorf("invalid fees %q: %w", c.fees, err)
	}
	gross := tx.Quantity.Mul(tx.Price)
	if side == stocktracker.Buy {
		tx.Total = gross.Add(tx.Fees)
	} else {
		tx.Total = decimal.Max(gross.Sub(tx.Fees), decimal.Zero)
	}
	return tx, nil
}

// convert records rate on tx, with the amounts converted into reporting.
func convert(tx *stocktracker.Transaction, rate decimal.Decimal, source stocktracker.FXSource, reporting string) {
	priceIn, feesIn, totalIn := tx.Price.Mul(rate), tx.Fees.Mul(rate), tx.Total.Mul(rate)
	tx.FXRate = &rate
	tx.FXRateSource = source
	tx.FXRateDate = tx.Date
	tx.BaseCurrency = reporting
	tx.PriceInBase = &priceIn
	tx.FeesInBase = &feesIn
	tx.TotalInBase = &totalIn
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: the transaction type buy or sell is required.")
		return subcommands.ExitUsageError
	}
	side := stocktracker.Side(strings.ToLower(f.Arg(0)))
	tx, err := c.transaction(side)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := tx.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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
	switch {
	case c.rate != "":
		rate, err := decimal.NewFromString(c.rate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid rate %q: %v\n", c.rate, err)
			return subcommands.ExitUsageError
		}
		convert(&tx, rate, stocktracker.FXContract, cur)
	case tx.Currency != cur:
		rate, err := a.rates.HistoricalRate(ctx, tx.Date, tx.Currency, cur)
		if err != nil {
			log.Warn().Err(err).Msg("no rate recorded, run backfill later")
			break
		}
		convert(&tx, rate, stocktracker.FXAPI, cur)
	}

	tx, err = a.db.AddTransaction(ctx, tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding transaction: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Added %s: %s %s %s on %v for %s\n", tx.ID, tx.Type, tx.Quantity, tx.Symbol, tx.Date, stocktracker.M(tx.Total, tx.Currency))
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete transactions by id" }
func (*deleteCmd) Usage() string {
	return `stk delete <id>...
`
}

func (*deleteCmd) SetFlags(f *flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one transaction id is required.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, id := range f.Args() {
		if err := a.db.DeleteTransaction(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting transaction: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return subcommands.ExitSuccess
}
