package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/eodhd"
	"github.com/etnz/stocktracker/prices"
	"github.com/etnz/stocktracker/renderer"
	"github.com/google/subcommands"
)

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch the current price of every traded symbol" }
func (*refreshCmd) Usage() string {
	return `stk refresh

  Drops the cached prices, fetches a fresh quote for every symbol found in the
  transactions and records them as the last known prices.
`
}

func (*refreshCmd) SetFlags(f *flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	quotes, err := a.prices.RefreshAll(ctx, stocktracker.Instruments(a.db.Transactions()))
	printMarkdown(renderer.Quotes(quotes, err))
	if len(quotes) == 0 && err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type priceCmd struct {
	exchange string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "display the current price of symbols" }
func (*priceCmd) Usage() string {
	return `stk price [-x <exchange>] <symbol>...

  Displays the current quote of each symbol, from the cache when fresh.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.exchange, "x", "", "Exchange the symbols are listed on (NYSE, NASDAQ, LSE, TSX, ...)")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one symbol is required.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	quotes := make(map[string]prices.Quote)
	status := subcommands.ExitSuccess
	for _, symbol := range f.Args() {
		symbol = strings.ToUpper(symbol)
		q, ok := a.prices.Quote(ctx, symbol, strings.ToUpper(c.exchange))
		if !ok {
			fmt.Fprintf(os.Stderr, "No price for %s.\n", symbol)
			status = subcommands.ExitFailure
			continue
		}
		quotes[symbol] = q
	}
	if len(quotes) > 0 {
		printMarkdown(renderer.Quotes(quotes, nil))
	}
	return status
}

type searchCmd struct {
	apiKey string
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search for symbols using the EODHD API" }
func (*searchCmd) Usage() string {
	return `stk search <search term>

  Searches for securities via EOD Historical Data and prints the symbol and
  exchange to use in transactions. Requires an EODHD API key.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "key", "", "EODHD API key, defaults to the configuration or EODHD_API_KEY")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	term := strings.Join(f.Args(), " ")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	key := c.apiKey
	if key == "" && cfg.Prices.Provider == "eodhd" {
		key = cfg.Prices.APIKey
	}
	base := ""
	if cfg.Prices.Provider == "eodhd" {
		base = cfg.Prices.BaseURL
	}

	results, err := eodhd.New(base, key).Search(ctx, term)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching securities: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(results) == 0 {
		fmt.Printf("No results found for '%s'.\n", term)
		return subcommands.ExitSuccess
	}
	fmt.Printf("Found %d results for '%s':\n\n", len(results), term)
	for _, r := range results {
		fmt.Printf("%s (%s)\n", r.Name, r.Type)
		fmt.Printf("    symbol %s, exchange %s, currency %s, ISIN %s\n", r.Code, r.ExchangeCode(), r.Currency, r.ISIN)
		fmt.Printf("    previous close %.2f\n\n", r.PreviousClose)
	}
	return subcommands.ExitSuccess
}
