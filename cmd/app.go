// Package cmd implements the stk command line to value a stock portfolio.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/config"
	"github.com/etnz/stocktracker/eodhd"
	"github.com/etnz/stocktracker/frankfurter"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
	"github.com/etnz/stocktracker/yahoo"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&statsCmd{}, "portfolio")
	c.Register(&holdingsCmd{}, "portfolio")
	c.Register(&reportCmd{}, "portfolio")

	c.Register(&refreshCmd{}, "prices")
	c.Register(&priceCmd{}, "prices")
	c.Register(&searchCmd{}, "prices")

	c.Register(&rateCmd{}, "rates")
	c.Register(&convertCmd{}, "rates")
	c.Register(&backfillCmd{}, "rates")

	c.Register(&txCmd{}, "transactions")
	c.Register(&addCmd{}, "transactions")
	c.Register(&deleteCmd{}, "transactions")

	c.Register(&accountsCmd{}, "accounts")
	c.Register(&addAccountCmd{}, "accounts")
	c.Register(&addFavoriteCmd{}, "accounts")

	c.Register(&serveCmd{}, "server")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile      = flag.String("config", "", "Path to the configuration file, stocktracker.yaml is searched by default")
	databaseFile    = flag.String("db", "", "Path to the portfolio database, overrides the configuration")
	defaultCurrency = flag.String("c", "", "Reporting currency, defaults to the database setting")
	Verbose         = flag.Bool("v", false, "Log debug messages")
	rawMarkdown     = flag.Bool("raw", false, "Print markdown without terminal rendering")
)

// app holds the services a command works with.
type app struct {
	cfg    *config.Config
	db     *stocktracker.Database
	rates  *fx.Service
	prices *prices.Service
}

// setupLogging configures the global logger on stderr.
func setupLogging(cfg *config.Config) {
	level := cfg.LogLevel()
	if *Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *databaseFile != "" {
		cfg.Database = *databaseFile
	}
	setupLogging(cfg)
	return cfg, nil
}

// newPriceProvider returns the configured quote source.
func newPriceProvider(cfg *config.Config) prices.Provider {
	if cfg.Prices.Provider == "eodhd" {
		return eodhd.New(cfg.Prices.BaseURL, cfg.Prices.APIKey)
	}
	return yahoo.New(cfg.Prices.BaseURL)
}

// openApp opens the database and builds the rate and price services on top of it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := stocktracker.OpenDatabase(ctx, stocktracker.FileBackend{Path: cfg.Database}, cfg.Currency)
	if err != nil {
		return nil, err
	}
	rates := fx.NewService(frankfurter.New(cfg.FX.BaseURL), db,
		fx.WithLiveTTL(cfg.FX.LiveTTL),
		fx.WithCurrencies(cfg.FX.Currencies...),
	)
	quotes := prices.NewService(newPriceProvider(cfg), db,
		prices.WithCacheTTL(cfg.Prices.CacheTTL),
		prices.WithFailureWindow(cfg.Prices.FailureWindow),
		prices.WithDailyQuota(cfg.Prices.DailyQuota),
	)
	return &app{cfg: cfg, db: db, rates: rates, prices: quotes}, nil
}

// currency returns the reporting currency: the -c flag, or the database setting.
func (a *app) currency() (string, error) {
	if *defaultCurrency == "" {
		return a.db.ReportingCurrency(), nil
	}
	cur := strings.ToUpper(*defaultCurrency)
	return cur, stocktracker.ValidateCurrency(cur)
}

// transactions returns the transactions of the database, restricted to a favorite when
// its id is not empty.
func (a *app) transactions(favorite string) ([]stocktracker.Transaction, error) {
	txs := a.db.Transactions()
	if favorite == "" {
		return txs, nil
	}
	fav, ok := a.db.Favorites()[favorite]
	if !ok {
		return nil, fmt.Errorf("%w: %q", stocktracker.ErrFavoriteNotFound, favorite)
	}
	return fav.Filter(txs, a.db.Accounts()), nil
}

func (a *app) calculator() *stocktracker.Calculator {
	return &stocktracker.Calculator{Rates: a.rates, Prices: a.prices}
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		log.Debug().Err(err).Msg("cannot render markdown")
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
