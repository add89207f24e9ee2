// Package stocktracker values a personal stock portfolio recorded as buy and sell
// transactions in several currencies. It is designed to be local-first: the whole
// portfolio lives in a single JSON document the user owns.
//
// The core functionalities include:
//   - Database: loading and saving the portfolio document (accounts, transactions,
//     processed contract notes, favourites, exchange rate snapshots, settings).
//   - Holdings: folding transactions into per-symbol positions with running
//     average cost basis.
//   - Performance: valuing holdings at current prices and live exchange rates while
//     keeping the cost basis at the historical rate of each purchase, then computing
//     gain/loss and annualized return.
//   - Reports: fees, monthly activity, currency breakdown and diversification.
//
// Exchange rates come from package fx and prices from package prices. This package
// serves as the foundational logic for the `stk` command-line tool and the api server.
package stocktracker
