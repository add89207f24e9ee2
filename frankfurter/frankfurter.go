// Package frankfurter implements an fx.Provider backed by the Frankfurter API (ECB reference rates).
package frankfurter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/webget"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public Frankfurter endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

// Client fetches rates from a Frankfurter server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ fx.Provider = (*Client)(nil)

// New returns a Client for baseURL, or the public endpoint if baseURL is empty.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: webget.NewClient()}
}

// response is the payload of both /latest and /{date}.
//
//	{"amount":1.0,"base":"USD","date":"2024-01-15","rates":{"CAD":1.3412,"EUR":0.9131}}
type response struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   date.Date                  `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

func (c *Client) get(ctx context.Context, path, base string) (date.Date, map[string]decimal.Decimal, error) {
	addr := fmt.Sprintf("%s/%s?from=%s", c.BaseURL, path, url.QueryEscape(base))
	var resp response
	if err := webget.JSON(ctx, c.HTTP, addr, &resp); err != nil {
		return date.Date{}, nil, fmt.Errorf("frankfurter %s: %w", path, err)
	}
	if len(resp.Rates) == 0 {
		return date.Date{}, nil, fmt.Errorf("frankfurter %s: empty rates", path)
	}
	if resp.Base != "" && resp.Base != base {
		return date.Date{}, nil, fmt.Errorf("frankfurter %s: got base %q want %q", path, resp.Base, base)
	}
	return resp.Date, resp.Rates, nil
}

// Latest returns the most recent rates against base.
func (c *Client) Latest(ctx context.Context, base string) (date.Date, map[string]decimal.Decimal, error) {
	return c.get(ctx, "latest", base)
}

// OnDate returns the rates against base published for on. On non-business days the
// server answers with the previous business day, which is reported as the returned date.
func (c *Client) OnDate(ctx context.Context, base string, on date.Date) (date.Date, map[string]decimal.Decimal, error) {
	return c.get(ctx, on.String(), base)
}
