package eodhd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/etnz/stocktracker/webget"
)

// SearchResult matches the structure of a single item in the EODHD search API response.
type SearchResult struct {
	Code          string  `json:"Code"`
	Exchange      string  `json:"Exchange"`
	Name          string  `json:"Name"`
	Type          string  `json:"Type"`
	Country       string  `json:"Country"`
	Currency      string  `json:"Currency"`
	ISIN          string  `json:"ISIN"`
	PreviousClose float64 `json:"previousClose"`
}

// ExchangeCode returns the exchange code used in transactions for the EODHD exchange of r,
// or the EODHD code itself when it is not one of the supported exchanges.
func (r SearchResult) ExchangeCode() string {
	for code, eod := range exchanges {
		if eod == r.Exchange && code != "" && code != "NASDAQ" {
			return code
		}
	}
	return r.Exchange
}

// Search searches for securities matching term.
func (c *Client) Search(ctx context.Context, term string) ([]SearchResult, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("eodhd: missing API key, set EODHD_API_KEY")
	}
	addr := fmt.Sprintf("%s/search/%s?api_token=%s&fmt=json", c.BaseURL, url.PathEscape(term), url.QueryEscape(c.APIKey))
	var results []SearchResult
	if err := webget.JSON(ctx, c.HTTP, addr, &results); err != nil {
		return nil, err
	}
	return results, nil
}
