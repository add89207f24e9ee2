// Package webget contains the small HTTP helpers shared by the rate and price providers.
package webget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every provider request.
const DefaultTimeout = 15 * time.Second

// loggingTransport logs every round trip at debug level.
type loggingTransport struct {
	base http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		log.Debug().Err(err).Str("host", req.URL.Host).Str("path", req.URL.Path).Msg("http request failed")
		return nil, err
	}
	log.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("http request")
	return resp, nil
}

// NewClient returns an http.Client with a timeout that logs its requests.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &loggingTransport{base: http.DefaultTransport},
	}
}

// JSON performs an HTTP GET request to addr and unmarshals the JSON response body into data.
func JSON(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	// some quote endpoints reject the default Go user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stocktracker)")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("cannot decode response of %v%v: %w", resp.Request.URL.Host, resp.Request.URL.Path, err)
	}
	return nil
}
