package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errMalformed = errors.New("malformed response")

// Client queries a CoinGecko compatible /simple/price endpoint.
type Client struct {
	baseURL    string
	currency   string
	timeout    time.Duration
	retries    int
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func WithRetries(n int) Option { return func(c *Client) { c.retries = n } }

func NewClient(baseURL, currency string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: strings.ToLower(currency),
		timeout:  timeout,
		retries:  1,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Rate(ctx context.Context, asset string) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		rate, retryable, err := c.fetch(ctx, asset)
		if err == nil {
			return rate, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, asset, lastErr)
}

func (c *Client) fetch(ctx context.Context, asset string) (decimal.Decimal, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("ids", asset)
	q.Set("vs_currencies", c.currency)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return decimal.Zero, retryable, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %v", errMalformed, err)
	}

	raw, ok := body[asset][c.currency]
	if !ok {
		return decimal.Zero, false, fmt.Errorf("%w: no %s/%s quote", errMalformed, asset, c.currency)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, false, fmt.Errorf("%w: bad rate %q", errMalformed, raw)
	}
	return rate, false, nil
}
