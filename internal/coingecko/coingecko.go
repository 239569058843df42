// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package coingecko fetches quotes from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"
	"github.com/teeoracle/bridge/payload"
)

const (
	PublicURL = "https://api.coingecko.com"
	ProURL    = "https://pro-api.coingecko.com"

	// DefaultCoin is the coin quoted by the price oracle.
	DefaultCoin = "the-open-network"

	pricePath = "/api/v3/simple/price"
)

var (
	ErrEmptyResponse = errors.New("empty response body")
	ErrUnknownCoin   = errors.New("coin missing from response")
)

// Config selects the endpoint and credentials. A pro key takes precedence
// over a demo key and switches to the pro endpoint unless URL is set.
type Config struct {
	URL     string        `toml:"url"`
	Coin    string        `toml:"coin"`
	DemoKey string        `toml:"demo_key"`
	ProKey  string        `toml:"pro_key"`
	Timeout time.Duration `toml:"timeout"`
}

// DefaultConfig returns the public endpoint without a key.
func DefaultConfig() Config {
	return Config{
		Coin:    DefaultCoin,
		Timeout: 10 * time.Second,
	}
}

// Client queries one CoinGecko endpoint.
type Client struct {
	baseURL    string
	keyHeader  string
	key        string
	httpClient *http.Client
}

// New creates a client for cfg.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	switch {
	case cfg.ProKey != "":
		c.keyHeader, c.key = "x-cg-pro-api-key", cfg.ProKey
		if c.baseURL == "" {
			c.baseURL = ProURL
		}
	case cfg.DemoKey != "":
		c.keyHeader, c.key = "x-cg-demo-api-key", cfg.DemoKey
	}
	if c.baseURL == "" {
		c.baseURL = PublicURL
	}
	return c
}

// simplePrice is one coin of the simple price response. Amounts are decoded
// as decimals so no precision is lost to floats.
type simplePrice struct {
	LastUpdatedAt uint64          `json:"last_updated_at"`
	USD           decimal.Decimal `json:"usd"`
	USD24Vol      decimal.Decimal `json:"usd_24h_vol"`
	USD24Change   decimal.Decimal `json:"usd_24h_change"`
	BTC           decimal.Decimal `json:"btc"`
}

// Quote fetches the USD and BTC prices of coin with the 24h volume and
// change.
func (c *Client) Quote(ctx context.Context, coin string) (payload.Quote, error) {
	query := url.Values{
		"ids":                     {coin},
		"vs_currencies":           {"USD,BTC"},
		"include_24hr_vol":        {"true"},
		"include_24hr_change":     {"true"},
		"include_last_updated_at": {"true"},
		"precision":               {"18"},
	}
	u, err := url.Parse(c.baseURL + pricePath)
	if err != nil {
		return payload.Quote{}, fmt.Errorf("invalid url: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return payload.Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.keyHeader != "" {
		req.Header.Set(c.keyHeader, c.key)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload.Quote{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Quote{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return payload.Quote{}, fmt.Errorf("request failed: %s", resp.Status)
	}
	if len(body) == 0 {
		return payload.Quote{}, ErrEmptyResponse
	}
	var prices map[string]simplePrice
	if err := json.Unmarshal(body, &prices); err != nil {
		return payload.Quote{}, fmt.Errorf("unmarshal response: %w", err)
	}
	p, ok := prices[coin]
	if !ok {
		return payload.Quote{}, fmt.Errorf("%w: %s", ErrUnknownCoin, coin)
	}
	log.Debug("Fetched quote", "coin", coin, "usd", p.USD, "updated", p.LastUpdatedAt)
	return payload.Quote{
		LastUpdatedAt: p.LastUpdatedAt,
		USD:           p.USD,
		USD24Vol:      p.USD24Vol,
		USD24Change:   p.USD24Change,
		BTC:           p.BTC,
	}, nil
}
