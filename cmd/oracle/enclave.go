// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/teeoracle/bridge/enclave"
	"github.com/teeoracle/bridge/internal/coingecko"
	"github.com/teeoracle/bridge/payload"
	"github.com/urfave/cli/v2"
)

var (
	keyFileFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "Enclave signing key file (defaults to enclave.key_file)",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Output file, stdout if empty",
	}
	tickerFlag = &cli.Uint64Flag{
		Name:     "ticker",
		Usage:    "Ticker identifier",
		Required: true,
	}
	usdFlag       = &cli.StringFlag{Name: "usd", Usage: "Price in USD"}
	usd24VolFlag  = &cli.StringFlag{Name: "usd24vol", Usage: "24h volume in USD"}
	usd24ChgFlag  = &cli.StringFlag{Name: "usd24change", Usage: "24h change in percent", Value: "0"}
	btcFlag       = &cli.StringFlag{Name: "btc", Usage: "Price in BTC"}
	updatedAtFlag = &cli.Uint64Flag{Name: "updated-at", Usage: "Unix time of the quote, now if zero"}
	fetchFlag     = &cli.BoolFlag{Name: "fetch", Usage: "Fetch the quote from CoinGecko instead of the price flags"}
	coinFlag      = &cli.StringFlag{Name: "coin", Usage: "CoinGecko coin id (defaults to feed.coin)"}
	feedURLFlag   = &cli.StringFlag{Name: "feed.url", Usage: "CoinGecko API base URL (defaults to feed.url)"}
	recipientFlag = &cli.StringFlag{
		Name:     "recipient",
		Usage:    "Address of the randomness oracle",
		Required: true,
	}
	projectsFlag = &cli.StringFlag{
		Name:  "projects",
		Usage: "JSON project list (defaults to enclave.projects_file)",
	}
	valueFlag = &cli.StringFlag{
		Name:     "value",
		Usage:    "Revealed value file written by random-commit",
		Required: true,
	}
	txHashFlag = &cli.StringFlag{
		Name:  "tx-hash",
		Usage: "Hash of the transaction that carried the commitment",
	}
)

var keygenCommand = &cli.Command{
	Name:  "keygen",
	Usage: "Generate an enclave signing key",
	Flags: []cli.Flag{keyFileFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		file := keyFile(ctx, cfg.Enclave.KeyFile)
		if _, err := os.Stat(file); err == nil {
			return fmt.Errorf("key file %s already exists", file)
		}
		key, err := enclave.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		if err := enclave.SaveKey(file, key); err != nil {
			return err
		}
		pub := key.PublicKey()
		fmt.Printf("Key written to %s\n", file)
		fmt.Printf("Public key: %s\n", color.GreenString(hexutil.Encode(pub[:])))
		return nil
	},
}

var signPriceCommand = &cli.Command{
	Name:  "sign-price",
	Usage: "Sign a price quote for the price oracle",
	Flags: []cli.Flag{keyFileFlag, outFlag, tickerFlag, usdFlag, usd24VolFlag, usd24ChgFlag, btcFlag, updatedAtFlag, fetchFlag, coinFlag, feedURLFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		key, err := enclave.LoadKey(keyFile(ctx, cfg.Enclave.KeyFile))
		if err != nil {
			return err
		}
		var q payload.Quote
		if ctx.Bool(fetchFlag.Name) {
			feed := cfg.Feed
			if ctx.IsSet(coinFlag.Name) {
				feed.Coin = ctx.String(coinFlag.Name)
			}
			if ctx.IsSet(feedURLFlag.Name) {
				feed.URL = ctx.String(feedURLFlag.Name)
			}
			if q, err = coingecko.New(feed).Quote(ctx.Context, feed.Coin); err != nil {
				return fmt.Errorf("failed to fetch quote: %w", err)
			}
		} else {
			for _, f := range []*cli.StringFlag{usdFlag, usd24VolFlag, btcFlag} {
				if !ctx.IsSet(f.Name) {
					return fmt.Errorf("--%s is required without --fetch", f.Name)
				}
			}
			if q, err = parseQuote(ctx.String(usdFlag.Name), ctx.String(usd24VolFlag.Name), ctx.String(usd24ChgFlag.Name), ctx.String(btcFlag.Name)); err != nil {
				return err
			}
			q.LastUpdatedAt = ctx.Uint64(updatedAtFlag.Name)
		}
		now := time.Now()
		if q.LastUpdatedAt == 0 {
			q.LastUpdatedAt = uint64(now.Unix())
		}
		p, err := signPrice(q, ctx.Uint64(tickerFlag.Name), key, now)
		if err != nil {
			return err
		}
		log.Info("Signed price", "ticker", ctx.Uint64(tickerFlag.Name), "updated", q.LastUpdatedAt, "hash", p.Hash)
		return writeJSON(ctx.String(outFlag.Name), p)
	},
}

// parseQuote parses the decimal amounts of a quote.
func parseQuote(usd, vol, change, btc string) (payload.Quote, error) {
	var (
		q   payload.Quote
		err error
	)
	fields := []struct {
		name string
		in   string
		out  *decimal.Decimal
	}{
		{"usd", usd, &q.USD},
		{"usd24vol", vol, &q.USD24Vol},
		{"usd24change", change, &q.USD24Change},
		{"btc", btc, &q.BTC},
	}
	for _, f := range fields {
		if *f.out, err = decimal.NewFromString(f.in); err != nil {
			return payload.Quote{}, fmt.Errorf("invalid %s %q: %w", f.name, f.in, err)
		}
	}
	return q, nil
}

// signPrice converts, validates and signs a quote.
func signPrice(q payload.Quote, ticker uint64, key *enclave.SignatureKey, now time.Time) (*payload.Response, error) {
	p := payload.ConvertQuote(q, ticker)
	if err := payload.ValidatePrice(p, now); err != nil {
		return nil, err
	}
	return payload.NewResponse(p, key), nil
}

var randomCommitCommand = &cli.Command{
	Name:  "random-commit",
	Usage: "Draw a project and nonce and sign the commitment",
	Flags: []cli.Flag{keyFileFlag, projectsFlag, recipientFlag, outFlag},
	Description: `Writes the signed commitment to --out and the hidden value next to it
with a .value suffix. Keep the value until the reveal.`,
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		key, err := enclave.LoadKey(keyFile(ctx, cfg.Enclave.KeyFile))
		if err != nil {
			return err
		}
		file := ctx.String(projectsFlag.Name)
		if file == "" {
			file = cfg.Enclave.ProjectsFile
		}
		projects, err := payload.LoadProjects(file)
		if err != nil {
			return err
		}
		recipient, err := parseAddress(ctx.String(recipientFlag.Name))
		if err != nil {
			return err
		}
		out := ctx.String(outFlag.Name)
		if out == "" {
			return errors.New("--out is required")
		}
		value, commit, err := payload.NewCommitment(uint32(time.Now().Unix()), recipient, projects, rand.Reader)
		if err != nil {
			return err
		}
		if err := writeJSON(out+".value", value); err != nil {
			return err
		}
		log.Info("Committed to project", "dora", value.DoraID, "recipient", recipient)
		return payload.NewResponse(commit, key).Save(out)
	},
}

var randomRevealCommand = &cli.Command{
	Name:  "random-reveal",
	Usage: "Sign the reveal of a value written by random-commit",
	Flags: []cli.Flag{keyFileFlag, valueFlag, txHashFlag, outFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		key, err := enclave.LoadKey(keyFile(ctx, cfg.Enclave.KeyFile))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(ctx.String(valueFlag.Name))
		if err != nil {
			return err
		}
		var value payload.RevealedValue
		if err := json.Unmarshal(data, &value); err != nil {
			return fmt.Errorf("invalid value file: %w", err)
		}
		reveal := payload.RevealOf(&value, uint32(time.Now().Unix()), common.HexToHash(ctx.String(txHashFlag.Name)))
		return writeJSON(ctx.String(outFlag.Name), payload.NewResponse(reveal, key))
	},
}

func keyFile(ctx *cli.Context, fallback string) string {
	if ctx.IsSet(keyFileFlag.Name) {
		return ctx.String(keyFileFlag.Name)
	}
	return fallback
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// writeJSON writes v as indented JSON to file, or to stdout if file is
// empty.
func writeJSON(file string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if file == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return os.WriteFile(file, data, 0600)
}
