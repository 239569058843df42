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
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/fatih/color"
	"github.com/teeoracle/bridge/oracleapi"
	"github.com/teeoracle/bridge/payload"
	"github.com/urfave/cli/v2"
)

// relayMethods maps the relay kinds to RPC methods.
var relayMethods = map[string]string{
	"price":  "oracle_submitPriceUpdate",
	"commit": "oracle_submitRandomCommit",
	"reveal": "oracle_submitRandomReveal",
}

var (
	rpcURLFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "Endpoint of a running oracle service (defaults to rpc.host and rpc.port)",
	}
	oracleFlag = &cli.StringFlag{
		Name:     "oracle",
		Usage:    "Address of the target oracle",
		Required: true,
	}
	relayKindFlag = &cli.StringFlag{
		Name:  "kind",
		Usage: "Kind of response: price, commit or reveal",
		Value: "price",
	}
	inFlag = &cli.StringFlag{
		Name:     "in",
		Usage:    "Response file written by sign-price, random-commit or random-reveal",
		Required: true,
	}
)

var relayCommand = &cli.Command{
	Name:  "relay",
	Usage: "Submit a signed enclave response to a running oracle service",
	Flags: []cli.Flag{rpcURLFlag, oracleFlag, relayKindFlag, inFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		url := ctx.String(rpcURLFlag.Name)
		if url == "" {
			url = "http://" + cfg.RPC.Endpoint()
		}
		oracle, err := parseAddress(ctx.String(oracleFlag.Name))
		if err != nil {
			return err
		}
		client, err := rpc.DialContext(ctx.Context, url)
		if err != nil {
			return err
		}
		defer client.Close()

		res, err := relayResponse(ctx.Context, client, ctx.String(relayKindFlag.Name), oracle, ctx.String(inFlag.Name))
		if err != nil {
			return err
		}
		for _, ext := range res.Externals {
			fmt.Printf("Oracle requests %s\n", color.YellowString(ext))
		}
		if !res.Success {
			return fmt.Errorf("rejected with code %d: %s", res.ExitCode, res.Error)
		}
		fmt.Printf("Delivered %s\n", color.GreenString(res.ID))
		return nil
	},
}

// relayResponse reads a response file and submits it with the method of
// kind.
func relayResponse(ctx context.Context, client *rpc.Client, kind string, oracle common.Address, file string) (*oracleapi.SubmitResult, error) {
	method, ok := relayMethods[kind]
	if !ok {
		return nil, fmt.Errorf("unknown relay kind %q", kind)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var resp payload.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid response file: %w", err)
	}
	var res oracleapi.SubmitResult
	if err := client.CallContext(ctx, &res, method, oracle, &resp); err != nil {
		return nil, err
	}
	log.Info("Relayed response", "kind", kind, "oracle", oracle, "success", res.Success, "code", res.ExitCode)
	return &res, nil
}
