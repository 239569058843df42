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

// oracle is the command line tool of the enclave oracle bridge. It holds the
// enclave side tooling and runs the sandbox host behind a JSON-RPC endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/teeoracle/bridge/internal/config"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs with JSON",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of the terminal",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "oracle",
		Usage: "enclave oracle bridge",
		Flags: []cli.Flag{configFileFlag, verbosityFlag, logJSONFlag, logFileFlag},
		Commands: []*cli.Command{
			keygenCommand,
			signPriceCommand,
			randomCommitCommand,
			randomRevealCommand,
			relayCommand,
			serveCommand,
			dumpConfigCommand,
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			return setupLogging(cfg.Log)
		},
		After: func(ctx *cli.Context) error {
			closeLogging()
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies the logging flags.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.String(configFileFlag.Name))
	if err != nil {
		return config.Config{}, err
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logJSONFlag.Name) {
		cfg.Log.JSON = ctx.Bool(logJSONFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Log.File = ctx.String(logFileFlag.Name)
	}
	log.Debug("Loaded configuration", "file", ctx.String(configFileFlag.Name))
	return cfg, nil
}

var dumpConfigCommand = &cli.Command{
	Name:  "dumpconfig",
	Usage: "Print the effective configuration as TOML",
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		return cfg.Dump(os.Stdout)
	},
}
