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

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teeoracle/bridge/statedb"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without file failed: %v", err)
	}
	if cfg.RPC.Endpoint() != "localhost:8645" {
		t.Errorf("endpoint = %s", cfg.RPC.Endpoint())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	file := writeConfig(t, `
datadir = "/var/lib/oracle"
db_backend = "leveldb"

[price]
staleness_window = 3600

[rpc]
port = 9000
cors_origins = ["*"]

[feed]
coin = "bitcoin"
timeout = "3s"
`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DataDir != "/var/lib/oracle" || cfg.DBBackend != statedb.BackendLevelDB {
		t.Errorf("unexpected storage settings %q %q", cfg.DataDir, cfg.DBBackend)
	}
	if cfg.Price.StalenessWindow != 3600 {
		t.Errorf("staleness window = %d", cfg.Price.StalenessWindow)
	}
	// Untouched keys keep their defaults.
	if cfg.Price.FutureTolerance != 300 || cfg.Random.CommitWindow != 600 {
		t.Errorf("defaults lost: %+v %+v", cfg.Price, cfg.Random)
	}
	if cfg.RPC.Port != 9000 || len(cfg.RPC.CorsOrigins) != 1 {
		t.Errorf("unexpected rpc settings %+v", cfg.RPC)
	}
	if cfg.Feed.Coin != "bitcoin" || cfg.Feed.Timeout != 3*time.Second {
		t.Errorf("unexpected feed settings %+v", cfg.Feed)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "datadir = \"x\"\nbogus = 1\n"},
		{"unknown backend", "db_backend = \"bolt\"\n"},
		{"invalid section", "[random]\nmin_stake = 0\n"},
		{"no coin", "[feed]\ncoin = \"\"\n"},
		{"syntax", "datadir = \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := Load(writeConfig(t, "db_backend = \"bolt\"\n")); !errors.Is(err, statedb.ErrUnknownBackend) {
		t.Errorf("expected unknown backend, got %v", err)
	}
}

func TestEnvironmentWins(t *testing.T) {
	t.Setenv(EnvDataDir, "/pinned")
	t.Setenv(EnvDBBackend, statedb.BackendMemory)
	t.Setenv(EnvFeedKey, "secret")
	cfg, err := Load(writeConfig(t, "datadir = \"/from-file\"\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DataDir != "/pinned" || cfg.DBBackend != statedb.BackendMemory {
		t.Errorf("environment ignored: %q %q", cfg.DataDir, cfg.DBBackend)
	}
	if cfg.Feed.DemoKey != "secret" {
		t.Errorf("feed key = %q", cfg.Feed.DemoKey)
	}
}

func TestDumpLoads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.JSON = true
	var buf bytes.Buffer
	if err := cfg.Dump(&buf); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	loaded, err := Load(writeConfig(t, buf.String()))
	if err != nil {
		t.Fatalf("dumped config does not load: %v\n%s", err, buf.String())
	}
	if !loaded.Log.JSON || loaded.Host != cfg.Host || loaded.Feed != cfg.Feed {
		t.Errorf("dump lost settings: %+v", loaded)
	}
}
