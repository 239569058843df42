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

package democlient

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	oracle   = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	moved    = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000a4")
)

func ctx(c *Client, sender common.Address, value uint64) *contract.Context {
	return contract.NewContext(c.Self, sender, uint256.NewInt(value), uint256.NewInt(100), uint256.NewInt(1_000_000), 1_700_000_000)
}

func TestCallOracle(t *testing.T) {
	c := New(owner, oracle, DefaultTicker)
	cx := ctx(c, stranger, 10_100)
	if err := c.Handle(cx, contract.CallOracle{}); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	out := cx.Outbox()
	if len(out) != 1 || out[0].To != oracle {
		t.Fatalf("unexpected outbox %+v", out)
	}
	req, ok := out[0].Body.(contract.PriceRequest)
	if !ok || req.Ticker != DefaultTicker || req.QueryID != 1 {
		t.Errorf("unexpected request %+v", out[0].Body)
	}
	if out[0].Value.Uint64() != 10_000 {
		t.Errorf("forwarded %s, want 10000", out[0].Value)
	}
}

func TestResponsesOnlyFromOracle(t *testing.T) {
	c := New(owner, oracle, DefaultTicker)
	resp := contract.PriceResponse{QueryID: 1, Ticker: DefaultTicker, USD: 345, USD24Change: -12}

	err := c.Handle(ctx(c, stranger, 0), resp)
	if !errors.Is(err, contract.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := c.Handle(ctx(c, oracle, 0), resp); err != nil {
		t.Fatalf("response failed: %v", err)
	}
	if !c.HasPrice || c.LastPrice != resp {
		t.Errorf("price not recorded: %+v", c.LastPrice)
	}
	if err := c.Handle(ctx(c, oracle, 0), contract.ScheduledResponse{QueryID: 2, Ticker: DefaultTicker}); err != nil {
		t.Fatalf("scheduled response failed: %v", err)
	}
	if c.Scheduled != 1 {
		t.Errorf("scheduled = %d, want 1", c.Scheduled)
	}
}

func TestFollowsMovedOracle(t *testing.T) {
	c := New(owner, oracle, DefaultTicker)
	if err := c.Handle(ctx(c, stranger, 0), contract.NewAddressResponse{Address: stranger}); !errors.Is(err, contract.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := c.Handle(ctx(c, oracle, 0), contract.NewAddressResponse{Address: moved}); err != nil {
		t.Fatalf("redirect failed: %v", err)
	}
	if c.Oracle != moved {
		t.Fatalf("oracle = %s, want %s", c.Oracle, moved)
	}
	cx := ctx(c, owner, 1000)
	c.Handle(cx, contract.CallOracle{})
	if out := cx.Outbox(); len(out) != 1 || out[0].To != moved {
		t.Errorf("request not sent to new oracle: %+v", out)
	}
	// The address stays derived from the deployment data.
	if c.Self != New(owner, oracle, DefaultTicker).Self {
		t.Error("address changed after redirect")
	}
}

func TestClientWithdraw(t *testing.T) {
	c := New(owner, oracle, DefaultTicker)
	if err := c.Handle(ctx(c, stranger, 0), contract.Withdraw{}); contract.CodeOf(err) != 132 {
		t.Fatalf("expected code 132, got %v", err)
	}
	cx := ctx(c, owner, 0)
	if err := c.Handle(cx, contract.Withdraw{}); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if out := cx.Outbox(); len(out) != 1 || out[0].Value.Uint64() != 1_000_000 {
		t.Errorf("unexpected withdrawal %+v", out)
	}
}

func TestClientUnknownOpcode(t *testing.T) {
	c := New(owner, oracle, DefaultTicker)
	if err := c.Handle(ctx(c, owner, 0), contract.Roll{}); !errors.Is(err, contract.ErrUnknownOpcode) {
		t.Fatalf("expected unknown opcode, got %v", err)
	}
}

func TestClientStateRoundTrip(t *testing.T) {
	c := New(owner, oracle, DefaultTicker)
	c.Handle(ctx(c, oracle, 0), contract.PriceResponse{QueryID: 3, Ticker: DefaultTicker, USD: 345, USD24Change: -7, BTC: 9, LastUpdatedAt: 11})
	c.QueryID = 3

	enc, err := c.EncodeState()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	loaded, err := Load(enc)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := loaded.(*Client); *got != *c {
		t.Errorf("state mismatch: have %+v, want %+v", got, c)
	}
}
