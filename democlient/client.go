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

// Package democlient is a minimal price consumer. It asks its oracle for a
// price and follows the oracle when it moves.
package democlient

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/teeoracle/bridge/contract"
)

const Kind = "price-demo"

// DefaultTicker is the ticker queried by a spawned demo client.
const DefaultTicker uint64 = 0x72716023

// Client is the demo consumer contract.
type Client struct {
	Owner     common.Address
	Self      common.Address
	Oracle    common.Address
	Ticker    uint64
	LastPrice contract.PriceResponse
	HasPrice  bool
	Scheduled uint64
	QueryID   uint64
}

// New creates a client. Its address depends on owner, the initial oracle and
// the ticker.
func New(owner, oracle common.Address, ticker uint64) *Client {
	return &Client{
		Owner:  owner,
		Self:   contract.DeriveAddress(Kind, owner, oracle, ticker),
		Oracle: oracle,
		Ticker: ticker,
	}
}

func (c *Client) Kind() string            { return Kind }
func (c *Client) Address() common.Address { return c.Self }

// Copy implements contract.Contract.
func (c *Client) Copy() contract.Contract {
	cpy := *c
	return &cpy
}

// Handle implements contract.Contract.
func (c *Client) Handle(ctx *contract.Context, msg contract.Message) error {
	switch m := msg.(type) {
	case contract.Deploy:
		ctx.Reply(ctx.Remaining(), contract.DeployOk{QueryID: m.QueryID})
	case contract.DeployOk, contract.Topup:
	case contract.CallOracle:
		c.QueryID++
		ctx.Send(c.Oracle, ctx.Remaining(), contract.PriceRequest{QueryID: c.QueryID, Ticker: c.Ticker})
	case contract.PriceResponse:
		if err := c.fromOracle(ctx); err != nil {
			return err
		}
		c.LastPrice = m
		c.HasPrice = true
	case contract.ScheduledResponse:
		if err := c.fromOracle(ctx); err != nil {
			return err
		}
		c.Scheduled++
	case contract.NewAddressResponse:
		if err := c.fromOracle(ctx); err != nil {
			return err
		}
		log.Info("Demo client following oracle", "addr", c.Self, "from", c.Oracle, "to", m.Address)
		c.Oracle = m.Address
	case contract.Withdraw:
		if ctx.Sender != c.Owner {
			return errorsmod.Wrapf(contract.ErrAccessDenied, "withdraw from %s", ctx.Sender)
		}
		ctx.Send(c.Owner, ctx.Available(), contract.Withdrawal{})
	default:
		return errorsmod.Wrapf(contract.ErrUnknownOpcode, "%s (%#x)", contract.Name(msg), msg.Opcode())
	}
	return nil
}

func (c *Client) fromOracle(ctx *contract.Context) error {
	if ctx.Sender != c.Oracle {
		return errorsmod.Wrapf(contract.ErrAccessDenied, "response from %s, oracle is %s", ctx.Sender, c.Oracle)
	}
	return nil
}

// clientData is the RLP form of Client; rlp has no signed integers.
type clientData struct {
	Owner     common.Address
	Self      common.Address
	Oracle    common.Address
	Ticker    uint64
	Price     []uint64
	HasPrice  bool
	Scheduled uint64
	QueryID   uint64
}

// EncodeState implements contract.Contract.
func (c *Client) EncodeState() ([]byte, error) {
	p := c.LastPrice
	return rlp.EncodeToBytes(&clientData{
		Owner:     c.Owner,
		Self:      c.Self,
		Oracle:    c.Oracle,
		Ticker:    c.Ticker,
		Price:     []uint64{p.QueryID, p.Ticker, p.USD, p.USD24Vol, uint64(p.USD24Change), p.BTC, p.LastUpdatedAt},
		HasPrice:  c.HasPrice,
		Scheduled: c.Scheduled,
		QueryID:   c.QueryID,
	})
}

// Load restores a client from EncodeState output.
func Load(enc []byte) (contract.Contract, error) {
	var data clientData
	if err := rlp.DecodeBytes(enc, &data); err != nil {
		return nil, err
	}
	if len(data.Price) != 7 {
		return nil, errors.New("malformed demo client price")
	}
	p := data.Price
	return &Client{
		Owner:  data.Owner,
		Self:   data.Self,
		Oracle: data.Oracle,
		Ticker: data.Ticker,
		LastPrice: contract.PriceResponse{
			QueryID:       p[0],
			Ticker:        p[1],
			USD:           p[2],
			USD24Vol:      p[3],
			USD24Change:   int64(p[4]),
			BTC:           p[5],
			LastUpdatedAt: p[6],
		},
		HasPrice:  data.HasPrice,
		Scheduled: data.Scheduled,
		QueryID:   data.QueryID,
	}, nil
}
