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

// Package priceoracle implements the enclave-fed price oracle contract.
package priceoracle

import (
	"maps"
	"slices"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
	"github.com/teeoracle/bridge/democlient"
	"github.com/teeoracle/bridge/enclave"
	"github.com/teeoracle/bridge/payload"
)

const (
	Kind    = "get-simple-price"
	Version = 0x01010000
)

var (
	updateMeter       = metrics.NewRegisteredMeter("oracle/price/updates", nil)
	rejectedMeter     = metrics.NewRegisteredMeter("oracle/price/rejected", nil)
	servedCounter     = metrics.NewRegisteredCounter("oracle/price/served", nil)
	scheduledCounter  = metrics.NewRegisteredCounter("oracle/price/scheduled", nil)
	redirectedCounter = metrics.NewRegisteredCounter("oracle/price/redirected", nil)
)

// Entry is the latest price of a ticker. It is replaced wholesale.
type Entry struct {
	Ticker        uint64
	USD           uint64
	USD24Vol      uint64
	USD24Change   int64
	BTC           uint64
	LastUpdatedAt uint64
}

// Oracle stores enclave-signed prices and serves them to other contracts.
type Oracle struct {
	contract.Base

	config  Config
	entries map[uint64]Entry
	demo    common.Address
}

// New creates a price oracle owned by owner that trusts id. previous links
// the instance to its predecessor in a migration chain.
func New(owner common.Address, previous *common.Address, id enclave.Identity, config Config) (*Oracle, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base := contract.NewBase(Kind, owner, previous, id)
	return &Oracle{
		Base:    base,
		config:  config,
		entries: make(map[uint64]Entry),
		demo:    base.Self,
	}, nil
}

func (o *Oracle) Kind() string            { return Kind }
func (o *Oracle) Address() common.Address { return o.Self }
func (o *Oracle) Config() Config          { return o.config }
func (o *Oracle) Info() (string, uint64)  { return Kind, Version }

// DemoAddress returns the spawned demo client, or the oracle itself if none
// was deployed.
func (o *Oracle) DemoAddress() common.Address { return o.demo }

// Entry returns the stored price of ticker.
func (o *Oracle) Entry(ticker uint64) (Entry, bool) {
	e, ok := o.entries[ticker]
	return e, ok
}

// Tickers returns the known tickers in ascending order.
func (o *Oracle) Tickers() []uint64 {
	return slices.Sorted(maps.Keys(o.entries))
}

// Copy implements contract.Contract.
func (o *Oracle) Copy() contract.Contract {
	return &Oracle{
		Base:    o.Base.Copy(),
		config:  o.config,
		entries: maps.Clone(o.entries),
		demo:    o.demo,
	}
}

// Handle implements contract.Contract.
func (o *Oracle) Handle(ctx *contract.Context, msg contract.Message) error {
	if err := o.Authorize(ctx, msg); err != nil {
		return err
	}
	if ok, err := o.HandleCommon(ctx, msg); ok {
		return err
	}
	switch m := msg.(type) {
	case contract.Update:
		err := o.update(ctx, m)
		if err != nil {
			rejectedMeter.Mark(1)
		}
		return err
	case contract.PriceRequest:
		return o.request(ctx, m)
	case contract.DeployDemo:
		return o.deployDemo(ctx)
	default:
		return errorsmod.Wrapf(contract.ErrUnknownOpcode, "%s (%#x)", contract.Name(msg), msg.Opcode())
	}
}

func (o *Oracle) update(ctx *contract.Context, msg contract.Update) error {
	if err := o.RequireActive(); err != nil {
		return err
	}
	// The signature covers the exact bytes; decoding rejects any non
	// canonical encoding afterwards.
	if err := o.VerifySigned(crypto.Keccak256Hash(msg.Payload), msg.Signature); err != nil {
		return err
	}
	p, err := payload.DecodePriceUpdate(msg.Payload)
	if err != nil {
		return errorsmod.Wrap(contract.ErrMalformedPayload, err.Error())
	}
	if p.LastUpdatedAt > ctx.Now+o.config.FutureTolerance {
		return errorsmod.Wrapf(contract.ErrPriceFromFuture, "updated at %d, now %d", p.LastUpdatedAt, ctx.Now)
	}
	if prev, ok := o.entries[p.Ticker]; ok && p.LastUpdatedAt <= prev.LastUpdatedAt {
		return errorsmod.Wrapf(contract.ErrOutdatedPrice, "updated at %d, stored %d", p.LastUpdatedAt, prev.LastUpdatedAt)
	}
	o.entries[p.Ticker] = Entry{
		Ticker:        p.Ticker,
		USD:           p.USD,
		USD24Vol:      p.USD24Vol,
		USD24Change:   p.USD24Change,
		BTC:           p.BTC,
		LastUpdatedAt: p.LastUpdatedAt,
	}
	updateMeter.Mark(1)
	log.Debug("Price updated", "addr", o.Self, "ticker", p.Ticker, "usd", p.USD, "updated", p.LastUpdatedAt)
	return nil
}

func (o *Oracle) request(ctx *contract.Context, msg contract.PriceRequest) error {
	if o.Migration.Moved() {
		redirectedCounter.Inc(1)
		o.Redirect(ctx)
		return nil
	}
	e, ok := o.entries[msg.Ticker]
	if !ok {
		return errorsmod.Wrapf(contract.ErrUnknownTicker, "ticker %#x", msg.Ticker)
	}
	var age uint64
	if ctx.Now > e.LastUpdatedAt {
		age = ctx.Now - e.LastUpdatedAt
	}
	remaining := ctx.Remaining()
	if age >= o.config.StalenessWindow {
		scheduledCounter.Inc(1)
		log.Debug("Scheduled stale price", "addr", o.Self, "ticker", msg.Ticker, "age", age)
		ctx.Reply(remaining, contract.ScheduledResponse{QueryID: msg.QueryID, Ticker: msg.Ticker})
		return nil
	}
	fee := uint256.NewInt(o.config.RequestFee)
	if remaining.Lt(fee) {
		remaining.Clear()
	} else {
		remaining.Sub(remaining, fee)
	}
	servedCounter.Inc(1)
	ctx.Reply(remaining, contract.PriceResponse{
		QueryID:       msg.QueryID,
		Ticker:        e.Ticker,
		USD:           e.USD,
		USD24Vol:      e.USD24Vol,
		USD24Change:   e.USD24Change,
		BTC:           e.BTC,
		LastUpdatedAt: e.LastUpdatedAt,
	})
	return nil
}

func (o *Oracle) deployDemo(ctx *contract.Context) error {
	if err := o.RequireActive(); err != nil {
		return err
	}
	client := democlient.New(ctx.Sender, o.Self, democlient.DefaultTicker)
	o.demo = ctx.Spawn(client, ctx.Remaining(), contract.Deploy{})
	log.Info("Deploying demo client", "addr", o.Self, "demo", o.demo)
	return nil
}
