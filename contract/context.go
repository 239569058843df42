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

// Package contract contains the skeleton shared by the oracle contracts:
// the message set, access classes, the migration handshake and the
// execution context handed to every handler.
package contract

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Contract is a message driven state machine living at a single address.
// Handle either succeeds, leaving the mutated state and the queued outbox,
// or fails, in which case the host discards the instance it called and all
// queued messages.
type Contract interface {
	Kind() string
	Address() common.Address
	Handle(ctx *Context, msg Message) error

	// Copy returns an independent deep copy used as the scratch instance of
	// a single message.
	Copy() Contract

	// EncodeState serialises the full state for persistence.
	EncodeState() ([]byte, error)
}

// DeriveAddress computes the address of a contract from its kind and init
// data: keccak256(rlp([kind, init...]))[12:].
func DeriveAddress(kind string, init ...interface{}) common.Address {
	data, _ := rlp.EncodeToBytes(append([]interface{}{kind}, init...))
	hash := crypto.Keccak256Hash(data)

	var addr common.Address
	copy(addr[:], hash[12:])
	return addr
}

// Outbound is a message queued by a handler.
type Outbound struct {
	To       common.Address
	Value    *uint256.Int
	Body     Message
	External bool

	// Init, when set, is deployed at To before Body is delivered.
	Init Contract
}

// Context is the per-message execution environment. Now is supplied by the
// host; contracts never read the wall clock.
type Context struct {
	Self    common.Address
	Sender  common.Address
	Value   *uint256.Int
	Fee     *uint256.Int
	Now     uint64
	Balance *uint256.Int // after crediting Value and charging Fee

	outbox []Outbound
}

// NewContext creates a context. Nil amounts are treated as zero.
func NewContext(self, sender common.Address, value, fee, balance *uint256.Int, now uint64) *Context {
	zeroIfNil := func(v *uint256.Int) *uint256.Int {
		if v == nil {
			return new(uint256.Int)
		}
		return v.Clone()
	}
	return &Context{
		Self:    self,
		Sender:  sender,
		Value:   zeroIfNil(value),
		Fee:     zeroIfNil(fee),
		Balance: zeroIfNil(balance),
		Now:     now,
	}
}

// Remaining returns the inbound value left after the compute fee.
func (c *Context) Remaining() *uint256.Int {
	if c.Value.Lt(c.Fee) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(c.Value, c.Fee)
}

// Available returns the balance not yet committed to queued messages.
func (c *Context) Available() *uint256.Int {
	avail := c.Balance.Clone()
	for _, out := range c.outbox {
		if out.Value == nil {
			continue
		}
		if avail.Lt(out.Value) {
			return new(uint256.Int)
		}
		avail.Sub(avail, out.Value)
	}
	return avail
}

// Send queues body with value for to.
func (c *Context) Send(to common.Address, value *uint256.Int, body Message) {
	if value == nil {
		value = new(uint256.Int)
	}
	c.outbox = append(c.outbox, Outbound{To: to, Value: value.Clone(), Body: body})
}

// Reply queues body for the sender of the current message.
func (c *Context) Reply(value *uint256.Int, body Message) {
	c.Send(c.Sender, value, body)
}

// Emit queues an external notification without a destination.
func (c *Context) Emit(body Message) {
	c.outbox = append(c.outbox, Outbound{Value: new(uint256.Int), Body: body, External: true})
}

// Spawn queues the deployment of init followed by body and returns the
// address of the new contract.
func (c *Context) Spawn(init Contract, value *uint256.Int, body Message) common.Address {
	if value == nil {
		value = new(uint256.Int)
	}
	addr := init.Address()
	c.outbox = append(c.outbox, Outbound{To: addr, Value: value.Clone(), Body: body, Init: init})
	return addr
}

// Outbox returns the queued messages in program order.
func (c *Context) Outbox() []Outbound {
	return c.outbox
}
