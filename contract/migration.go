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

package contract

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Migration links an instance to its predecessor and successor. Instances
// refer to each other by address only.
//
// A move is a two step handshake. MoveTo with MoveCompleted set sends
// MoveConfirmation to the successor, which must have been constructed with
// this instance as Previous. The successor answers with MoveCompleted, and
// only then does this instance stop serving: enclave-signed updates fail and
// requests are answered with NewAddressResponse.
type Migration struct {
	Previous    common.Address
	HasPrevious bool

	// NewAddress equals the instance address until a move is proposed.
	NewAddress    common.Address
	MoveCompleted bool

	// AwaitingCompletion is set while a binding move waits for the
	// successor's MoveCompleted.
	AwaitingCompletion bool
}

// NewMigration creates the migration state of an instance at self. previous
// is nil for the first instance of a chain.
func NewMigration(self common.Address, previous *common.Address) Migration {
	m := Migration{NewAddress: self}
	if previous != nil {
		m.Previous = *previous
		m.HasPrevious = true
	}
	return m
}

// Moved reports whether the handoff to the successor has finished.
func (m *Migration) Moved() bool {
	return m.MoveCompleted
}

// acceptsPeer reports whether msg may come from sender.
func (m *Migration) acceptsPeer(msg Message, sender common.Address) bool {
	switch msg.(type) {
	case MoveConfirmation:
		return m.HasPrevious && sender == m.Previous
	case MoveCompleted:
		return m.AwaitingCompletion && sender == m.NewAddress
	}
	return false
}

func (b *Base) moveTo(ctx *Context, msg MoveTo) error {
	if b.Migration.MoveCompleted {
		return errorsmod.Wrapf(ErrContractMoved, "already moved to %s", b.Migration.NewAddress)
	}
	if msg.MoveCompleted && msg.NewAddress == b.Self {
		return errorsmod.Wrap(ErrInvalidRecipient, "cannot move to self")
	}
	b.Migration.NewAddress = msg.NewAddress
	b.Migration.AwaitingCompletion = msg.MoveCompleted

	if msg.MoveCompleted {
		ctx.Send(msg.NewAddress, ctx.Remaining(), MoveConfirmation{})
		log.Info("Requested move confirmation", "addr", b.Self, "successor", msg.NewAddress)
	} else {
		log.Info("Proposed new address", "addr", b.Self, "successor", msg.NewAddress)
	}
	return nil
}

func (b *Base) confirmMove(ctx *Context) error {
	ctx.Reply(ctx.Remaining(), MoveCompleted{})
	log.Info("Confirmed move from predecessor", "addr", b.Self, "previous", b.Migration.Previous)
	return nil
}

func (b *Base) completeMove(ctx *Context) error {
	b.Migration.MoveCompleted = true
	b.Migration.AwaitingCompletion = false
	log.Warn("Contract moved", "addr", b.Self, "successor", b.Migration.NewAddress)
	return nil
}

// Redirect answers the current message with the successor address and
// returns the remaining inbound value.
func (b *Base) Redirect(ctx *Context) {
	ctx.Reply(ctx.Remaining(), NewAddressResponse{Address: b.Migration.NewAddress})
}

// RequireActive fails with ErrContractMoved once the instance has been
// handed off.
func (b *Base) RequireActive() error {
	if b.Migration.Moved() {
		return errorsmod.Wrapf(ErrContractMoved, "moved to %s", b.Migration.NewAddress)
	}
	return nil
}
