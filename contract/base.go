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
	"github.com/teeoracle/bridge/enclave"
)

// Base is embedded by every oracle contract. It holds the owner, the trusted
// enclave and the migration pointers, and implements the messages all
// oracles share.
type Base struct {
	Owner     common.Address
	Self      common.Address
	Identity  enclave.Identity
	Migration Migration
}

// NewBase creates the shared state of an oracle of the given kind. The
// address is derived from the init data, so redeploying with the same owner,
// predecessor and enclave yields the same address.
func NewBase(kind string, owner common.Address, previous *common.Address, id enclave.Identity) Base {
	var prev common.Address
	if previous != nil {
		prev = *previous
	}
	self := DeriveAddress(kind, owner, prev, id.PublicKey, id.Measurement)
	return Base{
		Owner:     owner,
		Self:      self,
		Identity:  id.Copy(),
		Migration: NewMigration(self, previous),
	}
}

// Copy returns a deep copy.
func (b *Base) Copy() Base {
	cpy := *b
	cpy.Identity = b.Identity.Copy()
	return cpy
}

func (b *Base) Measurement() common.Hash { return b.Identity.Measurement }
func (b *Base) PublicKey() [32]byte      { return b.Identity.PublicKey }

// Attestation returns a copy of the stored attestation report.
func (b *Base) Attestation() []byte { return common.CopyBytes(b.Identity.Attestation) }

// NewAddress returns the redirect target, the instance itself until a move
// is proposed.
func (b *Base) NewAddress() common.Address { return b.Migration.NewAddress }

// Authorize rejects msg if the sender is not allowed to send it. It runs
// before any payload is looked at.
func (b *Base) Authorize(ctx *Context, msg Message) error {
	switch class := ClassOf(msg); class {
	case ClassOwner, ClassEnclave:
		if ctx.Sender != b.Owner {
			return errorsmod.Wrapf(ErrAccessDenied, "%s is %s only, sender %s", Name(msg), class, ctx.Sender)
		}
	case ClassPeer:
		if !b.Migration.acceptsPeer(msg, ctx.Sender) {
			return errorsmod.Wrapf(ErrAccessDenied, "unexpected %s from %s", Name(msg), ctx.Sender)
		}
	case ClassUnknown:
		return errorsmod.Wrapf(ErrAccessDenied, "unclassified message %s (%#x)", Name(msg), msg.Opcode())
	}
	return nil
}

// VerifySigned checks an enclave signature over hash.
func (b *Base) VerifySigned(hash common.Hash, sig []byte) error {
	if !b.Identity.Verify(hash, sig) {
		return errorsmod.Wrapf(ErrInvalidSignature, "payload %x", hash)
	}
	return nil
}

// HandleCommon processes the messages shared by all oracles. The caller must
// have run Authorize. It reports whether msg was one of them.
func (b *Base) HandleCommon(ctx *Context, msg Message) (bool, error) {
	switch m := msg.(type) {
	case Deploy:
		ctx.Reply(ctx.Remaining(), DeployOk{QueryID: m.QueryID})
		return true, nil
	case Topup, DeployOk:
		return true, nil
	case Withdraw:
		amount := ctx.Available()
		ctx.Send(b.Owner, amount, Withdrawal{})
		log.Info("Withdrawing balance", "addr", b.Self, "amount", amount)
		return true, nil
	case NewAddress:
		ctx.Reply(ctx.Remaining(), NewAddressResponse{Address: b.Migration.NewAddress})
		return true, nil
	case MoveTo:
		return true, b.moveTo(ctx, m)
	case MoveConfirmation:
		return true, b.confirmMove(ctx)
	case MoveCompleted:
		return true, b.completeMove(ctx)
	}
	return false, nil
}
