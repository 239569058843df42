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
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Message opcodes. These identify messages on the wire and in transaction
// logs and must stay stable.
const (
	OpDeploy   uint32 = 0x946a98b6
	OpDeployOk uint32 = 0xaff90f57

	OpUpdate            uint32 = 0x50520001
	OpPriceRequest      uint32 = 0x50520002
	OpPriceResponse     uint32 = 0x50520003
	OpScheduledResponse uint32 = 0x50520004

	OpUpdateCommit      uint32 = 0xbb15fe7d
	OpUpdateReveal      uint32 = 0x6b91a49a
	OpRoll              uint32 = 0x524e0001
	OpRock              uint32 = 0x524e0002
	OpRollAccepted      uint32 = 0x524e0003
	OpRandomnessRequest uint32 = 0x524e0004
	OpPayout            uint32 = 0x524e0005

	OpMoveTo             uint32 = 0x4d560001
	OpNewAddress         uint32 = 0x4d560002
	OpNewAddressResponse uint32 = 0x4d560003
	OpMoveConfirmation   uint32 = 0x4d560004
	OpMoveCompleted      uint32 = 0x4d560005

	OpWithdraw   uint32 = 0x41440001
	OpWithdrawal uint32 = 0x41440002
	OpDeployDemo uint32 = 0x41440003
	OpCallOracle uint32 = 0x41440004
	OpTopup      uint32 = 0x41440005
)

// Message is an inbound or outbound contract message.
type Message interface {
	Opcode() uint32
}

// Deploy acknowledges construction; the reply is DeployOk.
type Deploy struct{ QueryID uint64 }

type DeployOk struct{ QueryID uint64 }

// Update carries an enclave-signed price payload.
type Update struct {
	Signature []byte
	Payload   []byte
}

// UpdateCommit carries an enclave-signed randomness commitment.
type UpdateCommit struct {
	Signature []byte
	Payload   []byte
}

// UpdateReveal opens a prior commitment.
type UpdateReveal struct {
	Signature []byte
	Payload   []byte
}

// Roll opens a randomness round and stakes the attached value on the roll
// side.
type Roll struct{}

// Rock stakes the attached value on the rock side of an open round.
type Rock struct{}

type RollAccepted struct{ RoundID uint64 }

// RandomnessRequest is the external notification picked up by the enclave,
// either "random()" or "reveal()".
type RandomnessRequest struct{ Text string }

// Payout settles a stake at the end of a round.
type Payout struct{ RoundID uint64 }

type PriceRequest struct {
	QueryID uint64
	Ticker  uint64
}

type PriceResponse struct {
	QueryID       uint64
	Ticker        uint64
	USD           uint64
	USD24Vol      uint64
	USD24Change   int64
	BTC           uint64
	LastUpdatedAt uint64
}

// ScheduledResponse tells the requester that the stored price is too old and
// a fresh one has to be fetched before it can be served.
type ScheduledResponse struct {
	QueryID uint64
	Ticker  uint64
}

type NewAddressResponse struct{ Address common.Address }

// MoveTo records a successor address. With MoveCompleted set the successor is
// asked to confirm the handoff.
type MoveTo struct {
	NewAddress    common.Address
	MoveCompleted bool
}

type NewAddress struct{}

type MoveConfirmation struct{}

type MoveCompleted struct{}

// Withdraw drains the contract balance to the owner.
type Withdraw struct{}

type Withdrawal struct{}

// DeployDemo spawns a demo client bound to the oracle.
type DeployDemo struct{}

// CallOracle makes a demo client query its oracle.
type CallOracle struct{}

// Topup adds value to a contract without side effects.
type Topup struct{}

func (Deploy) Opcode() uint32             { return OpDeploy }
func (DeployOk) Opcode() uint32           { return OpDeployOk }
func (Update) Opcode() uint32             { return OpUpdate }
func (UpdateCommit) Opcode() uint32       { return OpUpdateCommit }
func (UpdateReveal) Opcode() uint32       { return OpUpdateReveal }
func (Roll) Opcode() uint32               { return OpRoll }
func (Rock) Opcode() uint32               { return OpRock }
func (RollAccepted) Opcode() uint32       { return OpRollAccepted }
func (RandomnessRequest) Opcode() uint32  { return OpRandomnessRequest }
func (Payout) Opcode() uint32             { return OpPayout }
func (PriceRequest) Opcode() uint32       { return OpPriceRequest }
func (PriceResponse) Opcode() uint32      { return OpPriceResponse }
func (ScheduledResponse) Opcode() uint32  { return OpScheduledResponse }
func (NewAddressResponse) Opcode() uint32 { return OpNewAddressResponse }
func (MoveTo) Opcode() uint32             { return OpMoveTo }
func (NewAddress) Opcode() uint32         { return OpNewAddress }
func (MoveConfirmation) Opcode() uint32   { return OpMoveConfirmation }
func (MoveCompleted) Opcode() uint32      { return OpMoveCompleted }
func (Withdraw) Opcode() uint32           { return OpWithdraw }
func (Withdrawal) Opcode() uint32         { return OpWithdrawal }
func (DeployDemo) Opcode() uint32         { return OpDeployDemo }
func (CallOracle) Opcode() uint32         { return OpCallOracle }
func (Topup) Opcode() uint32              { return OpTopup }

// Name returns a short human readable name of msg for logs.
func Name(msg Message) string {
	switch m := msg.(type) {
	case RandomnessRequest:
		return m.Text
	case nil:
		return "empty"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", msg), "contract.")
	}
}
