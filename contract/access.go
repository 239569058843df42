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

// Class is the access class of an inbound message.
type Class uint8

const (
	ClassPublic Class = iota
	// ClassOwner messages must be sent by the owner.
	ClassOwner
	// ClassEnclave messages travel over the owner channel and additionally
	// carry an enclave signature.
	ClassEnclave
	// ClassPeer messages are exchanged between instances of a migration
	// chain.
	ClassPeer
	// ClassUnknown is never accepted.
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassOwner:
		return "owner"
	case ClassEnclave:
		return "enclave"
	case ClassPeer:
		return "peer"
	case ClassPublic:
		return "public"
	default:
		return "unknown"
	}
}

// ClassOf classifies msg.
func ClassOf(msg Message) Class {
	switch msg.(type) {
	case Withdraw, MoveTo, NewAddress, DeployDemo:
		return ClassOwner
	case Update, UpdateCommit, UpdateReveal:
		return ClassEnclave
	case MoveConfirmation, MoveCompleted:
		return ClassPeer
	case Deploy, DeployOk, Roll, Rock, RollAccepted, RandomnessRequest, Payout,
		PriceRequest, PriceResponse, ScheduledResponse, NewAddressResponse,
		Withdrawal, CallOracle, Topup:
		return ClassPublic
	default:
		return ClassUnknown
	}
}
