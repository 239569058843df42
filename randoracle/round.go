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

package randoracle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State is the phase of a round. The numeric values are exposed through the
// event state accessor and must not change.
type State uint8

const (
	StateInit       State = 0
	StateRock       State = 1
	StateRoll       State = 2
	StateWaitReveal State = 3
	StateCompleted  State = 15
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRock:
		return "rock"
	case StateRoll:
		return "roll"
	case StateWaitReveal:
		return "wait-reveal"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Side is one of the two outcomes a stake can be placed on.
type Side uint8

const (
	SideRock Side = iota + 1
	SideRoll
)

func (s Side) String() string {
	switch s {
	case SideRock:
		return "rock"
	case SideRoll:
		return "roll"
	default:
		return "none"
	}
}

// WinnerOf maps a revealed nonce to the winning side: even nonces go to rock,
// odd ones to roll.
func WinnerOf(nonce uint64) Side {
	if nonce%2 == 0 {
		return SideRock
	}
	return SideRoll
}

// Stake is a single deposit on one side of a round.
type Stake struct {
	Staker common.Address
	Side   Side
	Amount *uint256.Int
}

// Round is the single active round of an instance.
type Round struct {
	ID            uint64
	State         State
	Changed       State
	StakeOnRock   *uint256.Int
	StakeOnRoll   *uint256.Int
	Stakes        []Stake
	RequestedAt   uint64
	CommittedHash common.Hash

	CommitTimestamp uint32
	DoraID          uint64
	Nonce           uint64
}

func newRound() Round {
	return Round{
		StakeOnRock: new(uint256.Int),
		StakeOnRoll: new(uint256.Int),
	}
}

func (r *Round) copy() Round {
	cpy := *r
	cpy.StakeOnRock = r.StakeOnRock.Clone()
	cpy.StakeOnRoll = r.StakeOnRoll.Clone()
	cpy.Stakes = make([]Stake, len(r.Stakes))
	for i, s := range r.Stakes {
		cpy.Stakes[i] = Stake{Staker: s.Staker, Side: s.Side, Amount: s.Amount.Clone()}
	}
	return cpy
}

func (r *Round) addStake(staker common.Address, side Side, amount *uint256.Int) {
	switch side {
	case SideRock:
		r.StakeOnRock.Add(r.StakeOnRock, amount)
	case SideRoll:
		r.StakeOnRoll.Add(r.StakeOnRoll, amount)
	}
	r.Stakes = append(r.Stakes, Stake{Staker: staker, Side: side, Amount: amount.Clone()})
}

// pot is the sum of both sides.
func (r *Round) pot() *uint256.Int {
	return new(uint256.Int).Add(r.StakeOnRock, r.StakeOnRoll)
}

// transition moves the round to s and records it as the last change.
func (r *Round) transition(s State) {
	r.State = s
	r.Changed = s
}

// reset clears the round for the next roll. Changed keeps the last
// outcome-bearing transition and the revealed values stay readable.
func (r *Round) reset() {
	r.State = StateInit
	r.StakeOnRock = new(uint256.Int)
	r.StakeOnRoll = new(uint256.Int)
	r.Stakes = nil
	r.RequestedAt = 0
	r.CommittedHash = common.Hash{}
	r.CommitTimestamp = 0
}

// EventState is the public view of a round.
type EventState struct {
	State       State
	StakeOnRock *uint256.Int
	StakeOnRoll *uint256.Int
	Changed     State
}

// Outcome describes the last settled round.
type Outcome struct {
	RoundID uint64
	Winner  Side
	DoraID  uint64
	Name    string
	Nonce   uint64
	Pot     *uint256.Int
	Paid    *uint256.Int
}
