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

package host

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
)

// Bounced carries the refund of a failed message back to its sender. It is
// credited directly and never handed to a contract.
type Bounced struct {
	Original uint32 // opcode of the failed message
}

func (Bounced) Opcode() uint32 { return 0xffffffff }

// Transaction records the delivery of one message.
type Transaction struct {
	ID       uuid.UUID
	From     common.Address
	To       common.Address
	Value    *uint256.Int
	Fee      *uint256.Int
	Body     contract.Message
	Deployed bool // the destination was deployed by this message
	Err      error
	ExitCode uint32 // stable error code, zero on success
}

// Success reports whether the message was handled without error.
func (tx *Transaction) Success() bool { return tx.Err == nil }

// External is a notification emitted by a contract for off-chain listeners.
type External struct {
	From common.Address
	Body contract.Message
}

// Result is the outcome of an external message and everything it caused, in
// delivery order.
type Result struct {
	Transactions []*Transaction
	Externals    []External
}

// Find returns the first transaction delivering a message with the given
// opcode to addr, or nil.
func (r *Result) Find(to common.Address, opcode uint32) *Transaction {
	for _, tx := range r.Transactions {
		if tx.To == to && tx.Body.Opcode() == opcode {
			return tx
		}
	}
	return nil
}

// Failed returns the transactions that ended with an error.
func (r *Result) Failed() []*Transaction {
	var failed []*Transaction
	for _, tx := range r.Transactions {
		if tx.Err != nil {
			failed = append(failed, tx)
		}
	}
	return failed
}
