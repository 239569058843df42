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
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
)

type reply struct {
	result *Result
	err    error
}

type request struct {
	env  envelope
	done chan reply
}

// Mailbox serialises external messages from concurrent callers through a
// single loop.
type Mailbox struct {
	host   *Host
	reqs   chan *request
	closed chan struct{}
}

// NewMailbox creates a mailbox in front of h. Run must be called exactly
// once to process it.
func NewMailbox(h *Host) *Mailbox {
	return &Mailbox{
		host:   h,
		reqs:   make(chan *request, h.config.MailboxSize),
		closed: make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled.
func (m *Mailbox) Run(ctx context.Context) error {
	defer close(m.closed)
	for {
		select {
		case req := <-m.reqs:
			res, err := m.host.submit(req.env)
			req.done <- reply{result: res, err: err}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send queues a message from the wallet at from and waits for its result.
func (m *Mailbox) Send(ctx context.Context, from, to common.Address, value *uint256.Int, body contract.Message) (*Result, error) {
	return m.submit(ctx, envelope{from: from, to: to, value: value, body: body})
}

// Deploy queues the deployment of init and waits for its result.
func (m *Mailbox) Deploy(ctx context.Context, from common.Address, init contract.Contract, value *uint256.Int, body contract.Message) (*Result, error) {
	return m.submit(ctx, envelope{from: from, to: init.Address(), value: value, body: body, init: init})
}

func (m *Mailbox) submit(ctx context.Context, env envelope) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := &request{env: env, done: make(chan reply, 1)}
	select {
	case m.reqs <- req:
	case <-m.closed:
		return nil, ErrMailboxClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.done:
		return r.result, r.err
	case <-m.closed:
		select {
		case r := <-req.done:
			return r.result, r.err
		default:
			return nil, ErrMailboxClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
