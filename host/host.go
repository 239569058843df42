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

// Package host is a deterministic in-process environment for the oracle
// contracts. It keeps balances, delivers messages in FIFO order and commits
// each message all-or-nothing. It does not model consensus.
package host

import (
	"errors"
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
	"github.com/teeoracle/bridge/statedb"
)

var (
	deliveredCounter = metrics.NewRegisteredCounter("host/messages/delivered", nil)
	failedCounter    = metrics.NewRegisteredCounter("host/messages/failed", nil)
	bouncedCounter   = metrics.NewRegisteredCounter("host/messages/bounced", nil)
	externalCounter  = metrics.NewRegisteredCounter("host/messages/external", nil)
)

// Loader restores a contract from its encoded state.
type Loader func(enc []byte) (contract.Contract, error)

type account struct {
	name     string // wallet name, empty for contracts
	balance  *uint256.Int
	contract contract.Contract
}

type envelope struct {
	from, to common.Address
	value    *uint256.Int
	body     contract.Message
	init     contract.Contract
}

// Host holds every account and processes one external message, with all the
// messages it causes, at a time.
type Host struct {
	mu       sync.RWMutex
	config   Config
	now      uint64
	accounts map[common.Address]*account
	loaders  map[string]Loader
	dirty    map[common.Address]struct{}
	db       *statedb.Database
}

// New creates an empty host.
func New(config Config) (*Host, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Host{
		config:   config,
		accounts: make(map[common.Address]*account),
		loaders:  make(map[string]Loader),
		dirty:    make(map[common.Address]struct{}),
	}, nil
}

// RegisterKind makes contracts of the given kind loadable from disk.
func (h *Host) RegisterKind(kind string, load Loader) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaders[kind] = load
}

// Attach makes db the backing store of the host. Stored contracts must have
// a registered kind. Accounts created before attaching are written out, and
// from then on accounts are read from db on demand and only held in memory
// while a message is processed.
func (h *Host) Attach(db *statedb.Database) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now, err := db.ReadNow()
	if err != nil {
		return err
	}
	stored := 0
	err = db.Accounts(func(addr common.Address, rec *statedb.AccountRecord) error {
		if rec.Kind != "" {
			if _, ok := h.loaders[rec.Kind]; !ok {
				return fmt.Errorf("%w: %q at %s", ErrUnknownKind, rec.Kind, addr)
			}
		}
		stored++
		return nil
	})
	if err != nil {
		return err
	}
	if now > h.now {
		h.now = now
	}
	h.db = db
	log.Info("Attached host state", "accounts", stored, "now", h.now)

	if err := db.WriteNow(h.now); err != nil {
		return err
	}
	for addr := range h.accounts {
		h.touch(addr)
	}
	return h.persist()
}

// lookup returns the account at addr, or nil if it does not exist.
func (h *Host) lookup(addr common.Address) (*account, error) {
	if acc, ok := h.accounts[addr]; ok {
		return acc, nil
	}
	if h.db == nil {
		return nil, nil
	}
	rec, err := h.db.ReadAccount(addr)
	if errors.Is(err, statedb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc := &account{name: rec.Name, balance: rec.Balance}
	if acc.balance == nil {
		acc.balance = new(uint256.Int)
	}
	if rec.Kind != "" {
		load, ok := h.loaders[rec.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q at %s", ErrUnknownKind, rec.Kind, addr)
		}
		if acc.contract, err = load(rec.State); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", addr, err)
		}
	}
	return acc, nil
}

// load is lookup for writers. The account stays in memory until the next
// persist.
func (h *Host) load(addr common.Address) (*account, error) {
	acc, err := h.lookup(addr)
	if acc != nil {
		h.accounts[addr] = acc
	}
	return acc, err
}

// SetNow sets the clock stamped into every message context.
func (h *Host) SetNow(now uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = now
	if h.db != nil {
		return h.db.WriteNow(now)
	}
	return nil
}

// Now returns the host clock.
func (h *Host) Now() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.now
}

// WalletAddress returns the address of the named wallet.
func WalletAddress(name string) common.Address {
	return contract.DeriveAddress("wallet", name)
}

// Fund credits amount to the named wallet, creating it if needed.
func (h *Host) Fund(name string, amount *uint256.Int) (common.Address, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	addr := WalletAddress(name)
	acc, err := h.load(addr)
	if err != nil {
		return common.Address{}, err
	}
	if acc == nil {
		acc = &account{name: name, balance: new(uint256.Int)}
		h.accounts[addr] = acc
	}
	if acc.contract != nil {
		return common.Address{}, fmt.Errorf("wallet %q collides with contract %s", name, addr)
	}
	if amount != nil {
		acc.balance.Add(acc.balance, amount)
	}
	h.touch(addr)
	return addr, h.persist()
}

// Balance returns the balance of addr, zero for unknown accounts.
func (h *Host) Balance(addr common.Address) *uint256.Int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	acc, err := h.lookup(addr)
	if err != nil {
		log.Error("Failed to read account", "addr", addr, "err", err)
	}
	if acc == nil {
		return new(uint256.Int)
	}
	return acc.balance.Clone()
}

// Contract returns a copy of the contract deployed at addr.
func (h *Host) Contract(addr common.Address) (contract.Contract, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	acc, err := h.lookup(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, addr)
	}
	if acc.contract == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotContract, addr)
	}
	return acc.contract.Copy(), nil
}

// Send delivers body with value from the wallet at from to to, followed by
// every message it causes.
func (h *Host) Send(from, to common.Address, value *uint256.Int, body contract.Message) (*Result, error) {
	return h.submit(envelope{from: from, to: to, value: value, body: body})
}

// Deploy installs init at its derived address and delivers body to it.
func (h *Host) Deploy(from common.Address, init contract.Contract, value *uint256.Int, body contract.Message) (*Result, error) {
	return h.submit(envelope{from: from, to: init.Address(), value: value, body: body, init: init})
}

func (h *Host) submit(env envelope) (*Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if env.value == nil {
		env.value = new(uint256.Int)
	}
	sender, err := h.load(env.from)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, env.from)
	}
	if sender.contract != nil {
		return nil, fmt.Errorf("external message from contract %s", env.from)
	}
	if sender.balance.Lt(env.value) {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrInsufficientFunds, sender.balance, env.value)
	}
	sender.balance.Sub(sender.balance, env.value)
	h.touch(env.from)

	var (
		result = new(Result)
		queue  = []envelope{env}
	)
	for len(queue) > 0 {
		if len(result.Transactions) >= h.config.MaxMessages {
			log.Warn("Dropping undelivered messages", "count", len(queue), "limit", h.config.MaxMessages)
			err = ErrCascadeLimit
			break
		}
		next, derr := h.deliver(queue[0], result)
		if derr != nil {
			err = derr
			break
		}
		queue = append(queue[1:], next...)
	}
	if perr := h.persist(); perr != nil && err == nil {
		err = perr
	}
	return result, err
}

// deliver runs one message against a copy of its destination and returns
// the messages to deliver next.
func (h *Host) deliver(env envelope, result *Result) ([]envelope, error) {
	tx := &Transaction{
		ID:    uuid.New(),
		From:  env.from,
		To:    env.to,
		Value: env.value.Clone(),
		Fee:   new(uint256.Int),
		Body:  env.body,
	}
	result.Transactions = append(result.Transactions, tx)
	deliveredCounter.Inc(1)

	acc, err := h.load(env.to)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &account{balance: new(uint256.Int)}
		h.accounts[env.to] = acc
	}
	h.touch(env.to)
	if acc.contract == nil && env.init != nil {
		acc.contract = env.init.Copy()
		tx.Deployed = true
		log.Debug("Deployed contract", "kind", acc.contract.Kind(), "addr", env.to)
	}
	if _, bounce := env.body.(Bounced); bounce || acc.contract == nil {
		acc.balance.Add(acc.balance, env.value)
		return nil, nil
	}

	fee := uint256.NewInt(h.config.ComputeFee)
	balance := new(uint256.Int).Add(acc.balance, env.value)
	if balance.Lt(fee) {
		fee = balance.Clone()
	}
	balance.Sub(balance, fee)
	tx.Fee = fee

	ctx := contract.NewContext(env.to, env.from, env.value, fee, balance, h.now)
	scratch := acc.contract.Copy()
	err = scratch.Handle(ctx, env.body)
	if err == nil {
		err = checkOutbox(ctx, balance)
	}
	if err != nil {
		tx.Err = err
		tx.ExitCode = contract.CodeOf(err)
		failedCounter.Inc(1)
		log.Debug("Message failed", "to", env.to, "msg", contract.Name(env.body), "code", tx.ExitCode, "err", err)

		refund := ctx.Remaining()
		acc.balance = balance.Sub(balance, refund)
		if refund.IsZero() {
			return nil, nil
		}
		bouncedCounter.Inc(1)
		return []envelope{{from: env.to, to: env.from, value: refund, body: Bounced{Original: env.body.Opcode()}}}, nil
	}

	acc.contract = scratch
	var next []envelope
	for _, out := range ctx.Outbox() {
		if out.External {
			externalCounter.Inc(1)
			result.Externals = append(result.Externals, External{From: env.to, Body: out.Body})
			continue
		}
		balance.Sub(balance, out.Value)
		next = append(next, envelope{from: env.to, to: out.To, value: out.Value, body: out.Body, init: out.Init})
	}
	acc.balance = balance
	return next, nil
}

// checkOutbox fails if the queued messages carry more than balance.
func checkOutbox(ctx *contract.Context, balance *uint256.Int) error {
	total := new(uint256.Int)
	for _, out := range ctx.Outbox() {
		if out.External {
			continue
		}
		if _, overflow := total.AddOverflow(total, out.Value); overflow {
			return errorsmod.Wrap(contract.ErrBalanceTooLow, "outbound value overflows")
		}
	}
	if balance.Lt(total) {
		return errorsmod.Wrapf(contract.ErrBalanceTooLow, "sending %s, balance %s", total, balance)
	}
	return nil
}

func (h *Host) touch(addr common.Address) {
	h.dirty[addr] = struct{}{}
}

// persist writes the accounts changed since the last call and drops the
// in-memory copies once the database holds them.
func (h *Host) persist() error {
	if h.db == nil {
		clear(h.dirty)
		return nil
	}
	for addr := range h.dirty {
		acc, ok := h.accounts[addr]
		if !ok {
			delete(h.dirty, addr)
			continue
		}
		rec := &statedb.AccountRecord{Name: acc.name, Balance: acc.balance}
		if acc.contract != nil {
			state, err := acc.contract.EncodeState()
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", addr, err)
			}
			rec.Kind = acc.contract.Kind()
			rec.State = state
		}
		if err := h.db.WriteAccount(addr, rec); err != nil {
			return err
		}
		delete(h.dirty, addr)
	}
	clear(h.accounts)
	return nil
}
