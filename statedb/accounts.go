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

package statedb

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/holiman/uint256"
)

var (
	accountPrefix = []byte("a") // accountPrefix + address -> rlp(accountEntry)
	nowKey        = []byte("NowSeconds")
)

// AccountRecord is the persisted form of a host account. Kind is empty for
// plain wallets; contract accounts carry their encoded state.
type AccountRecord struct {
	Kind    string
	Name    string
	Balance *uint256.Int
	State   []byte
}

// accountEntry is the on-disk layout; State is snappy compressed since it
// carries the attestation report.
type accountEntry struct {
	Kind    string
	Name    string
	Balance *uint256.Int
	State   []byte
}

func accountKey(addr common.Address) []byte {
	return append(common.CopyBytes(accountPrefix), addr.Bytes()...)
}

// Database stores host accounts in a KeyValueStore.
type Database struct {
	kv KeyValueStore
}

// New returns a database over kv.
func New(kv KeyValueStore) *Database {
	return &Database{kv: kv}
}

// WriteAccount stores rec under addr.
func (db *Database) WriteAccount(addr common.Address, rec *AccountRecord) error {
	entry := accountEntry{Kind: rec.Kind, Name: rec.Name, Balance: rec.Balance}
	if entry.Balance == nil {
		entry.Balance = new(uint256.Int)
	}
	if len(rec.State) > 0 {
		entry.State = snappy.Encode(nil, rec.State)
	}
	enc, err := rlp.EncodeToBytes(&entry)
	if err != nil {
		return err
	}
	return db.kv.Put(accountKey(addr), enc)
}

// ReadAccount loads the record of addr. It returns ErrNotFound if the
// account was never written.
func (db *Database) ReadAccount(addr common.Address) (*AccountRecord, error) {
	enc, err := db.kv.Get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	return decodeAccount(enc)
}

// Accounts calls fn for every stored account in address order.
func (db *Database) Accounts(fn func(addr common.Address, rec *AccountRecord) error) error {
	return db.kv.Iterate(accountPrefix, func(key, value []byte) error {
		if len(key) != len(accountPrefix)+common.AddressLength {
			return fmt.Errorf("malformed account key %x", key)
		}
		rec, err := decodeAccount(value)
		if err != nil {
			return fmt.Errorf("account %x: %w", key[len(accountPrefix):], err)
		}
		return fn(common.BytesToAddress(key[len(accountPrefix):]), rec)
	})
}

// ReadNow returns the stored host clock, zero if unset.
func (db *Database) ReadNow() (uint64, error) {
	enc, err := db.kv.Get(nowKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var now uint64
	if err := rlp.DecodeBytes(enc, &now); err != nil {
		return 0, err
	}
	return now, nil
}

// WriteNow stores the host clock.
func (db *Database) WriteNow(now uint64) error {
	enc, err := rlp.EncodeToBytes(now)
	if err != nil {
		return err
	}
	return db.kv.Put(nowKey, enc)
}

// Close closes the underlying store.
func (db *Database) Close() error {
	return db.kv.Close()
}

func decodeAccount(enc []byte) (*AccountRecord, error) {
	var entry accountEntry
	if err := rlp.DecodeBytes(enc, &entry); err != nil {
		return nil, err
	}
	rec := &AccountRecord{Kind: entry.Kind, Name: entry.Name, Balance: entry.Balance}
	if len(entry.State) > 0 {
		state, err := snappy.Decode(nil, entry.State)
		if err != nil {
			return nil, fmt.Errorf("corrupt state: %w", err)
		}
		rec.State = state
	}
	return rec, nil
}
