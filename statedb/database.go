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

// Package statedb persists the sandbox host: one RLP record per account plus
// a handful of metadata keys, stored in goleveldb, pebble or memory.
package statedb

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Supported backends.
const (
	BackendLevelDB = "leveldb"
	BackendPebble  = "pebble"
	BackendMemory  = "memory"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownBackend = errors.New("unknown database backend")
)

// KeyValueStore is the minimal key/value interface the state layer needs.
type KeyValueStore interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error

	// Iterate calls fn for every key starting with prefix, in key order.
	Iterate(prefix []byte, fn func(key, value []byte) error) error

	Close() error
}

// Open opens a store of the given backend under dir.
func Open(backend, dir string) (KeyValueStore, error) {
	switch backend {
	case BackendLevelDB:
		return NewLevelDB(filepath.Join(dir, "leveldb"))
	case BackendPebble:
		return NewPebble(filepath.Join(dir, "pebble"))
	case BackendMemory:
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
