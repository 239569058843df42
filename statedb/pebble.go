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

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Pebble is a KeyValueStore backed by pebble. Writes are synced.
type Pebble struct {
	db *pebble.DB
}

// NewPebble opens or creates a pebble database at path.
func NewPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{MaxOpenFiles: 64})
	if err != nil {
		return nil, err
	}
	log.Info("Opened state database", "backend", BackendPebble, "path", path)
	return &Pebble{db: db}, nil
}

// NewMemoryPebble returns a pebble database on an in-memory filesystem.
func NewMemoryPebble() (*Pebble, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (p *Pebble) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// The value is only valid until the closer is closed.
	ret := common.CopyBytes(v)
	return ret, closer.Close()
}

func (p *Pebble) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *Pebble) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *Pebble) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			it.Close()
			return err
		}
	}
	if err := it.Error(); err != nil {
		it.Close()
		return err
	}
	return it.Close()
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

// upperBound returns the smallest key greater than every key with the given
// prefix, or nil if there is none.
func upperBound(prefix []byte) []byte {
	limit := common.CopyBytes(prefix)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}
