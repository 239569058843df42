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
	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	cacheHitMeter  = metrics.NewRegisteredMeter("statedb/cache/hit", nil)
	cacheMissMeter = metrics.NewRegisteredMeter("statedb/cache/miss", nil)
)

// maxCachedEntry bounds key plus value. fastcache silently skips larger
// entries, so they are evicted and served from the backing store instead.
const maxCachedEntry = 64*1024 - 16

// CachedStore is a write-through read cache in front of another store.
type CachedStore struct {
	KeyValueStore
	cache *fastcache.Cache
}

// NewCachedStore wraps db with a cache of at most size bytes.
func NewCachedStore(db KeyValueStore, size int) *CachedStore {
	return &CachedStore{KeyValueStore: db, cache: fastcache.New(size)}
}

func (c *CachedStore) Has(key []byte) (bool, error) {
	if c.cache.Has(key) {
		return true, nil
	}
	return c.KeyValueStore.Has(key)
}

func (c *CachedStore) Get(key []byte) ([]byte, error) {
	if v, ok := c.cache.HasGet(nil, key); ok {
		cacheHitMeter.Mark(1)
		return v, nil
	}
	cacheMissMeter.Mark(1)
	v, err := c.KeyValueStore.Get(key)
	if err != nil {
		return nil, err
	}
	c.store(key, v)
	return v, nil
}

func (c *CachedStore) Put(key, value []byte) error {
	if err := c.KeyValueStore.Put(key, value); err != nil {
		c.cache.Del(key)
		return err
	}
	c.store(key, value)
	return nil
}

func (c *CachedStore) store(key, value []byte) {
	if len(key)+len(value) >= maxCachedEntry {
		c.cache.Del(key)
		return
	}
	c.cache.Set(key, value)
}

// Stats returns the cache counters.
func (c *CachedStore) Stats() fastcache.Stats {
	var s fastcache.Stats
	c.cache.UpdateStats(&s)
	return s
}

func (c *CachedStore) Delete(key []byte) error {
	c.cache.Del(key)
	return c.KeyValueStore.Delete(key)
}

func (c *CachedStore) Close() error {
	c.cache.Reset()
	return c.KeyValueStore.Close()
}
