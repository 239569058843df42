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
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func testStores(t *testing.T) map[string]KeyValueStore {
	t.Helper()
	peb, err := NewMemoryPebble()
	if err != nil {
		t.Fatalf("failed to open pebble: %v", err)
	}
	ldb, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open leveldb: %v", err)
	}
	stores := map[string]KeyValueStore{
		"memory":  NewMemoryDB(),
		"leveldb": ldb,
		"pebble":  peb,
		"cached":  NewCachedStore(NewMemoryDB(), 32*1024*1024),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestKeyValueStores(t *testing.T) {
	for name, db := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if ok, err := db.Has([]byte("missing")); ok || err != nil {
				t.Fatalf("has missing key: %v %v", ok, err)
			}
			for i := 0; i < 5; i++ {
				if err := db.Put([]byte(fmt.Sprintf("p%d", i)), []byte{byte(i)}); err != nil {
					t.Fatalf("put failed: %v", err)
				}
			}
			db.Put([]byte("q0"), []byte("other"))

			v, err := db.Get([]byte("p3"))
			if err != nil || !bytes.Equal(v, []byte{3}) {
				t.Fatalf("get p3 = %x, %v", v, err)
			}
			if err := db.Delete([]byte("p3")); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if ok, _ := db.Has([]byte("p3")); ok {
				t.Fatal("deleted key still present")
			}

			var keys []string
			err = db.Iterate([]byte("p"), func(key, value []byte) error {
				keys = append(keys, string(key))
				return nil
			})
			if err != nil {
				t.Fatalf("iterate failed: %v", err)
			}
			if want := "[p0 p1 p2 p4]"; fmt.Sprint(keys) != want {
				t.Errorf("iterated %v, want %s", keys, want)
			}

			stop := errors.New("stop")
			if err := db.Iterate(nil, func(key, value []byte) error { return stop }); !errors.Is(err, stop) {
				t.Errorf("expected callback error, got %v", err)
			}
		})
	}
}

func TestCachedStoreLargeValues(t *testing.T) {
	backing := NewMemoryDB()
	db := NewCachedStore(backing, 32*1024*1024)
	defer db.Close()

	key := []byte("k")
	if err := db.Put(key, []byte("small")); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.Get(key); string(v) != "small" {
		t.Fatalf("get = %q, want small", v)
	}
	large := bytes.Repeat([]byte{0xab}, 70*1024)
	if err := db.Put(key, large); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		v, err := db.Get(key)
		if err != nil || !bytes.Equal(v, large) {
			t.Fatalf("read %d: got %d bytes, want %d (%v)", i, len(v), len(large), err)
		}
	}
	// Shrinking again puts the key back in the cache.
	if err := db.Put(key, []byte("again")); err != nil {
		t.Fatal(err)
	}
	backing.Put(key, []byte("behind the cache"))
	if v, _ := db.Get(key); string(v) != "again" {
		t.Errorf("get = %q, want cached value", v)
	}
}

func TestCachedStoreStats(t *testing.T) {
	db := NewCachedStore(NewMemoryDB(), 32*1024*1024)
	defer db.Close()

	db.Put([]byte("a"), []byte{1})
	db.Get([]byte("a"))
	db.Get([]byte("missing"))
	s := db.Stats()
	if s.GetCalls != 2 || s.Misses != 1 {
		t.Errorf("get calls %d misses %d, want 2 and 1", s.GetCalls, s.Misses)
	}
}

func TestUpperBound(t *testing.T) {
	tests := []struct {
		prefix, want []byte
	}{
		{[]byte{0x01}, []byte{0x02}},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff, 0xff}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := upperBound(tt.prefix); !bytes.Equal(got, tt.want) {
			t.Errorf("upperBound(%x) = %x, want %x", tt.prefix, got, tt.want)
		}
	}
}

func TestAccounts(t *testing.T) {
	db := New(NewMemoryDB())
	defer db.Close()

	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	state := bytes.Repeat([]byte("attestation "), 100)

	if _, err := db.ReadAccount(a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.WriteAccount(b, &AccountRecord{Name: "wallet", Balance: uint256.NewInt(7)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := db.WriteAccount(a, &AccountRecord{Kind: "get-simple-price", Balance: uint256.NewInt(1e9), State: state}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	rec, err := db.ReadAccount(a)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if rec.Kind != "get-simple-price" || rec.Balance.Uint64() != 1e9 || !bytes.Equal(rec.State, state) {
		t.Errorf("unexpected record %+v", rec)
	}

	var seen []common.Address
	err = db.Accounts(func(addr common.Address, rec *AccountRecord) error {
		seen = append(seen, addr)
		return nil
	})
	if err != nil || len(seen) != 2 || seen[0] != a || seen[1] != b {
		t.Errorf("accounts = %v, %v", seen, err)
	}

	if now, err := db.ReadNow(); now != 0 || err != nil {
		t.Errorf("unset now = %d, %v", now, err)
	}
	db.WriteNow(1_700_000_000)
	if now, _ := db.ReadNow(); now != 1_700_000_000 {
		t.Errorf("now = %d", now)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("bolt", t.TempDir()); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
