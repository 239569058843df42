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

package payload

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const priceUpdateSize = 6 * 8

// PriceUpdate is the enclave-signed price report for one ticker. USD values
// are in cents, USD24Change in hundredths of a percent and BTC in satoshi.
type PriceUpdate struct {
	LastUpdatedAt uint64
	Ticker        uint64
	USD           uint64
	USD24Vol      uint64
	USD24Change   int64
	BTC           uint64
}

// Encode returns the canonical encoding.
func (p *PriceUpdate) Encode() []byte {
	e := newEncoder(TagPriceUpdate, priceUpdateSize)
	e.uint64(p.LastUpdatedAt)
	e.uint64(p.Ticker)
	e.uint64(p.USD)
	e.uint64(p.USD24Vol)
	e.int64(p.USD24Change)
	e.uint64(p.BTC)
	return e.buf
}

// Hash returns the digest signed by the enclave.
func (p *PriceUpdate) Hash() common.Hash {
	return crypto.Keccak256Hash(p.Encode())
}

// DecodePriceUpdate parses a canonical price update encoding.
func DecodePriceUpdate(data []byte) (*PriceUpdate, error) {
	d := newDecoder(data, TagPriceUpdate)
	p := &PriceUpdate{
		LastUpdatedAt: d.uint64(),
		Ticker:        d.uint64(),
		USD:           d.uint64(),
		USD24Vol:      d.uint64(),
		USD24Change:   d.int64(),
		BTC:           d.uint64(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return p, nil
}
