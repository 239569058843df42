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

package priceoracle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/teeoracle/bridge/contract"
)

// entryData is the RLP form of Entry; rlp has no signed integers.
type entryData struct {
	Ticker        uint64
	USD           uint64
	USD24Vol      uint64
	USD24Change   uint64
	BTC           uint64
	LastUpdatedAt uint64
}

type oracleData struct {
	Base    contract.Base
	Config  Config
	Entries []entryData
	Demo    common.Address
}

// EncodeState implements contract.Contract. Entries are written in ticker
// order so equal states encode identically.
func (o *Oracle) EncodeState() ([]byte, error) {
	data := oracleData{
		Base:   o.Base,
		Config: o.config,
		Demo:   o.demo,
	}
	for _, ticker := range o.Tickers() {
		e := o.entries[ticker]
		data.Entries = append(data.Entries, entryData{
			Ticker:        e.Ticker,
			USD:           e.USD,
			USD24Vol:      e.USD24Vol,
			USD24Change:   uint64(e.USD24Change),
			BTC:           e.BTC,
			LastUpdatedAt: e.LastUpdatedAt,
		})
	}
	return rlp.EncodeToBytes(&data)
}

// Load restores an oracle from EncodeState output.
func Load(enc []byte) (contract.Contract, error) {
	var data oracleData
	if err := rlp.DecodeBytes(enc, &data); err != nil {
		return nil, err
	}
	o := &Oracle{
		Base:    data.Base,
		config:  data.Config,
		entries: make(map[uint64]Entry, len(data.Entries)),
		demo:    data.Demo,
	}
	for _, e := range data.Entries {
		o.entries[e.Ticker] = Entry{
			Ticker:        e.Ticker,
			USD:           e.USD,
			USD24Vol:      e.USD24Vol,
			USD24Change:   int64(e.USD24Change),
			BTC:           e.BTC,
			LastUpdatedAt: e.LastUpdatedAt,
		}
	}
	return o, nil
}
