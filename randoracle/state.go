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

package randoracle

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
)

type oracleData struct {
	Base    contract.Base
	Config  Config
	Round   Round
	Last    Outcome
	HasLast bool
}

// EncodeState implements contract.Contract.
func (o *Oracle) EncodeState() ([]byte, error) {
	data := oracleData{
		Base:    o.Base,
		Config:  o.config,
		Round:   o.round,
		Last:    o.last,
		HasLast: o.hasLast,
	}
	if data.Last.Pot == nil {
		data.Last.Pot = new(uint256.Int)
		data.Last.Paid = new(uint256.Int)
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
		round:   data.Round,
		last:    data.Last,
		hasLast: data.HasLast,
	}
	if !o.hasLast {
		o.last = Outcome{}
	}
	return o, nil
}
