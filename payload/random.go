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

// RandomCommit binds a hidden value to a round. ValueHash is the hash of the
// RevealedValue that will later be disclosed.
type RandomCommit struct {
	Timestamp uint32
	Recipient common.Address
	ValueHash common.Hash
}

// Encode returns the canonical encoding.
func (c *RandomCommit) Encode() []byte {
	e := newEncoder(TagRandomCommit, 4+common.AddressLength+common.HashLength)
	e.uint32(c.Timestamp)
	e.address(c.Recipient)
	e.hash(c.ValueHash)
	return e.buf
}

// Hash returns the digest signed by the enclave.
func (c *RandomCommit) Hash() common.Hash {
	return crypto.Keccak256Hash(c.Encode())
}

// DecodeRandomCommit parses a canonical commit encoding.
func DecodeRandomCommit(data []byte) (*RandomCommit, error) {
	d := newDecoder(data, TagRandomCommit)
	c := &RandomCommit{
		Timestamp: d.uint32(),
		Recipient: d.address(),
		ValueHash: d.hash(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// RevealedValue is the committed preimage. The commit timestamp and the
// recipient are part of it, so a reveal only opens the commitment of the round
// and contract it was made for.
type RevealedValue struct {
	Timestamp uint32
	Recipient common.Address
	Nonce     uint64
	DoraID    uint64
	Name      string
}

// Encode returns the canonical encoding.
func (v *RevealedValue) Encode() []byte {
	e := newEncoder(TagRevealedValue, 4+common.AddressLength+16+4+len(v.Name))
	e.uint32(v.Timestamp)
	e.address(v.Recipient)
	e.uint64(v.Nonce)
	e.uint64(v.DoraID)
	e.string(v.Name)
	return e.buf
}

// Hash returns the commitment of the value.
func (v *RevealedValue) Hash() common.Hash {
	return crypto.Keccak256Hash(v.Encode())
}

// RandomReveal discloses the committed value. TxHash identifies the commit
// transaction observed by the enclave and is covered by the signature only.
type RandomReveal struct {
	DoraID          uint64
	Name            string
	RevealTimestamp uint32
	Nonce           uint64
	TxHash          common.Hash
}

// Encode returns the canonical encoding.
func (r *RandomReveal) Encode() []byte {
	e := newEncoder(TagRandomReveal, 8+4+len(r.Name)+4+8+common.HashLength)
	e.uint64(r.DoraID)
	e.string(r.Name)
	e.uint32(r.RevealTimestamp)
	e.uint64(r.Nonce)
	e.hash(r.TxHash)
	return e.buf
}

// Hash returns the digest signed by the enclave.
func (r *RandomReveal) Hash() common.Hash {
	return crypto.Keccak256Hash(r.Encode())
}

// Value rebuilds the committed preimage for a commitment made at commitTime
// for recipient.
func (r *RandomReveal) Value(commitTime uint32, recipient common.Address) *RevealedValue {
	return &RevealedValue{
		Timestamp: commitTime,
		Recipient: recipient,
		Nonce:     r.Nonce,
		DoraID:    r.DoraID,
		Name:      r.Name,
	}
}

// DecodeRandomReveal parses a canonical reveal encoding.
func DecodeRandomReveal(data []byte) (*RandomReveal, error) {
	d := newDecoder(data, TagRandomReveal)
	r := &RandomReveal{
		DoraID:          d.uint64(),
		Name:            d.string(),
		RevealTimestamp: d.uint32(),
		Nonce:           d.uint64(),
		TxHash:          d.hash(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}
