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

// Package enclave holds the identity of the trusted enclave and the signature
// primitives used to check data it produces.
package enclave

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PublicKeySize is the size of an enclave public key.
const PublicKeySize = ed25519.PublicKeySize

var (
	ErrInvalidPublicKey = errors.New("invalid enclave public key")
	ErrEmptyMeasurement = errors.New("empty enclave measurement")
)

// Identity describes the single enclave an oracle instance trusts. The
// attestation report is kept as an opaque blob; it is validated off-chain
// before an instance is constructed.
type Identity struct {
	PublicKey   [PublicKeySize]byte
	Measurement common.Hash
	Attestation []byte
}

// NewIdentity creates an identity from a raw public key.
func NewIdentity(publicKey []byte, measurement common.Hash, attestation []byte) (Identity, error) {
	if len(publicKey) != PublicKeySize {
		return Identity{}, fmt.Errorf("%w: %d bytes", ErrInvalidPublicKey, len(publicKey))
	}
	if measurement == (common.Hash{}) {
		return Identity{}, ErrEmptyMeasurement
	}
	id := Identity{
		Measurement: measurement,
		Attestation: common.CopyBytes(attestation),
	}
	copy(id.PublicKey[:], publicKey)
	return id, nil
}

// Copy returns a deep copy of the identity.
func (id Identity) Copy() Identity {
	id.Attestation = common.CopyBytes(id.Attestation)
	return id
}

// Verify checks sig over hash against the identity's public key.
func (id Identity) Verify(hash common.Hash, sig []byte) bool {
	return Verify(hash, sig, id.PublicKey)
}
