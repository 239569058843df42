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

package enclave

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrInvalidSeed = errors.New("invalid signing key seed")

// SignatureKey is the enclave-side signing key. Only the 32 byte seed is
// persisted.
type SignatureKey struct {
	priv ed25519.PrivateKey
}

// GenerateKey creates a new key from r, or crypto/rand when r is nil.
func GenerateKey(r io.Reader) (*SignatureKey, error) {
	if r == nil {
		r = rand.Reader
	}
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	return &SignatureKey{priv: priv}, nil
}

// KeyFromSeed restores a key from its 32 byte seed.
func KeyFromSeed(seed []byte) (*SignatureKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSeed, len(seed))
	}
	return &SignatureKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// KeyFromHex restores a key from a hex encoded seed, with or without 0x.
func KeyFromHex(s string) (*SignatureKey, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	seed, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return KeyFromSeed(seed)
}

// LoadKey reads a hex seed from file.
func LoadKey(file string) (*SignatureKey, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return KeyFromHex(string(data))
}

// SaveKey writes the hex seed to file with owner-only permissions.
func SaveKey(file string, key *SignatureKey) error {
	return os.WriteFile(file, []byte(key.Hex()+"\n"), 0600)
}

// PublicKey returns the verification key.
func (k *SignatureKey) PublicKey() [PublicKeySize]byte {
	var pub [PublicKeySize]byte
	copy(pub[:], k.priv.Public().(ed25519.PublicKey))
	return pub
}

// Sign signs a payload hash.
func (k *SignatureKey) Sign(hash common.Hash) []byte {
	return ed25519.Sign(k.priv, hash[:])
}

// Hex returns the seed as 0x-prefixed hex.
func (k *SignatureKey) Hex() string {
	return hexutil.Encode(k.priv.Seed())
}
