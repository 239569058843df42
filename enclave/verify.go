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

	"github.com/ethereum/go-ethereum/common"
)

// SignatureSize is the only accepted signature length.
const SignatureSize = ed25519.SignatureSize

// Verify reports whether sig is a valid signature of hash by the holder of pub.
// Signatures of the wrong length are rejected without running the curve
// arithmetic.
func Verify(hash common.Hash, sig []byte, pub [PublicKeySize]byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), hash[:], sig)
}
