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
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Signed is implemented by every payload the enclave signs.
type Signed interface {
	Encode() []byte
	Hash() common.Hash
}

// Signer produces enclave signatures over payload digests.
type Signer interface {
	Sign(hash common.Hash) []byte
}

// Response is the envelope handed from the enclave to the relayer. Byte
// fields are base64 in JSON.
type Response struct {
	Signature []byte      `json:"signature"`
	Payload   []byte      `json:"payload"`
	Hash      common.Hash `json:"hash"`
}

// NewResponse signs p and wraps it for the relayer.
func NewResponse(p Signed, signer Signer) *Response {
	hash := p.Hash()
	return &Response{
		Signature: signer.Sign(hash),
		Payload:   p.Encode(),
		Hash:      hash,
	}
}

// Save writes the response as indented JSON.
func (r *Response) Save(file string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0600)
}

// Project is a candidate that a randomness round can select.
type Project struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

var ErrNoProjects = errors.New("empty project list")

// LoadProjects reads a JSON project list.
func LoadProjects(file string) ([]Project, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// NewCommitment picks a project and a nonce from r (crypto/rand when nil) and
// returns the hidden value together with the commit that binds it to
// recipient at time now.
func NewCommitment(now uint32, recipient common.Address, projects []Project, r io.Reader) (*RevealedValue, *RandomCommit, error) {
	if len(projects) == 0 {
		return nil, nil, ErrNoProjects
	}
	if r == nil {
		r = rand.Reader
	}
	index, err := rand.Int(r, big.NewInt(int64(len(projects))))
	if err != nil {
		return nil, nil, err
	}
	nonce, err := rand.Int(r, new(big.Int).SetUint64(math.MaxUint64))
	if err != nil {
		return nil, nil, err
	}
	project := projects[index.Int64()]
	value := &RevealedValue{
		Timestamp: now,
		Recipient: recipient,
		Nonce:     nonce.Uint64(),
		DoraID:    project.ID,
		Name:      project.Name,
	}
	commit := &RandomCommit{
		Timestamp: now,
		Recipient: recipient,
		ValueHash: value.Hash(),
	}
	return value, commit, nil
}

// RevealOf builds the reveal payload that opens value.
func RevealOf(value *RevealedValue, revealTime uint32, txHash common.Hash) *RandomReveal {
	return &RandomReveal{
		DoraID:          value.DoraID,
		Name:            value.Name,
		RevealTimestamp: revealTime,
		Nonce:           value.Nonce,
		TxHash:          txHash,
	}
}
