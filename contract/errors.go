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

package contract

import (
	"errors"
	"sort"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error namespace of all oracle contracts.
const Codespace = "oracle"

// CodeInternal is reported for failures that carry no registered code.
const CodeInternal uint32 = 1

// Kind groups errors by the check that raised them.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindSignature
	KindTemporal
	KindLookup
	KindProtocol
	KindHashMismatch
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "AuthorizationError"
	case KindSignature:
		return "SignatureError"
	case KindTemporal:
		return "TemporalError"
	case KindLookup:
		return "LookupError"
	case KindProtocol:
		return "ProtocolError"
	case KindHashMismatch:
		return "HashMismatch"
	case KindState:
		return "StateError"
	default:
		return "UnknownError"
	}
}

type registeredError struct {
	err  *errorsmod.Error
	kind Kind
}

var registry []registeredError

func register(code uint32, kind Kind, msg string) *errorsmod.Error {
	err := errorsmod.Register(Codespace, code, msg)
	registry = append(registry, registeredError{err: err, kind: kind})
	return err
}

// Codes are part of the external interface and must never be renumbered.
var (
	ErrAccessDenied     = register(132, KindAuthorization, "Access denied")
	ErrInvalidSignature = register(48401, KindSignature, "Invalid signature")
	ErrPriceFromFuture  = register(48402, KindTemporal, "Price from the future")
	ErrOutdatedPrice    = register(48403, KindTemporal, "Outdated price")
	ErrUnknownTicker    = register(48404, KindLookup, "Unknown ticker")
	ErrInvalidState     = register(48405, KindProtocol, "Invalid round state")
	ErrStakeTooLow      = register(48406, KindProtocol, "Stake too low")
	ErrInvalidRecipient = register(48407, KindProtocol, "Invalid recipient")
	ErrCommitWindow     = register(48408, KindTemporal, "Commit timestamp out of window")
	ErrRevealTooEarly   = register(48409, KindTemporal, "Reveal precedes commit")
	ErrHashMismatch     = register(48410, KindHashMismatch, "Reveal hash mismatch")
	ErrContractMoved    = register(48411, KindState, "Contract moved")
	ErrUnknownOpcode    = register(48412, KindProtocol, "Unknown opcode")
	ErrBalanceTooLow    = register(48413, KindState, "Insufficient balance")
	ErrMalformedPayload = register(48414, KindProtocol, "Malformed payload")
)

// ErrorTable maps every error message to its stable code.
func ErrorTable() map[string]uint32 {
	table := make(map[string]uint32, len(registry))
	for _, r := range registry {
		table[r.err.Error()] = r.err.ABCICode()
	}
	return table
}

// ErrorCodes returns the registered codes in ascending order.
func ErrorCodes() []uint32 {
	codes := make([]uint32, 0, len(registry))
	for _, r := range registry {
		codes = append(codes, r.err.ABCICode())
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func lookup(err error) *registeredError {
	for i := range registry {
		if errors.Is(err, registry[i].err) {
			return &registry[i]
		}
	}
	return nil
}

// CodeOf returns the stable code of err, 0 for nil and CodeInternal for
// errors raised outside the contract checks.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	if r := lookup(err); r != nil {
		return r.err.ABCICode()
	}
	return CodeInternal
}

// KindOf classifies err.
func KindOf(err error) Kind {
	if r := lookup(err); r != nil {
		return r.kind
	}
	return KindUnknown
}
