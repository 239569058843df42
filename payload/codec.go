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

// Package payload defines the canonical encodings of every enclave-signed
// payload. Each encoding starts with the protocol version and a type tag,
// followed by the fields in declaration order as fixed width big-endian
// integers. Variable length fields carry a 4 byte length prefix. The signed
// digest is the Keccak-256 hash of the encoding, so a payload has exactly one
// valid encoding and one digest.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Version is the encoding version prefixed to every payload.
const Version byte = 1

// MaxNameLength bounds variable length string fields.
const MaxNameLength = 1024

// Type tags.
const (
	TagPriceUpdate   byte = 0x01
	TagRandomCommit  byte = 0x02
	TagRevealedValue byte = 0x03
	TagRandomReveal  byte = 0x04
)

var (
	ErrShortPayload    = errors.New("payload too short")
	ErrTrailingBytes   = errors.New("trailing bytes after payload")
	ErrVersionMismatch = errors.New("unsupported payload version")
	ErrTagMismatch     = errors.New("unexpected payload type")
	ErrNameTooLong     = errors.New("name field too long")
)

type encoder struct {
	buf []byte
}

func newEncoder(tag byte, size int) *encoder {
	buf := make([]byte, 0, size+2)
	return &encoder{buf: append(buf, Version, tag)}
}

func (e *encoder) uint32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *encoder) uint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *encoder) int64(v int64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

func (e *encoder) address(a common.Address) {
	e.buf = append(e.buf, a[:]...)
}

func (e *encoder) hash(h common.Hash) {
	e.buf = append(e.buf, h[:]...)
}

func (e *encoder) string(s string) {
	e.uint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

type decoder struct {
	buf []byte
	err error
}

func newDecoder(data []byte, tag byte) *decoder {
	d := &decoder{buf: data}
	if len(data) < 2 {
		d.err = ErrShortPayload
		return d
	}
	if data[0] != Version {
		d.err = fmt.Errorf("%w: %d", ErrVersionMismatch, data[0])
		return d
	}
	if data[1] != tag {
		d.err = fmt.Errorf("%w: have %#x, want %#x", ErrTagMismatch, data[1], tag)
		return d
	}
	d.buf = data[2:]
	return d
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.err = ErrShortPayload
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) uint32() uint32 {
	if b := d.next(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) uint64() uint64 {
	if b := d.next(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) int64() int64 {
	return int64(d.uint64())
}

func (d *decoder) address() common.Address {
	return common.BytesToAddress(d.next(common.AddressLength))
}

func (d *decoder) hash() common.Hash {
	return common.BytesToHash(d.next(common.HashLength))
}

func (d *decoder) string() string {
	n := d.uint32()
	if d.err == nil && n > MaxNameLength {
		d.err = fmt.Errorf("%w: %d bytes", ErrNameTooLong, n)
	}
	return string(d.next(int(n)))
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, len(d.buf))
	}
	return nil
}
