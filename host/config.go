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

package host

import "errors"

// Config holds the sandbox host parameters.
type Config struct {
	// ComputeFee is charged to the receiving account for every delivered
	// message. It is taken out of the inbound value first.
	ComputeFee uint64 `toml:"compute_fee"`

	// MaxMessages bounds the number of deliveries caused by one external
	// message.
	MaxMessages int `toml:"max_messages"`

	// MailboxSize is the request queue length of the mailbox loop.
	MailboxSize int `toml:"mailbox_size"`
}

// DefaultConfig returns the default host configuration.
func DefaultConfig() Config {
	return Config{
		ComputeFee:  1_000_000,
		MaxMessages: 256,
		MailboxSize: 16,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxMessages <= 0 {
		return errors.New("max messages must be positive")
	}
	if c.MailboxSize < 0 {
		return errors.New("mailbox size must not be negative")
	}
	return nil
}
