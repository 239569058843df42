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

import "errors"

// Config holds the freshness policy of a price oracle. Durations are in
// seconds.
type Config struct {
	// FutureTolerance bounds how far ahead of now an update may be stamped.
	FutureTolerance uint64 `toml:"future_tolerance"`

	// StalenessWindow is the age from which requests are answered with a
	// ScheduledResponse instead of price data.
	StalenessWindow uint64 `toml:"staleness_window"`

	// RequestFee is the value kept for a served price request.
	RequestFee uint64 `toml:"request_fee"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FutureTolerance: 300,
		StalenessWindow: 30 * 24 * 60 * 60,
		RequestFee:      10_000_000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.StalenessWindow == 0 {
		return errors.New("staleness window must be positive")
	}
	if c.FutureTolerance >= c.StalenessWindow {
		return errors.New("future tolerance must be shorter than the staleness window")
	}
	return nil
}
