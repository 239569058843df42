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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Fixed point precisions of the price fields.
const (
	USDDecimals = 2
	BTCDecimals = 8
)

// MaxChange is the largest accepted 24h change, 1000.00 percent.
const MaxChange = 1000 * 100

// MaxClockDrift bounds the distance between a quote and the local clock.
const MaxClockDrift = 30 * time.Minute

var (
	ErrOutOfRange   = errors.New("value out of valid range")
	ErrNoTicker     = errors.New("ticker is not specified")
	ErrQuoteExpired = errors.New("last update is not within the valid time range")
)

// Quote is a decimal price as reported by an upstream feed.
type Quote struct {
	LastUpdatedAt uint64
	USD           decimal.Decimal
	USD24Vol      decimal.Decimal
	USD24Change   decimal.Decimal
	BTC           decimal.Decimal
}

// ToFixed scales d to the given number of decimals, rounding half away from
// zero. The result saturates at math.MaxInt64.
func ToFixed(d decimal.Decimal, decimals int32) int64 {
	scaled := d.Shift(decimals).Round(0)
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64
	}
	if scaled.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return math.MinInt64
	}
	return scaled.IntPart()
}

// FromFixed is the inverse of ToFixed.
func FromFixed(v int64, decimals int32) decimal.Decimal {
	return decimal.New(v, -decimals)
}

// ConvertQuote converts a decimal quote into a price update for ticker.
func ConvertQuote(q Quote, ticker uint64) *PriceUpdate {
	return &PriceUpdate{
		LastUpdatedAt: q.LastUpdatedAt,
		Ticker:        ticker,
		USD:           uint64(max(ToFixed(q.USD, USDDecimals), 0)),
		USD24Vol:      uint64(max(ToFixed(q.USD24Vol, USDDecimals), 0)),
		USD24Change:   ToFixed(q.USD24Change, USDDecimals),
		BTC:           uint64(max(ToFixed(q.BTC, BTCDecimals), 0)),
	}
}

// ValidatePrice checks a converted price before it is signed.
func ValidatePrice(p *PriceUpdate, now time.Time) error {
	inRange := func(v uint64) bool { return v >= 1 && v < math.MaxInt64 }

	if !inRange(p.USD) {
		return fmt.Errorf("%w: usd %d", ErrOutOfRange, p.USD)
	}
	if !inRange(p.USD24Vol) {
		return fmt.Errorf("%w: usd24vol %d", ErrOutOfRange, p.USD24Vol)
	}
	if p.USD24Change < -MaxChange || p.USD24Change > MaxChange {
		return fmt.Errorf("%w: usd24change %d", ErrOutOfRange, p.USD24Change)
	}
	if !inRange(p.BTC) {
		return fmt.Errorf("%w: btc %d", ErrOutOfRange, p.BTC)
	}
	updated := time.Unix(int64(p.LastUpdatedAt), 0)
	if updated.Before(now.Add(-MaxClockDrift)) || updated.After(now.Add(MaxClockDrift)) {
		return ErrQuoteExpired
	}
	if p.Ticker == 0 {
		return ErrNoTicker
	}
	return nil
}
