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
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestToFixed(t *testing.T) {
	tests := []struct {
		in       string
		decimals int32
		want     int64
	}{
		{"3.45", USDDecimals, 345},
		{"0.005", USDDecimals, 1},
		{"-1.234", USDDecimals, -123},
		{"0.00001234", BTCDecimals, 1234},
		{"1e30", USDDecimals, math.MaxInt64},
	}
	for _, tt := range tests {
		if got := ToFixed(decimal.RequireFromString(tt.in), tt.decimals); got != tt.want {
			t.Errorf("ToFixed(%s, %d) = %d, want %d", tt.in, tt.decimals, got, tt.want)
		}
	}
	if got := FromFixed(345, USDDecimals).String(); got != "3.45" {
		t.Errorf("FromFixed = %s, want 3.45", got)
	}
}

func TestValidatePrice(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	valid := func() *PriceUpdate {
		return ConvertQuote(Quote{
			LastUpdatedAt: uint64(now.Unix()),
			USD:           decimal.RequireFromString("3.45"),
			USD24Vol:      decimal.RequireFromString("1000000"),
			USD24Change:   decimal.RequireFromString("-2.5"),
			BTC:           decimal.RequireFromString("0.00005"),
		}, 0x72716023)
	}
	if err := ValidatePrice(valid(), now); err != nil {
		t.Fatalf("valid price rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *PriceUpdate)
		want   error
	}{
		{"zero usd", func(p *PriceUpdate) { p.USD = 0 }, ErrOutOfRange},
		{"zero volume", func(p *PriceUpdate) { p.USD24Vol = 0 }, ErrOutOfRange},
		{"huge change", func(p *PriceUpdate) { p.USD24Change = MaxChange + 1 }, ErrOutOfRange},
		{"negative change", func(p *PriceUpdate) { p.USD24Change = -MaxChange - 1 }, ErrOutOfRange},
		{"zero btc", func(p *PriceUpdate) { p.BTC = 0 }, ErrOutOfRange},
		{"old quote", func(p *PriceUpdate) { p.LastUpdatedAt -= 31 * 60 }, ErrQuoteExpired},
		{"future quote", func(p *PriceUpdate) { p.LastUpdatedAt += 31 * 60 }, ErrQuoteExpired},
		{"no ticker", func(p *PriceUpdate) { p.Ticker = 0 }, ErrNoTicker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			if err := ValidatePrice(p, now); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
