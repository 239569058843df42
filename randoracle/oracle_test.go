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

package randoracle

import (
	"bytes"
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
	"github.com/teeoracle/bridge/enclave"
	"github.com/teeoracle/bridge/payload"
)

const (
	t0    = 1_700_000_000
	fee   = 1000
	stake = 100_000_000
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b3")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000c4")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000d5")
	txHash   = common.HexToHash("0xbeef")
)

type fixture struct {
	oracle *Oracle
	key    *enclave.SignatureKey
	other  *enclave.SignatureKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, _ := enclave.KeyFromSeed(bytes.Repeat([]byte{1}, 32))
	other, _ := enclave.KeyFromSeed(bytes.Repeat([]byte{2}, 32))
	pub := key.PublicKey()
	id, err := enclave.NewIdentity(pub[:], crypto.Keccak256Hash([]byte("mrenclave")), nil)
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	o, err := New(owner, nil, id, DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create oracle: %v", err)
	}
	return &fixture{oracle: o, key: key, other: other}
}

func (f *fixture) ctx(sender common.Address, now uint64, value uint64) *contract.Context {
	return contract.NewContext(f.oracle.Self, sender, uint256.NewInt(value), uint256.NewInt(fee), uint256.NewInt(10_000_000_000), now)
}

func (f *fixture) apply(ctx *contract.Context, msg contract.Message) error {
	scratch := f.oracle.Copy().(*Oracle)
	if err := scratch.Handle(ctx, msg); err != nil {
		return err
	}
	f.oracle = scratch
	return nil
}

func (f *fixture) value(nonce uint64) *payload.RevealedValue {
	return &payload.RevealedValue{
		Timestamp: t0 + 5,
		Recipient: f.oracle.Self,
		Nonce:     nonce,
		DoraID:    42,
		Name:      "dora project",
	}
}

func commitMsg(key *enclave.SignatureKey, c *payload.RandomCommit) contract.UpdateCommit {
	return contract.UpdateCommit{Signature: key.Sign(c.Hash()), Payload: c.Encode()}
}

func revealMsg(key *enclave.SignatureKey, r *payload.RandomReveal) contract.UpdateReveal {
	return contract.UpdateReveal{Signature: key.Sign(r.Hash()), Payload: r.Encode()}
}

func commitFor(v *payload.RevealedValue) *payload.RandomCommit {
	return &payload.RandomCommit{Timestamp: v.Timestamp, Recipient: v.Recipient, ValueHash: v.Hash()}
}

// open rolls and commits to v.
func (f *fixture) open(t *testing.T, v *payload.RevealedValue) {
	t.Helper()
	if err := f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{}); err != nil {
		t.Fatalf("roll failed: %v", err)
	}
	if err := f.apply(f.ctx(owner, t0+5, 0), commitMsg(f.key, commitFor(v))); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	name, version := f.oracle.Info()
	if name != "get-random-winner" || version != 16842752 {
		t.Errorf("info = %q %d", name, version)
	}
}

func TestRoll(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(alice, t0, stake+fee)
	if err := f.apply(ctx, contract.Roll{}); err != nil {
		t.Fatalf("roll failed: %v", err)
	}
	es := f.oracle.EventState()
	if es.State != StateRoll || es.Changed != StateRoll || es.StakeOnRoll.Uint64() != stake || !es.StakeOnRock.IsZero() {
		t.Fatalf("unexpected event state %s", spew.Sdump(es))
	}
	out := ctx.Outbox()
	if len(out) != 2 {
		t.Fatalf("unexpected outbox %s", spew.Sdump(out))
	}
	if out[0].To != alice || out[0].Body != (contract.RollAccepted{RoundID: 1}) {
		t.Errorf("unexpected acknowledgement %+v", out[0])
	}
	if !out[1].External || out[1].Body != (contract.RandomnessRequest{Text: RequestRandom}) {
		t.Errorf("unexpected notification %+v", out[1])
	}

	// A second roll is a protocol error.
	err := f.apply(f.ctx(bob, t0, stake+fee), contract.Roll{})
	if !errors.Is(err, contract.ErrInvalidState) || contract.KindOf(err) != contract.KindProtocol {
		t.Errorf("expected protocol error, got %v", err)
	}
}

func TestRollStakeTooLow(t *testing.T) {
	f := newFixture(t)
	err := f.apply(f.ctx(alice, t0, fee), contract.Roll{})
	if !errors.Is(err, contract.ErrStakeTooLow) {
		t.Fatalf("expected stake too low, got %v", err)
	}
	if f.oracle.EventState().State != StateInit {
		t.Error("failed roll changed state")
	}
}

func TestRockOnlyInRoll(t *testing.T) {
	f := newFixture(t)
	if err := f.apply(f.ctx(bob, t0, stake+fee), contract.Rock{}); !errors.Is(err, contract.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{})
	if err := f.apply(f.ctx(bob, t0, 2*stake+fee), contract.Rock{}); err != nil {
		t.Fatalf("rock failed: %v", err)
	}
	if got := f.oracle.EventState().StakeOnRock.Uint64(); got != 2*stake {
		t.Errorf("stake on rock = %d, want %d", got, 2*stake)
	}
}

func TestCommitChecks(t *testing.T) {
	tests := []struct {
		name   string
		sender common.Address
		build  func(f *fixture) contract.UpdateCommit
		want   error
	}{
		{
			name:   "stranger",
			sender: bob,
			build:  func(f *fixture) contract.UpdateCommit { return commitMsg(f.key, commitFor(f.value(1))) },
			want:   contract.ErrAccessDenied,
		},
		{
			name:   "other key",
			sender: owner,
			build:  func(f *fixture) contract.UpdateCommit { return commitMsg(f.other, commitFor(f.value(1))) },
			want:   contract.ErrInvalidSignature,
		},
		{
			name:   "wrong recipient",
			sender: owner,
			build: func(f *fixture) contract.UpdateCommit {
				c := commitFor(f.value(1))
				c.Recipient = bob
				return commitMsg(f.key, c)
			},
			want: contract.ErrInvalidRecipient,
		},
		{
			name:   "long after request",
			sender: owner,
			build: func(f *fixture) contract.UpdateCommit {
				c := commitFor(f.value(1))
				c.Timestamp = t0 + 601
				return commitMsg(f.key, c)
			},
			want: contract.ErrCommitWindow,
		},
		{
			name:   "before request",
			sender: owner,
			build: func(f *fixture) contract.UpdateCommit {
				c := commitFor(f.value(1))
				c.Timestamp = t0 - 601
				return commitMsg(f.key, c)
			},
			want: contract.ErrCommitWindow,
		},
		{
			name:   "ahead of now",
			sender: owner,
			build: func(f *fixture) contract.UpdateCommit {
				c := commitFor(f.value(1))
				c.Timestamp = t0 + 400
				return commitMsg(f.key, c)
			},
			want: contract.ErrCommitWindow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{}); err != nil {
				t.Fatalf("roll failed: %v", err)
			}
			err := f.apply(f.ctx(tt.sender, t0+5, 0), tt.build(f))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if es := f.oracle.EventState(); es.State != StateRoll {
				t.Errorf("failed commit moved round to %v", es.State)
			}
		})
	}
}

func TestCommitOutOfOrder(t *testing.T) {
	f := newFixture(t)
	v := f.value(1)

	// Commit before any roll.
	if err := f.apply(f.ctx(owner, t0, 0), commitMsg(f.key, commitFor(v))); !errors.Is(err, contract.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	// Reveal before any commit.
	f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{})
	if err := f.apply(f.ctx(owner, t0+5, 0), revealMsg(f.key, payload.RevealOf(v, t0+6, txHash))); !errors.Is(err, contract.ErrInvalidState) {
		t.Fatalf("expected invalid state for early reveal, got %v", err)
	}
	// Commit twice in a row.
	if err := f.apply(f.ctx(owner, t0+5, 0), commitMsg(f.key, commitFor(v))); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := f.apply(f.ctx(owner, t0+5, 0), commitMsg(f.key, commitFor(v))); !errors.Is(err, contract.ErrInvalidState) {
		t.Fatalf("expected invalid state for second commit, got %v", err)
	}
	// Roll while waiting for the reveal.
	if err := f.apply(f.ctx(bob, t0+5, stake+fee), contract.Roll{}); !errors.Is(err, contract.ErrInvalidState) {
		t.Fatalf("expected invalid state for roll, got %v", err)
	}
}

func TestCommitEmitsRevealRequest(t *testing.T) {
	f := newFixture(t)
	f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{})
	ctx := f.ctx(owner, t0+5, 0)
	if err := f.apply(ctx, commitMsg(f.key, commitFor(f.value(3)))); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	out := ctx.Outbox()
	if len(out) != 1 || out[0].Body != (contract.RandomnessRequest{Text: RequestReveal}) {
		t.Errorf("unexpected outbox %s", spew.Sdump(out))
	}
	r := f.oracle.Round()
	if r.State != StateWaitReveal || r.CommittedHash != f.value(3).Hash() || r.CommitTimestamp != t0+5 {
		t.Errorf("unexpected round %s", spew.Sdump(r))
	}
}

func TestRevealSettlesRound(t *testing.T) {
	tests := []struct {
		name   string
		nonce  uint64
		winner Side
	}{
		{"even nonce", 10, SideRock},
		{"odd nonce", 11, SideRoll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			v := f.value(tt.nonce)
			if err := f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{}); err != nil {
				t.Fatalf("roll failed: %v", err)
			}
			if err := f.apply(f.ctx(bob, t0+1, stake+fee), contract.Rock{}); err != nil {
				t.Fatalf("rock failed: %v", err)
			}
			if err := f.apply(f.ctx(carol, t0+2, 3*stake+fee), contract.Rock{}); err != nil {
				t.Fatalf("rock failed: %v", err)
			}
			if err := f.apply(f.ctx(owner, t0+5, 0), commitMsg(f.key, commitFor(v))); err != nil {
				t.Fatalf("commit failed: %v", err)
			}
			ctx := f.ctx(owner, t0+10, 0)
			if err := f.apply(ctx, revealMsg(f.key, payload.RevealOf(v, t0+10, txHash))); err != nil {
				t.Fatalf("reveal failed: %v", err)
			}

			es := f.oracle.EventState()
			if es.State != StateInit || es.Changed != StateRock || !es.StakeOnRock.IsZero() || !es.StakeOnRoll.IsZero() {
				t.Errorf("unexpected event state %s", spew.Sdump(es))
			}
			last, ok := f.oracle.LastOutcome()
			if !ok || last.Winner != tt.winner || last.DoraID != 42 || last.Name != "dora project" {
				t.Fatalf("unexpected outcome %s", spew.Sdump(last))
			}

			pot := uint64(5 * stake)
			payouts := map[common.Address]uint64{}
			for _, out := range ctx.Outbox() {
				if _, ok := out.Body.(contract.Payout); ok {
					payouts[out.To] += out.Value.Uint64()
				}
			}
			switch tt.winner {
			case SideRock:
				// bob staked 1/4 and carol 3/4 of the rock side.
				if payouts[bob] != pot/4 || payouts[carol] != pot*3/4 || payouts[alice] != 0 {
					t.Errorf("unexpected payouts %v", payouts)
				}
			case SideRoll:
				if payouts[alice] != pot || len(payouts) != 1 {
					t.Errorf("unexpected payouts %v", payouts)
				}
			}
			if last.Pot.Uint64() != pot || last.Paid.Uint64() != pot {
				t.Errorf("pot %s paid %s, want %d", last.Pot, last.Paid, pot)
			}

			// The next round can start.
			if err := f.apply(f.ctx(alice, t0+20, stake+fee), contract.Roll{}); err != nil {
				t.Errorf("next roll failed: %v", err)
			}
			if f.oracle.Round().ID != 2 {
				t.Errorf("round id = %d, want 2", f.oracle.Round().ID)
			}
		})
	}
}

func TestRevealWithoutWinningStake(t *testing.T) {
	f := newFixture(t)
	v := f.value(4) // rock wins, nobody staked on rock
	f.open(t, v)
	ctx := f.ctx(owner, t0+10, 0)
	if err := f.apply(ctx, revealMsg(f.key, payload.RevealOf(v, t0+10, txHash))); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if len(ctx.Outbox()) != 0 {
		t.Errorf("expected no payouts, got %s", spew.Sdump(ctx.Outbox()))
	}
	last, _ := f.oracle.LastOutcome()
	if !last.Paid.IsZero() || last.Pot.Uint64() != stake {
		t.Errorf("unexpected outcome %s", spew.Sdump(last))
	}
}

func TestWithdrawKeepsStakes(t *testing.T) {
	f := newFixture(t)
	withdrawn := func(balance uint64) uint64 {
		t.Helper()
		ctx := contract.NewContext(f.oracle.Self, owner, new(uint256.Int), uint256.NewInt(fee), uint256.NewInt(balance), t0+3)
		if err := f.apply(ctx, contract.Withdraw{}); err != nil {
			t.Fatalf("withdraw failed: %v", err)
		}
		out := ctx.Outbox()
		if len(out) != 1 || out[0].To != owner {
			t.Fatalf("unexpected outbox %s", spew.Sdump(out))
		}
		return out[0].Value.Uint64()
	}
	if got := withdrawn(3 * stake); got != 3*stake {
		t.Fatalf("idle withdrawal = %d, want %d", got, 3*stake)
	}
	if err := f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{}); err != nil {
		t.Fatalf("roll failed: %v", err)
	}
	if err := f.apply(f.ctx(bob, t0+1, stake+fee), contract.Rock{}); err != nil {
		t.Fatalf("rock failed: %v", err)
	}
	if got := withdrawn(3 * stake); got != stake {
		t.Errorf("withdrawal during round = %d, want %d", got, stake)
	}
	if got := withdrawn(stake); got != 0 {
		t.Errorf("withdrawal below pot = %d, want 0", got)
	}
	if f.oracle.EventState().State != StateRoll {
		t.Errorf("round disturbed by withdrawal: %s", f.oracle.EventState().State)
	}
	ctx := f.ctx(stranger, t0+3, 0)
	if err := f.apply(ctx, contract.Withdraw{}); contract.CodeOf(err) != 132 {
		t.Errorf("expected access denied, got %v", err)
	}
}

func TestRevealWithShortBalance(t *testing.T) {
	f := newFixture(t)
	v := f.value(11) // roll wins
	f.open(t, v)

	ctx := contract.NewContext(f.oracle.Self, owner, new(uint256.Int), uint256.NewInt(fee), uint256.NewInt(stake/2), t0+10)
	if err := f.apply(ctx, revealMsg(f.key, payload.RevealOf(v, t0+10, txHash))); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	out := ctx.Outbox()
	if len(out) != 1 || out[0].To != alice || out[0].Value.Uint64() != stake/2 {
		t.Fatalf("unexpected payouts %s", spew.Sdump(out))
	}
	if f.oracle.EventState().State != StateInit {
		t.Errorf("round not reset: %s", f.oracle.EventState().State)
	}
	last, _ := f.oracle.LastOutcome()
	if last.Pot.Uint64() != stake || last.Paid.Uint64() != stake/2 {
		t.Errorf("unexpected outcome %s", spew.Sdump(last))
	}
}

func TestRevealMutations(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(r *payload.RandomReveal)
		resign bool
		want   error
	}{
		{"nonce unsigned", func(r *payload.RandomReveal) { r.Nonce++ }, false, contract.ErrInvalidSignature},
		{"dora unsigned", func(r *payload.RandomReveal) { r.DoraID++ }, false, contract.ErrInvalidSignature},
		{"name unsigned", func(r *payload.RandomReveal) { r.Name += "x" }, false, contract.ErrInvalidSignature},
		{"timestamp unsigned", func(r *payload.RandomReveal) { r.RevealTimestamp++ }, false, contract.ErrInvalidSignature},
		{"tx hash unsigned", func(r *payload.RandomReveal) { r.TxHash[0] ^= 1 }, false, contract.ErrInvalidSignature},
		{"nonce", func(r *payload.RandomReveal) { r.Nonce++ }, true, contract.ErrHashMismatch},
		{"dora", func(r *payload.RandomReveal) { r.DoraID++ }, true, contract.ErrHashMismatch},
		{"name", func(r *payload.RandomReveal) { r.Name = "Dora project" }, true, contract.ErrHashMismatch},
		{"reveal before commit", func(r *payload.RandomReveal) { r.RevealTimestamp = t0 }, true, contract.ErrRevealTooEarly},
	}
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			v := f.value(7)
			f.open(t, v)

			orig := payload.RevealOf(v, t0+10, txHash)
			msg := revealMsg(f.key, orig)
			mutated := *orig
			tt.mutate(&mutated)
			if tt.resign {
				msg = revealMsg(f.key, &mutated)
			} else {
				msg.Payload = mutated.Encode()
			}
			err := f.apply(f.ctx(owner, t0+10, 0), msg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			// The round stays open and the genuine reveal still succeeds.
			if f.oracle.EventState().State != StateWaitReveal {
				t.Fatalf("round left wait-reveal after failure")
			}
			if err := f.apply(f.ctx(owner, t0+10, 0), revealMsg(f.key, orig)); err != nil {
				t.Fatalf("genuine reveal failed: %v", err)
			}
		})
	}
	if kind := contract.KindOf(contract.ErrHashMismatch); kind != contract.KindHashMismatch {
		t.Errorf("unexpected kind %v", kind)
	}
}

func TestMovedRandomOracle(t *testing.T) {
	f := newFixture(t)
	successor := common.HexToAddress("0x00000000000000000000000000000000000000d5")
	f.apply(f.ctx(alice, t0, stake+fee), contract.Roll{})

	if err := f.apply(f.ctx(owner, t0, stake), contract.MoveTo{NewAddress: successor, MoveCompleted: true}); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if err := f.apply(f.ctx(successor, t0, stake), contract.MoveCompleted{}); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	v := f.value(1)
	if err := f.apply(f.ctx(owner, t0+5, 0), commitMsg(f.key, commitFor(v))); !errors.Is(err, contract.ErrContractMoved) {
		t.Errorf("expected moved error for commit, got %v", err)
	}
	if err := f.apply(f.ctx(owner, t0+5, 0), revealMsg(f.key, payload.RevealOf(v, t0+6, txHash))); !errors.Is(err, contract.ErrContractMoved) {
		t.Errorf("expected moved error for reveal, got %v", err)
	}
	ctx := f.ctx(bob, t0, stake+fee)
	if err := f.apply(ctx, contract.Rock{}); err != nil {
		t.Fatalf("rock failed: %v", err)
	}
	out := ctx.Outbox()
	if len(out) != 1 || out[0].Body != (contract.NewAddressResponse{Address: successor}) || out[0].Value.Uint64() != stake {
		t.Errorf("expected redirect with refund, got %s", spew.Sdump(out))
	}
}

func TestRandomStateRoundTrip(t *testing.T) {
	f := newFixture(t)
	v := f.value(8)
	f.open(t, v)

	enc, err := f.oracle.EncodeState()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	loaded, err := Load(enc)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	o := loaded.(*Oracle)
	r := o.Round()
	if r.State != StateWaitReveal || r.CommittedHash != v.Hash() || len(r.Stakes) != 1 || r.StakeOnRoll.Uint64() != stake {
		t.Fatalf("round not restored: %s", spew.Sdump(r))
	}
	// The restored oracle finishes the round.
	f.oracle = o
	if err := f.apply(f.ctx(owner, t0+10, 0), revealMsg(f.key, payload.RevealOf(v, t0+10, txHash))); err != nil {
		t.Fatalf("reveal on restored oracle failed: %v", err)
	}
}
