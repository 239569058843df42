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

// Package randoracle implements the commit-reveal randomness oracle. A round
// is opened by a roll, the enclave commits to a hidden value, and the reveal
// of that value decides which side of the round wins the pot.
//
//	Init -> Roll -> WaitReveal -> Rock -> Completed -> Init
package randoracle

import (
	"crypto/subtle"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"
	"github.com/teeoracle/bridge/contract"
	"github.com/teeoracle/bridge/enclave"
	"github.com/teeoracle/bridge/payload"
)

const (
	Kind    = "get-random-winner"
	Version = 0x01010000
)

// Notifications emitted for the enclave.
const (
	RequestRandom = "random()"
	RequestReveal = "reveal()"
)

var (
	roundsOpenedCounter  = metrics.NewRegisteredCounter("oracle/random/opened", nil)
	roundsSettledCounter = metrics.NewRegisteredCounter("oracle/random/settled", nil)
	mismatchCounter      = metrics.NewRegisteredCounter("oracle/random/mismatch", nil)
)

// Config holds the round parameters. Durations are in seconds.
type Config struct {
	// CommitWindow bounds the distance between the roll and the commit
	// timestamp.
	CommitWindow uint64 `toml:"commit_window"`

	// FutureTolerance bounds how far ahead of now a commit may be stamped.
	FutureTolerance uint64 `toml:"future_tolerance"`

	// MinStake is the smallest accepted stake after fees.
	MinStake uint64 `toml:"min_stake"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CommitWindow:    600,
		FutureTolerance: 300,
		MinStake:        10_000_000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.CommitWindow == 0 {
		return errors.New("commit window must be positive")
	}
	if c.MinStake == 0 {
		return errors.New("minimum stake must be positive")
	}
	return nil
}

// Oracle is the randomness oracle contract.
type Oracle struct {
	contract.Base

	config  Config
	round   Round
	last    Outcome
	hasLast bool
}

// New creates a randomness oracle owned by owner that trusts id.
func New(owner common.Address, previous *common.Address, id enclave.Identity, config Config) (*Oracle, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Oracle{
		Base:   contract.NewBase(Kind, owner, previous, id),
		config: config,
		round:  newRound(),
	}, nil
}

func (o *Oracle) Kind() string            { return Kind }
func (o *Oracle) Address() common.Address { return o.Self }
func (o *Oracle) Config() Config          { return o.config }
func (o *Oracle) Info() (string, uint64)  { return Kind, Version }

// Round returns a copy of the active round.
func (o *Oracle) Round() Round { return o.round.copy() }

// EventState returns the public view of the active round.
func (o *Oracle) EventState() EventState {
	return EventState{
		State:       o.round.State,
		StakeOnRock: o.round.StakeOnRock.Clone(),
		StakeOnRoll: o.round.StakeOnRoll.Clone(),
		Changed:     o.round.Changed,
	}
}

// LastOutcome returns the result of the last settled round.
func (o *Oracle) LastOutcome() (Outcome, bool) {
	return o.last, o.hasLast
}

// Copy implements contract.Contract.
func (o *Oracle) Copy() contract.Contract {
	cpy := &Oracle{
		Base:    o.Base.Copy(),
		config:  o.config,
		round:   o.round.copy(),
		last:    o.last,
		hasLast: o.hasLast,
	}
	if o.last.Pot != nil {
		cpy.last.Pot = o.last.Pot.Clone()
		cpy.last.Paid = o.last.Paid.Clone()
	}
	return cpy
}

// Handle implements contract.Contract.
func (o *Oracle) Handle(ctx *contract.Context, msg contract.Message) error {
	if err := o.Authorize(ctx, msg); err != nil {
		return err
	}
	if _, ok := msg.(contract.Withdraw); ok {
		return o.withdraw(ctx)
	}
	if ok, err := o.HandleCommon(ctx, msg); ok {
		return err
	}
	switch m := msg.(type) {
	case contract.Roll:
		return o.roll(ctx)
	case contract.Rock:
		return o.rock(ctx)
	case contract.UpdateCommit:
		return o.commit(ctx, m)
	case contract.UpdateReveal:
		return o.reveal(ctx, m)
	default:
		return errorsmod.Wrapf(contract.ErrUnknownOpcode, "%s (%#x)", contract.Name(msg), msg.Opcode())
	}
}

func (o *Oracle) requireState(want State) error {
	if o.round.State != want {
		return errorsmod.Wrapf(contract.ErrInvalidState, "round %d is %s, want %s", o.round.ID, o.round.State, want)
	}
	return nil
}

func (o *Oracle) stake(ctx *contract.Context) (*uint256.Int, error) {
	amount := ctx.Remaining()
	if amount.Lt(uint256.NewInt(o.config.MinStake)) {
		return nil, errorsmod.Wrapf(contract.ErrStakeTooLow, "stake %s, minimum %d", amount, o.config.MinStake)
	}
	return amount, nil
}

func (o *Oracle) roll(ctx *contract.Context) error {
	if o.Migration.Moved() {
		o.Redirect(ctx)
		return nil
	}
	if err := o.requireState(StateInit); err != nil {
		return err
	}
	amount, err := o.stake(ctx)
	if err != nil {
		return err
	}
	o.round.ID++
	o.round.RequestedAt = ctx.Now
	o.round.addStake(ctx.Sender, SideRoll, amount)
	o.round.transition(StateRoll)

	ctx.Reply(nil, contract.RollAccepted{RoundID: o.round.ID})
	ctx.Emit(contract.RandomnessRequest{Text: RequestRandom})

	roundsOpenedCounter.Inc(1)
	log.Info("Randomness round opened", "addr", o.Self, "round", o.round.ID, "roller", ctx.Sender, "stake", amount)
	return nil
}

func (o *Oracle) rock(ctx *contract.Context) error {
	if o.Migration.Moved() {
		o.Redirect(ctx)
		return nil
	}
	if err := o.requireState(StateRoll); err != nil {
		return err
	}
	amount, err := o.stake(ctx)
	if err != nil {
		return err
	}
	o.round.addStake(ctx.Sender, SideRock, amount)
	log.Debug("Stake on rock", "addr", o.Self, "round", o.round.ID, "staker", ctx.Sender, "stake", amount)
	return nil
}

// withdraw sends the owner everything except the stakes of the open round.
func (o *Oracle) withdraw(ctx *contract.Context) error {
	var (
		amount = ctx.Available()
		locked = o.round.pot()
	)
	if amount.Lt(locked) {
		amount.Clear()
	} else {
		amount.Sub(amount, locked)
	}
	ctx.Send(o.Owner, amount, contract.Withdrawal{})
	log.Info("Withdrawing balance", "addr", o.Self, "amount", amount, "locked", locked)
	return nil
}

func (o *Oracle) commit(ctx *contract.Context, msg contract.UpdateCommit) error {
	if err := o.RequireActive(); err != nil {
		return err
	}
	if err := o.requireState(StateRoll); err != nil {
		return err
	}
	if err := o.VerifySigned(crypto.Keccak256Hash(msg.Payload), msg.Signature); err != nil {
		return err
	}
	c, err := payload.DecodeRandomCommit(msg.Payload)
	if err != nil {
		return errorsmod.Wrap(contract.ErrMalformedPayload, err.Error())
	}
	if c.Recipient != o.Self {
		return errorsmod.Wrapf(contract.ErrInvalidRecipient, "commit for %s", c.Recipient)
	}
	ts := uint64(c.Timestamp)
	if distance(ts, o.round.RequestedAt) > o.config.CommitWindow {
		return errorsmod.Wrapf(contract.ErrCommitWindow, "commit at %d, requested at %d", ts, o.round.RequestedAt)
	}
	if ts > ctx.Now+o.config.FutureTolerance {
		return errorsmod.Wrapf(contract.ErrCommitWindow, "commit at %d, now %d", ts, ctx.Now)
	}
	o.round.CommittedHash = c.ValueHash
	o.round.CommitTimestamp = c.Timestamp
	o.round.transition(StateWaitReveal)
	ctx.Emit(contract.RandomnessRequest{Text: RequestReveal})

	log.Info("Randomness committed", "addr", o.Self, "round", o.round.ID, "hash", c.ValueHash)
	return nil
}

func (o *Oracle) reveal(ctx *contract.Context, msg contract.UpdateReveal) error {
	if err := o.RequireActive(); err != nil {
		return err
	}
	if err := o.requireState(StateWaitReveal); err != nil {
		return err
	}
	if err := o.VerifySigned(crypto.Keccak256Hash(msg.Payload), msg.Signature); err != nil {
		return err
	}
	r, err := payload.DecodeRandomReveal(msg.Payload)
	if err != nil {
		return errorsmod.Wrap(contract.ErrMalformedPayload, err.Error())
	}
	opened := r.Value(o.round.CommitTimestamp, o.Self).Hash()
	if subtle.ConstantTimeCompare(opened[:], o.round.CommittedHash[:]) != 1 {
		mismatchCounter.Inc(1)
		return errorsmod.Wrapf(contract.ErrHashMismatch, "round %d", o.round.ID)
	}
	if r.RevealTimestamp < o.round.CommitTimestamp {
		return errorsmod.Wrapf(contract.ErrRevealTooEarly, "reveal at %d, commit at %d", r.RevealTimestamp, o.round.CommitTimestamp)
	}
	o.round.DoraID = r.DoraID
	o.round.Nonce = r.Nonce
	o.round.transition(StateRock)

	o.settle(ctx, r)
	o.round.State = StateCompleted
	o.round.reset()
	return nil
}

// settle pays every stake on the winning side its share of the pot, rounded
// down. The remainder, or the whole pot if nobody backed the winner, stays
// with the contract. A pot the balance can no longer cover is shared out
// as far as the balance goes.
func (o *Oracle) settle(ctx *contract.Context, r *payload.RandomReveal) {
	var (
		winner  = WinnerOf(r.Nonce)
		pot     = o.round.pot()
		total   = o.round.StakeOnRoll
		paid    = new(uint256.Int)
		payable = pot
	)
	if winner == SideRock {
		total = o.round.StakeOnRock
	}
	if avail := ctx.Available(); avail.Lt(pot) {
		log.Warn("Pot exceeds balance", "addr", o.Self, "round", o.round.ID, "pot", pot, "balance", avail)
		payable = avail
	}
	if !total.IsZero() {
		for _, s := range o.round.Stakes {
			if s.Side != winner {
				continue
			}
			share, _ := new(uint256.Int).MulDivOverflow(s.Amount, payable, total)
			paid.Add(paid, share)
			ctx.Send(s.Staker, share, contract.Payout{RoundID: o.round.ID})
		}
	}
	o.last = Outcome{
		RoundID: o.round.ID,
		Winner:  winner,
		DoraID:  r.DoraID,
		Name:    r.Name,
		Nonce:   r.Nonce,
		Pot:     pot,
		Paid:    paid,
	}
	o.hasLast = true

	roundsSettledCounter.Inc(1)
	log.Info("Randomness round settled", "addr", o.Self, "round", o.round.ID, "winner", winner, "dora", r.DoraID, "name", r.Name, "pot", pot, "paid", paid)
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
