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

// Package oracleapi exposes the oracle contracts of a host over JSON-RPC in
// the "oracle" namespace.
package oracleapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/teeoracle/bridge/contract"
	"github.com/teeoracle/bridge/host"
	"github.com/teeoracle/bridge/payload"
	"github.com/teeoracle/bridge/priceoracle"
	"github.com/teeoracle/bridge/randoracle"
)

// Namespace is the RPC namespace of the API.
const Namespace = "oracle"

var (
	errNotOracle      = errors.New("not an oracle contract")
	errNotPriceOracle = errors.New("not a price oracle")
	errNotRandOracle  = errors.New("not a randomness oracle")
	errUnknownTicker  = errors.New("unknown ticker")
	errHashMismatch   = errors.New("response hash does not match payload")
	errInvalidValue   = errors.New("invalid message value")
)

// Backend is the read side of the host.
type Backend interface {
	Contract(addr common.Address) (contract.Contract, error)
	Balance(addr common.Address) *uint256.Int
}

// Sender delivers messages from a wallet, usually a host.Mailbox.
type Sender interface {
	Send(ctx context.Context, from, to common.Address, value *uint256.Int, body contract.Message) (*host.Result, error)
}

// oracle is implemented by both oracle kinds through contract.Base.
type oracle interface {
	Measurement() common.Hash
	PublicKey() [32]byte
	Attestation() []byte
	NewAddress() common.Address
	Info() (string, uint64)
}

// API is the "oracle" RPC service.
type API struct {
	backend Backend
	sender  Sender
	relayer common.Address
}

// NewAPI creates the service. Every write is sent from the relayer wallet,
// which must own the target oracle for updates and owner operations.
func NewAPI(backend Backend, sender Sender, relayer common.Address) *API {
	return &API{backend: backend, sender: sender, relayer: relayer}
}

// APIs returns the RPC descriptors of the service.
func APIs(api *API) []rpc.API {
	return []rpc.API{{Namespace: Namespace, Service: api}}
}

func (api *API) oracle(addr common.Address) (oracle, error) {
	c, err := api.backend.Contract(addr)
	if err != nil {
		return nil, err
	}
	o, ok := c.(oracle)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", errNotOracle, addr, c.Kind())
	}
	return o, nil
}

// EnclaveMeasurement returns the measurement of the trusted enclave.
func (api *API) EnclaveMeasurement(addr common.Address) (common.Hash, error) {
	o, err := api.oracle(addr)
	if err != nil {
		return common.Hash{}, err
	}
	return o.Measurement(), nil
}

// EnclaveAttestation returns the stored attestation report.
func (api *API) EnclaveAttestation(addr common.Address) (hexutil.Bytes, error) {
	o, err := api.oracle(addr)
	if err != nil {
		return nil, err
	}
	return o.Attestation(), nil
}

// EnclavePublicKey returns the registered enclave key.
func (api *API) EnclavePublicKey(addr common.Address) (hexutil.Bytes, error) {
	o, err := api.oracle(addr)
	if err != nil {
		return nil, err
	}
	pub := o.PublicKey()
	return pub[:], nil
}

// NewAddress returns the redirect address, the oracle itself until a move
// is proposed.
func (api *API) NewAddress(addr common.Address) (common.Address, error) {
	o, err := api.oracle(addr)
	if err != nil {
		return common.Address{}, err
	}
	return o.NewAddress(), nil
}

// Balance returns the balance of any account.
func (api *API) Balance(addr common.Address) *hexutil.Big {
	return (*hexutil.Big)(api.backend.Balance(addr).ToBig())
}

// InfoResult is the name and version of a contract.
type InfoResult struct {
	Name    string         `json:"name"`
	Version hexutil.Uint64 `json:"version"`
}

// Info returns the name and version of an oracle.
func (api *API) Info(addr common.Address) (*InfoResult, error) {
	o, err := api.oracle(addr)
	if err != nil {
		return nil, err
	}
	name, version := o.Info()
	return &InfoResult{Name: name, Version: hexutil.Uint64(version)}, nil
}

// ErrorTable returns the stable error codes by message.
func (api *API) ErrorTable() map[string]uint32 {
	return contract.ErrorTable()
}

func (api *API) priceOracle(addr common.Address) (*priceoracle.Oracle, error) {
	c, err := api.backend.Contract(addr)
	if err != nil {
		return nil, err
	}
	o, ok := c.(*priceoracle.Oracle)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", errNotPriceOracle, addr, c.Kind())
	}
	return o, nil
}

// DemoAddress returns the address of the demo client, the oracle itself if
// none was deployed.
func (api *API) DemoAddress(addr common.Address) (common.Address, error) {
	o, err := api.priceOracle(addr)
	if err != nil {
		return common.Address{}, err
	}
	return o.DemoAddress(), nil
}

// PriceResult is a stored price with amounts rendered as decimals.
type PriceResult struct {
	Ticker        hexutil.Uint64 `json:"ticker"`
	USD           string         `json:"usd"`
	USD24Vol      string         `json:"usd24vol"`
	USD24Change   string         `json:"usd24change"`
	BTC           string         `json:"btc"`
	LastUpdatedAt uint64         `json:"lastUpdatedAt"`
}

// Price returns the stored price of ticker.
func (api *API) Price(addr common.Address, ticker hexutil.Uint64) (*PriceResult, error) {
	o, err := api.priceOracle(addr)
	if err != nil {
		return nil, err
	}
	e, ok := o.Entry(uint64(ticker))
	if !ok {
		return nil, fmt.Errorf("%w: %#x", errUnknownTicker, uint64(ticker))
	}
	return &PriceResult{
		Ticker:        hexutil.Uint64(e.Ticker),
		USD:           unsigned(e.USD, payload.USDDecimals),
		USD24Vol:      unsigned(e.USD24Vol, payload.USDDecimals),
		USD24Change:   payload.FromFixed(e.USD24Change, payload.USDDecimals).StringFixed(payload.USDDecimals),
		BTC:           unsigned(e.BTC, payload.BTCDecimals),
		LastUpdatedAt: e.LastUpdatedAt,
	}, nil
}

func unsigned(v uint64, decimals int32) string {
	return decimal.NewFromUint64(v).Shift(-decimals).StringFixed(decimals)
}

func (api *API) randOracle(addr common.Address) (*randoracle.Oracle, error) {
	c, err := api.backend.Contract(addr)
	if err != nil {
		return nil, err
	}
	o, ok := c.(*randoracle.Oracle)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", errNotRandOracle, addr, c.Kind())
	}
	return o, nil
}

// EventStateResult is the public view of the active randomness round.
type EventStateResult struct {
	State       uint8        `json:"state"`
	StakeOnRock *hexutil.Big `json:"stakeOnRock"`
	StakeOnRoll *hexutil.Big `json:"stakeOnRoll"`
	Changed     uint8        `json:"changed"`
}

// EventState returns the state of the active randomness round.
func (api *API) EventState(addr common.Address) (*EventStateResult, error) {
	o, err := api.randOracle(addr)
	if err != nil {
		return nil, err
	}
	es := o.EventState()
	return &EventStateResult{
		State:       uint8(es.State),
		StakeOnRock: (*hexutil.Big)(es.StakeOnRock.ToBig()),
		StakeOnRoll: (*hexutil.Big)(es.StakeOnRoll.ToBig()),
		Changed:     uint8(es.Changed),
	}, nil
}

// SubmitResult reports the delivery of a relayed message.
type SubmitResult struct {
	ID       string `json:"id"`
	Success  bool   `json:"success"`
	ExitCode uint32 `json:"exitCode"`
	Error    string `json:"error,omitempty"`

	// Externals are the texts of randomness requests emitted on the way.
	Externals []string `json:"externals,omitempty"`

	// NewAddress is set when the target answered with its redirect
	// address.
	NewAddress *common.Address `json:"newAddress,omitempty"`
}

// relay sends body from the relayer wallet and summarizes the outcome. A
// rejection by the contract is reported in the result, not as an RPC error.
func (api *API) relay(ctx context.Context, addr common.Address, value *hexutil.Big, body contract.Message) (*SubmitResult, error) {
	var amount *uint256.Int
	if value != nil {
		var overflow bool
		if amount, overflow = uint256.FromBig(value.ToInt()); overflow || value.ToInt().Sign() < 0 {
			return nil, fmt.Errorf("%w: %s", errInvalidValue, value)
		}
	}
	res, err := api.sender.Send(ctx, api.relayer, addr, amount, body)
	if err != nil {
		return nil, err
	}
	name := contract.Name(body)
	tx := res.Transactions[0]
	out := &SubmitResult{ID: tx.ID.String(), Success: tx.Success(), ExitCode: tx.ExitCode}
	if tx.Err != nil {
		out.Error = tx.Err.Error()
		log.Warn("Relayed message rejected", "msg", name, "oracle", addr, "code", tx.ExitCode, "err", tx.Err)
	} else {
		log.Info("Relayed message", "msg", name, "oracle", addr, "id", tx.ID)
	}
	for _, ext := range res.Externals {
		if req, ok := ext.Body.(contract.RandomnessRequest); ok {
			out.Externals = append(out.Externals, req.Text)
			log.Info("Oracle requested randomness", "oracle", ext.From, "request", req.Text)
		}
	}
	for _, delivered := range res.Transactions {
		if r, ok := delivered.Body.(contract.NewAddressResponse); ok && delivered.To == api.relayer {
			next := r.Address
			out.NewAddress = &next
		}
	}
	return out, nil
}

func checkResponse(resp payload.Response) error {
	if crypto.Keccak256Hash(resp.Payload) != resp.Hash {
		return errHashMismatch
	}
	return nil
}

// SubmitPriceUpdate relays an enclave response to a price oracle.
func (api *API) SubmitPriceUpdate(ctx context.Context, addr common.Address, resp payload.Response) (*SubmitResult, error) {
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	if _, err := api.priceOracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, nil, contract.Update{Signature: resp.Signature, Payload: resp.Payload})
}

// SubmitRandomCommit relays a signed commitment to a randomness oracle.
func (api *API) SubmitRandomCommit(ctx context.Context, addr common.Address, resp payload.Response) (*SubmitResult, error) {
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	if _, err := api.randOracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, nil, contract.UpdateCommit{Signature: resp.Signature, Payload: resp.Payload})
}

// SubmitRandomReveal relays a signed reveal to a randomness oracle.
func (api *API) SubmitRandomReveal(ctx context.Context, addr common.Address, resp payload.Response) (*SubmitResult, error) {
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	if _, err := api.randOracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, nil, contract.UpdateReveal{Signature: resp.Signature, Payload: resp.Payload})
}

// Roll stakes value from the relayer wallet on the roll side.
func (api *API) Roll(ctx context.Context, addr common.Address, value hexutil.Big) (*SubmitResult, error) {
	if _, err := api.randOracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, &value, contract.Roll{})
}

// Rock stakes value from the relayer wallet on the rock side.
func (api *API) Rock(ctx context.Context, addr common.Address, value hexutil.Big) (*SubmitResult, error) {
	if _, err := api.randOracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, &value, contract.Rock{})
}

// The owner operations below are sent by the relayer wallet, which owns the
// oracles deployed by serve. value is optional and pays for the delivery.

// MoveTo proposes a successor, or starts the handoff when completed is set.
func (api *API) MoveTo(ctx context.Context, addr, next common.Address, completed bool, value *hexutil.Big) (*SubmitResult, error) {
	if _, err := api.oracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, value, contract.MoveTo{NewAddress: next, MoveCompleted: completed})
}

// Withdraw sends the withdrawable balance of an oracle to its owner.
func (api *API) Withdraw(ctx context.Context, addr common.Address, value *hexutil.Big) (*SubmitResult, error) {
	if _, err := api.oracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, value, contract.Withdraw{})
}

// DeployDemo makes a price oracle deploy its demo client.
func (api *API) DeployDemo(ctx context.Context, addr common.Address, value *hexutil.Big) (*SubmitResult, error) {
	if _, err := api.priceOracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, value, contract.DeployDemo{})
}

// RequestNewAddress asks the oracle for its redirect address by message. The
// answer is returned in the result.
func (api *API) RequestNewAddress(ctx context.Context, addr common.Address, value *hexutil.Big) (*SubmitResult, error) {
	if _, err := api.oracle(addr); err != nil {
		return nil, err
	}
	return api.relay(ctx, addr, value, contract.NewAddress{})
}
