// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/holiman/uint256"
	"github.com/rs/cors"
	"github.com/teeoracle/bridge/contract"
	"github.com/teeoracle/bridge/democlient"
	"github.com/teeoracle/bridge/enclave"
	"github.com/teeoracle/bridge/host"
	"github.com/teeoracle/bridge/internal/config"
	"github.com/teeoracle/bridge/oracleapi"
	"github.com/teeoracle/bridge/priceoracle"
	"github.com/teeoracle/bridge/randoracle"
	"github.com/teeoracle/bridge/statedb"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	relayerFunds = 1_000_000_000_000_000 // credited to a new relayer wallet
	deployValue  = 10_000_000_000        // initial balance of each oracle
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run the sandbox host with both oracles behind JSON-RPC",
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return err
		}
		lock := flock.New(filepath.Join(cfg.DataDir, "LOCK"))
		locked, err := lock.TryLock()
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("datadir %s is used by another process", cfg.DataDir)
		}
		defer lock.Unlock()

		key, err := enclave.LoadKey(cfg.Enclave.KeyFile)
		if err != nil {
			return err
		}
		id, err := identityFromConfig(cfg.Enclave, key)
		if err != nil {
			return err
		}
		kv, err := statedb.Open(cfg.DBBackend, cfg.DataDir)
		if err != nil {
			return err
		}
		if cfg.CacheSize > 0 {
			kv = statedb.NewCachedStore(kv, cfg.CacheSize*1024*1024)
		}
		db := statedb.New(kv)
		defer db.Close()

		h, err := newHost(cfg.Host)
		if err != nil {
			return err
		}
		if err := h.Attach(db); err != nil {
			return err
		}
		if err := h.SetNow(uint64(time.Now().Unix())); err != nil {
			return err
		}
		dep, err := bootstrap(h, cfg, id)
		if err != nil {
			return err
		}
		fmt.Printf("Price oracle:      %s\n", color.CyanString(dep.price.Hex()))
		fmt.Printf("Randomness oracle: %s\n", color.CyanString(dep.random.Hex()))
		fmt.Printf("Relayer wallet:    %s\n", color.CyanString(dep.relayer.Hex()))
		return serve(ctx.Context, h, cfg.RPC, dep)
	},
}

// deployment holds the addresses set up by bootstrap.
type deployment struct {
	relayer common.Address
	price   common.Address
	random  common.Address
}

func newHost(cfg host.Config) (*host.Host, error) {
	h, err := host.New(cfg)
	if err != nil {
		return nil, err
	}
	h.RegisterKind(priceoracle.Kind, priceoracle.Load)
	h.RegisterKind(randoracle.Kind, randoracle.Load)
	h.RegisterKind(democlient.Kind, democlient.Load)
	return h, nil
}

func identityFromConfig(cfg config.EnclaveConfig, key *enclave.SignatureKey) (enclave.Identity, error) {
	if cfg.Measurement == "" {
		return enclave.Identity{}, errors.New("enclave.measurement is not configured")
	}
	m, err := hexutil.Decode(cfg.Measurement)
	if err != nil || len(m) != common.HashLength {
		return enclave.Identity{}, fmt.Errorf("invalid enclave measurement %q", cfg.Measurement)
	}
	var report []byte
	if cfg.AttestationFile != "" {
		if report, err = os.ReadFile(cfg.AttestationFile); err != nil {
			return enclave.Identity{}, err
		}
	}
	pub := key.PublicKey()
	return enclave.NewIdentity(pub[:], common.BytesToHash(m), report)
}

// bootstrap funds the relayer wallet and deploys both oracles, owned by the
// relayer, unless they already exist.
func bootstrap(h *host.Host, cfg config.Config, id enclave.Identity) (*deployment, error) {
	relayer := host.WalletAddress(cfg.RPC.Relayer)
	if h.Balance(relayer).IsZero() {
		if _, err := h.Fund(cfg.RPC.Relayer, uint256.NewInt(relayerFunds)); err != nil {
			return nil, err
		}
	}
	po, err := priceoracle.New(relayer, nil, id, cfg.Price)
	if err != nil {
		return nil, err
	}
	ro, err := randoracle.New(relayer, nil, id, cfg.Random)
	if err != nil {
		return nil, err
	}
	for _, c := range []contract.Contract{po, ro} {
		if _, err := h.Contract(c.Address()); err == nil {
			log.Info("Found oracle", "kind", c.Kind(), "addr", c.Address())
			continue
		}
		res, err := h.Deploy(relayer, c, uint256.NewInt(deployValue), contract.Topup{})
		if err != nil {
			return nil, err
		}
		if failed := res.Failed(); len(failed) > 0 {
			return nil, fmt.Errorf("failed to deploy %s: %w", c.Kind(), failed[0].Err)
		}
		log.Info("Deployed oracle", "kind", c.Kind(), "addr", c.Address())
	}
	return &deployment{relayer: relayer, price: po.Self, random: ro.Self}, nil
}

// serve runs the mailbox, the host clock and the HTTP endpoint until ctx is
// cancelled or a signal arrives.
func serve(ctx context.Context, h *host.Host, cfg config.RPCConfig, dep *deployment) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mb := host.NewMailbox(h)
	server := rpc.NewServer()
	defer server.Stop()
	if err := server.RegisterName(oracleapi.Namespace, oracleapi.NewAPI(h, mb, dep.relayer)); err != nil {
		return err
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	}).Handler(newRateLimiter(cfg.RateLimit, cfg.RateBurst).wrap(server))
	httpServer := &http.Server{
		Addr:              cfg.Endpoint(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mb.Run(gctx) })
	g.Go(func() error { return runClock(gctx, h, time.Second) })
	g.Go(func() error {
		log.Info("HTTP server started", "endpoint", "http://"+cfg.Endpoint(), "cors", cfg.CorsOrigins)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("Oracle service stopped")
		return nil
	}
	return err
}

// runClock advances the host clock to the wall clock every interval.
func runClock(ctx context.Context, h *host.Host, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if err := h.SetNow(uint64(now.Unix())); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// rateLimiter throttles requests per remote host.
type rateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRateLimiter(limit float64, burst int) *rateLimiter {
	return &rateLimiter{
		limit:    rate.Limit(limit),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *rateLimiter) allow(remote string) bool {
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	rl.mu.Lock()
	l, ok := rl.limiters[remote]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[remote] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			log.Debug("Request rate limited", "remote", r.RemoteAddr)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
