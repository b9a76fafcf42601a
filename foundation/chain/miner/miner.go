// Package miner implements the proof of work search that seals new
// headers. Each nonce attempt is independent, so the search can be run
// across several workers with independent randomness streams where the
// first match wins.
package miner

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"sync"

	"github.com/ardanlabs/forkchain/foundation/chain/header"
)

// ErrMiningExhausted is returned from Seal when the attempt budget is
// spent without finding a digest under the threshold.
var ErrMiningExhausted = errors.New("mining attempts exhausted")

// ErrRandomnessUnavailable is returned when the entropy source needed to
// seed the nonce streams fails.
var ErrRandomnessUnavailable = errors.New("randomness source unavailable")

// EventHandler defines a function that is called when events occur during
// the mining operation.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to construct a miner.
type Config struct {
	Threshold   uint64 // Maximum hash value accepted as valid proof of work.
	MaxAttempts uint64 // Attempt budget across all workers. Zero means search forever.
	Workers     int    // Number of concurrent search goroutines. Zero means one.
	Seed        uint64 // Fixed seed for the nonce streams. Zero means seed from entropy.
	EvHandler   EventHandler
}

// Miner performs the work of finding a consensus digest that puts a
// header's hash under the configured threshold.
type Miner struct {
	threshold   uint64
	maxAttempts uint64
	workers     int
	seed        uint64
	ev          EventHandler
}

// New constructs a miner from the specified configuration.
func New(cfg Config) (*Miner, error) {
	if cfg.Threshold == 0 {
		return nil, errors.New("threshold must be greater than zero")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	m := Miner{
		threshold:   cfg.Threshold,
		maxAttempts: cfg.MaxAttempts,
		workers:     workers,
		seed:        cfg.Seed,
		ev:          ev,
	}

	return &m, nil
}

// Child constructs the prospective child of the specified parent header
// and performs the work to seal it. The height, parent hash, and state
// accumulation are set deterministically; only the consensus digest is
// discovered by the search.
func (m *Miner) Child(ctx context.Context, parent header.Header, extrinsic uint64) (header.Header, error) {
	nh := header.Header{
		Parent:    parent.Hash(),
		Height:    parent.Height + 1,
		Extrinsic: extrinsic,
		State:     parent.State + extrinsic,
	}

	return m.Seal(ctx, nh)
}

// Seal finds a consensus digest for the specified header such that the
// header's hash falls under the threshold. The expected number of
// attempts follows a geometric distribution on the threshold's fraction
// of the hash space, but there is no guaranteed bound, so callers should
// configure an attempt budget or provide a cancellable context.
func (m *Miner) Seal(ctx context.Context, hdr header.Header) (header.Header, error) {
	m.ev("miner: seal: MINING: started: height[%d]", hdr.Height)
	defer m.ev("miner: seal: MINING: completed: height[%d]", hdr.Height)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Split the attempt budget across the workers so the total number of
	// attempts stays within the configured maximum.
	budget := m.maxAttempts
	if budget > 0 && m.workers > 1 {
		budget = (budget + uint64(m.workers) - 1) / uint64(m.workers)
	}

	found := make(chan header.Header, m.workers)
	failures := make(chan error, m.workers)

	var wg sync.WaitGroup
	wg.Add(m.workers)

	for i := range m.workers {
		go func(id int) {
			defer wg.Done()

			rng, err := m.stream(id)
			if err != nil {
				failures <- err
				cancel()
				return
			}

			sealed, err := m.search(ctx, rng, hdr, budget, id)
			if err != nil {
				failures <- err
				return
			}

			found <- sealed
			cancel()
		}(i)
	}

	wg.Wait()

	// A sealed header wins over any worker that was cancelled or ran out
	// of attempts while another worker succeeded.
	select {
	case sealed := <-found:
		return sealed, nil
	default:
	}

	select {
	case err := <-failures:
		return header.Header{}, err
	default:
	}

	return header.Header{}, ctx.Err()
}

// search runs the nonce draw loop for a single worker.
func (m *Miner) search(ctx context.Context, rng *mrand.Rand, hdr header.Header, budget uint64, id int) (header.Header, error) {
	var attempts uint64

	for {
		attempts++
		if attempts%1_000_000 == 0 {
			m.ev("miner: search: MINING: worker[%d]: attempts[%d]", id, attempts)
		}

		// Did the caller cancel or did another worker already win.
		if ctx.Err() != nil {
			m.ev("miner: search: MINING: worker[%d]: CANCELLED", id)
			return header.Header{}, ctx.Err()
		}

		hdr.ConsensusDigest = rng.Uint64()
		if hdr.Hash() < m.threshold {
			m.ev("miner: search: MINING: worker[%d]: SOLVED: attempts[%d]", id, attempts)
			return hdr, nil
		}

		if budget > 0 && attempts >= budget {
			m.ev("miner: search: MINING: worker[%d]: EXHAUSTED: attempts[%d]", id, attempts)
			return header.Header{}, ErrMiningExhausted
		}
	}
}

// stream constructs the randomness stream for the specified worker. With
// a fixed seed each worker gets a distinct deterministic stream so tests
// are reproducible. Otherwise the stream is seeded from entropy.
func (m *Miner) stream(id int) (*mrand.Rand, error) {
	if m.seed != 0 {
		return mrand.New(mrand.NewPCG(m.seed, uint64(id)+1)), nil
	}

	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}

	return mrand.New(mrand.NewPCG(binary.BigEndian.Uint64(buf[:8]), binary.BigEndian.Uint64(buf[8:]))), nil
}
