// Package state is the core API for the header chain and wires the
// miner and verifier together around the in-memory canonical chain.
package state

import (
	"context"
	"sync"

	"github.com/ardanlabs/forkchain/foundation/chain/header"
	"github.com/ardanlabs/forkchain/foundation/chain/miner"
	"github.com/ardanlabs/forkchain/foundation/chain/settings"
	"github.com/ardanlabs/forkchain/foundation/chain/verifier"
)

// EventHandler defines a function that is called when events occur in
// the processing of mining and verifying headers.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the chain.
type Config struct {
	Settings  settings.Settings
	EvHandler EventHandler
}

// State manages the in-memory canonical chain. Headers are immutable
// values, so readers always receive copies and independent verification
// calls never share mutable state.
type State struct {
	settings settings.Settings
	ev       EventHandler
	miner    *miner.Miner
	verifier *verifier.Verifier

	mineMu  sync.Mutex
	mu      sync.RWMutex
	genesis header.Header
	headers []header.Header
}

// New constructs a new State starting from a fresh genesis header.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	mnr, err := miner.New(miner.Config{
		Threshold:   cfg.Settings.Threshold(),
		MaxAttempts: cfg.Settings.MiningAttempts,
		Workers:     cfg.Settings.MiningWorkers,
		EvHandler:   miner.EventHandler(ev),
	})
	if err != nil {
		return nil, err
	}

	vrf := verifier.New(verifier.Config{
		Threshold:  cfg.Settings.Threshold(),
		ForkHeight: cfg.Settings.ForkHeight,
	})

	state := State{
		settings: cfg.Settings,
		ev:       ev,
		miner:    mnr,
		verifier: vrf,
		genesis:  header.Genesis(),
	}

	return &state, nil
}

// Miner returns the miner the chain was configured with.
func (s *State) Miner() *miner.Miner {
	return s.miner
}

// Verifier returns the verifier the chain was configured with.
func (s *State) Verifier() *verifier.Verifier {
	return s.verifier
}

// RetrieveSettings returns a copy of the chain settings.
func (s *State) RetrieveSettings() settings.Settings {
	return s.settings
}

// RetrieveGenesis returns the genesis header for this chain.
func (s *State) RetrieveGenesis() header.Header {
	return s.genesis
}

// LatestHeader returns the current tip of the canonical chain.
func (s *State) LatestHeader() header.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.headers) == 0 {
		return s.genesis
	}
	return s.headers[len(s.headers)-1]
}

// RetrieveChain returns a copy of the headers mined on top of genesis.
func (s *State) RetrieveChain() []header.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := make([]header.Header, len(s.headers))
	copy(chain, s.headers)

	return chain
}

// MineNextHeader mines the child of the current tip carrying the
// specified extrinsic and appends it to the canonical chain. Mining
// operations are serialized so the tip can't advance underneath a
// running search.
func (s *State) MineNextHeader(ctx context.Context, extrinsic uint64) (header.Header, error) {
	s.mineMu.Lock()
	defer s.mineMu.Unlock()

	parent := s.LatestHeader()

	s.ev("state: MineNextHeader: started: parent height[%d] extrinsic[%d]", parent.Height, extrinsic)

	hdr, err := s.miner.Child(ctx, parent, extrinsic)
	if err != nil {
		s.ev("state: MineNextHeader: ERROR: %s", err)
		return header.Header{}, err
	}

	s.mu.Lock()
	s.headers = append(s.headers, hdr)
	s.mu.Unlock()

	s.ev("state: MineNextHeader: mined: height[%d] state[%d] hash[%d]", hdr.Height, hdr.State, hdr.Hash())

	return hdr, nil
}

// VerifyChain checks the canonical chain against the specified rule from
// the genesis anchor. A nil error means the chain is valid in full.
func (s *State) VerifyChain(rule verifier.Rule) error {
	chain := s.RetrieveChain()

	err := s.verifier.Validate(s.genesis, chain, rule)
	if err != nil {
		s.ev("state: VerifyChain: rule[%s]: INVALID: %s", rule, err)
		return err
	}

	s.ev("state: VerifyChain: rule[%s]: valid: headers[%d]", rule, len(chain))
	return nil
}

// Truncate resets the chain in memory back to just the genesis header.
func (s *State) Truncate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.headers = nil
}
