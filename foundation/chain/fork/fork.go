// Package fork constructs a contentious forked chain: a common prefix
// with two divergent branches extending the same tip, one keeping the
// cumulative state even past the fork height and one keeping it odd.
// Both branches are valid under the structural rules alone, while each
// political rule accepts exactly one of them.
package fork

import (
	"context"
	"fmt"

	"github.com/ardanlabs/forkchain/foundation/chain/header"
	"github.com/ardanlabs/forkchain/foundation/chain/miner"
)

// Forks represents a common prefix chain and the two divergent branches
// built from its tip.
//
//	           /-- even
//	G -- prefix
//	           \-- odd
type Forks struct {
	Genesis header.Header   `json:"genesis"`
	Prefix  []header.Header `json:"prefix"` // Headers from genesis up to the fork point.
	Even    []header.Header `json:"even"`   // Suffix valid only under the even rule.
	Odd     []header.Header `json:"odd"`    // Suffix valid only under the odd rule.
}

// Tip returns the last header of the common prefix, which both branches
// extend. With a zero fork height that is the genesis header.
func (f Forks) Tip() header.Header {
	if len(f.Prefix) == 0 {
		return f.Genesis
	}
	return f.Prefix[len(f.Prefix)-1]
}

// =============================================================================

// Config represents the configuration required to construct a Builder.
type Config struct {
	Miner        *miner.Miner
	ForkHeight   uint64 // Height of the last shared header.
	BranchLength int    // Number of headers mined on each branch. Zero means two.
}

// Builder mines contentious forked chains.
type Builder struct {
	miner        *miner.Miner
	forkHeight   uint64
	branchLength int
}

// NewBuilder constructs a Builder from the specified configuration.
func NewBuilder(cfg Config) *Builder {
	branchLength := cfg.BranchLength
	if branchLength <= 0 {
		branchLength = 2
	}

	return &Builder{
		miner:        cfg.Miner,
		forkHeight:   cfg.ForkHeight,
		branchLength: branchLength,
	}
}

// Build mines the common prefix up to the fork height and then the two
// branches from the shared tip. The branch extrinsics are chosen by
// parity arithmetic so the cumulative state matches the intended rule
// for every header past the fork height regardless of the prefix state.
func (b *Builder) Build(ctx context.Context) (Forks, error) {
	gen := header.Genesis()

	prefix := make([]header.Header, 0, b.forkHeight)
	tip := gen
	for i := uint64(0); i < b.forkHeight; i++ {
		hdr, err := b.miner.Child(ctx, tip, 5+i)
		if err != nil {
			return Forks{}, fmt.Errorf("mining prefix header %d: %w", i+1, err)
		}
		prefix = append(prefix, hdr)
		tip = hdr
	}

	even, err := b.branch(ctx, tip, 0)
	if err != nil {
		return Forks{}, fmt.Errorf("mining even branch: %w", err)
	}

	odd, err := b.branch(ctx, tip, 1)
	if err != nil {
		return Forks{}, fmt.Errorf("mining odd branch: %w", err)
	}

	forks := Forks{
		Genesis: gen,
		Prefix:  prefix,
		Even:    even,
		Odd:     odd,
	}

	return forks, nil
}

// branch mines a suffix from the specified tip keeping the cumulative
// state at the specified parity for every header.
func (b *Builder) branch(ctx context.Context, tip header.Header, parity uint64) ([]header.Header, error) {
	suffix := make([]header.Header, 0, b.branchLength)

	for range b.branchLength {
		extrinsic := uint64(2)
		if (tip.State+extrinsic)%2 != parity {
			extrinsic++
		}

		hdr, err := b.miner.Child(ctx, tip, extrinsic)
		if err != nil {
			return nil, err
		}

		suffix = append(suffix, hdr)
		tip = hdr
	}

	return suffix, nil
}
