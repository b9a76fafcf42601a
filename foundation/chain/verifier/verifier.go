// Package verifier implements the validity rules for sequences of
// headers. The structural rule checks the hash linkage, height, state
// accumulation, and proof of work invariants. Two additional political
// rules layer a state parity requirement on top for headers past the
// fork height, modeling a contentious hard fork where two communities
// diverge on a rule with no technical justification.
package verifier

import (
	"fmt"

	"github.com/ardanlabs/forkchain/foundation/chain/header"
)

// Rule identifies which validity rule set a chain is checked against.
type Rule int

// Set of supported validity rules.
const (
	Structural Rule = iota
	EvenAfterFork
	OddAfterFork
)

// String implements the fmt.Stringer interface.
func (r Rule) String() string {
	switch r {
	case Structural:
		return "structural"
	case EvenAfterFork:
		return "even"
	case OddAfterFork:
		return "odd"
	}
	return "unknown"
}

// ParseRule converts the specified name into a Rule.
func ParseRule(name string) (Rule, error) {
	switch name {
	case "structural":
		return Structural, nil
	case "even":
		return EvenAfterFork, nil
	case "odd":
		return OddAfterFork, nil
	}
	return 0, fmt.Errorf("unknown rule %q", name)
}

// =============================================================================

// Invariant identifies which validity invariant a header violated.
type Invariant int

// Set of invariants checked for every adjacent pair of headers.
const (
	InvariantHeight Invariant = iota
	InvariantParent
	InvariantState
	InvariantWork
	InvariantParity
)

// String implements the fmt.Stringer interface.
func (i Invariant) String() string {
	switch i {
	case InvariantHeight:
		return "height"
	case InvariantParent:
		return "parent"
	case InvariantState:
		return "state"
	case InvariantWork:
		return "work"
	case InvariantParity:
		return "parity"
	}
	return "unknown"
}

// HeaderError identifies the first header in a chain that violated an
// invariant and which invariant it was.
type HeaderError struct {
	Index     int
	Invariant Invariant
}

// Error implements the error interface.
func (e *HeaderError) Error() string {
	return fmt.Sprintf("header at index %d violates the %s invariant", e.Index, e.Invariant)
}

// =============================================================================

// Config represents the configuration required to construct a verifier.
type Config struct {
	Threshold  uint64 // Maximum hash value accepted as valid proof of work.
	ForkHeight uint64 // Height after which the political rules apply.
}

// Verifier checks sequences of headers against the validity rules.
type Verifier struct {
	threshold  uint64
	forkHeight uint64
}

// New constructs a verifier from the specified configuration.
func New(cfg Config) *Verifier {
	return &Verifier{
		threshold:  cfg.Threshold,
		forkHeight: cfg.ForkHeight,
	}
}

// Validate walks the specified chain from the anchor checking every
// adjacent pair of headers against the specified rule. The anchor itself
// is trusted and never checked. The walk stops at the first violation,
// which is reported as a *HeaderError. An empty chain is trivially
// valid. Validate never mutates a header.
func (v *Verifier) Validate(anchor header.Header, chain []header.Header, rule Rule) error {
	prev := anchor

	for i, hdr := range chain {
		if hdr.Height != prev.Height+1 {
			return &HeaderError{Index: i, Invariant: InvariantHeight}
		}

		if hdr.Parent != prev.Hash() {
			return &HeaderError{Index: i, Invariant: InvariantParent}
		}

		if hdr.State != prev.State+hdr.Extrinsic {
			return &HeaderError{Index: i, Invariant: InvariantState}
		}

		if hdr.Hash() >= v.threshold {
			return &HeaderError{Index: i, Invariant: InvariantWork}
		}

		if hdr.Height > v.forkHeight {
			switch rule {
			case EvenAfterFork:
				if hdr.State%2 != 0 {
					return &HeaderError{Index: i, Invariant: InvariantParity}
				}
			case OddAfterFork:
				if hdr.State%2 != 1 {
					return &HeaderError{Index: i, Invariant: InvariantParity}
				}
			}
		}

		prev = hdr
	}

	return nil
}

// VerifySubChain reports whether the specified chain extends the anchor
// under the structural rules alone.
func (v *Verifier) VerifySubChain(anchor header.Header, chain []header.Header) bool {
	return v.Validate(anchor, chain, Structural) == nil
}

// VerifySubChainEven reports whether the specified chain extends the
// anchor under the structural rules with every header past the fork
// height carrying an even state.
func (v *Verifier) VerifySubChainEven(anchor header.Header, chain []header.Header) bool {
	return v.Validate(anchor, chain, EvenAfterFork) == nil
}

// VerifySubChainOdd reports whether the specified chain extends the
// anchor under the structural rules with every header past the fork
// height carrying an odd state.
func (v *Verifier) VerifySubChainOdd(anchor header.Header, chain []header.Header) bool {
	return v.Validate(anchor, chain, OddAfterFork) == nil
}
