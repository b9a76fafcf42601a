// Package header declares the block header entity for the chain. A header
// carries no transaction payload beyond a single scalar extrinsic, and is
// treated as an immutable value once constructed.
package header

import (
	"github.com/ardanlabs/forkchain/foundation/chain/hashing"
)

// Header represents the metadata for one block in the chain.
type Header struct {
	Parent          uint64 `json:"parent"`           // Hash of the previous header in the chain.
	Height          uint64 `json:"height"`           // Position in the chain, genesis is 0.
	Extrinsic       uint64 `json:"extrinsic"`        // The single unit of state change carried by this header.
	State           uint64 `json:"state"`            // Cumulative sum of all extrinsics from genesis.
	ConsensusDigest uint64 `json:"consensus_digest"` // Nonce that satisfies the proof of work condition.
}

// Genesis constructs the unique parentless root header. All fields are
// zero valued; by convention genesis does not carry a proof of work.
func Genesis() Header {
	return Header{
		Parent:          hashing.ZeroHash,
		Height:          0,
		Extrinsic:       0,
		State:           0,
		ConsensusDigest: 0,
	}
}

// Hash returns the unique hash for the Header.
func (h Header) Hash() uint64 {
	return hashing.Sum(h.Parent, h.Height, h.Extrinsic, h.State, h.ConsensusDigest)
}
