// Package hashing provides the digest function used to link headers
// together. The chain only needs determinism and full-field sensitivity
// from this function, not cryptographic strength.
package hashing

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ZeroHash represents the hash value carried by a genesis header's
// parent field.
const ZeroHash uint64 = 0

// Sum returns a unique value for the five header fields. Any change to
// any one of the fields produces a different value.
func Sum(parent, height, extrinsic, state, consensusDigest uint64) uint64 {
	var buf [40]byte

	binary.BigEndian.PutUint64(buf[0:8], parent)
	binary.BigEndian.PutUint64(buf[8:16], height)
	binary.BigEndian.PutUint64(buf[16:24], extrinsic)
	binary.BigEndian.PutUint64(buf[24:32], state)
	binary.BigEndian.PutUint64(buf[32:40], consensusDigest)

	return xxhash.Sum64(buf[:])
}
