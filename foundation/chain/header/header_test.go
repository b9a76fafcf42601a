package header_test

import (
	"testing"

	"github.com/ardanlabs/forkchain/foundation/chain/header"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to validate the genesis header invariants.")
	{
		g := header.Genesis()

		if g.Height != 0 {
			t.Fatalf("\t%s\tShould have a height of 0: got %d", failed, g.Height)
		}
		t.Logf("\t%s\tShould have a height of 0.", success)

		if g.Parent != 0 {
			t.Fatalf("\t%s\tShould have a zero parent hash: got %d", failed, g.Parent)
		}
		t.Logf("\t%s\tShould have a zero parent hash.", success)

		if g.Extrinsic != 0 {
			t.Fatalf("\t%s\tShould carry no extrinsic: got %d", failed, g.Extrinsic)
		}
		t.Logf("\t%s\tShould carry no extrinsic.", success)

		if g.State != 0 {
			t.Fatalf("\t%s\tShould have a zero state: got %d", failed, g.State)
		}
		t.Logf("\t%s\tShould have a zero state.", success)

		if g.ConsensusDigest != 0 {
			t.Fatalf("\t%s\tShould have a zero consensus digest: got %d", failed, g.ConsensusDigest)
		}
		t.Logf("\t%s\tShould have a zero consensus digest.", success)
	}
}

func Test_HashFieldSensitivity(t *testing.T) {
	type table struct {
		name   string
		mutate func(h header.Header) header.Header
	}

	tt := []table{
		{"parent", func(h header.Header) header.Header { h.Parent++; return h }},
		{"height", func(h header.Header) header.Header { h.Height++; return h }},
		{"extrinsic", func(h header.Header) header.Header { h.Extrinsic++; return h }},
		{"state", func(h header.Header) header.Header { h.State++; return h }},
		{"consensus_digest", func(h header.Header) header.Header { h.ConsensusDigest++; return h }},
	}

	t.Log("Given the need to validate the hash is sensitive to every field.")
	{
		base := header.Header{
			Parent:          101,
			Height:          7,
			Extrinsic:       13,
			State:           42,
			ConsensusDigest: 9999,
		}

		if base.Hash() != base.Hash() {
			t.Fatalf("\t%s\tShould produce a deterministic hash.", failed)
		}
		t.Logf("\t%s\tShould produce a deterministic hash.", success)

		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen changing the %s field.", testID, tst.name)
			{
				if tst.mutate(base).Hash() == base.Hash() {
					t.Errorf("\t%s\tTest %d:\tShould produce a different hash.", failed, testID)
					continue
				}
				t.Logf("\t%s\tTest %d:\tShould produce a different hash.", success, testID)
			}
		}
	}
}
