package miner_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ardanlabs/forkchain/foundation/chain/header"
	"github.com/ardanlabs/forkchain/foundation/chain/miner"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// threshold accepts roughly 1 in 100 candidate digests, matching the
// reference difficulty.
const threshold = math.MaxUint64 / 100

func Test_Child(t *testing.T) {
	t.Log("Given the need to validate mined child headers.")
	{
		m, err := miner.New(miner.Config{Threshold: threshold, Seed: 1})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a miner: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct a miner.", success)

		g := header.Genesis()

		b1, err := m.Child(context.Background(), g, 7)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a child header: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a child header.", success)

		if b1.Height != g.Height+1 {
			t.Fatalf("\t%s\tShould have the next height: got %d, exp %d", failed, b1.Height, g.Height+1)
		}
		t.Logf("\t%s\tShould have the next height.", success)

		if b1.Parent != g.Hash() {
			t.Fatalf("\t%s\tShould reference the parent hash: got %d, exp %d", failed, b1.Parent, g.Hash())
		}
		t.Logf("\t%s\tShould reference the parent hash.", success)

		if b1.Extrinsic != 7 {
			t.Fatalf("\t%s\tShould carry the extrinsic: got %d, exp 7", failed, b1.Extrinsic)
		}
		t.Logf("\t%s\tShould carry the extrinsic.", success)

		if b1.State != g.State+7 {
			t.Fatalf("\t%s\tShould accumulate the state: got %d, exp %d", failed, b1.State, g.State+7)
		}
		t.Logf("\t%s\tShould accumulate the state.", success)

		if b1.Hash() >= threshold {
			t.Fatalf("\t%s\tShould have a hash under the threshold: got %d", failed, b1.Hash())
		}
		t.Logf("\t%s\tShould have a hash under the threshold.", success)
	}
}

func Test_DeterministicSeed(t *testing.T) {
	t.Log("Given the need to validate mining is reproducible under a fixed seed.")
	{
		mine := func() header.Header {
			m, err := miner.New(miner.Config{Threshold: threshold, Seed: 42})
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct a miner: %v", failed, err)
			}

			hdr, err := m.Child(context.Background(), header.Genesis(), 5)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to mine a child header: %v", failed, err)
			}
			return hdr
		}

		if mine() != mine() {
			t.Fatalf("\t%s\tShould mine the same header twice for the same seed.", failed)
		}
		t.Logf("\t%s\tShould mine the same header twice for the same seed.", success)
	}
}

func Test_MiningExhausted(t *testing.T) {
	t.Log("Given the need to validate the attempt budget is honored.")
	{
		// A threshold of 1 only accepts a hash of exactly zero, so a small
		// budget is certain to be spent without a solution.
		m, err := miner.New(miner.Config{Threshold: 1, MaxAttempts: 50, Seed: 1})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a miner: %v", failed, err)
		}

		if _, err := m.Child(context.Background(), header.Genesis(), 5); !errors.Is(err, miner.ErrMiningExhausted) {
			t.Fatalf("\t%s\tShould receive the exhausted error: got %v", failed, err)
		}
		t.Logf("\t%s\tShould receive the exhausted error.", success)
	}
}

func Test_MiningCancelled(t *testing.T) {
	t.Log("Given the need to validate a caller can cancel the search.")
	{
		m, err := miner.New(miner.Config{Threshold: 1, Seed: 1})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a miner: %v", failed, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := m.Child(ctx, header.Genesis(), 5); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould receive the context error: got %v", failed, err)
		}
		t.Logf("\t%s\tShould receive the context error.", success)
	}
}

func Test_ParallelWorkers(t *testing.T) {
	t.Log("Given the need to validate the parallel search seals a header.")
	{
		m, err := miner.New(miner.Config{Threshold: threshold, Workers: 4, Seed: 7})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a miner: %v", failed, err)
		}

		hdr, err := m.Child(context.Background(), header.Genesis(), 5)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine with multiple workers: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine with multiple workers.", success)

		if hdr.Hash() >= threshold {
			t.Fatalf("\t%s\tShould have a hash under the threshold: got %d", failed, hdr.Hash())
		}
		t.Logf("\t%s\tShould have a hash under the threshold.", success)
	}
}
