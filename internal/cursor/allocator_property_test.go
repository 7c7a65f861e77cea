package cursor

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestClaim_PartitionProperty verifies that for any stream length and worker
// count, claims made in any order are pairwise disjoint, cover [0, total],
// and never run past the end of the stream.
func TestClaim_PartitionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("claims partition the stream", prop.ForAll(
		func(total int64, workers int, seed int64) bool {
			a, err := New(total, workers)
			if err != nil {
				return false
			}
			order := rand.New(rand.NewSource(seed)).Perm(workers)
			ranges := make([]Range, workers)
			for _, id := range order {
				r, err := a.Claim(id)
				if err != nil {
					return false
				}
				ranges[id] = r
			}
			if msg := checkPartition(ranges, total); msg != "" {
				t.Log(msg)
				return false
			}
			return true
		},
		gen.Int64Range(1, 1<<20),
		gen.IntRange(1, 64),
		gen.Int64(),
	))

	properties.Property("chunk size is ceil(total / workers)", prop.ForAll(
		func(total int64, workers int) bool {
			c := ChunkSize(total, workers)
			n := int64(workers)
			return c*n >= total && (c-1)*n < total
		},
		gen.Int64Range(1, 1<<40),
		gen.IntRange(1, 1024),
	))

	properties.Property("high-water mark never decreases", prop.ForAll(
		func(total int64, workers int) bool {
			a, _ := New(total, workers)
			var prev int64
			for id := 0; id < workers; id++ {
				_, _ = a.Claim(id)
				hwm := a.HighWaterMark()
				if hwm < prev {
					return false
				}
				prev = hwm
			}
			return prev == total
		},
		gen.Int64Range(1, 1<<20),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}
