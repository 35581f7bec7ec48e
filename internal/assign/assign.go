// Package assign implements deterministic weighted-bucket variant assignment.
//
// A sticky identifier hashes to one of 1,000,000 equally likely buckets.
// Variant weights (percentage points, two implied decimal places) partition
// the bucket space cumulatively; the first variant whose cumulative range
// covers the bucket wins. The same sticky identifier against the same variant
// list always yields the same variant, across processes and over time.
package assign

import (
	"crypto/md5" //nolint:gosec // not used for security; bucket function is pinned to MD5 for cross-SDK sticky compatibility
	"encoding/binary"
	"math"

	"github.com/bucketry/bucketry/internal/store"
)

const (
	// TotalBuckets is the size of the hash bucket space.
	TotalBuckets = 1_000_000

	// bucketScale converts a percentage-point weight into buckets,
	// giving 0.01% granularity over the full bucket space.
	bucketScale = 10_000
)

// Bucket maps a sticky identifier to a bucket in [0, TotalBuckets).
// The mapping is reproducible and uniformly distributed, derived solely from
// the identifier.
func Bucket(stickyID string) uint32 {
	sum := md5.Sum([]byte(stickyID)) //nolint:gosec // see package note on MD5
	return binary.BigEndian.Uint32(sum[:4]) % TotalBuckets
}

// Pick selects a variant for the sticky identifier by walking the variant
// list in order and accumulating weight. If the total weight covers less than
// 100%, the last variant absorbs the remaining bucket space (the catch-all
// rule; under-100 weight sums are a policy, not an error).
//
// Returns ErrInvalidConfig if the list is empty.
func Pick(variants []store.Variant, stickyID string) (store.Variant, error) {
	if len(variants) == 0 {
		return store.Variant{}, ErrInvalidConfig
	}

	bucket := Bucket(stickyID)
	cumulative := uint64(0)
	for _, v := range variants {
		cumulative += weightBuckets(v.Weight)
		if uint64(bucket) < cumulative {
			return v, nil
		}
	}

	// Total weight < 100%: last variant is the catch-all.
	return variants[len(variants)-1], nil
}

// Validate checks the structural invariants of a variant list: at least one
// variant, no negative weights, and a weight sum of at most 100 percentage
// points. Over-100 sums are rejected because cumulative ranges beyond the
// bucket space would silently shadow the catch-all rule.
func Validate(variants []store.Variant) error {
	if len(variants) == 0 {
		return ErrInvalidConfig
	}

	sum := 0.0
	for _, v := range variants {
		if v.Weight < 0 {
			return NegativeWeightError{Variant: v.Label(), Weight: v.Weight}
		}
		sum += v.Weight
	}
	if sum > 100+weightEpsilon {
		return WeightSumError{Sum: sum}
	}
	return nil
}

// weightEpsilon tolerates float accumulation error on weight sums.
const weightEpsilon = 1e-9

// weightBuckets converts a percentage-point weight to a bucket count.
// Non-positive weights cover zero buckets.
func weightBuckets(w float64) uint64 {
	if w <= 0 {
		return 0
	}
	return uint64(math.Round(w * bucketScale))
}
