package packjson

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// ceilDiv returns n/d rounded up.
func ceilDiv[T constraints.Integer](n, d T) T { return (n + d - 1) / d }

// bitsFor returns the bit width needed to index n distinct values, ceil(log2(n)).
func bitsFor[T constraints.Integer](n T) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(uint64(n - 1))
}

// rank returns the number of set bits in set below bit i.
func rank[T constraints.Unsigned](set T, i int) int {
	return bits.OnesCount64(uint64(set) & (1<<uint(i) - 1))
}

func popcount[T constraints.Unsigned](set T) int { return bits.OnesCount64(uint64(set)) }

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
