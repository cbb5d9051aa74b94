// Package sample caps corpus size with a seeded uniform draw.
package sample

import (
	"sort"

	"golang.org/x/exp/rand"
)

// DefaultSize and DefaultSeed are the documented sampler defaults.
const (
	DefaultSize        = 100000
	DefaultSeed uint64 = 42
)

// Indices draws size distinct indexes from [0, n) uniformly without
// replacement and returns them ascending. When n <= size, or size <= 0,
// every index is returned. The same (n, size, seed) always yields the same set.
func Indices(n, size int, seed uint64) []int {
	if size <= 0 || n <= size {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	// Partial Fisher-Yates: the first size slots end up a uniform sample.
	rng := rand.New(rand.NewSource(seed))
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + rng.Intn(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	picked := perm[:size]
	sort.Ints(picked)
	return picked
}

// Take returns the elements of items at the sampled indexes, in original order.
func Take[T any](items []T, size int, seed uint64) []T {
	if size <= 0 || len(items) <= size {
		return items
	}
	idx := Indices(len(items), size, seed)
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
