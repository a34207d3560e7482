// Package rhash provides the hashing and index-folding helpers shared by
// rhmap's state machine: the same fold and default hasher must be used
// consistently across the primary and secondary tables for a resize to be
// observably correct.
package rhash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fold combines the high and low halves of a 64-bit hash, the way rhmap's
// primary and secondary index computations require: fold(h) = h xor (h >> 32).
func Fold(h uint64) uint64 {
	return h ^ (h >> 32)
}

// Default returns a generic hasher for any comparable key type, built atop
// xxhash over the key's formatted representation. It is the hasher rhmap.New
// uses when the caller does not supply one via WithHasher; callers with
// performance-sensitive or collision-prone key types should supply their own.
func Default[K comparable]() func(K) uint64 {
	return func(k K) uint64 {
		return xxhash.Sum64String(fmt.Sprintf("%v", k))
	}
}
