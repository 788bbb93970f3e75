// Package hash provides seeded non-cryptographic 64-bit hash functions used to index sketch rows.
package hash

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-metro"
	"github.com/zeebo/xxh3"
)

// Func hashes data into a uniformly distributed 64-bit value. Equal (data, seed) pairs always
// produce equal values. Both 32-bit halves of the result are consumed independently.
type Func func(data []byte, seed uint64) uint64

const (
	NameXXH3   = "xxh3"
	NameXXHash = "xxhash"
	NameMetro  = "metro"
	NameFNV1   = "fnv1"
)

const (
	// FNV1Init is the FNV-1 64-bit offset basis.
	FNV1Init  uint64 = 14695981039346656037
	fnv1Prime uint64 = 1099511628211
)

var ErrUnknownHash = errors.New("unknown hash function")

var registry = map[string]Func{
	NameXXH3:   XXH3,
	NameXXHash: XXHash,
	NameMetro:  Metro,
	NameFNV1:   FNV1,
}

// ByName returns the hash function registered under name.
func ByName(name string) (Func, error) {
	if fn, ok := registry[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
}

// Names lists registered hash function names.
func Names() []string {
	return []string{NameXXH3, NameXXHash, NameMetro, NameFNV1}
}

func XXH3(data []byte, seed uint64) uint64 {
	return xxh3.HashSeed(data, seed)
}

func XXHash(data []byte, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(data)
	return d.Sum64()
}

func Metro(data []byte, seed uint64) uint64 {
	return metro.Hash64(data, seed)
}

// FNV1 is the FNV-1 (multiply then xor) 64-bit hash where seed is the initial value.
// Pass FNV1Init to get the standard FNV-1 digest.
func FNV1(data []byte, seed uint64) uint64 {
	// inlined to avoid the hash.Hash64 allocation on every row lookup
	h := seed
	for _, b := range data {
		h *= fnv1Prime
		h ^= uint64(b)
	}
	return h
}
