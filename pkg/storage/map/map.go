// Package sharded keeps named sketches in a fixed set of independently locked shards.
package sharded

import (
	"context"

	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
)

const NumOfShards uint64 = 64 // Total number of shards (power of 2 for fast hashing)

// Factory builds a new sketch for a name which is not registered yet.
type Factory func() (*sketch.Sketch, error)

// Map is a sharded registry of named sketches.
type Map struct {
	shards [NumOfShards]*Shard
}

// NewMap creates a new sharded map with preallocated shards and a default per-shard map capacity.
func NewMap(defaultLen int) *Map {
	m := &Map{}
	for id := uint64(0); id < NumOfShards; id++ {
		m.shards[id] = NewShard(id, defaultLen)
	}
	return m
}

// MapShardKey calculates the shard index for a given name.
func MapShardKey(name string) uint64 {
	return xxh3.HashString(name) & (NumOfShards - 1)
}

// Shard returns the shard that stores the given name.
func (smap *Map) Shard(name string) *Shard {
	return smap.shards[MapShardKey(name)]
}

func (smap *Map) Get(name string) (*sketch.Locked, bool) {
	return smap.Shard(name).Get(name)
}

// GetOrCreate returns the named sketch, building it with factory on first use.
func (smap *Map) GetOrCreate(name string, factory Factory) (*sketch.Locked, error) {
	value, created, err := smap.Shard(name).GetOrCreate(name, factory)
	if err != nil {
		return nil, err
	}
	if created {
		p := value.Params()
		log.Info().Msgf("[registry] sketch %q created (depth=%d, width=%d, mem=%s)",
			name, p.Depth(), p.Width(), utils.FmtMem(p.Mem()))
	}
	return value, nil
}

// Remove destroys the named sketch. Returns false when it was not registered.
func (smap *Map) Remove(name string) bool {
	if smap.Shard(name).Remove(name) {
		log.Info().Msgf("[registry] sketch %q removed", name)
		return true
	}
	return false
}

// Walk applies fn to every registered sketch until fn returns false or ctx is done.
func (smap *Map) Walk(ctx context.Context, fn func(name string, s *sketch.Locked) bool) {
	for _, shard := range smap.shards {
		if !shard.Walk(ctx, fn) {
			return
		}
	}
}

// Len returns the number of registered sketches (O(NumOfShards)).
func (smap *Map) Len() int64 {
	var n int64
	for _, shard := range smap.shards {
		n += int64(shard.Len())
	}
	return n
}

// Mem returns the bytes held by counter matrices of all registered sketches.
func (smap *Map) Mem() int64 {
	var mem int64
	smap.Walk(context.Background(), func(_ string, s *sketch.Locked) bool {
		mem += s.Params().Mem()
		return true
	})
	return mem
}
