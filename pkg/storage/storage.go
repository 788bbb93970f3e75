// Package storage defines the registry of named sketches served by the application.
package storage

import (
	"context"

	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	sharded "github.com/Borislavv/count-min-sketch/pkg/storage/map"
)

// Registry is a set of named sketches. Implemented by sharded.Map and lru.Storage.
type Registry interface {
	// Get returns the named sketch.
	Get(name string) (*sketch.Locked, bool)

	// GetOrCreate returns the named sketch, building it with factory on first use.
	GetOrCreate(name string, factory sharded.Factory) (*sketch.Locked, error)

	// Remove destroys the named sketch and reports whether it was registered.
	Remove(name string) bool

	// Walk calls fn for every sketch until it returns false or ctx is done.
	Walk(ctx context.Context, fn func(name string, s *sketch.Locked) bool)

	// Len returns the number of sketches.
	Len() int64

	// Mem returns the bytes held by counters of all sketches.
	Mem() int64
}
