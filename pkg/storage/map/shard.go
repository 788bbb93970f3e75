package sharded

import (
	"context"
	"sync"

	"github.com/Borislavv/count-min-sketch/pkg/sketch"
)

// Shard is a single partition of the sharded map with its own lock.
type Shard struct {
	*sync.RWMutex                           // guards items only; each sketch has its own lock
	items         map[string]*sketch.Locked // sketch name -> sketch
	id            uint64
}

// NewShard creates a new shard with a preallocated items map.
func NewShard(id uint64, defaultLen int) *Shard {
	return &Shard{
		id:      id,
		RWMutex: &sync.RWMutex{},
		items:   make(map[string]*sketch.Locked, defaultLen),
	}
}

// ID returns the numeric index of this shard.
func (shard *Shard) ID() uint64 {
	return shard.id
}

func (shard *Shard) Len() int {
	shard.RLock()
	defer shard.RUnlock()
	return len(shard.items)
}

// Get retrieves a sketch by name.
func (shard *Shard) Get(name string) (value *sketch.Locked, isHit bool) {
	shard.RLock()
	value, isHit = shard.items[name]
	shard.RUnlock()
	return value, isHit
}

// GetOrCreate returns the existing sketch or stores the one built by factory.
// The factory runs under the shard write lock, so it is called at most once per name.
func (shard *Shard) GetOrCreate(name string, factory Factory) (value *sketch.Locked, created bool, err error) {
	if value, ok := shard.Get(name); ok {
		return value, false, nil
	}

	shard.Lock()
	defer shard.Unlock()

	if value, ok := shard.items[name]; ok {
		return value, false, nil
	}

	s, err := factory()
	if err != nil {
		return nil, false, err
	}
	value = sketch.NewLocked(s)
	shard.items[name] = value

	return value, true, nil
}

// Remove deletes the sketch from the shard and destroys it.
func (shard *Shard) Remove(name string) (isHit bool) {
	shard.Lock()
	v, ok := shard.items[name]
	if ok {
		delete(shard.items, name)
	}
	shard.Unlock()

	if ok {
		v.Destroy()
	}
	return ok
}

// Walk applies fn to every sketch in the shard under the read lock until fn returns false.
func (shard *Shard) Walk(ctx context.Context, fn func(string, *sketch.Locked) bool) bool {
	shard.RLock()
	defer shard.RUnlock()
	for k, v := range shard.items {
		select {
		case <-ctx.Done():
			return false
		default:
			if !fn(k, v) {
				return false
			}
		}
	}
	return true
}
