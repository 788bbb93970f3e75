// Package lru bounds the memory held by a registry of sketches by evicting the least
// recently used ones.
package lru

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/list"
	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	sharded "github.com/Borislavv/count-min-sketch/pkg/storage/map"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/rs/zerolog/log"
)

// entry is the recency handle of one registered sketch.
type entry struct {
	name string
	mem  int64
}

func (e *entry) Weight() int64 {
	return e.mem
}

// Storage is a memory-bounded registry of sketches. Once the counters of all sketches exceed
// the configured threshold, the least recently used sketches are destroyed.
type Storage struct {
	ctx             context.Context
	cfg             *config.Cms
	shardedMap      *sharded.Map
	mu              sync.Mutex                       // orders map mutations with recency bookkeeping
	lruList         *list.List[*entry]               // most recently used at the front
	elems           map[string]*list.Element[*entry] // sketch name -> lru element
	mem             atomic.Int64                     // counter bytes of tracked sketches
	memLimit        int64                            // a single sketch above it is never admitted
	memoryThreshold int64                            // eviction starts above it
	evictor         *Evict
}

// NewStorage wraps shardedMap; cfg.Cms.Registry.MemLimit must be positive.
func NewStorage(ctx context.Context, cfg *config.Cms, shardedMap *sharded.Map) *Storage {
	limit := cfg.Cms.Registry.MemLimit
	s := &Storage{
		ctx:             ctx,
		cfg:             cfg,
		shardedMap:      shardedMap,
		lruList:         list.New[*entry](),
		elems:           make(map[string]*list.Element[*entry]),
		memLimit:        limit,
		memoryThreshold: int64(float64(limit) * cfg.Cms.Registry.EvictionThreshold),
	}
	s.evictor = newEvictor(ctx, cfg, s)
	return s
}

// Run starts the background loggers.
func (s *Storage) Run() {
	s.evictor.Run()
	s.runLogger()
}

// Get retrieves a sketch by name and marks it as recently used.
func (s *Storage) Get(name string) (*sketch.Locked, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found := s.shardedMap.Get(name)
	if found {
		s.touch(name, value)
	}
	return value, found
}

// GetOrCreate returns the named sketch, building it with factory on first use. Creating a
// sketch evicts the least recently used others while the registry is over its threshold.
func (s *Storage) GetOrCreate(name string, factory sharded.Factory) (*sketch.Locked, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.shardedMap.GetOrCreate(name, s.admit(factory))
	if err != nil {
		return nil, err
	}
	s.touch(name, value)

	if s.ShouldEvict() {
		s.evictor.evictUntilWithinLimit(name)
	}
	return value, nil
}

// admit rejects sketches which could never fit into the registry.
func (s *Storage) admit(factory sharded.Factory) sharded.Factory {
	return func() (*sketch.Sketch, error) {
		sk, err := factory()
		if err != nil {
			return nil, err
		}
		if mem := sk.Params().Mem(); mem > s.memLimit {
			sk.Destroy()
			return nil, fmt.Errorf("%w: sketch needs %s, registry limit is %s",
				sketch.ErrResourceExhausted, utils.FmtMem(mem), utils.FmtMem(s.memLimit))
		}
		return sk, nil
	}
}

// Remove destroys the named sketch. Returns false when it was not registered.
func (s *Storage) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(name)
}

func (s *Storage) remove(name string) bool {
	if el, ok := s.elems[name]; ok {
		delete(s.elems, name)
		s.mem.Add(-s.lruList.Remove(el).Weight())
	}
	return s.shardedMap.Remove(name)
}

// touch moves the sketch to the front of the lru list, registering it on first sight.
func (s *Storage) touch(name string, value *sketch.Locked) {
	if el, ok := s.elems[name]; ok {
		s.lruList.MoveToFront(el)
		return
	}
	e := &entry{name: name, mem: value.Params().Mem()}
	s.elems[name] = s.lruList.PushFront(e)
	s.mem.Add(e.mem)
}

// victim returns the least recently used sketch.
func (s *Storage) victim() (*entry, bool) {
	el := s.lruList.Back()
	if el == nil {
		return nil, false
	}
	return el.Value(), true
}

func (s *Storage) Walk(ctx context.Context, fn func(name string, sk *sketch.Locked) bool) {
	s.shardedMap.Walk(ctx, fn)
}

func (s *Storage) Len() int64 {
	return s.shardedMap.Len()
}

// Mem returns the counter bytes of all registered sketches.
func (s *Storage) Mem() int64 {
	return s.mem.Load()
}

// ShouldEvict reports whether the registry holds more than its eviction threshold.
func (s *Storage) ShouldEvict() bool {
	return s.Mem() > s.memoryThreshold
}

// runLogger emits registry usage every 5 seconds when stats logging is enabled.
func (s *Storage) runLogger() {
	if !s.cfg.Cms.Logs.Stats {
		return
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				var (
					realMem    = s.Mem()
					mem        = utils.FmtMem(realMem)
					length     = strconv.Itoa(int(s.Len()))
					limit      = utils.FmtMem(s.memLimit)
					goroutines = strconv.Itoa(runtime.NumGoroutine())
				)

				logEvent := log.Info()

				if s.cfg.IsProd() {
					logEvent.
						Str("target", "registry").
						Str("mem", strconv.Itoa(int(realMem))).
						Str("memStr", mem).
						Str("len", length).
						Str("memLimit", strconv.Itoa(int(s.memLimit))).
						Str("memLimitStr", limit).
						Str("goroutines", goroutines)
				}

				logEvent.Msgf("[registry][5s] usage: %s, len: %s, limit: %s, goroutines: %s",
					mem, length, limit, goroutines)
			}
		}
	}()
}
