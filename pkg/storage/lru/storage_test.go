package lru

import (
	"context"
	"errors"
	"testing"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	sharded "github.com/Borislavv/count-min-sketch/pkg/storage/map"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 200 x 7 counters of 8 bytes
const sketchMem = 200 * 7 * 8

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

func factory() (*sketch.Sketch, error) {
	return sketch.New(0.01, 0.99, 0)
}

func newStorage(t *testing.T, limit int64, threshold float64) *Storage {
	t.Helper()
	cfg := config.Default()
	cfg.Cms.Registry.MemLimit = limit
	cfg.Cms.Registry.EvictionThreshold = threshold
	require.NoError(t, cfg.Validate())
	return NewStorage(context.Background(), cfg, sharded.NewMap(8))
}

func mustCreate(t *testing.T, s *Storage, name string) *sketch.Locked {
	t.Helper()
	v, err := s.GetOrCreate(name, factory)
	require.NoError(t, err)
	return v
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s := newStorage(t, 3*sketchMem, 1)

	mustCreate(t, s, "a")
	mustCreate(t, s, "b")
	mustCreate(t, s, "c")
	assert.Equal(t, int64(3), s.Len())
	assert.Equal(t, int64(3*sketchMem), s.Mem())

	// a becomes the most recently used, b the least
	_, ok := s.Get("a")
	require.True(t, ok)

	mustCreate(t, s, "d")

	assert.Equal(t, int64(3), s.Len())
	assert.Equal(t, int64(3*sketchMem), s.Mem())
	_, ok = s.Get("b")
	assert.False(t, ok)
	for _, name := range []string{"a", "c", "d"} {
		_, ok = s.Get(name)
		assert.True(t, ok, name)
	}
}

func TestEvictedSketchIsDestroyed(t *testing.T) {
	s := newStorage(t, sketchMem, 1)

	first := mustCreate(t, s, "first")
	mustCreate(t, s, "second")

	_, err := first.Update([]byte("x"), 1)
	assert.True(t, errors.Is(err, sketch.ErrUninitialized))
	assert.Equal(t, int64(1), s.Len())
}

func TestThresholdBelowLimit(t *testing.T) {
	s := newStorage(t, 4*sketchMem, 0.5)

	mustCreate(t, s, "a")
	mustCreate(t, s, "b")
	assert.Equal(t, int64(2), s.Len())

	// a third sketch takes usage over half the limit
	mustCreate(t, s, "c")
	assert.Equal(t, int64(2), s.Len())
	assert.False(t, s.ShouldEvict())
}

func TestNewestSketchIsKept(t *testing.T) {
	// the threshold is below a single sketch
	s := newStorage(t, 2*sketchMem, 0.25)

	mustCreate(t, s, "a")
	mustCreate(t, s, "b")

	assert.Equal(t, int64(1), s.Len())
	_, ok := s.Get("b")
	assert.True(t, ok)
}

func TestRejectsSketchOverLimit(t *testing.T) {
	s := newStorage(t, sketchMem-1, 1)

	_, err := s.GetOrCreate("big", factory)
	assert.True(t, errors.Is(err, sketch.ErrResourceExhausted), "got %v", err)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Mem())
}

func TestRemove(t *testing.T) {
	s := newStorage(t, 2*sketchMem, 1)

	mustCreate(t, s, "a")
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Zero(t, s.Mem())
	assert.Zero(t, s.Len())

	var seen int
	mustCreate(t, s, "b")
	s.Walk(context.Background(), func(name string, _ *sketch.Locked) bool {
		seen++
		assert.Equal(t, "b", name)
		return true
	})
	assert.Equal(t, 1, seen)
}
