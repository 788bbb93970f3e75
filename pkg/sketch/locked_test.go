package sketch

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockedConcurrentUpdates(t *testing.T) {
	l := NewLocked(newDefault(t, 0))

	const (
		workers = 8
		perWork = 1000
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				_, err := l.Update([]byte("bin-1"), 1)
				assert.NoError(t, err)
				_, err = l.Estimate([]byte("bin-1"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	est, err := l.Estimate([]byte("bin-1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*perWork), est)
	assert.Equal(t, uint32(20000), l.Params().Width())
}

func TestLockedDestroy(t *testing.T) {
	l := NewLocked(newDefault(t, RecommendedDecayRatio))
	l.Destroy()

	_, err := l.Update([]byte("bin-1"), 1)
	assert.True(t, errors.Is(err, ErrUninitialized))
	_, err = l.Estimate([]byte("bin-1"))
	assert.True(t, errors.Is(err, ErrUninitialized))
}
