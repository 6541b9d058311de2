package admission

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_AllowsUpToCeiling(t *testing.T) {
	c := New(3)

	require.NoError(t, c.Acquire())
	require.NoError(t, c.Acquire())
	require.NoError(t, c.Acquire())
	assert.EqualValues(t, 3, c.InFlight())
}

func TestAcquire_RejectsBeyondCeiling(t *testing.T) {
	c := New(1)

	require.NoError(t, c.Acquire())
	err := c.Acquire()

	require.ErrorIs(t, err, ErrThrottled)
	assert.EqualValues(t, 1, c.InFlight(), "a rejected Acquire must not leave a phantom slot held")
}

func TestRelease_FreesASlot(t *testing.T) {
	c := New(1)

	require.NoError(t, c.Acquire())
	c.Release()
	assert.EqualValues(t, 0, c.InFlight())

	require.NoError(t, c.Acquire())
}

func TestAcquire_NeverExceedsCeilingUnderConcurrency(t *testing.T) {
	const ceiling = 10
	const attempts = 200

	c := New(ceiling)
	var wg sync.WaitGroup
	var admitted int64
	var mu sync.Mutex
	var peak int64

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Acquire(); err == nil {
				mu.Lock()
				admitted++
				if c.InFlight() > peak {
					peak = c.InFlight()
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int64(ceiling))
	assert.LessOrEqual(t, c.InFlight(), int64(ceiling))
}
