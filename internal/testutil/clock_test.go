package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_FrozenUntilMoved(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	assert.True(t, clock.Now().Equal(start))
	assert.True(t, clock.Now().Equal(start), "time must not pass between reads")
}

func TestManualClock_AdvanceAccumulates(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	moved := clock.Advance(90 * time.Second)
	assert.True(t, moved.Equal(start.Add(90*time.Second)))

	clock.Advance(30 * time.Minute)
	assert.True(t, clock.Now().Equal(start.Add(90*time.Second+30*time.Minute)))
}

func TestManualClock_SetOverrides(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	target := time.Date(2024, 6, 9, 13, 30, 0, 0, time.UTC)
	clock.Set(target)
	assert.True(t, clock.Now().Equal(target))
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = clock.Now()
		}()
	}
	wg.Wait()

	want := time.Date(2024, 3, 1, 12, 0, 50, 0, time.UTC)
	assert.True(t, clock.Now().Equal(want), "every Advance must land")
}
