package ceremony

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StateBeforeRun(t *testing.T) {
	s := NewStore(NewState(8))

	assert.Equal(t, uint32(8), s.State().Epoch)
	assert.Equal(t, int64(0), s.Seq())
}

func TestStore_AppliesDispatchedEvents(t *testing.T) {
	s := startStore(t, NewState(3))

	ok := s.Dispatch(FlipsFetched{
		Requests: []FlipRequest{{Hash: "h1", Ready: true}},
		Contents: []FlipContent{{Hash: "h1", Hex: validContentHex}},
	})
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return len(s.State().Flips) == 1
	}, time.Second, time.Millisecond)

	st := s.State()
	assert.False(t, st.Loading)
	assert.True(t, st.Flips[0].Decoded())
	assert.Equal(t, int64(1), s.Seq())
}

func TestStore_DispatchOrderPreserved(t *testing.T) {
	var mu sync.Mutex
	var kinds []string

	s := startStore(t, sessionState(1, 3), WithObserver(func(a Applied) {
		mu.Lock()
		kinds = append(kinds, Kind(a.Event))
		mu.Unlock()
	}))

	s.Dispatch(NextFlip{})
	s.Dispatch(NextFlip{})
	s.Dispatch(PrevFlip{})
	s.Dispatch(FlipAnswered{Option: AnswerLeft})

	require.Eventually(t, func() bool { return s.Seq() == 4 }, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"next_flip", "next_flip", "prev_flip", "flip_answered"}, kinds)

	st := s.State()
	assert.Equal(t, 1, st.Current)
	require.NotNil(t, st.Flips[1].Answer)
	assert.Equal(t, AnswerLeft, *st.Flips[1].Answer)
}

func TestStore_ObserverSeesContiguousSeqs(t *testing.T) {
	var mu sync.Mutex
	var seqs []int64

	s := startStore(t, sessionState(1, 2), WithObserver(func(a Applied) {
		mu.Lock()
		seqs = append(seqs, a.Seq)
		mu.Unlock()
	}))

	const dispatchers = 8
	const each = 25

	var wg sync.WaitGroup
	for d := 0; d < dispatchers; d++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				s.Dispatch(NextFlip{})
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return s.Seq() == int64(dispatchers*each)
	}, 5*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seqs, dispatchers*each)
	for i, seq := range seqs {
		require.Equal(t, int64(i+1), seq, "apply order must be a total order")
	}
}

func TestStore_SnapshotsAreStable(t *testing.T) {
	s := startStore(t, sessionState(1, 1))

	before := s.State()
	require.Nil(t, before.Flips[0].Answer)

	s.Dispatch(FlipAnswered{Option: AnswerRight})
	require.Eventually(t, func() bool {
		return s.State().Flips[0].Answer != nil
	}, time.Second, time.Millisecond)

	// The snapshot taken before the event still shows the old world.
	assert.Nil(t, before.Flips[0].Answer)
}

func TestStore_StopDrainsThenReturnsNil(t *testing.T) {
	s := NewStore(sessionState(1, 2))

	for i := 0; i < 50; i++ {
		require.True(t, s.Dispatch(NextFlip{}))
	}
	s.Stop()

	err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), s.Seq(), "queued events apply before shutdown")

	assert.False(t, s.Dispatch(NextFlip{}), "dispatch after stop is rejected")
}

func TestStore_ContextCancelReturnsErr(t *testing.T) {
	s := NewStore(NewState(1))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestStore_InitialStateIsolated(t *testing.T) {
	initial := sessionState(1, 1)
	s := NewStore(initial)

	initial.Flips[0].Answer = answerPtr(AnswerLeft)

	assert.Nil(t, s.State().Flips[0].Answer, "caller mutations must not reach the store")
}
