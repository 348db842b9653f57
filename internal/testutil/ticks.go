package testutil

import (
	"context"
	"sync"
)

// ScriptedTicks is a hand-driven ceremony.TickSource. Tests call Tick with
// the seconds remaining they want the trigger to observe.
//
// Unlike countdown.Ticker it never touches the wall clock, so a scenario can
// jump straight to the deadline second.
//
// Thread-safety: all methods are safe for concurrent use.
type ScriptedTicks struct {
	mu   sync.Mutex
	subs []chan int
}

// NewScriptedTicks creates an idle tick source.
func NewScriptedTicks() *ScriptedTicks {
	return &ScriptedTicks{}
}

// Ticks subscribes to scripted ticks. The channel closes when ctx ends.
func (s *ScriptedTicks) Ticks(ctx context.Context) <-chan int {
	ch := make(chan int, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

// Subscribers reports how many Ticks subscriptions are live.
func (s *ScriptedTicks) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Tick broadcasts a seconds-remaining value to all subscribers.
func (s *ScriptedTicks) Tick(secs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- secs:
		default:
		}
	}
}
