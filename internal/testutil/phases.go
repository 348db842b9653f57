// Package testutil provides scripted sources and in-memory port doubles for
// driving the ceremony state machine deterministically in tests and
// scenarios.
package testutil

import (
	"context"
	"sync"

	"github.com/perales/rite/internal/ceremony"
)

// ScriptedPhases is a hand-driven ceremony.PhaseSource.
//
// Tests call Advance to move the cycle; every live subscription receives the
// new phase. Each Changes call gets its own buffered feed, so the watcher and
// the fetcher can subscribe independently.
//
// Thread-safety: all methods are safe for concurrent use.
type ScriptedPhases struct {
	mu      sync.Mutex
	current ceremony.Phase
	subs    []chan ceremony.Phase
}

// NewScriptedPhases creates a phase source resting at initial.
func NewScriptedPhases(initial ceremony.Phase) *ScriptedPhases {
	return &ScriptedPhases{current: initial}
}

// Current returns the most recently scripted phase.
func (s *ScriptedPhases) Current() ceremony.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Changes subscribes to phase updates. The channel closes when ctx ends.
func (s *ScriptedPhases) Changes(ctx context.Context) <-chan ceremony.Phase {
	ch := make(chan ceremony.Phase, 64)
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

// Subscribers reports how many Changes subscriptions are live. Drivers use it
// to hold scripted input until every consumer is listening.
func (s *ScriptedPhases) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Advance scripts the next phase and broadcasts it to all subscribers. A
// subscriber that has fallen 64 deliveries behind is skipped; scripted tests
// never queue that deep.
func (s *ScriptedPhases) Advance(p ceremony.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
	for _, ch := range s.subs {
		select {
		case ch <- p:
		default:
		}
	}
}
