package testutil

import (
	"context"
	"sync"

	"github.com/perales/rite/internal/ceremony"
)

// Archive is one recorded ArchiveFlips call.
type Archive struct {
	Epoch uint32
	Flips []ceremony.Flip
}

// MemoryArchiver is a ceremony.FlipArchiver that records handovers.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryArchiver struct {
	mu       sync.Mutex
	archives []Archive
	fail     int
}

// NewMemoryArchiver creates an always-accepting archiver.
func NewMemoryArchiver() *MemoryArchiver {
	return &MemoryArchiver{}
}

// ArchiveFlips implements ceremony.FlipArchiver.
func (m *MemoryArchiver) ArchiveFlips(_ context.Context, epoch uint32, flips []ceremony.Flip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return ErrScripted
	}
	m.archives = append(m.archives, Archive{Epoch: epoch, Flips: flips})
	return nil
}

// FailNext makes the next n handovers return ErrScripted.
func (m *MemoryArchiver) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = n
}

// Archives returns the recorded handovers in order.
func (m *MemoryArchiver) Archives() []Archive {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Archive, len(m.archives))
	copy(out, m.archives)
	return out
}
