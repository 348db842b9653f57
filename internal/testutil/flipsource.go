package testutil

import (
	"context"
	"sync"

	"github.com/perales/rite/internal/ceremony"
)

// MemoryFlipSource is a scripted ceremony.FlipSource. Tests install a hash
// list and per-hash content; content can be withheld for a number of calls to
// exercise the missing-flip retry path.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryFlipSource struct {
	mu          sync.Mutex
	requests    []ceremony.FlipRequest
	contents    map[string]string
	withhold    map[string]int
	failHashes  int
	failContent int

	hashesCalls   int
	contentsCalls [][]string
}

// NewMemoryFlipSource creates an empty flip source.
func NewMemoryFlipSource() *MemoryFlipSource {
	return &MemoryFlipSource{
		contents: make(map[string]string),
		withhold: make(map[string]int),
	}
}

// SetHashes installs the hash list served by FlipHashes.
func (m *MemoryFlipSource) SetHashes(reqs ...ceremony.FlipRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = reqs
}

// SetContent installs the hex payload served for hash.
func (m *MemoryFlipSource) SetContent(hash, hex string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents[hash] = hex
}

// Withhold makes the next n content requests for hash come back empty, as a
// live gateway does while the flip is still propagating.
func (m *MemoryFlipSource) Withhold(hash string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withhold[hash] = n
}

// FailNextHashes makes the next n FlipHashes calls return ErrScripted.
func (m *MemoryFlipSource) FailNextHashes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failHashes = n
}

// FailNextContents makes the next n FlipContents calls return ErrScripted.
func (m *MemoryFlipSource) FailNextContents(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failContent = n
}

// FlipHashes implements ceremony.FlipSource.
func (m *MemoryFlipSource) FlipHashes(context.Context) ([]ceremony.FlipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashesCalls++
	if m.failHashes > 0 {
		m.failHashes--
		return nil, ErrScripted
	}
	out := make([]ceremony.FlipRequest, len(m.requests))
	copy(out, m.requests)
	return out, nil
}

// FlipContents implements ceremony.FlipSource. Hashes without installed or
// currently withheld content are simply absent from the response.
func (m *MemoryFlipSource) FlipContents(_ context.Context, hashes []string) ([]ceremony.FlipContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentsCalls = append(m.contentsCalls, append([]string(nil), hashes...))
	if m.failContent > 0 {
		m.failContent--
		return nil, ErrScripted
	}
	var out []ceremony.FlipContent
	for _, h := range hashes {
		if m.withhold[h] > 0 {
			m.withhold[h]--
			continue
		}
		hex, ok := m.contents[h]
		if !ok {
			continue
		}
		out = append(out, ceremony.FlipContent{Hash: h, Hex: hex})
	}
	return out, nil
}

// HashesCalls reports how many times FlipHashes was invoked.
func (m *MemoryFlipSource) HashesCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashesCalls
}

// ContentsCalls returns the hash lists passed to FlipContents, in order.
func (m *MemoryFlipSource) ContentsCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.contentsCalls))
	copy(out, m.contentsCalls)
	return out
}
