package ceremony

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator mints attempt tokens. Every trigger firing gets one token
// that ties together its log lines and its journal row, so a resubmission
// after a crash is distinguishable from a duplicate delivery.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator mints time-sortable UUIDv7 attempt tokens. Sorting the
// journal by token reproduces attempt order. Stateless and safe for
// concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string. Panics only if the
// system's entropy source fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a predetermined token sequence, for deterministic
// tests and golden traces. Safe for concurrent use.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator returns a generator that yields tokens in order and
// panics when they run out, catching tests that fire more submissions than
// they meant to.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate hands out the scripted tokens in order.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("ceremony: fixed token generator exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
