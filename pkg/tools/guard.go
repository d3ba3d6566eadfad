package tools

import (
	"sync"
	"time"
)

// Guard tracks in-flight tool_use_id values for the duration of one AI
// turn's tool loop, rejecting a duplicate id the model (or a retried
// stream) resubmits mid-loop. Narrowed to a single tool-loop lifetime
// instead of a persistent background-swept cache: an AI turn's tool loop
// is short and bounded (spec §4.K "MAX_TOOL_ITERATIONS = 10"), so there is
// nothing to sweep.
type Guard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewGuard returns an empty guard, scoped to one tool loop.
func NewGuard() *Guard {
	return &Guard{seen: make(map[string]time.Time)}
}

// Register marks callID as in-flight. Returns false if callID was already
// registered in this loop.
func (g *Guard) Register(callID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.seen[callID]; exists {
		return false
	}
	g.seen[callID] = time.Now()
	return true
}

// Seen reports whether callID has already been registered.
func (g *Guard) Seen(callID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[callID]
	return ok
}
