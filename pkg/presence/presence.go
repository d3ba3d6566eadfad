// Package presence implements the presence & cursor service (spec §4.F): a
// per-board table of live cursor/camera state, rebroadcast to peers on
// every cursor:moved frame and cleared on cursor:clear or part.
package presence

import (
	"sync"

	"github.com/collabboard/server/pkg/boardmodel"
)

// Table is the per-board presence registry.
type Table struct {
	mu       sync.Mutex
	entries  map[string]*boardmodel.Presence // client id -> presence
}

// New returns an empty presence table.
func New() *Table {
	return &Table{entries: make(map[string]*boardmodel.Presence)}
}

// Update records cursor:moved state for clientID, stamping it server-side
// (spec §4.F "The server stamps client_id from the session").
func (t *Table) Update(clientID string, p boardmodel.Presence) boardmodel.Presence {
	p.ClientID = clientID
	t.mu.Lock()
	defer t.mu.Unlock()
	stored := p
	t.entries[clientID] = &stored
	return p
}

// Clear removes a client's cursor (cursor:clear), leaving it absent from
// List until the next cursor:moved.
func (t *Table) Clear(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, clientID)
}

// Remove drops a client entirely, called on board:part / disconnect.
func (t *Table) Remove(clientID string) {
	t.Clear(clientID)
}

// List returns the current presence table (board:users:list), snapshot
// copies so callers cannot mutate internal state.
func (t *Table) List() []boardmodel.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]boardmodel.Presence, 0, len(t.entries))
	for _, p := range t.entries {
		out = append(out, *p)
	}
	return out
}

// Registry is the per-board index of presence tables, mirroring
// boardstore.Store's registry-of-resident-state shape: one Table per
// board, looked up and created lazily as boards become resident.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry returns an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// GetOrCreate returns boardID's presence table, creating an empty one on
// first touch.
func (r *Registry) GetOrCreate(boardID string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[boardID]
	if !ok {
		t = New()
		r.tables[boardID] = t
	}
	return t
}

// Evict drops a board's presence table, called when the board is evicted
// from residency.
func (r *Registry) Evict(boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, boardID)
}
