package dispatch

import "sync"

// hydrationSet tracks which boards have had their chat log pulled from
// durable storage into the in-memory chat.Store, mirroring the
// once-per-residency hydration boardstore.BoardState itself performs for
// objects (spec §4.H "Hydrate"). Chat has no dirty/residency bookkeeping of
// its own, so the dispatcher owns this one-shot flag instead.
type hydrationSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newHydrationSet() *hydrationSet {
	return &hydrationSet{seen: make(map[string]bool)}
}

// claim reports whether boardID was not yet marked hydrated, marking it so
// as a side effect. The first caller for a board gets true and should do
// the hydration work; everyone after gets false.
func (s *hydrationSet) claim(boardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[boardID] {
		return false
	}
	s.seen[boardID] = true
	return true
}

// forget drops a board's hydrated flag, called on eviction so the next
// first-join rehydrates from storage again.
func (s *hydrationSet) forget(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, boardID)
}
