// Package trace is the optional observability companion (spec §4.N): a
// rolling buffer of recently observed frames plus the derivations an
// observability UI needs — per-prefix and error counts, pending-request
// counts, causal session grouping, and request→terminal span pairing. It
// is not wired into the server's hot path; nothing in the dispatcher or
// persistence worker depends on it. A caller (an observability CLI, or a
// test harness asserting on traffic shape) feeds it frames explicitly via
// Record.
package trace

import (
	"sync"

	"github.com/rs/xid"

	"github.com/collabboard/server/pkg/frame"
)

// Entry is one recorded frame, stamped with a buffer-local entry id.
type Entry struct {
	ID    string
	Frame *frame.Frame
}

// DefaultCapacity bounds the rolling buffer when none is given to New.
const DefaultCapacity = 4096

// Buffer is a fixed-capacity rolling log of observed frames. Oldest entries
// are evicted once capacity is exceeded, mirroring the persistence worker's
// mutex-protected append buffer (pkg/persistence.FrameLog), except this one
// is bounded and never drained wholesale.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// New builds an empty buffer with the given capacity. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Record appends f to the buffer, evicting the oldest entry if the buffer
// is already at capacity.
func (b *Buffer) Record(f *frame.Frame) Entry {
	e := Entry{ID: xid.New().String(), Frame: f}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = b.entries[over:]
	}
	return e
}

// Snapshot returns a copy of every entry currently held, oldest first.
func (b *Buffer) Snapshot() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports how many entries the buffer currently holds.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// PrefixCounts tallies entries by frame.Prefix().
func (b *Buffer) PrefixCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range b.Snapshot() {
		counts[e.Frame.Prefix()]++
	}
	return counts
}

// ErrorCounts tallies error-status entries by frame.Prefix().
func (b *Buffer) ErrorCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range b.Snapshot() {
		if e.Frame.Status == frame.StatusError {
			counts[e.Frame.Prefix()]++
		}
	}
	return counts
}

// PendingRequestCount returns the number of request-status frames that have
// not yet been matched to a terminal (done/error) reply by PairSpans.
func (b *Buffer) PendingRequestCount() int {
	return len(PairSpans(b.Snapshot()).Pending)
}
