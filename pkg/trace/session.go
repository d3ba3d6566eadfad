package trace

import "github.com/collabboard/server/pkg/frame"

// GroupBySession walks each entry's ParentID chain to its root frame and
// buckets entries by that root id, so an observability UI can render one
// causal thread per originating request rather than a flat frame list.
func GroupBySession(entries []Entry) map[string][]Entry {
	byID := make(map[string]*frame.Frame, len(entries))
	for _, e := range entries {
		byID[e.Frame.ID] = e.Frame
	}

	groups := make(map[string][]Entry)
	for _, e := range entries {
		root := rootID(e.Frame, byID)
		groups[root] = append(groups[root], e)
	}
	return groups
}

// rootID walks f's ParentID chain until it reaches a frame with no parent
// (or one not present in byID, for a root whose originating request fell
// outside the buffer's retention window), returning that frame's id.
func rootID(f *frame.Frame, byID map[string]*frame.Frame) string {
	seen := make(map[string]bool)
	cur := f
	for cur.ParentID != nil {
		if seen[cur.ID] {
			break // defend against a cyclic parent chain
		}
		seen[cur.ID] = true
		parent, ok := byID[*cur.ParentID]
		if !ok {
			return *cur.ParentID
		}
		cur = parent
	}
	return cur.ID
}

// Filter is an allow-set over prefixes and statuses. A nil or empty set on
// either axis allows everything on that axis.
type Filter struct {
	Prefixes map[string]bool
	Statuses map[frame.Status]bool
}

// NewFilter builds a Filter from prefix and status allow-lists.
func NewFilter(prefixes []string, statuses []frame.Status) Filter {
	f := Filter{}
	if len(prefixes) > 0 {
		f.Prefixes = make(map[string]bool, len(prefixes))
		for _, p := range prefixes {
			f.Prefixes[p] = true
		}
	}
	if len(statuses) > 0 {
		f.Statuses = make(map[frame.Status]bool, len(statuses))
		for _, s := range statuses {
			f.Statuses[s] = true
		}
	}
	return f
}

// Allows reports whether e passes the filter.
func (f Filter) Allows(e Entry) bool {
	if f.Prefixes != nil && !f.Prefixes[e.Frame.Prefix()] {
		return false
	}
	if f.Statuses != nil && !f.Statuses[e.Frame.Status] {
		return false
	}
	return true
}

// Apply returns the subset of entries the filter allows, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Allows(e) {
			out = append(out, e)
		}
	}
	return out
}
