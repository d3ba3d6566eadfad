package trace

import (
	"testing"

	"github.com/collabboard/server/pkg/frame"
)

func TestBufferEvictsOldestPastCapacity(t *testing.T) {
	b := New(2)
	b.Record(frame.New("object:create", nil))
	b.Record(frame.New("object:update", nil))
	third := frame.New("object:delete", nil)
	b.Record(third)

	snap := b.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected capacity-bounded buffer to hold 2 entries, got %d", len(snap))
	}
	if snap[len(snap)-1].Frame.ID != third.ID {
		t.Fatalf("expected the most recent entry to survive eviction")
	}
}

func TestPrefixAndErrorCounts(t *testing.T) {
	b := New(10)
	req := frame.New("object:create", nil)
	b.Record(req)
	errFrame := req.ErrorFrame("E_VALIDATION", "bad input")
	b.Record(errFrame)
	b.Record(frame.New("cursor:moved", nil))

	counts := b.PrefixCounts()
	if counts["object"] != 2 || counts["cursor"] != 1 {
		t.Fatalf("unexpected prefix counts: %+v", counts)
	}

	errCounts := b.ErrorCounts()
	if errCounts["object"] != 1 {
		t.Fatalf("expected one object-prefixed error, got %+v", errCounts)
	}
}

func TestPairSpansMatchesRequestToTerminal(t *testing.T) {
	b := New(10)
	req := frame.New("board:join", nil)
	b.Record(req)
	done := req.Done("board:join", frame.Data{"ok": true})
	b.Record(done)

	result := PairSpans(b.Snapshot())
	if len(result.Spans) != 1 {
		t.Fatalf("expected one paired span, got %d", len(result.Spans))
	}
	if result.Spans[0].Request.ID != req.ID || result.Spans[0].Terminal.ID != done.ID {
		t.Fatalf("span paired the wrong frames: %+v", result.Spans[0])
	}
	if len(result.Pending) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(result.Pending))
	}
}

func TestPairSpansLeavesUnansweredRequestPending(t *testing.T) {
	b := New(10)
	req := frame.New("ai:prompt", nil)
	b.Record(req)

	result := PairSpans(b.Snapshot())
	if len(result.Spans) != 0 {
		t.Fatalf("expected no spans for an unanswered request, got %d", len(result.Spans))
	}
	if len(result.Pending) != 1 || result.Pending[0].ID != req.ID {
		t.Fatalf("expected the unanswered request to be pending, got %+v", result.Pending)
	}
}

func TestPendingRequestCountReflectsOpenSpans(t *testing.T) {
	b := New(10)
	req1 := frame.New("ai:prompt", nil)
	b.Record(req1)
	req2 := frame.New("board:join", nil)
	b.Record(req2)
	b.Record(req2.Done("board:join", nil))

	if n := b.PendingRequestCount(); n != 1 {
		t.Fatalf("expected 1 pending request, got %d", n)
	}
}

func TestGroupBySessionWalksParentChainToRoot(t *testing.T) {
	b := New(10)
	root := frame.New("ai:prompt", nil)
	b.Record(root)
	item := root.Item("object:create", nil)
	b.Record(item)
	done := root.Done("ai:prompt", nil)
	b.Record(done)
	unrelated := frame.New("cursor:moved", nil)
	b.Record(unrelated)

	groups := GroupBySession(b.Snapshot())
	if len(groups[root.ID]) != 3 {
		t.Fatalf("expected 3 entries grouped under the root session, got %d", len(groups[root.ID]))
	}
	if len(groups[unrelated.ID]) != 1 {
		t.Fatalf("expected the unrelated root request to form its own singleton group")
	}
}

func TestFilterAppliesPrefixAndStatusAllowSets(t *testing.T) {
	b := New(10)
	b.Record(frame.New("object:create", nil))
	b.Record(frame.New("cursor:moved", nil))
	req := frame.New("board:join", nil)
	b.Record(req)
	b.Record(req.ErrorFrame("E_VALIDATION", "nope"))

	f := NewFilter([]string{"object", "board"}, []frame.Status{frame.StatusRequest})
	filtered := f.Apply(b.Snapshot())
	if len(filtered) != 2 {
		t.Fatalf("expected 2 entries to pass the filter, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.Frame.Status != frame.StatusRequest {
			t.Fatalf("filter let a non-request status through: %+v", e.Frame)
		}
	}
}
