package trace

import "github.com/collabboard/server/pkg/frame"

// Span is one request matched to its terminal (done/error) reply.
type Span struct {
	Request  *frame.Frame
	Terminal *frame.Frame
}

// PairResult is the outcome of pairing a batch of entries into spans.
type PairResult struct {
	Spans   []Span
	Pending []*frame.Frame // requests with no terminal reply observed yet
}

// PairSpans matches each request-status frame to the done/error frame that
// terminates it. A terminal reply carries the originating request's id as
// its ParentID (frame.Frame.Reply); spans are queued per (request id,
// syscall) and matched FIFO so a buffer holding duplicate or replayed
// entries for the same id still pairs in arrival order rather than
// cross-wiring unrelated spans.
func PairSpans(entries []Entry) PairResult {
	type key struct {
		id      string
		syscall string
	}
	pending := map[key][]*frame.Frame{}
	order := []key{}

	var spans []Span
	for _, e := range entries {
		f := e.Frame
		switch f.Status {
		case frame.StatusRequest:
			k := key{id: f.ID, syscall: f.Syscall}
			if _, seen := pending[k]; !seen {
				order = append(order, k)
			}
			pending[k] = append(pending[k], f)
		case frame.StatusDone, frame.StatusError:
			if f.ParentID == nil {
				continue
			}
			k := key{id: *f.ParentID, syscall: f.Syscall}
			q := pending[k]
			if len(q) == 0 {
				continue
			}
			spans = append(spans, Span{Request: q[0], Terminal: f})
			pending[k] = q[1:]
		}
	}

	var leftover []*frame.Frame
	for _, k := range order {
		leftover = append(leftover, pending[k]...)
	}
	return PairResult{Spans: spans, Pending: leftover}
}
