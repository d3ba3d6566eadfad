package session

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/frame"
)

func newTestRegistry() *Registry {
	return New(zerolog.Nop())
}

func TestRegisterAndGet(t *testing.T) {
	r := newTestRegistry()
	c := r.Register("user-1")
	if c.ID == "" {
		t.Fatal("expected a minted client id")
	}
	got, ok := r.Get(c.ID)
	if !ok || got != c {
		t.Fatal("expected to retrieve the registered client")
	}
}

func TestJoinReplacesPreviousBoard(t *testing.T) {
	r := newTestRegistry()
	c := r.Register("user-1")

	r.Join(c.ID, "board-a")
	if c.BoardID() != "board-a" {
		t.Fatalf("expected board-a, got %q", c.BoardID())
	}
	if len(r.IterateClients("board-a")) != 1 {
		t.Fatal("expected client in board-a roster")
	}

	r.Join(c.ID, "board-b")
	if c.BoardID() != "board-b" {
		t.Fatalf("expected board-b, got %q", c.BoardID())
	}
	if len(r.IterateClients("board-a")) != 0 {
		t.Fatal("expected client removed from board-a roster")
	}
	if len(r.IterateClients("board-b")) != 1 {
		t.Fatal("expected client in board-b roster")
	}
}

func TestPartClearsMembershipNotClient(t *testing.T) {
	r := newTestRegistry()
	c := r.Register("user-1")
	r.Join(c.ID, "board-a")

	r.Part(c.ID)
	if c.BoardID() != "" {
		t.Fatalf("expected no board, got %q", c.BoardID())
	}
	if _, ok := r.Get(c.ID); !ok {
		t.Fatal("expected client to remain registered after part")
	}
}

func TestUnregisterRemovesFromBoardRoster(t *testing.T) {
	r := newTestRegistry()
	c := r.Register("user-1")
	r.Join(c.ID, "board-a")

	r.Unregister(c.ID)
	if _, ok := r.Get(c.ID); ok {
		t.Fatal("expected client to be gone")
	}
	if len(r.IterateClients("board-a")) != 0 {
		t.Fatal("expected empty roster after unregister")
	}
}

func TestBroadcastSkipsExcept(t *testing.T) {
	r := newTestRegistry()
	a := r.Register("user-a")
	b := r.Register("user-b")
	r.Join(a.ID, "board-1")
	r.Join(b.ID, "board-1")

	f := frame.New("cursor:moved", frame.Data{"x": 1.0})
	r.Broadcast("board-1", f, a.ID)

	select {
	case <-a.Outbound():
		t.Fatal("expected sender to be excluded from broadcast")
	default:
	}
	select {
	case got := <-b.Outbound():
		if got.Syscall != "cursor:moved" {
			t.Fatalf("unexpected frame: %+v", got)
		}
	default:
		t.Fatal("expected peer to receive broadcast frame")
	}
}

func TestSendDropsOldestOnOverflow(t *testing.T) {
	r := newTestRegistry()
	c := r.Register("user-1")

	for i := 0; i < outboundQueueSize+10; i++ {
		r.Send(c.ID, frame.New("cursor:moved", frame.Data{"i": i}))
	}

	count := 0
	var last *frame.Frame
	for {
		select {
		case f := <-c.Outbound():
			last = f
			count++
			continue
		default:
		}
		break
	}
	if count != outboundQueueSize {
		t.Fatalf("expected queue capped at %d, got %d", outboundQueueSize, count)
	}
	if last == nil || last.Data["i"] != outboundQueueSize+9 {
		t.Fatalf("expected newest frame retained, got %+v", last)
	}
}
