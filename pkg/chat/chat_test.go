package chat

import (
	"testing"

	"github.com/collabboard/server/pkg/boarderrors"
)

func TestSendTrimsMessage(t *testing.T) {
	store := New()
	msg, err := store.Send("board-1", "user-1", "  hello  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Message != "hello" {
		t.Fatalf("expected trimmed message, got %q", msg.Message)
	}
}

func TestSendRejectsEmpty(t *testing.T) {
	store := New()
	_, err := store.Send("board-1", "user-1", "   ")
	be, ok := boarderrors.As(err)
	if !ok || be.ErrCode != boarderrors.CodeValidation {
		t.Fatalf("expected E_VALIDATION, got %v", err)
	}
}

func TestHistoryOrderedByTimestamp(t *testing.T) {
	store := New()
	store.Send("board-1", "user-1", "first")
	store.Send("board-1", "user-2", "second")

	history := store.History("board-1")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Message != "first" || history[1].Message != "second" {
		t.Fatalf("unexpected order: %+v", history)
	}
}

func TestHistoryIsolatedPerBoard(t *testing.T) {
	store := New()
	store.Send("board-1", "user-1", "hi")
	if len(store.History("board-2")) != 0 {
		t.Fatal("expected board-2 history to be empty")
	}
}
