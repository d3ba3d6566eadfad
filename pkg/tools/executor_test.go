package tools

import (
	"context"
	"testing"

	"github.com/collabboard/server/pkg/boardstore"
)

func TestExecutorRunsKnownTool(t *testing.T) {
	store := boardstore.New()
	bs, _ := store.GetOrCreate("board-1")
	call := &Call{Board: bs, BoardID: "board-1", ActorID: "ai"}

	exec := NewExecutor(NewCatalogRegistry())
	res, err := exec.Execute(context.Background(), call, "call-1", "createStickyNote", map[string]any{
		"x": 0.0, "y": 0.0, "text": "hi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Summary)
	}
}

func TestExecutorRejectsDuplicateCallID(t *testing.T) {
	store := boardstore.New()
	bs, _ := store.GetOrCreate("board-1")
	call := &Call{Board: bs, BoardID: "board-1", ActorID: "ai"}

	exec := NewExecutor(NewCatalogRegistry())
	input := map[string]any{"x": 0.0, "y": 0.0, "text": "hi"}
	if _, err := exec.Execute(context.Background(), call, "dup-1", "createStickyNote", input); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}
	if _, err := exec.Execute(context.Background(), call, "dup-1", "createStickyNote", input); err == nil {
		t.Fatal("expected an error for a replayed call id")
	}
}

func TestExecutorUnknownToolIsResultError(t *testing.T) {
	store := boardstore.New()
	bs, _ := store.GetOrCreate("board-1")
	call := &Call{Board: bs, BoardID: "board-1", ActorID: "ai"}

	exec := NewExecutor(NewCatalogRegistry())
	res, err := exec.Execute(context.Background(), call, "call-2", "deleteEverything", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected a result-level error for an unknown tool")
	}
}

func TestRegistryAllIsSortedAndComplete(t *testing.T) {
	reg := NewCatalogRegistry()
	all := reg.All()
	if len(all) != 12 {
		t.Fatalf("expected 12 catalog tools, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name >= all[i].Name {
			t.Fatalf("expected sorted tool names, got %s before %s", all[i-1].Name, all[i].Name)
		}
	}
}
