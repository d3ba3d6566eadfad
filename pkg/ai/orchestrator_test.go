package ai

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/llm"
	"github.com/collabboard/server/pkg/storage"
	"github.com/collabboard/server/pkg/tools"
)

// fakeProvider replays a scripted sequence of responses, one per Chat call,
// so tests can drive the tool loop deterministically.
type fakeProvider struct {
	responses []*llm.ChatResponse
	calls     int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunEndsOnTextOnlyResponse(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.ChatResponse{
		{StopReason: llm.StopEndTurn, Content: []llm.Block{{Type: llm.BlockText, Text: "hello there"}}},
	}}
	db := newTestDB(t)
	orch := New(provider, db, "test-model", zerolog.Nop())
	store := boardstore.New()
	board, _ := store.GetOrCreate("board-1")
	registry := tools.NewCatalogRegistry()

	result, err := orch.Run(context.Background(), board, registry, "ai", PromptInput{
		BoardID: "board-1", UserID: "user-1", Prompt: "say hi",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "hello there" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if len(result.Mutations) != 0 {
		t.Fatalf("expected no mutations, got %+v", result.Mutations)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one chat call, got %d", provider.calls)
	}
}

func TestRunExecutesToolThenFinishes(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.ChatResponse{
		{StopReason: llm.StopToolUse, Content: []llm.Block{{
			Type: llm.BlockToolUse, ToolUseID: "call-1", ToolName: "createStickyNote",
			ToolInput: map[string]any{"x": 0.0, "y": 0.0, "text": "note"},
		}}},
		{StopReason: llm.StopEndTurn, Content: []llm.Block{{Type: llm.BlockText, Text: "done"}}},
	}}
	db := newTestDB(t)
	orch := New(provider, db, "test-model", zerolog.Nop())
	store := boardstore.New()
	board, _ := store.GetOrCreate("board-1")
	registry := tools.NewCatalogRegistry()

	var seen []string
	result, err := orch.Run(context.Background(), board, registry, "ai", PromptInput{
		BoardID: "board-1", UserID: "user-1", Prompt: "add a sticky",
	}, func(m boardmodel.AiMutation) { seen = append(seen, m.ObjectID) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "done" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if len(result.Mutations) != 1 || result.Mutations[0].Op != "create" {
		t.Fatalf("expected one create mutation, got %+v", result.Mutations)
	}
	if len(seen) != 1 {
		t.Fatalf("expected onMutation called once, got %d", len(seen))
	}
	if len(board.List()) != 1 {
		t.Fatal("expected the sticky note to land on the board")
	}
}

func TestRunExceedsToolIterationBudget(t *testing.T) {
	var responses []*llm.ChatResponse
	for i := 0; i < DefaultMaxToolIterations+2; i++ {
		responses = append(responses, &llm.ChatResponse{
			StopReason: llm.StopToolUse,
			Content: []llm.Block{{
				Type: llm.BlockToolUse, ToolUseID: uniqueID(i), ToolName: "getBoardState", ToolInput: map[string]any{},
			}},
		})
	}
	provider := &fakeProvider{responses: responses}
	db := newTestDB(t)
	orch := New(provider, db, "test-model", zerolog.Nop())
	store := boardstore.New()
	board, _ := store.GetOrCreate("board-1")
	registry := tools.NewCatalogRegistry()

	_, err := orch.Run(context.Background(), board, registry, "ai", PromptInput{
		BoardID: "board-1", UserID: "user-1", Prompt: "loop forever",
	}, nil)
	if err == nil {
		t.Fatal("expected an iteration budget error")
	}
}

func uniqueID(i int) string {
	return "call-" + string(rune('a'+i))
}
