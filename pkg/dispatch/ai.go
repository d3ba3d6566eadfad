package dispatch

import (
	"context"
	"strings"

	"github.com/collabboard/server/pkg/ai"
	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/session"
	"github.com/collabboard/server/pkg/storage"
	"github.com/collabboard/server/pkg/tools"
)

// handleAiPrompt drives one full AI turn: the orchestrator's tool loop runs
// against the resident board, and every resulting mutation is broadcast as
// its own object:* frame to all board peers, including the requesting
// sender (spec §4.D "ai:prompt" row: "each resulting object:* is broadcast
// as above").
func handleAiPrompt(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	if d.Orchestrator == nil {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeLLM), "no language model provider is configured"))
		return
	}
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board is not resident: "+boardID))
		return
	}
	prompt, _ := stringField(req.Data, "prompt")

	var cursor *ai.Cursor
	if x, okX := floatField(req.Data, "cursor_x"); okX {
		if y, okY := floatField(req.Data, "cursor_y"); okY {
			cursor = &ai.Cursor{X: x, Y: y}
		}
	}

	result, err := d.Orchestrator.Run(ctx, bs, d.ToolCatalog, "ai", ai.PromptInput{
		BoardID: boardID, UserID: client.UserID, Prompt: prompt, Cursor: cursor,
	}, func(m boardmodel.AiMutation) {
		d.broadcastAiMutation(boardID, m, bs)
	})
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}

	d.Sessions.Send(client.ID, req.Done("ai:prompt", frame.Data{
		"text": result.Text, "mutation_count": len(result.Mutations),
	}))
}

// broadcastAiMutation turns one AI tool mutation into the corresponding
// object:* broadcast, mirroring what a human edit's dispatcher handler
// would have sent, but fanned to every peer (the sender included, since
// the sender never issued the object:* request itself).
func (d *Dispatcher) broadcastAiMutation(boardID string, m boardmodel.AiMutation, bs interface {
	GetObject(string) (*boardmodel.Object, bool)
}) {
	switch m.Op {
	case "create", "update":
		obj, ok := bs.GetObject(m.ObjectID)
		if !ok {
			return
		}
		d.Sessions.Broadcast(boardID, gossip("object:"+m.Op, boardID, frame.Data{"object": obj}, "ai"), "")
	case "delete":
		d.Sessions.Broadcast(boardID, gossip("object:delete", boardID, frame.Data{"id": m.ObjectID}, "ai"), "")
	}
}

// handleAiHistory answers with the caller's prior turns on this board (spec
// §4.D "ai:history" row).
func handleAiHistory(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	limit := intField(req.Data, "limit", ai.DefaultHistoryWindow)
	turns, err := d.DB.RecentAiTurns(boardID, client.UserID, limit)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("ai:history", frame.Data{"messages": toAiHistoryItems(turns)}))
}

func toAiHistoryItems(turns []storage.AiTurn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		out = append(out, map[string]any{"role": t.Role, "content": t.Content, "ts": t.TS})
	}
	return out
}

// handleToolCall invokes a single catalog tool directly, outside the AI
// loop, replying with its summary and broadcasting any mutations it made
// (spec §4.D "tool:<name>" row).
func handleToolCall(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board is not resident: "+boardID))
		return
	}
	name := strings.TrimPrefix(req.Syscall, "tool:")
	executor := tools.NewExecutor(d.ToolCatalog)
	call := &tools.Call{Board: bs, BoardID: boardID, ActorID: client.UserID}

	result, err := executor.Execute(ctx, call, req.ID, name, req.Data)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}

	d.Sessions.Send(client.ID, req.Done(req.Syscall, frame.Data{
		"content": result.Summary, "mutations": result.Mutations, "is_error": result.IsError,
	}))
	for _, m := range result.Mutations {
		d.broadcastAiMutation(boardID, m, bs)
	}
}
