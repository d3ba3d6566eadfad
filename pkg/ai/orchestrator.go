// Package ai is the AI orchestrator (spec §4.K): a bounded prompt → LLM →
// tool-call loop that turns one ai:prompt request into a text reply plus a
// stream of board mutations. The provider-neutral request/response shape
// and the one-task-per-inbound-request scoping (one Run call is one task,
// scoped to a single ai:prompt) follow the same per-request model used
// elsewhere in this codebase for inbound agent requests.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/aitokens"
	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/llm"
	"github.com/collabboard/server/pkg/storage"
	"github.com/collabboard/server/pkg/tools"
)

// DefaultMaxToolIterations bounds the tool-use loop (spec §4.K step 5
// "default 10").
const DefaultMaxToolIterations = 10

// DefaultHistoryWindow bounds how many prior turns are retrieved for
// context (spec §4.K step 2 "bounded window").
const DefaultHistoryWindow = 20

// DefaultSystemPromptBudget is the approximate token budget for the
// board-state description embedded in the system prompt (spec §4.K step 1
// "size-bound this context").
const DefaultSystemPromptBudget = 2000

// DefaultMaxTokens is the max_tokens passed on every LLM call.
const DefaultMaxTokens = 4096

// Cursor is an optional hint used to sample the board-state description by
// proximity when it would otherwise exceed budget (spec §4.K step 1
// "sample by proximity to the last cursor or by recency").
type Cursor struct {
	X, Y float64
}

// PromptInput is one ai:prompt request.
type PromptInput struct {
	BoardID string
	UserID  string
	Prompt  string
	Cursor  *Cursor // nil: objects are kept in the board store's unspecified order, with no recency ordering
}

// PromptResult is the terminal payload of a completed orchestration.
type PromptResult struct {
	Text      string
	Mutations []boardmodel.AiMutation
}

// Orchestrator drives one board's AI conversations against a provider and
// the fixed tool catalog.
type Orchestrator struct {
	provider          llm.Provider
	db                *storage.DB
	model             string
	maxToolIterations int
	historyWindow     int
	promptBudget      int
	maxTokens         int
	log               zerolog.Logger
}

// New builds an Orchestrator. model is passed through to the provider and
// used to size the tiktoken budget estimate.
func New(provider llm.Provider, db *storage.DB, model string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		provider:          provider,
		db:                db,
		model:             model,
		maxToolIterations: DefaultMaxToolIterations,
		historyWindow:     DefaultHistoryWindow,
		promptBudget:      DefaultSystemPromptBudget,
		maxTokens:         DefaultMaxTokens,
		log:               log.With().Str("component", "ai_orchestrator").Logger(),
	}
}

// OnMutation, when non-nil, is invoked synchronously for every tool-induced
// mutation as it happens, letting the caller broadcast it immediately to
// board peers (spec §4.K step 7) rather than waiting for the whole turn to
// finish.
type OnMutation func(boardmodel.AiMutation)

// Run executes the full pipeline for one prompt against board, using
// registry's tools to mutate it, and returns the terminal text + mutation
// list. actorID is attributed as the author of every tool-induced mutation.
func (o *Orchestrator) Run(ctx context.Context, board *boardstore.BoardState, registry *tools.Registry, actorID string, in PromptInput, onMutation OnMutation) (*PromptResult, error) {
	systemPrompt := o.buildSystemPrompt(board, in.Cursor)

	history, err := o.db.RecentAiTurns(in.BoardID, in.UserID, o.historyWindow)
	if err != nil {
		return nil, boarderrors.New(boarderrors.CodeDatabase, "failed to load prior turns")
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, llm.TextMessage(llm.Role(t.Role), t.Content))
	}
	messages = append(messages, llm.TextMessage(llm.RoleUser, in.Prompt))

	if err := o.db.InsertAiTurn(storage.AiTurn{
		ID: uuid.NewString(), BoardID: in.BoardID, UserID: in.UserID,
		Role: string(llm.RoleUser), Content: in.Prompt, TS: time.Now().UnixMilli(),
	}); err != nil {
		o.log.Error().Err(err).Msg("failed to persist user turn")
	}

	llmTools := toLLMTools(registry.All())
	executor := tools.NewExecutor(registry)
	call := &tools.Call{Board: board, BoardID: in.BoardID, ActorID: actorID}

	var mutations []boardmodel.AiMutation
	toolIterations := 0

	for {
		resp, err := o.provider.Chat(ctx, llm.ChatRequest{
			MaxTokens: o.maxTokens,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     llmTools,
		})
		if err != nil {
			return nil, boarderrors.New(boarderrors.CodeLLM, boarderrors.FormatUserFacing(err))
		}

		if resp.StopReason != llm.StopToolUse {
			text := resp.Text()
			if err := o.db.InsertAiTurn(storage.AiTurn{
				ID: uuid.NewString(), BoardID: in.BoardID, UserID: in.UserID,
				Role: string(llm.RoleAssistant), Content: text, TS: time.Now().UnixMilli(),
			}); err != nil {
				o.log.Error().Err(err).Msg("failed to persist assistant turn")
			}
			return &PromptResult{Text: text, Mutations: mutations}, nil
		}

		toolIterations++
		if toolIterations > o.maxToolIterations {
			return nil, boarderrors.New(boarderrors.CodeToolLoopExceeded, "the assistant's tool use exceeded the iteration budget")
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

		var toolResults []llm.Block
		for _, block := range resp.Content {
			if block.Type != llm.BlockToolUse {
				continue
			}
			result, execErr := executor.Execute(ctx, call, block.ToolUseID, block.ToolName, block.ToolInput)
			if execErr != nil {
				toolResults = append(toolResults, llm.Block{
					Type: llm.BlockToolResult, ToolUseID: block.ToolUseID,
					ToolResultContent: execErr.Error(), ToolResultIsError: true,
				})
				continue
			}
			for _, m := range result.Mutations {
				mutations = append(mutations, m)
				if onMutation != nil {
					onMutation(m)
				}
			}
			toolResults = append(toolResults, llm.Block{
				Type: llm.BlockToolResult, ToolUseID: block.ToolUseID,
				ToolResultContent: result.Summary, ToolResultIsError: result.IsError,
			})
		}
		messages = append(messages, llm.Message{Role: llm.RoleTool, Content: toolResults})
	}
}

// buildSystemPrompt renders a concise board-state description, sampled
// down to promptBudget tokens when the full description would exceed it
// (spec §4.K step 1).
func (o *Orchestrator) buildSystemPrompt(board *boardstore.BoardState, cursor *Cursor) string {
	objects := board.List()
	if cursor != nil {
		sort.Slice(objects, func(i, j int) bool {
			return distance(objects[i], cursor) < distance(objects[j], cursor)
		})
	}

	const preamble = "You are an assistant embedded in a collaborative whiteboard. " +
		"You can create, move, resize, and restyle objects using the tools provided. " +
		"Current board state:\n"

	lines := make([]string, 0, len(objects))
	for _, obj := range objects {
		lines = append(lines, describeObject(obj))
	}

	prompt := preamble
	budget := o.promptBudget
	used, _ := aitokens.EstimateText(prompt, o.model)
	for _, line := range lines {
		n, _ := aitokens.EstimateText(line, o.model)
		if used+n > budget {
			break
		}
		prompt += line + "\n"
		used += n
	}
	return prompt
}

func describeObject(obj *boardmodel.Object) string {
	excerpt := ""
	if text, ok := obj.Props["text"]; ok {
		if s, ok := text.(string); ok {
			excerpt = truncate(s, 80)
		}
	}
	dims := ""
	if obj.Width != nil && obj.Height != nil {
		dims = fmt.Sprintf(" %gx%g", *obj.Width, *obj.Height)
	}
	if excerpt == "" {
		return fmt.Sprintf("- %s (%s) at (%.0f, %.0f)%s", obj.ID, obj.Kind, obj.X, obj.Y, dims)
	}
	return fmt.Sprintf("- %s (%s) at (%.0f, %.0f)%s: %q", obj.ID, obj.Kind, obj.X, obj.Y, dims, excerpt)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func distance(obj *boardmodel.Object, cursor *Cursor) float64 {
	dx := obj.X - cursor.X
	dy := obj.Y - cursor.Y
	return dx*dx + dy*dy
}

func toLLMTools(catalogTools []*tools.Tool) []llm.Tool {
	out := make([]llm.Tool, 0, len(catalogTools))
	for _, t := range catalogTools {
		var schema map[string]any
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			_ = json.Unmarshal(raw, &schema)
		}
		out = append(out, llm.Tool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out
}
