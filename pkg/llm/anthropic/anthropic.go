// Package anthropic translates the neutral llm.ChatRequest/ChatResponse
// contract to and from the Anthropic Messages API wire form (the
// chat-completions dialect is covered by openaidialect; this is the native
// Anthropic tool_use/tool_result block dialect).
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/llm"
)

// Adapter implements llm.Provider against the Anthropic Messages API.
type Adapter struct {
	client anthropic.Client
	model  string
}

// New builds an Adapter for the given model, using apiKey for auth.
func New(apiKey, model string) *Adapter {
	return &Adapter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name identifies this dialect for logging.
func (a *Adapter) Name() string { return "anthropic" }

// Chat translates req to the Anthropic wire form, calls the Messages API,
// and translates the result back to the neutral shape.
func (a *Adapter) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages:  toAnthropicMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return fromAnthropicMessage(resp), nil
}

func toAnthropicMessages(messages []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range m.Content {
			switch b.Type {
			case llm.BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case llm.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUseID, b.ToolInput, b.ToolName))
			case llm.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.ToolResultContent, b.ToolResultIsError))
			case llm.BlockThinking:
				// Thinking blocks are not replayed to the provider (spec
				// §4.L "skip thinking/unknown blocks").
			}
		}
		if m.Role == llm.RoleTool {
			// Tool results travel back to Anthropic as a user message
			// containing tool_result blocks.
			out = append(out, anthropic.NewUserMessage(blocks...))
			continue
		}
		if m.Role == llm.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func toAnthropicTools(tools []llm.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema["properties"],
					Required:   t.InputSchema["required"],
				},
			},
		})
	}
	return out
}

func fromAnthropicMessage(msg *anthropic.Message) *llm.ChatResponse {
	resp := &llm.ChatResponse{
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, llm.Block{Type: llm.BlockText, Text: variant.Text})
		case anthropic.ToolUseBlock:
			var input map[string]any
			_ = json.Unmarshal(variant.Input, &input)
			resp.Content = append(resp.Content, llm.Block{
				Type:      llm.BlockToolUse,
				ToolUseID: variant.ID,
				ToolName:  variant.Name,
				ToolInput: input,
			})
		case anthropic.ThinkingBlock:
			resp.Content = append(resp.Content, llm.Block{Type: llm.BlockThinking, Text: variant.Thinking})
		}
	}

	switch msg.StopReason {
	case anthropic.StopReasonToolUse:
		resp.StopReason = llm.StopToolUse
	case anthropic.StopReasonMaxTokens:
		resp.StopReason = llm.StopMaxTokens
	default:
		resp.StopReason = llm.StopEndTurn
	}
	return resp
}

// ClassifyError adapts a transport error into the wire E_LLM taxonomy,
// delegating to the shared classifier family (spec §4.K failure modes).
func ClassifyError(err error) error {
	return boarderrors.New(boarderrors.CodeLLM, boarderrors.FormatUserFacing(err))
}
