// Package openaidialect translates the neutral llm.ChatRequest/ChatResponse
// contract to and from the OpenAI-compatible "chat completions" wire form
// (spec §4.L "a 'chat completions' dialect where tool_use maps to
// assistant.tool_calls[].function{name,arguments_json_string} and
// tool_result maps to a role=tool message with tool_call_id").
package openaidialect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/llm"
)

// Adapter implements llm.Provider against an OpenAI-compatible chat
// completions endpoint.
type Adapter struct {
	client openai.Client
	model  string
}

// New builds an Adapter for the given model, using apiKey for auth.
func New(apiKey, model string) *Adapter {
	return &Adapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name identifies this dialect for logging.
func (a *Adapter) Name() string { return "openai" }

// Chat translates req to chat-completions wire form, calls the API, and
// translates the result back to the neutral shape.
func (a *Adapter) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:               a.model,
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		Messages:            toOpenAIMessages(req.System, req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	return fromOpenAICompletion(resp), nil
}

func toOpenAIMessages(system string, messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, openai.UserMessage(textOf(m)))
		case llm.RoleAssistant:
			out = append(out, assistantMessage(m))
		case llm.RoleTool:
			for _, b := range m.Content {
				if b.Type == llm.BlockToolResult {
					out = append(out, openai.ToolMessage(b.ToolResultContent, b.ToolUseID))
				}
			}
		}
	}
	return out
}

func textOf(m llm.Message) string {
	var out string
	for _, b := range m.Content {
		if b.Type == llm.BlockText {
			out += b.Text
		}
	}
	return out
}

func assistantMessage(m llm.Message) openai.ChatCompletionMessageParamUnion {
	var text string
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, b := range m.Content {
		switch b.Type {
		case llm.BlockText:
			text += b.Text
		case llm.BlockToolUse:
			args, _ := json.Marshal(b.ToolInput)
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   b.ToolUseID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      b.ToolName,
					Arguments: string(args),
				},
			})
		case llm.BlockThinking:
			// not replayed (spec §4.L "skip thinking/unknown blocks")
		}
	}
	msg := openai.AssistantMessage(text)
	if len(toolCalls) > 0 {
		msg.OfAssistant.ToolCalls = toolCalls
	}
	return msg
}

func toOpenAITools(tools []llm.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func fromOpenAICompletion(resp *openai.ChatCompletion) *llm.ChatResponse {
	out := &llm.ChatResponse{
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		out.StopReason = llm.StopEndTurn
		return out
	}
	choice := resp.Choices[0]

	if choice.Message.Content != "" {
		out.Content = append(out.Content, llm.Block{Type: llm.BlockText, Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(call.Function.Arguments), &input)
		out.Content = append(out.Content, llm.Block{
			Type:      llm.BlockToolUse,
			ToolUseID: call.ID,
			ToolName:  call.Function.Name,
			ToolInput: input,
		})
	}

	switch choice.FinishReason {
	case "tool_calls":
		out.StopReason = llm.StopToolUse
	case "length":
		out.StopReason = llm.StopMaxTokens
	default:
		out.StopReason = llm.StopEndTurn
	}

	// A provider that returned only tool calls still needs a (possibly
	// empty) text-bearing turn recorded upstream (spec §4.L "return an
	// empty-text assistant turn when the provider returned only tool
	// calls").
	if choice.Message.Content == "" {
		out.Content = append(out.Content, llm.Block{Type: llm.BlockText, Text: ""})
	}
	return out
}

// ClassifyError adapts a transport error into the wire E_LLM taxonomy.
func ClassifyError(err error) error {
	return boarderrors.New(boarderrors.CodeLLM, boarderrors.FormatUserFacing(err))
}
