// Package llm is the provider-neutral LLM adapter contract (spec §4.L):
// chat(max_tokens, system, messages, tools) -> ChatResponse, translated
// to/from two provider wire dialects by the anthropic and openaidialect
// subpackages. The unified-message shape follows the same provider-neutral
// request/response envelope used elsewhere in this codebase's dependency
// family, narrowed to the tool-use/tool-result/text block model the spec
// calls for.
package llm

import "context"

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType identifies the kind of content carried by a Block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// Block is one piece of message content (spec §4.L "Content is either a
// single text or a list of blocks").
type Block struct {
	Type BlockType

	Text string // BlockText, BlockThinking

	ToolUseID string         // BlockToolUse, BlockToolResult
	ToolName  string         // BlockToolUse
	ToolInput map[string]any // BlockToolUse

	ToolResultContent string // BlockToolResult
	ToolResultIsError  bool   // BlockToolResult
}

// Message is one turn in the conversation.
type Message struct {
	Role    Role
	Content []Block
}

// TextMessage builds a single-block text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []Block{{Type: BlockText, Text: text}}}
}

// Tool is one entry in the tool catalog passed to the model (spec §4.M
// "{name, description, input_schema}").
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// StopReason is why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ChatRequest is the neutral request shape.
type ChatRequest struct {
	MaxTokens int
	System    string
	Messages  []Message
	Tools     []Tool
}

// ChatResponse is the neutral response shape (spec §4.L).
type ChatResponse struct {
	Content      []Block
	Model        string
	StopReason   StopReason
	InputTokens  int
	OutputTokens int
}

// Provider is implemented by each dialect adapter.
type Provider interface {
	// Name identifies the provider for logging ("anthropic", "openai").
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// HasToolUse reports whether resp contains at least one tool_use block.
func (resp *ChatResponse) HasToolUse() bool {
	for _, b := range resp.Content {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}

// Text concatenates every text block in resp, used for the final ai:prompt
// response body.
func (resp *ChatResponse) Text() string {
	var out string
	for _, b := range resp.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}
