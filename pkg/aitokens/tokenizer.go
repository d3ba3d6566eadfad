// Package aitokens estimates token counts for the neutral llm.Message
// shape. The AI orchestrator uses it to keep a turn's board-state system
// prompt within its token budget; the retrieved history is not counted.
package aitokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/collabboard/server/pkg/llm"
)

var (
	tokenizerCache   = make(map[string]*tiktoken.Tiktoken)
	tokenizerCacheMu sync.RWMutex
)

// tokensPerMessage is per-message overhead, consistent across GPT-family
// models (see OpenAI's cookbook token-counting notes); used as a stand-in
// estimate for every provider dialect, since exact overhead is
// provider/model-specific and the orchestrator only needs a budget
// estimate, not an exact count.
const tokensPerMessage = 3

// GetTokenizer returns a cached tiktoken encoder for the given model,
// falling back to cl100k_base for models tiktoken-go doesn't recognize
// (non-OpenAI model names, e.g. Anthropic's).
func GetTokenizer(model string) (*tiktoken.Tiktoken, error) {
	tokenizerCacheMu.RLock()
	if tkm, ok := tokenizerCache[model]; ok {
		tokenizerCacheMu.RUnlock()
		return tkm, nil
	}
	tokenizerCacheMu.RUnlock()

	tokenizerCacheMu.Lock()
	defer tokenizerCacheMu.Unlock()

	if tkm, ok := tokenizerCache[model]; ok {
		return tkm, nil
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	tokenizerCache[model] = tkm
	return tkm, nil
}

// EstimateMessage estimates the token cost of one neutral message: its
// role plus every text/tool-use/tool-result block it carries.
func EstimateMessage(tkm *tiktoken.Tiktoken, m llm.Message) int {
	n := tokensPerMessage
	n += len(tkm.Encode(string(m.Role), nil, nil))
	for _, b := range m.Content {
		n += len(tkm.Encode(blockText(b), nil, nil))
	}
	return n
}

// EstimateMessages estimates the total token cost of a message sequence
// under model's tokenizer.
func EstimateMessages(messages []llm.Message, model string) (int, error) {
	tkm, err := GetTokenizer(model)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range messages {
		total += EstimateMessage(tkm, m)
	}
	total += 3 // every reply is primed with a fresh assistant turn
	return total, nil
}

// EstimateText estimates the token cost of a single string, used for
// sizing the system prompt's board-state description before it is
// wrapped into a message.
func EstimateText(text, model string) (int, error) {
	tkm, err := GetTokenizer(model)
	if err != nil {
		return 0, err
	}
	return len(tkm.Encode(text, nil, nil)), nil
}

func blockText(b llm.Block) string {
	switch b.Type {
	case llm.BlockText, llm.BlockThinking:
		return b.Text
	case llm.BlockToolUse:
		return b.ToolName
	case llm.BlockToolResult:
		return b.ToolResultContent
	default:
		return ""
	}
}
