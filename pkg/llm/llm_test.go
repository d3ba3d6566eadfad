package llm

import "testing"

func TestTextConcatenatesTextBlocksOnly(t *testing.T) {
	resp := &ChatResponse{Content: []Block{
		{Type: BlockText, Text: "hello "},
		{Type: BlockToolUse, ToolName: "createObjects"},
		{Type: BlockText, Text: "world"},
	}}
	if got := resp.Text(); got != "hello world" {
		t.Fatalf("expected concatenated text, got %q", got)
	}
}

func TestHasToolUse(t *testing.T) {
	withTool := &ChatResponse{Content: []Block{{Type: BlockToolUse}}}
	if !withTool.HasToolUse() {
		t.Fatal("expected HasToolUse true")
	}

	textOnly := &ChatResponse{Content: []Block{{Type: BlockText, Text: "hi"}}}
	if textOnly.HasToolUse() {
		t.Fatal("expected HasToolUse false")
	}
}

func TestTextMessageBuildsSingleBlock(t *testing.T) {
	msg := TextMessage(RoleUser, "hi")
	if len(msg.Content) != 1 || msg.Content[0].Text != "hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
