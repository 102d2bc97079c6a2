package conversation

import (
	"context"
	"strings"
)

// Roles accepted in chat history. The widget only ever sends user and
// assistant turns; system text travels in LLMRequest.System.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of the visitor's conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest carries one completion for Bedrock or Gemini. Zero sampling
// values leave the provider defaults untouched.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse is the reply text plus what the provider reported about it.
type LLMResponse struct {
	Text       string
	Provider   string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage is reported by both providers when available.
type TokenUsage struct {
	InputTokens, OutputTokens, TotalTokens int32
}

// LLMClient is implemented by the Bedrock, Gemini and fallback clients.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// conversationWindow keeps the last limit user/assistant turns of history
// and appends the visitor's latest message. The result starts with a user
// turn and alternates roles, as Bedrock Converse requires: leading assistant
// turns (the widget greeting) are dropped and consecutive same-role turns are
// merged.
func conversationWindow(history []ChatMessage, latest string, limit int) []ChatMessage {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]ChatMessage, 0, len(history)+1)
	add := func(m ChatMessage) {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			return
		}
		out = append(out, m)
	}
	for _, m := range history {
		if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if len(out) == 0 && m.Role != ChatRoleUser {
			continue
		}
		add(m)
	}
	add(ChatMessage{Role: ChatRoleUser, Content: latest})
	return out
}
