// Package llm provides the chat-completion client used by the turn
// executor. The wire format is the OpenAI-compatible chat completions
// API, which is what the configured Gemini endpoint speaks.
package llm

import "encoding/json"

// Message is one entry in the conversation sent to the model.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model. Arguments are
// already decoded from the provider's JSON-string encoding.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition describes one callable tool in the request payload.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is the function half of a tool definition.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is a provider-neutral chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting from the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the provider-neutral result of a chat completion.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// SystemMessage, UserMessage, and AssistantMessage build plain text
// messages for the given role.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// ToolMessage builds the tool-result message that answers a tool call.
func ToolMessage(callID, content string) Message {
	return Message{Role: "tool", ToolCallID: callID, Content: content}
}

// AssistantToolCalls builds the assistant message that carries the
// model's tool invocations, as the API requires before tool results.
func AssistantToolCalls(content string, calls []ToolCall) Message {
	return Message{Role: "assistant", Content: content, ToolCalls: calls}
}

// MarshalJSON encodes a ToolCall in the provider wire shape, with
// arguments as a JSON string.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	args, err := json.Marshal(tc.Arguments)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}{
		ID:   tc.ID,
		Type: "function",
		Function: struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}{Name: tc.Name, Arguments: string(args)},
	})
}
