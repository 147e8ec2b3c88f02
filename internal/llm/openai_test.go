package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient("test-key", srv.URL, "gemini-2.0-flash", 5*time.Second, nil)
}

func TestChat_TextResponse(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "You have 2 tasks."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 9, "total_tokens": 49}
		}`))
	})

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			SystemMessage("You are a task assistant."),
			UserMessage("what's on my list?"),
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "You have 2 tasks." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("unexpected tool calls: %v", resp.ToolCalls)
	}
	if resp.Usage.TotalTokens != 49 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "gemini-2.0-flash" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if _, ok := gotBody["tools"]; ok {
		t.Error("tools sent despite empty request")
	}
}

func TestChat_ToolCalls(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "add_new_task", "arguments": "{\"title\": \"buy milk\", \"user_id\": 7}"}}]},
				"finish_reason": "tool_calls"}]
		}`))
	})

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{UserMessage("add buy milk")},
		Tools: []ToolDefinition{{
			Type: "function",
			Function: FunctionDef{
				Name:       "add_new_task",
				Parameters: map[string]any{"type": "object"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "add_new_task" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Arguments["title"] != "buy milk" {
		t.Errorf("arguments = %v", tc.Arguments)
	}
	if gotBody["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v", gotBody["tool_choice"])
	}
}

func TestChat_MalformedArgumentsKeptRaw(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "list_tasks", "arguments": "not json"}}]},
				"finish_reason": "tool_calls"}]
		}`))
	})

	resp, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got := resp.ToolCalls[0].Arguments["raw"]; got != "not json" {
		t.Errorf("raw arguments = %v", got)
	}
}

func TestChat_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid api key"}}`, http.StatusUnauthorized)
	})

	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("err = %v", err)
	}
}

func TestChat_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("err = %v", err)
	}
}

func TestToolCallWireEncoding(t *testing.T) {
	msg := AssistantToolCalls("", []ToolCall{{
		ID:        "call_9",
		Name:      "delete_task",
		Arguments: map[string]any{"task_id": 3},
	}})
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		ToolCalls []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tc := decoded.ToolCalls[0]
	if tc.Type != "function" || tc.Function.Name != "delete_task" {
		t.Errorf("encoded call = %+v", tc)
	}
	if !strings.Contains(tc.Function.Arguments, `"task_id":3`) {
		t.Errorf("arguments = %q, want JSON string encoding", tc.Function.Arguments)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data": []}`))
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
