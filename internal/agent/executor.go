// Package agent implements the turn executor: one user message in,
// one assistant message out, with bounded rounds of tool execution in
// between.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrAhmed42/todo-evolution/internal/channel"
	"github.com/MrAhmed42/todo-evolution/internal/llm"
	"github.com/MrAhmed42/todo-evolution/internal/prompts"
	"github.com/MrAhmed42/todo-evolution/internal/store"
	"github.com/MrAhmed42/todo-evolution/internal/tools"
)

// ErrTurnFailed wraps hard model-provider failures. Tool trouble never
// produces this error; it resolves to an advisory response instead.
var ErrTurnFailed = errors.New("turn failed")

// ToolCaller executes one tool invocation. The production
// implementation is *channel.Channel.
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) channel.ToolResult
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	// Response is the assistant text to show and persist.
	Response string

	// ToolCalls records every tool invocation the turn made, in
	// order, with the arguments actually sent (after user binding).
	ToolCalls []store.ToolCallSummary
}

// Executor drives the model/tool loop for single turns.
type Executor struct {
	llm       llm.Client
	tools     ToolCaller
	maxRounds int
	logger    *slog.Logger
}

// NewExecutor creates a turn executor. maxRounds bounds how many
// rounds of tool calls one turn may spend before the model is told to
// wrap up (default 5).
func NewExecutor(client llm.Client, tools ToolCaller, maxRounds int, logger *slog.Logger) *Executor {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		llm:       client,
		tools:     tools,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// RunTurn executes one turn for the given user. history is the prior
// conversation (user and assistant messages only); userMessage is the
// new input. The executor owns the system prompt and forcibly binds
// every tool call to userID, whatever the model put in the arguments.
func (e *Executor) RunTurn(ctx context.Context, userID string, history []llm.Message, userMessage string) (*TurnResult, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.SystemMessage(prompts.System(userID)))
	messages = append(messages, history...)
	messages = append(messages, llm.UserMessage(userMessage))

	defs := toolDefinitions()
	var summaries []store.ToolCallSummary

	for round := 0; round < e.maxRounds; round++ {
		resp, err := e.llm.Chat(ctx, &llm.ChatRequest{Messages: messages, Tools: defs})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTurnFailed, err)
		}

		if len(resp.ToolCalls) == 0 {
			return &TurnResult{Response: finalText(resp.Content), ToolCalls: summaries}, nil
		}

		messages = append(messages, llm.AssistantToolCalls(resp.Content, resp.ToolCalls))

		for _, tc := range resp.ToolCalls {
			args := bindUser(tc.Arguments, userID)
			result := e.tools.Call(ctx, tc.Name, args)
			summaries = append(summaries, store.ToolCallSummary{Tool: tc.Name, Arguments: args})

			e.logger.Info("tool call",
				"round", round,
				"tool", tc.Name,
				"kind", result.Kind.String())

			if result.Degraded() {
				// Outcome unknown: the mutation may have applied.
				// Tell the user to refresh instead of failing the
				// turn or retrying blindly.
				return &TurnResult{Response: prompts.DegradedAdvisory, ToolCalls: summaries}, nil
			}
			messages = append(messages, llm.ToolMessage(tc.ID, toolFeedback(result)))
		}
	}

	// Round limit exhausted with the model still asking for tools.
	// One last call, without tools, to compose from what it has.
	messages = append(messages, llm.UserMessage(prompts.RoundLimitNudge))
	resp, err := e.llm.Chat(ctx, &llm.ChatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTurnFailed, err)
	}
	return &TurnResult{Response: finalText(resp.Content), ToolCalls: summaries}, nil
}

// bindUser returns a copy of args with user_id set to the
// authenticated user. The model's own value, if any, is discarded.
func bindUser(args map[string]any, userID string) map[string]any {
	bound := make(map[string]any, len(args)+1)
	for k, v := range args {
		bound[k] = v
	}
	bound["user_id"] = userID
	return bound
}

// toolFeedback is the text handed back to the model for a resolved
// tool call.
func toolFeedback(r channel.ToolResult) string {
	if r.Kind == channel.KindOK {
		return r.Output
	}
	return "Error: " + r.Err
}

func finalText(content string) string {
	if content == "" {
		return prompts.EmptyResponseFallback
	}
	return content
}

// toolDefinitions converts the tool catalog into the request payload
// shape.
func toolDefinitions() []llm.ToolDefinition {
	specs := tools.All()
	defs := make([]llm.ToolDefinition, len(specs))
	for i, s := range specs {
		defs[i] = llm.ToolDefinition{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}
	return defs
}
