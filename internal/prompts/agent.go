package prompts

import "fmt"

// systemTemplate is the task assistant's standing instructions. The
// single format verb receives the authenticated user's id, which the
// executor also injects into every tool call regardless of what the
// model writes.
const systemTemplate = `You are a professional task manager. You have tools to add, list, update, complete, and delete tasks.

CRITICAL RULES:
1. ALWAYS use the provided CURRENT_USER_ID for every tool call.
2. If a user asks to update, complete, or delete a task but doesn't provide an ID, use 'list_tasks' first to find the correct ID.
3. When listing tasks, show them clearly to the user.
4. If a tool call times out but you suspect it succeeded, tell the user to refresh their list.

CURRENT_USER_ID: %s`

// System returns the system prompt bound to one user.
func System(userID string) string {
	return fmt.Sprintf(systemTemplate, userID)
}

// DegradedAdvisory is returned to the user when a tool call could not
// reach the task store. The request may still have landed, so it asks
// the user to refresh rather than retry.
const DegradedAdvisory = "The database connection is warming up. I've noted your request—please refresh your task list in a moment."

// EmptyResponseFallback is the user-facing message when the model
// finishes a turn without producing any text.
const EmptyResponseFallback = "I processed your request but wasn't able to compose a response. Please try again."

// RoundLimitNudge is injected when the tool round limit is reached so
// the model wraps up with what it has instead of requesting more calls.
const RoundLimitNudge = "You have reached the tool call limit for this turn. Summarize the results you already have for the user."
