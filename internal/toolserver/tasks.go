package toolserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MrAhmed42/todo-evolution/internal/store"
)

// defaultDescription is stored when the caller adds a task without one.
const defaultDescription = "Added via AI"

// userID extracts the owning user from a tool call. The orchestrator
// always sends it as a string, but a number is tolerated since models
// occasionally echo ids back unquoted.
func userID(req mcp.CallToolRequest) (string, error) {
	switch v := req.GetArguments()["user_id"].(type) {
	case string:
		if v == "" {
			return "", errors.New("'user_id' is required")
		}
		return v, nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	default:
		return "", errors.New("'user_id' is required")
	}
}

// taskID extracts the numeric task id argument.
func taskID(req mcp.CallToolRequest) (int64, error) {
	switch v := req.GetArguments()["task_id"].(type) {
	case float64:
		return int64(v), nil
	case string:
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			return id, nil
		}
	}
	return 0, errors.New("'task_id' must be a number")
}

// AddTaskTool handles the add_new_task MCP tool.
type AddTaskTool struct {
	store *store.Store
}

func NewAddTaskTool(st *store.Store) *AddTaskTool {
	return &AddTaskTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *AddTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("add_new_task",
		mcp.WithDescription("Add a new task. Requires user_id and title."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The id of the user who owns the task."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short task title."),
		),
		mcp.WithString("description",
			mcp.Description("Optional longer description."),
			mcp.DefaultString(defaultDescription),
		),
	)
}

// Handle processes the add_new_task tool call.
func (t *AddTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := userID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	description := req.GetString("description", defaultDescription)

	if _, err := t.store.CreateTask(uid, title, description); err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Success: '%s' added.", title)), nil
}

// ListTasksTool handles the list_tasks MCP tool.
type ListTasksTool struct {
	store *store.Store
}

func NewListTasksTool(st *store.Store) *ListTasksTool {
	return &ListTasksTool{store: st}
}

func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks for a specific user. Shows ID, Status, and Title."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The id of the user whose tasks to list."),
		),
	)
}

// Handle renders one task per line so the model can quote ids back.
func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := userID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tasks, err := t.store.Tasks(uid, store.FilterAll)
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks found."), nil
	}

	lines := make([]string, len(tasks))
	for i, task := range tasks {
		status := " "
		if task.Completed {
			status = "X"
		}
		lines[i] = fmt.Sprintf("ID: %d | [%s] %s", task.ID, status, task.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// CompleteTaskTool handles the mark_task_complete MCP tool.
type CompleteTaskTool struct {
	store *store.Store
}

func NewCompleteTaskTool(st *store.Store) *CompleteTaskTool {
	return &CompleteTaskTool{store: st}
}

func (t *CompleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("mark_task_complete",
		mcp.WithDescription("Mark a task as completed. Requires user_id and task_id."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The id of the user who owns the task."),
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("The numeric id of the task."),
		),
	)
}

func (t *CompleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := userID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := taskID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	completed := true
	task, err := t.store.UpdateTask(uid, id, store.TaskUpdate{Completed: &completed})
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Task with ID %d not found for this user.", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Success: Task '%s' marked as complete.", task.Title)), nil
}

// DeleteTaskTool handles the delete_task MCP tool.
type DeleteTaskTool struct {
	store *store.Store
}

func NewDeleteTaskTool(st *store.Store) *DeleteTaskTool {
	return &DeleteTaskTool{store: st}
}

func (t *DeleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_task",
		mcp.WithDescription("Permanently delete a task. Requires user_id and task_id."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The id of the user who owns the task."),
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("The numeric id of the task."),
		),
	)
}

func (t *DeleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := userID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := taskID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Fetch first so the confirmation can name the task.
	task, err := t.store.Task(uid, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Task with ID %d not found.", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	if err := t.store.DeleteTask(uid, id); err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Success: Task '%s' has been deleted.", task.Title)), nil
}

// UpdateTitleTool handles the update_task_title MCP tool.
type UpdateTitleTool struct {
	store *store.Store
}

func NewUpdateTitleTool(st *store.Store) *UpdateTitleTool {
	return &UpdateTitleTool{store: st}
}

func (t *UpdateTitleTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task_title",
		mcp.WithDescription("Update the title of an existing task."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The id of the user who owns the task."),
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("The numeric id of the task."),
		),
		mcp.WithString("new_title",
			mcp.Required(),
			mcp.Description("The replacement title."),
		),
	)
}

func (t *UpdateTitleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := userID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := taskID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newTitle := req.GetString("new_title", "")
	if newTitle == "" {
		return mcp.NewToolResultError("'new_title' is required"), nil
	}

	task, err := t.store.Task(uid, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Task with ID %d not found.", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	oldTitle := task.Title
	if _, err := t.store.UpdateTask(uid, id, store.TaskUpdate{Title: &newTitle}); err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Success: Updated task '%s' to '%s'.", oldTitle, newTitle)), nil
}
