// Package tools defines the task-tool catalog shared by the turn
// executor (which advertises the tools to the model) and the tool
// channel (which validates arguments before dispatching them to the
// tool-server subprocess).
//
// The catalog is the single source of truth for tool names and their
// required arguments. The tool server registers the same five tools;
// a mismatch between the two surfaces as a definite tool failure, not
// silent misbehavior.
package tools

import (
	"fmt"
	"sort"
)

// Tool names. These are the MCP tool names exposed by the tool server.
const (
	AddNewTask       = "add_new_task"
	ListTasks        = "list_tasks"
	MarkTaskComplete = "mark_task_complete"
	DeleteTask       = "delete_task"
	UpdateTaskTitle  = "update_task_title"
)

// Spec describes one tool: its model-facing definition and the
// arguments the channel must see before dispatch.
type Spec struct {
	Name        string
	Description string
	// Parameters is the JSON Schema for the tool's arguments, in the
	// object form chat-completions APIs expect.
	Parameters map[string]any
	// Required lists argument keys that must be present and non-empty.
	Required []string
}

// catalog holds every tool the agent may call. Order is stable so the
// model sees a deterministic tool list.
var catalog = []Spec{
	{
		Name:        AddNewTask,
		Description: "Add a new task for the user. Requires user_id and title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id":     map[string]any{"type": "string", "description": "The id of the user who owns the task."},
				"title":       map[string]any{"type": "string", "description": "Short task title."},
				"description": map[string]any{"type": "string", "description": "Optional longer description."},
			},
			"required": []string{"user_id", "title"},
		},
		Required: []string{"user_id", "title"},
	},
	{
		Name:        ListTasks,
		Description: "List all tasks for a user. Shows ID, status, and title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string", "description": "The id of the user whose tasks to list."},
			},
			"required": []string{"user_id"},
		},
		Required: []string{"user_id"},
	},
	{
		Name:        MarkTaskComplete,
		Description: "Mark a task as completed. Requires user_id and task_id.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string", "description": "The id of the user who owns the task."},
				"task_id": map[string]any{"type": "integer", "description": "The numeric id of the task."},
			},
			"required": []string{"user_id", "task_id"},
		},
		Required: []string{"user_id", "task_id"},
	},
	{
		Name:        DeleteTask,
		Description: "Permanently delete a task. Requires user_id and task_id.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string", "description": "The id of the user who owns the task."},
				"task_id": map[string]any{"type": "integer", "description": "The numeric id of the task."},
			},
			"required": []string{"user_id", "task_id"},
		},
		Required: []string{"user_id", "task_id"},
	},
	{
		Name:        UpdateTaskTitle,
		Description: "Update the title of an existing task. Requires user_id, task_id, and new_title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id":   map[string]any{"type": "string", "description": "The id of the user who owns the task."},
				"task_id":   map[string]any{"type": "integer", "description": "The numeric id of the task."},
				"new_title": map[string]any{"type": "string", "description": "The replacement title."},
			},
			"required": []string{"user_id", "task_id", "new_title"},
		},
		Required: []string{"user_id", "task_id", "new_title"},
	},
}

// specsByName indexes the catalog for Lookup.
var specsByName = func() map[string]*Spec {
	m := make(map[string]*Spec, len(catalog))
	for i := range catalog {
		m[catalog[i].Name] = &catalog[i]
	}
	return m
}()

// All returns the full catalog in definition order.
func All() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the spec for name, or nil if the tool is unknown.
func Lookup(name string) *Spec {
	return specsByName[name]
}

// Validate checks that name is a known tool and that every required
// argument is present and non-empty. It reports missing keys sorted so
// error text is deterministic.
func Validate(name string, args map[string]any) error {
	spec := Lookup(name)
	if spec == nil {
		return fmt.Errorf("unknown tool %q", name)
	}

	var missing []string
	for _, key := range spec.Required {
		v, ok := args[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("tool %s: missing required arguments %v", name, missing)
	}
	return nil
}
