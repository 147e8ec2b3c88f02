package tools

import (
	"strings"
	"testing"
)

func TestAll_CoversCatalog(t *testing.T) {
	specs := All()
	if len(specs) != 5 {
		t.Fatalf("catalog has %d tools, want 5", len(specs))
	}

	want := []string{AddNewTask, ListTasks, MarkTaskComplete, DeleteTask, UpdateTaskTitle}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("catalog[%d] = %q, want %q", i, specs[i].Name, name)
		}
	}
}

func TestLookup(t *testing.T) {
	if Lookup(ListTasks) == nil {
		t.Error("Lookup(list_tasks) = nil")
	}
	if Lookup("drop_all_tables") != nil {
		t.Error("Lookup(drop_all_tables) != nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr string
	}{
		{
			name: "valid add",
			tool: AddNewTask,
			args: map[string]any{"user_id": "u1", "title": "buy milk"},
		},
		{
			name: "valid add with description",
			tool: AddNewTask,
			args: map[string]any{"user_id": "u1", "title": "buy milk", "description": "2%"},
		},
		{
			name:    "missing title",
			tool:    AddNewTask,
			args:    map[string]any{"user_id": "u1"},
			wantErr: "missing required arguments [title]",
		},
		{
			name:    "empty user_id",
			tool:    ListTasks,
			args:    map[string]any{"user_id": ""},
			wantErr: "missing required arguments [user_id]",
		},
		{
			name: "task_id as number",
			tool: MarkTaskComplete,
			args: map[string]any{"user_id": "u1", "task_id": float64(3)},
		},
		{
			name:    "multiple missing sorted",
			tool:    UpdateTaskTitle,
			args:    map[string]any{"user_id": "u1"},
			wantErr: "missing required arguments [new_title task_id]",
		},
		{
			name:    "unknown tool",
			tool:    "format_disk",
			args:    map[string]any{},
			wantErr: "unknown tool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tool, tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
