package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser("a@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Error("user id is empty")
	}

	got, err := s.UserByEmail("a@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if got.ID != u.ID || got.Name != "Alice" || got.PasswordHash != "hash" {
		t.Errorf("UserByEmail = %+v, want match of %+v", got, u)
	}

	if _, err := s.CreateUser("a@example.com", "Dup", "hash2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate CreateUser = %v, want ErrEmailTaken", err)
	}

	if _, err := s.UserByEmail("missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UserByEmail missing = %v, want ErrNotFound", err)
	}
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)

	task, err := s.CreateTask("u1", "buy milk", "whole milk")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 {
		t.Error("task id is zero")
	}
	if task.Completed {
		t.Error("new task is completed")
	}

	got, err := s.Task("u1", task.ID)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if got.Title != "buy milk" || got.Description != "whole milk" {
		t.Errorf("Task = %+v", got)
	}

	completed := true
	title := "buy oat milk"
	updated, err := s.UpdateTask("u1", task.ID, TaskUpdate{Title: &title, Completed: &completed})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != "buy oat milk" || !updated.Completed {
		t.Errorf("UpdateTask = %+v", updated)
	}
	if updated.Description != "whole milk" {
		t.Errorf("Description changed to %q, want untouched", updated.Description)
	}

	if err := s.DeleteTask("u1", task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.Task("u1", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Task after delete = %v, want ErrNotFound", err)
	}
}

func TestTaskOwnerScoping(t *testing.T) {
	s := newTestStore(t)

	task, err := s.CreateTask("u1", "secret plan", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// Another user's valid task id behaves exactly like a missing one.
	if _, err := s.Task("u2", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user Task = %v, want ErrNotFound", err)
	}
	if err := s.DeleteTask("u2", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user DeleteTask = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateTask("u2", task.ID, TaskUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user UpdateTask = %v, want ErrNotFound", err)
	}

	tasks, err := s.Tasks("u2", FilterAll)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("u2 sees %d tasks, want 0", len(tasks))
	}

	// Owner still sees it.
	if _, err := s.Task("u1", task.ID); err != nil {
		t.Errorf("owner Task = %v, want nil", err)
	}
}

func TestTaskFilters(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.CreateTask("u1", "pending one", "")
	b, _ := s.CreateTask("u1", "done one", "")
	done := true
	if _, err := s.UpdateTask("u1", b.ID, TaskUpdate{Completed: &done}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	pending, err := s.Tasks("u1", FilterPending)
	if err != nil {
		t.Fatalf("Tasks pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Errorf("pending = %+v, want only task %d", pending, a.ID)
	}

	completed, err := s.Tasks("u1", FilterCompleted)
	if err != nil {
		t.Fatalf("Tasks completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != b.ID {
		t.Errorf("completed = %+v, want only task %d", completed, b.ID)
	}

	all, err := s.Tasks("u1", FilterAll)
	if err != nil {
		t.Fatalf("Tasks all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d tasks, want 2", len(all))
	}
}

func TestConversationsAndMessages(t *testing.T) {
	s := newTestStore(t)

	conv, err := s.CreateConversation("u1", "Chat 10:30")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := s.Conversation("u2", conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user Conversation = %v, want ErrNotFound", err)
	}

	if _, err := s.AddMessage(conv.ID, "user", "add task buy milk", nil); err != nil {
		t.Fatalf("AddMessage user: %v", err)
	}
	summary := []ToolCallSummary{{Tool: "add_new_task", Arguments: map[string]any{"title": "buy milk"}}}
	if _, err := s.AddMessage(conv.ID, "assistant", "Added buy milk.", summary); err != nil {
		t.Fatalf("AddMessage assistant: %v", err)
	}

	msgs, err := s.Messages(conv.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("message order = %s, %s; want user, assistant", msgs[0].Role, msgs[1].Role)
	}
	if len(msgs[1].ToolCalls) != 1 || msgs[1].ToolCalls[0].Tool != "add_new_task" {
		t.Errorf("assistant tool calls = %+v", msgs[1].ToolCalls)
	}

	convs, err := s.Conversations("u1")
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != conv.ID {
		t.Errorf("Conversations = %+v", convs)
	}
}
