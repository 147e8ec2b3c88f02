package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/MrAhmed42/todo-evolution/internal/store"
)

func taskPath(userID string, id int64) string {
	return fmt.Sprintf("/api/users/%s/tasks/%d", userID, id)
}

func TestTaskCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "a@example.com")

	rec := env.do(t, http.MethodPost, "/api/users/"+user.ID+"/tasks", token, map[string]string{
		"title":       "buy milk",
		"description": "2%",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[store.Task](t, rec)
	if created.Title != "buy milk" || created.UserID != user.ID || created.Completed {
		t.Fatalf("created = %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/api/users/"+user.ID+"/tasks", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	tasks := decodeBody[[]store.Task](t, rec)
	if len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestTaskCreate_MissingTitle(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "a@example.com")

	rec := env.do(t, http.MethodPost, "/api/users/"+user.ID+"/tasks", token, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTaskOwnerMismatch(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.newUser(t, "owner@example.com")
	_, otherToken := env.newUser(t, "other@example.com")

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/users/" + owner.ID + "/tasks"},
		{http.MethodPost, "/api/users/" + owner.ID + "/tasks"},
		{http.MethodGet, taskPath(owner.ID, 1)},
		{http.MethodPut, taskPath(owner.ID, 1)},
		{http.MethodPatch, taskPath(owner.ID, 1) + "/complete"},
		{http.MethodDelete, taskPath(owner.ID, 1)},
	}
	for _, p := range paths {
		rec := env.do(t, p.method, p.path, otherToken, map[string]string{"title": "x"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want 403", p.method, p.path, rec.Code)
		}
		body := decodeBody[map[string]string](t, rec)
		if body["detail"] != "Access denied" {
			t.Errorf("%s %s: detail = %q", p.method, p.path, body["detail"])
		}
	}
}

func TestTaskStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "a@example.com")

	open, err := env.store.CreateTask(user.ID, "open task", "")
	if err != nil {
		t.Fatal(err)
	}
	done, err := env.store.CreateTask(user.ID, "done task", "")
	if err != nil {
		t.Fatal(err)
	}
	completed := true
	if _, err := env.store.UpdateTask(user.ID, done.ID, store.TaskUpdate{Completed: &completed}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		status string
		wantID int64
	}{
		{"pending", open.ID},
		{"completed", done.ID},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodGet, "/api/users/"+user.ID+"/tasks?status="+tt.status, token, nil)
		tasks := decodeBody[[]store.Task](t, rec)
		if len(tasks) != 1 || tasks[0].ID != tt.wantID {
			t.Errorf("status=%s: tasks = %+v", tt.status, tasks)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/users/"+user.ID+"/tasks", token, nil)
	if tasks := decodeBody[[]store.Task](t, rec); len(tasks) != 2 {
		t.Errorf("unfiltered = %+v", tasks)
	}
}

func TestTaskUpdateAndToggle(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "a@example.com")
	task, err := env.store.CreateTask(user.ID, "buy milk", "")
	if err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPut, taskPath(user.ID, task.ID), token, map[string]string{
		"title": "buy oat milk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[store.Task](t, rec)
	if updated.Title != "buy oat milk" {
		t.Errorf("title = %q", updated.Title)
	}

	rec = env.do(t, http.MethodPatch, taskPath(user.ID, task.ID)+"/complete", token, nil)
	if got := decodeBody[store.Task](t, rec); !got.Completed {
		t.Error("toggle did not complete the task")
	}
	rec = env.do(t, http.MethodPatch, taskPath(user.ID, task.ID)+"/complete", token, nil)
	if got := decodeBody[store.Task](t, rec); got.Completed {
		t.Error("second toggle did not reopen the task")
	}
}

func TestTaskDelete(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "a@example.com")
	task, err := env.store.CreateTask(user.ID, "buy milk", "")
	if err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodDelete, taskPath(user.ID, task.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, taskPath(user.ID, task.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestTaskNotFound(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "a@example.com")

	for _, p := range []struct{ method, path string }{
		{http.MethodGet, taskPath(user.ID, 999)},
		{http.MethodPut, taskPath(user.ID, 999)},
		{http.MethodPatch, taskPath(user.ID, 999) + "/complete"},
		{http.MethodDelete, taskPath(user.ID, 999)},
	} {
		rec := env.do(t, p.method, p.path, token, map[string]string{"title": "x"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", p.method, p.path, rec.Code)
		}
	}
}
