package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MrAhmed42/todo-evolution/internal/auth"
	"github.com/MrAhmed42/todo-evolution/internal/store"
)

type taskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// checkOwner enforces that the path user matches the token user. Every
// task and chat route is scoped this way; a mismatch is always 403.
func (s *Server) checkOwner(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) (string, bool) {
	userID := r.PathValue("user_id")
	if identity.UserID != userID {
		s.detail(w, http.StatusForbidden, "Access denied")
		return "", false
	}
	return userID, true
}

// pathTaskID parses the {id} path segment.
func (s *Server) pathTaskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.detail(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}

	filter := store.FilterAll
	switch r.URL.Query().Get("status") {
	case "pending":
		filter = store.FilterPending
	case "completed":
		filter = store.FilterCompleted
	}

	tasks, err := s.store.Tasks(userID, filter)
	if err != nil {
		s.logger.Error("list tasks failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not list tasks")
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}

	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.detail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		s.detail(w, http.StatusBadRequest, "title is required")
		return
	}

	if _, err := s.store.UserByID(userID); err != nil {
		s.detail(w, http.StatusNotFound, "User not found")
		return
	}

	task, err := s.store.CreateTask(userID, req.Title, req.Description)
	if err != nil {
		s.logger.Error("create task failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not create task")
		return
	}
	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}
	id, ok := s.pathTaskID(w, r)
	if !ok {
		return
	}

	task, err := s.store.Task(userID, id)
	if errors.Is(err, store.ErrNotFound) {
		s.detail(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.logger.Error("get task failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not load task")
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}
	id, ok := s.pathTaskID(w, r)
	if !ok {
		return
	}

	var upd store.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.detail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.store.UpdateTask(userID, id, upd)
	if errors.Is(err, store.ErrNotFound) {
		s.detail(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.logger.Error("update task failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not update task")
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

// handleTaskToggle flips the completion flag.
func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}
	id, ok := s.pathTaskID(w, r)
	if !ok {
		return
	}

	task, err := s.store.Task(userID, id)
	if errors.Is(err, store.ErrNotFound) {
		s.detail(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.logger.Error("load task failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not update task")
		return
	}

	toggled := !task.Completed
	task, err = s.store.UpdateTask(userID, id, store.TaskUpdate{Completed: &toggled})
	if err != nil {
		s.logger.Error("toggle task failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not update task")
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}
	id, ok := s.pathTaskID(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteTask(userID, id)
	if errors.Is(err, store.ErrNotFound) {
		s.detail(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.logger.Error("delete task failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
