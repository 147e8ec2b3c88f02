package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrAhmed42/todo-evolution/internal/auth"
	"github.com/MrAhmed42/todo-evolution/internal/llm"
	"github.com/MrAhmed42/todo-evolution/internal/store"
)

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	ConversationID string                  `json:"conversation_id"`
	Response       string                  `json:"response"`
	ToolCalls      []store.ToolCallSummary `json:"tool_calls"`
	MessageID      string                  `json:"message_id"`
}

// handleChat runs one conversational turn: resolve the conversation,
// persist the user message, execute the turn, persist the assistant
// message, and return both ids to the client.
//
// Ordering matters. The ownership check happens before anything is
// written, so a rejected request leaves no trace. The user message is
// persisted before the turn runs, so a hard turn failure still leaves
// the user's words in history.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID := r.PathValue("user_id")
	if identity.UserID != userID {
		s.detail(w, http.StatusForbidden, "Not authorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.detail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.detail(w, http.StatusBadRequest, "message is required")
		return
	}

	conversationID := req.ThreadID
	if conversationID == "" {
		conv, err := s.store.CreateConversation(userID, "Chat "+time.Now().Format("15:04"))
		if err != nil {
			s.logger.Error("create conversation failed", "error", err)
			s.detail(w, http.StatusInternalServerError, "could not start conversation")
			return
		}
		conversationID = conv.ID
	} else {
		if _, err := s.store.Conversation(userID, conversationID); err != nil {
			s.detail(w, http.StatusNotFound, "Conversation not found")
			return
		}
	}

	// History is loaded before the new message lands so the executor
	// sees prior turns only; it appends the current message itself.
	history, err := s.loadHistory(conversationID)
	if err != nil {
		s.logger.Error("load history failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not load conversation")
		return
	}

	if _, err := s.store.AddMessage(conversationID, "user", req.Message, nil); err != nil {
		s.logger.Error("persist user message failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not save message")
		return
	}

	result, err := s.runner.RunTurn(r.Context(), userID, history, req.Message)
	if err != nil {
		s.logger.Error("turn failed", "conversation", conversationID, "error", err)
		s.detail(w, http.StatusInternalServerError, err.Error())
		return
	}

	assistantMsg, err := s.store.AddMessage(conversationID, "assistant", result.Response, result.ToolCalls)
	if err != nil {
		s.logger.Error("persist assistant message failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not save response")
		return
	}

	toolCalls := result.ToolCalls
	if toolCalls == nil {
		toolCalls = []store.ToolCallSummary{}
	}
	s.writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Response:       result.Response,
		ToolCalls:      toolCalls,
		MessageID:      assistantMsg.ID,
	})
}

// loadHistory maps stored messages to model messages. Tool call
// summaries are audit data and deliberately not replayed.
func (s *Server) loadHistory(conversationID string) ([]llm.Message, error) {
	msgs, err := s.store.Messages(conversationID)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "user":
			history = append(history, llm.UserMessage(m.Content))
		case "assistant":
			history = append(history, llm.AssistantMessage(m.Content))
		}
	}
	return history, nil
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}

	convs, err := s.store.Conversations(userID)
	if err != nil {
		s.logger.Error("list conversations failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	s.writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, ok := s.checkOwner(w, r, identity)
	if !ok {
		return
	}

	conversationID := r.PathValue("id")
	if _, err := s.store.Conversation(userID, conversationID); errors.Is(err, store.ErrNotFound) {
		s.detail(w, http.StatusNotFound, "Conversation not found")
		return
	} else if err != nil {
		s.logger.Error("load conversation failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not load conversation")
		return
	}

	msgs, err := s.store.Messages(conversationID)
	if err != nil {
		s.logger.Error("load messages failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not load messages")
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}
