package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrAhmed42/todo-evolution/internal/auth"
	"github.com/MrAhmed42/todo-evolution/internal/store"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type signinResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.detail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.detail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not create account")
		return
	}

	user, err := s.store.CreateUser(req.Email, req.Name, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		s.detail(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		s.logger.Error("create user failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not create account")
		return
	}

	s.writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.detail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.UserByEmail(req.Email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.detail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := s.verifier.Issue(auth.UserIdentity{UserID: user.ID, Email: user.Email})
	if err != nil {
		s.logger.Error("issue token failed", "error", err)
		s.detail(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	s.writeJSON(w, http.StatusOK, signinResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; nothing to revoke server-side.
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully signed out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	user, err := s.store.UserByID(identity.UserID)
	if err != nil {
		s.detail(w, http.StatusUnauthorized, "User no longer exists")
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}
