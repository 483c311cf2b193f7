package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elliehq/ellie/internal/handler/httpauth"
	"github.com/elliehq/ellie/internal/service/account"
	chatService "github.com/elliehq/ellie/internal/service/chat"
	"github.com/elliehq/ellie/pkg/utils"
)

// Handler serves the authentication endpoints.
type Handler struct {
	accountSvc *account.Service
	chatSvc    *chatService.Service
}

// New creates the auth handler.
func New(accountSvc *account.Service, chatSvc *chatService.Service) *Handler {
	return &Handler{accountSvc: accountSvc, chatSvc: chatSvc}
}

// RegisterRoutes mounts the auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Get("/auth/me", h.handleMe)
	r.Post("/auth/link-session", h.handleLinkSession)
	r.Post("/auth/logout", h.handleLogout)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.accountSvc.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Linking at registration time is best-effort, mirroring the explicit
	// link-session endpoint.
	if payload.SessionID != "" {
		if err := h.chatSvc.Link(r.Context(), payload.SessionID, user.ID); err != nil {
			log.Printf("[auth] failed to link session %s at registration: %v", payload.SessionID, err)
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.accountSvc.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := httpauth.User(r, h.accountSvc)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLinkSession(w http.ResponseWriter, r *http.Request) {
	user, ok := httpauth.User(r, h.accountSvc)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.chatSvc.Link(r.Context(), payload.SessionID, user.ID); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) || errors.Is(err, chatService.ErrNotOwner) {
			utils.RespondError(w, http.StatusBadRequest, "Failed to link session")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "Failed to link session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session linked successfully"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := httpauth.Token(r); token != "" {
		h.accountSvc.RevokeToken(r.Context(), token)
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
