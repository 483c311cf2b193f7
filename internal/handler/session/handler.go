package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elliehq/ellie/internal/handler/httpauth"
	"github.com/elliehq/ellie/internal/model/chat"
	"github.com/elliehq/ellie/internal/service/account"
	chatService "github.com/elliehq/ellie/internal/service/chat"
	"github.com/elliehq/ellie/pkg/utils"
)

// Handler serves the session management endpoints.
type Handler struct {
	chatSvc    *chatService.Service
	accountSvc *account.Service
}

// New creates the session handler.
func New(chatSvc *chatService.Service, accountSvc *account.Service) *Handler {
	return &Handler{chatSvc: chatSvc, accountSvc: accountSvc}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/create", h.handleCreate)
	r.Get("/session/{sessionID}", h.handleGet)
	r.Delete("/session/{sessionID}", h.handleDelete)
	r.Get("/session/{sessionID}/history", h.handleHistory)
	r.Delete("/session/{sessionID}/history", h.handleClearHistory)
	r.Get("/sessions/my-chats", h.handleMyChats)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if user, ok := httpauth.User(r, h.accountSvc); ok {
		ownerID = user.ID
	}

	session, err := h.chatSvc.CreateSession(r.Context(), ownerID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id":   session.ID,
		"session_info": session,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	owner, err := h.chatSvc.Owner(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	// Authenticated callers may only delete their own sessions.
	if user, ok := httpauth.User(r, h.accountSvc); ok {
		if owner != 0 && owner != user.ID {
			utils.RespondError(w, http.StatusForbidden, "Not authorized to delete this session")
			return
		}
	}

	if err := h.chatSvc.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	messages, err := h.chatSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"messages":     messages,
		"session_info": session,
	})
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	utils.RespondError(w, http.StatusNotImplemented, "Chat history clearing not implemented yet")
}

func (h *Handler) handleMyChats(w http.ResponseWriter, r *http.Request) {
	user, ok := httpauth.User(r, h.accountSvc)
	if !ok {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": []chat.SessionSummary{}, "total": 0})
		return
	}

	sessions, err := h.chatSvc.UserSessions(r.Context(), user.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []chat.SessionSummary{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}
