package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/elliehq/ellie/internal/model/chat"
	chatService "github.com/elliehq/ellie/internal/service/chat"
	"github.com/elliehq/ellie/pkg/utils"
)

// Responder produces the assistant's reply for a user message.
type Responder interface {
	Reply(ctx context.Context, sessionID string, history []chat.Message, userMessage string) (string, error)
}

// Handler serves the message exchange endpoint.
type Handler struct {
	chatSvc   *chatService.Service
	responder Responder
}

// New creates the chat handler. A nil responder falls back to a canned
// reply so the gateway works without model credentials.
func New(chatSvc *chatService.Service, responder Responder) *Handler {
	return &Handler{chatSvc: chatSvc, responder: responder}
}

// RegisterRoutes mounts the chat route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	// The body's session_id wins; the X-Session-ID header is the fallback.
	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-ID")
	}

	// An unknown or missing session gets a fresh anonymous one, so a chat
	// message can never land nowhere.
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		session, err := h.chatSvc.CreateSession(r.Context(), 0)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}
		sessionID = session.ID
	}

	history, err := h.chatSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	if err := h.chatSvc.SaveMessage(r.Context(), sessionID, chat.RoleUser, payload.Message); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	response, err := h.reply(r.Context(), sessionID, history, payload.Message)
	if err != nil {
		log.Printf("[chat] responder error for session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "Assistant is unavailable right now")
		return
	}

	if err := h.chatSvc.SaveMessage(r.Context(), sessionID, chat.RoleAssistant, response); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	transcript, err := h.chatSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"response":   response,
		"session_id": sessionID,
		"history":    transcript,
	})
}

func (h *Handler) reply(ctx context.Context, sessionID string, history []chat.Message, message string) (string, error) {
	if h.responder == nil {
		return "Thanks for your message! The assistant model is not configured on this gateway, " +
			"so this is a placeholder reply.", nil
	}
	return h.responder.Reply(ctx, sessionID, history, message)
}
