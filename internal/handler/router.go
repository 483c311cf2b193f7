package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/elliehq/ellie/internal/handler/auth"
	chatHandler "github.com/elliehq/ellie/internal/handler/chat"
	sessionHandler "github.com/elliehq/ellie/internal/handler/session"
	"github.com/elliehq/ellie/internal/middleware"
	"github.com/elliehq/ellie/internal/service/account"
	chatService "github.com/elliehq/ellie/internal/service/chat"
)

// NewRouter wires HTTP routes to the gateway services.
func NewRouter(chatSvc *chatService.Service, accountSvc *account.Service, responder chatHandler.Responder) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.New(chatSvc, accountSvc).RegisterRoutes(api)
		authHandler.New(accountSvc, chatSvc).RegisterRoutes(api)
		chatHandler.New(chatSvc, responder).RegisterRoutes(api)
	})

	return r
}
