package router

import (
	"database/sql"
	"net/http"

	"sesi/config"
	"sesi/internal/identity"
	sessionHandler "sesi/internal/session"
	"sesi/internal/session/repository"
	"sesi/internal/session/service"
	"sesi/middleware"
	"sesi/socket"
)

func Setup(db *sql.DB, cfg config.Config, hub *socket.Hub) http.Handler {
	mux := http.NewServeMux()

	gate := middleware.NewAccessGate(cfg.JWTSecret, identity.NewDirectory(db))

	// Event feed
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, _ := middleware.IdentityFromContext(r.Context())
		socket.ServeWs(hub, w, r, ident.ID)
	})
	mux.Handle("GET /ws", gate.Require(wsHandler))

	// REST API
	repo := repository.NewSessionRepository(db)
	svc := service.NewSessionService(repo, hub)
	h := sessionHandler.NewSessionHandler(svc)

	mux.Handle("POST /sessions", gate.Require(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /sessions", gate.Require(http.HandlerFunc(h.ListSessions)))
	mux.Handle("GET /sessions/published", http.HandlerFunc(h.ListPublishedSessions))
	mux.Handle("GET /sessions/{id}", gate.Optional(http.HandlerFunc(h.GetSession)))
	mux.Handle("PUT /sessions/{id}", gate.Require(http.HandlerFunc(h.UpdateSession)))
	mux.Handle("DELETE /sessions/{id}", gate.Require(http.HandlerFunc(h.DeleteSession)))

	return middleware.CORSMiddleware(cfg.CORSOrigin)(mux)
}
