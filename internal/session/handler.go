package handler

import (
	"encoding/json"
	"net/http"

	"sesi/internal/session/model"
	"sesi/internal/session/service"
	"sesi/middleware"
	"sesi/pkg/httpx"
)

type SessionHandler struct {
	Service *service.SessionService
}

func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{Service: service}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFromContext(r.Context())

	var req model.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.Validation("Invalid request body"))
		return
	}

	sess, err := h.Service.Create(ident.ID, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess, "Session created successfully")
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	requesterID := ""
	if ident, ok := middleware.IdentityFromContext(r.Context()); ok {
		requesterID = ident.ID
	}

	sess, err := h.Service.Read(r.PathValue("id"), requesterID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess, "Session retrieved successfully")
}

func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFromContext(r.Context())

	var req model.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.Validation("Invalid request body"))
		return
	}

	sess, err := h.Service.Update(r.PathValue("id"), ident.ID, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess, "Session updated successfully")
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFromContext(r.Context())

	if err := h.Service.Delete(r.PathValue("id"), ident.ID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct{}{}, "Session deleted successfully")
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFromContext(r.Context())

	sessions, err := h.Service.ListOwned(ident.ID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessions, "Sessions retrieved successfully")
}

func (h *SessionHandler) ListPublishedSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Service.ListPublished()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessions, "Sessions retrieved successfully")
}
