package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fixora/tracker/internal/domain"
)

// LifecycleUseCase defines the lifecycle operations the handler depends on
type LifecycleUseCase interface {
	ArchiveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error)
	UnarchiveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error)
	SoftDeleteProject(ctx context.Context, actor domain.Actor, projectID, reason string) (*domain.Project, error)
	RestoreProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error)
	SoftDeleteTicket(ctx context.Context, actor domain.Actor, ticketID, reason string) (*domain.Ticket, error)
	RestoreTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error)
}

// LifecycleHandler handles archive, soft delete and restore requests
type LifecycleHandler struct {
	lifecycle LifecycleUseCase
}

// NewLifecycleHandler creates a new lifecycle handler
func NewLifecycleHandler(lifecycle LifecycleUseCase) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle}
}

// RegisterRoutes registers lifecycle routes on an authenticated router
func (h *LifecycleHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/projects/{id}/archive", h.ArchiveProject).Methods("POST")
	router.HandleFunc("/api/v1/projects/{id}/unarchive", h.UnarchiveProject).Methods("POST")
	router.HandleFunc("/api/v1/projects/{id}", h.SoftDeleteProject).Methods("DELETE")
	router.HandleFunc("/api/v1/projects/{id}/restore", h.RestoreProject).Methods("POST")
	router.HandleFunc("/api/v1/tickets/{id}", h.SoftDeleteTicket).Methods("DELETE")
	router.HandleFunc("/api/v1/tickets/{id}/restore", h.RestoreTicket).Methods("POST")
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

// ArchiveProject handles POST /api/v1/projects/{id}/archive
func (h *LifecycleHandler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	h.projectAction(w, r, "Project archived", h.lifecycle.ArchiveProject)
}

// UnarchiveProject handles POST /api/v1/projects/{id}/unarchive
func (h *LifecycleHandler) UnarchiveProject(w http.ResponseWriter, r *http.Request) {
	h.projectAction(w, r, "Project unarchived", h.lifecycle.UnarchiveProject)
}

// RestoreProject handles POST /api/v1/projects/{id}/restore
func (h *LifecycleHandler) RestoreProject(w http.ResponseWriter, r *http.Request) {
	h.projectAction(w, r, "Project restored", h.lifecycle.RestoreProject)
}

// SoftDeleteProject handles DELETE /api/v1/projects/{id}
func (h *LifecycleHandler) SoftDeleteProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, ok := decodeDeleteRequest(w, r)
	if !ok {
		return
	}

	project, err := h.lifecycle.SoftDeleteProject(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Project moved to trash", project)
}

// SoftDeleteTicket handles DELETE /api/v1/tickets/{id}
func (h *LifecycleHandler) SoftDeleteTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, ok := decodeDeleteRequest(w, r)
	if !ok {
		return
	}

	ticket, err := h.lifecycle.SoftDeleteTicket(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Ticket moved to trash", ticket)
}

// RestoreTicket handles POST /api/v1/tickets/{id}/restore
func (h *LifecycleHandler) RestoreTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	ticket, err := h.lifecycle.RestoreTicket(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Ticket restored", ticket)
}

type projectOp func(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error)

func (h *LifecycleHandler) projectAction(w http.ResponseWriter, r *http.Request, message string, op projectOp) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	project, err := op(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, message, project)
}

// decodeDeleteRequest accepts an empty body or {"reason": "..."}
func decodeDeleteRequest(w http.ResponseWriter, r *http.Request) (deleteRequest, bool) {
	var req deleteRequest
	if r.Body == nil {
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return req, false
	}
	return req, true
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return domain.Actor{}, false
	}
	return actor, true
}
