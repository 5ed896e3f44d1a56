package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/retention"
	"github.com/fixora/tracker/internal/usecase"
)

// TrashUseCase defines the trash query the handler depends on
type TrashUseCase interface {
	ListTrash(ctx context.Context, actor domain.Actor, trashType domain.TrashType) (*usecase.ListTrashResponse, error)
}

// PurgeRunner runs the retention purge on demand
type PurgeRunner interface {
	RunPurge(ctx context.Context) (*retention.Report, error)
}

// TrashHandler serves the trash view and the manual purge trigger
type TrashHandler struct {
	trash  TrashUseCase
	purger PurgeRunner
}

// NewTrashHandler creates a new trash handler
func NewTrashHandler(trash TrashUseCase, purger PurgeRunner) *TrashHandler {
	return &TrashHandler{trash: trash, purger: purger}
}

// RegisterRoutes registers trash routes on an authenticated router
func (h *TrashHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/trash", h.ListTrash).Methods("GET")
	router.HandleFunc("/api/v1/admin/purge", h.RunPurge).Methods("POST")
}

// ListTrash handles GET /api/v1/trash?type=ALL|PROJECT|TICKET
func (h *TrashHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	trashType, err := domain.ParseTrashType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.trash.ListTrash(r.Context(), actor, trashType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Trash retrieved successfully", result)
}

// RunPurge handles POST /api/v1/admin/purge. The purge spans every tenant,
// so only admins may trigger it.
func (h *TrashHandler) RunPurge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		writeError(w, domain.ErrNotAuthorized)
		return
	}

	// A client disconnect must not abandon the run halfway.
	report, err := h.purger.RunPurge(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, retention.ErrPurgeAlreadyRunning) {
			writeFailure(w, http.StatusConflict, "purge_running", "A purge run is already in progress")
			return
		}
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Purge completed", report)
}
