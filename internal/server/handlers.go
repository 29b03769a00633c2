package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"

	"smart-parking/internal/parking"
)

func getServiceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return "smart-parking"
}

// Handler serializes all service access behind one mutex: the core is
// written for a single actor, so concurrent requests take turns.
type Handler struct {
	service *parking.InstrumentedService
	mu      sync.Mutex
}

func NewHandler(service *parking.InstrumentedService) *Handler {
	return &Handler{service: service}
}

// statusForError maps the service's sentinel errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, parking.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrDuplicateVehicle),
		errors.Is(err, parking.ErrNoSlotAvailable):
		return http.StatusConflict
	case errors.Is(err, parking.ErrInvalidPlate),
		errors.Is(err, parking.ErrInvalidSnapshot),
		errors.Is(err, parking.ErrInvalidTimestamp):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": getServiceName(),
		"meta":    extractMeta(r.Context()),
	})
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := parking.ParseCategory(req.Category)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if req.PlannedHours <= 0 {
		req.PlannedHours = 1
	}

	h.mu.Lock()
	result, err := h.service.CheckIn(ctx, req.Plate, category, req.PlannedHours)
	h.mu.Unlock()
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Vehicle checked in", result)
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.mu.Lock()
	result, err := h.service.CheckOut(ctx, req.Plate)
	h.mu.Unlock()
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Vehicle checked out", result)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plate := chi.URLParam(r, "plate")
	if plate == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Plate is required")
		return
	}

	h.mu.Lock()
	result, found := h.service.Search(ctx, plate)
	h.mu.Unlock()
	if !found {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", result)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plate := chi.URLParam(r, "plate")
	if plate == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Plate is required")
		return
	}

	h.mu.Lock()
	quote, err := h.service.CurrentQuote(plate)
	h.mu.Unlock()
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Quote computed", quote)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if name := r.URL.Query().Get("category"); name != "" {
		category, err := parking.ParseCategory(name)
		if err != nil {
			WriteError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}

		h.mu.Lock()
		status, err := h.service.Status(category)
		h.mu.Unlock()
		if err != nil {
			WriteError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}

		WriteSuccess(ctx, w, "Status retrieved", []parking.CategoryStatus{status})
		return
	}

	h.mu.Lock()
	statuses := h.service.StatusAll()
	h.mu.Unlock()

	WriteSuccess(ctx, w, "Status retrieved", statuses)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	report := h.service.Report()
	h.mu.Unlock()

	WriteSuccess(ctx, w, "Report generated", report)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	history := h.service.History()
	h.mu.Unlock()

	WriteSuccess(ctx, w, "History retrieved", history)
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	analytics := h.service.Analytics()
	h.mu.Unlock()

	WriteSuccess(ctx, w, "Analytics computed", analytics)
}

func (h *Handler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	snapshot := h.service.ExportSnapshot()
	h.mu.Unlock()

	WriteSuccess(ctx, w, "Snapshot exported", snapshot)
}

func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var snapshot parking.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.mu.Lock()
	err := h.service.ImportSnapshot(ctx, &snapshot)
	h.mu.Unlock()
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Snapshot imported", map[string]any{
		"active_sessions": len(snapshot.ActiveSessions),
		"history_records": len(snapshot.History),
	})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	err := h.service.Reset(ctx)
	h.mu.Unlock()
	if err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(ctx, w, "Lot reset", nil)
}
