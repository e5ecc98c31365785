package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"screenblur/internal/control"
	"screenblur/internal/models"
	"screenblur/internal/reporter"
)

// Controller is the subset of the control surface the API drives
type Controller interface {
	State() control.View
	Apply(p control.Patch) (control.View, error)
	Toggle() (control.View, error)
}

// RestartHistory lists recorded restarts
type RestartHistory interface {
	GetRestartEvents(limit int) ([]*models.RestartEvent, error)
}

type Handler struct {
	control  Controller
	engine   reporter.Engine
	reporter *reporter.Reporter
	history  RestartHistory
}

func NewHandler(ctrl Controller, engine reporter.Engine, rep *reporter.Reporter, history RestartHistory) *Handler {
	return &Handler{
		control:  ctrl,
		engine:   engine,
		reporter: rep,
		history:  history,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/toggle", h.handleToggle)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/monitors", h.handleMonitors)
	mux.HandleFunc("/api/restarts", h.handleRestarts)

	mux.HandleFunc("/health", h.handleHealth)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, h.control.State())

	case http.MethodPost:
		var patch control.Patch
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}

		view, err := h.control.Apply(patch)
		if err != nil {
			respondControlError(w, view, err)
			return
		}
		respondJSON(w, view)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := h.control.Toggle()
	if err != nil {
		respondControlError(w, view, err)
		return
	}
	respondJSON(w, view)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.reporter.GenerateStatus(h.engine, h.control.State())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate status: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleMonitors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, reporter.MonitorStatuses(h.engine.Status()))
}

func (h *Handler) handleRestarts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	events, err := h.history.GetRestartEvents(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch restarts: %v", err), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*models.RestartEvent{}
	}

	respondJSON(w, events)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// respondControlError maps validation failures to 400. A persistence failure
// still returns the applied state, with a 500 status.
func respondControlError(w http.ResponseWriter, view control.View, err error) {
	if errors.Is(err, control.ErrInvalidOpacity) ||
		errors.Is(err, control.ErrUnknownColor) ||
		errors.Is(err, control.ErrInvalidInterval) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("Control change applied but not saved: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
		"state": view,
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
