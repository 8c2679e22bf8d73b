package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/xlsx"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

// EmptyStateMessage is shown when a run finished without accepted flights
const EmptyStateMessage = "No flight data available."

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// Aggregator starts aggregation runs and exposes the current one
type Aggregator interface {
	Start(ctx context.Context) (*entity.AggregationRun, error)
	Current() entity.AggregationRun
}

// Exporter renders the current collection as a workbook
type Exporter interface {
	Export(ctx context.Context, w io.Writer) (int, error)
}

// Persister forwards the current collection to the flight store
type Persister interface {
	Persist(ctx context.Context) (int, error)
}

// FlightHandler serves the aggregation, export and persistence endpoints
type FlightHandler struct {
	// runCtx outlives requests; background runs are bound to it
	runCtx    context.Context
	session   Aggregator
	exporter  Exporter
	persister Persister
	runs      repository.RunRepository
	logger    logger.Logger
}

// NewFlightHandler creates a new flight handler. runs may be nil when history is disabled.
func NewFlightHandler(
	runCtx context.Context,
	session Aggregator,
	exporter Exporter,
	persister Persister,
	runs repository.RunRepository,
	logger logger.Logger,
) *FlightHandler {
	return &FlightHandler{
		runCtx:    runCtx,
		session:   session,
		exporter:  exporter,
		persister: persister,
		runs:      runs,
		logger:    logger,
	}
}

// RegisterRoutes registers flight routes
func (h *FlightHandler) RegisterRoutes(r chi.Router) {
	r.Route("/flights", func(r chi.Router) {
		r.Get("/", h.HandleGetFlights)
		r.Post("/aggregate", h.HandleAggregate)
		r.Get("/export", h.HandleExport)
		r.Post("/persist", h.HandlePersist)
	})
	r.Get("/runs", h.HandleListRuns)
}

type runResponse struct {
	RunID      string                    `json:"runId,omitempty"`
	State      entity.RunState           `json:"state"`
	Policy     entity.FailurePolicy      `json:"policy,omitempty"`
	FlightDate string                    `json:"flightDate,omitempty"`
	Message    string                    `json:"message,omitempty"`
	Error      string                    `json:"error,omitempty"`
	Failures   []entity.TargetFailure    `json:"failures,omitempty"`
	Count      int                       `json:"count"`
	Flights    []entity.AggregatedFlight `json:"flights"`
	StartedAt  *time.Time                `json:"startedAt,omitempty"`
	FinishedAt *time.Time                `json:"finishedAt,omitempty"`
}

func newRunResponse(run entity.AggregationRun, withFlights bool) runResponse {
	resp := runResponse{
		RunID:      run.ID,
		State:      run.State,
		Policy:     run.Policy,
		FlightDate: run.FlightDate,
		Failures:   run.Failures,
		Count:      len(run.Flights),
		Flights:    []entity.AggregatedFlight{},
	}
	if withFlights && len(run.Flights) > 0 {
		resp.Flights = run.Flights
	}
	if run.Err != nil {
		resp.Error = run.Err.Error()
	}
	if run.State == entity.RunStatePopulated && len(run.Flights) == 0 {
		resp.Message = EmptyStateMessage
	}
	if !run.StartedAt.IsZero() {
		resp.StartedAt = &run.StartedAt
	}
	if !run.FinishedAt.IsZero() {
		resp.FinishedAt = &run.FinishedAt
	}
	return resp
}

// HandleGetFlights returns the current run and its collection
// GET /api/v1/flights
func (h *FlightHandler) HandleGetFlights(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newRunResponse(h.session.Current(), true))
}

// HandleAggregate starts a new aggregation run in the background
// POST /api/v1/flights/aggregate
func (h *FlightHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	run, err := h.session.Start(h.runCtx)
	if err != nil {
		h.logger.Warn("Failed to start aggregation", "error", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Location", "/api/v1/flights")
	respondJSON(w, http.StatusAccepted, newRunResponse(*run, false))
}

// HandleExport streams the current collection as flights_data.xlsx
// GET /api/v1/flights/export
func (h *FlightHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := h.exporter.Export(r.Context(), &buf)
	if err != nil {
		h.logger.Warn("Export failed", "error", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entity.ExportFileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Row-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write export response", "error", err)
	}
}

// HandlePersist submits the current collection to the flight store
// POST /api/v1/flights/persist
func (h *FlightHandler) HandlePersist(w http.ResponseWriter, r *http.Request) {
	count, err := h.persister.Persist(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "saved",
		"count":  count,
	})
}

// HandleListRuns returns the most recent runs, newest first
// GET /api/v1/runs?limit=20
func (h *FlightHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runs.FindRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*entity.RunSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrNoFlights), errors.Is(err, entity.ErrRunInProgress),
		errors.Is(err, entity.ErrRunSuperseded):
		return http.StatusConflict
	case errors.Is(err, entity.ErrPersistenceFailure), errors.Is(err, entity.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
