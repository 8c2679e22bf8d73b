package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/xlsx"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAggregator struct {
	current  entity.AggregationRun
	started  *entity.AggregationRun
	startErr error
	starts   int
}

func (m *mockAggregator) Start(ctx context.Context) (*entity.AggregationRun, error) {
	m.starts++
	return m.started, m.startErr
}

func (m *mockAggregator) Current() entity.AggregationRun { return m.current }

type mockExporter struct {
	body []byte
	rows int
	err  error
}

func (m *mockExporter) Export(ctx context.Context, w io.Writer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	w.Write(m.body)
	return m.rows, nil
}

type mockPersister struct {
	count int
	err   error
}

func (m *mockPersister) Persist(ctx context.Context) (int, error) { return m.count, m.err }

type mockRunRepo struct {
	runs  []*entity.RunSummary
	err   error
	limit int
}

func (m *mockRunRepo) Save(ctx context.Context, summary *entity.RunSummary) error { return nil }

func (m *mockRunRepo) FindRecent(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	m.limit = limit
	return m.runs, m.err
}

type testDeps struct {
	session   *mockAggregator
	exporter  *mockExporter
	persister *mockPersister
	runs      *mockRunRepo
}

func setupRouter(t *testing.T, deps testDeps) http.Handler {
	t.Helper()
	if deps.session == nil {
		deps.session = &mockAggregator{current: entity.AggregationRun{State: entity.RunStateIdle}}
	}
	if deps.exporter == nil {
		deps.exporter = &mockExporter{}
	}
	if deps.persister == nil {
		deps.persister = &mockPersister{}
	}

	var h *FlightHandler
	if deps.runs != nil {
		h = NewFlightHandler(context.Background(), deps.session, deps.exporter, deps.persister, deps.runs, logger.NewNopLogger())
	} else {
		h = NewFlightHandler(context.Background(), deps.session, deps.exporter, deps.persister, nil, logger.NewNopLogger())
	}

	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func serve(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func testFlight(t *testing.T, id int, iata string) entity.AggregatedFlight {
	t.Helper()
	raw := fmt.Sprintf(`{"flight_status":"landed","departure":{"timezone":"Europe/Madrid"},"arrival":{"timezone":"Europe/Paris"},"flight":{"iata":%q},"extra_field":"kept"}`, iata)
	var f entity.Flight
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return entity.AggregatedFlight{ID: id, Flight: f}
}

func TestGetFlightsIdle(t *testing.T) {
	rec := serve(setupRouter(t, testDeps{}), http.MethodGet, "/api/v1/flights")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["flights"])
	assert.NotContains(t, body, "message")
}

func TestGetFlightsPopulated(t *testing.T) {
	session := &mockAggregator{current: entity.AggregationRun{
		ID:        "run-1",
		State:     entity.RunStatePopulated,
		Flights:   []entity.AggregatedFlight{testFlight(t, 1, "IB1"), testFlight(t, 2, "VY2")},
		StartedAt: time.Date(2023, 12, 29, 10, 0, 0, 0, time.UTC),
	}}
	rec := serve(setupRouter(t, testDeps{session: session}), http.MethodGet, "/api/v1/flights")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-1", body["runId"])
	assert.Equal(t, "populated", body["state"])
	assert.Equal(t, float64(2), body["count"])

	flights := body["flights"].([]interface{})
	require.Len(t, flights, 2)
	first := flights[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, "landed", first["flight_status"])
	assert.Equal(t, "kept", first["extra_field"])
}

func TestGetFlightsEmptyState(t *testing.T) {
	session := &mockAggregator{current: entity.AggregationRun{ID: "run-1", State: entity.RunStatePopulated}}
	rec := serve(setupRouter(t, testDeps{session: session}), http.MethodGet, "/api/v1/flights")

	body := decode(t, rec)
	assert.Equal(t, EmptyStateMessage, body["message"])
	assert.Equal(t, []interface{}{}, body["flights"])
}

func TestGetFlightsErrorState(t *testing.T) {
	session := &mockAggregator{current: entity.AggregationRun{
		ID:    "run-1",
		State: entity.RunStateError,
		Err:   &entity.SourceUnavailableError{Target: "MAD", StatusCode: 500, Err: errors.New("boom")},
	}}
	rec := serve(setupRouter(t, testDeps{session: session}), http.MethodGet, "/api/v1/flights")

	body := decode(t, rec)
	assert.Equal(t, "error", body["state"])
	assert.Contains(t, body["error"], "MAD")
}

func TestAggregateAccepted(t *testing.T) {
	session := &mockAggregator{started: &entity.AggregationRun{
		ID:    "run-2",
		State: entity.RunStateLoading,
	}}
	rec := serve(setupRouter(t, testDeps{session: session}), http.MethodPost, "/api/v1/flights/aggregate")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/v1/flights", rec.Header().Get("Location"))
	body := decode(t, rec)
	assert.Equal(t, "run-2", body["runId"])
	assert.Equal(t, "loading", body["state"])
	assert.Equal(t, 1, session.starts)
}

func TestAggregateLocked(t *testing.T) {
	session := &mockAggregator{startErr: entity.ErrRunInProgress}
	rec := serve(setupRouter(t, testDeps{session: session}), http.MethodPost, "/api/v1/flights/aggregate")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, entity.ErrRunInProgress.Error(), decode(t, rec)["error"])
}

func TestAggregateSupersededBeforeStart(t *testing.T) {
	session := &mockAggregator{startErr: fmt.Errorf("%w: context canceled", entity.ErrRunSuperseded)}
	rec := serve(setupRouter(t, testDeps{session: session}), http.MethodPost, "/api/v1/flights/aggregate")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportWorkbook(t *testing.T) {
	exporter := &mockExporter{body: []byte("PK-workbook"), rows: 2}
	rec := serve(setupRouter(t, testDeps{exporter: exporter}), http.MethodGet, "/api/v1/flights/export")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsx.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="flights_data.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rec.Header().Get("X-Row-Count"))
	assert.Equal(t, "PK-workbook", rec.Body.String())
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty collection", entity.ErrNoFlights, http.StatusConflict},
		{"workbook failure", fmt.Errorf("%w: disk full", entity.ErrExportFailure), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := &mockExporter{err: tt.err}
			rec := serve(setupRouter(t, testDeps{exporter: exporter}), http.MethodGet, "/api/v1/flights/export")

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
		})
	}
}

func TestPersist(t *testing.T) {
	persister := &mockPersister{count: 3}
	rec := serve(setupRouter(t, testDeps{persister: persister}), http.MethodPost, "/api/v1/flights/persist")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "saved", body["status"])
	assert.Equal(t, float64(3), body["count"])
}

func TestPersistErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty collection", entity.ErrNoFlights, http.StatusConflict},
		{"store rejected", fmt.Errorf("%w: store returned status 500", entity.ErrPersistenceFailure), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persister := &mockPersister{err: tt.err}
			rec := serve(setupRouter(t, testDeps{persister: persister}), http.MethodPost, "/api/v1/flights/persist")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListRunsNotConfigured(t *testing.T) {
	rec := serve(setupRouter(t, testDeps{}), http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListRuns(t *testing.T) {
	runs := &mockRunRepo{runs: []*entity.RunSummary{
		{RunID: "run-2", State: "populated", AcceptedCount: 4},
		{RunID: "run-1", State: "error", Error: "boom"},
	}}
	rec := serve(setupRouter(t, testDeps{runs: runs}), http.MethodGet, "/api/v1/runs?limit=500")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRunsLimit, runs.limit)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
	list := body["runs"].([]interface{})
	assert.Equal(t, "run-2", list[0].(map[string]interface{})["runId"])
}

func TestListRunsDefaultLimit(t *testing.T) {
	runs := &mockRunRepo{}
	rec := serve(setupRouter(t, testDeps{runs: runs}), http.MethodGet, "/api/v1/runs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRunsLimit, runs.limit)
	assert.Equal(t, []interface{}{}, decode(t, rec)["runs"])
}

func TestListRunsBadLimit(t *testing.T) {
	rec := serve(setupRouter(t, testDeps{runs: &mockRunRepo{}}), http.MethodGet, "/api/v1/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
