package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/metrics"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("test", prometheus.NewRegistry())
}

func newTestLogger() logger.Logger {
	return logger.NewNopLogger()
}

func jsonOrNull(s string) string {
	if s == "" {
		return "null"
	}
	return fmt.Sprintf("%q", s)
}

// makeFlight builds a source record; an empty timezone becomes null
func makeFlight(t *testing.T, flightIATA, depTZ, arrTZ string) entity.Flight {
	t.Helper()
	raw := fmt.Sprintf(`{
		"flight_date": "2023-12-29",
		"flight_status": "scheduled",
		"departure": {"airport": "Origin", "timezone": %s, "iata": "ORG", "delay": 5, "scheduled": "2023-12-29T10:00:00+00:00"},
		"arrival": {"airport": "Barajas", "timezone": %s, "iata": "MAD", "scheduled": "2023-12-29T12:00:00+00:00"},
		"airline": {"name": "Iberia", "iata": "IB"},
		"flight": {"number": "123", "iata": %q},
		"aircraft": null,
		"live": null
	}`, jsonOrNull(depTZ), jsonOrNull(arrTZ), flightIATA)

	var f entity.Flight
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f
}

func flightIATA(f entity.AggregatedFlight) string {
	if f.Flight.Flight == nil || f.Flight.Flight.IATA == nil {
		return ""
	}
	return *f.Flight.Flight.IATA
}

type fakeSource struct {
	mu        sync.Mutex
	responses map[entity.QueryTarget][]entity.Flight
	errs      map[entity.QueryTarget]error
	calls     []entity.QueryTarget
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		responses: map[entity.QueryTarget][]entity.Flight{},
		errs:      map[entity.QueryTarget]error{},
	}
}

func (s *fakeSource) FetchArrivals(ctx context.Context, target entity.QueryTarget) ([]entity.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, target)
	if err, ok := s.errs[target]; ok {
		return nil, err
	}
	return s.responses[target], nil
}

func (s *fakeSource) Calls() []entity.QueryTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.QueryTarget(nil), s.calls...)
}

func sourceErr(target entity.QueryTarget, status int) error {
	return &entity.SourceUnavailableError{
		Target:     target,
		StatusCode: status,
		Err:        errors.New("unexpected status"),
	}
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*entity.RunSummary
	err  error
}

func (r *fakeRunRepo) Save(ctx context.Context, summary *entity.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, summary)
	return r.err
}

func (r *fakeRunRepo) FindRecent(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) < limit {
		limit = len(r.runs)
	}
	return r.runs[:limit], r.err
}

func (r *fakeRunRepo) Saved() []*entity.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.RunSummary(nil), r.runs...)
}

type fakeLock struct {
	mu       sync.Mutex
	err      error
	acquired int
	released int
}

func (l *fakeLock) Acquire(ctx context.Context) (repository.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

// exclusiveLock behaves like the Redis lock on a single key
type exclusiveLock struct {
	mu   sync.Mutex
	held bool
}

func (l *exclusiveLock) Acquire(ctx context.Context) (repository.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, entity.ErrRunInProgress
	}
	l.held = true
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		return nil
	}, nil
}

func (l *exclusiveLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

type storedArtifact struct {
	key         string
	contentType string
	body        []byte
}

type fakeArchive struct {
	mu   sync.Mutex
	puts []storedArtifact
	err  error
}

func (a *fakeArchive) Put(ctx context.Context, key, contentType string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.puts = append(a.puts, storedArtifact{key: key, contentType: contentType, body: body})
	return nil
}

func (a *fakeArchive) Puts() []storedArtifact {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]storedArtifact(nil), a.puts...)
}

type fakeStore struct {
	mu    sync.Mutex
	calls [][]entity.AggregatedFlight
	err   error
}

func (s *fakeStore) Save(ctx context.Context, flights []entity.AggregatedFlight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, flights)
	return s.err
}

type staticRuns struct {
	run entity.AggregationRun
}

func (r staticRuns) Current() entity.AggregationRun {
	return r.run
}
