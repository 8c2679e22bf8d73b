package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"

	json "github.com/goccy/go-json"
)

// HTTPFlightStoreRepository submits aggregated flights to the remote store endpoint
type HTTPFlightStoreRepository struct {
	endpoint   string
	httpClient HTTPDoer
	logger     logger.Logger
}

// NewHTTPFlightStoreRepository creates a new remote flight store client
func NewHTTPFlightStoreRepository(endpoint string, timeout time.Duration, logger logger.Logger) *HTTPFlightStoreRepository {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPFlightStoreRepository{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (r *HTTPFlightStoreRepository) SetHTTPClient(client HTTPDoer) {
	r.httpClient = client
}

var _ repository.FlightStoreRepository = (*HTTPFlightStoreRepository)(nil)

// Save posts {"flights": [...]} in a single request. Only 200 counts as success.
func (r *HTTPFlightStoreRepository) Save(ctx context.Context, flights []entity.AggregatedFlight) error {
	if flights == nil {
		flights = []entity.AggregatedFlight{}
	}

	jsonData, err := json.Marshal(entity.FlightsPayload{Flights: flights})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal payload: %v", entity.ErrPersistenceFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", entity.ErrPersistenceFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.Info("Sending flights to store",
		"endpoint", r.endpoint,
		"count", len(flights),
		"bytes", len(jsonData))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %w", entity.ErrPersistenceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: store returned status %d: %s", entity.ErrPersistenceFailure, resp.StatusCode, string(body))
	}

	io.Copy(io.Discard, resp.Body)

	r.logger.Info("Flights saved successfully", "count", len(flights))
	return nil
}
