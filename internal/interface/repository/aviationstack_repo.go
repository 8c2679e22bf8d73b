package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"

	json "github.com/goccy/go-json"
)

// HTTPDoer is satisfied by *http.Client and lets tests swap the transport
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AviationstackConfig holds the fixed call parameters for the flight source
type AviationstackConfig struct {
	BaseURL    string
	AccessKey  string
	FlightDate string
	Limit      int
	Timeout    time.Duration
}

// AviationstackRepository fetches flights from the aviationstack /flights endpoint
type AviationstackRepository struct {
	baseURL    string
	accessKey  string
	flightDate string
	limit      int
	httpClient HTTPDoer
	logger     logger.Logger
}

// NewAviationstackRepository creates a new flight source client
func NewAviationstackRepository(cfg AviationstackConfig, logger logger.Logger) *AviationstackRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AviationstackRepository{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accessKey:  cfg.AccessKey,
		flightDate: cfg.FlightDate,
		limit:      cfg.Limit,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (r *AviationstackRepository) SetHTTPClient(client HTTPDoer) {
	r.httpClient = client
}

var _ repository.FlightSourceRepository = (*AviationstackRepository)(nil)

type flightsResponse struct {
	Pagination *struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Count  int `json:"count"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Data  *[]entity.Flight `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchArrivals requests every flight arriving at target on the configured date
func (r *AviationstackRepository) FetchArrivals(ctx context.Context, target entity.QueryTarget) ([]entity.Flight, error) {
	params := url.Values{}
	params.Set("access_key", r.accessKey)
	params.Set("flight_date", r.flightDate)
	params.Set("arr_iata", string(target))
	params.Set("limit", strconv.Itoa(r.limit))

	reqURL := fmt.Sprintf("%s/flights?%s", r.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &entity.SourceUnavailableError{Target: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &entity.SourceUnavailableError{Target: target, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &entity.SourceUnavailableError{Target: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &entity.SourceUnavailableError{Target: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", truncate(body, 256))}
	}

	var response flightsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &entity.SourceUnavailableError{Target: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if response.Error != nil {
		return nil, &entity.SourceUnavailableError{
			Target:     target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API error %s: %s", response.Error.Code, response.Error.Message),
		}
	}

	if response.Data == nil {
		return nil, &entity.SourceUnavailableError{Target: target, StatusCode: resp.StatusCode, Err: errors.New("response has no data field")}
	}

	flights := *response.Data
	r.logger.Debug("Fetched flights from source",
		"target", target,
		"count", len(flights))

	return flights, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
