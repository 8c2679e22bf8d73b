// internal/domain/entity/aggregation_run.go
package entity

import (
	"time"
)

// RunState is the presentation state of the current aggregation run
type RunState string

// Aggregation run states
const (
	RunStateIdle      RunState = "idle"
	RunStateLoading   RunState = "loading"
	RunStateError     RunState = "error"
	RunStatePopulated RunState = "populated"
)

// FailurePolicy decides what a failing query target does to the run
type FailurePolicy string

const (
	// FailurePolicyAbort stops the run at the first failure and keeps nothing
	FailurePolicyAbort FailurePolicy = "abort"
	// FailurePolicyPartial records the failure and continues with the next target
	FailurePolicyPartial FailurePolicy = "partial"
)

// TargetFailure records a query target whose fetch failed
type TargetFailure struct {
	Target QueryTarget `json:"target" bson:"target"`
	Error  string      `json:"error" bson:"error"`
}

// AggregationResult is what one pipeline execution produced
type AggregationResult struct {
	Flights  []AggregatedFlight
	Failures []TargetFailure
	Fetched  int
	Accepted int
	Rejected int
}

// AggregationRun is the state of one aggregation execution
type AggregationRun struct {
	ID          string
	State       RunState
	Policy      FailurePolicy
	FlightDate  string
	Err         error
	Failures    []TargetFailure
	Flights     []AggregatedFlight
	TargetCount int
	Fetched     int
	Accepted    int
	Rejected    int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Summary converts a finished run into its history record
func (r *AggregationRun) Summary() *RunSummary {
	summary := &RunSummary{
		RunID:         r.ID,
		State:         string(r.State),
		Policy:        string(r.Policy),
		FlightDate:    r.FlightDate,
		Failures:      r.Failures,
		TargetCount:   r.TargetCount,
		FetchedCount:  r.Fetched,
		AcceptedCount: r.Accepted,
		RejectedCount: r.Rejected,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
	if r.Err != nil {
		summary.Error = r.Err.Error()
	}
	if !r.FinishedAt.IsZero() {
		summary.DurationMs = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	}
	return summary
}

// RunSummary is the persisted history entry of an aggregation run
type RunSummary struct {
	ID            string          `json:"-" bson:"_id,omitempty"`
	RunID         string          `json:"runId" bson:"runId"`
	State         string          `json:"state" bson:"state"`
	Policy        string          `json:"policy" bson:"policy"`
	FlightDate    string          `json:"flightDate" bson:"flightDate"`
	Error         string          `json:"error,omitempty" bson:"error,omitempty"`
	Failures      []TargetFailure `json:"failures,omitempty" bson:"failures,omitempty"`
	TargetCount   int             `json:"targetCount" bson:"targetCount"`
	FetchedCount  int             `json:"fetchedCount" bson:"fetchedCount"`
	AcceptedCount int             `json:"acceptedCount" bson:"acceptedCount"`
	RejectedCount int             `json:"rejectedCount" bson:"rejectedCount"`
	StartedAt     time.Time       `json:"startedAt" bson:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt" bson:"finishedAt"`
	DurationMs    int64           `json:"durationMs" bson:"durationMs"`
}
