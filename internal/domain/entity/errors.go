package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned when a flight source request fails
	ErrSourceUnavailable = errors.New("flight source unavailable")
	// ErrPersistenceFailure is returned when the remote store rejects or misses a save
	ErrPersistenceFailure = errors.New("flight persistence failed")
	// ErrExportFailure is returned when the workbook cannot be produced
	ErrExportFailure = errors.New("flight export failed")
	// ErrNoFlights is returned by export and persist when the collection is empty
	ErrNoFlights = errors.New("no flight data available")
	// ErrRunInProgress is returned when another replica holds the aggregation lock
	ErrRunInProgress = errors.New("aggregation run already in progress")
	// ErrRunSuperseded is returned to a run that was replaced by a newer one
	ErrRunSuperseded = errors.New("aggregation run superseded")
)

// SourceUnavailableError describes a failed request for one query target
type SourceUnavailableError struct {
	Target     QueryTarget
	StatusCode int
	Err        error
}

func (e *SourceUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch flights for %s: status %d: %v", e.Target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch flights for %s: %v", e.Target, e.Err)
}

// Unwrap lets errors.Is match both ErrSourceUnavailable and the cause
func (e *SourceUnavailableError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}
