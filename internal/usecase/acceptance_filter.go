package usecase

import (
	"flight-aggregator-service/internal/domain/entity"
)

// AcceptanceFilter keeps flights whose both endpoints lie in allowed timezones.
// Membership is an exact string match.
type AcceptanceFilter struct {
	allowed map[string]struct{}
}

// NewAcceptanceFilter creates a filter over the given timezone identifiers
func NewAcceptanceFilter(timezones []string) *AcceptanceFilter {
	allowed := make(map[string]struct{}, len(timezones))
	for _, tz := range timezones {
		allowed[tz] = struct{}{}
	}
	return &AcceptanceFilter{allowed: allowed}
}

// Accepts reports whether departure and arrival timezones are both allowed
func (f *AcceptanceFilter) Accepts(flight *entity.Flight) bool {
	dep, ok := flight.DepartureTimezone()
	if !ok || !f.allows(dep) {
		return false
	}
	arr, ok := flight.ArrivalTimezone()
	return ok && f.allows(arr)
}

func (f *AcceptanceFilter) allows(tz string) bool {
	_, ok := f.allowed[tz]
	return ok
}
