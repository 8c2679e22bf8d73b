// internal/domain/entity/payload.go
package entity

// FlightsPayload is the body submitted to the remote flight store
type FlightsPayload struct {
	Flights []AggregatedFlight `json:"flights"`
}
