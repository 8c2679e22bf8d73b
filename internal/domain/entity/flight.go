// internal/domain/entity/flight.go
package entity

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// FlightLeg is the departure or arrival side of a flight as returned by aviationstack
type FlightLeg struct {
	Airport         *string `json:"airport"`
	Timezone        *string `json:"timezone"`
	IATA            *string `json:"iata"`
	ICAO            *string `json:"icao"`
	Terminal        *string `json:"terminal"`
	Gate            *string `json:"gate"`
	Baggage         *string `json:"baggage,omitempty"`
	Delay           *int    `json:"delay"`
	Scheduled       *string `json:"scheduled"`
	Estimated       *string `json:"estimated"`
	Actual          *string `json:"actual"`
	EstimatedRunway *string `json:"estimated_runway"`
	ActualRunway    *string `json:"actual_runway"`
}

// Airline identifies the operating carrier
type Airline struct {
	Name *string `json:"name"`
	IATA *string `json:"iata"`
	ICAO *string `json:"icao"`
}

// Codeshare describes the marketing flight when the record is a codeshare
type Codeshare struct {
	AirlineName  *string `json:"airline_name"`
	AirlineIATA  *string `json:"airline_iata"`
	AirlineICAO  *string `json:"airline_icao"`
	FlightNumber *string `json:"flight_number"`
	FlightIATA   *string `json:"flight_iata"`
	FlightICAO   *string `json:"flight_icao"`
}

// FlightInfo holds the flight designators
type FlightInfo struct {
	Number     *string    `json:"number"`
	IATA       *string    `json:"iata"`
	ICAO       *string    `json:"icao"`
	Codeshared *Codeshare `json:"codeshared"`
}

// Aircraft identifies the airframe, when known
type Aircraft struct {
	Registration *string `json:"registration"`
	IATA         *string `json:"iata"`
	ICAO         *string `json:"icao"`
	ICAO24       *string `json:"icao24"`
}

// LiveData is the last position report for an airborne flight
type LiveData struct {
	Updated         *string  `json:"updated"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Altitude        *float64 `json:"altitude"`
	Direction       *float64 `json:"direction"`
	SpeedHorizontal *float64 `json:"speed_horizontal"`
	SpeedVertical   *float64 `json:"speed_vertical"`
	IsGround        *bool    `json:"is_ground"`
}

// Flight is one raw record from the flight source. Every field may be null.
//
// The decoded JSON object is kept alongside the typed fields so the record
// can be forwarded with the source's keys, key order and values intact.
type Flight struct {
	FlightDate   *string     `json:"flight_date"`
	FlightStatus *string     `json:"flight_status"`
	Departure    *FlightLeg  `json:"departure"`
	Arrival      *FlightLeg  `json:"arrival"`
	Airline      *Airline    `json:"airline"`
	Flight       *FlightInfo `json:"flight"`
	Aircraft     *Aircraft   `json:"aircraft"`
	Live         *LiveData   `json:"live"`

	raw []byte
}

type flightFields Flight

// UnmarshalJSON decodes the typed fields and keeps a copy of the source object
func (f *Flight) UnmarshalJSON(data []byte) error {
	var fields flightFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*f = Flight(fields)
	f.raw = append([]byte(nil), data...)
	return nil
}

// MarshalJSON returns the source object when available, the typed fields otherwise
func (f Flight) MarshalJSON() ([]byte, error) {
	if len(f.raw) > 0 {
		return f.raw, nil
	}
	return json.Marshal(flightFields(f))
}

// DepartureTimezone returns the departure timezone and whether it is present
func (f *Flight) DepartureTimezone() (string, bool) {
	if f == nil || f.Departure == nil || f.Departure.Timezone == nil {
		return "", false
	}
	return *f.Departure.Timezone, true
}

// ArrivalTimezone returns the arrival timezone and whether it is present
func (f *Flight) ArrivalTimezone() (string, bool) {
	if f == nil || f.Arrival == nil || f.Arrival.Timezone == nil {
		return "", false
	}
	return *f.Arrival.Timezone, true
}

// AggregatedFlight is a Flight accepted by one aggregation run, tagged with
// the run-local sequence number.
type AggregatedFlight struct {
	ID int `json:"id"`
	Flight
}

// MarshalJSON writes the source object with an "id" key appended. Keys and
// values of the source object keep their original order and encoding; an
// existing "id" key is replaced.
func (a AggregatedFlight) MarshalJSON() ([]byte, error) {
	body, err := a.Flight.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, err
	}
	id := strconv.Itoa(a.ID)
	if object == nil {
		return []byte(`{"id":` + id + `}`), nil
	}

	if _, ok := object["id"]; ok {
		object["id"] = json.RawMessage(id)
		return json.Marshal(object)
	}

	body = bytes.TrimSpace(body)
	end := bytes.LastIndexByte(body, '}')
	if end < 0 {
		return nil, fmt.Errorf("flight record is not a JSON object")
	}

	out := make([]byte, 0, len(body)+len(id)+8)
	out = append(out, body[:end]...)
	if len(object) > 0 {
		out = append(out, ',')
	}
	out = append(out, `"id":`...)
	out = append(out, id...)
	out = append(out, '}')
	return out, nil
}

// UnmarshalJSON reads a flight object carrying an "id" key
func (a *AggregatedFlight) UnmarshalJSON(data []byte) error {
	var flight Flight
	if err := flight.UnmarshalJSON(data); err != nil {
		return err
	}

	var tag struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	a.ID = tag.ID
	a.Flight = flight
	return nil
}
