package entity

// ExportSheetName is the worksheet holding exported flights
const ExportSheetName = "Flights"

// ExportFileName is the file name offered for the exported workbook
const ExportFileName = "flights_data.xlsx"

var exportHeaders = []string{
	"FlightIATA",
	"FlightStatus",
	"DepartureAirport",
	"ArrivalAirport",
	"DepartureIATA",
	"DepartureICAO",
	"ActualDeparture",
	"ActualArrival",
	"ArrivalIATA",
	"ArrivalICAO",
	"AirlineName",
	"FlightNumber",
	"DepartureDelay",
	"ArrivalDelay",
	"DepartureEstimated",
	"ArrivalEstimated",
	"DepartureScheduled",
	"ArrivalScheduled",
}

// ExportHeaders returns the spreadsheet column headers in column order
func ExportHeaders() []string {
	headers := make([]string, len(exportHeaders))
	copy(headers, exportHeaders)
	return headers
}

// ExportRecord is the flat, spreadsheet-ready projection of an AggregatedFlight.
// A nil field means the source did not supply the value.
type ExportRecord struct {
	FlightIATA         *string
	FlightStatus       *string
	DepartureAirport   *string
	ArrivalAirport     *string
	DepartureIATA      *string
	DepartureICAO      *string
	ActualDeparture    *string
	ActualArrival      *string
	ArrivalIATA        *string
	ArrivalICAO        *string
	AirlineName        *string
	FlightNumber       *string
	DepartureDelay     *int
	ArrivalDelay       *int
	DepartureEstimated *string
	ArrivalEstimated   *string
	DepartureScheduled *string
	ArrivalScheduled   *string
}

// ToExportRecord projects a flight onto the export columns. It never fails:
// missing nested objects simply leave their columns empty.
func ToExportRecord(f AggregatedFlight) ExportRecord {
	dep := f.Departure
	if dep == nil {
		dep = &FlightLeg{}
	}
	arr := f.Arrival
	if arr == nil {
		arr = &FlightLeg{}
	}
	airline := f.Airline
	if airline == nil {
		airline = &Airline{}
	}
	info := f.Flight.Flight
	if info == nil {
		info = &FlightInfo{}
	}

	return ExportRecord{
		FlightIATA:         info.IATA,
		FlightStatus:       f.FlightStatus,
		DepartureAirport:   dep.Airport,
		ArrivalAirport:     arr.Airport,
		DepartureIATA:      dep.IATA,
		DepartureICAO:      dep.ICAO,
		ActualDeparture:    dep.Actual,
		ActualArrival:      arr.Actual,
		ArrivalIATA:        arr.IATA,
		ArrivalICAO:        arr.ICAO,
		AirlineName:        airline.Name,
		FlightNumber:       info.Number,
		DepartureDelay:     dep.Delay,
		ArrivalDelay:       arr.Delay,
		DepartureEstimated: dep.Estimated,
		ArrivalEstimated:   arr.Estimated,
		DepartureScheduled: dep.Scheduled,
		ArrivalScheduled:   arr.Scheduled,
	}
}

// Values returns the cell values in ExportHeaders order; absent values are untyped nil
func (r ExportRecord) Values() []interface{} {
	return []interface{}{
		stringCell(r.FlightIATA),
		stringCell(r.FlightStatus),
		stringCell(r.DepartureAirport),
		stringCell(r.ArrivalAirport),
		stringCell(r.DepartureIATA),
		stringCell(r.DepartureICAO),
		stringCell(r.ActualDeparture),
		stringCell(r.ActualArrival),
		stringCell(r.ArrivalIATA),
		stringCell(r.ArrivalICAO),
		stringCell(r.AirlineName),
		stringCell(r.FlightNumber),
		intCell(r.DepartureDelay),
		intCell(r.ArrivalDelay),
		stringCell(r.DepartureEstimated),
		stringCell(r.ArrivalEstimated),
		stringCell(r.DepartureScheduled),
		stringCell(r.ArrivalScheduled),
	}
}

func stringCell(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intCell(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
