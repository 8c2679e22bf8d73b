package entity

import (
	"fmt"
	"strings"
)

// QueryTarget is an airport IATA code the pipeline fetches arrivals for
type QueryTarget string

// Catalog is the immutable set of query targets and accepted timezones.
// It is built once at startup and only handed out as copies.
type Catalog struct {
	targets   []QueryTarget
	timezones []string
}

// NewCatalog validates and freezes a catalog
func NewCatalog(targets []QueryTarget, timezones []string) (*Catalog, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("catalog has no query targets")
	}
	if len(timezones) == 0 {
		return nil, fmt.Errorf("catalog has no accepted timezones")
	}

	seen := make(map[QueryTarget]bool, len(targets))
	frozenTargets := make([]QueryTarget, 0, len(targets))
	for _, t := range targets {
		if strings.TrimSpace(string(t)) == "" {
			return nil, fmt.Errorf("catalog contains an empty query target")
		}
		if seen[t] {
			return nil, fmt.Errorf("catalog contains duplicate query target %q", t)
		}
		seen[t] = true
		frozenTargets = append(frozenTargets, t)
	}

	frozenTimezones := make([]string, 0, len(timezones))
	for _, tz := range timezones {
		if tz == "" {
			return nil, fmt.Errorf("catalog contains an empty timezone")
		}
		frozenTimezones = append(frozenTimezones, tz)
	}

	return &Catalog{
		targets:   frozenTargets,
		timezones: frozenTimezones,
	}, nil
}

// Targets returns the query targets in fetch order
func (c *Catalog) Targets() []QueryTarget {
	out := make([]QueryTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// Timezones returns the accepted timezone identifiers
func (c *Catalog) Timezones() []string {
	out := make([]string, len(c.timezones))
	copy(out, c.timezones)
	return out
}

// DefaultCatalog returns the built-in catalog: Spanish airports and European timezones
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(spanishAirports, europeanTimezones)
	if err != nil {
		panic(err)
	}
	return c
}

var spanishAirports = []QueryTarget{
	"ZAZ", "VIT", "VGO", "VLL", "VLC", "TOJ", "TEV", "TFS", "TFN", "SVQ", "SCQ", "SDR",
	"EAS", "MJV", "SLM", "QSA", "ROZ", "REU", "RMU", "LEU", "POS", "PNA", "PMI", "AGP",
	"OZP", "MAH", "MLN", "RJL", "ILD", "LEN", "ACE", "SPC", "GMZ", "XRY", "IBZ", "HSK",
	"VDE", "LPA", "GRO", "FUE", "GRX", "ODB", "ECV", "CQM", "CDT", "RGS", "BIO", "BCN",
	"BJZ", "OVD", "LEI", "ALC", "AEI", "ABC", "MAD", "LCG",
}

var europeanTimezones = []string{
	"Europe/Andorra", "Europe/Tirane", "Europe/Vienna", "Europe/Minsk",
	"Europe/Brussels", "Europe/Sofia", "Europe/Prague", "Europe/Copenhagen",
	"Europe/Tallinn", "Europe/Helsinki", "Europe/Paris", "Europe/Berlin",
	"Europe/Athens", "Europe/Budapest", "Europe/Reykjavik", "Europe/Dublin",
	"Europe/Rome", "Europe/Riga", "Europe/Vaduz", "Europe/Vilnius",
	"Europe/Luxembourg", "Europe/Malta", "Europe/Chisinau", "Europe/Monaco",
	"Europe/Amsterdam", "Europe/Oslo", "Europe/Warsaw", "Europe/Lisbon",
	"Europe/Bucharest", "Europe/Moscow", "Europe/San_Marino", "Europe/Belgrade",
	"Europe/Bratislava", "Europe/Ljubljana", "Europe/Madrid", "Europe/Stockholm",
	"Europe/Zurich", "Europe/Kiev", "Europe/London", "Europe/Vatican", "Atlantic/Canary",
}
