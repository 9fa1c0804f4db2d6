package storage

import (
	"strings"
	"time"
)

type Event struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	LocationName    string           `json:"location_name"`
	LocationAddress string           `json:"location_address"`
	LocationDetails *LocationDetails `json:"location_details,omitempty"`
	Location        string           `json:"location"`
}

// LocationDetails is a structured postal address; unknown parts are nil.
type LocationDetails struct {
	StreetAddress *string `json:"street_address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Country       *string `json:"country"`
	PostalCode    *string `json:"postal_code"`
}

// Canonical joins the known parts as street, city, state, postal code, country.
func (d LocationDetails) Canonical() string {
	parts := make([]string, 0, 5)
	for _, p := range []*string{d.StreetAddress, d.City, d.State, d.PostalCode, d.Country} {
		if p == nil {
			continue
		}
		if v := strings.TrimSpace(*p); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

type LocationHint struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

func DisplayLocation(name, address string) string {
	switch {
	case name != "" && address != "":
		return name + " - " + address
	case name != "":
		return name
	default:
		return address
	}
}
