package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayLocation(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{name: "Panera Bread", address: "123 Main St, Springfield", expected: "Panera Bread - 123 Main St, Springfield"},
		{name: "Panera Bread", address: "", expected: "Panera Bread"},
		{name: "", address: "123 Main St, Springfield", expected: "123 Main St, Springfield"},
		{name: "", address: "", expected: ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, DisplayLocation(tt.name, tt.address))
	}
}

func TestCanonical(t *testing.T) {
	street, city, state, postal, country, blank := "123 Main St", "Springfield", "IL", "62701", "USA", "  "

	require.Equal(t, "123 Main St, Springfield, IL, 62701, USA", LocationDetails{
		StreetAddress: &street,
		City:          &city,
		State:         &state,
		Country:       &country,
		PostalCode:    &postal,
	}.Canonical())
	require.Equal(t, "Springfield, USA", LocationDetails{City: &city, Country: &country, State: &blank}.Canonical())
	require.Equal(t, "", LocationDetails{}.Canonical())
}
