package models

import (
	"sort"
	"time"
)

// Location is a geotagged place attached to a profile, typically produced
// by reverse-geocoding a post's coordinates.
type Location struct {
	Name      string    `json:"name,omitempty"`
	Time      time.Time `json:"time,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude,omitempty"`
	Valid     bool      `json:"valid"`
}

// Equal reports whether two locations denote the same place. Two valid
// locations are equal when latitude and longitude match exactly; invalid
// locations are never equal to anything, coordinates notwithstanding.
func (l Location) Equal(other Location) bool {
	if !l.Valid || !other.Valid {
		return false
	}
	return l.Latitude == other.Latitude && l.Longitude == other.Longitude
}

// SortLocationsByTime orders locations most recent first, in place.
func SortLocationsByTime(locs []Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].Time.After(locs[j].Time)
	})
}
