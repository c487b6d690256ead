package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Location is a saved favorite.
type Location struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   *string `json:"country"`
	Admin1    *string `json:"admin1"` // state/region
	UserID    *int    `json:"userId"`
}

// PlaceKind tells where a Place came from.
type PlaceKind string

const (
	PlaceUnsaved PlaceKind = "unsaved" // geocoding result
	PlaceSaved   PlaceKind = "saved"   // persisted favorite
)

var (
	errSavedPlaceID   = errors.New("saved place requires an id")
	errUnsavedPlaceID = errors.New("unsaved place must not carry an id")
	errPlaceKind      = errors.New("unknown place kind")
)

// Place is a location-like value that is either an unsaved search hit or a
// saved favorite. Only saved places carry an ID.
type Place struct {
	Kind      PlaceKind `json:"kind"`
	ID        int       `json:"id,omitempty"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Country   string    `json:"country,omitempty"`
	Admin1    string    `json:"admin1,omitempty"`
}

// NewUnsavedPlace builds a Place from a geocoding hit.
func NewUnsavedPlace(name string, lat, lon float64, country, admin1 string) Place {
	return Place{
		Kind:      PlaceUnsaved,
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Country:   country,
		Admin1:    admin1,
	}
}

// Place converts a saved favorite into its tagged form.
func (l Location) Place() Place {
	p := Place{
		Kind:      PlaceSaved,
		ID:        l.ID,
		Name:      l.Name,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
	if l.Country != nil {
		p.Country = *l.Country
	}
	if l.Admin1 != nil {
		p.Admin1 = *l.Admin1
	}
	return p
}

// Saved returns the favorite id when p is a saved place.
func (p Place) Saved() (int, bool) {
	if p.Kind != PlaceSaved {
		return 0, false
	}
	return p.ID, true
}

// Validate checks the kind/id pairing.
func (p Place) Validate() error {
	switch p.Kind {
	case PlaceSaved:
		if p.ID <= 0 {
			return errSavedPlaceID
		}
	case PlaceUnsaved:
		if p.ID != 0 {
			return errUnsavedPlaceID
		}
	default:
		return errPlaceKind
	}
	return nil
}

// Label renders "name, region, country" skipping blanks and repeats.
func (p Place) Label() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.Admin1, p.Country} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(parts) > 0 && strings.EqualFold(parts[len(parts)-1], s) {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// UnmarshalJSON accepts either a Place object or a bare label string.
// Objects without a kind are treated as saved when they carry an id.
func (p *Place) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		*p = Place{Kind: PlaceUnsaved, Name: label}
		return nil
	}

	type plain Place
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Kind == "" {
		v.Kind = PlaceUnsaved
		if v.ID > 0 {
			v.Kind = PlaceSaved
		}
	}
	*p = Place(v)
	return nil
}
