// Package address resolves a device position into a human-readable delivery
// address.
package address

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Placeholder is the address used when reverse geocoding yields nothing usable.
const Placeholder = "location marked on map"

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocateOptions mirrors the options of a browser geolocation request.
type LocateOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultLocateOptions requests a fresh high-accuracy fix within 15 seconds.
var DefaultLocateOptions = LocateOptions{
	HighAccuracy: true,
	Timeout:      15 * time.Second,
	MaximumAge:   0,
}

// Locator is a single-shot device geolocation capability.
type Locator interface {
	CurrentPosition(ctx context.Context, opts LocateOptions) (Position, error)
}

// ErrLocationUnavailable matches every LocationError.
var ErrLocationUnavailable = errors.New("location unavailable")

// ErrorCode classifies geolocation failures.
type ErrorCode string

const (
	// CodePermissionDenied means the user refused location access.
	CodePermissionDenied ErrorCode = "permission_denied"
	// CodeTimeout means no fix arrived within LocateOptions.Timeout.
	CodeTimeout ErrorCode = "timeout"
	// CodeUnavailable covers missing capability and any other failure.
	CodeUnavailable ErrorCode = "unavailable"
)

// LocationError is returned when the device position cannot be obtained.
type LocationError struct {
	Code ErrorCode
}

func (e *LocationError) Error() string {
	switch e.Code {
	case CodePermissionDenied:
		return "location permission denied"
	case CodeTimeout:
		return "location request timed out"
	default:
		return "location unavailable"
	}
}

// Is makes the error match ErrLocationUnavailable.
func (e *LocationError) Is(target error) bool {
	return target == ErrLocationUnavailable
}

// ParseErrorCode maps a client-reported code to an ErrorCode. Unknown values
// map to CodeUnavailable.
func ParseErrorCode(v string) ErrorCode {
	switch ErrorCode(v) {
	case CodePermissionDenied, CodeTimeout:
		return ErrorCode(v)
	default:
		return CodeUnavailable
	}
}

// Place is a structured reverse-geocoding result. Any field may be empty.
type Place struct {
	Road          string
	Street        string
	Pedestrian    string
	Path          string
	Residential   string
	Lane          string
	Service       string
	HouseNumber   string
	Name          string
	Neighbourhood string
	Suburb        string
	City          string
	Town          string
	Village       string
	DisplayName   string
}

// Geocoder converts coordinates into a Place.
type Geocoder interface {
	Reverse(ctx context.Context, pos Position) (*Place, error)
}

// State is the delivery address of a checkout session.
type State struct {
	Text     string    `json:"text"`
	ShowMap  bool      `json:"show_map"`
	Position *Position `json:"position,omitempty"`
}

// Format builds the display address using the first applicable rule:
//
//  1. road name, then " #house", then ", neighbourhood";
//  2. point of interest name and neighbourhood;
//  3. neighbourhood, followed by the city when known;
//  4. the first three tokens of the display name;
//  5. Placeholder.
func Format(p *Place) string {
	if p == nil {
		return Placeholder
	}
	hood := firstOf(p.Neighbourhood, p.Suburb)

	if road := firstOf(p.Road, p.Street, p.Pedestrian, p.Path, p.Residential, p.Lane, p.Service); road != "" {
		s := road
		if p.HouseNumber != "" {
			s += " #" + p.HouseNumber
		}
		if hood != "" {
			s += ", " + hood
		}
		return s
	}

	if p.Name != "" {
		return joinNonEmpty(p.Name, hood)
	}

	if hood != "" {
		return joinNonEmpty(hood, firstOf(p.City, p.Town, p.Village))
	}

	if p.DisplayName != "" {
		var tokens []string
		for _, t := range strings.Split(p.DisplayName, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
			if len(tokens) == 3 {
				break
			}
		}
		if len(tokens) > 0 {
			return strings.Join(tokens, ", ")
		}
	}

	return Placeholder
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}
