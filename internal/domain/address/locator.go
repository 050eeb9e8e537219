package address

import (
	"context"
	"math"
)

// Report is a one-shot position report sent by the shopper's device: either
// coordinates or the error code its geolocation API produced.
type Report struct {
	Position  *Position
	ErrorCode string
}

var _ Locator = Report{}

// CurrentPosition returns the reported position. Missing or out-of-range
// coordinates are reported as unavailable.
func (r Report) CurrentPosition(ctx context.Context, _ LocateOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, &LocationError{Code: CodeTimeout}
	}
	if r.ErrorCode != "" {
		return Position{}, &LocationError{Code: ParseErrorCode(r.ErrorCode)}
	}
	if r.Position == nil || !validCoordinate(*r.Position) {
		return Position{}, &LocationError{Code: CodeUnavailable}
	}
	return *r.Position, nil
}

func validCoordinate(p Position) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
