package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"airbnbdash/server/internal/models"
)

// Point converts a listing position to an orb point (lng, lat order).
func Point(l *models.Listing) orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// Bound converts a viewport into an axis-aligned orb bound.
func Bound(v models.Viewport) orb.Bound {
	return orb.Bound{
		Min: orb.Point{v.SouthWest.Lng, v.SouthWest.Lat},
		Max: orb.Point{v.NorthEast.Lng, v.NorthEast.Lat},
	}
}

// ValidateViewport rejects coordinates outside the valid lat/lng ranges.
// Zero-area and inverted viewports are accepted.
func ValidateViewport(v models.Viewport) error {
	for _, p := range []models.LatLng{v.SouthWest, v.NorthEast} {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return fmt.Errorf("invalid viewport corner (%v, %v)", p.Lat, p.Lng)
		}
	}
	return nil
}

// Visible keeps the listings inside the viewport, bounds included, in input
// order. A nil viewport means no restriction. An inverted viewport is an
// empty interval and a zero-area one keeps listings exactly on its point.
func Visible(subset []models.Listing, viewport *models.Viewport) []models.Listing {
	if viewport == nil {
		out := make([]models.Listing, len(subset))
		copy(out, subset)
		return out
	}

	bound := Bound(*viewport)
	out := make([]models.Listing, 0, len(subset))
	for i := range subset {
		l := &subset[i]
		if !finite(l.Latitude) || !finite(l.Longitude) {
			continue
		}
		if bound.Contains(Point(l)) {
			out = append(out, *l)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
