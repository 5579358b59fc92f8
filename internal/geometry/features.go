package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"airbnbdash/server/internal/models"
)

// Center returns the mean position of the listings, the way the map widget
// centres itself. ok is false for an empty subset.
func Center(subset []models.Listing) (models.LatLng, bool) {
	var lat, lng float64
	n := 0
	for i := range subset {
		if !finite(subset[i].Latitude) || !finite(subset[i].Longitude) {
			continue
		}
		lat += subset[i].Latitude
		lng += subset[i].Longitude
		n++
	}
	if n == 0 {
		return models.LatLng{}, false
	}
	return models.LatLng{Lat: lat / float64(n), Lng: lng / float64(n)}, true
}

// ListingFeatures renders the listings as GeoJSON points carrying the fields
// the marker tooltip shows.
func ListingFeatures(subset []models.Listing) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range subset {
		l := &subset[i]
		if !finite(l.Latitude) || !finite(l.Longitude) {
			continue
		}
		f := geojson.NewFeature(Point(l))
		f.ID = l.ID
		f.Properties = geojson.Properties{
			"name":          l.Name,
			"neighbourhood": l.Neighbourhood,
			"room_type":     l.RoomType,
			"price":         l.Price,
		}
		fc.Append(f)
	}
	return fc
}

// NeighbourhoodHulls builds one convex hull polygon per neighbourhood from
// its listing positions. Neighbourhoods with fewer than three distinct
// positions are left out.
func NeighbourhoodHulls(subset []models.Listing) *geojson.FeatureCollection {
	points := make(map[string][]orb.Point)
	for i := range subset {
		l := &subset[i]
		if !finite(l.Latitude) || !finite(l.Longitude) {
			continue
		}
		points[l.Neighbourhood] = append(points[l.Neighbourhood], Point(l))
	}

	names := make([]string, 0, len(points))
	for name := range points {
		names = append(names, name)
	}
	sort.Strings(names)

	fc := geojson.NewFeatureCollection()
	for _, name := range names {
		ring := ConvexHull(points[name])
		if ring == nil {
			continue
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties = geojson.Properties{
			"neighbourhood": name,
			"point_count":   len(points[name]),
			"hull_type":     "convex",
		}
		fc.Append(f)
	}
	return fc
}

// ConvexHull returns the closed counter-clockwise hull ring of the points
// (monotone chain), or nil when they don't span an area.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	// drop duplicates
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return nil
	}

	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// collinear input collapses to a segment
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
