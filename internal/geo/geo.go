// Package geo provides the geospatial kernel: great-circle distance and
// circular geofence containment. All functions are pure and stateless;
// NaN inputs propagate rather than error.
package geo

import (
	"math"

	"github.com/fleetfuel/sentinel/internal/model"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometers between two
// WGS84 coordinates using the haversine formula
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// WithinRadius reports whether a point lies inside a circular zone.
// The boundary is inclusive: a point exactly radiusM away is inside.
func WithinRadius(pointLat, pointLon, centerLat, centerLon, radiusM float64) bool {
	return DistanceKm(pointLat, pointLon, centerLat, centerLon)*1000 <= radiusM
}

// WithinZone reports whether a point lies inside a geofence zone
func WithinZone(point model.Coordinates, zone model.Zone) bool {
	return WithinRadius(point.Lat, point.Lon, zone.Center.Lat, zone.Center.Lon, zone.RadiusM)
}

// NearestZone returns the closest zone to a point and its distance in
// kilometers. Linear scan in input order; the first zone wins ties, so the
// result is deterministic for identical input. Returns nil for an empty
// zone list.
func NearestZone(point model.Coordinates, zones []model.Zone) (*model.Zone, float64) {
	var nearest *model.Zone
	best := math.Inf(1)

	for i := range zones {
		d := DistanceKm(point.Lat, point.Lon, zones[i].Center.Lat, zones[i].Center.Lon)
		if d < best {
			best = d
			nearest = &zones[i]
		}
	}

	if nearest == nil {
		return nil, 0
	}
	return nearest, best
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
