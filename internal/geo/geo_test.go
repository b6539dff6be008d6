package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetfuel/sentinel/internal/model"
)

func TestDistanceKm_Symmetry(t *testing.T) {
	// Paris and Lyon
	d1 := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
	d2 := DistanceKm(45.7640, 4.8357, 48.8566, 2.3522)

	assert.Equal(t, d1, d2)
}

func TestDistanceKm_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(48.8566, 2.3522, 48.8566, 2.3522))
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Paris to Lyon is roughly 392 km great-circle
	d := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
	assert.InDelta(t, 392.0, d, 5.0)
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceKm(math.NaN(), 2.3522, 45.7640, 4.8357)))
}

func TestWithinRadius_BoundaryInclusive(t *testing.T) {
	centerLat, centerLon := 48.8566, 2.3522
	pointLat, pointLon := 48.8566, 2.3622

	// Use the exact computed distance as the radius: the boundary must
	// classify as inside
	radiusM := DistanceKm(pointLat, pointLon, centerLat, centerLon) * 1000
	assert.True(t, WithinRadius(pointLat, pointLon, centerLat, centerLon, radiusM))

	// Fractionally inside the boundary
	assert.True(t, WithinRadius(pointLat, pointLon, centerLat, centerLon, radiusM+0.001))

	// Clearly outside
	assert.False(t, WithinRadius(pointLat, pointLon, centerLat, centerLon, radiusM-1))
}

func TestWithinZone(t *testing.T) {
	zone := model.Zone{
		ID:      "depot-01",
		Type:    model.ZoneDepot,
		Center:  model.Coordinates{Lat: 48.8566, Lon: 2.3522},
		RadiusM: 500,
	}

	assert.True(t, WithinZone(model.Coordinates{Lat: 48.8566, Lon: 2.3522}, zone))
	assert.False(t, WithinZone(model.Coordinates{Lat: 48.9, Lon: 2.5}, zone))
}

func TestNearestZone_EmptyList(t *testing.T) {
	zone, _ := NearestZone(model.Coordinates{Lat: 48.8566, Lon: 2.3522}, nil)
	assert.Nil(t, zone)
}

func TestNearestZone_PicksClosest(t *testing.T) {
	point := model.Coordinates{Lat: 48.8566, Lon: 2.3522}
	zones := []model.Zone{
		{ID: "far", Center: model.Coordinates{Lat: 45.7640, Lon: 4.8357}, RadiusM: 100},
		{ID: "near", Center: model.Coordinates{Lat: 48.86, Lon: 2.36}, RadiusM: 100},
	}

	zone, distKm := NearestZone(point, zones)
	assert.NotNil(t, zone)
	assert.Equal(t, "near", zone.ID)
	assert.Less(t, distKm, 1.0)
}

func TestNearestZone_FirstZoneWinsTies(t *testing.T) {
	point := model.Coordinates{Lat: 0, Lon: 0}
	// Two zones at identical distance from the origin
	zones := []model.Zone{
		{ID: "a", Center: model.Coordinates{Lat: 0, Lon: 1}, RadiusM: 100},
		{ID: "b", Center: model.Coordinates{Lat: 0, Lon: -1}, RadiusM: 100},
	}

	zone, _ := NearestZone(point, zones)
	assert.Equal(t, "a", zone.ID)
}
