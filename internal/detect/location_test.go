package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetfuel/sentinel/internal/geo"
	"github.com/fleetfuel/sentinel/internal/model"
	"github.com/fleetfuel/sentinel/internal/thresholds"
)

// Stations on the equator: longitude degrees convert to kilometers at a
// fixed rate, which keeps expected distances easy to derive
func stationAt(id string, lon float64) model.Zone {
	return model.Zone{
		ID:      id,
		Name:    "Station " + id,
		Type:    model.ZoneStation,
		Center:  model.Coordinates{Lat: 0, Lon: lon},
		RadiusM: 100,
	}
}

func TestDetectOffZoneFillUp_ReferencesNearestStation(t *testing.T) {
	fillUp := fill("f1", 0, 1500, 40)
	fillUp.Location = &model.Coordinates{Lat: 0, Lon: 0}

	// Roughly 10 km and 25 km away
	near := stationAt("near", 0.09)
	far := stationAt("far", 0.225)
	zones := []model.Zone{far, near}

	alert := DetectOffZoneFillUp(fillUp, zones)
	require.NotNil(t, alert)

	assert.Equal(t, "OZ-f1", alert.ID)
	assert.Equal(t, model.AlertOffZoneFillUp, alert.Type)

	details := alert.Details.(model.OffZoneDetails)
	assert.Equal(t, "near", details.NearestZoneID)

	// Score and severity come from the nearest distance, not the farther one
	wantDist := geo.DistanceKm(0, 0, 0, 0.09)
	assert.InDelta(t, wantDist, details.DistanceKm, 1e-9)
	assert.InDelta(t, 60+2*wantDist, alert.Score, 1e-9) // ~80 for ~10 km
	assert.Equal(t, model.SeverityLow, alert.Severity)  // 10 km is not >20
}

func TestDetectOffZoneFillUp_SeverityBreakpoints(t *testing.T) {
	fillUp := fill("f1", 0, 1500, 40)
	fillUp.Location = &model.Coordinates{Lat: 0, Lon: 0}

	medium := DetectOffZoneFillUp(fillUp, []model.Zone{stationAt("s", 0.27)}) // ~30 km
	require.NotNil(t, medium)
	assert.Equal(t, model.SeverityMedium, medium.Severity)

	high := DetectOffZoneFillUp(fillUp, []model.Zone{stationAt("s", 0.54)}) // ~60 km
	require.NotNil(t, high)
	assert.Equal(t, model.SeverityHigh, high.Severity)
	assert.Equal(t, 95.0, high.Score) // 60+120 clamped to the cap
}

func TestDetectOffZoneFillUp_InsideZone(t *testing.T) {
	fillUp := fill("f1", 0, 1500, 40)
	fillUp.Location = &model.Coordinates{Lat: 0, Lon: 0}

	station := stationAt("s", 0)
	alert := DetectOffZoneFillUp(fillUp, []model.Zone{station})
	assert.Nil(t, alert)
}

func TestDetectOffZoneFillUp_NoCoordinates(t *testing.T) {
	alert := DetectOffZoneFillUp(fill("f1", 0, 1500, 40), []model.Zone{stationAt("s", 0.5)})
	assert.Nil(t, alert)
}

func TestDetectOffZoneFillUp_IgnoresNonStationZones(t *testing.T) {
	fillUp := fill("f1", 0, 1500, 40)
	fillUp.Location = &model.Coordinates{Lat: 0, Lon: 0}

	depot := model.Zone{
		ID:      "depot",
		Type:    model.ZoneDepot,
		Center:  model.Coordinates{Lat: 0, Lon: 0},
		RadiusM: 1000,
	}

	// Only a depot covers the point: no station zones at all means no alert
	alert := DetectOffZoneFillUp(fillUp, []model.Zone{depot})
	assert.Nil(t, alert)

	// With a distant station the depot does not count as authorized
	alert = DetectOffZoneFillUp(fillUp, []model.Zone{depot, stationAt("s", 0.3)})
	require.NotNil(t, alert)
}

func tripWithTrace(id string, distanceKm float64, lons ...float64) model.Trip {
	start := testNow.Add(-4 * time.Hour)
	trace := make([]model.TracePoint, len(lons))
	for i, lon := range lons {
		trace[i] = model.TracePoint{
			Coordinates: model.Coordinates{Lat: 0, Lon: lon},
			Timestamp:   start.Add(time.Duration(i) * 10 * time.Minute),
		}
	}
	return model.Trip{
		ID:         id,
		VehicleID:  "veh-001",
		StartTime:  start,
		EndTime:    testNow.Add(-time.Hour),
		DistanceKm: distanceKm,
		Trace:      trace,
	}
}

func TestDetectGPSDeviation_Fires(t *testing.T) {
	// Trace covers ~100 km but the trip declares 150 km
	trip := tripWithTrace("t1", 150, 0, 0.45, 0.9)

	alert := DetectGPSDeviation(trip, thresholds.Defaults())
	require.NotNil(t, alert)

	assert.Equal(t, "GO-t1", alert.ID)
	assert.Equal(t, trip.EndTime, alert.DetectedAt)

	details := alert.Details.(model.GPSDeviationDetails)
	wantTrace := traceDistanceKm(trip.Trace)
	assert.InDelta(t, wantTrace, details.TraceKm, 1e-9)

	wantDev := (150 - wantTrace) / wantTrace * 100
	assert.InDelta(t, wantDev, details.DeviationPct, 1e-9)
	assert.InDelta(t, 55+wantDev, alert.Score, 1e-9)
	assert.Equal(t, model.SeverityMedium, alert.Severity) // ~50% gap
}

func TestDetectGPSDeviation_WithinTolerance(t *testing.T) {
	trip := tripWithTrace("t1", 100, 0, 0.45, 0.9) // declared matches trace
	assert.Nil(t, DetectGPSDeviation(trip, thresholds.Defaults()))
}

func TestDetectGPSDeviation_NoTrace(t *testing.T) {
	trip := tripWithTrace("t1", 150)
	assert.Nil(t, DetectGPSDeviation(trip, thresholds.Defaults()))

	single := tripWithTrace("t2", 150, 0.1)
	assert.Nil(t, DetectGPSDeviation(single, thresholds.Defaults()))
}

func TestDetectImmobilization_Fires(t *testing.T) {
	// 30 hour gap between trips, parked away from any depot
	first := tripWithTrace("t1", 50, 0, 0.45)
	first.EndTime = testNow.Add(-40 * time.Hour)
	first.StartTime = first.EndTime.Add(-time.Hour)

	second := tripWithTrace("t2", 50, 0.45, 0.9)
	second.StartTime = testNow.Add(-10 * time.Hour)
	second.EndTime = second.StartTime.Add(time.Hour)

	depot := model.Zone{
		ID:      "depot",
		Type:    model.ZoneDepot,
		Center:  model.Coordinates{Lat: 10, Lon: 10},
		RadiusM: 500,
	}

	alert := DetectImmobilization(testVehicle(), []model.Trip{second, first}, []model.Zone{depot}, thresholds.Defaults())
	require.NotNil(t, alert)

	assert.Equal(t, "IM-t1", alert.ID)
	assert.Equal(t, first.EndTime, alert.DetectedAt)
	assert.Equal(t, 90.0, alert.Score) // 50+60 clamped to the cap
	assert.Equal(t, model.SeverityMedium, alert.Severity)

	details := alert.Details.(model.ImmobilizationDetails)
	assert.InDelta(t, 30.0, details.DurationHours, 1e-9)
	assert.Equal(t, model.Coordinates{Lat: 0, Lon: 0.45}, details.Location)
}

func TestDetectImmobilization_InsideDepot(t *testing.T) {
	first := tripWithTrace("t1", 50, 0, 0.45)
	first.EndTime = testNow.Add(-40 * time.Hour)
	first.StartTime = first.EndTime.Add(-time.Hour)

	second := tripWithTrace("t2", 50, 0.45, 0.9)
	second.StartTime = testNow.Add(-10 * time.Hour)
	second.EndTime = second.StartTime.Add(time.Hour)

	depot := model.Zone{
		ID:      "depot",
		Type:    model.ZoneDepot,
		Center:  model.Coordinates{Lat: 0, Lon: 0.45},
		RadiusM: 500,
	}

	alert := DetectImmobilization(testVehicle(), []model.Trip{first, second}, []model.Zone{depot}, thresholds.Defaults())
	assert.Nil(t, alert)
}

func TestDetectImmobilization_ShortGap(t *testing.T) {
	first := tripWithTrace("t1", 50, 0, 0.45)
	first.EndTime = testNow.Add(-5 * time.Hour)
	first.StartTime = first.EndTime.Add(-time.Hour)

	second := tripWithTrace("t2", 50, 0.45, 0.9)
	second.StartTime = testNow.Add(-time.Hour)
	second.EndTime = testNow

	alert := DetectImmobilization(testVehicle(), []model.Trip{first, second}, nil, thresholds.Defaults())
	assert.Nil(t, alert)
}

func TestDetectImmobilization_HighSeverity(t *testing.T) {
	first := tripWithTrace("t1", 50, 0, 0.45)
	first.EndTime = testNow.Add(-60 * time.Hour)
	first.StartTime = first.EndTime.Add(-time.Hour)

	second := tripWithTrace("t2", 50, 0.45, 0.9)
	second.StartTime = testNow.Add(-time.Hour)
	second.EndTime = testNow

	alert := DetectImmobilization(testVehicle(), []model.Trip{first, second}, nil, thresholds.Defaults())
	require.NotNil(t, alert)
	assert.Equal(t, model.SeverityHigh, alert.Severity) // 59 h is >48
}
