package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/fleetfuel/sentinel/internal/geo"
	"github.com/fleetfuel/sentinel/internal/model"
	"github.com/fleetfuel/sentinel/internal/thresholds"
)

// DetectOffZoneFillUp fires when a fill-up's coordinates lie outside every
// authorized station zone. Returns nil when the fill-up carries no
// coordinates or no station zones are configured.
func DetectOffZoneFillUp(fillUp model.FillUp, zones []model.Zone) *model.Alert {
	if fillUp.Location == nil {
		return nil
	}

	var stations []model.Zone
	for _, z := range zones {
		if z.Type == model.ZoneStation {
			stations = append(stations, z)
		}
	}
	if len(stations) == 0 {
		return nil
	}

	for _, z := range stations {
		if geo.WithinZone(*fillUp.Location, z) {
			return nil
		}
	}

	nearest, distKm := geo.NearestZone(*fillUp.Location, stations)

	severity := model.SeverityLow
	switch {
	case distKm > 50:
		severity = model.SeverityHigh
	case distKm > 20:
		severity = model.SeverityMedium
	}

	return &model.Alert{
		ID:        alertID("OZ", fillUp.ID),
		VehicleID: fillUp.VehicleID,
		DriverID:  fillUp.DriverID,
		Type:      model.AlertOffZoneFillUp,
		Title:     "Fill-up outside authorized stations",
		Description: fmt.Sprintf("Fill-up located %.1f km from the nearest authorized station (%s)",
			distKm, nearest.Name),
		Score:      clampScore(60+2*distKm, 95),
		Severity:   severity,
		Status:     model.StatusNew,
		DetectedAt: fillUp.Timestamp,
		Details: model.OffZoneDetails{
			NearestZoneID:   nearest.ID,
			NearestZoneName: nearest.Name,
			DistanceKm:      distKm,
		},
	}
}

// DetectGPSDeviation fires when a trip's declared distance deviates from
// its GPS trace distance by more than the configured percentage. Returns
// nil for trips without a usable trace.
func DetectGPSDeviation(trip model.Trip, th thresholds.Snapshot) *model.Alert {
	if len(trip.Trace) < 2 {
		return nil
	}

	traceKm := traceDistanceKm(trip.Trace)
	if traceKm <= 0 {
		return nil
	}

	deviationPct := math.Abs(trip.DistanceKm-traceKm) / traceKm * 100
	if deviationPct <= th.GPSDeviationPct {
		return nil
	}

	severity := model.SeverityLow
	switch {
	case deviationPct > 50:
		severity = model.SeverityHigh
	case deviationPct > 30:
		severity = model.SeverityMedium
	}

	return &model.Alert{
		ID:        alertID("GO", trip.ID),
		VehicleID: trip.VehicleID,
		DriverID:  trip.DriverID,
		Type:      model.AlertGPSDeviation,
		Title:     "Declared distance deviates from GPS trace",
		Description: fmt.Sprintf("Trip declares %.1f km but its GPS trace covers %.1f km (%.1f%% apart)",
			trip.DistanceKm, traceKm, deviationPct),
		Score:      clampScore(55+deviationPct, 95),
		Severity:   severity,
		Status:     model.StatusNew,
		DetectedAt: trip.EndTime,
		Details: model.GPSDeviationDetails{
			DeclaredKm:   trip.DistanceKm,
			TraceKm:      traceKm,
			DeviationPct: deviationPct,
		},
	}
}

// DetectImmobilization fires when the vehicle sat stationary outside every
// depot zone for at least the configured number of hours. Stationary
// periods are the gaps between consecutive trips; the location is the last
// trace point of the preceding trip. Returns nil without two trips or a
// trace on the preceding one.
func DetectImmobilization(vehicle model.Vehicle, trips []model.Trip, zones []model.Zone, th thresholds.Snapshot) *model.Alert {
	var own []model.Trip
	for _, t := range trips {
		if t.VehicleID == vehicle.ID {
			own = append(own, t)
		}
	}
	if len(own) < 2 {
		return nil
	}

	sort.SliceStable(own, func(i, j int) bool {
		return own[i].StartTime.Before(own[j].StartTime)
	})

	for i := 1; i < len(own); i++ {
		prev, next := own[i-1], own[i]
		if len(prev.Trace) == 0 {
			continue
		}

		hours := next.StartTime.Sub(prev.EndTime).Hours()
		if hours < th.ImmobilizationHours {
			continue
		}

		location := prev.Trace[len(prev.Trace)-1].Coordinates
		if insideDepot(location, zones) {
			continue
		}

		severity := model.SeverityLow
		switch {
		case hours > 48:
			severity = model.SeverityHigh
		case hours > 24:
			severity = model.SeverityMedium
		}

		return &model.Alert{
			ID:        alertID("IM", prev.ID),
			VehicleID: vehicle.ID,
			DriverID:  prev.DriverID,
			Type:      model.AlertImmobilization,
			Title:     "Abnormal immobilization",
			Description: fmt.Sprintf("Vehicle stationary for %.1f hours outside any depot zone",
				hours),
			Score:      clampScore(50+hours*2, 90),
			Severity:   severity,
			Status:     model.StatusNew,
			DetectedAt: prev.EndTime,
			Details: model.ImmobilizationDetails{
				DurationHours: hours,
				Location:      location,
			},
		}
	}

	return nil
}

// traceDistanceKm sums haversine distances over consecutive trace points
func traceDistanceKm(trace []model.TracePoint) float64 {
	var km float64
	for i := 1; i < len(trace); i++ {
		km += geo.DistanceKm(trace[i-1].Lat, trace[i-1].Lon, trace[i].Lat, trace[i].Lon)
	}
	return km
}

func insideDepot(point model.Coordinates, zones []model.Zone) bool {
	for _, z := range zones {
		if z.Type == model.ZoneDepot && geo.WithinZone(point, z) {
			return true
		}
	}
	return false
}
