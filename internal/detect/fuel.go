package detect

import (
	"fmt"
	"time"

	"github.com/fleetfuel/sentinel/internal/analytics"
	"github.com/fleetfuel/sentinel/internal/model"
	"github.com/fleetfuel/sentinel/internal/thresholds"
)

// DetectOverconsumption fires when the vehicle's rolling average consumption
// exceeds its nominal rate by more than the configured percentage. Returns
// nil when the window holds insufficient data.
func DetectOverconsumption(vehicle model.Vehicle, fillUps []model.FillUp, th thresholds.Snapshot, now time.Time) *model.Alert {
	avg, ok := analytics.AverageConsumption(vehicle.ID, fillUps, th.AnalysisPeriodDays, now)
	if !ok {
		return nil
	}

	limit := vehicle.NominalLPer100Km * (1 + th.OverconsumptionPct/100)
	if avg <= limit {
		return nil
	}

	deviationPct := (avg - vehicle.NominalLPer100Km) / vehicle.NominalLPer100Km * 100

	severity := model.SeverityLow
	switch {
	case deviationPct > 40:
		severity = model.SeverityHigh
	case deviationPct > 25:
		severity = model.SeverityMedium
	}

	// The alert is anchored to the latest fill-up in the window, not the
	// evaluation time
	latest := latestInWindow(vehicle.ID, fillUps, th.AnalysisPeriodDays, now)

	return &model.Alert{
		ID:        alertID("OC", latest.ID),
		VehicleID: vehicle.ID,
		DriverID:  latest.DriverID,
		Type:      model.AlertOverconsumption,
		Title:     "Abnormal fuel consumption",
		Description: fmt.Sprintf("Average consumption %.1f L/100km exceeds nominal %.1f L/100km by %.1f%%",
			avg, vehicle.NominalLPer100Km, deviationPct),
		Score:      clampScore(50+deviationPct, 95),
		Severity:   severity,
		Status:     model.StatusNew,
		DetectedAt: latest.Timestamp,
		Details: model.OverconsumptionDetails{
			AverageLPer100Km: avg,
			NominalLPer100Km: vehicle.NominalLPer100Km,
			DeviationPct:     deviationPct,
		},
	}
}

// DetectMissingFuel reconstructs the expected fuel level around a fill-up
// from the level samples and the theoretical consumption of the trips in
// between, and fires when the measured level falls short by more than the
// configured floor. Returns nil when either bracketing sample is absent.
func DetectMissingFuel(vehicle model.Vehicle, fillUp model.FillUp, levels []model.FuelLevelSample, trips []model.Trip, th thresholds.Snapshot) *model.Alert {
	before, after, ok := bracketingSamples(vehicle.ID, fillUp, levels)
	if !ok {
		return nil
	}

	theoretical := theoreticalConsumptionL(vehicle, trips, before.Timestamp, after.Timestamp)

	return evaluateFuelBalance(vehicle, fillUp, before.Liters, after.Liters, theoretical, th)
}

// evaluateFuelBalance applies the missing-fuel arithmetic to resolved
// inputs: expected = levelBefore + litersAdded - theoretical consumption
func evaluateFuelBalance(vehicle model.Vehicle, fillUp model.FillUp, levelBeforeL, actualL, theoreticalL float64, th thresholds.Snapshot) *model.Alert {
	expected := levelBeforeL + fillUp.Liters - theoreticalL
	missing := expected - actualL
	if missing <= th.MissingFuelFloorL {
		return nil
	}

	deviationPct := missing / expected * 100

	severity := model.SeverityLow
	switch {
	case missing > 30:
		severity = model.SeverityHigh
	case missing > 15:
		severity = model.SeverityMedium
	}

	return &model.Alert{
		ID:        alertID("MF", fillUp.ID),
		VehicleID: vehicle.ID,
		DriverID:  fillUp.DriverID,
		Type:      model.AlertMissingFuel,
		Title:     "Missing fuel",
		Description: fmt.Sprintf("Expected level %.1f L after fill-up, measured %.1f L: %.1f L unaccounted for",
			expected, actualL, missing),
		Score:      clampScore(70+deviationPct, 98),
		Severity:   severity,
		Status:     model.StatusNew,
		DetectedAt: fillUp.Timestamp,
		Details: model.MissingFuelDetails{
			ExpectedL:    expected,
			ActualL:      actualL,
			MissingL:     missing,
			DeviationPct: deviationPct,
		},
	}
}

// DetectManualEntryDrift compares the average consumption computed from
// manual fill-ups against the one computed from automatic fill-ups over the
// analysis window. A systematic gap beyond the overconsumption threshold
// flags manual overstatement. Returns nil unless both groups have enough
// data.
func DetectManualEntryDrift(vehicle model.Vehicle, fillUps []model.FillUp, th thresholds.Snapshot, now time.Time) *model.Alert {
	manual, ok := analytics.AverageConsumptionByEntry(vehicle.ID, fillUps, model.EntryManual, th.AnalysisPeriodDays, now)
	if !ok {
		return nil
	}
	auto, ok := analytics.AverageConsumptionByEntry(vehicle.ID, fillUps, model.EntryAutomatic, th.AnalysisPeriodDays, now)
	if !ok || auto <= 0 {
		return nil
	}

	gapPct := (manual - auto) / auto * 100
	if gapPct <= th.OverconsumptionPct {
		return nil
	}

	severity := model.SeverityLow
	switch {
	case gapPct > 40:
		severity = model.SeverityHigh
	case gapPct > 25:
		severity = model.SeverityMedium
	}

	latest := latestInWindow(vehicle.ID, fillUps, th.AnalysisPeriodDays, now)

	return &model.Alert{
		ID:        alertID("MD", vehicle.ID),
		VehicleID: vehicle.ID,
		Type:      model.AlertManualDrift,
		Title:     "Manual entry drift",
		Description: fmt.Sprintf("Manual fill-ups average %.1f L/100km against %.1f L/100km for automatic entries (+%.1f%%)",
			manual, auto, gapPct),
		Score:      clampScore(50+gapPct, 90),
		Severity:   severity,
		Status:     model.StatusNew,
		DetectedAt: latest.Timestamp,
		Details: model.ManualDriftDetails{
			ManualLPer100Km: manual,
			AutoLPer100Km:   auto,
			GapPct:          gapPct,
		},
	}
}

// bracketingSamples finds the level measurements around a fill-up: the most
// recent sample strictly before it and the first sample at or after it
func bracketingSamples(vehicleID string, fillUp model.FillUp, levels []model.FuelLevelSample) (before, after model.FuelLevelSample, ok bool) {
	foundBefore, foundAfter := false, false

	for _, s := range levels {
		if s.VehicleID != vehicleID {
			continue
		}
		if s.Timestamp.Before(fillUp.Timestamp) {
			if !foundBefore || s.Timestamp.After(before.Timestamp) {
				before = s
				foundBefore = true
			}
		} else {
			if !foundAfter || s.Timestamp.Before(after.Timestamp) {
				after = s
				foundAfter = true
			}
		}
	}

	return before, after, foundBefore && foundAfter
}

// theoreticalConsumptionL estimates how much fuel the vehicle should have
// burned between two instants, from the declared distances of the trips
// fully inside the interval
func theoreticalConsumptionL(vehicle model.Vehicle, trips []model.Trip, from, to time.Time) float64 {
	var km float64
	for _, t := range trips {
		if t.VehicleID != vehicle.ID {
			continue
		}
		if t.StartTime.Before(from) || t.EndTime.After(to) {
			continue
		}
		km += t.DistanceKm
	}
	return km * vehicle.NominalLPer100Km / 100
}

// latestInWindow returns the most recent in-window fill-up for the vehicle.
// Callers only use it after analytics confirmed the window is non-empty.
func latestInWindow(vehicleID string, fillUps []model.FillUp, windowDays int, now time.Time) model.FillUp {
	cutoff := now.AddDate(0, 0, -windowDays)

	var latest model.FillUp
	for _, f := range fillUps {
		if f.VehicleID != vehicleID {
			continue
		}
		if f.Timestamp.Before(cutoff) || f.Timestamp.After(now) {
			continue
		}
		if latest.ID == "" || f.Timestamp.After(latest.Timestamp) {
			latest = f
		}
	}
	return latest
}
