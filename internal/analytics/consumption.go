// Package analytics computes per-vehicle fuel-consumption figures from
// sequential fill-ups over a sliding time window. All functions are pure;
// the reference time is supplied by the caller so results are reproducible.
package analytics

import (
	"sort"
	"time"

	"github.com/fleetfuel/sentinel/internal/model"
)

// AverageConsumption returns the mean fuel consumption in L/100km for a
// vehicle over the window [now - windowDays, now]. It needs at least two
// in-window fill-ups and at least one consecutive pair with a positive
// odometer delta; otherwise ok is false, which callers must treat as
// "insufficient data", never as zero.
func AverageConsumption(vehicleID string, fillUps []model.FillUp, windowDays int, now time.Time) (float64, bool) {
	inWindow := filterWindow(vehicleID, fillUps, windowDays, now)
	if len(inWindow) < 2 {
		return 0, false
	}

	var sum float64
	var pairs int
	for i := 1; i < len(inWindow); i++ {
		c, ok := pairConsumption(inWindow[i-1], inWindow[i])
		if !ok {
			continue
		}
		sum += c
		pairs++
	}

	if pairs == 0 {
		return 0, false
	}
	return sum / float64(pairs), true
}

// AverageConsumptionByEntry is AverageConsumption restricted to fill-ups
// with the given entry method
func AverageConsumptionByEntry(vehicleID string, fillUps []model.FillUp, method model.EntryMethod, windowDays int, now time.Time) (float64, bool) {
	var filtered []model.FillUp
	for _, f := range fillUps {
		if f.EntryMethod == method {
			filtered = append(filtered, f)
		}
	}
	return AverageConsumption(vehicleID, filtered, windowDays, now)
}

// MostRecentPrior returns the latest fill-up for the vehicle with a
// timestamp strictly before the given instant, excluding the record with
// excludeID. Ties are broken by input order.
func MostRecentPrior(vehicleID string, fillUps []model.FillUp, before time.Time, excludeID string) (model.FillUp, bool) {
	var best model.FillUp
	found := false
	for _, f := range fillUps {
		if f.VehicleID != vehicleID || f.ID == excludeID {
			continue
		}
		if !f.Timestamp.Before(before) {
			continue
		}
		if !found || f.Timestamp.After(best.Timestamp) {
			best = f
			found = true
		}
	}
	return best, found
}

// filterWindow returns the vehicle's fill-ups inside the window, sorted
// ascending by timestamp with ties kept in input order
func filterWindow(vehicleID string, fillUps []model.FillUp, windowDays int, now time.Time) []model.FillUp {
	cutoff := now.AddDate(0, 0, -windowDays)

	var inWindow []model.FillUp
	for _, f := range fillUps {
		if f.VehicleID != vehicleID {
			continue
		}
		if f.Timestamp.Before(cutoff) || f.Timestamp.After(now) {
			continue
		}
		inWindow = append(inWindow, f)
	}

	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].Timestamp.Before(inWindow[j].Timestamp)
	})

	return inWindow
}

// pairConsumption computes L/100km between two consecutive fill-ups.
// Non-positive odometer deltas are treated as data noise, not an error.
func pairConsumption(prev, curr model.FillUp) (float64, bool) {
	distance := curr.OdometerKm - prev.OdometerKm
	if distance <= 0 {
		return 0, false
	}
	return curr.Liters / distance * 100, true
}
