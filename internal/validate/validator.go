// Package validate checks proposed manual corrections to fuel records
// against physical constraints. The verdict is a data result: violations
// populate the warning and error lists and decrement the score, they never
// raise. A correction is valid as long as no error fired; warnings alone do
// not invalidate.
package validate

import (
	"fmt"
	"math"

	"github.com/fleetfuel/sentinel/internal/analytics"
	"github.com/fleetfuel/sentinel/internal/model"
)

// Correctable field names as the surrounding application stores them
const (
	FieldLiters   = "litres"
	FieldOdometer = "odometre"
	FieldDistance = "distance_km"
)

// Correction is a proposed manual change to one field of a fuel record
type Correction struct {
	ID          string  `json:"id"`
	Table       string  `json:"table"`
	RecordID    string  `json:"record_id"`
	Field       string  `json:"field"`
	OldValue    float64 `json:"old_value"`
	NewValue    float64 `json:"new_value"`
	RequestedBy string  `json:"requested_by"`
	Comment     string  `json:"comment,omitempty"`
}

// Result is the scored verdict for one correction. The score starts at 100
// and every violation subtracts from it; it never goes below zero.
type Result struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Score    float64  `json:"score"`
}

// ValidateCorrection scores a proposed correction against the vehicle's
// physical constraints and its fill-up history. Deltas stack: several
// violations can fire for the same correction.
func ValidateCorrection(c Correction, fillUp model.FillUp, vehicle model.Vehicle, priorFillUps []model.FillUp) Result {
	score := 100.0
	var warnings, errors []string

	if c.Field == FieldLiters {
		exceedsCapacity := c.NewValue > vehicle.TankCapacityL
		if exceedsCapacity {
			errors = append(errors, fmt.Sprintf("proposed volume %.1f L exceeds tank capacity %.1f L",
				c.NewValue, vehicle.TankCapacityL))
			score -= 50
		} else if c.NewValue > vehicle.TankCapacityL*0.95 {
			warnings = append(warnings, fmt.Sprintf("proposed volume %.1f L is near tank capacity %.1f L",
				c.NewValue, vehicle.TankCapacityL))
			score -= 10
		}

		if math.Abs(c.NewValue-c.OldValue)/c.OldValue*100 > 20 {
			warnings = append(warnings, fmt.Sprintf("proposed volume deviates %.0f%% from the original entry",
				math.Abs(c.NewValue-c.OldValue)/c.OldValue*100))
			score -= 15
		}
	}

	prior, hasPrior := analytics.MostRecentPrior(fillUp.VehicleID, priorFillUps, fillUp.Timestamp, fillUp.ID)

	if c.Field == FieldOdometer && hasPrior {
		if c.NewValue < prior.OdometerKm {
			errors = append(errors, fmt.Sprintf("proposed odometer %.0f km regresses below the previous fill-up at %.0f km",
				c.NewValue, prior.OdometerKm))
			score -= 50
		}
		if c.NewValue-prior.OdometerKm > 1000 {
			warnings = append(warnings, fmt.Sprintf("proposed odometer jumps %.0f km since the previous fill-up",
				c.NewValue-prior.OdometerKm))
			score -= 10
		}
	}

	if (c.Field == FieldLiters || c.Field == FieldOdometer) && hasPrior {
		liters := fillUp.Liters
		odometer := fillUp.OdometerKm
		if c.Field == FieldLiters {
			liters = c.NewValue
		} else {
			odometer = c.NewValue
		}

		distance := odometer - prior.OdometerKm
		if distance > 0 {
			estimated := liters / distance * 100
			deviationPct := math.Abs(estimated-vehicle.NominalLPer100Km) / vehicle.NominalLPer100Km * 100

			if deviationPct > 100 {
				errors = append(errors, fmt.Sprintf("implied consumption %.1f L/100km is far from the nominal %.1f L/100km",
					estimated, vehicle.NominalLPer100Km))
				score -= 30
			} else if deviationPct >= 50 {
				warnings = append(warnings, fmt.Sprintf("implied consumption %.1f L/100km is away from the nominal %.1f L/100km",
					estimated, vehicle.NominalLPer100Km))
				score -= 20
			}
		}
	}

	if score < 0 {
		score = 0
	}

	return Result{
		Valid:    len(errors) == 0,
		Warnings: warnings,
		Errors:   errors,
		Score:    score,
	}
}
