// Package thresholds supplies the tunable detection knobs. Values are owned
// outside the detection core: they come from environment defaults, an
// optional parameters file, the config API, and live NATS updates. The core
// receives an immutable Snapshot per detection pass.
package thresholds

import (
	"time"
)

// Snapshot holds every detection threshold for one evaluation pass
type Snapshot struct {
	// OverconsumptionPct is the allowed excess over nominal consumption,
	// in percent, before the overconsumption detector fires
	OverconsumptionPct float64 `json:"overconsumption_pct" yaml:"overconsumption_pct"`

	// GPSDeviationPct is the allowed gap between declared trip distance
	// and its GPS trace distance, in percent
	GPSDeviationPct float64 `json:"gps_deviation_pct" yaml:"gps_deviation_pct"`

	// MissingFuelFloorL is the minimum unexplained fuel loss, in liters,
	// before the missing-fuel detector fires
	MissingFuelFloorL float64 `json:"missing_fuel_floor_l" yaml:"missing_fuel_floor_l"`

	// ExifTimeDeviationHours is the allowed gap between declared fill-up
	// time and EXIF capture time
	ExifTimeDeviationHours float64 `json:"exif_time_deviation_hours" yaml:"exif_time_deviation_hours"`

	// ExifDistanceKm is the allowed gap between declared fill-up location
	// and EXIF capture location
	ExifDistanceKm float64 `json:"exif_distance_km" yaml:"exif_distance_km"`

	// ImmobilizationHours is the stationary duration outside depot zones
	// after which the immobilization detector fires
	ImmobilizationHours float64 `json:"immobilization_hours" yaml:"immobilization_hours"`

	// AnalysisPeriodDays is the sliding window for consumption analytics
	AnalysisPeriodDays int `json:"analysis_period_days" yaml:"analysis_period_days"`

	LastUpdated time.Time `json:"last_updated" yaml:"-"`
}

// Defaults returns the built-in threshold values, used when neither the
// config API nor the parameters file supplies an override
func Defaults() Snapshot {
	return Snapshot{
		OverconsumptionPct:     30,
		GPSDeviationPct:        15,
		MissingFuelFloorL:      5,
		ExifTimeDeviationHours: 2,
		ExifDistanceKm:         1,
		ImmobilizationHours:    12,
		AnalysisPeriodDays:     30,
	}
}
