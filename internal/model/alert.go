package model

import (
	"time"
)

// AlertType identifies which detector produced an alert
type AlertType string

const (
	AlertOffZoneFillUp   AlertType = "off-zone-fillup"
	AlertOverconsumption AlertType = "overconsumption"
	AlertMissingFuel     AlertType = "missing-fuel"
	AlertSuspiciousExif  AlertType = "suspicious-exif"
	AlertImmobilization  AlertType = "abnormal-immobilization"
	AlertGPSDeviation    AlertType = "gps-odometer-deviation"
	AlertManualDrift     AlertType = "manual-entry-drift"
)

// Severity is the coarse tier derived from detector-specific magnitude
// breakpoints, distinct from the continuous score
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Status is the alert lifecycle state. Transitions happen entirely in the
// external alert store; detectors always emit StatusNew.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusDismissed  Status = "dismissed"
)

// Alert is the output of a single detector evaluation. Immutable once
// created; the ID is deterministic (type prefix + triggering record ID) so
// re-running detection on identical data yields identical IDs and the
// downstream store can deduplicate.
type Alert struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicle_id"`
	DriverID    string    `json:"driver_id,omitempty"`
	Type        AlertType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Score       float64   `json:"score"`
	Severity    Severity  `json:"severity"`
	Status      Status    `json:"status"`
	DetectedAt  time.Time `json:"detected_at"`
	Details     Details   `json:"details,omitempty"`
}

// Details is the per-type side payload of an alert. Modeled as a tagged
// variant rather than one record with many optional fields so the engine
// can match exhaustively on alert kind.
type Details interface {
	Kind() AlertType
}

// OffZoneDetails carries the distance to the nearest authorized station
type OffZoneDetails struct {
	NearestZoneID   string  `json:"nearest_zone_id,omitempty"`
	NearestZoneName string  `json:"nearest_zone_name,omitempty"`
	DistanceKm      float64 `json:"distance_km"`
}

func (OffZoneDetails) Kind() AlertType { return AlertOffZoneFillUp }

// OverconsumptionDetails compares windowed average to nominal consumption
type OverconsumptionDetails struct {
	AverageLPer100Km float64 `json:"average_l_per_100km"`
	NominalLPer100Km float64 `json:"nominal_l_per_100km"`
	DeviationPct     float64 `json:"deviation_percent"`
}

func (OverconsumptionDetails) Kind() AlertType { return AlertOverconsumption }

// MissingFuelDetails carries the reconstructed fuel balance
type MissingFuelDetails struct {
	ExpectedL    float64 `json:"expected_l"`
	ActualL      float64 `json:"actual_l"`
	MissingL     float64 `json:"missing_l"`
	DeviationPct float64 `json:"deviation_percent"`
}

func (MissingFuelDetails) Kind() AlertType { return AlertMissingFuel }

// ExifDetails carries the declared-vs-EXIF time and place gaps
type ExifDetails struct {
	TimeGapHours float64 `json:"time_gap_hours"`
	DistanceKm   float64 `json:"distance_km"`
	HoursOver    float64 `json:"hours_over"`
	KmOver       float64 `json:"km_over"`
}

func (ExifDetails) Kind() AlertType { return AlertSuspiciousExif }

// ImmobilizationDetails carries the stationary period and its location
type ImmobilizationDetails struct {
	DurationHours float64     `json:"duration_hours"`
	Location      Coordinates `json:"location"`
}

func (ImmobilizationDetails) Kind() AlertType { return AlertImmobilization }

// GPSDeviationDetails compares declared trip distance to its GPS trace
type GPSDeviationDetails struct {
	DeclaredKm   float64 `json:"declared_km"`
	TraceKm      float64 `json:"trace_km"`
	DeviationPct float64 `json:"deviation_percent"`
}

func (GPSDeviationDetails) Kind() AlertType { return AlertGPSDeviation }

// ManualDriftDetails compares manual-entry to automatic-entry consumption
type ManualDriftDetails struct {
	ManualLPer100Km float64 `json:"manual_l_per_100km"`
	AutoLPer100Km   float64 `json:"auto_l_per_100km"`
	GapPct          float64 `json:"gap_percent"`
}

func (ManualDriftDetails) Kind() AlertType { return AlertManualDrift }
