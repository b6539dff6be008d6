package thresholds

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fleetfuel/sentinel/internal/model"
)

// ReferenceFile is the on-disk YAML shape holding threshold overrides and
// the geofence zone list
type ReferenceFile struct {
	Thresholds *Snapshot    `yaml:"thresholds"`
	Zones      []model.Zone `yaml:"zones"`
}

// FileLoader reads the reference-data file (thresholds + geofence zones)
type FileLoader struct {
	path   string
	logger *slog.Logger
}

// NewFileLoader creates a loader for the given reference file path
func NewFileLoader(path string, logger *slog.Logger) *FileLoader {
	return &FileLoader{
		path:   path,
		logger: logger,
	}
}

// Load parses the reference file. Invalid zones are skipped with a warning
// rather than failing the whole load; a missing thresholds section leaves
// the supplied base snapshot untouched.
func (l *FileLoader) Load(base Snapshot) (Snapshot, []model.Zone, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return base, nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	var file ReferenceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, nil, fmt.Errorf("failed to parse reference file: %w", err)
	}

	snapshot := base
	if file.Thresholds != nil {
		snapshot = mergeOverrides(base, *file.Thresholds)
	}

	var zones []model.Zone
	for _, zone := range file.Zones {
		if err := ValidateZone(zone); err != nil {
			l.logger.Warn("Invalid zone skipped", "zone_id", zone.ID, "file", l.path, "error", err)
			continue
		}
		zones = append(zones, zone)
	}

	l.logger.Info("Reference file loaded",
		"file", l.path,
		"zones", len(zones),
		"skipped", len(file.Zones)-len(zones))

	return snapshot, zones, nil
}

// mergeOverrides overlays non-zero override values onto a base snapshot
func mergeOverrides(base, override Snapshot) Snapshot {
	out := base
	if override.OverconsumptionPct != 0 {
		out.OverconsumptionPct = override.OverconsumptionPct
	}
	if override.GPSDeviationPct != 0 {
		out.GPSDeviationPct = override.GPSDeviationPct
	}
	if override.MissingFuelFloorL != 0 {
		out.MissingFuelFloorL = override.MissingFuelFloorL
	}
	if override.ExifTimeDeviationHours != 0 {
		out.ExifTimeDeviationHours = override.ExifTimeDeviationHours
	}
	if override.ExifDistanceKm != 0 {
		out.ExifDistanceKm = override.ExifDistanceKm
	}
	if override.ImmobilizationHours != 0 {
		out.ImmobilizationHours = override.ImmobilizationHours
	}
	if override.AnalysisPeriodDays != 0 {
		out.AnalysisPeriodDays = override.AnalysisPeriodDays
	}
	return out
}

// ValidateZone checks a geofence zone's invariants
func ValidateZone(zone model.Zone) error {
	if zone.ID == "" {
		return &ValidationError{Field: "id", Message: "zone ID is required"}
	}

	validTypes := map[model.ZoneType]bool{
		model.ZoneDepot: true, model.ZoneStation: true, model.ZoneRiskArea: true,
	}
	if !validTypes[zone.Type] {
		return &ValidationError{Field: "type", Message: "invalid zone type, must be depot/station/risk-zone"}
	}

	if zone.RadiusM <= 0 {
		return &ValidationError{Field: "radius_m", Message: "radius must be positive"}
	}

	if zone.Center.Lat < -90 || zone.Center.Lat > 90 {
		return &ValidationError{Field: "center.lat", Message: "latitude must be between -90 and 90"}
	}

	if zone.Center.Lon < -180 || zone.Center.Lon > 180 {
		return &ValidationError{Field: "center.lon", Message: "longitude must be between -180 and 180"}
	}

	return nil
}

// ValidationError represents a reference-data validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
