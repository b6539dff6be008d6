package thresholds

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetfuel/sentinel/internal/model"
)

func writeReferenceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileLoader_LoadsZonesAndOverrides(t *testing.T) {
	path := writeReferenceFile(t, `
thresholds:
  overconsumption_pct: 25
  immobilization_hours: 24
zones:
  - id: depot-1
    name: Main Depot
    type: depot
    center:
      lat: 45.75
      lon: 4.85
    radius_m: 500
  - id: st-1
    name: Station A7
    type: station
    center:
      lat: 45.70
      lon: 4.80
    radius_m: 150
`)

	loader := NewFileLoader(path, discardLogger())
	snapshot, zones, err := loader.Load(Defaults())

	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, model.ZoneDepot, zones[0].Type)
	assert.Equal(t, "st-1", zones[1].ID)

	assert.Equal(t, 25.0, snapshot.OverconsumptionPct)
	assert.Equal(t, 24.0, snapshot.ImmobilizationHours)
	// untouched fields keep their base values
	assert.Equal(t, Defaults().GPSDeviationPct, snapshot.GPSDeviationPct)
	assert.Equal(t, Defaults().AnalysisPeriodDays, snapshot.AnalysisPeriodDays)
}

func TestFileLoader_SkipsInvalidZones(t *testing.T) {
	path := writeReferenceFile(t, `
zones:
  - id: ""
    name: No ID
    type: depot
    center: {lat: 0, lon: 0}
    radius_m: 100
  - id: bad-radius
    name: Bad Radius
    type: station
    center: {lat: 0, lon: 0}
    radius_m: 0
  - id: bad-lat
    name: Bad Latitude
    type: station
    center: {lat: 95, lon: 0}
    radius_m: 100
  - id: ok
    name: Valid
    type: station
    center: {lat: 0, lon: 0}
    radius_m: 100
`)

	loader := NewFileLoader(path, discardLogger())
	_, zones, err := loader.Load(Defaults())

	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "ok", zones[0].ID)
}

func TestFileLoader_MissingFileReturnsBase(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "missing.yaml"), discardLogger())

	snapshot, zones, err := loader.Load(Defaults())

	require.Error(t, err)
	assert.Empty(t, zones)
	assert.Equal(t, Defaults(), snapshot)
}

func TestFileLoader_MalformedYAML(t *testing.T) {
	path := writeReferenceFile(t, "zones: [not: valid: yaml")

	loader := NewFileLoader(path, discardLogger())
	_, _, err := loader.Load(Defaults())
	assert.Error(t, err)
}

func TestValidateZone(t *testing.T) {
	valid := model.Zone{
		ID:      "z1",
		Name:    "Zone",
		Type:    model.ZoneStation,
		Center:  model.Coordinates{Lat: 45, Lon: 5},
		RadiusM: 100,
	}

	assert.NoError(t, ValidateZone(valid))

	tests := []struct {
		name   string
		mutate func(*model.Zone)
		field  string
	}{
		{"empty id", func(z *model.Zone) { z.ID = "" }, "id"},
		{"unknown type", func(z *model.Zone) { z.Type = "parking" }, "type"},
		{"negative radius", func(z *model.Zone) { z.RadiusM = -5 }, "radius_m"},
		{"latitude too high", func(z *model.Zone) { z.Center.Lat = 91 }, "center.lat"},
		{"longitude too low", func(z *model.Zone) { z.Center.Lon = -181 }, "center.lon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone := valid
			tt.mutate(&zone)

			err := ValidateZone(zone)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestApplyEntry_KnownAndUnknownKeys(t *testing.T) {
	snapshot := Defaults()

	applyEntry(&snapshot, "sentinel.overconsumption_pct", []byte("40"))
	applyEntry(&snapshot, "sentinel.analysis_period_days", []byte("60"))
	applyEntry(&snapshot, "sentinel.unknown_key", []byte(`"ignored"`))
	applyEntry(&snapshot, "sentinel.gps_deviation_pct", []byte(`"not a number"`))

	assert.Equal(t, 40.0, snapshot.OverconsumptionPct)
	assert.Equal(t, 60, snapshot.AnalysisPeriodDays)
	assert.Equal(t, Defaults().GPSDeviationPct, snapshot.GPSDeviationPct, "unparsable value leaves field untouched")
}
