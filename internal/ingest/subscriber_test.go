package ingest

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetfuel/sentinel/internal/metrics"
	"github.com/fleetfuel/sentinel/internal/model"
)

func newTestSubscriber(t *testing.T) (*Subscriber, *FleetWindow) {
	t.Helper()
	window := NewFleetWindow(30 * 24 * time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	return NewSubscriber(nil, window, "sentinel", m, logger), window
}

func natsMsg(t *testing.T, subject string, payload interface{}) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &nats.Msg{Subject: subject, Data: data}
}

func TestHandleFillUp_ValidRecord(t *testing.T) {
	sub, window := newTestSubscriber(t)
	vehicle := model.Vehicle{ID: "veh-1"}
	window.UpsertVehicle(vehicle)

	sub.handleFillUp(natsMsg(t, SubjectFillUps, model.FillUp{
		ID:        "f1",
		VehicleID: "veh-1",
		Timestamp: testNow,
		Liters:    42.5,
	}))

	in := window.InputFor(vehicle, testNow)
	require.Len(t, in.FillUps, 1)
	assert.Equal(t, 42.5, in.FillUps[0].Liters)
}

func TestHandleFillUp_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
	}{
		{"not json", "garbage"},
		{"missing vehicle", model.FillUp{ID: "f1", Timestamp: testNow, Liters: 40}},
		{"missing timestamp", model.FillUp{ID: "f1", VehicleID: "veh-1", Liters: 40}},
		{"zero liters", model.FillUp{ID: "f1", VehicleID: "veh-1", Timestamp: testNow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, window := newTestSubscriber(t)

			var msg *nats.Msg
			if s, ok := tt.payload.(string); ok {
				msg = &nats.Msg{Subject: SubjectFillUps, Data: []byte(s)}
			} else {
				msg = natsMsg(t, SubjectFillUps, tt.payload)
			}
			sub.handleFillUp(msg)

			stats := window.Stats()
			assert.Equal(t, 0, stats["fill_ups"])
		})
	}
}

func TestHandleTrip_RejectsInvertedTimes(t *testing.T) {
	sub, window := newTestSubscriber(t)

	sub.handleTrip(natsMsg(t, SubjectTrips, model.Trip{
		ID:        "t1",
		VehicleID: "veh-1",
		StartTime: testNow,
		EndTime:   testNow.Add(-time.Hour),
	}))

	stats := window.Stats()
	assert.Equal(t, 0, stats["trips"])
}

func TestHandleExif_AttachesToFillUp(t *testing.T) {
	sub, window := newTestSubscriber(t)
	vehicle := model.Vehicle{ID: "veh-1"}
	window.UpsertVehicle(vehicle)

	sub.handleExif(natsMsg(t, SubjectExif, exifEnvelope{
		VehicleID: "veh-1",
		Exif:      model.ExifMetadata{FillUpID: "f1", CapturedAt: testNow},
	}))

	in := window.InputFor(vehicle, testNow)
	require.Contains(t, in.Exif, "f1")
	assert.Equal(t, testNow, in.Exif["f1"].CapturedAt)
}

func TestHandleVehicle_Registers(t *testing.T) {
	sub, window := newTestSubscriber(t)

	sub.handleVehicle(natsMsg(t, SubjectVehicles, model.Vehicle{
		ID:               "veh-7",
		Registration:     "AB-123-CD",
		TankCapacityL:    80,
		NominalLPer100Km: 7.5,
	}))

	vehicles := window.Vehicles()
	require.Len(t, vehicles, 1)
	assert.Equal(t, "veh-7", vehicles[0].ID)
}
