package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/fleetfuel/sentinel/internal/metrics"
	"github.com/fleetfuel/sentinel/internal/model"
)

// NATS subjects carrying fleet telemetry
const (
	SubjectFillUps  = "telemetry.fillups"
	SubjectTrips    = "telemetry.trips"
	SubjectLevels   = "telemetry.levels"
	SubjectExif     = "telemetry.exif"
	SubjectVehicles = "fleet.vehicles"
)

// exifEnvelope wraps photo metadata with the vehicle it belongs to
type exifEnvelope struct {
	VehicleID string             `json:"vehicle_id"`
	Exif      model.ExifMetadata `json:"exif"`
}

// Subscriber feeds NATS telemetry into the fleet window
type Subscriber struct {
	nc      *nats.Conn
	window  *FleetWindow
	queue   string
	metrics *metrics.Metrics
	logger  *slog.Logger

	subs []*nats.Subscription
}

// NewSubscriber creates a telemetry subscriber
func NewSubscriber(nc *nats.Conn, window *FleetWindow, queue string, m *metrics.Metrics, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		nc:      nc,
		window:  window,
		queue:   queue,
		metrics: m,
		logger:  logger,
	}
}

// Subscribe starts listening on every telemetry subject and blocks until
// the context is cancelled, then drains the subscriptions
func (s *Subscriber) Subscribe(ctx context.Context) error {
	s.logger.Info("Subscribing to telemetry", "queue", s.queue)

	handlers := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{SubjectFillUps, s.handleFillUp},
		{SubjectTrips, s.handleTrip},
		{SubjectLevels, s.handleLevel},
		{SubjectExif, s.handleExif},
		{SubjectVehicles, s.handleVehicle},
	}

	for _, h := range handlers {
		sub, err := s.nc.QueueSubscribe(h.subject, s.queue, h.handler)
		if err != nil {
			s.drain()
			return fmt.Errorf("failed to subscribe to %s: %w", h.subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("Subscribed", "subject", h.subject, "queue", s.queue)
	}

	<-ctx.Done()

	s.logger.Info("Draining telemetry subscriptions")
	s.drain()
	return nil
}

func (s *Subscriber) handleFillUp(msg *nats.Msg) {
	var f model.FillUp
	if err := json.Unmarshal(msg.Data, &f); err != nil {
		s.reject(msg.Subject, err)
		return
	}
	if f.ID == "" || f.VehicleID == "" || f.Timestamp.IsZero() {
		s.reject(msg.Subject, fmt.Errorf("fill-up missing id, vehicle_id or timestamp"))
		return
	}
	if f.Liters <= 0 {
		s.reject(msg.Subject, fmt.Errorf("fill-up %s has non-positive volume", f.ID))
		return
	}

	s.window.AddFillUp(f)
	s.metrics.RecordTelemetry("fillup")
}

func (s *Subscriber) handleTrip(msg *nats.Msg) {
	var t model.Trip
	if err := json.Unmarshal(msg.Data, &t); err != nil {
		s.reject(msg.Subject, err)
		return
	}
	if t.ID == "" || t.VehicleID == "" || t.StartTime.IsZero() {
		s.reject(msg.Subject, fmt.Errorf("trip missing id, vehicle_id or start_time"))
		return
	}
	if t.EndTime.Before(t.StartTime) {
		s.reject(msg.Subject, fmt.Errorf("trip %s ends before it starts", t.ID))
		return
	}

	s.window.AddTrip(t)
	s.metrics.RecordTelemetry("trip")
}

func (s *Subscriber) handleLevel(msg *nats.Msg) {
	var sample model.FuelLevelSample
	if err := json.Unmarshal(msg.Data, &sample); err != nil {
		s.reject(msg.Subject, err)
		return
	}
	if sample.VehicleID == "" || sample.Timestamp.IsZero() {
		s.reject(msg.Subject, fmt.Errorf("level sample missing vehicle_id or timestamp"))
		return
	}

	s.window.AddLevelSample(sample)
	s.metrics.RecordTelemetry("level")
}

func (s *Subscriber) handleExif(msg *nats.Msg) {
	var env exifEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.reject(msg.Subject, err)
		return
	}
	if env.VehicleID == "" || env.Exif.FillUpID == "" {
		s.reject(msg.Subject, fmt.Errorf("exif missing vehicle_id or fill_up_id"))
		return
	}

	s.window.AddExif(env.VehicleID, env.Exif)
	s.metrics.RecordTelemetry("exif")
}

func (s *Subscriber) handleVehicle(msg *nats.Msg) {
	var v model.Vehicle
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		s.reject(msg.Subject, err)
		return
	}
	if v.ID == "" {
		s.reject(msg.Subject, fmt.Errorf("vehicle missing id"))
		return
	}

	s.window.UpsertVehicle(v)
	s.metrics.RecordTelemetry("vehicle")
}

func (s *Subscriber) reject(subject string, err error) {
	s.metrics.TelemetryInvalidTotal.Inc()
	s.logger.Error("Rejected telemetry message", "subject", subject, "error", err)
}

func (s *Subscriber) drain() {
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			s.logger.Error("Failed to drain subscription", "subject", sub.Subject, "error", err)
		}
	}
	s.subs = nil
}
