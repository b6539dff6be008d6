// Package batch drives periodic fleet-wide detection passes. The runner
// walks every vehicle in a deterministic order, evaluates the detection
// engine against each vehicle's telemetry slice, and fans new alerts out
// to the configured sinks.
package batch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/fleetfuel/sentinel/internal/detect"
	"github.com/fleetfuel/sentinel/internal/metrics"
	"github.com/fleetfuel/sentinel/internal/model"
	"github.com/fleetfuel/sentinel/internal/store"
	"github.com/fleetfuel/sentinel/internal/thresholds"
)

// Source supplies the fleet and each vehicle's telemetry slice for one
// evaluation pass
type Source interface {
	Vehicles() []model.Vehicle
	InputFor(vehicle model.Vehicle, now time.Time) detect.Input
}

// Persister durably stores a pass's new alerts. Satisfied by
// store.PostgresStore.
type Persister interface {
	BatchInsert(ctx context.Context, alerts []*model.Alert) error
}

// Publisher notifies downstream consumers of a new alert, with a
// cooldown so repeated passes over unchanged telemetry stay quiet.
// Satisfied by store.RedisStore.
type Publisher interface {
	CheckAlertCooldown(ctx context.Context, vehicleID string, alertType model.AlertType) (bool, error)
	SetAlertCooldown(ctx context.Context, vehicleID string, alertType model.AlertType) error
	PublishAlert(ctx context.Context, siteID string, alert *model.Alert) error
}

// Runner executes fleet evaluation passes
type Runner struct {
	engine     *detect.Engine
	thresholds *thresholds.Manager
	memory     *store.MemoryStore
	persister  Persister // optional
	publisher  Publisher // optional
	siteID     string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Config carries the runner's collaborators. Persister and Publisher may
// be nil; the memory store is always required.
type Config struct {
	Engine     *detect.Engine
	Thresholds *thresholds.Manager
	Memory     *store.MemoryStore
	Persister  Persister
	Publisher  Publisher
	SiteID     string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewRunner creates a batch runner
func NewRunner(cfg Config) *Runner {
	return &Runner{
		engine:     cfg.Engine,
		thresholds: cfg.Thresholds,
		memory:     cfg.Memory,
		persister:  cfg.Persister,
		publisher:  cfg.Publisher,
		siteID:     cfg.SiteID,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// EvaluateFleet runs one detection pass over every vehicle the source
// knows. A panic or failure in one vehicle's evaluation never stops the
// pass; the vehicle is logged, counted, and skipped. Returns the alerts
// that were new this pass.
func (r *Runner) EvaluateFleet(ctx context.Context, src Source, now time.Time) []*model.Alert {
	start := time.Now()
	th := r.thresholds.Current()

	vehicles := append([]model.Vehicle(nil), src.Vehicles()...)
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })

	var fresh []*model.Alert
	for _, v := range vehicles {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Fleet evaluation interrupted", "error", err)
			break
		}
		alerts := r.evaluateOne(src, v, now, th)
		for i := range alerts {
			a := &alerts[i]
			if !r.memory.Add(a) {
				continue
			}
			r.metrics.RecordAlert(string(a.Type), string(a.Severity))
			fresh = append(fresh, a)
		}
	}

	if len(fresh) > 0 {
		r.persist(ctx, fresh)
		r.publish(ctx, fresh)
	}

	r.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("Fleet evaluation completed",
		"vehicles", len(vehicles),
		"new_alerts", len(fresh),
		"duration_ms", time.Since(start).Milliseconds())

	return fresh
}

// evaluateOne isolates a single vehicle's evaluation so a detector panic
// cannot take down the pass
func (r *Runner) evaluateOne(src Source, v model.Vehicle, now time.Time, th thresholds.Snapshot) (alerts []model.Alert) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.EvaluationErrors.Inc()
			r.logger.Error("Vehicle evaluation panicked",
				"vehicle_id", v.ID,
				"panic", rec)
			alerts = nil
		}
	}()

	in := src.InputFor(v, now)
	alerts = r.engine.EvaluateVehicle(in, th)
	r.metrics.EvaluationsTotal.Inc()
	return alerts
}

func (r *Runner) persist(ctx context.Context, alerts []*model.Alert) {
	if r.persister == nil {
		return
	}
	if err := r.persister.BatchInsert(ctx, alerts); err != nil {
		r.metrics.PublishErrors.Inc()
		r.logger.Error("Failed to persist alerts", "count", len(alerts), "error", err)
	}
}

func (r *Runner) publish(ctx context.Context, alerts []*model.Alert) {
	if r.publisher == nil {
		return
	}
	for _, a := range alerts {
		onCooldown, err := r.publisher.CheckAlertCooldown(ctx, a.VehicleID, a.Type)
		if err != nil {
			r.metrics.PublishErrors.Inc()
			r.logger.Error("Cooldown check failed", "alert_id", a.ID, "error", err)
			continue
		}
		if onCooldown {
			continue
		}
		if err := r.publisher.PublishAlert(ctx, r.siteID, a); err != nil {
			r.metrics.PublishErrors.Inc()
			r.logger.Error("Failed to publish alert", "alert_id", a.ID, "error", err)
			continue
		}
		if err := r.publisher.SetAlertCooldown(ctx, a.VehicleID, a.Type); err != nil {
			r.logger.Warn("Failed to set alert cooldown", "alert_id", a.ID, "error", err)
		}
	}
}
