package thresholds

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Manager holds the current threshold snapshot and applies live updates
// published on the config.changed NATS subject
type Manager struct {
	client      *Client
	nats        *nats.Conn
	logger      *slog.Logger
	current     *Snapshot
	mu          sync.RWMutex
	subscribers []func(*Snapshot)
}

// ChangeMessage represents a parameter change received over NATS
type ChangeMessage struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedBy string          `json:"updated_by"`
	Timestamp int64           `json:"timestamp"`
}

// NewManager creates a new threshold manager
func NewManager(paramAPIURL string, nc *nats.Conn, logger *slog.Logger) *Manager {
	return &Manager{
		client:      NewClient(paramAPIURL, logger),
		nats:        nc,
		logger:      logger,
		subscribers: make([]func(*Snapshot), 0),
	}
}

// Initialize loads the initial snapshot and subscribes to live changes
func (m *Manager) Initialize(ctx context.Context, envDefaults *Snapshot) error {
	m.logger.Info("Loading initial threshold snapshot")
	snapshot := m.client.GetSnapshotWithFallback(envDefaults)
	m.update(snapshot)

	if err := m.subscribeToChanges(ctx); err != nil {
		m.logger.Error("Failed to subscribe to threshold changes", "error", err)
		return err
	}

	m.logger.Info("Threshold manager initialized")
	return nil
}

// Current returns a copy of the current threshold snapshot
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return Defaults()
	}
	return *m.current
}

// Subscribe adds a callback invoked whenever the thresholds change
func (m *Manager) Subscribe(callback func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribers = append(m.subscribers, callback)
}

func (m *Manager) subscribeToChanges(ctx context.Context) error {
	if m.nats == nil {
		m.logger.Warn("No NATS connection, live threshold updates disabled")
		return nil
	}

	_, err := m.nats.Subscribe("config.changed", func(msg *nats.Msg) {
		m.handleChange(msg.Data)
	})
	if err != nil {
		return err
	}

	m.logger.Info("Subscribed to config.changed NATS subject")
	return nil
}

func (m *Manager) handleChange(data []byte) {
	var change ChangeMessage
	if err := json.Unmarshal(data, &change); err != nil {
		m.logger.Error("Failed to unmarshal threshold change message", "error", err)
		return
	}

	m.logger.Info("Received threshold change",
		"key", change.Key,
		"updated_by", change.UpdatedBy,
		"timestamp", change.Timestamp)

	m.mu.Lock()
	current := m.current
	if current == nil {
		defaults := Defaults()
		current = &defaults
	}

	// Copy-on-write so readers holding the old snapshot are unaffected
	next := *current
	applyEntry(&next, change.Key, change.Value)
	next.LastUpdated = time.Unix(change.Timestamp, 0)
	m.current = &next
	m.mu.Unlock()

	m.notifySubscribers(&next)

	m.logger.Info("Thresholds updated live",
		"key", change.Key,
		"overconsumption_pct", next.OverconsumptionPct,
		"gps_deviation_pct", next.GPSDeviationPct,
		"missing_fuel_floor_l", next.MissingFuelFloorL,
		"immobilization_hours", next.ImmobilizationHours,
		"analysis_period_days", next.AnalysisPeriodDays)
}

func (m *Manager) update(snapshot *Snapshot) {
	m.mu.Lock()
	m.current = snapshot
	m.mu.Unlock()

	m.notifySubscribers(snapshot)
}

func (m *Manager) notifySubscribers(snapshot *Snapshot) {
	m.mu.RLock()
	subscribers := make([]func(*Snapshot), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.RUnlock()

	for _, callback := range subscribers {
		go func(cb func(*Snapshot)) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("Panic in threshold subscriber callback", "panic", r)
				}
			}()
			cb(snapshot)
		}(callback)
	}
}

// Refresh fetches a fresh snapshot from the parameter API
func (m *Manager) Refresh() error {
	m.logger.Info("Refreshing thresholds from parameter API")

	current := m.Current()
	snapshot := m.client.GetSnapshotWithFallback(&current)
	m.update(snapshot)

	return nil
}
