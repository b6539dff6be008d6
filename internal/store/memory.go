package store

import (
	"container/ring"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fleetfuel/sentinel/internal/model"
)

// MemoryStore provides thread-safe storage for alerts with a ring buffer
// and LRU deduplication on the deterministic alert ID
type MemoryStore struct {
	mu        sync.RWMutex
	alerts    *ring.Ring
	dedupe    *lru.Cache[string, bool]
	maxAlerts int
	dedupeCap int
}

// NewMemoryStore creates a memory store with the given capacities
func NewMemoryStore(maxAlerts, dedupeCap int) *MemoryStore {
	dedupeCache, _ := lru.New[string, bool](dedupeCap)

	return &MemoryStore{
		alerts:    ring.New(maxAlerts),
		dedupe:    dedupeCache,
		maxAlerts: maxAlerts,
		dedupeCap: dedupeCap,
	}
}

// Add stores an alert unless its ID was already seen. Detector IDs are
// deterministic, so re-evaluating the same telemetry is a no-op here.
func (s *MemoryStore) Add(alert *model.Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dedupe.Get(alert.ID); exists {
		return false
	}
	s.dedupe.Add(alert.ID, true)

	s.alerts.Value = alert
	s.alerts = s.alerts.Next()

	return true
}

// All returns every stored alert in insertion order (oldest first)
func (s *MemoryStore) All() []*model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(*model.Alert) bool { return true })
}

// ByVehicle returns the alerts for one vehicle
func (s *MemoryStore) ByVehicle(vehicleID string) []*model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(a *model.Alert) bool { return a.VehicleID == vehicleID })
}

// ByType returns the alerts of one detector kind
func (s *MemoryStore) ByType(alertType model.AlertType) []*model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(a *model.Alert) bool { return a.Type == alertType })
}

// BySeverity returns alerts at or above a minimum severity tier
func (s *MemoryStore) BySeverity(min model.Severity) []*model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := map[model.Severity]int{
		model.SeverityLow:    1,
		model.SeverityMedium: 2,
		model.SeverityHigh:   3,
	}
	minLevel := levels[min]

	return s.collect(func(a *model.Alert) bool {
		return levels[a.Severity] >= minLevel
	})
}

// Clear removes all alerts and resets the dedupe cache
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.alerts.Len(); i++ {
		s.alerts.Value = nil
		s.alerts = s.alerts.Next()
	}
	s.dedupe.Purge()
}

// Stats returns store statistics for the health endpoint
func (s *MemoryStore) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	s.alerts.Do(func(value interface{}) {
		if value != nil {
			count++
		}
	})

	return map[string]interface{}{
		"total_alerts": count,
		"max_alerts":   s.maxAlerts,
		"dedupe_cap":   s.dedupeCap,
		"dedupe_size":  s.dedupe.Len(),
	}
}

// collect gathers stored alerts matching a predicate. Callers hold the lock.
func (s *MemoryStore) collect(match func(*model.Alert) bool) []*model.Alert {
	var out []*model.Alert
	s.alerts.Do(func(value interface{}) {
		if value == nil {
			return
		}
		if alert, ok := value.(*model.Alert); ok && match(alert) {
			out = append(out, alert)
		}
	})
	return out
}
