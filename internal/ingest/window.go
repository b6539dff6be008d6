// Package ingest receives fleet telemetry over NATS and maintains the
// sliding per-vehicle windows the detection engine evaluates.
package ingest

import (
	"sync"
	"time"

	"github.com/fleetfuel/sentinel/internal/detect"
	"github.com/fleetfuel/sentinel/internal/model"
)

// FleetWindow maintains a per-vehicle window of recent telemetry with
// garbage collection. Retention is judged on each record's own event
// timestamp against the caller-supplied reference time, so replayed
// history ages out the same way live data does.
type FleetWindow struct {
	mu       sync.RWMutex
	vehicles map[string]model.Vehicle
	buffers  map[string]*vehicleBuffer
	zones    []model.Zone
	maxAge   time.Duration
	gcTicker *time.Ticker
	stopGC   chan struct{}
}

// vehicleBuffer holds one vehicle's telemetry slice
type vehicleBuffer struct {
	mu      sync.RWMutex
	fillUps []model.FillUp
	trips   []model.Trip
	levels  []model.FuelLevelSample
	exif    map[string]model.ExifMetadata
}

// NewFleetWindow creates a fleet window retaining records up to maxAge old
func NewFleetWindow(maxAge time.Duration) *FleetWindow {
	return &FleetWindow{
		vehicles: make(map[string]model.Vehicle),
		buffers:  make(map[string]*vehicleBuffer),
		maxAge:   maxAge,
	}
}

// SetZones replaces the geofence reference data served with every input
func (w *FleetWindow) SetZones(zones []model.Zone) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.zones = append([]model.Zone(nil), zones...)
}

// UpsertVehicle registers or refreshes a vehicle's reference record
func (w *FleetWindow) UpsertVehicle(v model.Vehicle) {
	if v.ID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vehicles[v.ID] = v
}

// AddFillUp appends a fill-up to its vehicle's buffer
func (w *FleetWindow) AddFillUp(f model.FillUp) {
	if f.VehicleID == "" {
		return
	}
	buf := w.buffer(f.VehicleID)
	buf.mu.Lock()
	buf.fillUps = append(buf.fillUps, f)
	buf.mu.Unlock()
}

// AddTrip appends a trip to its vehicle's buffer
func (w *FleetWindow) AddTrip(t model.Trip) {
	if t.VehicleID == "" {
		return
	}
	buf := w.buffer(t.VehicleID)
	buf.mu.Lock()
	buf.trips = append(buf.trips, t)
	buf.mu.Unlock()
}

// AddLevelSample appends a fuel level sample to its vehicle's buffer
func (w *FleetWindow) AddLevelSample(s model.FuelLevelSample) {
	if s.VehicleID == "" {
		return
	}
	buf := w.buffer(s.VehicleID)
	buf.mu.Lock()
	buf.levels = append(buf.levels, s)
	buf.mu.Unlock()
}

// AddExif attaches photo metadata to a vehicle's fill-up
func (w *FleetWindow) AddExif(vehicleID string, meta model.ExifMetadata) {
	if vehicleID == "" || meta.FillUpID == "" {
		return
	}
	buf := w.buffer(vehicleID)
	buf.mu.Lock()
	buf.exif[meta.FillUpID] = meta
	buf.mu.Unlock()
}

// Vehicles returns the registered fleet
func (w *FleetWindow) Vehicles() []model.Vehicle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.Vehicle, 0, len(w.vehicles))
	for _, v := range w.vehicles {
		out = append(out, v)
	}
	return out
}

// InputFor assembles one vehicle's telemetry slice for a detection pass
func (w *FleetWindow) InputFor(v model.Vehicle, now time.Time) detect.Input {
	w.mu.RLock()
	zones := w.zones
	buf, exists := w.buffers[v.ID]
	w.mu.RUnlock()

	in := detect.Input{
		Vehicle: v,
		Zones:   zones,
		Now:     now,
	}
	if !exists {
		return in
	}

	buf.mu.RLock()
	defer buf.mu.RUnlock()

	in.FillUps = append([]model.FillUp(nil), buf.fillUps...)
	in.Trips = append([]model.Trip(nil), buf.trips...)
	in.Levels = append([]model.FuelLevelSample(nil), buf.levels...)
	in.Exif = make(map[string]model.ExifMetadata, len(buf.exif))
	for id, meta := range buf.exif {
		in.Exif[id] = meta
	}
	return in
}

// StartGC starts the background retention sweep
func (w *FleetWindow) StartGC(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gcTicker != nil {
		return
	}
	w.gcTicker = time.NewTicker(interval)
	w.stopGC = make(chan struct{})
	go w.gcLoop(w.gcTicker, w.stopGC)
}

// StopGC stops the background retention sweep
func (w *FleetWindow) StopGC() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gcTicker != nil {
		w.gcTicker.Stop()
		w.gcTicker = nil
	}
	if w.stopGC != nil {
		close(w.stopGC)
		w.stopGC = nil
	}
}

// GC drops records older than maxAge relative to now. Exif entries follow
// their fill-up.
func (w *FleetWindow) GC(now time.Time) {
	cutoff := now.Add(-w.maxAge)

	w.mu.Lock()
	defer w.mu.Unlock()

	for vehicleID, buf := range w.buffers {
		buf.mu.Lock()

		var fillUps []model.FillUp
		kept := make(map[string]bool)
		for _, f := range buf.fillUps {
			if f.Timestamp.After(cutoff) {
				fillUps = append(fillUps, f)
				kept[f.ID] = true
			}
		}
		buf.fillUps = fillUps

		for id := range buf.exif {
			if !kept[id] {
				delete(buf.exif, id)
			}
		}

		var trips []model.Trip
		for _, t := range buf.trips {
			if t.EndTime.After(cutoff) {
				trips = append(trips, t)
			}
		}
		buf.trips = trips

		var levels []model.FuelLevelSample
		for _, s := range buf.levels {
			if s.Timestamp.After(cutoff) {
				levels = append(levels, s)
			}
		}
		buf.levels = levels

		empty := len(buf.fillUps) == 0 && len(buf.trips) == 0 && len(buf.levels) == 0
		buf.mu.Unlock()

		if empty {
			delete(w.buffers, vehicleID)
		}
	}
}

// Stats returns window statistics for the health endpoint
func (w *FleetWindow) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	fillUps, trips, levels := 0, 0, 0
	for _, buf := range w.buffers {
		buf.mu.RLock()
		fillUps += len(buf.fillUps)
		trips += len(buf.trips)
		levels += len(buf.levels)
		buf.mu.RUnlock()
	}

	return map[string]interface{}{
		"vehicle_count": len(w.vehicles),
		"fill_ups":      fillUps,
		"trips":         trips,
		"level_samples": levels,
		"max_age":       w.maxAge.String(),
	}
}

func (w *FleetWindow) gcLoop(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-ticker.C:
			w.GC(time.Now())
		case <-stop:
			return
		}
	}
}

// buffer returns the vehicle's buffer, creating it on first use
func (w *FleetWindow) buffer(vehicleID string) *vehicleBuffer {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf, exists := w.buffers[vehicleID]
	if !exists {
		buf = &vehicleBuffer{exif: make(map[string]model.ExifMetadata)}
		w.buffers[vehicleID] = buf
	}
	return buf
}
