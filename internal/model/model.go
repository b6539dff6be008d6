package model

import (
	"time"
)

// Coordinates is a WGS84 latitude/longitude pair
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// EntryMethod tags how a record entered the system
type EntryMethod string

const (
	EntryAutomatic EntryMethod = "automatic"
	EntryManual    EntryMethod = "manual"
)

// Vehicle represents a fleet vehicle with its fuel characteristics
type Vehicle struct {
	ID               string  `json:"id"`
	Registration     string  `json:"registration"`
	Make             string  `json:"make"`
	Model            string  `json:"model"`
	TankCapacityL    float64 `json:"tank_capacity_l"`
	NominalLPer100Km float64 `json:"nominal_l_per_100km"`
	SiteID           string  `json:"site_id"`
	Active           bool    `json:"active"`
}

// FillUp represents a single refueling event for one vehicle
type FillUp struct {
	ID          string       `json:"id"`
	VehicleID   string       `json:"vehicle_id"`
	DriverID    string       `json:"driver_id,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Liters      float64      `json:"liters"`
	UnitPrice   float64      `json:"unit_price"`
	OdometerKm  float64      `json:"odometer_km"`
	Location    *Coordinates `json:"location,omitempty"`
	StationName string       `json:"station_name,omitempty"`
	EntryMethod EntryMethod  `json:"entry_method"`
}

// TracePoint is one GPS sample within a trip trace
type TracePoint struct {
	Coordinates
	Timestamp time.Time `json:"timestamp"`
}

// Trip represents a single vehicle movement
type Trip struct {
	ID          string       `json:"id"`
	VehicleID   string       `json:"vehicle_id"`
	DriverID    string       `json:"driver_id,omitempty"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	DistanceKm  float64      `json:"distance_km"`
	EntryMethod EntryMethod  `json:"entry_method"`
	Trace       []TracePoint `json:"trace,omitempty"`
}

// SampleContext tags when a fuel level sample was taken
type SampleContext string

const (
	SampleBeforeTrip SampleContext = "before_trip"
	SampleAfterTrip  SampleContext = "after_trip"
	SampleBeforeFill SampleContext = "before_fill"
	SampleAfterFill  SampleContext = "after_fill"
)

// FuelLevelSample is a measured fuel level used to reconstruct the
// expected-vs-actual fuel balance around trips and fill-ups
type FuelLevelSample struct {
	VehicleID string        `json:"vehicle_id"`
	Timestamp time.Time     `json:"timestamp"`
	Liters    float64       `json:"liters"`
	Context   SampleContext `json:"context"`
	TripID    string        `json:"trip_id,omitempty"`
	FillUpID  string        `json:"fill_up_id,omitempty"`
}

// ZoneType classifies a geofence zone
type ZoneType string

const (
	ZoneDepot    ZoneType = "depot"
	ZoneStation  ZoneType = "station"
	ZoneRiskArea ZoneType = "risk-zone"
)

// Zone is a named circular geofence
type Zone struct {
	ID      string      `json:"id" yaml:"id"`
	Name    string      `json:"name" yaml:"name"`
	Type    ZoneType    `json:"type" yaml:"type"`
	Center  Coordinates `json:"center" yaml:"center"`
	RadiusM float64     `json:"radius_m" yaml:"radius_m"`
}

// ExifMetadata carries camera-embedded capture time/location from a
// fill-up receipt photo, used to cross-check the declared fill-up
type ExifMetadata struct {
	FillUpID    string       `json:"fill_up_id"`
	CapturedAt  time.Time    `json:"captured_at"`
	Location    *Coordinates `json:"location,omitempty"`
	DeviceModel string       `json:"device_model,omitempty"`
}
