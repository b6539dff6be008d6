package thresholds

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client fetches threshold snapshots from the fleet parameter API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// ParamEntry represents one parameter entry from the API
type ParamEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedBy string          `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewClient creates a new parameter API client
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// GetSnapshot fetches the current threshold snapshot from the parameter API
func (c *Client) GetSnapshot() (*Snapshot, error) {
	url := fmt.Sprintf("%s/parameters", c.baseURL)

	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parameters: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("parameter API returned status %d", resp.StatusCode)
	}

	var response struct {
		Parameters []ParamEntry `json:"parameters"`
		Count      int          `json:"count"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode parameter response: %w", err)
	}

	snapshot := Defaults()
	for _, entry := range response.Parameters {
		applyEntry(&snapshot, entry.Key, entry.Value)
	}
	snapshot.LastUpdated = time.Now()

	return &snapshot, nil
}

// GetSnapshotWithFallback fetches a snapshot, falling back to the supplied
// defaults when the parameter API is unavailable
func (c *Client) GetSnapshotWithFallback(fallback *Snapshot) *Snapshot {
	snapshot, err := c.GetSnapshot()
	if err != nil {
		c.logger.Warn("Parameter API unavailable, using fallback thresholds", "error", err)
		return fallback
	}
	return snapshot
}

// applyEntry applies one keyed parameter value to a snapshot. Unknown keys
// and unparsable values are ignored.
func applyEntry(s *Snapshot, key string, value json.RawMessage) {
	switch key {
	case "sentinel.overconsumption_pct":
		var v float64
		if err := json.Unmarshal(value, &v); err == nil {
			s.OverconsumptionPct = v
		}
	case "sentinel.gps_deviation_pct":
		var v float64
		if err := json.Unmarshal(value, &v); err == nil {
			s.GPSDeviationPct = v
		}
	case "sentinel.missing_fuel_floor_l":
		var v float64
		if err := json.Unmarshal(value, &v); err == nil {
			s.MissingFuelFloorL = v
		}
	case "sentinel.exif_time_deviation_hours":
		var v float64
		if err := json.Unmarshal(value, &v); err == nil {
			s.ExifTimeDeviationHours = v
		}
	case "sentinel.exif_distance_km":
		var v float64
		if err := json.Unmarshal(value, &v); err == nil {
			s.ExifDistanceKm = v
		}
	case "sentinel.immobilization_hours":
		var v float64
		if err := json.Unmarshal(value, &v); err == nil {
			s.ImmobilizationHours = v
		}
	case "sentinel.analysis_period_days":
		var v int
		if err := json.Unmarshal(value, &v); err == nil {
			s.AnalysisPeriodDays = v
		}
	}
}
