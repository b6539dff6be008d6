package detect

import (
	"fmt"

	"github.com/fleetfuel/sentinel/internal/geo"
	"github.com/fleetfuel/sentinel/internal/model"
	"github.com/fleetfuel/sentinel/internal/thresholds"
)

// DetectSuspiciousExif cross-checks a fill-up's declared time and place
// against the EXIF metadata of its receipt photo. It fires when the capture
// time is further from the declared time than the threshold allows, or the
// capture location is further from the declared location than the distance
// threshold. Returns nil when the fill-up or the EXIF record lacks the data
// to compare.
func DetectSuspiciousExif(fillUp model.FillUp, exif model.ExifMetadata, th thresholds.Snapshot) *model.Alert {
	timeGapHours := fillUp.Timestamp.Sub(exif.CapturedAt).Hours()
	if timeGapHours < 0 {
		timeGapHours = -timeGapHours
	}

	var distKm float64
	haveDistance := fillUp.Location != nil && exif.Location != nil
	if haveDistance {
		distKm = geo.DistanceKm(fillUp.Location.Lat, fillUp.Location.Lon,
			exif.Location.Lat, exif.Location.Lon)
	}

	timeSuspicious := timeGapHours > th.ExifTimeDeviationHours
	placeSuspicious := haveDistance && distKm > th.ExifDistanceKm
	if !timeSuspicious && !placeSuspicious {
		return nil
	}

	hoursOver := 0.0
	if timeSuspicious {
		hoursOver = timeGapHours - th.ExifTimeDeviationHours
	}
	kmOver := 0.0
	if placeSuspicious {
		kmOver = distKm - th.ExifDistanceKm
	}

	severity := model.SeverityMedium
	if hoursOver > 4 || kmOver > 5 {
		severity = model.SeverityHigh
	}

	return &model.Alert{
		ID:        alertID("EX", fillUp.ID),
		VehicleID: fillUp.VehicleID,
		DriverID:  fillUp.DriverID,
		Type:      model.AlertSuspiciousExif,
		Title:     "Receipt photo mismatch",
		Description: fmt.Sprintf("Receipt photo captured %.1f h from declared time and %.1f km from declared location",
			timeGapHours, distKm),
		Score:      clampScore(70+hoursOver*5+kmOver*10, 95),
		Severity:   severity,
		Status:     model.StatusNew,
		DetectedAt: fillUp.Timestamp,
		Details: model.ExifDetails{
			TimeGapHours: timeGapHours,
			DistanceKm:   distKm,
			HoursOver:    hoursOver,
			KmOver:       kmOver,
		},
	}
}
