package ml

import (
	"time"

	"accident-analytics/models"
)

func incident(day time.Weekday, hour, locality int, vehicle, road string, target models.Target) *models.Incident {
	// 2015-01-04 is a Sunday
	ts := time.Date(2015, 1, 4+int(day), hour, 0, 0, 0, time.UTC)
	return &models.Incident{
		LocalityCode: locality,
		LocalityName: models.LocalityName(locality),
		VehicleClass: vehicle,
		RoadDesign:   road,
		Target:       target,
		Temporal:     models.NewTemporal(ts),
	}
}

// idDataset builds a one-feature dataset whose feature is the row index, so
// rows can be traced through splits and resampling.
func idDataset(labels []int) *Dataset {
	rows := make([][]float64, len(labels))
	for i := range labels {
		rows[i] = []float64{float64(i)}
	}
	return NewDataset([]string{"id"}, rows, labels)
}

func imbalancedLabels(n, every int) []int {
	labels := make([]int, n)
	for i := range labels {
		if i%every == 0 {
			labels[i] = 1
		}
	}
	return labels
}
