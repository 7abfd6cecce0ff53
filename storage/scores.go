package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"accident-analytics/models"
)

// WriteScores writes one row per incident with its predicted probability of
// high severity and the hard prediction.
func WriteScores(path string, incidents []*models.Incident, probs []float64, preds []int) error {
	if len(incidents) != len(probs) || len(probs) != len(preds) {
		return fmt.Errorf("scores: %d incidents, %d probabilities, %d predictions", len(incidents), len(probs), len(preds))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("scores: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scores: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		models.ColumnDatetime, models.ColumnLocalityName, models.ColumnVehicleClass,
		models.ColumnRoadDesign, models.ColumnTarget, "probability_high", "predicted_target",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("scores: write header: %w", err)
	}
	for i, inc := range incidents {
		cells := derivedCells(inc)
		row := []string{
			cells[0], inc.LocalityName, inc.VehicleClass, inc.RoadDesign, cells[8],
			strconv.FormatFloat(probs[i], 'f', 6, 64), strconv.Itoa(preds[i]),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("scores: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
