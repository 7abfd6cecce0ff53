package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"accident-analytics/models"
)

// DatetimeLayout is how accident_datetime is persisted.
const DatetimeLayout = "2006-01-02 15:04:05"

// CSVWriter writes the cleaned dataset: canonical columns followed by the
// derived columns. Null derived values are empty cells.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return &CSVWriter{file: f, writer: csv.NewWriter(f)}, nil
}

// Write emits the header and one row per incident.
func (c *CSVWriter) Write(ctx context.Context, ds *models.CleanDataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	header := append(slices.Clone(ds.Columns), models.DerivedColumns...)
	if err := c.writer.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, inc := range ds.Incidents {
		row := append(slices.Clone(inc.Source), derivedCells(inc)...)
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func derivedCells(inc *models.Incident) []string {
	cells := make([]string, len(models.DerivedColumns))
	if t := inc.Temporal; t != nil {
		cells[0] = t.Timestamp.Format(DatetimeLayout)
		cells[1] = t.Timestamp.Format("2006-01-02")
		cells[2] = t.Timestamp.Format("15:04:05")
		cells[3] = t.DayOfWeek.String()
		cells[4] = strconv.Itoa(t.Month)
		cells[5] = strconv.Itoa(t.Year)
		cells[6] = strconv.Itoa(t.Hour)
	}
	cells[7] = inc.LocalityName
	if inc.Target.Valid() {
		cells[8] = strconv.Itoa(int(inc.Target))
	}
	return cells
}

// LoadCleaned reads a file written by CSVWriter. Timestamps are re-parsed
// and the calendar fields re-derived from them; defect counters are
// rebuilt from the null cells.
func LoadCleaned(path string) (*models.CleanDataset, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c] = i
	}
	for _, required := range append(slices.Clone(models.RequiredColumns), models.DerivedColumns...) {
		if _, ok := idx[required]; !ok {
			return nil, &models.SchemaError{Column: required, Available: t.Columns}
		}
	}

	canonical := len(t.Columns) - len(models.DerivedColumns)
	ds := &models.CleanDataset{
		Columns:   slices.Clone(t.Columns[:canonical]),
		Incidents: make([]*models.Incident, 0, len(t.Rows)),
	}
	ds.Stats.Rows = len(t.Rows)

	col := func(row []string, name string) string {
		if i, ok := idx[name]; ok {
			return row[i]
		}
		return ""
	}

	for i, row := range t.Rows {
		code, _ := strconv.Atoi(col(row, models.ColumnLocality))
		inc := &models.Incident{
			Source:       slices.Clone(row[:canonical]),
			Date:         col(row, models.ColumnDate),
			Time:         col(row, models.ColumnTime),
			SeverityCode: col(row, models.ColumnSeverity),
			LocalityCode: code,
			LocalityName: col(row, models.ColumnLocalityName),
			VehicleClass: col(row, models.ColumnVehicleClass),
			RoadDesign:   col(row, models.ColumnRoadDesign),
			Target:       models.TargetUndefined,
		}
		if code == models.LocalityUnknown {
			ds.Stats.UnknownLocalities++
		}

		if raw := col(row, models.ColumnDatetime); raw != "" {
			ts, err := time.ParseInLocation(DatetimeLayout, raw, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("csv: line %d: %s: %w", i+2, models.ColumnDatetime, err)
			}
			inc.Temporal = models.NewTemporal(ts)
		} else {
			ds.Stats.TemporalParseErrors++
		}

		if raw := col(row, models.ColumnTarget); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || !models.Target(n).Valid() {
				return nil, fmt.Errorf("csv: line %d: invalid %s %q", i+2, models.ColumnTarget, raw)
			}
			inc.Target = models.Target(n)
		} else {
			ds.Stats.TargetDefects++
		}

		ds.Incidents = append(ds.Incidents, inc)
	}
	return ds, nil
}
