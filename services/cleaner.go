package services

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"accident-analytics/models"
	"accident-analytics/utils"
)

// maxExamples bounds how many row-level defects are kept for the metadata file.
const maxExamples = 5

// Cleaner turns a raw extract into enriched incidents by running the
// normalizer, the temporal deriver and the target definer in order.
type Cleaner struct {
	logger     *utils.Logger
	normalizer *Normalizer
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, normalizer: NewNormalizer(logger)}
}

// Clean normalizes the table and derives every enriched field. Schema
// problems abort with a *models.SchemaError; row-level defects are counted
// in the returned stats and the row is kept.
func (c *Cleaner) Clean(raw *models.Table) (*models.CleanDataset, error) {
	table, schema, err := c.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	ds := &models.CleanDataset{
		Columns:   table.Columns,
		Incidents: make([]*models.Incident, 0, len(table.Rows)),
	}
	stats := &ds.Stats
	stats.Rows = len(table.Rows)

	for i, row := range table.Rows {
		line := i + 2 // header occupies line 1

		code, _ := strconv.Atoi(row[schema.Locality])
		inc := &models.Incident{
			Source:       row,
			Date:         models.Cell(row, schema.Date),
			Time:         models.Cell(row, schema.Time),
			SeverityCode: models.Cell(row, schema.Severity),
			LocalityCode: code,
			LocalityName: models.LocalityName(code),
			VehicleClass: models.Cell(row, schema.VehicleClass),
			RoadDesign:   models.Cell(row, schema.RoadDesign),
		}
		if code == models.LocalityUnknown {
			stats.UnknownLocalities++
		}

		temporal, err := DeriveTemporal(inc.Date, inc.Time)
		if err != nil {
			var perr *models.TemporalParseError
			if errors.As(err, &perr) {
				perr.Row = line
			}
			stats.TemporalParseErrors++
			c.keepExample(stats, err)
		}
		inc.Temporal = temporal

		target, err := DefineTarget(inc.SeverityCode)
		if err != nil {
			var terr *models.TargetDefinitionError
			if errors.As(err, &terr) {
				terr.Row = line
			}
			stats.TargetDefects++
			c.keepExample(stats, err)
		}
		inc.Target = target

		ds.Incidents = append(ds.Incidents, inc)
	}

	counts := ds.TargetCounts()
	c.logger.Info("[cleaner] Cleaned %d rows: target 0=%d 1=%d undefined=%d | temporal parse errors=%d | unknown localities=%d",
		stats.Rows, counts[models.TargetLow], counts[models.TargetHigh], counts[models.TargetUndefined],
		stats.TemporalParseErrors, stats.UnknownLocalities)
	if stats.TargetDefects > 0 {
		c.logger.Warn("[cleaner] %d rows have a severity code outside {1,2,3}; they are excluded from training", stats.TargetDefects)
	}
	return ds, nil
}

func (c *Cleaner) keepExample(stats *models.CleaningStats, err error) {
	c.logger.Debug("[cleaner] %v", err)
	if len(stats.Examples) < maxExamples {
		stats.Examples = append(stats.Examples, err)
	}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
