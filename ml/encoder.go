package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sort"
	"strconv"

	"accident-analytics/models"
)

// Predictor column names as they appear in feature names.
const (
	PredictorDayOfWeek    = models.ColumnDayOfWeek
	PredictorHour         = models.ColumnHour
	PredictorLocality     = models.ColumnLocality
	PredictorVehicleClass = models.ColumnVehicleClass
	PredictorRoadDesign   = models.ColumnRoadDesign
)

// CategoricalColumn lists every category seen at fit time. Categories[0] is
// the reference level and gets no indicator column.
type CategoricalColumn struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Vocabulary pins the one-hot layout the model was trained with.
type Vocabulary struct {
	Version  string              `json:"version"`
	Columns  []CategoricalColumn `json:"columns"`
	Features []string            `json:"features"`
}

// categoricalOf extracts the categorical predictor values of one incident.
// An empty string is a null category.
func categoricalOf(inc *models.Incident) map[string]string {
	day := ""
	if inc.Temporal != nil {
		day = inc.Temporal.DayOfWeek.String()
	}
	return map[string]string{
		PredictorDayOfWeek:    day,
		PredictorLocality:     strconv.Itoa(inc.LocalityCode),
		PredictorVehicleClass: inc.VehicleClass,
		PredictorRoadDesign:   inc.RoadDesign,
	}
}

var categoricalOrder = []string{PredictorDayOfWeek, PredictorLocality, PredictorVehicleClass, PredictorRoadDesign}

// FitVocabulary collects the categories of every incident, labelled or
// not, so rows scored later from the same dataset always encode.
func FitVocabulary(incidents []*models.Incident) *Vocabulary {
	seen := make(map[string]map[string]struct{}, len(categoricalOrder))
	for _, name := range categoricalOrder {
		seen[name] = make(map[string]struct{})
	}
	for _, inc := range incidents {
		for name, v := range categoricalOf(inc) {
			if v != "" {
				seen[name][v] = struct{}{}
			}
		}
	}

	v := &Vocabulary{}
	for _, name := range categoricalOrder {
		cats := make([]string, 0, len(seen[name]))
		for c := range seen[name] {
			cats = append(cats, c)
		}
		sortCategories(name, cats)
		v.Columns = append(v.Columns, CategoricalColumn{Name: name, Categories: cats})
	}
	v.Features = v.buildFeatures()
	v.Version = v.hash()
	return v
}

func sortCategories(column string, cats []string) {
	switch column {
	case PredictorDayOfWeek:
		sort.Slice(cats, func(i, j int) bool {
			a, _ := models.ParseWeekday(cats[i])
			b, _ := models.ParseWeekday(cats[j])
			return a < b
		})
	case PredictorLocality:
		sort.Slice(cats, func(i, j int) bool {
			a, _ := strconv.Atoi(cats[i])
			b, _ := strconv.Atoi(cats[j])
			return a < b
		})
	default:
		sort.Strings(cats)
	}
}

// buildFeatures lays out day_of_week indicators, hour_of_day, then the
// remaining indicators in predictor order.
func (v *Vocabulary) buildFeatures() []string {
	var out []string
	for _, col := range v.Columns {
		if len(col.Categories) > 1 {
			for _, c := range col.Categories[1:] {
				out = append(out, col.Name+"_"+c)
			}
		}
		if col.Name == PredictorDayOfWeek {
			out = append(out, PredictorHour)
		}
	}
	return out
}

func (v *Vocabulary) hash() string {
	b, _ := json.Marshal(v.Columns)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12]
}

// FeatureNames returns the matrix column names in order.
func (v *Vocabulary) FeatureNames() []string {
	return slices.Clone(v.Features)
}

// CheckFeatures fails with *models.EncodingMismatchError when a matrix was
// built with a different column layout.
func (v *Vocabulary) CheckFeatures(features []string) error {
	if !slices.Equal(v.Features, features) {
		return &models.EncodingMismatchError{Expected: v.FeatureNames(), Got: slices.Clone(features)}
	}
	return nil
}

// Encode builds the training matrix from labelled incidents. Rows with an
// undefined target are skipped and counted in excluded.
func (v *Vocabulary) Encode(incidents []*models.Incident) (d *Dataset, excluded int, err error) {
	labelled := make([]*models.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if !inc.Target.Valid() {
			excluded++
			continue
		}
		labelled = append(labelled, inc)
	}
	d, err = v.EncodeFeatures(labelled)
	return d, excluded, err
}

// EncodeFeatures encodes every incident regardless of its target, for
// scoring. Y carries the raw target, which may be models.TargetUndefined.
func (v *Vocabulary) EncodeFeatures(incidents []*models.Incident) (*Dataset, error) {
	index := make(map[string]int, len(v.Features))
	for i, f := range v.Features {
		index[f] = i
	}
	known := make(map[string]map[string]bool, len(v.Columns))
	for _, col := range v.Columns {
		known[col.Name] = make(map[string]bool, len(col.Categories))
		for _, c := range col.Categories {
			known[col.Name][c] = true
		}
	}

	rows := make([][]float64, len(incidents))
	y := make([]int, len(incidents))
	for i, inc := range incidents {
		row := make([]float64, len(v.Features))
		if inc.Temporal != nil {
			row[index[PredictorHour]] = float64(inc.Temporal.Hour)
		}
		values := categoricalOf(inc)
		for _, col := range v.Columns {
			value := values[col.Name]
			if value == "" {
				continue
			}
			if !known[col.Name][value] {
				return nil, &models.EncodingMismatchError{Column: col.Name, Value: value}
			}
			if j, ok := index[col.Name+"_"+value]; ok {
				row[j] = 1
			}
		}
		rows[i] = row
		y[i] = int(inc.Target)
	}
	return NewDataset(v.FeatureNames(), rows, y), nil
}
