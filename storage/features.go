package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"accident-analytics/ml"
	"accident-analytics/models"
)

// VocabularyPath returns the sidecar file that pins a feature matrix's layout.
func VocabularyPath(featuresPath string) string {
	return strings.TrimSuffix(featuresPath, filepath.Ext(featuresPath)) + ".vocab.json"
}

// WriteFeatures persists the matrix as CSV (features then severity_target)
// and the vocabulary next to it.
func WriteFeatures(path string, d *ml.Dataset, vocab *ml.Vocabulary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("features: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("features: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append(slices.Clone(d.Features), models.ColumnTarget)); err != nil {
		return fmt.Errorf("features: write header: %w", err)
	}
	for i := 0; i < d.Rows(); i++ {
		row := make([]string, 0, len(d.Features)+1)
		for _, v := range d.Row(i) {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row, strconv.Itoa(d.Y[i]))
		if err := w.Write(row); err != nil {
			return fmt.Errorf("features: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("features: flush: %w", err)
	}

	return SaveJSON(VocabularyPath(path), vocab)
}

// ReadFeatures loads a matrix written by WriteFeatures and verifies that its
// header matches the stored vocabulary.
func ReadFeatures(path string) (*ml.Dataset, *ml.Vocabulary, error) {
	vocab := &ml.Vocabulary{}
	if err := LoadJSON(VocabularyPath(path), vocab); err != nil {
		return nil, nil, err
	}

	t, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	last := len(t.Columns) - 1
	if last < 0 || t.Columns[last] != models.ColumnTarget {
		return nil, nil, &models.SchemaError{Column: models.ColumnTarget, Available: t.Columns}
	}
	features := t.Columns[:last]
	if err := vocab.CheckFeatures(features); err != nil {
		return nil, nil, err
	}

	rows := make([][]float64, len(t.Rows))
	y := make([]int, len(t.Rows))
	for i, rec := range t.Rows {
		row := make([]float64, last)
		for j := range row {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("features: line %d column %q: %w", i+2, features[j], err)
			}
			row[j] = v
		}
		label, err := strconv.Atoi(rec[last])
		if err != nil {
			return nil, nil, fmt.Errorf("features: line %d: %w", i+2, err)
		}
		if !models.Target(label).Valid() {
			return nil, nil, fmt.Errorf("features: line %d: label %d outside {0,1}", i+2, label)
		}
		rows[i], y[i] = row, label
	}
	return ml.NewDataset(slices.Clone(features), rows, y), vocab, nil
}

// SaveJSON writes v as indented JSON, creating parent directories.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode %q: %w", path, err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", path, err)
	}
	return nil
}

// LoadJSON decodes the file at path into v.
func LoadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return &models.InputReadError{Path: path, Err: err}
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &models.InputReadError{Path: path, Err: err}
	}
	return nil
}

// LoadModel reads a fitted model. Models must carry their vocabulary.
func LoadModel(path string) (*ml.Model, error) {
	m := &ml.Model{}
	if err := LoadJSON(path, m); err != nil {
		return nil, err
	}
	if m.Vocabulary == nil {
		return nil, &models.InputReadError{Path: path, Err: fmt.Errorf("model has no vocabulary")}
	}
	return m, nil
}

// LoadEvaluation reads a stored evaluation report.
func LoadEvaluation(path string) (*models.EvaluationReport, error) {
	r := &models.EvaluationReport{}
	if err := LoadJSON(path, r); err != nil {
		return nil, err
	}
	return r, nil
}
