// Package ml holds the feature encoding, resampling, model fitting and
// evaluation stages of the severity classifier.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dataset is a purely numeric feature matrix with aligned labels.
// X is nil when the dataset has no rows.
type Dataset struct {
	Features []string
	X        *mat.Dense
	Y        []int
}

// NewDataset builds a Dataset from row-major data.
func NewDataset(features []string, rows [][]float64, y []int) *Dataset {
	d := &Dataset{Features: features, Y: y}
	if len(rows) == 0 || len(features) == 0 {
		return d
	}
	data := make([]float64, 0, len(rows)*len(features))
	for _, r := range rows {
		data = append(data, r...)
	}
	d.X = mat.NewDense(len(rows), len(features), data)
	return d
}

// Rows returns the number of samples.
func (d *Dataset) Rows() int {
	return len(d.Y)
}

// Row copies sample i into a new slice.
func (d *Dataset) Row(i int) []float64 {
	return mat.Row(nil, i, d.X)
}

// Subset returns a new Dataset holding the given rows in order.
func (d *Dataset) Subset(idx []int) *Dataset {
	rows := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for k, i := range idx {
		rows[k] = d.Row(i)
		y[k] = d.Y[i]
	}
	return NewDataset(d.Features, rows, y)
}

// CheckLabels reports the first label outside {0,1}.
func (d *Dataset) CheckLabels() error {
	for i, y := range d.Y {
		if y != 0 && y != 1 {
			return fmt.Errorf("row %d: label %d outside {0,1}", i, y)
		}
	}
	return nil
}

// ClassCounts counts samples per binary class. Labels outside {0,1} are ignored.
func (d *Dataset) ClassCounts() [2]int {
	var counts [2]int
	for _, y := range d.Y {
		if y == 0 || y == 1 {
			counts[y]++
		}
	}
	return counts
}
