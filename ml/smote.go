package ml

import (
	"errors"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SMOTE oversamples the minority class by interpolating between a minority
// sample and one of its K nearest minority neighbours until both classes
// have the same count.
type SMOTE struct {
	K   int
	Rng *rand.Rand
}

// ErrNoMinority is returned when one class is absent from the input.
var ErrNoMinority = errors.New("smote: one class has no samples")

// FitResample returns a new dataset: the original rows followed by the
// synthetic ones. With a single minority sample it is duplicated.
func (s *SMOTE) FitResample(d *Dataset) (*Dataset, error) {
	counts := d.ClassCounts()
	minority, majority := 1, 0
	if counts[0] < counts[1] {
		minority, majority = 0, 1
	}
	if counts[minority] == 0 {
		return nil, ErrNoMinority
	}

	rows := make([][]float64, 0, 2*counts[majority])
	y := make([]int, 0, 2*counts[majority])
	var pool [][]float64
	for i := 0; i < d.Rows(); i++ {
		r := d.Row(i)
		rows = append(rows, r)
		y = append(y, d.Y[i])
		if d.Y[i] == minority {
			pool = append(pool, r)
		}
	}

	need := counts[majority] - counts[minority]
	if need == 0 {
		return NewDataset(d.Features, rows, y), nil
	}

	k := s.K
	if k > len(pool)-1 {
		k = len(pool) - 1
	}
	neighbours := make(map[int][]int)

	for n := 0; n < need; n++ {
		base := s.Rng.Intn(len(pool))
		synthetic := make([]float64, len(pool[base]))
		if k < 1 {
			copy(synthetic, pool[base])
		} else {
			nn, ok := neighbours[base]
			if !ok {
				nn = nearest(pool, base, k)
				neighbours[base] = nn
			}
			other := pool[nn[s.Rng.Intn(len(nn))]]
			diff := make([]float64, len(synthetic))
			floats.SubTo(diff, other, pool[base])
			floats.AddScaledTo(synthetic, pool[base], s.Rng.Float64(), diff)
		}
		rows = append(rows, synthetic)
		y = append(y, minority)
	}
	return NewDataset(d.Features, rows, y), nil
}

// nearest returns the indexes of the k points closest to pool[i], by
// Euclidean distance, ties broken by index.
func nearest(pool [][]float64, i, k int) []int {
	type candidate struct {
		idx  int
		dist float64
	}
	cands := make([]candidate, 0, len(pool)-1)
	for j, p := range pool {
		if j == i {
			continue
		}
		cands = append(cands, candidate{idx: j, dist: floats.Distance(pool[i], p, 2)})
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].dist != cands[b].dist {
			return cands[a].dist < cands[b].dist
		}
		return cands[a].idx < cands[b].idx
	})
	out := make([]int, k)
	for n := range out {
		out[n] = cands[n].idx
	}
	return out
}
