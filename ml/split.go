package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions d into train and test sets so each class keeps
// its proportion. Each class sends round(n·testFraction) rows to test, but
// never all of them.
func StratifiedSplit(d *Dataset, testFraction float64, rng *rand.Rand) (train, test *Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("split: test fraction %.3f outside (0,1)", testFraction)
	}
	if d.Rows() == 0 {
		return nil, nil, errors.New("split: empty dataset")
	}
	if err := d.CheckLabels(); err != nil {
		return nil, nil, fmt.Errorf("split: %w", err)
	}

	byClass := make(map[int][]int)
	for i, y := range d.Y {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	var trainIdx, testIdx []int
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(float64(len(idx)) * testFraction))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	return d.Subset(trainIdx), d.Subset(testIdx), nil
}
