package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"accident-analytics/models"
)

// Evaluate scores the held-out set and computes classification metrics.
// Run bookkeeping (RunID, sizes, warnings) is left to the caller.
func Evaluate(m *Model, test *Dataset) (*models.EvaluationReport, error) {
	if test.Rows() == 0 {
		return nil, errors.New("evaluate: empty test set")
	}
	if err := test.CheckLabels(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	probs, err := m.PredictProba(test)
	if err != nil {
		return nil, err
	}
	preds := Classify(probs)

	r := &models.EvaluationReport{TestSize: test.Rows(), Converged: m.Converged, Iterations: m.Iterations}
	if m.Vocabulary != nil {
		r.VocabularyVersion = m.Vocabulary.Version
	}

	correct := 0
	for i, actual := range test.Y {
		r.Confusion[actual][preds[i]]++
		if actual == preds[i] {
			correct++
		}
	}
	r.Accuracy = float64(correct) / float64(test.Rows())

	for c := 0; c < 2; c++ {
		tp := r.Confusion[c][c]
		predicted := r.Confusion[0][c] + r.Confusion[1][c]
		support := r.Confusion[c][0] + r.Confusion[c][1]
		cm := models.ClassMetrics{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		r.Classes[c] = cm

		weight := float64(support) / float64(test.Rows())
		r.WeightedAvg.Precision += weight * cm.Precision
		r.WeightedAvg.Recall += weight * cm.Recall
		r.WeightedAvg.F1 += weight * cm.F1
		r.WeightedAvg.Support += support
	}

	if r.Classes[0].Support > 0 && r.Classes[1].Support > 0 {
		r.ROC, r.AUC = rocCurve(probs, test.Y)
		r.AUCDefined = true
	} else {
		r.Warnings = append(r.Warnings, "test split holds a single class; ROC AUC is undefined")
	}
	return r, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// rocCurve returns the ROC points ordered by increasing false positive rate
// and the trapezoidal area under them. Both classes must be present.
func rocCurve(scores []float64, labels []int) ([]models.ROCPoint, float64) {
	y := make([]float64, len(scores))
	copy(y, scores)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)
	points := make([]models.ROCPoint, len(tpr))
	for i := range tpr {
		t := thresh[i]
		if math.IsInf(t, 1) || t > 1 {
			t = 1
		}
		points[i] = models.ROCPoint{FPR: fpr[i], TPR: tpr[i], Threshold: t}
	}
	return points, integrate.Trapezoidal(fpr, tpr)
}
