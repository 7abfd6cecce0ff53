package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-analytics/utils"
)

func trainerFixture() *Dataset {
	labels := imbalancedLabels(100, 5)
	rows := make([][]float64, len(labels))
	for i, y := range labels {
		rows[i] = []float64{2*float64(y) + float64(i%7)/7, float64(i % 3)}
	}
	return NewDataset([]string{"signal", "noise"}, rows, labels)
}

func newTrainer() *Trainer {
	return &Trainer{
		TestFraction: 0.30,
		Seed:         42,
		MaxIter:      1000,
		C:            1.0,
		Neighbors:    5,
		Logger:       utils.NewNopLogger(),
	}
}

func TestTrainerTrain(t *testing.T) {
	res, err := newTrainer().Train(trainerFixture(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, [2]int{56, 14}, res.Train.ClassCounts())
	assert.Equal(t, [2]int{24, 6}, res.Test.ClassCounts())
	assert.Equal(t, 112, res.Resampled, "SMOTE balances the training split only")
	assert.Empty(t, res.Warnings)
	assert.True(t, res.Model.Converged)
}

func TestTrainerReport(t *testing.T) {
	res, err := newTrainer().Train(trainerFixture(), nil)
	require.NoError(t, err)

	report, err := res.Report()
	require.NoError(t, err)
	assert.Equal(t, res.RunID, report.RunID)
	assert.Equal(t, res.Test.Rows(), report.ConfusionTotal())
	assert.Equal(t, 70, report.TrainSize)
	assert.Equal(t, 112, report.ResampledSize)
	assert.True(t, report.AUCDefined)
	assert.Greater(t, report.AUC, 0.9)
}

func TestTrainerReproducible(t *testing.T) {
	a, err := newTrainer().Train(trainerFixture(), nil)
	require.NoError(t, err)
	b, err := newTrainer().Train(trainerFixture(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.Model.Coef, b.Model.Coef)
	assert.Equal(t, a.Model.Intercept, b.Model.Intercept)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestTrainerAttachesVocabulary(t *testing.T) {
	vocab := &Vocabulary{Version: "abc123", Features: []string{"signal", "noise"}}
	res, err := newTrainer().Train(trainerFixture(), vocab)
	require.NoError(t, err)

	assert.Same(t, vocab, res.Model.Vocabulary)
	report, err := res.Report()
	require.NoError(t, err)
	assert.Equal(t, "abc123", report.VocabularyVersion)
}

func TestTrainerConvergenceWarningIsNotFatal(t *testing.T) {
	tr := newTrainer()
	tr.MaxIter = 1

	res, err := tr.Train(trainerFixture(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)

	report, err := res.Report()
	require.NoError(t, err)
	assert.False(t, report.Converged)
	assert.NotEmpty(t, report.Warnings)
}

func TestTrainerSingleClass(t *testing.T) {
	d := idDataset([]int{0, 0, 0, 0, 0})
	_, err := newTrainer().Train(d, nil)
	assert.ErrorIs(t, err, ErrNoMinority)
}
