package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"accident-analytics/models"
	"accident-analytics/utils"
)

// Trainer runs split, oversampling and fitting with one seeded generator so
// a run is reproducible from its configuration.
type Trainer struct {
	TestFraction float64
	Seed         int64
	MaxIter      int
	C            float64
	Neighbors    int
	Logger       *utils.Logger
}

// TrainingResult carries the fitted model and the untouched held-out split.
type TrainingResult struct {
	RunID     string
	Model     *Model
	Train     *Dataset
	Test      *Dataset
	Resampled int
	Duration  time.Duration
	Warnings  []error
}

// Train fits a model on d. The vocabulary is attached to the model so it
// can be persisted with it. Convergence problems are collected in
// Warnings and do not fail the run.
func (t *Trainer) Train(d *Dataset, vocab *Vocabulary) (*TrainingResult, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(t.Seed))
	res := &TrainingResult{RunID: uuid.NewString()}

	train, test, err := StratifiedSplit(d, t.TestFraction, rng)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	res.Train, res.Test = train, test
	counts := train.ClassCounts()
	t.Logger.Info("[trainer] Split %d rows → train %d (0=%d 1=%d) | test %d",
		d.Rows(), train.Rows(), counts[0], counts[1], test.Rows())

	if counts[0] == 1 || counts[1] == 1 {
		res.Warnings = append(res.Warnings, errors.New("only one minority sample in the training split; oversampling duplicates it"))
	}
	smote := &SMOTE{K: t.Neighbors, Rng: rng}
	resampled, err := smote.FitResample(train)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	res.Resampled = resampled.Rows()
	after := resampled.ClassCounts()
	t.Logger.Info("[trainer] SMOTE balanced training set: 0=%d 1=%d", after[0], after[1])

	model, err := LogisticRegression{MaxIter: t.MaxIter, C: t.C}.Fit(resampled)
	var warn *models.ConvergenceWarning
	switch {
	case errors.As(err, &warn):
		t.Logger.Warn("[trainer] %v", warn)
		res.Warnings = append(res.Warnings, warn)
	case err != nil:
		return nil, fmt.Errorf("train: %w", err)
	}
	model.Vocabulary = vocab
	res.Model = model
	res.Duration = time.Since(start)

	t.Logger.Info("[trainer] Fitted %d coefficients in %d iterations (%s) in %s",
		len(model.Coef), model.Iterations, model.Status, res.Duration.Round(time.Millisecond))
	return res, nil
}

// Report evaluates the model on the held-out split and stamps the run
// bookkeeping into the result.
func (r *TrainingResult) Report() (*models.EvaluationReport, error) {
	report, err := Evaluate(r.Model, r.Test)
	if err != nil {
		return nil, err
	}
	report.RunID = r.RunID
	report.CreatedAt = time.Now().UTC()
	report.TrainSize = r.Train.Rows()
	report.ResampledSize = r.Resampled
	warnings := make([]string, 0, len(r.Warnings)+len(report.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, w.Error())
	}
	report.Warnings = append(warnings, report.Warnings...)
	return report, nil
}
