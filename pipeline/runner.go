// Package pipeline wires the cleaning, exploration, training, scoring and
// dashboard stages to their files on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"accident-analytics/config"
	"accident-analytics/ml"
	"accident-analytics/models"
	"accident-analytics/services"
	"accident-analytics/storage"
	"accident-analytics/utils"
)

const profileHeadRows = 5

// Runner executes pipeline stages against one configuration. Every stage
// reads its inputs from disk so stages can run as separate commands.
type Runner struct {
	cfg     *config.Config
	logger  *utils.Logger
	metrics *utils.Metrics

	// recorder overrides the PostgreSQL run recorder when set.
	recorder storage.RunRecorder
}

func NewRunner(cfg *config.Config, logger *utils.Logger, metrics *utils.Metrics) *Runner {
	return &Runner{cfg: cfg, logger: logger, metrics: metrics}
}

// Prepare reads the raw extract, writes the metadata file, cleans the rows
// and persists the cleaned dataset to CSV (and PostgreSQL when enabled).
func (r *Runner) Prepare(ctx context.Context) (*models.CleanDataset, error) {
	r.logger.Info("[prepare] Reading %s", r.cfg.InputPath)
	raw, err := storage.ReadTable(r.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	r.metrics.RowsRead.Add(float64(len(raw.Rows)))
	r.logger.Info("[prepare] Read %d rows × %d columns", len(raw.Rows), len(raw.Columns))

	profile := services.Profile(raw, profileHeadRows)

	ds, err := services.NewCleaner(r.logger).Clean(raw)
	if err != nil {
		return nil, err
	}
	r.metrics.RowsCleaned.Add(float64(len(ds.Incidents)))
	r.metrics.TemporalParseErrors.Add(float64(ds.Stats.TemporalParseErrors))
	r.metrics.TargetDefects.Add(float64(ds.Stats.TargetDefects))
	r.metrics.UnknownLocalities.Add(float64(ds.Stats.UnknownLocalities))

	if err := storage.WriteMetadata(r.cfg.MetadataPath, profile, &ds.Stats); err != nil {
		return nil, err
	}
	r.logger.Info("[prepare] Metadata saved to %s", r.cfg.MetadataPath)

	csvWriter, err := storage.NewCSVWriter(r.cfg.CleanedPath)
	if err != nil {
		return nil, err
	}
	defer csvWriter.Close()
	writers := []storage.IncidentWriter{csvWriter}

	if r.cfg.PostgresEnabled {
		pg, err := r.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		writers = append(writers, pg)
	}

	for i, w := range writers {
		if err := w.Write(ctx, ds); err != nil {
			if i == 0 {
				return nil, err
			}
			r.logger.Error("[prepare] PostgreSQL write failed: %v", err)
		}
	}
	r.logger.Info("[prepare] Cleaned dataset (%d rows) saved to %s", len(ds.Incidents), r.cfg.CleanedPath)
	return ds, nil
}

// Explore computes the exploratory statistics, fits the feature vocabulary
// and writes the feature matrix with its vocabulary and the EDA report.
func (r *Runner) Explore(ctx context.Context) (*ml.Dataset, *ml.Vocabulary, error) {
	ds, err := storage.LoadCleaned(r.cfg.CleanedPath)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("[explore] Loaded %d cleaned rows from %s", len(ds.Incidents), r.cfg.CleanedPath)

	insights := services.NewInsightService(r.logger)
	report := insights.Generate(ds.Incidents)
	insights.Print(report)

	vocab := ml.FitVocabulary(ds.Incidents)
	matrix, excluded, err := vocab.Encode(ds.Incidents)
	if err != nil {
		return nil, nil, err
	}
	if excluded > 0 {
		r.logger.Warn("[explore] %d rows without a defined target excluded from the feature matrix", excluded)
	}
	r.metrics.FeatureColumns.Set(float64(len(matrix.Features)))
	r.logger.Info("[explore] Feature matrix %d × %d (vocabulary %s)", matrix.Rows(), len(matrix.Features), vocab.Version)

	if err := storage.WriteFeatures(r.cfg.FeaturesPath, matrix, vocab); err != nil {
		return nil, nil, err
	}
	if err := storage.WriteEDAReport(r.cfg.EDAReportPath, report, matrix.Rows(), len(matrix.Features)); err != nil {
		return nil, nil, err
	}
	r.logger.Info("[explore] EDA report saved to %s | features saved to %s", r.cfg.EDAReportPath, r.cfg.FeaturesPath)
	return matrix, vocab, nil
}

// Train fits the classifier on the stored feature matrix, evaluates it on
// the held-out split and persists the model, the evaluation and the
// modeling report.
func (r *Runner) Train(ctx context.Context) (*models.EvaluationReport, error) {
	matrix, vocab, err := storage.ReadFeatures(r.cfg.FeaturesPath)
	if err != nil {
		return nil, err
	}

	trainer := &ml.Trainer{
		TestFraction: r.cfg.TestFraction,
		Seed:         r.cfg.RandomSeed,
		MaxIter:      r.cfg.MaxIter,
		C:            r.cfg.Regularization,
		Neighbors:    r.cfg.SMOTENeighbors,
		Logger:       r.logger,
	}
	result, err := trainer.Train(matrix, vocab)
	if err != nil {
		return nil, err
	}
	r.metrics.TrainingDuration.Observe(result.Duration.Seconds())
	for _, w := range result.Warnings {
		var cw *models.ConvergenceWarning
		if errors.As(w, &cw) {
			r.metrics.ConvergenceWarnings.Inc()
		}
	}

	report, err := result.Report()
	if err != nil {
		return nil, err
	}
	if report.AUCDefined {
		r.metrics.ModelAUC.Set(report.AUC)
	}
	for _, w := range report.Warnings {
		r.logger.Warn("[train] %s", w)
	}

	if err := storage.SaveJSON(r.cfg.ModelPath, result.Model); err != nil {
		return nil, err
	}
	if err := storage.SaveJSON(r.cfg.EvaluationPath, report); err != nil {
		return nil, err
	}
	if err := storage.WriteModelingReport(r.cfg.ModelingReportPath, report, result.Model, r.cfg.TestFraction); err != nil {
		return nil, err
	}
	r.logger.Info("[train] Run %s | AUC %.4f | recall(high) %.2f | model → %s | report → %s",
		report.RunID, report.AUC, report.Classes[models.TargetHigh].Recall, r.cfg.ModelPath, r.cfg.ModelingReportPath)

	if err := r.recordRun(ctx, report); err != nil {
		r.logger.Error("[train] %v", err)
	}
	return report, nil
}

// recordRun stores the run summary. Without an explicit recorder it goes to
// PostgreSQL when enabled and is skipped otherwise.
func (r *Runner) recordRun(ctx context.Context, report *models.EvaluationReport) error {
	rec := r.recorder
	if rec == nil {
		if !r.cfg.PostgresEnabled {
			return nil
		}
		pg, err := r.openPostgres(ctx)
		if err != nil {
			return fmt.Errorf("skipping run record: %w", err)
		}
		defer pg.Close()
		rec = pg
	}
	return rec.RecordRun(ctx, report)
}

// Score applies the persisted model to a raw extract (inputPath) or, when
// inputPath is empty, to the cleaned dataset. It returns the number of
// rows scored.
func (r *Runner) Score(ctx context.Context, inputPath string) (int, error) {
	model, err := storage.LoadModel(r.cfg.ModelPath)
	if err != nil {
		return 0, err
	}

	var ds *models.CleanDataset
	if inputPath == "" {
		ds, err = storage.LoadCleaned(r.cfg.CleanedPath)
	} else {
		var raw *models.Table
		raw, err = storage.ReadTable(inputPath)
		if err == nil {
			ds, err = services.NewCleaner(r.logger).Clean(raw)
		}
	}
	if err != nil {
		return 0, err
	}

	matrix, err := model.Vocabulary.EncodeFeatures(ds.Incidents)
	if err != nil {
		return 0, err
	}
	probs, err := model.PredictProba(matrix)
	if err != nil {
		return 0, err
	}
	preds := ml.Classify(probs)

	if err := storage.WriteScores(r.cfg.ScoresPath, ds.Incidents, probs, preds); err != nil {
		return 0, err
	}
	r.metrics.RowsScored.Add(float64(len(probs)))
	r.logger.Info("[score] Scored %d rows with vocabulary %s → %s", len(probs), model.Vocabulary.Version, r.cfg.ScoresPath)
	return len(probs), nil
}

// Dashboard recomputes the dashboard view for the given filter. Incidents
// come from PostgreSQL when enabled, otherwise from the cleaned CSV. The
// metrics panel is empty until a model has been trained.
func (r *Runner) Dashboard(ctx context.Context, filter services.DashboardFilter, topN int) (*services.DashboardView, error) {
	incidents, err := r.loadIncidents(ctx)
	if err != nil {
		return nil, err
	}

	report, err := storage.LoadEvaluation(r.cfg.EvaluationPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		r.logger.Warn("[dashboard] No evaluation at %s; train a model to see metrics", r.cfg.EvaluationPath)
		report = nil
	}

	svc := services.NewDashboardService(r.logger)
	if topN <= 0 {
		topN = r.cfg.TopNLocalities
	}
	view := svc.View(incidents, filter, topN, report)
	svc.Print(view)
	return view, nil
}

// LocalityOptions lists the locality names available for filtering.
func (r *Runner) LocalityOptions(ctx context.Context) ([]string, error) {
	incidents, err := r.loadIncidents(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewDashboardService(r.logger).LocalityOptions(incidents), nil
}

// Run executes prepare, explore and train in order.
func (r *Runner) Run(ctx context.Context) (*models.EvaluationReport, error) {
	start := time.Now()
	if _, err := r.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	if _, _, err := r.Explore(ctx); err != nil {
		return nil, fmt.Errorf("explore: %w", err)
	}
	report, err := r.Train(ctx)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	r.logger.Info("=== Pipeline finished in %s ===", time.Since(start).Round(time.Millisecond))
	return report, nil
}

// FlushMetrics writes the metrics textfile when METRICS_PATH is set.
func (r *Runner) FlushMetrics() error {
	return r.metrics.WriteTextfile(r.cfg.MetricsPath)
}

func (r *Runner) loadIncidents(ctx context.Context) ([]*models.Incident, error) {
	if r.cfg.PostgresEnabled {
		incidents, err := r.fetchFromPostgres(ctx)
		if err == nil {
			return incidents, nil
		}
		r.logger.Error("[dashboard] Failed to fetch incidents from PostgreSQL, falling back to %s: %v", r.cfg.CleanedPath, err)
	}

	ds, err := storage.LoadCleaned(r.cfg.CleanedPath)
	if err != nil {
		return nil, err
	}
	return ds.Incidents, nil
}

func (r *Runner) fetchFromPostgres(ctx context.Context) ([]*models.Incident, error) {
	pg, err := r.openPostgres(ctx)
	if err != nil {
		return nil, err
	}
	defer pg.Close()
	return pg.FetchIncidents(ctx)
}

func (r *Runner) openPostgres(ctx context.Context) (*storage.PostgresWriter, error) {
	retry := utils.RetryConfig{
		MaxAttempts: r.cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      r.logger,
	}
	pg, err := storage.NewPostgresWriter(ctx, r.cfg.DSN(), retry)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL (docker compose up -d?): %w", err)
	}
	return pg, nil
}
