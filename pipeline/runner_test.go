package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-analytics/config"
	"accident-analytics/models"
	"accident-analytics/services"
	"accident-analytics/storage"
	"accident-analytics/utils"
)

const rawExtract = `FECHA,HORA,GRAVEDAD,CODIGO LOCALIDAD,CLASE,DISEÑO LUGAR
2015-01-05,08:00:00,1,8,Choque,Tramo de via
2015-01-05,18:30:00,1,8,Choque,Interseccion
2015-01-06,07:15:00,1,11,Choque,Tramo de via
2015-01-07,12:00:00,1,1,Choque,Tramo de via
2015-01-08,22:45:00,1,11,Choque,Interseccion
2015-01-09,17:10:00,1,8,Choque,Tramo de via
2015-01-10,09:00:00,1,1,Choque,Tramo de via
2015-01-11,14:20:00,1,19,Choque,Interseccion
2015-01-10,02:00:00,2,19,Atropello,Tramo de via
2015-01-11,03:30:00,3,8,Atropello,Interseccion
`

func newTestRunner(t *testing.T) (*Runner, *config.Config) {
	t.Helper()
	return newTestRunnerWith(t, rawExtract)
}

func newTestRunnerWith(t *testing.T, extract string) (*Runner, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	out := func(name string) string { return filepath.Join(dir, "output", name) }

	cfg := &config.Config{
		InputPath:          filepath.Join(dir, "raw.csv"),
		OutputDir:          filepath.Join(dir, "output"),
		CleanedPath:        out("accidents_clean.csv"),
		MetadataPath:       out("data_metadata.txt"),
		EDAReportPath:      out("eda_report.md"),
		FeaturesPath:       out("accidents_features.csv"),
		ModelPath:          out("model.json"),
		EvaluationPath:     out("evaluation.json"),
		ModelingReportPath: out("modeling_report.md"),
		ScoresPath:         out("scores.csv"),
		MetricsPath:        out("metrics.prom"),
		TestFraction:       0.30,
		RandomSeed:         42,
		MaxIter:            1000,
		Regularization:     1.0,
		SMOTENeighbors:     5,
		TopNLocalities:     10,
		MaxRetries:         1,
	}
	require.NoError(t, os.WriteFile(cfg.InputPath, []byte(extract), 0644))
	return NewRunner(cfg, utils.NewNopLogger(), utils.NewMetrics()), cfg
}

func TestRunEndToEnd(t *testing.T) {
	r, cfg := newTestRunner(t)
	ctx := context.Background()

	report, err := r.Run(ctx)
	require.NoError(t, err)

	cleaned, err := storage.LoadCleaned(cfg.CleanedPath)
	require.NoError(t, err)
	require.Len(t, cleaned.Incidents, 10)
	counts := cleaned.TargetCounts()
	assert.Equal(t, 8, counts[models.TargetLow])
	assert.Equal(t, 2, counts[models.TargetHigh])

	// 8 low rows send round(2.4)=2 to test, 2 high rows send round(0.6)=1
	assert.Equal(t, 3, report.TestSize)
	assert.Equal(t, report.TestSize, report.ConfusionTotal())
	assert.Equal(t, 7, report.TrainSize)
	assert.Equal(t, 12, report.ResampledSize)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.AUCDefined)
	assert.NotEmpty(t, report.Warnings, "a single minority training row is reported")

	for _, path := range []string{cfg.MetadataPath, cfg.EDAReportPath, cfg.FeaturesPath,
		storage.VocabularyPath(cfg.FeaturesPath), cfg.ModelPath, cfg.EvaluationPath, cfg.ModelingReportPath} {
		_, err := os.Stat(path)
		assert.NoError(t, err, filepath.Base(path))
	}

	stored, err := storage.LoadEvaluation(cfg.EvaluationPath)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, stored.RunID)
	assert.Equal(t, report.Confusion, stored.Confusion)
}

type memoryRecorder struct {
	runs []*models.EvaluationReport
	err  error
}

func (m *memoryRecorder) RecordRun(_ context.Context, report *models.EvaluationReport) error {
	m.runs = append(m.runs, report)
	return m.err
}

func TestTrainRecordsRun(t *testing.T) {
	r, _ := newTestRunner(t)
	rec := &memoryRecorder{}
	r.recorder = rec

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, report.RunID, rec.runs[0].RunID)
}

func TestTrainSurvivesRecorderFailure(t *testing.T) {
	r, _ := newTestRunner(t)
	r.recorder = &memoryRecorder{err: errors.New("connection reset")}

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
}

func TestExploreFeatureLayout(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx := context.Background()

	_, err := r.Prepare(ctx)
	require.NoError(t, err)
	matrix, vocab, err := r.Explore(ctx)
	require.NoError(t, err)

	want := 1
	for _, col := range vocab.Columns {
		want += len(col.Categories) - 1
	}
	assert.Len(t, matrix.Features, want)
	assert.Equal(t, 10, matrix.Rows())
	assert.Equal(t, [2]int{8, 2}, matrix.ClassCounts())
}

func TestScoreCleanedDataset(t *testing.T) {
	r, cfg := newTestRunner(t)
	ctx := context.Background()
	_, err := r.Run(ctx)
	require.NoError(t, err)

	n, err := r.Score(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	b, err := os.ReadFile(cfg.ScoresPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(b)), "\n"), 11)
}

func TestScoreUnlabelledOnlyCategory(t *testing.T) {
	// Sumapaz (20) appears only on a row with an out-of-domain severity code
	extract := rawExtract + "2015-01-12,10:00:00,9,20,Choque,Tramo de via\n"
	r, cfg := newTestRunnerWith(t, extract)
	ctx := context.Background()

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, report.TrainSize, "the unlabelled row stays out of training")

	n, err := r.Score(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	b, err := os.ReadFile(cfg.ScoresPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(b)), "\n"), 12)
}

func TestScoreUnseenCategory(t *testing.T) {
	r, cfg := newTestRunner(t)
	ctx := context.Background()
	_, err := r.Run(ctx)
	require.NoError(t, err)

	fresh := filepath.Join(filepath.Dir(cfg.InputPath), "fresh.csv")
	content := "FECHA,HORA,GRAVEDAD,CODIGO LOCALIDAD,CLASE,DISEÑO LUGAR\n2016-02-01,10:00:00,1,8,Volcamiento,Tramo de via\n"
	require.NoError(t, os.WriteFile(fresh, []byte(content), 0644))

	_, err = r.Score(ctx, fresh)
	var mismatch *models.EncodingMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, "Volcamiento", mismatch.Value)
}

func TestDashboard(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx := context.Background()
	report, err := r.Run(ctx)
	require.NoError(t, err)

	view, err := r.Dashboard(ctx, services.DashboardFilter{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, view.Total)
	require.NotNil(t, view.Metrics)
	assert.Equal(t, report.RunID, view.Metrics.RunID)
	assert.Equal(t, "Kennedy", view.TopLocalities[0].Label)

	view, err = r.Dashboard(ctx, services.DashboardFilter{Severities: []models.Target{models.TargetHigh}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Total)

	view, err = r.Dashboard(ctx, services.DashboardFilter{Localities: []string{}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Total)

	options, err := r.LocalityOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ciudad Bolívar", "Kennedy", "Suba", "Usaquén"}, options)
}

func TestDashboardWithoutModel(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx := context.Background()
	_, err := r.Prepare(ctx)
	require.NoError(t, err)

	view, err := r.Dashboard(ctx, services.DashboardFilter{}, 3)
	require.NoError(t, err)
	assert.Nil(t, view.Metrics)
	assert.Len(t, view.TopLocalities, 3)
}

func TestPrepareErrors(t *testing.T) {
	r, cfg := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(cfg.InputPath, []byte("FECHA,HORA,CODIGO LOCALIDAD\n2015-01-01,10:00,1\n"), 0644))
	_, err := r.Prepare(ctx)
	var serr *models.SchemaError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, models.ColumnSeverity, serr.Column)

	cfg.InputPath = filepath.Join(t.TempDir(), "missing.xlsx")
	_, err = r.Prepare(ctx)
	var rerr *models.InputReadError
	assert.True(t, errors.As(err, &rerr), "got %v", err)
}

func TestFlushMetrics(t *testing.T) {
	r, cfg := newTestRunner(t)
	_, err := r.Prepare(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.FlushMetrics())
	b, err := os.ReadFile(cfg.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "accidents_rows_read_total 10")
}
