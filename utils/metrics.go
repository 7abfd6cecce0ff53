package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects per-run pipeline counters. They are exported to a
// node_exporter textfile rather than served over HTTP.
type Metrics struct {
	registry *prometheus.Registry

	RowsRead            prometheus.Counter
	RowsCleaned         prometheus.Counter
	TemporalParseErrors prometheus.Counter
	TargetDefects       prometheus.Counter
	UnknownLocalities   prometheus.Counter
	FeatureColumns      prometheus.Gauge
	TrainingDuration    prometheus.Histogram
	ConvergenceWarnings prometheus.Counter
	ModelAUC            prometheus.Gauge
	RowsScored          prometheus.Counter
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsRead: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_rows_read_total",
			Help: "Total number of raw rows read from the input extract.",
		}),
		RowsCleaned: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_rows_cleaned_total",
			Help: "Total number of rows written to the cleaned dataset.",
		}),
		TemporalParseErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_temporal_parse_errors_total",
			Help: "Rows kept with a null timestamp because date or time did not parse.",
		}),
		TargetDefects: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_target_defects_total",
			Help: "Rows whose severity code is outside {1,2,3}.",
		}),
		UnknownLocalities: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_unknown_localities_total",
			Help: "Rows whose locality code is outside the lookup table.",
		}),
		FeatureColumns: f.NewGauge(prometheus.GaugeOpts{
			Name: "accidents_feature_columns",
			Help: "Number of encoded predictor columns in the feature matrix.",
		}),
		TrainingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "accidents_training_duration_seconds",
			Help:    "Duration of split, oversampling and model fit.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}),
		ConvergenceWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_convergence_warnings_total",
			Help: "Training runs whose optimizer stopped before converging.",
		}),
		ModelAUC: f.NewGauge(prometheus.GaugeOpts{
			Name: "accidents_model_auc",
			Help: "ROC AUC of the latest trained model on its held-out split.",
		}),
		RowsScored: f.NewCounter(prometheus.CounterOpts{
			Name: "accidents_rows_scored_total",
			Help: "Rows scored with a persisted model.",
		}),
	}
}

// WriteTextfile dumps the current values in the Prometheus text format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
