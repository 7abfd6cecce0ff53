package storage

import (
	"context"

	"accident-analytics/models"
)

// IncidentWriter is the interface any cleaned-dataset sink must satisfy.
type IncidentWriter interface {
	Write(ctx context.Context, ds *models.CleanDataset) error
	Close() error
}

// RunRecorder persists the summary of a training run.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *models.EvaluationReport) error
}
