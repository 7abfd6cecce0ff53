package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"accident-analytics/models"
	"accident-analytics/utils"
)

// PostgresWriter persists cleaned incidents and model run summaries to
// PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter. The initial ping is retried
// with back-off.
func NewPostgresWriter(ctx context.Context, dsn string, retry utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	err = retry.Do(ctx, "postgres ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS incidents (
			id              SERIAL PRIMARY KEY,
			occurred_at     TIMESTAMPTZ,
			day_of_week     SMALLINT,
			hour_of_day     SMALLINT,
			locality_code   SMALLINT    NOT NULL DEFAULT 0,
			locality_name   TEXT        NOT NULL DEFAULT '',
			vehicle_class   TEXT        NOT NULL DEFAULT '',
			road_design     TEXT        NOT NULL DEFAULT '',
			severity_code   TEXT        NOT NULL DEFAULT '',
			severity_target SMALLINT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_locality ON incidents(locality_name);
		CREATE INDEX IF NOT EXISTS idx_incidents_target   ON incidents(severity_target);

		CREATE TABLE IF NOT EXISTS model_runs (
			run_id             UUID PRIMARY KEY,
			created_at         TIMESTAMPTZ NOT NULL,
			vocabulary_version TEXT        NOT NULL,
			auc                NUMERIC(6,4),
			accuracy           NUMERIC(6,4) NOT NULL,
			recall_high        NUMERIC(6,4) NOT NULL,
			precision_high     NUMERIC(6,4) NOT NULL,
			test_size          INTEGER      NOT NULL,
			converged          BOOLEAN      NOT NULL,
			report             JSONB        NOT NULL
		);
	`)
	return err
}

// Write replaces the stored incidents with the cleaned dataset in a single
// transaction. On any failure the previous contents are left untouched.
func (pw *PostgresWriter) Write(ctx context.Context, ds *models.CleanDataset) error {
	if len(ds.Incidents) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM incidents"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 500
	for i := 0; i < len(ds.Incidents); i += batchSize {
		end := i + batchSize
		if end > len(ds.Incidents) {
			end = len(ds.Incidents)
		}
		if err := insertBatch(ctx, tx, ds.Incidents[i:end]); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

const incidentColumns = 10

func insertBatch(ctx context.Context, tx *sql.Tx, batch []*models.Incident) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*incidentColumns)

	for idx, inc := range batch {
		placeholders := make([]string, incidentColumns)
		for k := range placeholders {
			placeholders[k] = fmt.Sprintf("$%d", idx*incidentColumns+k+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var occurred sql.NullTime
		var day, hour, target sql.NullInt32
		if t := inc.Temporal; t != nil {
			occurred = sql.NullTime{Time: t.Timestamp, Valid: true}
			day = sql.NullInt32{Int32: int32(t.DayOfWeek), Valid: true}
			hour = sql.NullInt32{Int32: int32(t.Hour), Valid: true}
		}
		if inc.Target.Valid() {
			target = sql.NullInt32{Int32: int32(inc.Target), Valid: true}
		}
		valueArgs = append(valueArgs,
			occurred, day, hour, inc.LocalityCode, inc.LocalityName,
			inc.VehicleClass, inc.RoadDesign, inc.SeverityCode, target, time.Now().UTC())
	}

	query := fmt.Sprintf(`
		INSERT INTO incidents (occurred_at, day_of_week, hour_of_day, locality_code, locality_name,
			vehicle_class, road_design, severity_code, severity_target, created_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// RecordRun stores the scalar metrics of a run plus the full report.
func (pw *PostgresWriter) RecordRun(ctx context.Context, r *models.EvaluationReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("postgres: encode report: %w", err)
	}
	var auc sql.NullFloat64
	if r.AUCDefined {
		auc = sql.NullFloat64{Float64: r.AUC, Valid: true}
	}

	_, err = pw.db.ExecContext(ctx, `
		INSERT INTO model_runs (run_id, created_at, vocabulary_version, auc, accuracy,
			recall_high, precision_high, test_size, converged, report)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (run_id) DO NOTHING
	`, r.RunID, r.CreatedAt, r.VocabularyVersion, auc, r.Accuracy,
		r.Classes[models.TargetHigh].Recall, r.Classes[models.TargetHigh].Precision,
		r.TestSize, r.Converged, body)
	if err != nil {
		return fmt.Errorf("postgres: record run: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchIncidents retrieves all stored incidents. Used by the dashboard.
func (pw *PostgresWriter) FetchIncidents(ctx context.Context) ([]*models.Incident, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT occurred_at, locality_code, locality_name, vehicle_class, road_design,
			severity_code, severity_target
		FROM incidents
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*models.Incident
	for rows.Next() {
		inc := &models.Incident{Target: models.TargetUndefined}
		var occurred sql.NullTime
		var target sql.NullInt32
		if err := rows.Scan(
			&occurred, &inc.LocalityCode, &inc.LocalityName, &inc.VehicleClass,
			&inc.RoadDesign, &inc.SeverityCode, &target,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if occurred.Valid {
			ts := occurred.Time.UTC()
			inc.Temporal = models.NewTemporal(ts)
		}
		if target.Valid {
			inc.Target = models.Target(target.Int32)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}
