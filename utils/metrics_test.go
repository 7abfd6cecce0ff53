package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RowsRead.Add(10)
	m.TemporalParseErrors.Inc()
	m.ModelAUC.Set(0.75)

	path := filepath.Join(t.TempDir(), "metrics", "pipeline.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"accidents_rows_read_total 10",
		"accidents_temporal_parse_errors_total 1",
		"accidents_model_auc 0.75",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestMetricsEmptyPathIsNoop(t *testing.T) {
	if err := NewMetrics().WriteTextfile(""); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestLoggerInvalidLevel(t *testing.T) {
	l, err := NewLoggerWith("loud", "console")
	if err == nil {
		t.Error("expected error for invalid level")
	}
	if l == nil {
		t.Fatal("logger should still be usable")
	}
	l.Info("still logs at %s", "info")
}
