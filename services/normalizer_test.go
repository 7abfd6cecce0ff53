package services

import (
	"errors"
	"regexp"
	"testing"

	"accident-analytics/models"
)

var canonicalName = regexp.MustCompile(`^[a-z0-9_]+$`)

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"FECHA", "fecha"},
		{"Código Localidad", "codigo_localidad"},
		{"DISEÑO LUGAR", "diseno_lugar"},
		{"Clase (Vehículo)", "clase_vehiculo"},
		{"Hora-Ocurrencia", "hora_ocurrencia"},
		{"km/h", "km_h"},
		{"Nro. Víctimas", "nro_victimas"},
		{"  Gravedad  ", "gravedad"},
		{"Año", "ano"},
		{"Peso €", "peso"},
	}

	for _, tt := range tests {
		got := NormalizeColumnName(tt.raw)
		if got != tt.want {
			t.Errorf("NormalizeColumnName(%q) = %q; want %q", tt.raw, got, tt.want)
		}
		if !canonicalName.MatchString(got) {
			t.Errorf("NormalizeColumnName(%q) = %q is not lowercase ASCII", tt.raw, got)
		}
	}
}

func rawBogotaTable() *models.Table {
	return &models.Table{
		Columns: []string{"FECHA", "HORA", "GRAVEDAD", "CÓDIGO LOCALIDAD", "CLASE", "DISEÑO LUGAR", "Observación"},
		Rows: [][]string{
			{"2015-01-01", "10:30:00", "1", "8", "Choque", "Tramo de via", " x "},
			{"2015-01-02", "23:05:00", "2", "99", "Atropello", "Interseccion", ""},
			{"2015-01-03", "07:00:00", "3", "Suba", "Choque", "Tramo de via", "y"},
			{"2015-01-04", "08:00:00", "1", "", "Choque", "Tramo de via"},
		},
	}
}

func TestNormalizerCanonicalSchema(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawBogotaTable()

	table, schema, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantCols := []string{"date", "time", "severity", "locality_code", "vehicle_class", "road_design", "observacion"}
	for i, c := range wantCols {
		if table.Columns[i] != c {
			t.Errorf("column %d: got %q, want %q", i, table.Columns[i], c)
		}
	}
	if len(table.Rows) != len(raw.Rows) {
		t.Errorf("row count: got %d, want %d", len(table.Rows), len(raw.Rows))
	}
	if schema.Date != 0 || schema.Locality != 3 || schema.RoadDesign != 5 {
		t.Errorf("unexpected schema: %+v", schema)
	}
}

func TestNormalizerLocalityCodes(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	table, schema, err := n.Normalize(rawBogotaTable())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []string{"8", "0", "11", "0"}
	for i, w := range want {
		if got := table.Rows[i][schema.Locality]; got != w {
			t.Errorf("row %d locality: got %q, want %q", i, got, w)
		}
	}
	// short rows are padded, cells trimmed
	if len(table.Rows[3]) != len(table.Columns) {
		t.Errorf("row 3 width: got %d, want %d", len(table.Rows[3]), len(table.Columns))
	}
	if table.Rows[0][6] != "x" {
		t.Errorf("cell not trimmed: %q", table.Rows[0][6])
	}
}

func TestNormalizerDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawBogotaTable()

	if _, _, err := n.Normalize(raw); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Columns[0] != "FECHA" || raw.Rows[1][3] != "99" {
		t.Error("input table was modified")
	}
}

func TestNormalizerMissingColumn(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := &models.Table{
		Columns: []string{"Fecha", "Hora", "Código Localidad"},
		Rows:    [][]string{{"2015-01-01", "10:00", "1"}},
	}

	_, _, err := n.Normalize(raw)
	var serr *models.SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if serr.Column != models.ColumnSeverity {
		t.Errorf("missing column: got %q, want %q", serr.Column, models.ColumnSeverity)
	}
}

func TestNormalizerDuplicateHeaders(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := &models.Table{
		Columns: []string{"Fecha", "Hora", "Gravedad", "Localidad", "Notas", "NOTAS"},
		Rows:    [][]string{{"2015-01-01", "10:00", "1", "1", "a", "b"}},
	}

	table, _, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if table.Columns[4] != "notas" || table.Columns[5] != "notas_2" {
		t.Errorf("duplicate handling: got %v", table.Columns[4:])
	}
}

func TestCanonicalLocality(t *testing.T) {
	tests := []struct {
		raw       string
		wantCode  int
		wantKnown bool
	}{
		{"1", 1, true},
		{"07", 7, true},
		{"20.0", 20, true},
		{"21", models.LocalityUnknown, false},
		{"0", models.LocalityUnknown, false},
		{"Kennedy", 8, true},
		{"CIUDAD BOLIVAR", 19, true},
		{"2.5", models.LocalityUnknown, false},
		{"", models.LocalityUnknown, false},
	}

	for _, tt := range tests {
		code, known := CanonicalLocality(tt.raw)
		if code != tt.wantCode || known != tt.wantKnown {
			t.Errorf("CanonicalLocality(%q) = (%d, %t); want (%d, %t)", tt.raw, code, known, tt.wantCode, tt.wantKnown)
		}
	}
}
