package models

// Canonical column names after header normalization.
const (
	ColumnDate         = "date"
	ColumnTime         = "time"
	ColumnSeverity     = "severity"
	ColumnLocality     = "locality_code"
	ColumnVehicleClass = "vehicle_class"
	ColumnRoadDesign   = "road_design"
)

// Derived columns appended to the cleaned dataset.
const (
	ColumnDatetime     = "accident_datetime"
	ColumnAccidentDate = "accident_date"
	ColumnAccidentTime = "accident_time"
	ColumnDayOfWeek    = "day_of_week"
	ColumnMonth        = "month"
	ColumnYear         = "year"
	ColumnHour         = "hour_of_day"
	ColumnLocalityName = "locality_name"
	ColumnTarget       = "severity_target"
)

// DerivedColumns is the fixed order in which derived fields are persisted.
var DerivedColumns = []string{
	ColumnDatetime,
	ColumnAccidentDate,
	ColumnAccidentTime,
	ColumnDayOfWeek,
	ColumnMonth,
	ColumnYear,
	ColumnHour,
	ColumnLocalityName,
	ColumnTarget,
}

// ColumnAliases maps a canonical column to the normalized header spellings
// accepted for it. The canonical name itself is always accepted.
var ColumnAliases = map[string][]string{
	ColumnDate:         {"fecha", "fecha_ocurrencia"},
	ColumnTime:         {"hora", "hora_ocurrencia"},
	ColumnSeverity:     {"gravedad", "severity_code"},
	ColumnLocality:     {"codigo_localidad", "cod_localidad", "localidad", "locality"},
	ColumnVehicleClass: {"clase", "clase_vehiculo", "class"},
	ColumnRoadDesign:   {"diseno_lugar", "diseno"},
}

// RequiredColumns must be present after normalization.
var RequiredColumns = []string{ColumnDate, ColumnTime, ColumnSeverity, ColumnLocality}

// Schema records where each canonical role lives in a normalized table.
// Optional roles that are absent hold -1.
type Schema struct {
	Date         int
	Time         int
	Severity     int
	Locality     int
	VehicleClass int
	RoadDesign   int
}

// Cell returns row[idx], or "" when the role is absent.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
