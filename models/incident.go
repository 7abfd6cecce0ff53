package models

import "time"

// Table holds a tabular extract exactly as read from disk, or after header
// normalization. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Clone returns a deep copy so a stage can transform a table it does not own.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Weekday is the day of the week with Monday as ordinal 0.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return ""
	}
	return weekdayNames[d]
}

// Weekdays lists the days in their fixed display order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// ParseWeekday maps a label produced by Weekday.String back to its ordinal.
func ParseWeekday(s string) (Weekday, bool) {
	for i, name := range weekdayNames {
		if name == s {
			return Weekday(i), true
		}
	}
	return 0, false
}

// WeekdayOf converts a time.Weekday (Sunday=0) to the Monday-first ordinal.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// Temporal is the set of fields derived from a parsed accident timestamp.
// A nil *Temporal means the timestamp could not be parsed, so all derived
// fields are absent together.
type Temporal struct {
	Timestamp time.Time
	DayOfWeek Weekday
	Month     int
	Year      int
	Hour      int
}

// NewTemporal derives the calendar fields from ts.
func NewTemporal(ts time.Time) *Temporal {
	return &Temporal{
		Timestamp: ts,
		DayOfWeek: WeekdayOf(ts.Weekday()),
		Month:     int(ts.Month()),
		Year:      ts.Year(),
		Hour:      ts.Hour(),
	}
}

// Target is the binary severity class used for modeling.
type Target int

const (
	TargetUndefined Target = -1
	// TargetLow is property damage only.
	TargetLow Target = 0
	// TargetHigh is an accident with injured or killed people.
	TargetHigh Target = 1
)

// Valid reports whether the target is one of the two modeling classes.
func (t Target) Valid() bool {
	return t == TargetLow || t == TargetHigh
}

// Incident is one cleaned and enriched accident record.
type Incident struct {
	// Source holds the canonical cell values, aligned with CleanDataset.Columns.
	Source []string

	Date         string
	Time         string
	SeverityCode string
	LocalityCode int
	LocalityName string
	VehicleClass string
	RoadDesign   string

	Temporal *Temporal
	Target   Target
}

// CleanDataset is the output of the cleaning stage.
type CleanDataset struct {
	Columns   []string
	Incidents []*Incident
	Stats     CleaningStats
}

// CleaningStats surfaces row-scoped defects that did not abort the batch.
type CleaningStats struct {
	Rows                int
	TemporalParseErrors int
	TargetDefects       int
	UnknownLocalities   int
	Examples            []error
}

// TargetCounts returns how many incidents fall into each target value.
func (d *CleanDataset) TargetCounts() map[Target]int {
	counts := make(map[Target]int, 3)
	for _, inc := range d.Incidents {
		counts[inc.Target]++
	}
	return counts
}
