package services

import (
	"testing"
	"time"

	"accident-analytics/models"
)

func incidentAt(ts string, locality int, target models.Target) *models.Incident {
	inc := &models.Incident{
		LocalityCode: locality,
		LocalityName: models.LocalityName(locality),
		Target:       target,
	}
	if ts != "" {
		t, err := time.Parse("2006-01-02 15:04", ts)
		if err != nil {
			panic(err)
		}
		inc.Temporal = models.NewTemporal(t)
	}
	return inc
}

func sampleIncidents() []*models.Incident {
	return []*models.Incident{
		incidentAt("2015-01-05 08:00", 8, models.TargetLow),  // Monday
		incidentAt("2015-01-05 08:30", 8, models.TargetHigh), // Monday
		incidentAt("2015-01-06 17:00", 11, models.TargetLow), // Tuesday
		incidentAt("2015-01-11 23:00", 1, models.TargetLow),  // Sunday
		incidentAt("", 8, models.TargetLow),
		incidentAt("2015-01-06 17:10", 11, models.TargetUndefined),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleIncidents())

	if r.TotalIncidents != 6 {
		t.Errorf("TotalIncidents: got %d, want 6", r.TotalIncidents)
	}
	if r.MissingTimestamp != 1 {
		t.Errorf("MissingTimestamp: got %d, want 1", r.MissingTimestamp)
	}
	if r.TargetDefects != 1 {
		t.Errorf("TargetDefects: got %d, want 1", r.TargetDefects)
	}
	if r.ByWeekday[models.Monday] != 2 || r.ByWeekday[models.Tuesday] != 2 || r.ByWeekday[models.Sunday] != 1 {
		t.Errorf("ByWeekday: got %v", r.ByWeekday)
	}
	if r.ByHour[8] != 2 || r.ByHour[17] != 2 || r.ByHour[23] != 1 {
		t.Errorf("ByHour: got %v", r.ByHour)
	}
	if r.SeverityByWeekday[models.Monday] != [2]int{1, 1} {
		t.Errorf("SeverityByWeekday[Monday]: got %v", r.SeverityByWeekday[models.Monday])
	}
}

func TestInsightPercentages(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleIncidents())

	// 5 labelled rows: 4 low, 1 high
	if r.HighSeverityPct != 20 {
		t.Errorf("HighSeverityPct: got %.2f, want 20", r.HighSeverityPct)
	}
	if r.LowSeverityPct != 80 {
		t.Errorf("LowSeverityPct: got %.2f, want 80", r.LowSeverityPct)
	}
}

func TestInsightLocalityRanking(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleIncidents())

	want := []models.CountEntry{
		{Label: "Kennedy", Count: 3},
		{Label: "Suba", Count: 2},
		{Label: "Usaquén", Count: 1},
	}
	if len(r.ByLocality) != len(want) {
		t.Fatalf("ByLocality: got %v", r.ByLocality)
	}
	for i, w := range want {
		if r.ByLocality[i] != w {
			t.Errorf("ByLocality[%d]: got %+v, want %+v", i, r.ByLocality[i], w)
		}
	}
}

func TestInsightEmpty(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalIncidents != 0 || r.HighSeverityPct != 0 {
		t.Errorf("expected zero report, got %+v", r)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Rafael Uribe Uribe", 10); got != "Rafael ..." {
		t.Errorf("truncate: got %q", got)
	}
	if got := truncate("Usaquén", 7); got != "Usaquén" {
		t.Errorf("truncate kept rune boundary: got %q", got)
	}
}
