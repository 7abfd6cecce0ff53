package services

import (
	"fmt"
	"sort"
	"strings"

	"accident-analytics/models"
	"accident-analytics/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(incidents []*models.Incident) *models.InsightReport {
	report := &models.InsightReport{
		TargetCounts: make(map[models.Target]int),
	}

	if len(incidents) == 0 {
		return report
	}

	report.TotalIncidents = len(incidents)
	byLocality := make(map[string]int)

	for _, inc := range incidents {
		report.TargetCounts[inc.Target]++
		if !inc.Target.Valid() {
			report.TargetDefects++
		}
		byLocality[inc.LocalityName]++

		if inc.Temporal == nil {
			report.MissingTimestamp++
			continue
		}
		report.ByWeekday[inc.Temporal.DayOfWeek]++
		report.ByHour[inc.Temporal.Hour]++
		if inc.Target.Valid() {
			report.SeverityByWeekday[inc.Temporal.DayOfWeek][inc.Target]++
		}
	}

	// Percentages over rows with a defined target
	labelled := report.TargetCounts[models.TargetLow] + report.TargetCounts[models.TargetHigh]
	if labelled > 0 {
		report.HighSeverityPct = round2(100 * float64(report.TargetCounts[models.TargetHigh]) / float64(labelled))
		report.LowSeverityPct = round2(100 * float64(report.TargetCounts[models.TargetLow]) / float64(labelled))
	}

	report.ByLocality = rankCounts(byLocality)

	s.logger.Info("[insights] %d incidents | high severity %.2f%% | low severity %.2f%%",
		report.TotalIncidents, report.HighSeverityPct, report.LowSeverityPct)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 ROAD ACCIDENT INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total incidents        : \033[1m%d\033[0m\n", r.TotalIncidents)
	fmt.Printf("  Missing timestamp      : \033[1m%d\033[0m\n", r.MissingTimestamp)
	fmt.Printf("  Undefined severity     : \033[1m%d\033[0m\n", r.TargetDefects)
	fmt.Println()

	// Target distribution
	fmt.Printf("\033[1;33m  Severity Distribution\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  High severity (1) : \033[1;31m%6.2f%%\033[0m  (%d)\n", r.HighSeverityPct, r.TargetCounts[models.TargetHigh])
	fmt.Printf("  Low severity  (0) : \033[1;32m%6.2f%%\033[0m  (%d)\n", r.LowSeverityPct, r.TargetCounts[models.TargetLow])
	fmt.Println()

	// By weekday
	fmt.Printf("\033[1;33m  Incidents by Day of Week\033[0m\n")
	fmt.Printf("  %s\n", thin)
	maxDay := 0
	for _, n := range r.ByWeekday {
		if n > maxDay {
			maxDay = n
		}
	}
	for _, d := range models.Weekdays() {
		fmt.Printf("  %-10s %s (%d)\n", d, bar(r.ByWeekday[d], maxDay, 30), r.ByWeekday[d])
	}
	fmt.Println()

	// By locality
	fmt.Printf("\033[1;33m  Incidents by Locality\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByLocality) == 0 {
		fmt.Printf("  No locality data\n")
	} else {
		top := r.ByLocality[0].Count
		for _, lc := range r.ByLocality {
			fmt.Printf("  %-20s %s (%d)\n", truncate(lc.Label, 20), bar(lc.Count, top, 30), lc.Count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// rankCounts sorts labels by count descending, then by label.
func rankCounts(counts map[string]int) []models.CountEntry {
	out := make([]models.CountEntry, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.CountEntry{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func bar(n, max, width int) string {
	if max <= 0 || n <= 0 {
		return ""
	}
	w := n * width / max
	if w == 0 {
		w = 1
	}
	return strings.Repeat("█", w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
