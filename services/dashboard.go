package services

import (
	"fmt"
	"sort"
	"strings"

	"accident-analytics/models"
	"accident-analytics/utils"
)

// DashboardFilter selects incidents by locality name and severity class.
// A nil slice means "no restriction"; a non-nil empty slice matches nothing.
type DashboardFilter struct {
	Localities []string
	Severities []models.Target
}

// ModelMetrics are the scalar metrics shown next to the charts.
type ModelMetrics struct {
	RunID         string
	AUC           float64
	AUCDefined    bool
	Accuracy      float64
	RecallHigh    float64
	PrecisionHigh float64
	F1High        float64
}

// DashboardView is one fully recomputed dashboard state.
type DashboardView struct {
	Total          int
	Heatmap        [7][24]int
	SeverityCounts map[models.Target]int
	TopLocalities  []models.CountEntry
	Metrics        *ModelMetrics
}

type DashboardService struct {
	logger *utils.Logger
}

func NewDashboardService(logger *utils.Logger) *DashboardService {
	return &DashboardService{logger: logger}
}

// View recomputes every aggregation from scratch for the given filter.
// report may be nil when no model has been trained yet.
func (s *DashboardService) View(incidents []*models.Incident, f DashboardFilter, topN int, report *models.EvaluationReport) *DashboardView {
	v := &DashboardView{SeverityCounts: make(map[models.Target]int, 2)}

	localityOK := setOf(f.Localities)
	severityOK := make(map[models.Target]bool, len(f.Severities))
	for _, t := range f.Severities {
		severityOK[t] = true
	}

	byLocality := make(map[string]int)
	for _, inc := range incidents {
		if f.Localities != nil && !localityOK[inc.LocalityName] {
			continue
		}
		if f.Severities != nil && !severityOK[inc.Target] {
			continue
		}

		v.Total++
		if inc.Target.Valid() {
			v.SeverityCounts[inc.Target]++
		}
		byLocality[inc.LocalityName]++
		if inc.Temporal != nil {
			v.Heatmap[inc.Temporal.DayOfWeek][inc.Temporal.Hour]++
		}
	}

	v.TopLocalities = rankCounts(byLocality)
	if topN > 0 && len(v.TopLocalities) > topN {
		v.TopLocalities = v.TopLocalities[:topN]
	}

	if report != nil {
		v.Metrics = &ModelMetrics{
			RunID:         report.RunID,
			AUC:           report.AUC,
			AUCDefined:    report.AUCDefined,
			Accuracy:      report.Accuracy,
			RecallHigh:    report.Classes[models.TargetHigh].Recall,
			PrecisionHigh: report.Classes[models.TargetHigh].Precision,
			F1High:        report.Classes[models.TargetHigh].F1,
		}
	}

	s.logger.Debug("[dashboard] filter localities=%v severities=%v → %d incidents", f.Localities, f.Severities, v.Total)
	return v
}

// LocalityOptions lists the distinct locality names present, sorted.
func (s *DashboardService) LocalityOptions(incidents []*models.Incident) []string {
	seen := make(map[string]struct{})
	for _, inc := range incidents {
		seen[inc.LocalityName] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *DashboardService) Print(v *DashboardView) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🚦 ACCIDENT SEVERITY DASHBOARD\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  1. Incidents by Hour and Day\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  %-10s", "")
	for h := 0; h < 24; h++ {
		fmt.Printf("%4d", h)
	}
	fmt.Println()
	for _, d := range models.Weekdays() {
		fmt.Printf("  %-10s", d)
		for h := 0; h < 24; h++ {
			fmt.Printf("%4d", v.Heatmap[d][h])
		}
		fmt.Println()
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  2. Severity Distribution\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  High severity (injured/killed) : \033[1;31m%d\033[0m\n", v.SeverityCounts[models.TargetHigh])
	fmt.Printf("  Low severity (damage only)     : \033[1;32m%d\033[0m\n", v.SeverityCounts[models.TargetLow])
	fmt.Println()

	fmt.Printf("\033[1;33m  3. Top Localities\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(v.TopLocalities) == 0 {
		fmt.Printf("  No incidents match the filter\n")
	}
	for i, lc := range v.TopLocalities {
		fmt.Printf("  \033[1m%2d.\033[0m %-22s %d\n", i+1, truncate(lc.Label, 22), lc.Count)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  4. Model Metrics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if v.Metrics == nil {
		fmt.Printf("  No trained model found\n")
	} else {
		if v.Metrics.AUCDefined {
			fmt.Printf("  ROC AUC                 : \033[1;34m%.4f\033[0m\n", v.Metrics.AUC)
		} else {
			fmt.Printf("  ROC AUC                 : undefined (single-class test split)\n")
		}
		fmt.Printf("  Recall (high severity)  : \033[1;32m%.2f\033[0m\n", v.Metrics.RecallHigh)
		fmt.Printf("  Precision (high)        : %.2f\n", v.Metrics.PrecisionHigh)
		fmt.Printf("  Accuracy                : %.2f\n", v.Metrics.Accuracy)
		fmt.Printf("  Run                     : %s\n", v.Metrics.RunID)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func setOf(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
