package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"accident-analytics/ml"
	"accident-analytics/models"
)

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("report: write %q: %w", path, err)
	}
	return nil
}

// WriteMetadata records the raw extract's shape before cleaning and the
// defects found while cleaning it.
func WriteMetadata(path string, p *models.DatasetProfile, stats *models.CleaningStats) error {
	var b strings.Builder

	fmt.Fprintf(&b, "--- General information ---\n")
	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n\n", p.Rows, len(p.Columns))
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tColumn\tNon-Null\tType")
	for i, c := range p.Columns {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i, c.Name, c.NonNull, c.Type)
	}
	tw.Flush()

	fmt.Fprintf(&b, "\n--- First %d rows ---\n", len(p.Head))
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(p.Header, "\t"))
	for _, row := range p.Head {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()

	fmt.Fprintf(&b, "\n--- Null counts ---\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, c := range p.Columns {
		fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Nulls)
	}
	tw.Flush()

	fmt.Fprintf(&b, "\n--- Unique counts ---\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, c := range p.Columns {
		fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Unique)
	}
	tw.Flush()

	if stats != nil {
		fmt.Fprintf(&b, "\n--- Cleaning defects ---\n")
		fmt.Fprintf(&b, "Unparseable timestamps: %d\n", stats.TemporalParseErrors)
		fmt.Fprintf(&b, "Severity codes outside {1,2,3}: %d\n", stats.TargetDefects)
		fmt.Fprintf(&b, "Unknown localities: %d\n", stats.UnknownLocalities)
		for _, e := range stats.Examples {
			fmt.Fprintf(&b, "  - %v\n", e)
		}
	}

	return writeText(path, b.String())
}

// WriteEDAReport renders the exploratory statistics as markdown.
func WriteEDAReport(path string, r *models.InsightReport, featureRows, featureCols int) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Exploratory Data Analysis\n\n")
	fmt.Fprintf(&b, "## 1. Overview\n\n")
	fmt.Fprintf(&b, "- Incidents: %d\n", r.TotalIncidents)
	fmt.Fprintf(&b, "- Missing timestamp: %d\n", r.MissingTimestamp)
	fmt.Fprintf(&b, "- Undefined severity: %d\n\n", r.TargetDefects)

	fmt.Fprintf(&b, "## 2. Severity distribution\n\n")
	fmt.Fprintf(&b, "| Class | Count | Share |\n| :--- | ---: | ---: |\n")
	fmt.Fprintf(&b, "| Low severity (0) | %d | %.2f%% |\n", r.TargetCounts[models.TargetLow], r.LowSeverityPct)
	fmt.Fprintf(&b, "| High severity (1) | %d | %.2f%% |\n\n", r.TargetCounts[models.TargetHigh], r.HighSeverityPct)

	fmt.Fprintf(&b, "## 3. Incidents by day of week\n\n")
	fmt.Fprintf(&b, "| Day | Incidents | Low (0) | High (1) |\n| :--- | ---: | ---: | ---: |\n")
	for _, d := range models.Weekdays() {
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", d, r.ByWeekday[d], r.SeverityByWeekday[d][0], r.SeverityByWeekday[d][1])
	}

	fmt.Fprintf(&b, "\n## 4. Incidents by hour of day\n\n")
	fmt.Fprintf(&b, "| Hour | Incidents |\n| ---: | ---: |\n")
	for h, n := range r.ByHour {
		fmt.Fprintf(&b, "| %02d | %d |\n", h, n)
	}

	fmt.Fprintf(&b, "\n## 5. Incidents by locality\n\n")
	fmt.Fprintf(&b, "| Locality | Incidents |\n| :--- | ---: |\n")
	for _, lc := range r.ByLocality {
		fmt.Fprintf(&b, "| %s | %d |\n", lc.Label, lc.Count)
	}

	fmt.Fprintf(&b, "\n## 6. Modeling preparation\n\n")
	fmt.Fprintf(&b, "The one-hot encoded feature matrix has %d rows and %d columns (including the target).\n", featureRows, featureCols+1)

	return writeText(path, b.String())
}

// WriteModelingReport renders the evaluation of one training run.
func WriteModelingReport(path string, r *models.EvaluationReport, m *ml.Model, testFraction float64) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Predictive Modeling (Logistic Regression)\n\n")
	fmt.Fprintf(&b, "Run `%s`, %s.\n\n", r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&b, "## 1. Methodology\n\n")
	fmt.Fprintf(&b, "- **Model:** L2-regularised logistic regression, %d features.\n", len(m.Coef))
	fmt.Fprintf(&b, "- **Class imbalance:** SMOTE applied to the training split only (%d → %d rows).\n", r.TrainSize, r.ResampledSize)
	fmt.Fprintf(&b, "- **Test split:** %.0f%% (%d rows), stratified.\n", testFraction*100, r.TestSize)
	fmt.Fprintf(&b, "- **Vocabulary:** `%s`.\n", r.VocabularyVersion)
	fmt.Fprintf(&b, "- **Optimizer:** %d iterations, status %s.\n\n", r.Iterations, m.Status)

	fmt.Fprintf(&b, "## 2. Classification report\n\n")
	fmt.Fprintf(&b, "| Metric | Low severity (0) | High severity (1) | Weighted avg |\n| :--- | :--- | :--- | :--- |\n")
	c0, c1, w := r.Classes[0], r.Classes[1], r.WeightedAvg
	fmt.Fprintf(&b, "| Precision | %.2f | %.2f | %.2f |\n", c0.Precision, c1.Precision, w.Precision)
	fmt.Fprintf(&b, "| Recall | %.2f | %.2f | %.2f |\n", c0.Recall, c1.Recall, w.Recall)
	fmt.Fprintf(&b, "| F1-score | %.2f | %.2f | %.2f |\n", c0.F1, c1.F1, w.F1)
	fmt.Fprintf(&b, "| Support | %d | %d | %d |\n\n", c0.Support, c1.Support, w.Support)
	fmt.Fprintf(&b, "**Accuracy:** %.4f\n\n", r.Accuracy)
	if r.AUCDefined {
		fmt.Fprintf(&b, "**ROC AUC:** %.4f\n\n", r.AUC)
	} else {
		fmt.Fprintf(&b, "**ROC AUC:** undefined (test split holds a single class)\n\n")
	}

	fmt.Fprintf(&b, "## 3. Confusion matrix\n\n")
	fmt.Fprintf(&b, "| | Predicted 0 (low) | Predicted 1 (high) |\n| :--- | :--- | :--- |\n")
	fmt.Fprintf(&b, "| Actual 0 (low) | %d | %d |\n", r.Confusion[0][0], r.Confusion[0][1])
	fmt.Fprintf(&b, "| Actual 1 (high) | %d | %d |\n\n", r.Confusion[1][0], r.Confusion[1][1])

	if len(r.ROC) > 0 {
		fmt.Fprintf(&b, "## 4. ROC curve\n\n")
		fmt.Fprintf(&b, "| Threshold | FPR | TPR |\n| ---: | ---: | ---: |\n")
		for _, p := range sampleROC(r.ROC, 20) {
			fmt.Fprintf(&b, "| %.4f | %.4f | %.4f |\n", p.Threshold, p.FPR, p.TPR)
		}
		fmt.Fprintln(&b)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "## Warnings\n\n")
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
	}

	return writeText(path, b.String())
}

// sampleROC keeps at most n+1 evenly spaced points, always including both ends.
func sampleROC(points []models.ROCPoint, n int) []models.ROCPoint {
	if len(points) <= n+1 {
		return points
	}
	out := make([]models.ROCPoint, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, points[i*(len(points)-1)/n])
	}
	return out
}
