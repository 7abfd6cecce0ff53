package models

import "time"

// ColumnProfile summarises one column of the raw extract.
type ColumnProfile struct {
	Name    string
	Type    string
	NonNull int
	Nulls   int
	Unique  int
}

// DatasetProfile is the metadata written before any cleaning happens.
type DatasetProfile struct {
	Rows    int
	Columns []ColumnProfile
	Head    [][]string
	Header  []string
}

// CountEntry is a labelled count, used for ranked breakdowns.
type CountEntry struct {
	Label string
	Count int
}

// InsightReport holds the exploratory statistics over the cleaned dataset.
type InsightReport struct {
	TotalIncidents    int
	TargetCounts      map[Target]int
	HighSeverityPct   float64
	LowSeverityPct    float64
	ByWeekday         [7]int
	ByHour            [24]int
	ByLocality        []CountEntry
	SeverityByWeekday [7][2]int
	MissingTimestamp  int
	TargetDefects     int
}

// ClassMetrics holds precision, recall and F1 for one class label.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ROCPoint is one (false positive rate, true positive rate) pair.
type ROCPoint struct {
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
	Threshold float64 `json:"threshold"`
}

// EvaluationReport is produced once per training run and never mutated.
// Confusion is indexed [actual][predicted].
type EvaluationReport struct {
	RunID             string          `json:"run_id"`
	CreatedAt         time.Time       `json:"created_at"`
	VocabularyVersion string          `json:"vocabulary_version"`
	Classes           [2]ClassMetrics `json:"classes"`
	WeightedAvg       ClassMetrics    `json:"weighted_avg"`
	Accuracy          float64         `json:"accuracy"`
	Confusion         [2][2]int       `json:"confusion"`
	AUC               float64         `json:"auc"`
	AUCDefined        bool            `json:"auc_defined"`
	ROC               []ROCPoint      `json:"roc"`
	TestSize          int             `json:"test_size"`
	TrainSize         int             `json:"train_size"`
	ResampledSize     int             `json:"resampled_size"`
	Converged         bool            `json:"converged"`
	Iterations        int             `json:"iterations"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// ConfusionTotal is the number of predictions counted in the matrix.
func (r *EvaluationReport) ConfusionTotal() int {
	return r.Confusion[0][0] + r.Confusion[0][1] + r.Confusion[1][0] + r.Confusion[1][1]
}
