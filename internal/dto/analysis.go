package dto

import "finsight-backend/internal/model"

type QuestionKind string

const (
	QuestionSimple     QuestionKind = "simple"
	QuestionAnalytical QuestionKind = "analytical"
)

// AnalysisResult is the structured answer recovered from a model completion.
type AnalysisResult struct {
	TextAnswer string                   `json:"text_answer"`
	Charts     []model.ChartDescription `json:"charts"`
}

type OutcomeStatus string

const (
	StatusOK      OutcomeStatus = "ok"
	StatusPartial OutcomeStatus = "partial"
	StatusFailed  OutcomeStatus = "failed"
)

type AnalysisPath string

const (
	PathSimple     AnalysisPath = "simple"
	PathSinglePass AnalysisPath = "single_pass"
	PathBatched    AnalysisPath = "batched"
)

// BatchOutcome is the per-batch result of the batched path.
type BatchOutcome struct {
	Index     int // 1-based
	StartRow  int // 1-based, inclusive
	EndRow    int // inclusive
	Result    AnalysisResult
	Succeeded bool
}

type BatchReport struct {
	TotalBatches int
	Batches      []BatchOutcome
	Combined     string
}

// Outcome is what the orchestrator hands back for a turn. Err is nil on success,
// otherwise it wraps one of the apperr sentinels and Narrative still holds user-facing text.
type Outcome struct {
	Status    OutcomeStatus
	Path      AnalysisPath
	Narrative string
	Charts    []model.ChartDescription
	Sampled   bool
	RowsUsed  int
	Batches   *BatchReport
	Err       error
}
