package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finsight-backend/config"
	"finsight-backend/internal/apperr"
	"finsight-backend/internal/classifier"
	"finsight-backend/internal/dataset"
	"finsight-backend/internal/dto"
	"finsight-backend/internal/extractor"
	"finsight-backend/internal/llm"
	"finsight-backend/internal/model"
	"finsight-backend/internal/prompt"
	"finsight-backend/internal/repository"
	"finsight-backend/internal/util"
)

const (
	msgAnalysisFailed   = "I encountered an issue analyzing your data. Please try with a more specific query."
	msgSynthesisFailed  = "I analyzed your data in %d parts but could not combine them into a single report. Please try a more specific question."
	msgBatchFailed      = "The analysis of this part of the data could not be completed."
	msgSimpleNoAnswer   = "The specific value you requested is not readily available in our current dataset."
	maxFallbackGroups   = 10
	batchHeaderTemplate = "## Batch %d of %d (rows %d–%d)"
)

// AnalysisService turns a question and its filtered rows into a narrative plus chart descriptions.
type AnalysisService interface {
	Analyze(ctx context.Context, question string, rows []model.FinancialRow) dto.Outcome
}

type analysisService struct {
	client     llm.ModelClient
	extractor  extractor.ResponseExtractor
	classifier classifier.Classifier
	repo       repository.FinancialRepository
	cfg        config.AnalysisConfig
}

func NewAnalysisService(
	client llm.ModelClient,
	ext extractor.ResponseExtractor,
	cls classifier.Classifier,
	repo repository.FinancialRepository,
	cfg *config.Config,
) AnalysisService {
	analysis := cfg.Analysis
	defaults := config.DefaultAnalysis()
	if analysis.BatchThreshold <= 0 {
		analysis.BatchThreshold = defaults.BatchThreshold
	}
	if analysis.BatchSize <= 0 {
		analysis.BatchSize = defaults.BatchSize
	}
	if analysis.SampleThreshold <= 0 {
		analysis.SampleThreshold = defaults.SampleThreshold
	}
	if analysis.DashboardSampleSize <= 0 {
		analysis.DashboardSampleSize = defaults.DashboardSampleSize
	}
	if analysis.DefaultSampleSize <= 0 {
		analysis.DefaultSampleSize = defaults.DefaultSampleSize
	}
	if analysis.SimpleSampleSize <= 0 {
		analysis.SimpleSampleSize = defaults.SimpleSampleSize
	}
	return &analysisService{
		client:     client,
		extractor:  ext,
		classifier: cls,
		repo:       repo,
		cfg:        analysis,
	}
}

func (s *analysisService) Analyze(ctx context.Context, question string, rows []model.FinancialRow) dto.Outcome {
	kind := s.classifier.Classify(question)
	log.Info().Str("classification", string(kind)).Int("rows", len(rows)).Msg("Question classified")

	switch {
	case kind == dto.QuestionSimple:
		return s.simple(ctx, question, rows)
	case len(rows) > s.cfg.BatchThreshold:
		return s.batched(ctx, question, rows)
	default:
		return s.singlePass(ctx, question, rows)
	}
}

// ask sends one prompt and recovers {text_answer, charts}. Prose that carries no JSON
// is still usable as a narrative; it comes back with ErrMalformedResponse alongside.
func (s *analysisService) ask(ctx context.Context, p string) (dto.AnalysisResult, error) {
	completion := s.client.Invoke(ctx, p)
	if !completion.OK() {
		return dto.AnalysisResult{}, completion.Err
	}
	ex := s.extractor.Extract(completion.Text)
	result := dto.AnalysisResult{
		TextAnswer: strings.TrimSpace(extractor.Text(ex.Value, "text_answer", "answer", "summary")),
		Charts:     model.ParseChartDescriptions(extractor.List(ex.Value, "charts"), model.ChartColumnOrders(ex.Source)),
	}
	if result.TextAnswer == "" && len(result.Charts) == 0 {
		return dto.AnalysisResult{}, fmt.Errorf("%w: completion has no answer", apperr.ErrMalformedResponse)
	}
	if !ex.Recovered() {
		return result, fmt.Errorf("%w: answer returned as plain text", apperr.ErrMalformedResponse)
	}
	return result, nil
}

// usable reports whether ask produced a narrative worth returning.
func usable(result dto.AnalysisResult, err error) bool {
	return err == nil || (errors.Is(err, apperr.ErrMalformedResponse) && result.TextAnswer != "")
}

func (s *analysisService) simple(ctx context.Context, question string, rows []model.FinancialRow) dto.Outcome {
	out := dto.Outcome{Path: dto.PathSimple, RowsUsed: len(rows)}

	groupBy := s.simpleGrouping()
	var blob []byte
	var aggregate []dataset.AggregateRow
	if groupBy == nil {
		sample := rows
		if len(sample) > s.cfg.SimpleSampleSize {
			sample = sample[:s.cfg.SimpleSampleSize]
			out.Sampled = true
		}
		out.RowsUsed = len(sample)
		blob, _ = json.Marshal(sample)
	} else {
		aggregate = dataset.Aggregate(rows, groupBy, []dataset.Measure{
			{Column: model.ColActual, Func: dataset.AggSum},
			{Column: model.ColReforecast, Func: dataset.AggSum},
			{Column: model.ColPriorYear, Func: dataset.AggSum},
		})
		blob, _ = json.Marshal(aggregate)
	}

	result, err := s.ask(ctx, prompt.BuildSimpleFactPrompt(question, string(blob)))
	if usable(result, err) && result.TextAnswer != "" {
		out.Status = dto.StatusOK
		out.Narrative = result.TextAnswer
		return out
	}

	if err == nil {
		err = fmt.Errorf("%w: no text answer", apperr.ErrMalformedResponse)
	}
	log.Warn().Err(err).Msg("Simple answer failed, summarizing the aggregate directly")
	if aggregate == nil {
		aggregate = dataset.Aggregate(rows, nil, []dataset.Measure{{Column: model.ColActual, Func: dataset.AggSum}})
	}
	out.Status = dto.StatusPartial
	out.Narrative = summarizeAggregate(aggregate, groupBy, len(rows))
	out.Err = fmt.Errorf("%w: %w", apperr.ErrPartial, err)
	return out
}

func (s *analysisService) simpleGrouping() []string {
	switch {
	case s.repo.HasColumn(model.ColBrand) && s.repo.HasColumn(model.ColKPI):
		return []string{model.ColBrand, model.ColKPI}
	case s.repo.HasColumn(model.ColKPI):
		return []string{model.ColKPI}
	}
	return nil
}

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

// summarizeAggregate is the model-free answer for the simple path.
func summarizeAggregate(aggregate []dataset.AggregateRow, groupBy []string, rowCount int) string {
	if len(aggregate) == 0 {
		return msgSimpleNoAnswer
	}
	total := 0.0
	for _, a := range aggregate {
		total += a.Values[model.ColActual]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total actual across %d rows: %s.", rowCount, formatAmount(total))
	if len(groupBy) == 0 {
		return sb.String()
	}
	for i, a := range aggregate {
		if i == maxFallbackGroups {
			fmt.Fprintf(&sb, "\n- ... and %d more", len(aggregate)-maxFallbackGroups)
			break
		}
		parts := make([]string, 0, len(groupBy))
		for _, col := range groupBy {
			parts = append(parts, a.Keys[col])
		}
		fmt.Fprintf(&sb, "\n- %s: %s", strings.Join(parts, " / "), formatAmount(a.Values[model.ColActual]))
	}
	return sb.String()
}

func (s *analysisService) singlePass(ctx context.Context, question string, rows []model.FinancialRow) dto.Outcome {
	out := dto.Outcome{Path: dto.PathSinglePass}
	dashboard := classifier.IsDashboardQuestion(question)

	view := rows
	if len(rows) > s.cfg.SampleThreshold {
		view = s.sample(rows, dashboard)
		out.Sampled = true
		log.Info().Int("rows", len(rows)).Int("sampled", len(view)).Bool("dashboard", dashboard).
			Msg("Sampling rows for single-pass analysis")
	}
	out.RowsUsed = len(view)

	var benchmark string
	if dashboard {
		benchmark = s.benchmarkBlob(view)
	}
	data, _ := json.Marshal(view)
	result, err := s.ask(ctx, prompt.BuildInsightPrompt(question, string(data), benchmark))
	if usable(result, err) {
		return finish(out, result, err)
	}

	log.Warn().Err(err).Msg("Single-pass analysis failed, retrying with a smaller slice")
	limited := rows
	if len(limited) > s.cfg.DefaultSampleSize {
		limited = limited[:s.cfg.DefaultSampleSize]
	}
	data, _ = json.Marshal(limited)
	retry, retryErr := s.ask(ctx, prompt.BuildInsightPrompt(question, string(data), ""))
	if usable(retry, retryErr) {
		out.RowsUsed = len(limited)
		out.Sampled = len(limited) < len(rows)
		out = finish(out, retry, retryErr)
		out.Status = dto.StatusPartial
		out.Err = fmt.Errorf("%w: answered from the first %d rows: %w", apperr.ErrPartial, len(limited), err)
		return out
	}

	log.Error().Err(retryErr).Msg("Fallback analysis also failed")
	out.Status = dto.StatusFailed
	out.Narrative = msgAnalysisFailed
	out.Err = fmt.Errorf("%w: %w", apperr.ErrAnalysisFailed, retryErr)
	return out
}

// finish maps a usable ask result onto the outcome. Plain-text answers count as partial.
func finish(out dto.Outcome, result dto.AnalysisResult, err error) dto.Outcome {
	out.Narrative = result.TextAnswer
	out.Charts = result.Charts
	out.Status = dto.StatusOK
	if err != nil {
		out.Status = dto.StatusPartial
		out.Err = fmt.Errorf("%w: %w", apperr.ErrPartial, err)
	}
	return out
}

// sample reduces rows for the single pass. Dashboard questions see the most recent
// periods, everything else sees the head of the table.
func (s *analysisService) sample(rows []model.FinancialRow, dashboard bool) []model.FinancialRow {
	if !dashboard {
		return rows[:min(len(rows), s.cfg.DefaultSampleSize)]
	}
	sorted := append([]model.FinancialRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return util.ComparePeriods(sorted[i].Month, sorted[j].Month) > 0
	})
	return sorted[:min(len(sorted), s.cfg.DashboardSampleSize)]
}

func (s *analysisService) benchmarkGrouping() []string {
	for _, col := range []string{model.ColBrand, model.ColCountry, model.ColKPI} {
		if s.repo.HasColumn(col) {
			return []string{col}
		}
	}
	return nil
}

func (s *analysisService) benchmarkBlob(rows []model.FinancialRow) string {
	groupBy := s.benchmarkGrouping()
	blob, err := json.Marshal(map[string]any{
		"performance_summary": dataset.PerformanceSummary(rows, groupBy),
		"total_market":        s.repo.Benchmark(groupBy),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Could not serialize benchmark data")
		return ""
	}
	return string(blob)
}

// partition splits rows into contiguous batches of at most size rows.
func partition(rows []model.FinancialRow, size int) [][]model.FinancialRow {
	var batches [][]model.FinancialRow
	for start := 0; start < len(rows); start += size {
		batches = append(batches, rows[start:min(start+size, len(rows))])
	}
	return batches
}

func (s *analysisService) batched(ctx context.Context, question string, rows []model.FinancialRow) dto.Outcome {
	out := dto.Outcome{Path: dto.PathBatched, RowsUsed: len(rows)}
	batches := partition(rows, s.cfg.BatchSize)
	report := &dto.BatchReport{TotalBatches: len(batches)}
	out.Batches = report
	log.Info().Int("rows", len(rows)).Int("batches", len(batches)).Msg("Using multi-batch analysis")

	var sections []string
	succeeded := 0
	for i, batch := range batches {
		start := i*s.cfg.BatchSize + 1
		bo := dto.BatchOutcome{Index: i + 1, StartRow: start, EndRow: start + len(batch) - 1}

		data, _ := json.Marshal(batch)
		result, err := s.ask(ctx, prompt.BuildBatchPrompt(question, string(data), bo.Index, len(batches)))
		if usable(result, err) {
			bo.Result = result
			bo.Succeeded = true
			succeeded++
		} else {
			log.Warn().Err(err).Int("batch", bo.Index).Msg("Batch analysis failed")
			bo.Result = dto.AnalysisResult{TextAnswer: msgBatchFailed}
		}
		report.Batches = append(report.Batches, bo)
		sections = append(sections,
			fmt.Sprintf(batchHeaderTemplate, bo.Index, len(batches), bo.StartRow, bo.EndRow)+"\n"+bo.Result.TextAnswer)
	}
	report.Combined = strings.Join(sections, "\n\n")

	if succeeded == 0 {
		out.Status = dto.StatusFailed
		out.Narrative = msgAnalysisFailed
		out.Err = fmt.Errorf("%w: all %d batches failed", apperr.ErrAnalysisFailed, len(batches))
		return out
	}

	result, err := s.ask(ctx, prompt.BuildSynthesisPrompt(question, report.Combined, len(batches)))
	if !usable(result, err) {
		log.Error().Err(err).Msg("Synthesis failed")
		out.Status = dto.StatusPartial
		out.Narrative = fmt.Sprintf(msgSynthesisFailed, len(batches))
		out.Err = fmt.Errorf("%w: synthesis: %w", apperr.ErrPartial, err)
		return out
	}
	out = finish(out, result, err)
	if succeeded < len(batches) && out.Err == nil {
		out.Status = dto.StatusPartial
		out.Err = fmt.Errorf("%w: %d of %d batches failed", apperr.ErrPartial, len(batches)-succeeded, len(batches))
	}
	return out
}
