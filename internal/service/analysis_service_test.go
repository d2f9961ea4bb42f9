package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight-backend/config"
	"finsight-backend/internal/apperr"
	"finsight-backend/internal/classifier"
	"finsight-backend/internal/dataset"
	"finsight-backend/internal/dto"
	"finsight-backend/internal/extractor"
	"finsight-backend/internal/llm"
	"finsight-backend/internal/model"
	"finsight-backend/internal/repository"
)

// fakeClient answers prompts with a scripted function and records every prompt it saw.
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) llm.Completion
}

func (f *fakeClient) Invoke(_ context.Context, prompt string) llm.Completion {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.answer(prompt)
}

func (f *fakeClient) count(substr string) int {
	n := 0
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

func ok(text string) llm.Completion {
	return llm.Completion{Text: text, Attempts: 1}
}

func failed() llm.Completion {
	return llm.Completion{Attempts: 3, Err: fmt.Errorf("%w: 503 unavailable", apperr.ErrPermanentProvider)}
}

const (
	markPlanner   = "act as a JSON generator"
	markSimple    = "answering a direct factual question"
	markInsight   = "analyze the provided JSON data"
	markBatch     = "reviewing part"
	markSynthesis = "was analyzed in"
)

func makeRows(n int) []model.FinancialRow {
	brands := []string{"Oreo", "Milka", "Ritz", "Toblerone"}
	rows := make([]model.FinancialRow, n)
	for i := range rows {
		rows[i] = model.FinancialRow{
			Brand:      brands[i%len(brands)],
			Country:    "USA",
			KPI:        "Net Revenue",
			Month:      fmt.Sprintf("2024-%02d", i%12+1),
			Actual:     float64(100 + i),
			Reforecast: 100,
			PriorYear:  90,
		}
	}
	return rows
}

var allColumns = []string{
	model.ColBrand, model.ColCountry, model.ColKPI, model.ColMonth,
	model.ColActual, model.ColReforecast, model.ColPriorYear,
}

func newTestAnalysis(client llm.ModelClient, rows []model.FinancialRow) AnalysisService {
	repo := repository.NewFinancialRepository(dataset.New(rows, allColumns))
	cfg := &config.Config{Analysis: config.DefaultAnalysis()}
	return NewAnalysisService(client, extractor.NewResponseExtractor(), classifier.NewClassifier(), repo, cfg)
}

func insightJSON(text string) string {
	return fmt.Sprintf(`{"text_answer": %q, "charts": [{"chart_type": "bar", "title": "t", "data": [{"label": "A", "value": 1}]}]}`, text)
}

func TestPartition(t *testing.T) {
	tests := []struct {
		rows  int
		sizes []int
	}{
		{1001, []int{400, 400, 201}},
		{1500, []int{400, 400, 400, 300}},
		{800, []int{400, 400}},
		{1, []int{1}},
		{0, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.rows), func(t *testing.T) {
			var sizes []int
			for _, b := range partition(makeRows(tt.rows), 400) {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}

func TestAnalyze_1001RowsAreBatched(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion { return ok(insightJSON("part")) }}
	rows := makeRows(1001)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Compare brand performance across all markets", rows)

	assert.Equal(t, dto.PathBatched, out.Path)
	require.NotNil(t, out.Batches)
	assert.Equal(t, 3, out.Batches.TotalBatches)
	assert.Equal(t, 400, out.Batches.Batches[0].EndRow)
	assert.Equal(t, 801, out.Batches.Batches[2].StartRow)
	assert.Equal(t, 1001, out.Batches.Batches[2].EndRow)
	assert.Equal(t, 3, client.count(markBatch))
	assert.Equal(t, 1, client.count(markSynthesis))
	assert.Equal(t, dto.StatusOK, out.Status)
	assert.NoError(t, out.Err)
}

func TestAnalyze_1000RowsUseSinglePass(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion { return ok(insightJSON("single")) }}
	rows := makeRows(1000)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Analyze performance trends for chocolate", rows)

	assert.Equal(t, dto.PathSinglePass, out.Path)
	assert.Nil(t, out.Batches)
	assert.Equal(t, 0, client.count(markBatch))
	assert.Equal(t, 1, client.count(markInsight))
	assert.True(t, out.Sampled)
	assert.Equal(t, 300, out.RowsUsed)
	assert.Equal(t, "single", out.Narrative)
	assert.Len(t, out.Charts, 1)
}

func TestAnalyze_DashboardSampleTakesRecentPeriods(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion { return ok(insightJSON("dash")) }}
	rows := makeRows(600)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Rank the top brands by revenue versus benchmark", rows)

	assert.Equal(t, dto.PathSinglePass, out.Path)
	assert.Equal(t, 150, out.RowsUsed)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], `"month":"2024-12"`)
	assert.NotContains(t, client.prompts[0], `"month":"2024-01"`)
	assert.Contains(t, client.prompts[0], "total_market")
}

func TestAnalyze_ChartsKeepColumnOrder(t *testing.T) {
	answer := "Here is the mix:\n```json\n" +
		`{"text_answer": "Snacks lead.", "charts": [{"chart_type": "stacked_bar", "data": [{"label": "Q1", "snacks": 4, "biscuits": 2}]}]}` +
		"\n```"
	client := &fakeClient{answer: func(string) llm.Completion { return ok(answer) }}
	rows := makeRows(20)

	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Analyze performance trends for chocolate", rows)
	assert.Equal(t, dto.StatusOK, out.Status)
	require.Len(t, out.Charts, 1)
	assert.Equal(t, []string{"label", "snacks", "biscuits"}, out.Charts[0].Columns)
}

func TestAnalyze_SmallSetIsNotSampled(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion { return ok(insightJSON("small")) }}
	rows := makeRows(120)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Analyze performance trends for chocolate", rows)
	assert.False(t, out.Sampled)
	assert.Equal(t, 120, out.RowsUsed)
}

func TestAnalyze_SinglePassFallsBackToFirst300Rows(t *testing.T) {
	calls := 0
	client := &fakeClient{answer: func(p string) llm.Completion {
		calls++
		if calls == 1 {
			return failed()
		}
		return ok(insightJSON("limited"))
	}}
	rows := makeRows(900)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Analyze performance trends for chocolate", rows)

	assert.Equal(t, dto.StatusPartial, out.Status)
	assert.Equal(t, "limited", out.Narrative)
	assert.Equal(t, 300, out.RowsUsed)
	assert.ErrorIs(t, out.Err, apperr.ErrPartial)
	assert.Equal(t, 2, client.count(markInsight))
}

func TestAnalyze_SinglePassBothAttemptsFail(t *testing.T) {
	client := &fakeClient{answer: func(string) llm.Completion { return failed() }}
	rows := makeRows(50)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Analyze performance trends for chocolate", rows)

	assert.Equal(t, dto.StatusFailed, out.Status)
	assert.Equal(t, msgAnalysisFailed, out.Narrative)
	assert.Empty(t, out.Charts)
	assert.ErrorIs(t, out.Err, apperr.ErrAnalysisFailed)
	assert.ErrorIs(t, out.Err, apperr.ErrPermanentProvider)
}

func TestAnalyze_PlainTextAnswerIsPartial(t *testing.T) {
	client := &fakeClient{answer: func(string) llm.Completion { return ok("Revenue grew 4% on strong pricing.") }}
	rows := makeRows(10)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Analyze performance trends for chocolate", rows)

	assert.Equal(t, dto.StatusPartial, out.Status)
	assert.Equal(t, "Revenue grew 4% on strong pricing.", out.Narrative)
	assert.Empty(t, out.Charts)
	assert.ErrorIs(t, out.Err, apperr.ErrMalformedResponse)
}

func TestAnalyze_BatchFailureIsLocal(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion {
		if strings.Contains(p, "part 2 of 3") {
			return failed()
		}
		if strings.Contains(p, markSynthesis) {
			return ok(insightJSON("merged"))
		}
		return ok(insightJSON("fine"))
	}}
	rows := makeRows(1100)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Compare brand performance across all markets", rows)

	require.NotNil(t, out.Batches)
	require.Len(t, out.Batches.Batches, 3)
	assert.True(t, out.Batches.Batches[0].Succeeded)
	assert.False(t, out.Batches.Batches[1].Succeeded)
	assert.Empty(t, out.Batches.Batches[1].Result.Charts)
	assert.Equal(t, msgBatchFailed, out.Batches.Batches[1].Result.TextAnswer)
	assert.True(t, out.Batches.Batches[2].Succeeded)

	assert.Equal(t, "merged", out.Narrative)
	assert.Equal(t, dto.StatusPartial, out.Status)
	assert.ErrorIs(t, out.Err, apperr.ErrPartial)
}

func TestAnalyze_SynthesisFailureDegrades(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion {
		if strings.Contains(p, markSynthesis) {
			return failed()
		}
		return ok(insightJSON("fine"))
	}}
	rows := makeRows(1200)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Compare brand performance across all markets", rows)

	assert.Equal(t, dto.StatusPartial, out.Status)
	assert.Equal(t, fmt.Sprintf(msgSynthesisFailed, 3), out.Narrative)
	assert.Empty(t, out.Charts)
	require.NotNil(t, out.Batches)
	assert.Contains(t, out.Batches.Combined, "## Batch 3 of 3")
}

func TestAnalyze_AllBatchesFail(t *testing.T) {
	client := &fakeClient{answer: func(string) llm.Completion { return failed() }}
	rows := makeRows(1200)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "Compare brand performance across all markets", rows)

	assert.Equal(t, dto.StatusFailed, out.Status)
	assert.Equal(t, 0, client.count(markSynthesis))
	assert.ErrorIs(t, out.Err, apperr.ErrAnalysisFailed)
}

func TestAnalyze_CompareAllBrands1500Rows(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion {
		if strings.Contains(p, markSynthesis) {
			return ok(`{"text_answer": "Consolidated report", "charts": []}`)
		}
		return ok(insightJSON("batch insight"))
	}}
	rows := makeRows(1500)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "compare all brands", rows)

	assert.Equal(t, dto.PathBatched, out.Path)
	require.NotNil(t, out.Batches)
	assert.Equal(t, 4, out.Batches.TotalBatches)
	for _, header := range []string{
		"## Batch 1 of 4 (rows 1–400)",
		"## Batch 2 of 4 (rows 401–800)",
		"## Batch 3 of 4 (rows 801–1200)",
		"## Batch 4 of 4 (rows 1201–1500)",
	} {
		assert.Contains(t, out.Batches.Combined, header)
	}

	var synthesis string
	for _, p := range client.prompts {
		if strings.Contains(p, markSynthesis) {
			synthesis = p
		}
	}
	assert.Contains(t, synthesis, out.Batches.Combined)
	assert.Equal(t, "Consolidated report", out.Narrative)
}

func TestAnalyze_SimplePath(t *testing.T) {
	client := &fakeClient{answer: func(p string) llm.Completion {
		return ok(`{"text_answer": "Oreo net revenue was 203.00.", "charts": [{"chart_type": "bar", "data": [{"label": "x", "value": 1}]}]}`)
	}}
	rows := makeRows(2)
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "What is the net revenue of Oreo?", rows)

	assert.Equal(t, dto.PathSimple, out.Path)
	assert.Equal(t, dto.StatusOK, out.Status)
	assert.Equal(t, "Oreo net revenue was 203.00.", out.Narrative)
	assert.Empty(t, out.Charts, "the simple path never returns charts")
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], markSimple)
	assert.Contains(t, client.prompts[0], `"brand":"Oreo","kpi":"Net Revenue","actual":100`)
}

func TestAnalyze_SimplePathFallsBackToAggregate(t *testing.T) {
	client := &fakeClient{answer: func(string) llm.Completion { return failed() }}
	rows := []model.FinancialRow{
		{Brand: "Oreo", KPI: "Net Revenue", Actual: 1200.5},
		{Brand: "Oreo", KPI: "Net Revenue", Actual: 800},
		{Brand: "Ritz", KPI: "Net Revenue", Actual: 99.5},
	}
	out := newTestAnalysis(client, rows).Analyze(context.Background(), "What is the net revenue of Oreo?", rows)

	assert.Equal(t, dto.StatusPartial, out.Status)
	assert.Contains(t, out.Narrative, "Total actual across 3 rows: 2,100.00.")
	assert.Contains(t, out.Narrative, "- Oreo / Net Revenue: 2,000.50")
	assert.Contains(t, out.Narrative, "- Ritz / Net Revenue: 99.50")
	assert.True(t, errors.Is(out.Err, apperr.ErrPartial))
}

func TestAnalyze_SimplePathRawSampleWithoutGroupingColumns(t *testing.T) {
	client := &fakeClient{answer: func(string) llm.Completion { return ok(`{"text_answer": "ok"}`) }}
	rows := makeRows(80)
	repo := repository.NewFinancialRepository(dataset.New(rows, []string{model.ColMonth, model.ColActual}))
	svc := NewAnalysisService(client, extractor.NewResponseExtractor(), classifier.NewClassifier(), repo,
		&config.Config{Analysis: config.DefaultAnalysis()})

	out := svc.Analyze(context.Background(), "What is the total revenue?", rows)
	assert.Equal(t, dto.PathSimple, out.Path)
	assert.True(t, out.Sampled)
	assert.Equal(t, 50, out.RowsUsed)
}
