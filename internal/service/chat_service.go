package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"finsight-backend/internal/apperr"
	"finsight-backend/internal/chart"
	"finsight-backend/internal/classifier"
	"finsight-backend/internal/dto"
	"finsight-backend/internal/extractor"
	"finsight-backend/internal/llm"
	"finsight-backend/internal/model"
	"finsight-backend/internal/prompt"
	"finsight-backend/internal/repository"
	"finsight-backend/internal/store"
	"finsight-backend/internal/util"
)

const (
	msgNoData            = "I couldn't find any data matching your request. Please try asking about a different brand, country, or time period."
	msgPlannerDown       = "Sorry, I'm having trouble understanding your request. Please try rephrasing your question."
	msgPlanMalformed     = "Sorry, I had trouble understanding how to find the data for your question."
	errNoDataFound       = "No data found"
	errPlannerDown       = "Query planning service unavailable"
	errPlanGeneration    = "Query plan generation failed"
	errUnexpectedPrefix  = "An unexpected server error occurred: "
	maxSchemaListEntries = 60
)

// ChatService answers one chat turn. HandleTurn never fails: every problem ends up
// in the response text or its error field.
type ChatService interface {
	HandleTurn(ctx context.Context, req dto.ChatRequest) dto.ChatResponse
}

type chatService struct {
	validator classifier.Validator
	client    llm.ModelClient
	extractor extractor.ResponseExtractor
	repo      repository.FinancialRepository
	analysis  AnalysisService
	renderer  chart.Renderer
	turns     store.TurnStore
	schema    prompt.SchemaContext
}

func NewChatService(
	validator classifier.Validator,
	client llm.ModelClient,
	ext extractor.ResponseExtractor,
	repo repository.FinancialRepository,
	analysis AnalysisService,
	renderer chart.Renderer,
	turns store.TurnStore,
) ChatService {
	return &chatService{
		validator: validator,
		client:    client,
		extractor: ext,
		repo:      repo,
		analysis:  analysis,
		renderer:  renderer,
		turns:     turns,
		schema:    buildSchemaContext(repo),
	}
}

func buildSchemaContext(repo repository.FinancialRepository) prompt.SchemaContext {
	months := repo.Distinct(model.ColMonth)
	sort.SliceStable(months, func(i, j int) bool {
		return util.ComparePeriods(months[i], months[j]) < 0
	})
	return prompt.SchemaContext{
		Columns:   repo.Columns(),
		Brands:    capList(repo.Distinct(model.ColBrand)),
		Countries: capList(repo.Distinct(model.ColCountry)),
		Regions:   capList(repo.Distinct(model.ColRegion)),
		KPIs:      capList(repo.Distinct(model.ColKPI)),
		Months:    months,
	}
}

func capList(values []string) []string {
	if len(values) > maxSchemaListEntries {
		return values[:maxSchemaListEntries]
	}
	return values
}

func (s *chatService) HandleTurn(ctx context.Context, req dto.ChatRequest) (resp dto.ChatResponse) {
	question := strings.TrimSpace(req.Message.Text)
	turnID := s.turns.Begin(ctx, question)
	logger := log.With().Str("turn_id", turnID).Logger()
	record := store.TurnRecord{ID: turnID}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Chat turn panicked")
			resp = dto.NewErrorChatResponse(turnID, "", fmt.Sprintf("%s%v", errUnexpectedPrefix, r))
			record.Stage = "panic"
		}
		if resp.Error != nil {
			record.Error = *resp.Error
		}
		record.Charts = len(resp.Charts)
		if err := s.turns.Finish(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("Could not record turn")
		}
	}()

	logger.Info().Str("question", question).Msg("Received new question")

	if ok, reason := s.validator.Validate(question); !ok {
		logger.Info().Str("reason", reason).Msg("Question rejected")
		record.Stage = "rejected"
		return dto.ChatResponse{TurnID: turnID, TextAnswer: classifier.RefusalMessage(reason), Charts: []string{}}
	}

	plan, err := s.plan(ctx, question, logger)
	if err != nil {
		record.Stage = "planning"
		if errors.Is(err, apperr.ErrMalformedResponse) {
			return dto.NewErrorChatResponse(turnID, msgPlanMalformed, errPlanGeneration)
		}
		return dto.NewErrorChatResponse(turnID, msgPlannerDown, errPlannerDown)
	}

	rows := s.repo.Filter(plan.Filter)
	record.Rows = len(rows)
	if len(rows) == 0 {
		logger.Warn().Interface("filter", plan.Filter).Err(apperr.ErrEmptyResultSet).Msg("No data found for query plan")
		record.Stage = "filter"
		return dto.NewErrorChatResponse(turnID, msgNoData, errNoDataFound)
	}
	logger.Info().Int("rows", len(rows)).Msg("Fetched rows for analysis")

	outcome := s.analysis.Analyze(ctx, question, rows)
	record.Stage = "answered"
	record.Path = string(outcome.Path)
	record.Status = string(outcome.Status)
	if outcome.Err != nil {
		logger.Warn().Err(outcome.Err).Str("path", string(outcome.Path)).Msg("Analysis degraded")
	}

	charts := s.renderer.RenderAll(outcome.Charts)
	logger.Info().
		Str("path", string(outcome.Path)).
		Str("status", string(outcome.Status)).
		Bool("sampled", outcome.Sampled).
		Int("rows_used", outcome.RowsUsed).
		Int("charts_requested", len(outcome.Charts)).
		Int("charts_rendered", len(charts)).
		Msg("Turn answered")

	return dto.ChatResponse{TurnID: turnID, TextAnswer: outcome.Narrative, Charts: charts}
}

// plan asks the model for a filter plan. A completion without a JSON object is a
// planning failure; there is no narrative to fall back on here.
func (s *chatService) plan(ctx context.Context, question string, logger zerolog.Logger) (dto.QueryPlan, error) {
	completion := s.client.Invoke(ctx, prompt.BuildPlannerPrompt(question, s.schema))
	if !completion.OK() {
		logger.Error().Err(completion.Err).Int("attempts", completion.Attempts).Msg("Query planning failed")
		return dto.QueryPlan{}, fmt.Errorf("%w: %w", apperr.ErrPlanningFailed, completion.Err)
	}
	logger.Debug().Str("raw", completion.Text).Msg("Query plan response")

	ex := s.extractor.Extract(completion.Text)
	if !ex.Recovered() {
		logger.Error().Str("raw", completion.Text).Msg("Failed to parse query plan")
		return dto.QueryPlan{}, fmt.Errorf("%w: %w", apperr.ErrPlanningFailed, apperr.ErrMalformedResponse)
	}
	plan := dto.PlanFromMap(ex.Value)
	logger.Info().Interface("filter", plan.Filter).Str("analysis_type", plan.AnalysisType).Msg("Parsed query plan")
	return plan, nil
}
