package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"finsight-backend/config"
	"finsight-backend/internal/chart"
	"finsight-backend/internal/classifier"
	"finsight-backend/internal/controller"
	"finsight-backend/internal/dataset"
	"finsight-backend/internal/extractor"
	"finsight-backend/internal/llm"
	"finsight-backend/internal/postgres"
	"finsight-backend/internal/repository"
	"finsight-backend/internal/service"
	"finsight-backend/internal/store"
)

func main() {
	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewDataset,
			NewGinEngine,
			repository.NewFinancialRepository,
			llm.ProvideGenerator,
			llm.NewModelClient,
			store.NewInMemoryTurnStore,
		),
		// Pipeline
		fx.Provide(
			extractor.NewResponseExtractor,
			classifier.NewClassifier,
			classifier.NewValidator,
			chart.NewChartRenderer,
			service.NewAnalysisService,
			service.NewChatService,
			controller.NewChatController,
		),
		fx.Invoke(RegisterAPIRoutes),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second) // dataset load happens during start
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}
}

func NewConfig() (*config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg)
	return cfg, nil
}

// NewDataset loads the financial table once. A failure here aborts startup.
func NewDataset(cfg *config.Config) (*dataset.Dataset, error) {
	var (
		ds  *dataset.Dataset
		err error
	)
	if cfg.Dataset.Source == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		ds, err = postgres.LoadDataset(ctx, cfg.Postgres)
	} else {
		ds, err = dataset.LoadFile(cfg.Dataset.Source, cfg.Dataset.Path, cfg.Dataset.Sheet)
	}
	if err != nil {
		log.Error().Err(err).Str("source", cfg.Dataset.Source).Msg("Failed to load dataset")
		return nil, err
	}
	log.Info().Int("rows", ds.Len()).Strs("columns", ds.Columns()).Str("source", cfg.Dataset.Source).Msg("Dataset loaded")
	return ds, nil
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	chatController *controller.ChatController,
) {
	controller.RegisterChatRoutes(router, chatController)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
