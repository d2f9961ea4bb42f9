package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"finsight-backend/config"
)

// ProvideGenerator selects the completion provider named by LLM_PROVIDER.
func ProvideGenerator(lc fx.Lifecycle, cfg *config.Config) (Generator, error) {
	switch cfg.LLM.Provider {
	case "openai":
		log.Info().Str("model", cfg.LLM.Model).Msg("Using OpenAI provider")
		return withTimeout(NewOpenAIGenerator(cfg.LLM), cfg), nil
	case "gemini", "":
		gen, err := NewGeminiGenerator(context.Background(), cfg.LLM)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info().Msg("Closing Gemini client...")
				return gen.Close()
			},
		})
		return withTimeout(gen, cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

// withTimeout bounds every individual provider call.
func withTimeout(gen Generator, cfg *config.Config) Generator {
	if cfg.LLM.RequestTimeout <= 0 {
		return gen
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, cfg.LLM.RequestTimeout)
		defer cancel()
		return gen.Generate(callCtx, prompt)
	})
}
