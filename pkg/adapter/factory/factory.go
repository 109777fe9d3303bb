// Package factory selects and constructs the extraction Adapter implied by
// configuration. It lives apart from pkg/adapter itself so the provider
// packages can depend on pkg/adapter's shared interface/types without a
// cycle back through this constructor.
package factory

import (
	"fmt"

	"github.com/mfittko/raged/pkg/adapter"
	"github.com/mfittko/raged/pkg/adapter/anthropicadapter"
	"github.com/mfittko/raged/pkg/adapter/ollamaadapter"
	"github.com/mfittko/raged/pkg/adapter/openaiadapter"
	"github.com/mfittko/raged/pkg/config"
)

// New builds the Adapter implied by cfg.Provider.
func New(cfg *config.Config) (adapter.Adapter, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollamaadapter.New(ollamaadapter.Config{
			BaseURL:      cfg.OllamaURL,
			FastModel:    cfg.ModelFast,
			CapableModel: cfg.ModelCapable,
			VisionModel:  cfg.ModelVision,
			RateLimitRPS: cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}), nil
	case config.ProviderOpenAI:
		return openaiadapter.New(openaiadapter.Config{
			APIKey:         cfg.OpenAIAPIKey,
			FastModel:      cfg.ModelFast,
			CapableModel:   cfg.ModelCapable,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}), nil
	case config.ProviderAnthropic:
		return anthropicadapter.New(anthropicadapter.Config{
			APIKey:         cfg.AnthropicAPIKey,
			FastModel:      cfg.ModelFast,
			CapableModel:   cfg.ModelCapable,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q", cfg.Provider)
	}
}
