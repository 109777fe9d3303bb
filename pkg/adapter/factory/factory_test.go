package factory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfittko/raged/pkg/adapter/anthropicadapter"
	"github.com/mfittko/raged/pkg/adapter/ollamaadapter"
	"github.com/mfittko/raged/pkg/adapter/openaiadapter"
	"github.com/mfittko/raged/pkg/config"
)

func TestNewDispatchesOnProvider(t *testing.T) {
	cases := []struct {
		provider config.Provider
		want     any
	}{
		{config.ProviderOllama, &ollamaadapter.Adapter{}},
		{config.ProviderOpenAI, &openaiadapter.Adapter{}},
		{config.ProviderAnthropic, &anthropicadapter.Adapter{}},
	}

	for _, tc := range cases {
		cfg := &config.Config{
			Provider:       tc.provider,
			OllamaURL:      "http://localhost:11434",
			OpenAIAPIKey:   "key",
			AnthropicAPIKey: "key",
			RateLimitRPS:   1,
			RateLimitBurst: 1,
		}

		got, err := New(cfg)

		require.NoError(t, err)
		require.IsType(t, tc.want, got)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{Provider: "bogus"}

	_, err := New(cfg)

	require.Error(t, err)
}
