package main

import (
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/extraction"
	"github.com/joseph-ayodele/docrows/internal/extraction/openai"
	"github.com/joseph-ayodele/docrows/internal/mapping"
	"github.com/joseph-ayodele/docrows/internal/metrics"
)

// newExtractionService builds the configured extraction boundary. The OpenAI provider
// extracts per document through a cache and a bounded fan-out.
func newExtractionService(cfg *common.Config, rec *metrics.Recorder, logger *slog.Logger) (extraction.Service, error) {
	switch cfg.Extraction.Provider {
	case common.ProviderOpenAI:
		client := openai.NewClient(openai.Config{
			APIKey:          cfg.OpenAI.APIKey,
			BaseURL:         cfg.OpenAI.BaseURL,
			Model:           cfg.OpenAI.Model,
			Temperature:     cfg.OpenAI.Temperature,
			Timeout:         cfg.Extraction.Timeout,
			MaxRetries:      2,
			LenientOptional: true,
		}, logger)
		cache, err := extraction.NewCache(client, cfg.Extraction.CacheSize, logger)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			if err := rec.RegisterCache(cache.Stats); err != nil {
				return nil, err
			}
		}
		logger.Info("extraction.provider", "provider", cfg.Extraction.Provider, "model", cfg.OpenAI.Model,
			"concurrency", cfg.Extraction.Concurrency)
		return extraction.NewFanOut(cache, cfg.Extraction.Concurrency, logger), nil
	default:
		logger.Info("extraction.provider", "provider", cfg.Extraction.Provider, "url", cfg.Extraction.URL)
		return extraction.NewRemoteClient(cfg.Extraction.URL,
			extraction.WithHTTPClient(&http.Client{Timeout: cfg.Extraction.Timeout}),
			extraction.WithRemoteLogger(logger),
		), nil
	}
}

// loadRules returns the rule table at path, or the built-in table when path is empty.
func loadRules(path string) (*mapping.RuleTable, error) {
	if path == "" {
		return mapping.DefaultRuleTable(), nil
	}
	return mapping.LoadRuleTableFile(path)
}
