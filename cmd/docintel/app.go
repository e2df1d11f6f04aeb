package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"docintel/internal/config"
	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/embedding/cache"
	"docintel/internal/embedding/hashing"
	"docintel/internal/embedding/openai"
	"docintel/internal/embedding/tfidf"
	"docintel/internal/extractor"
	"docintel/internal/metrics"
	"docintel/internal/refiner"
	"docintel/internal/scorer"
	"docintel/internal/segmenter"
	"docintel/internal/service"
)

// app is the assembled pipeline together with the scorer it must release.
type app struct {
	*service.DigestServiceImpl
	scorer *scorer.Scorer
}

func (a *app) Close() error { return a.scorer.Close() }

func buildEmbedder(cfg config.EmbedderConfig, m *metrics.Run) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "hashing", "":
		emb = hashing.New(cfg.Hashing.Dimension)
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Dimensions: cfg.OpenAI.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}

	emb = embedding.NewInstrumentedEmbedder(emb, m)
	if cfg.CacheEnabled() {
		emb = cache.New(emb, m)
	}
	return emb, nil
}

func buildApp(cfg *config.AppConfig, log *zap.Logger, m *metrics.Run) (*app, error) {
	emb, err := buildEmbedder(cfg.Embedder, m)
	if err != nil {
		return nil, err
	}
	sc := scorer.New(emb, cfg.Scorer, log, m)

	splitter, err := refiner.NewSplitter(cfg.Refiner.Splitter)
	if err != nil {
		return nil, err
	}

	svc := service.NewDigestService(
		extractor.NewPDFExtractor(cfg.Extractor, log),
		segmenter.NewParagraphSegmenter(cfg.Segmenter.MinLength),
		sc,
		refiner.New(cfg.Refiner.MaxLength, splitter),
		service.Options{
			TopK:    cfg.Pipeline.TopK,
			Workers: cfg.Pipeline.Workers,
			Logger:  log,
			Metrics: m,
		},
	)
	return &app{DigestServiceImpl: svc, scorer: sc}, nil
}
