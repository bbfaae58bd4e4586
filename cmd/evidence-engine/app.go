// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/config"
	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/internal/scholar"
)

// engine bundles the components one command invocation needs. Provider
// pieces are nil until withProvider succeeds.
type engine struct {
	store  *index.Store
	client *scholar.Client
	cache  *scholar.Cache
	syncer *index.Syncer
	log    zerolog.Logger
}

// openEngine opens the index. Failure is fatal for the command.
func openEngine(log zerolog.Logger) (*engine, error) {
	store, err := index.Open(appConfig.Index, index.WithLogger(log), index.WithMetrics(appMetrics))
	if err != nil {
		return nil, err
	}
	return &engine{
		store:  store,
		syncer: &index.Syncer{Store: store, Logger: log},
		log:    log,
	}, nil
}

// withProvider attaches the Semantic Scholar client and cache. It fails
// with config.ErrMissingAPIKey when no key is configured.
func (e *engine) withProvider() error {
	if err := config.RequireScholarKey(appConfig); err != nil {
		return err
	}
	sc := appConfig.Scholar
	fetcher := httputil.NewFetcher(&http.Client{Timeout: sc.Timeout},
		httputil.WithRateLimiter(httputil.NewRateLimiter(sc.RateLimit, sc.Burst)),
		httputil.WithMetrics(appMetrics),
		httputil.WithLogger(e.log))

	e.client = scholar.NewClient(sc, fetcher, e.log)
	e.cache = scholar.NewCache(e.client, e.log, appMetrics)
	e.syncer.Fetcher = e.cache
	e.syncer.Searcher = e.client
	return nil
}

func (e *engine) expander() *evidence.Expander {
	return &evidence.Expander{Refs: e.cache, Indexer: e.syncer, Logger: e.log, Metrics: appMetrics}
}

func (e *engine) ranker() *evidence.Ranker {
	return &evidence.Ranker{Index: e.store, Logger: e.log}
}

func (e *engine) Close() error {
	return e.store.Close()
}

// newGenerator returns nil when no Gemini key is configured.
func newGenerator(ctx context.Context) (generate.Generator, error) {
	if config.RequireGeneratorKey(appConfig) != nil {
		return nil, nil
	}
	g, err := generate.NewGemini(ctx, appConfig.Generator)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func generateOptions() generate.Options {
	return generate.Options{
		Temperature:       appConfig.Generator.Temperature,
		SystemInstruction: generate.SystemInstruction,
	}
}
