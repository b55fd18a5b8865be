package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/curator/internal/fetch"
	"github.com/scoutline/curator/internal/pipeline"
	"github.com/scoutline/curator/internal/registry"
	"github.com/scoutline/curator/internal/store"
)

// env bundles the long-lived services an ingestion command needs.
type env struct {
	Store    store.Store
	Fetcher  *fetch.Client
	Pipeline *pipeline.Pipeline
	Adapters []pipeline.Adapter
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds the store, fetch client, adapters, and pipeline from config.
func initEnv(ctx context.Context, sourcesPath string) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if sourcesPath == "" {
		sourcesPath = cfg.Sources.File
	}
	sources, err := registry.LoadSources(sourcesPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	client := fetch.NewClient(cfg.Fetch)

	var adapters []pipeline.Adapter
	for _, src := range sources {
		adapter, err := pipeline.NewAdapter(src, client)
		if err != nil {
			zap.L().Warn("skipping source", zap.String("source", src.Name), zap.Error(err))
			continue
		}
		adapters = append(adapters, adapter)
	}

	zap.L().Info("sources loaded",
		zap.Int("configured", len(sources)),
		zap.Int("adapters", len(adapters)),
	)

	return &env{
		Store:    st,
		Fetcher:  client,
		Pipeline: pipeline.New(cfg, st),
		Adapters: adapters,
	}, nil
}
