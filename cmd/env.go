package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/matchbaan/match-cli/internal/feed"
	"github.com/matchbaan/match-cli/internal/filestore"
	"github.com/matchbaan/match-cli/internal/matching"
	"github.com/matchbaan/match-cli/internal/ocr"
	"github.com/matchbaan/match-cli/internal/pipeline"
	"github.com/matchbaan/match-cli/internal/prompts"
	"github.com/matchbaan/match-cli/internal/store"
	"github.com/matchbaan/match-cli/pkg/geocode"
	"github.com/matchbaan/match-cli/pkg/openai"
)

// pipelineEnv holds the store, clients, and engines the commands share.
// Pipeline is nil when no OpenAI key is configured; commands that need it
// validate with a mode that requires the key before calling initEnv.
type pipelineEnv struct {
	Store    store.Store
	Files    *filestore.Store
	Prompts  *prompts.Manager
	Geocoder geocode.Client
	Pipeline *pipeline.Pipeline
	Engine   *matching.Engine
	Backfill *matching.Backfill
	Syncer   *feed.Syncer
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "match.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		poolCfg := &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg, cfg.Matching.EmbeddingDims)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv validates config for the given mode, opens and migrates the store,
// and builds the clients and engines. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	files := filestore.New(cfg.Files.Dir)
	pm := prompts.NewManager(st)

	geocoder := geocode.NewClient(
		geocode.WithPDOKBaseURL(cfg.Geocode.PDOKBaseURL),
		geocode.WithNominatimBaseURL(cfg.Geocode.NominatimBaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RatePerSec),
		geocode.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second,
		}),
	)

	env := &pipelineEnv{
		Store:    st,
		Files:    files,
		Prompts:  pm,
		Geocoder: geocoder,
		Engine:   matching.NewEngine(st, cfg.Matching.TopK),
		Backfill: matching.NewBackfill(st, geocoder),
		Syncer: feed.NewSyncer(st, &http.Client{
			Timeout: time.Duration(cfg.Feed.TimeoutSecs) * time.Second,
		}, cfg.Feed.URL),
	}

	if cfg.OpenAI.Key != "" {
		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			_ = st.Close()
			return nil, err
		}

		llm, err := openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithChatModel(cfg.OpenAI.ChatModel),
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDims(cfg.Matching.EmbeddingDims),
			openai.WithRateLimit(cfg.OpenAI.RatePerSec),
			openai.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			}),
		)
		if err != nil {
			_ = st.Close()
			return nil, err
		}

		env.Pipeline = pipeline.New(cfg, st, files, extractor, llm, geocoder, pm)
	}

	return env, nil
}
