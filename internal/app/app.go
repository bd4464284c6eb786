// Package app assembles the engine and its stores and collaborators from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/api"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/codec"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/config"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/extract"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/records"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/transcript"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/verify"
)

// App is a wired controller. Close releases the database and any sidecar
// connection.
type App struct {
	Config     *config.Config
	Engine     *dialogue.Engine
	Records    *records.Store
	Sessions   session.Store
	Transcript transcript.Log
	Logger     *zap.Logger

	codec   *codec.CodecClient
	closers []func() error
}

// Open builds the application described by cfg.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Records, err = records.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open records %s: %w", cfg.Storage.Path, err)
	}
	a.closers = append(a.closers, a.Records.Close)

	switch cfg.Storage.Sessions {
	case "memory":
		a.Sessions = session.NewMemoryStore()
		a.Transcript = transcript.NewMemoryLog(cfg.Storage.TranscriptCap)
	default:
		if a.Sessions, err = session.NewSQLiteStore(a.Records.DB()); err != nil {
			return nil, err
		}
		if a.Transcript, err = transcript.NewSQLiteLog(a.Records.DB(), cfg.Storage.TranscriptCap); err != nil {
			return nil, err
		}
	}

	deps := dialogue.Deps{
		Sessions:   a.Sessions,
		Transcript: a.Transcript,
		Records:    a.Records,
		Prompts:    cfg.Prompts,
		Logger:     logger,
	}
	if deps.Extractor, err = a.extractor(ctx); err != nil {
		return nil, err
	}
	if deps.KB, err = a.searcher(); err != nil {
		return nil, err
	}
	if key := cfg.Verify.MapsAPIKey; key != "" {
		maps := verify.NewMapsClient(key)
		deps.Addresses, deps.Attorneys = maps, maps
	}

	a.Engine, err = dialogue.New(deps, cfg.DialoguePolicy())
	if err != nil {
		return nil, err
	}
	logger.Info("controller wired",
		zap.String("db", cfg.Storage.Path),
		zap.String("sessions", cfg.Storage.Sessions),
		zap.String("extractor", cfg.Extractor.Backend),
		zap.String("kb", cfg.KB.Backend),
		zap.Bool("maps", cfg.Verify.MapsAPIKey != ""),
	)
	return a, nil
}

func (a *App) extractor(ctx context.Context) (extract.Extractor, error) {
	cfg := a.Config.Extractor
	switch cfg.Backend {
	case config.BackendGRPC:
		c, err := a.sidecar()
		if err != nil {
			return nil, err
		}
		return extract.Remote{Client: c}, nil
	case config.BackendGenAI:
		return extract.NewGenAIExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		// nil selects the engine's deterministic rules.
		return nil, nil
	}
}

func (a *App) searcher() (kb.Searcher, error) {
	switch a.Config.KB.Backend {
	case "http":
		return kb.NewHTTPClient(a.Config.KBClientConfig()), nil
	case config.BackendGRPC:
		c, err := a.sidecar()
		if err != nil {
			return nil, err
		}
		return kb.CodecSearcher{Client: c}, nil
	default:
		return nil, nil
	}
}

// sidecar dials the inference sidecar once and shares the connection.
func (a *App) sidecar() (*codec.CodecClient, error) {
	if a.codec != nil {
		return a.codec, nil
	}
	addr := a.Config.Extractor.CodecAddr
	if addr == "" {
		return nil, errors.New("inference sidecar needs codec_addr (CODEC_ADDR)")
	}
	c, err := codec.NewCodecClient(addr)
	if err != nil {
		return nil, err
	}
	a.codec = c
	a.closers = append(a.closers, c.Close)
	return c, nil
}

// Handler returns the HTTP surface for the engine.
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.NewHandler(a.Engine, a.Transcript, a.Records, a.Config.Server.APIKey, a.Logger))
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
