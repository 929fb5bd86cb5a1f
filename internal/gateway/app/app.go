package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"archigen/internal/gateway/config"
	"archigen/internal/gateway/handler/rpc"
	"archigen/internal/gateway/repository/archive"
	"archigen/internal/gateway/server"
	planservice "archigen/internal/gateway/service/plan"
	"archigen/internal/gateway/session"
	"archigen/internal/llm"
	"archigen/internal/metrics"
	"archigen/internal/pipeline"
)

type App struct {
	server   *server.Server
	llm      llm.Capability
	closers  []func(context.Context) error
	Config   *config.Config
	Sessions *session.Store
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewFromConfig(context.Background(), cfg)
}

// NewFromConfig builds the Gemini client from cfg and assembles the gateway.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:        cfg.LLM.APIKey,
		AnalysisModel: cfg.LLM.AnalysisModel,
		ImageModel:    cfg.LLM.ImageModel,
		VisionModel:   cfg.LLM.VisionModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return NewWith(ctx, cfg, gemini)
}

// NewWith assembles the gateway around an existing capability.
func NewWith(ctx context.Context, cfg *config.Config, base llm.Capability) (*App, error) {
	a := &App{Config: cfg}

	shutdownTracing, err := initTracing(cfg.OTelStdout)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	pm, err := metrics.NewPipelineMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	// Dependencies
	a.llm = WrapClient(base, cfg.LLM, pm.Middleware())
	store, closeStore, err := initArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	logger := log.Default()
	a.Sessions = session.NewStore(cfg.Session.MaxSessions, cfg.Session.TTL, func() *pipeline.Controller {
		return pipeline.New(a.llm, pipeline.Options{
			StageTimeout: cfg.StageTimeout,
			Logger:       logger,
			Tracker:      pm,
		})
	})
	planSvc := planservice.New(a.Sessions, &archive.Exporter{Store: store}, cfg.Countries)

	planHandler := rpc.NewPlanHandler(planSvc)
	stateHandler := rpc.NewStateStreamHandler(planSvc)

	// Routing & Server
	mux := server.NewMux(planHandler, stateHandler)
	a.server = server.New(cfg.Port, mux)
	return a, nil
}

// WrapClient applies the standard middleware chain. The outermost layer
// comes first: logging sees every retry, the limiter gates each attempt.
func WrapClient(base llm.Capability, cfg config.LLMConfig, extra ...llm.Middleware) llm.Capability {
	mws := []llm.Middleware{llm.WithLogging(nil), llm.WithHooks()}
	mws = append(mws, extra...)
	mws = append(mws, llm.Retry(cfg.RetryAttempts, cfg.RetryBase))
	if cfg.RPS > 0 {
		mws = append(mws, llm.RateLimit(cfg.RPS, cfg.Burst))
	}
	return llm.Wrap(base, mws...)
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	errs := []error{a.server.Shutdown(ctx)}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	if a.llm != nil {
		errs = append(errs, a.llm.Close())
	}
	return errors.Join(errs...)
}
