package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pagecopy/internal/cache/memory"
	"pagecopy/internal/detect"
	"pagecopy/internal/gateway/config"
	"pagecopy/internal/gateway/handler"
	"pagecopy/internal/gateway/handler/rpc"
	artifactrepo "pagecopy/internal/gateway/repository/artifact"
	"pagecopy/internal/gateway/server"
	"pagecopy/internal/llm"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/logger"
	"pagecopy/internal/orchestrator"
)

// narrativeMaxBytes bounds the narrative store by total text size.
const narrativeMaxBytes = 64 << 20

// Core is the generation stack shared by the API server and the CLI.
type Core struct {
	Orchestrator *orchestrator.Orchestrator
	Detector     *detect.CachedDetector
	Archive      *artifactrepo.Archive
	provider     *llm.Provider
	stores       *runStores
}

func (c *Core) Close() error {
	return errors.Join(c.provider.Close(), c.stores.Close())
}

// NewCore builds tier clients, the provider, the orchestrator, the detector
// and the run archive from cfg.
func NewCore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Core, error) {
	log = logger.OrNop(log)
	clients := make(map[llmclient.Tier]llmclient.LLMClient, len(cfg.LLM.Tiers))
	for tier, tc := range cfg.LLM.Tiers {
		c, err := llmclient.New(ctx, tc, cfg.LLM.Credentials)
		if err != nil {
			closeClients(clients)
			return nil, fmt.Errorf("llm tier %s: %w", tier, err)
		}
		clients[tier] = c
	}
	limiter := llm.NewRateLimiter(cfg.LLM.RateLimit)
	pcfg := llm.ProviderConfig{
		Tiers:   cfg.LLM.Tiers,
		Timeout: cfg.LLM.Timeout,
	}
	if cfg.LLM.LogPrompts {
		pcfg.Hook = llm.NewPromptLogger(log.With("component", "llm.prompt"))
	}
	provider, err := llm.NewProvider(clients, pcfg, limiter, log.With("component", "llm"))
	if err != nil {
		closeClients(clients)
		return nil, err
	}

	detector, err := detect.NewCached(detect.New(cfg.Detect.Classifier), cfg.Detect.CacheSize)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("detector cache: %w", err)
	}

	stores, err := initStores(ctx, cfg, log)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	orch := orchestrator.New(provider, orchestrator.Options{
		Batch:      cfg.Batch,
		Narratives: memory.NewNarratives(cfg.Narrative.MaxEntries, narrativeMaxBytes, cfg.Narrative.TTL),
		Archive:    stores.archive,
		Logger:     log.With("component", "orchestrator"),
	})
	return &Core{
		Orchestrator: orch,
		Detector:     detector,
		Archive:      stores.archive,
		provider:     provider,
		stores:       stores,
	}, nil
}

func closeClients(clients map[llmclient.Tier]llmclient.LLMClient) {
	for _, c := range clients {
		_ = c.Close()
	}
}

type App struct {
	server *server.Server
	core   *Core
	log    *logger.Logger
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	core, err := NewCore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	copyHandler := rpc.NewCopyHandler(core.Orchestrator, core.Detector, core.Archive, log.With("component", "rpc"))
	streamHandler := rpc.NewGenerateStreamHandler(core.Orchestrator, log.With("component", "ws"))
	debugHandler := handler.NewDebugHandler(core.Archive)

	// Routing & Server
	mux := server.NewMux(copyHandler, streamHandler, debugHandler, cfg.CORSOrigins)
	srv := server.New(cfg.Port, mux, log)

	return &App{server: srv, core: core, log: log}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// Run serves until ctx is done, then shuts down within timeout.
func (a *App) Run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.Start() }()

	select {
	case err := <-errCh:
		_ = a.core.Close()
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Shutdown(sctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.core.Close())
}
