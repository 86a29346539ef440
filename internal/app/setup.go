package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/coursepilot/coursepilot/db"
	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/docproc"
	"github.com/coursepilot/coursepilot/internal/generator"
	"github.com/coursepilot/coursepilot/internal/rag"
	"github.com/coursepilot/coursepilot/internal/session"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/internal/tools"
)

// Setup creates and initializes the application.
// Migration failure is fatal: the process cannot run against an unknown
// schema. On any error, components already initialized are released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	vectorStore, err := store.New(store.NewPGQuerier(pool), embedder, cfg.MaxResults,
		logger.With("component", "store"))
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	a.Store = vectorStore

	manager, toolRefs, err := provideTools(g, vectorStore, logger)
	if err != nil {
		return nil, err
	}
	a.Tools = manager
	a.ToolRefs = toolRefs

	gen, err := generator.New(generator.Config{
		Genkit:    g,
		ModelName: cfg.FullModelName(),
		Logger:    logger.With("component", "generator"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	a.Sessions = session.NewManager(cfg.MaxHistory, logger.With("component", "session"))

	system, err := rag.New(rag.Config{
		Processor: docproc.New(cfg.ChunkSize, cfg.ChunkOverlap, logger.With("component", "docproc")),
		Store:     vectorStore,
		Generator: gen,
		Tools:     manager,
		Sessions:  a.Sessions,
		ToolRefs:  toolRefs,
		Logger:    logger.With("component", "rag"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating rag system: %w", err)
	}
	a.RAG = system

	return a, nil
}

// provideDBPool runs migrations and creates the connection pool. pgvector
// types are registered on every new connection so vector values scan
// natively.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address (registered in provideGenkit)
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideTools builds the tool manager and registers its tools with Genkit.
func provideTools(g *genkit.Genkit, vectorStore *store.Store, logger *slog.Logger) (*tools.Manager, []ai.ToolRef, error) {
	manager := tools.NewManager()

	searchTool, err := tools.NewCourseSearchTool(vectorStore, logger.With("component", "search_tool"))
	if err != nil {
		return nil, nil, fmt.Errorf("creating search tool: %w", err)
	}
	if err := manager.Register(searchTool); err != nil {
		return nil, nil, err
	}

	outlineTool, err := tools.NewCourseOutlineTool(vectorStore, logger.With("component", "outline_tool"))
	if err != nil {
		return nil, nil, fmt.Errorf("creating outline tool: %w", err)
	}
	if err := manager.Register(outlineTool); err != nil {
		return nil, nil, err
	}

	registered, err := tools.Register(g, manager)
	if err != nil {
		return nil, nil, fmt.Errorf("registering tools with genkit: %w", err)
	}

	toolRefs := make([]ai.ToolRef, len(registered))
	for i, t := range registered {
		toolRefs[i] = t
	}
	return manager, toolRefs, nil
}
