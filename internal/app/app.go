// Package app assembles the application: database, Genkit provider, vector
// store, tools, generator, sessions and the RAG facade.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/rag"
	"github.com/coursepilot/coursepilot/internal/session"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/internal/tools"
)

// App holds the initialized application components.
// Create with Setup; release with Close.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    *store.Store
	Tools    *tools.Manager
	ToolRefs []ai.ToolRef
	Sessions *session.Manager
	RAG      *rag.System

	logger *slog.Logger
}

// Close releases held resources. Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	return nil
}
