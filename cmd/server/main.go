// Command server is the CollabBoard process entry point: it resolves
// configuration, opens storage, wires every service package into a
// dispatcher, and serves the socket and HTTP boundaries until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/ai"
	"github.com/collabboard/server/pkg/board"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/chat"
	"github.com/collabboard/server/pkg/config"
	"github.com/collabboard/server/pkg/dispatch"
	"github.com/collabboard/server/pkg/httpapi"
	"github.com/collabboard/server/pkg/llm"
	"github.com/collabboard/server/pkg/llm/anthropic"
	"github.com/collabboard/server/pkg/llm/openaidialect"
	"github.com/collabboard/server/pkg/persistence"
	"github.com/collabboard/server/pkg/presence"
	"github.com/collabboard/server/pkg/reaper"
	"github.com/collabboard/server/pkg/savepoint"
	"github.com/collabboard/server/pkg/session"
	"github.com/collabboard/server/pkg/storage"
	"github.com/collabboard/server/pkg/tools"
	"github.com/collabboard/server/pkg/wsserver"
)

// staleBoardSweepSchedule re-checks every resident board every five
// minutes, far slower than the event-driven path; it only catches boards
// event-driven eviction missed.
const staleBoardSweepSchedule = "*/5 * * * *"

func main() {
	log := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	store := boardstore.New()
	boards := board.New(db, store)
	sessions := session.New(log)
	presenceReg := presence.NewRegistry()
	chatStore := chat.New()
	savepoints := savepoint.New(db, time.Duration(cfg.AutoSavepointDebounceMS)*time.Millisecond)
	frameLog := persistence.NewFrameLog()
	toolCatalog := tools.NewCatalogRegistry()

	orchestrator, err := newOrchestrator(cfg, db, log)
	if err != nil {
		return fmt.Errorf("configure LLM provider: %w", err)
	}

	d := dispatch.New(sessions, store, boards, presenceReg, chatStore, savepoints, frameLog, toolCatalog, orchestrator, db, log)

	persistWorker := persistence.New(store, db, frameLog, persistence.DefaultPause, log)
	go persistWorker.Run(ctx)

	staleReaper, err := reaper.New(staleBoardSweepSchedule, d, log)
	if err != nil {
		return fmt.Errorf("configure stale-board reaper: %w", err)
	}
	staleReaper.Start()
	defer staleReaper.Stop()

	tickets := httpapi.NewTicketIssuer()
	rest := httpapi.New(boards, store, tickets, cfg, log)
	ws := wsserver.New(sessions, d, tickets, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", rest.Handler())

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newOrchestrator wires the configured LLM provider into an AI
// orchestrator, or returns a nil orchestrator when none is configured
// (spec §4.K: ai:prompt then fails fast with E_LLM instead of panicking).
func newOrchestrator(cfg *config.Config, db *storage.DB, log zerolog.Logger) (*ai.Orchestrator, error) {
	var provider llm.Provider
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		provider = anthropic.New(cfg.LLMAPIKey, cfg.LLMModel)
	case config.ProviderOpenAI:
		provider = openaidialect.New(cfg.LLMAPIKey, cfg.LLMModel)
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	return ai.New(provider, db, cfg.LLMModel, log), nil
}
