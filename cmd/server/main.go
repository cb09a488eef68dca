package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/insidedeveloper888/draftio/internal/assistant"
	anthropicdraft "github.com/insidedeveloper888/draftio/internal/assistant/anthropic"
	loremdraft "github.com/insidedeveloper888/draftio/internal/assistant/lorem"
	"github.com/insidedeveloper888/draftio/internal/auth"
	"github.com/insidedeveloper888/draftio/internal/board"
	"github.com/insidedeveloper888/draftio/internal/collab"
	"github.com/insidedeveloper888/draftio/internal/config"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/handler"
	"github.com/insidedeveloper888/draftio/internal/middleware"
	"github.com/insidedeveloper888/draftio/internal/store/memory"
	"github.com/insidedeveloper888/draftio/internal/store/notify"
	"github.com/insidedeveloper888/draftio/internal/store/postgres"
)

func main() {
	// .env is optional; production configures through the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.OpenLogFile(cfg.LogDir)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier := buildVerifier(cfg, logger)
	defer verifier.Close()

	projectStore, fallback, cleanup := buildStore(ctx, cfg, logger)
	defer cleanup()

	provider := buildProvider(cfg, logger)

	sessions := collab.NewSessions(collab.Config{
		Store:       projectStore,
		Fallback:    fallback,
		Logger:      logger,
		IdleTimeout: cfg.IdleTimeout,
	})
	boardSvc := board.NewBoard(projectStore, logger)

	projectHandler := handler.NewProjectHandler(sessions, projectStore, logger)
	boardHandler := handler.NewBoardHandler(boardSvc, projectStore, logger)
	draftHandler := handler.NewDraftHandler(sessions, provider, boardSvc, logger)
	streamHandler := handler.NewStreamHandler(projectStore, sessions, logger)
	rosterHandler := handler.NewRosterHandler(projectStore, logger)
	exportHandler := handler.NewExportHandler(projectStore, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", projectHandler.HealthCheck)

	// Project lifecycle and sessions
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)
	mux.HandleFunc("POST /api/projects/{id}/open", projectHandler.OpenProject)
	mux.HandleFunc("POST /api/projects/{id}/close", projectHandler.CloseProject)

	// Lease operations
	mux.HandleFunc("GET /api/projects/{id}/lease", projectHandler.GetLease)
	mux.HandleFunc("POST /api/projects/{id}/lease/acquire", projectHandler.AcquireLease)
	mux.HandleFunc("POST /api/projects/{id}/lease/release", projectHandler.ReleaseLease)

	// Prose editing (lease-gated)
	mux.HandleFunc("PUT /api/projects/{id}/content", projectHandler.UpdateContent)
	mux.HandleFunc("POST /api/projects/{id}/save", projectHandler.SaveProject)

	// Drafting assistant
	mux.HandleFunc("POST /api/projects/{id}/chat", draftHandler.Chat)
	mux.HandleFunc("POST /api/projects/{id}/extract", draftHandler.Extract)
	mux.HandleFunc("POST /api/projects/{id}/import", draftHandler.Import)

	// Task board
	mux.HandleFunc("GET /api/projects/{id}/tasks", boardHandler.ListTasks)
	mux.HandleFunc("POST /api/projects/{id}/tasks", boardHandler.AddTask)
	mux.HandleFunc("PATCH /api/projects/{id}/tasks/{taskId}", boardHandler.UpdateTask)
	mux.HandleFunc("POST /api/projects/{id}/tasks/{taskId}/move", boardHandler.MoveTask)
	mux.HandleFunc("DELETE /api/projects/{id}/tasks/{taskId}", boardHandler.DeleteTask)
	mux.HandleFunc("POST /api/projects/{id}/tasks/{taskId}/time", boardHandler.LogTime)
	mux.HandleFunc("DELETE /api/projects/{id}/time/{entryId}", boardHandler.DeleteTimeEntry)
	mux.HandleFunc("POST /api/projects/{id}/tasks/{taskId}/comments", boardHandler.AddComment)
	mux.HandleFunc("PATCH /api/projects/{id}/comments/{commentId}", boardHandler.EditComment)
	mux.HandleFunc("DELETE /api/projects/{id}/comments/{commentId}", boardHandler.DeleteComment)

	// Export
	mux.HandleFunc("GET /api/projects/{id}/export/{kind}", exportHandler.Export)

	// Roster
	mux.HandleFunc("GET /api/members", rosterHandler.ListMembers)
	mux.HandleFunc("POST /api/members/me", rosterHandler.TouchMe)

	// Live feeds
	mux.HandleFunc("GET /api/projects/{id}/stream", streamHandler.ProjectStream)
	mux.HandleFunc("GET /api/stream/projects", streamHandler.ListingStream)
	mux.HandleFunc("GET /api/stream/members", streamHandler.MembersStream)

	var root http.Handler = mux
	root = middleware.Auth(verifier, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS runs outermost so OPTIONS pre-flights never hit auth.
	root = cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	}).Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Release held leases before the listener closes so other
		// sessions are not stuck waiting out the timeout.
		sessions.CloseAll(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildVerifier(cfg *config.Config, logger *slog.Logger) auth.Verifier {
	if cfg.JWKSURL != "" {
		verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		return verifier
	}

	verifier, err := auth.NewDevVerifier(cfg.Environment)
	if err != nil {
		log.Fatalf("JWKS_URL is required outside dev: %v", err)
	}
	logger.Warn("DEV MODE: accepting unsigned dev tokens (set JWKS_URL for real auth)")
	return verifier
}

// buildStore wires the primary store. With a database URL it is Postgres,
// with Redis fan-out when configured and an in-memory fallback for degraded
// mode. Without one the whole server runs on the in-memory store.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.ProjectStore, store.ProjectStore, func()) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no DATABASE_URL, running on the in-memory store")
		return memory.New(), nil, func() {}
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	logger.Info("database connected", "max_conns", 25, "min_conns", 5)

	var broadcaster *notify.RedisBroadcaster
	if cfg.RedisURL != "" {
		broadcaster, err = notify.NewRedisBroadcaster(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		logger.Info("redis change broadcast enabled")
	}

	pgStore := postgres.New(pool, postgres.NewTableNames(cfg.TablePrefix), broadcaster, logger)
	if err := pgStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	go func() {
		if err := pgStore.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("change feed stopped", "error", err)
		}
	}()

	cleanup := func() {
		if broadcaster != nil {
			broadcaster.Close()
		}
		pool.Close()
	}
	return pgStore, memory.New(), cleanup
}

func buildProvider(cfg *config.Config, logger *slog.Logger) assistant.Provider {
	prompts, err := assistant.LoadPrompts()
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	if cfg.DraftProvider == "anthropic" && cfg.AnthropicAPIKey != "" {
		provider, err := anthropicdraft.NewProvider(cfg.AnthropicAPIKey, cfg.DraftModel, prompts)
		if err != nil {
			log.Fatalf("Failed to create drafting provider: %v", err)
		}
		logger.Info("drafting assistant ready", "provider", provider.Name())
		return provider
	}

	logger.Warn("no ANTHROPIC_API_KEY, using the lorem drafting provider")
	return loremdraft.NewProvider()
}
