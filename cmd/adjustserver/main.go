// Command adjustserver runs the HTTP API that accepts FCM structural-
// parametric adjustment runs and persists their progress to Postgres.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fcmstudio/adjustment/internal/infrastructure/config"
	"github.com/fcmstudio/adjustment/internal/infrastructure/httpapi"
	"github.com/fcmstudio/adjustment/internal/infrastructure/logger"
	"github.com/fcmstudio/adjustment/internal/infrastructure/storage"
)

func main() {
	var (
		port    = flag.String("port", "", "Server port (overrides config)")
		apiKeys = flag.String("api-key-hashes", "", "Comma-separated bcrypt API key hashes")
	)
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.Setup(cfg.LogLevel)
	log.Info().Str("version", "1.0.0").Str("port", cfg.Port).Msg("starting adjustment server")

	store := storage.NewBunStore(cfg.DatabaseDSN)
	log.Info().Str("dsn", maskDSN(cfg.DatabaseDSN)).Msg("using BunStore (PostgreSQL)")

	ctx := context.Background()
	if err := store.InitSchema(ctx); err != nil {
		log.Error().Err(err).Msg("failed to initialize database schema")
		os.Exit(1)
	}
	log.Info().Msg("database schema initialized")

	var apiKeyHashes []string
	if *apiKeys != "" {
		for _, key := range strings.Split(*apiKeys, ",") {
			if key = strings.TrimSpace(key); key != "" {
				apiKeyHashes = append(apiKeyHashes, key)
			}
		}
		log.Info().Int("count", len(apiKeyHashes)).Msg("api key authentication enabled")
	}

	auth := httpapi.NewBearerAuth(cfg.JWTSigningKey, apiKeyHashes)
	runner := httpapi.NewRunner(store, log, cfg.DefaultGenerationSize, cfg.DefaultGenerationSaveInterval)
	srv := httpapi.NewServer(runner, auth, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	}()

	log.Info().
		Str("health", "GET /health").
		Str("ready", "GET /ready").
		Str("create_run", "POST /api/v1/adjustment-runs").
		Str("get_run", "GET /api/v1/adjustment-runs/{id}").
		Msg("available endpoints")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close storage")
	}

	log.Info().Msg("server exited gracefully")
}

// maskDSN masks the password segment of a Postgres DSN for safe logging.
func maskDSN(dsn string) string {
	if len(dsn) == 0 {
		return ""
	}
	start, end := -1, -1
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' && start == -1 {
			if i+1 < len(dsn) && dsn[i+1] != '/' {
				start = i + 1
			}
		}
		if dsn[i] == '@' && start != -1 {
			end = i
			break
		}
	}
	if start != -1 && end != -1 && end > start {
		return dsn[:start] + "***" + dsn[end:]
	}
	return dsn
}
