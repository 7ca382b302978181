package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	rediscache "github.com/vncsmyrnk/election/internal/adapters/cache/redis"
	"github.com/vncsmyrnk/election/internal/adapters/handler/http"
	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"github.com/vncsmyrnk/election/internal/core/services"
	"github.com/vncsmyrnk/election/internal/platform/config"
	"github.com/vncsmyrnk/election/internal/platform/httpserver"
	"github.com/vncsmyrnk/election/internal/platform/logger"
	"github.com/vncsmyrnk/election/internal/platform/metrics"
	platformredis "github.com/vncsmyrnk/election/internal/platform/redis"
)

type repositories struct {
	elections  ports.ElectionRepository
	candidates ports.CandidateRepository
	users      ports.UserRepository
	close      func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer repos.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(metrics.New(registry)),
		services.WithMaxRetries(cfg.VoteMaxRetries),
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, services.WithStatsCache(rediscache.NewStatsCache(redisClient, rediscache.WithTTL(cfg.StatsCacheTTL))))
		logger.Info("stats cache enabled", "ttl", cfg.StatsCacheTTL.String())
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, using a random secret for this process")
	}

	electionService := services.NewElectionService(repos.elections, repos.candidates, opts...)
	candidateService := services.NewCandidateService(repos.candidates, repos.elections, opts...)
	statsService := services.NewStatsService(repos.elections, repos.users, opts...)
	userService := services.NewUserService(repos.users)

	handler := http.NewHandler(http.Handlers{
		Elections:  http.NewElectionHandler(electionService, statsService, logger),
		Candidates: http.NewCandidateHandler(candidateService, logger),
		Users:      http.NewUserHandler(userService, logger),
	}, http.NewAuthenticator(secret, logger), registry, logger)

	server := httpserver.New(cfg.Addr, handler)

	go func() {
		logger.Info("listening", "addr", cfg.Addr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}

func openRepositories(ctx context.Context, cfg config.Config) (*repositories, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return &repositories{
			elections:  memory.NewElectionStore(),
			candidates: memory.NewCandidateStore(),
			users:      memory.NewUserStore(),
			close:      func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return &repositories{
		elections:  postgres.NewElectionRepository(db),
		candidates: postgres.NewCandidateRepository(db),
		users:      postgres.NewUserRepository(db),
		close:      db.Close,
	}, nil
}
