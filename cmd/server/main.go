package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tdiprima/langchain-flask-api/config"
	"github.com/tdiprima/langchain-flask-api/internal/application"
	"github.com/tdiprima/langchain-flask-api/internal/discovery"
	"github.com/tdiprima/langchain-flask-api/internal/domain"
	"github.com/tdiprima/langchain-flask-api/internal/handler"
	"github.com/tdiprima/langchain-flask-api/internal/history"
	"github.com/tdiprima/langchain-flask-api/internal/llm"
	"github.com/tdiprima/langchain-flask-api/internal/persistence"
	"github.com/tdiprima/langchain-flask-api/internal/registry"
	"github.com/tdiprima/langchain-flask-api/internal/security"
)

func main() {
	// .env 仅用于本地开发, 缺失时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := buildLogger(cfg.Environment)
	defer logger.Sync()
	sugar := logger.Sugar()

	snapshotter, closer, err := buildSnapshotter(cfg, sugar)
	if err != nil {
		sugar.Fatalw("init persistence backend", "backend", cfg.Persistence.Backend, "error", err)
	}
	if closer != nil {
		defer closer()
	}

	store := history.NewStore(cfg.History.MaxLength)

	tokens := security.NewJWTService(cfg.Auth.JwtSecret, cfg.Auth.ExpireAccessH, cfg.Auth.ExpireRefreshH)
	users := persistence.NewUserFileStore(cfg.Persistence.UsersFile)
	reg := registry.NewRegistry(tokens, security.NewBcryptEncoder(), users, store.Has, sugar)
	if err := reg.LoadUsers(context.Background()); err != nil {
		sugar.Errorw("load users, starting with none", "error", err)
	}

	completer := buildCompleter(cfg, sugar)

	svc := application.NewChatService(store, reg, completer, snapshotter, cfg.Persistence.FlushOnAppend, sugar)
	svc.RestoreHistories(context.Background())

	chatHandler := handler.NewChatHandler(svc, sugar)
	authHandler := handler.NewAuthHandler(reg, sugar)
	router := handler.NewRouter(chatHandler, authHandler, tokens, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	var registrar *discovery.Registrar
	if cfg.Consul.Enabled {
		registrar, err = discovery.NewRegistrar(&cfg.Consul, sugar)
		if err != nil {
			sugar.Fatalw("consul init", "error", err)
		}
		if err := registrar.Register(cfg.ServerName, cfg.Port); err != nil {
			sugar.Fatalw("consul register", "error", err)
		}
	}

	go func() {
		sugar.Infow("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutdown signal received")

	if registrar != nil {
		registrar.Deregister()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("server shutdown", "error", err)
	}

	// Final snapshot so nothing since the last flush is lost.
	if err := svc.SaveHistories(ctx); err != nil {
		sugar.Errorw("final snapshot", "error", err)
	}
	sugar.Info("server stopped")
}

func buildLogger(environment string) *zap.Logger {
	if environment == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("init logger: %v", err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}

// buildSnapshotter picks the snapshot backend. The returned closer is nil
// for backends without a connection to release.
func buildSnapshotter(cfg *config.AppConfig, logger *zap.SugaredLogger) (domain.Snapshotter, func(), error) {
	switch cfg.Persistence.Backend {
	case "file", "":
		return persistence.NewFileStore(cfg.Persistence.HistoryFile), nil, nil
	case "postgres":
		store, err := persistence.NewPostgresStore(cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "redis":
		store, err := persistence.NewRedisStore(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.Database, cfg.Persistence.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Errorw("close redis", "error", err)
			}
		}, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}

func buildCompleter(cfg *config.AppConfig, logger *zap.SugaredLogger) domain.Completer {
	switch cfg.LLM.Provider {
	case "stub":
		logger.Warn("using stub completer, answers are canned")
		return llm.NewStubCompleter()
	default:
		if cfg.LLM.APIKey == "" {
			logger.Warn("no API key configured, falling back to stub completer")
			return llm.NewStubCompleter()
		}
		return llm.NewClient(llm.Options{
			APIKey:      cfg.LLM.APIKey,
			Endpoint:    cfg.LLM.Endpoint,
			APIVersion:  cfg.LLM.APIVersion,
			Deployment:  cfg.LLM.Deployment,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	}
}
