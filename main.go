package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hospitalbot-poc/server/internal/core"
	"github.com/hospitalbot-poc/server/internal/intake/lock"
	"github.com/hospitalbot-poc/server/internal/intake/model"
	"github.com/hospitalbot-poc/server/internal/intake/nlu"
	"github.com/hospitalbot-poc/server/internal/intake/ontology"
	"github.com/hospitalbot-poc/server/internal/intake/repo"
	"github.com/hospitalbot-poc/server/internal/intake/router"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
	pkgredis "github.com/hospitalbot-poc/server/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig defines all configurable parameters for the webhook service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Server model.ServerConfig
	Store  model.StoreConfig
	Redis  pkgredis.Config
	Lock   model.SessionLockConfig

	// NLU provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`
	NLU     model.NLUModelConfig

	// Ontology oracle
	Ontology model.OntologyConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(envCfg.Server.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})
	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Persistence gateway
	store, err := repo.NewStore(envCfg.Store)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise store")
	}
	defer store.Close()

	// Per-session serialisation point. Redis when configured, in-process
	// otherwise (single-instance deployments).
	var locker lock.Locker
	if envCfg.Redis.URL != "" {
		rdb, err := envCfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to initialise Redis client")
		}
		defer rdb.Close()
		locker, err = lock.NewRedisLocker(rdb, envCfg.Lock)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to initialise session locker")
		}
		logx.Info().Msg("using Redis session locker")
	} else {
		locker = lock.NewLocalLocker()
		logx.Warn().Msg("REDIS_URL not set, using in-process session locker")
	}

	// Ontology oracle, optional
	var graph *ontology.Graph
	if envCfg.Ontology.Path != "" {
		graph, err = ontology.Load(envCfg.Ontology.Path)
		if err != nil {
			logx.Fatal().Err(err).Str("path", envCfg.Ontology.Path).Msg("failed to load ontology")
		}
	} else {
		logx.Warn().Msg("ONTOLOGY_PATH not set, classification skips the ontology pre-check")
	}

	// Intent engine client, optional
	var classifier nlu.Classifier
	if envCfg.APIKey != "" {
		classifier, err = nlu.NewGeminiClassifier(ctx, nlu.GeminiConfig{
			APIKey:  envCfg.APIKey,
			BaseURL: envCfg.BaseURL,
			Model:   envCfg.NLU,
		})
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to initialise intent engine client")
		}
	} else {
		logx.Warn().Msg("GEMINI_API_KEY not set, classification fallback disabled")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	router.SetupRoutes(engine, router.New(store, locker), store, graph, classifier)

	srv := &http.Server{
		Addr:              envCfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", envCfg.Server.Addr).Msg("webhook service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}
