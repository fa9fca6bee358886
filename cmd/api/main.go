package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"dataagent/internal/agent"
	"dataagent/internal/api"
	"dataagent/internal/cache"
	"dataagent/internal/config"
	"dataagent/internal/dispatch"
	"dataagent/internal/logging"
	"dataagent/internal/providers"
	"dataagent/internal/session"
	"dataagent/internal/storage"
	"dataagent/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.LoadWithProfile()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	var a agent.Agent
	if cfg.TemporalMode() {
		c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			logger.Fatal("dial temporal", zap.Error(err))
		}
		defer c.Close()
		a = workflows.NewRunner(c, cfg.TemporalTaskQueue, cfg.DataDir, time.Duration(cfg.AgentTimeoutSecs)*time.Second)
	} else {
		pm, err := providers.NewManager(cfg)
		if err != nil {
			logger.Fatal("build providers", zap.Error(err))
		}
		a = agent.NewExecutor(pm,
			agent.WithInstructions(cfg.Agent.Instructions),
			agent.WithMaxIterations(cfg.Agent.MaxIterations),
			agent.WithTemperature(cfg.Agent.Temperature),
			agent.WithMaxTokens(cfg.Agent.MaxTokens),
			agent.WithLogger(logger.Named("agent")),
		)
	}

	c, err := cache.New(cfg.CacheSize)
	if err != nil {
		logger.Fatal("build cache", zap.Error(err))
	}
	opts := []dispatch.Option{
		dispatch.WithLogger(logger.Named("dispatch")),
		dispatch.WithSampleRows(cfg.SampleRows),
		dispatch.WithTimeout(time.Duration(cfg.AgentTimeoutSecs) * time.Second),
	}
	if cfg.PostgresURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err == nil {
			err = db.EnsureSchema(ctx)
		}
		cancel()
		if err != nil {
			logger.Fatal("open audit store", zap.Error(err))
		}
		defer db.Close()
		opts = append(opts, dispatch.WithAudit(storage.NewAuditRepo(db)))
	}

	srv := api.NewServer(cfg, dispatch.New(a, c, opts...), session.NewStore(), logger.Named("api"))
	logger.Info("dataagent api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("agent_mode", cfg.AgentMode),
		zap.String("llm_providers", cfg.LLMProviders),
		zap.Int("cache_size", cfg.CacheSize),
		zap.Bool("audit", cfg.PostgresURL != ""),
	)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
