package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"dataagent/internal/activities"
	"dataagent/internal/agent"
	"dataagent/internal/config"
	"dataagent/internal/logging"
	"dataagent/internal/providers"
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

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

	pm, err := providers.NewManager(cfg)
	if err != nil {
		logger.Fatal("build providers", zap.Error(err))
	}
	exec := agent.NewExecutor(pm,
		agent.WithInstructions(cfg.Agent.Instructions),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithTemperature(cfg.Agent.Temperature),
		agent.WithMaxTokens(cfg.Agent.MaxTokens),
		agent.WithLogger(logger.Named("agent")),
	)

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(exec))

	logger.Info("dataagent worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.Strings("llm_providers", providerNames(pm)),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}

func providerNames(pm *providers.Manager) []string {
	var out []string
	for _, ref := range pm.LLMProviderRefs() {
		out = append(out, ref.Raw)
	}
	return out
}
