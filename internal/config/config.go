package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	AgentModeInline   = "inline"
	AgentModeTemporal = "temporal"
)

type Config struct {
	APIAddr           string
	TemporalAddress   string
	TemporalTaskQueue string
	PostgresURL       string
	DataDir           string
	LLMProviders      string
	AgentMode         string
	AgentProfile      string
	AgentTimeoutSecs  int
	SampleRows        int
	CacheSize         int
	UploadMaxMB       int
	LogLevel          string
	LogFormat         string
	Agent             AgentSettings
}

// AgentSettings tune the reasoning loop. A YAML profile may override them.
type AgentSettings struct {
	Instructions  string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

func Load() Config {
	return Config{
		APIAddr:           getenv("DATAAGENT_API_ADDR", ":8080"),
		TemporalAddress:   getenv("DATAAGENT_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue: getenv("DATAAGENT_TEMPORAL_TASK_QUEUE", "dataagent"),
		PostgresURL:       os.Getenv("DATAAGENT_POSTGRES_URL"),
		DataDir:           getenv("DATAAGENT_DATA_DIR", "./data"),
		LLMProviders:      getenv("DATAAGENT_LLM_PROVIDERS", "mock"),
		AgentMode:         strings.ToLower(getenv("DATAAGENT_AGENT_MODE", AgentModeInline)),
		AgentProfile:      os.Getenv("DATAAGENT_AGENT_PROFILE"),
		AgentTimeoutSecs:  getenvInt("DATAAGENT_AGENT_TIMEOUT_SECS", 300),
		SampleRows:        getenvInt("DATAAGENT_SAMPLE_ROWS", 1000),
		CacheSize:         getenvInt("DATAAGENT_CACHE_SIZE", 0),
		UploadMaxMB:       getenvInt("DATAAGENT_UPLOAD_MAX_MB", 50),
		LogLevel:          getenv("DATAAGENT_LOG_LEVEL", "info"),
		LogFormat:         getenv("DATAAGENT_LOG_FORMAT", "console"),
		Agent: AgentSettings{
			MaxIterations: getenvInt("DATAAGENT_MAX_ITERATIONS", 32),
			Temperature:   getenvFloat("DATAAGENT_TEMPERATURE", 0),
			MaxTokens:     getenvInt("DATAAGENT_MAX_TOKENS", 8192),
		},
	}
}

func (c Config) TemporalMode() bool {
	return c.AgentMode == AgentModeTemporal
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
