// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aihubjp/eventhub/internal/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"EVENTHUB_DB_PATH" envDefault:"./data/eventhub.db"`
	ServerHost string `env:"EVENTHUB_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"EVENTHUB_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"EVENTHUB_ENV" envDefault:"development"`
	LogLevel   string `env:"EVENTHUB_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL    string `env:"EVENTHUB_REDIS_URL"`                        // Optional Redis URL for distributed caching
	CachePrefix string `env:"EVENTHUB_CACHE_PREFIX" envDefault:"eventhub:"`
	CacheTTL    int    `env:"EVENTHUB_CACHE_TTL" envDefault:"3600"` // Default cache TTL in seconds

	// Sync configuration
	SyncCronSpec string `env:"EVENTHUB_SYNC_CRON" envDefault:"@hourly"`
	// Per-source sync cache TTLs in seconds. Model providers publish on a
	// slower cadence than the default, partner feeds slower still.
	SyncTTLDefault  int `env:"EVENTHUB_SYNC_TTL_DEFAULT" envDefault:"3600"`
	SyncTTLOpenAI   int `env:"EVENTHUB_SYNC_TTL_OPENAI" envDefault:"21600"`
	SyncTTLGemini   int `env:"EVENTHUB_SYNC_TTL_GEMINI" envDefault:"21600"`
	SyncTTLCohere   int `env:"EVENTHUB_SYNC_TTL_COHERE" envDefault:"21600"`
	SyncTTLSoftBank int `env:"EVENTHUB_SYNC_TTL_SOFTBANK" envDefault:"43200"`
	SyncTTLOracle   int `env:"EVENTHUB_SYNC_TTL_ORACLE" envDefault:"86400"`
	SyncTTLMGX      int `env:"EVENTHUB_SYNC_TTL_MGX" envDefault:"28800"`

	// Provider credentials and endpoints. An empty API key or base URL puts
	// the adapter in sample mode.
	OpenAIAPIKey   string `env:"EVENTHUB_OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"EVENTHUB_OPENAI_BASE_URL"`
	GeminiAPIKey   string `env:"EVENTHUB_GEMINI_API_KEY"`
	GeminiBaseURL  string `env:"EVENTHUB_GEMINI_BASE_URL"`
	CohereAPIKey   string `env:"EVENTHUB_COHERE_API_KEY"`
	CohereBaseURL  string `env:"EVENTHUB_COHERE_BASE_URL"`
	SoftBankAPIKey string `env:"EVENTHUB_SOFTBANK_API_KEY"`
	SoftBankURL    string `env:"EVENTHUB_SOFTBANK_BASE_URL"`
	OracleAPIKey   string `env:"EVENTHUB_ORACLE_API_KEY"`
	OracleURL      string `env:"EVENTHUB_ORACLE_BASE_URL"`
	MGXAPIKey      string `env:"EVENTHUB_MGX_API_KEY"`
	MGXURL         string `env:"EVENTHUB_MGX_BASE_URL"`

	// Rate limiting
	APIRateLimit    float64 `env:"EVENTHUB_API_RATE_LIMIT" envDefault:"10"`    // per API key, requests/second
	APIRateBurst    int     `env:"EVENTHUB_API_RATE_BURST" envDefault:"20"`
	GlobalRateLimit float64 `env:"EVENTHUB_GLOBAL_RATE_LIMIT" envDefault:"20"` // per IP, requests/second
	GlobalRateBurst int     `env:"EVENTHUB_GLOBAL_RATE_BURST" envDefault:"40"`

	// Audit log retention in days
	AuditRetentionDays int `env:"EVENTHUB_AUDIT_RETENTION_DAYS" envDefault:"90"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SyncTTLs returns the per-source sync cache TTLs keyed by source name.
func (c Config) SyncTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		model.SourceOpenAI:   time.Duration(c.SyncTTLOpenAI) * time.Second,
		model.SourceGemini:   time.Duration(c.SyncTTLGemini) * time.Second,
		model.SourceCohere:   time.Duration(c.SyncTTLCohere) * time.Second,
		model.SourceSoftBank: time.Duration(c.SyncTTLSoftBank) * time.Second,
		model.SourceOracle:   time.Duration(c.SyncTTLOracle) * time.Second,
		model.SourceMGX:      time.Duration(c.SyncTTLMGX) * time.Second,
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
