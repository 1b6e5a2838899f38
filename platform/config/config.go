// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// TokenConfig provides settings for signed session tokens.
type TokenConfig interface {
	GetSessionTokenSecret() string
	GetSessionTokenTTL() time.Duration
}

// SessionConfig provides session registry and sweeper settings.
type SessionConfig interface {
	GetSessionIdleThreshold() time.Duration
	GetSessionSweepInterval() time.Duration
	GetSweepConcurrency() int
	GetExternalCallTimeout() time.Duration
}

// BackendConfig provides settings for the backend record store.
type BackendConfig interface {
	GetBackendMode() string
	GetBackendBaseURL() string
	GetBackendAPIKey() string
	GetBackendRateLimit() float64
	GetExternalCallTimeout() time.Duration
}

// ReasonerConfig provides settings for the LLM reasoner.
type ReasonerConfig interface {
	GetReasonerAPIKey() string
	GetReasonerBaseURL() string
	GetReasonerModel() string
}

// VerificationConfig provides settings for the one-time code provider.
type VerificationConfig interface {
	GetVerifyMode() string
	GetVerifyBaseURL() string
	GetVerifyAPIKey() string
	GetVerifyCodeTTL() time.Duration
	GetExternalCallTimeout() time.Duration
}

// SMTPConfig provides settings for mail delivery of verification codes.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromAddress() string
	GetSMTPFromName() string
}

// RedisConfig provides settings for the Redis connection.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetHistoryTTL() time.Duration
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketReports() string
	IsMinIOEnabled() bool
}

// ScoringConfig provides the optional fit score weights file.
type ScoringConfig interface {
	GetScoringWeightsFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	SessionTokenSecret string
	SessionTokenTTL    time.Duration

	SessionIdleThreshold time.Duration
	SessionSweepInterval time.Duration
	SweepConcurrency     int
	ExternalCallTimeout  time.Duration

	BackendMode      string
	BackendBaseURL   string
	BackendAPIKey    string
	BackendRateLimit float64

	ReasonerAPIKey  string
	ReasonerBaseURL string
	ReasonerModel   string

	VerifyMode    string
	VerifyBaseURL string
	VerifyAPIKey  string
	VerifyCodeTTL time.Duration

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromAddress string
	SMTPFromName    string

	RedisURL         string
	RedisTLSInsecure bool
	HistoryTTL       time.Duration
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinioBucketReports string

	ScoringWeightsFile string
}

const (
	BackendModeREST     = "rest"
	BackendModePostgres = "postgres"

	VerifyModeREST = "rest"
	VerifyModeSMTP = "smtp"
)

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetSessionTokenSecret() string      { return c.SessionTokenSecret }
func (c *Config) GetSessionTokenTTL() time.Duration { return c.SessionTokenTTL }

func (c *Config) GetSessionIdleThreshold() time.Duration { return c.SessionIdleThreshold }
func (c *Config) GetSessionSweepInterval() time.Duration { return c.SessionSweepInterval }
func (c *Config) GetSweepConcurrency() int               { return c.SweepConcurrency }
func (c *Config) GetExternalCallTimeout() time.Duration  { return c.ExternalCallTimeout }

func (c *Config) GetBackendMode() string       { return c.BackendMode }
func (c *Config) GetBackendBaseURL() string    { return c.BackendBaseURL }
func (c *Config) GetBackendAPIKey() string     { return c.BackendAPIKey }
func (c *Config) GetBackendRateLimit() float64 { return c.BackendRateLimit }

func (c *Config) GetReasonerAPIKey() string  { return c.ReasonerAPIKey }
func (c *Config) GetReasonerBaseURL() string { return c.ReasonerBaseURL }
func (c *Config) GetReasonerModel() string   { return c.ReasonerModel }

func (c *Config) GetVerifyMode() string            { return c.VerifyMode }
func (c *Config) GetVerifyBaseURL() string         { return c.VerifyBaseURL }
func (c *Config) GetVerifyAPIKey() string          { return c.VerifyAPIKey }
func (c *Config) GetVerifyCodeTTL() time.Duration { return c.VerifyCodeTTL }

func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) GetSMTPFromName() string    { return c.SMTPFromName }

func (c *Config) GetRedisURL() string            { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool      { return c.RedisTLSInsecure }
func (c *Config) GetHistoryTTL() time.Duration   { return c.HistoryTTL }
func (c *Config) GetAsynqQueueName() string      { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int       { return c.AsynqConcurrency }

func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketReports() string { return c.MinioBucketReports }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

func (c *Config) GetScoringWeightsFile() string { return c.ScoringWeightsFile }

// =============================================================================
// Loader
// =============================================================================

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),

		SessionTokenSecret: getEnv("SESSION_TOKEN_SECRET", ""),
		SessionTokenTTL:    mustDuration(getEnv("SESSION_TOKEN_TTL", "12h")),

		SessionIdleThreshold: mustDuration(getEnv("SESSION_IDLE_THRESHOLD", "2m")),
		SessionSweepInterval: mustDuration(getEnv("SESSION_SWEEP_INTERVAL", "60s")),
		SweepConcurrency:     mustInt(getEnv("SESSION_SWEEP_CONCURRENCY", "4")),
		ExternalCallTimeout:  mustDuration(getEnv("EXTERNAL_CALL_TIMEOUT", "15s")),

		BackendMode:      strings.ToLower(getEnv("BACKEND_MODE", BackendModeREST)),
		BackendBaseURL:   strings.TrimRight(getEnv("BACKEND_BASE_URL", ""), "/"),
		BackendAPIKey:    getEnv("BACKEND_API_KEY", ""),
		BackendRateLimit: mustFloat(getEnv("BACKEND_RATE_LIMIT", "20")),

		ReasonerAPIKey:  getEnv("REASONER_API_KEY", ""),
		ReasonerBaseURL: getEnv("REASONER_BASE_URL", ""),
		ReasonerModel:   getEnv("REASONER_MODEL", ""),

		VerifyMode:    strings.ToLower(getEnv("VERIFY_MODE", VerifyModeREST)),
		VerifyBaseURL: strings.TrimRight(getEnv("VERIFY_BASE_URL", ""), "/"),
		VerifyAPIKey:  getEnv("VERIFY_API_KEY", ""),
		VerifyCodeTTL: mustDuration(getEnv("VERIFY_CODE_TTL", "10m")),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFromAddress: getEnv("SMTP_FROM_ADDRESS", ""),
		SMTPFromName:    getEnv("SMTP_FROM_NAME", "Hiring Assistant"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		HistoryTTL:       mustDuration(getEnv("HISTORY_TTL", "72h")),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "hiring"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),

		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketReports: getEnv("MINIO_BUCKET_REPORTS", "candidate-reports"),

		ScoringWeightsFile: getEnv("SCORING_WEIGHTS_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionTokenSecret == "" {
		return fmt.Errorf("SESSION_TOKEN_SECRET is required")
	}
	if c.SessionIdleThreshold <= 0 || c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_IDLE_THRESHOLD and SESSION_SWEEP_INTERVAL must be positive durations")
	}
	if c.ExternalCallTimeout <= 0 {
		return fmt.Errorf("EXTERNAL_CALL_TIMEOUT must be a positive duration")
	}
	switch c.BackendMode {
	case BackendModeREST:
		if c.BackendBaseURL == "" {
			return fmt.Errorf("BACKEND_BASE_URL is required when BACKEND_MODE is rest")
		}
	case BackendModePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when BACKEND_MODE is postgres")
		}
	default:
		return fmt.Errorf("unknown BACKEND_MODE %q", c.BackendMode)
	}
	switch c.VerifyMode {
	case VerifyModeREST:
		if c.VerifyBaseURL == "" {
			return fmt.Errorf("VERIFY_BASE_URL is required when VERIFY_MODE is rest")
		}
	case VerifyModeSMTP:
		if c.SMTPHost == "" || c.SMTPFromAddress == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM_ADDRESS are required when VERIFY_MODE is smtp")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when VERIFY_MODE is smtp")
		}
	default:
		return fmt.Errorf("unknown VERIFY_MODE %q", c.VerifyMode)
	}
	if c.ReasonerAPIKey == "" {
		return fmt.Errorf("REASONER_API_KEY is required")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
