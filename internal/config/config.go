// Package config defines the global configuration structure for the ZeusBolt
// backend. Configuration is loaded once at process startup and is immutable
// thereafter, following 12-Factor principles.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format fails startup immediately.
package config

import (
	"time"

	"zeusbolt/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"zeusbolt-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Billing       BillingConfig
	Auth          AuthConfig
	AI            AIConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Limits        LimitsConfig

	// Build Metadata (injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// DashboardURL is the public frontend URL used as the base for checkout
	// and portal redirects (no trailing slash), e.g. https://app.zeusbolt.io.
	DashboardURL string `envconfig:"DASHBOARD_URL" validate:"required,url"`

	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	// Resolved from SSM or Env
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS regional configuration for SSM secret resolution and
// CloudWatch metrics.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (empty in prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BillingConfig holds the payment provider credentials and the Pro plan price.
type BillingConfig struct {
	StripeSecretKey     SecretString `envconfig:"STRIPE_SECRET_KEY" validate:"required"`
	StripeWebhookSecret SecretString `envconfig:"STRIPE_WEBHOOK_SECRET" validate:"required"`
	// StripePriceID is the recurring price attached to checkout sessions.
	StripePriceID string `envconfig:"STRIPE_PRICE_ID" validate:"required"`
}

// AuthConfig holds the identity provider connection used to resolve bearer
// tokens into users.
type AuthConfig struct {
	SupabaseURL        string       `envconfig:"SUPABASE_URL" validate:"required,url"`
	SupabaseServiceKey SecretString `envconfig:"SUPABASE_SERVICE_KEY" validate:"required"`
}

// AIConfig holds the blueprint generation model configuration.
type AIConfig struct {
	OpenAIAPIKey SecretString  `envconfig:"OPENAI_API_KEY" validate:"required"`
	Model        string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	MaxTokens    int           `envconfig:"OPENAI_MAX_TOKENS" default:"700"`
	Temperature  float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.4"`
	Timeout      time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"ZeusBolt"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// LimitsConfig holds plan-gated product limits.
type LimitsConfig struct {
	// FreeProjectLimit is the maximum number of projects a free-tier user may
	// create. Pro users are unlimited.
	FreeProjectLimit int `envconfig:"FREE_PROJECT_LIMIT" default:"3"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
