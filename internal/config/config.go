package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
)

// Config holds all host configuration
type Config struct {
	Mpesa         MpesaConfig
	SecretManager SecretManagerConfig
	Logger        LoggerConfig
}

// MpesaConfig holds the client settings and any credentials given inline
type MpesaConfig struct {
	Environment       mpesa.Environment
	ConsumerKey       string
	ConsumerSecret    secret.Secret
	InitiatorName     string
	InitiatorPassword secret.Secret

	HTTPTimeout    time.Duration
	RateLimitRPS   float64 // 0 disables the limiter
	RateLimitBurst int
	TokenMargin    time.Duration

	// CertificatePath overrides the embedded provider certificate when set
	CertificatePath string
}

// SecretManagerConfig selects where credentials not given inline are read from
type SecretManagerConfig struct {
	Backend  string // env, local, aws, vault, gcp
	CacheTTL time.Duration

	// Secret paths, resolved against the selected backend
	ConsumerKeyPath       string
	ConsumerSecretPath    string
	InitiatorPasswordPath string

	LocalPath string

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	VaultAddress    string
	VaultAuthMethod string
	VaultToken      string
	VaultRoleID     string
	VaultSecretID   string
	VaultMountPath  string
	VaultKVVersion  string

	GCPProjectID string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	env, err := mpesa.ParseEnvironment(getEnv("MPESA_ENVIRONMENT", "sandbox"))
	if err != nil {
		return nil, fmt.Errorf("MPESA_ENVIRONMENT: %w", err)
	}

	pathPrefix := "mpesa/" + env.String()

	cfg := &Config{
		Mpesa: MpesaConfig{
			Environment:       env,
			ConsumerKey:       getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret:    secret.New(getEnv("MPESA_CONSUMER_SECRET", "")),
			InitiatorName:     getEnv("MPESA_INITIATOR_NAME", ""),
			InitiatorPassword: secret.New(getEnv("MPESA_INITIATOR_PASSWORD", "")),
			HTTPTimeout:       time.Duration(getEnvAsInt("MPESA_HTTP_TIMEOUT", 30)) * time.Second,
			RateLimitRPS:      getEnvAsFloat("MPESA_RATE_LIMIT_RPS", 0),
			RateLimitBurst:    getEnvAsInt("MPESA_RATE_LIMIT_BURST", 1),
			TokenMargin:       time.Duration(getEnvAsInt("MPESA_TOKEN_MARGIN_SECONDS", 60)) * time.Second,
			CertificatePath:   getEnv("MPESA_CERTIFICATE_PATH", ""),
		},
		SecretManager: SecretManagerConfig{
			Backend:               getEnv("SECRET_MANAGER", "env"),
			CacheTTL:              time.Duration(getEnvAsInt("SECRET_CACHE_TTL_MINUTES", 5)) * time.Minute,
			ConsumerKeyPath:       getEnv("MPESA_CONSUMER_KEY_PATH", pathPrefix+"/consumer-key"),
			ConsumerSecretPath:    getEnv("MPESA_CONSUMER_SECRET_PATH", pathPrefix+"/consumer-secret"),
			InitiatorPasswordPath: getEnv("MPESA_INITIATOR_PASSWORD_PATH", ""),
			LocalPath:             getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			AWSRegion:             getEnv("AWS_REGION", "eu-west-1"),
			AWSProfile:            getEnv("AWS_PROFILE", ""),
			AWSEndpoint:           getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:          getEnv("VAULT_ADDR", ""),
			VaultAuthMethod:       getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:            getEnv("VAULT_TOKEN", ""),
			VaultRoleID:           getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID:         getEnv("VAULT_SECRET_ID", ""),
			VaultMountPath:        getEnv("VAULT_MOUNT_PATH", "secret"),
			VaultKVVersion:        getEnv("VAULT_KV_VERSION", "v2"),
			GCPProjectID:          getEnv("GCP_PROJECT_ID", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mpesa.HTTPTimeout <= 0 {
		return fmt.Errorf("MPESA_HTTP_TIMEOUT must be positive")
	}
	if c.Mpesa.RateLimitRPS < 0 {
		return fmt.Errorf("MPESA_RATE_LIMIT_RPS must not be negative")
	}
	if c.Mpesa.RateLimitRPS > 0 && c.Mpesa.RateLimitBurst < 1 {
		return fmt.Errorf("MPESA_RATE_LIMIT_BURST must be at least 1")
	}

	sm := c.SecretManager
	switch sm.Backend {
	case "env":
		// Only inline values are used; a missing key surfaces when the client is built
	case "local":
		if sm.LocalPath == "" {
			return fmt.Errorf("SECRETS_LOCAL_PATH is required when SECRET_MANAGER=local")
		}
	case "aws":
		if sm.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when SECRET_MANAGER=aws")
		}
	case "vault":
		if sm.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDR is required when SECRET_MANAGER=vault")
		}
	case "gcp":
		if sm.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when SECRET_MANAGER=gcp")
		}
	default:
		return fmt.Errorf("unsupported SECRET_MANAGER: %s", sm.Backend)
	}

	return nil
}

// ResolveCredentials builds client credentials. Inline values win; anything
// missing is read from store at the configured path. store may be nil when
// the backend is "env".
func (c *Config) ResolveCredentials(ctx context.Context, store ports.SecretManagerAdapter) (mpesa.Credentials, error) {
	creds := mpesa.Credentials{
		ConsumerKey:       c.Mpesa.ConsumerKey,
		ConsumerSecret:    c.Mpesa.ConsumerSecret,
		InitiatorName:     c.Mpesa.InitiatorName,
		InitiatorPassword: c.Mpesa.InitiatorPassword,
	}

	if store == nil || c.SecretManager.Backend == "env" {
		return creds, nil
	}

	if creds.ConsumerKey == "" {
		value, err := fetch(ctx, store, c.SecretManager.ConsumerKeyPath)
		if err != nil {
			return mpesa.Credentials{}, fmt.Errorf("consumer key: %w", err)
		}
		creds.ConsumerKey = value
	}

	if creds.ConsumerSecret.IsEmpty() {
		value, err := fetch(ctx, store, c.SecretManager.ConsumerSecretPath)
		if err != nil {
			return mpesa.Credentials{}, fmt.Errorf("consumer secret: %w", err)
		}
		creds.ConsumerSecret = secret.New(value)
	}

	if creds.InitiatorPassword.IsEmpty() && c.SecretManager.InitiatorPasswordPath != "" {
		value, err := fetch(ctx, store, c.SecretManager.InitiatorPasswordPath)
		if err != nil {
			return mpesa.Credentials{}, fmt.Errorf("initiator password: %w", err)
		}
		creds.InitiatorPassword = secret.New(value)
	}

	return creds, nil
}

func fetch(ctx context.Context, store ports.SecretManagerAdapter, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no secret path configured")
	}
	s, err := store.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	if s == nil || s.Value == "" {
		return "", fmt.Errorf("secret %s is empty", path)
	}
	return s.Value, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
