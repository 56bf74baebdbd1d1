package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for HashiCorp Vault adapter
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token", "approle", "kubernetes"
	AuthMethod string

	// Token for token authentication
	Token string

	// AppRole credentials (if using AppRole auth)
	RoleID   string
	SecretID string

	// Kubernetes service account token path (if using Kubernetes auth)
	K8sTokenPath string
	K8sRole      string

	// Vault namespace (Vault Enterprise)
	Namespace string

	// KV secrets engine mount path (default: "secret")
	MountPath string

	// KV version: "v1" or "v2" (default: "v2")
	KVVersion string

	CacheTTL    time.Duration
	EnableCache bool

	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for Vault adapter
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		KVVersion:   "v2",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// logicalReader is the subset of *vault.Logical the adapter reads through
type logicalReader interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
}

// vaultAdapter implements the SecretManagerAdapter port for HashiCorp Vault
type vaultAdapter struct {
	logical logicalReader
	config  *VaultConfig
	logger  *zap.Logger
	cache   *secretCache
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	// Set namespace if using Vault Enterprise
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return newVaultAdapter(client.Logical(), cfg, logger), nil
}

func newVaultAdapter(logical logicalReader, cfg *VaultConfig, logger *zap.Logger) *vaultAdapter {
	return &vaultAdapter{
		logical: logical,
		config:  cfg,
		logger:  logger,
		cache:   newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}
}

// authenticateVault handles authentication with Vault
func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		return login(ctx, client, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})

	case "kubernetes":
		if cfg.K8sTokenPath == "" || cfg.K8sRole == "" {
			return fmt.Errorf("k8s_token_path and k8s_role are required for Kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("failed to read k8s token: %w", err)
		}
		return login(ctx, client, "auth/kubernetes/login", map[string]interface{}{
			"jwt":  string(jwt),
			"role": cfg.K8sRole,
		})

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func login(ctx context.Context, client *vault.Client, path string, data map[string]interface{}) error {
	resp, err := client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%s failed: %w", path, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("%s returned no auth info", path)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret retrieves a secret by its path
// Path format: "mpesa/production/initiator-password"
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	a.logger.Info("Retrieving secret from Vault", zap.String("path", path))

	fullPath := fmt.Sprintf("%s/%s", a.config.MountPath, path)
	if a.config.KVVersion == "v2" {
		fullPath = fmt.Sprintf("%s/data/%s", a.config.MountPath, path)
	}

	startTime := time.Now()
	secret, err := a.logical.ReadWithContext(ctx, fullPath)
	if err != nil {
		a.logger.Error("Failed to retrieve secret from Vault",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	a.logger.Info("Secret retrieved successfully",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	var secretData map[string]interface{}
	var version, createdTime string

	if a.config.KVVersion == "v2" {
		// KV v2 wraps data in "data" field
		data, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid secret format from Vault")
		}
		secretData = data

		if metadata, ok := secret.Data["metadata"].(map[string]interface{}); ok {
			switch v := metadata["version"].(type) {
			case json.Number:
				version = v.String()
			case string:
				version = v
			}
			if ct, ok := metadata["created_time"].(string); ok {
				createdTime = ct
			}
		}
	} else {
		secretData = secret.Data
		version = "1"
	}

	// The value lives under "value"; otherwise take the only string field
	secretValue, _ := secretData["value"].(string)
	if secretValue == "" {
		for _, v := range secretData {
			if str, ok := v.(string); ok {
				secretValue = str
				break
			}
		}
	}
	if secretValue == "" {
		return nil, fmt.Errorf("secret value is empty or not found: %s", path)
	}

	result := &ports.Secret{
		Value:     secretValue,
		Version:   version,
		CreatedAt: createdTime,
		Metadata:  make(map[string]string),
	}
	for k, v := range secretData {
		if str, ok := v.(string); ok && k != "value" {
			result.Metadata[k] = str
		}
	}

	a.cache.set(path, result)

	return result, nil
}
