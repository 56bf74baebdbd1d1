package commands

import (
	"context"
	"fmt"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/gcp"
	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"github.com/kevin07696/mpesa-sdk/internal/adapters/secrets"
	"github.com/kevin07696/mpesa-sdk/internal/config"
	"go.uber.org/zap"
)

func noClose() error { return nil }

// initSecretManager builds the adapter selected by SECRET_MANAGER.
// The "env" backend returns a nil adapter; credentials then come only from the environment.
func initSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretManagerAdapter, func() error, error) {
	sm := cfg.SecretManager

	switch sm.Backend {
	case "env":
		return nil, noClose, nil

	case "local":
		logger.Warn("Using local secret manager - NOT for production use!",
			zap.String("base_path", sm.LocalPath),
		)
		return secrets.NewLocalSecretManager(sm.LocalPath, logger), noClose, nil

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(sm.AWSRegion)
		awsCfg.Profile = sm.AWSProfile
		awsCfg.Endpoint = sm.AWSEndpoint
		awsCfg.CacheTTL = sm.CacheTTL

		adapter, err := secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize AWS Secrets Manager: %w", err)
		}
		return adapter, noClose, nil

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(sm.VaultAddress)
		vaultCfg.AuthMethod = sm.VaultAuthMethod
		vaultCfg.Token = sm.VaultToken
		vaultCfg.RoleID = sm.VaultRoleID
		vaultCfg.SecretID = sm.VaultSecretID
		vaultCfg.MountPath = sm.VaultMountPath
		vaultCfg.KVVersion = sm.VaultKVVersion
		vaultCfg.CacheTTL = sm.CacheTTL

		adapter, err := secrets.NewVaultAdapter(ctx, vaultCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Vault: %w", err)
		}
		return adapter, noClose, nil

	case "gcp":
		gcpCfg := gcp.DefaultSecretManagerConfig(sm.GCPProjectID)
		gcpCfg.CacheTTL = sm.CacheTTL

		adapter, err := gcp.NewGCPSecretManager(ctx, gcpCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize GCP Secret Manager: %w", err)
		}
		return adapter, adapter.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported SECRET_MANAGER: %s", sm.Backend)
	}
}
