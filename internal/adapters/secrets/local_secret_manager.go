package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"go.uber.org/zap"
)

// localSecretManager implements SecretManagerAdapter using local filesystem
// WARNING: This is for development only. Use AWS Secrets Manager, Vault or GCP in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a new local filesystem secret manager
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret retrieves a secret from the local filesystem.
// Files hold either the plain value or {"value": ..., "tags": {...}, "created_at": ...}.
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Reading secret from filesystem", zap.String("path", secretPath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret not found: %s", secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var secretData struct {
		Value     string            `json:"value"`
		Tags      map[string]string `json:"tags"`
		CreatedAt string            `json:"created_at"`
	}
	if err := json.Unmarshal(data, &secretData); err == nil && secretData.Value != "" {
		return &ports.Secret{
			Value:     secretData.Value,
			Version:   "v1",
			Metadata:  secretData.Tags,
			CreatedAt: secretData.CreatedAt,
		}, nil
	}

	// Plain text; editors leave a trailing newline
	return &ports.Secret{
		Value:   strings.TrimRight(string(data), "\r\n"),
		Version: "v1",
	}, nil
}

// resolve keeps lookups inside basePath
func (m *localSecretManager) resolve(secretPath string) (string, error) {
	if secretPath == "" || filepath.IsAbs(secretPath) {
		return "", fmt.Errorf("invalid secret path: %q", secretPath)
	}
	clean := filepath.Clean(secretPath)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret path: %q", secretPath)
	}
	return filepath.Join(m.basePath, clean), nil
}
