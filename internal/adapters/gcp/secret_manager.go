package gcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"go.uber.org/zap"
)

// SecretManagerConfig contains configuration for GCP Secret Manager
type SecretManagerConfig struct {
	ProjectID string        // GCP Project ID (e.g., "my-project-123")
	CacheTTL  time.Duration // How long to cache secrets in memory (default: 5 minutes)
}

// DefaultSecretManagerConfig returns sensible defaults for GCP Secret Manager
func DefaultSecretManagerConfig(projectID string) *SecretManagerConfig {
	return &SecretManagerConfig{
		ProjectID: projectID,
		CacheTTL:  5 * time.Minute,
	}
}

// accessFunc reads one secret version
type accessFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)

type cachedSecret struct {
	secret    *ports.Secret
	expiresAt time.Time
}

// GCPSecretManager implements ports.SecretManagerAdapter for Google Cloud Secret Manager
// with a per-instance in-memory cache
type GCPSecretManager struct {
	access    accessFunc
	closer    func() error
	projectID string
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	cache   map[string]*cachedSecret
	cacheMu sync.RWMutex
}

// NewGCPSecretManager creates a new GCP Secret Manager adapter with in-memory caching.
// Credentials come from the environment:
//   - GOOGLE_APPLICATION_CREDENTIALS env var pointing to service account JSON
//   - Or workload identity in GKE
//   - Or default application credentials
func NewGCPSecretManager(ctx context.Context, config *SecretManagerConfig, logger *zap.Logger) (*GCPSecretManager, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	sm := newGCPSecretManager(func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
		return client.AccessSecretVersion(ctx, req)
	}, config, logger)
	sm.closer = client.Close

	logger.Info("GCP Secret Manager initialized",
		zap.String("project_id", config.ProjectID),
		zap.Duration("cache_ttl", config.CacheTTL),
	)

	return sm, nil
}

func newGCPSecretManager(access accessFunc, config *SecretManagerConfig, logger *zap.Logger) *GCPSecretManager {
	return &GCPSecretManager{
		access:    access,
		closer:    func() error { return nil },
		projectID: config.ProjectID,
		cacheTTL:  config.CacheTTL,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[string]*cachedSecret),
	}
}

// Close closes the GCP Secret Manager client
func (sm *GCPSecretManager) Close() error {
	return sm.closer()
}

// SecretName maps a slash separated path onto a GCP secret version name.
// GCP secret IDs cannot contain "/", so "mpesa/sandbox/consumer-key" becomes
// projects/{project}/secrets/mpesa-sandbox-consumer-key/versions/latest.
func (sm *GCPSecretManager) SecretName(path string) string {
	id := strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", sm.projectID, id)
}

// GetSecret retrieves a secret from GCP Secret Manager with in-memory caching
func (sm *GCPSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	sm.cacheMu.RLock()
	cached, exists := sm.cache[path]
	sm.cacheMu.RUnlock()

	if exists && sm.now().Before(cached.expiresAt) {
		sm.logger.Debug("Secret cache hit",
			zap.String("path", path),
			zap.Time("expires_at", cached.expiresAt),
		)
		return cached.secret, nil
	}

	sm.logger.Debug("Secret cache miss - fetching from GCP", zap.String("path", path))

	secretName := sm.SecretName(path)
	result, err := sm.access(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: secretName})
	if err != nil {
		sm.logger.Error("Failed to access GCP secret",
			zap.String("path", path),
			zap.String("secret_name", secretName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}
	if result.GetPayload() == nil {
		return nil, fmt.Errorf("GCP secret %s has no payload", path)
	}

	secret := &ports.Secret{
		Value:   string(result.GetPayload().GetData()),
		Version: extractVersionFromName(result.GetName()),
		Metadata: map[string]string{
			"gcp_project_id": sm.projectID,
			"gcp_secret":     path,
		},
	}

	if sm.cacheTTL > 0 {
		sm.cacheMu.Lock()
		sm.cache[path] = &cachedSecret{
			secret:    secret,
			expiresAt: sm.now().Add(sm.cacheTTL),
		}
		sm.cacheMu.Unlock()
	}

	sm.logger.Info("Secret fetched from GCP",
		zap.String("path", path),
		zap.String("version", secret.Version),
	)

	return secret, nil
}

// extractVersionFromName returns the trailing version segment of a resource name
func extractVersionFromName(name string) string {
	if i := strings.LastIndex(name, "/versions/"); i >= 0 {
		return name[i+len("/versions/"):]
	}
	return "latest"
}
