package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., consumer secret)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for reading API credentials from a secret store
// Supports multiple backends: AWS Secrets Manager, GCP Secret Manager, HashiCorp Vault, local files
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - AWS: "mpesa/production/consumer-secret"
	//   - GCP: "mpesa-consumer-secret" (resolved against the project, latest version)
	//   - Vault: "mpesa/production" with the value under the "value" key
	//   - Local: file path relative to the base directory
	// Returns error if:
	//   - Secret does not exist
	//   - Insufficient permissions
	//   - Network communication fails
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
