package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
)

// MockSecretManager is an in-memory SecretManagerAdapter that records lookups
type MockSecretManager struct {
	mu      sync.Mutex
	secrets map[string]string
	errs    map[string]error
	calls   []string
}

// NewMockSecretManager creates a mock holding the given path -> value pairs
func NewMockSecretManager(secrets map[string]string) *MockSecretManager {
	m := &MockSecretManager{
		secrets: make(map[string]string, len(secrets)),
		errs:    make(map[string]error),
	}
	for k, v := range secrets {
		m.secrets[k] = v
	}
	return m
}

// FailOn makes lookups of path return err
func (m *MockSecretManager) FailOn(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[path] = err
}

// GetSecret implements ports.SecretManagerAdapter
func (m *MockSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, path)

	if err, ok := m.errs[path]; ok {
		return nil, err
	}
	value, ok := m.secrets[path]
	if !ok {
		return nil, fmt.Errorf("secret not found: %s", path)
	}
	return &ports.Secret{Value: value, Version: "1"}, nil
}

// Calls returns the paths looked up so far
func (m *MockSecretManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
