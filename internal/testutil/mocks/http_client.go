package mocks

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockHTTPClient is a mock implementation of HTTPClient for testing.
// It is safe for concurrent use.
type MockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)

	mu    sync.Mutex
	calls []*http.Request
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient(doFunc func(req *http.Request) (*http.Response, error)) *MockHTTPClient {
	return &MockHTTPClient{
		DoFunc: doFunc,
	}
}

// Do executes the mock function and captures the call
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	// Default success response
	return JSONResponse(http.StatusOK, `{"status":"ok"}`), nil
}

// Calls returns the captured requests in order
func (m *MockHTTPClient) Calls() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*http.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of captured requests
func (m *MockHTTPClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsTo counts captured requests whose path contains fragment
func (m *MockHTTPClient) CallsTo(fragment string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, req := range m.calls {
		if strings.Contains(req.URL.Path, fragment) {
			n++
		}
	}
	return n
}

// Reset clears captured calls
func (m *MockHTTPClient) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// JSONResponse builds an *http.Response with the given status and body
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}
