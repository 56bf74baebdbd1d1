package mpesa

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/testutil/mocks"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"github.com/stretchr/testify/require"
)

const tokenJSON = `{"access_token":"sandbox-bearer","expires_in":"3599"}`

var fixedNow = time.Date(2024, 3, 1, 9, 30, 45, 0, time.UTC)

func testCredentials() Credentials {
	return Credentials{
		ConsumerKey:       "consumer-key",
		ConsumerSecret:    secret.New("consumer-secret"),
		InitiatorName:     "testapi",
		InitiatorPassword: secret.New("Safaricom999!*!"),
	}
}

// fakeDaraja answers the token endpoint and records every endpoint body by path
type fakeDaraja struct {
	t      *testing.T
	client *mocks.MockHTTPClient

	mu     sync.Mutex
	bodies map[string][]byte
	status int
	reply  string
}

func newFakeDaraja(t *testing.T, status int, reply string) *fakeDaraja {
	f := &fakeDaraja{t: t, bodies: make(map[string][]byte), status: status, reply: reply}
	f.client = mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if strings.HasPrefix(req.URL.Path, "/oauth/") {
			return mocks.JSONResponse(http.StatusOK, tokenJSON), nil
		}
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)

		f.mu.Lock()
		f.bodies[req.URL.Path] = body
		f.mu.Unlock()

		return mocks.JSONResponse(f.status, f.reply), nil
	})
	return f
}

// payload decodes the last body sent to path
func (f *fakeDaraja) payload(path string) map[string]any {
	f.mu.Lock()
	body, ok := f.bodies[path]
	f.mu.Unlock()
	require.True(f.t, ok, "no request sent to %s", path)

	var out map[string]any
	require.NoError(f.t, json.Unmarshal(body, &out))
	return out
}

// rawPayload returns the last body sent to path
func (f *fakeDaraja) rawPayload(path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func newTestClient(t *testing.T, env Environment, fake *fakeDaraja, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(fake.client), withClock(func() time.Time { return fixedNow })}, opts...)
	c, err := New(testCredentials(), env, opts...)
	require.NoError(t, err)
	return c
}
