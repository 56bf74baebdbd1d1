package daraja

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
)

// TokenPath is the OAuth client-credentials endpoint, relative to the base URL
const TokenPath = "oauth/v1/generate?grant_type=client_credentials"

// maxResponseBytes bounds every body read from the provider
const maxResponseBytes = 1 << 20

// maxExpiresIn is the largest lifetime that converts to a time.Duration
const maxExpiresIn = int64(math.MaxInt64 / int64(time.Second))

// TokenResponse is a freshly issued access token and its provider-reported lifetime
type TokenResponse struct {
	AccessToken secret.Secret
	ExpiresIn   time.Duration
}

// tokenBody mirrors the provider JSON. expires_in usually arrives as a numeric string.
type tokenBody struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

// Authenticator fetches access tokens with HTTP Basic credentials.
// It performs exactly one network attempt per call and never retries.
type Authenticator struct {
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewAuthenticator creates a new Authenticator with dependency injection
func NewAuthenticator(httpClient ports.HTTPClient, logger ports.Logger) *Authenticator {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Authenticator{
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchToken requests a new access token from the environment's token endpoint
func (a *Authenticator) FetchToken(ctx context.Context, baseURL, consumerKey string, consumerSecret secret.Secret) (*TokenResponse, error) {
	url := joinURL(baseURL, TokenPath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.NewAuthNetwork(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.SetBasicAuth(consumerKey, consumerSecret.Reveal())
	httpReq.Header.Set("Accept", "application/json")

	a.logger.Info("Requesting M-Pesa access token")

	startTime := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.logger.Error("Access token request failed",
			ports.Err(err),
			ports.Duration("elapsed", time.Since(startTime)),
		)
		return nil, pkgerrors.NewAuthNetwork(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, pkgerrors.NewAuthNetwork(fmt.Errorf("failed to read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		a.logger.Error("M-Pesa rejected access token request",
			ports.Int("status_code", httpResp.StatusCode),
			ports.Duration("elapsed", time.Since(startTime)),
		)
		return nil, pkgerrors.NewAuthRejected(httpResp.StatusCode, body)
	}

	resp, err := parseTokenBody(body)
	if err != nil {
		a.logger.Error("Failed to parse access token response", ports.Err(err))
		return nil, pkgerrors.NewAuthMalformed(err)
	}

	a.logger.Info("Obtained M-Pesa access token",
		ports.Duration("expires_in", resp.ExpiresIn),
		ports.Duration("elapsed", time.Since(startTime)),
	)

	return resp, nil
}

func parseTokenBody(body []byte) (*TokenResponse, error) {
	var tb tokenBody
	if err := json.Unmarshal(body, &tb); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if tb.AccessToken == "" {
		return nil, fmt.Errorf("access_token is missing")
	}

	seconds, err := parseExpiresIn(tb.ExpiresIn)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: secret.New(tb.AccessToken),
		ExpiresIn:   time.Duration(seconds) * time.Second,
	}, nil
}

// parseExpiresIn accepts "3599" as well as 3599
func parseExpiresIn(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("expires_in is missing")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		raw = json.RawMessage(strings.TrimSpace(text))
	}

	seconds, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expires_in is not an integer: %w", err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("expires_in must be positive, got %d", seconds)
	}
	if seconds > maxExpiresIn {
		return 0, fmt.Errorf("expires_in %d is out of range", seconds)
	}

	return seconds, nil
}
