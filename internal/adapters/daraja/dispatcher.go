package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/kevin07696/mpesa-sdk/pkg/observability"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"golang.org/x/time/rate"
)

// Config identifies the environment and application a Dispatcher talks for
type Config struct {
	BaseURL        string
	Environment    string
	ConsumerKey    string
	ConsumerSecret secret.Secret
}

// errorEnvelope is the provider's standard rejection body
type errorEnvelope struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// billManagerEnvelope is the shape bill manager endpoints reject with
type billManagerEnvelope struct {
	ResCode string `json:"rescode"`
	ResMsg  string `json:"resmsg"`
}

// Dispatcher sends one authenticated JSON request per call and classifies the
// outcome. It never retries and never logs tokens or bodies.
type Dispatcher struct {
	config     Config
	httpClient ports.HTTPClient
	logger     ports.Logger
	auth       *Authenticator
	tokens     *TokenCache
	limiter    *rate.Limiter
}

// NewDispatcher creates a new Dispatcher with dependency injection.
// tokens may be shared between dispatchers; limiter may be nil.
func NewDispatcher(config Config, httpClient ports.HTTPClient, tokens *TokenCache, limiter *rate.Limiter, logger ports.Logger) *Dispatcher {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	if tokens == nil {
		tokens = NewTokenCache(DefaultTokenCacheConfig())
	}
	return &Dispatcher{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		auth:       NewAuthenticator(httpClient, logger),
		tokens:     tokens,
		limiter:    limiter,
	}
}

// TokenKey returns the cache key for this dispatcher's credentials
func (d *Dispatcher) TokenKey() TokenKey {
	return TokenKey{
		Environment:    d.config.Environment,
		ConsumerKey:    d.config.ConsumerKey,
		ConsumerSecret: d.config.ConsumerSecret,
	}
}

// Token returns a valid access token, fetching one if the cache holds none.
// A caller whose context ends while waiting gets an AuthError of kind Network
// wrapping ctx.Err().
func (d *Dispatcher) Token(ctx context.Context) (AccessToken, error) {
	tok, err := d.tokens.Get(ctx, d.TokenKey(), func(fetchCtx context.Context) (*TokenResponse, error) {
		return d.auth.FetchToken(fetchCtx, d.config.BaseURL, d.config.ConsumerKey, d.config.ConsumerSecret)
	})
	if err != nil {
		var authErr *pkgerrors.AuthError
		if !errors.As(err, &authErr) {
			return AccessToken{}, pkgerrors.NewAuthNetwork(err)
		}
		return AccessToken{}, err
	}
	return tok, nil
}

// Dispatch posts body to the endpoint and decodes a 2xx response into out.
// out may be nil when the caller does not need the response.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint Endpoint, body any, out any) error {
	startTime := time.Now()
	err := d.dispatch(ctx, endpoint, body, out)
	observability.RecordRequest(endpoint.Name, Outcome(err), time.Since(startTime))
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, endpoint Endpoint, body any, out any) error {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var token AccessToken
	if !endpoint.Unauthenticated {
		token, err = d.Token(ctx)
		if err != nil {
			d.logger.Error("Failed to obtain access token",
				ports.String("endpoint", endpoint.Name),
				ports.Err(err),
			)
			return err
		}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return pkgerrors.NewNetworkError(endpoint.Name, fmt.Errorf("rate limiter: %w", err))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, endpoint.Method, endpoint.URL(d.config.BaseURL), bytes.NewReader(payloadBytes))
	if err != nil {
		return pkgerrors.NewNetworkError(endpoint.Name, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if !endpoint.Unauthenticated {
		httpReq.Header.Set("Authorization", "Bearer "+token.Value.Reveal())
	}

	d.logger.Info("Sending M-Pesa request",
		ports.String("endpoint", endpoint.Name),
		ports.String("method", endpoint.Method),
		ports.String("environment", d.config.Environment),
	)

	startTime := time.Now()
	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		d.logger.Error("M-Pesa request failed",
			ports.String("endpoint", endpoint.Name),
			ports.Duration("elapsed", time.Since(startTime)),
			ports.Err(err),
		)
		return pkgerrors.NewNetworkError(endpoint.Name, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return pkgerrors.NewNetworkError(endpoint.Name, fmt.Errorf("failed to read response: %w", err))
	}

	d.logger.Info("Received M-Pesa response",
		ports.String("endpoint", endpoint.Name),
		ports.Int("status_code", httpResp.StatusCode),
		ports.Duration("elapsed", time.Since(startTime)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := classifyRejection(endpoint.Name, httpResp.StatusCode, respBody)
		d.logger.Warn("M-Pesa rejected request",
			ports.String("endpoint", endpoint.Name),
			ports.Int("status_code", httpResp.StatusCode),
			ports.String("error_code", apiErr.Code),
			ports.String("request_id", apiErr.RequestID),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return pkgerrors.NewUnexpectedResponseShape(endpoint.Name, httpResp.StatusCode, errors.New("empty response body"))
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return pkgerrors.NewUnexpectedResponseShape(endpoint.Name, httpResp.StatusCode, err)
	}

	return nil
}

// classifyRejection maps a non-2xx body onto a Remote APIError. A body without
// a recognised envelope is carried raw with an empty code.
func classifyRejection(endpoint string, statusCode int, body []byte) *pkgerrors.APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.ErrorCode != "" {
		return pkgerrors.NewRemoteError(endpoint, statusCode, env.ErrorCode, env.ErrorMessage, env.RequestID)
	}

	var bm billManagerEnvelope
	if err := json.Unmarshal(body, &bm); err == nil && bm.ResCode != "" {
		return pkgerrors.NewRemoteError(endpoint, statusCode, bm.ResCode, bm.ResMsg, "")
	}

	return pkgerrors.NewRemoteRawError(endpoint, statusCode, body)
}

// Outcome labels an error for metrics
func Outcome(err error) string {
	if err == nil {
		return "success"
	}

	var apiErr *pkgerrors.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Kind)
	}

	var authErr *pkgerrors.AuthError
	if errors.As(err, &authErr) {
		return "auth"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}

	return "error"
}
