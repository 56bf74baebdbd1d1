// Package mpesa is a client for the Safaricom M-Pesa (Daraja) API.
//
// A Client owns an access token cache, derives the encrypted security
// credential on demand and exposes one method per provider operation. Every
// request is validated before any network call; failures are returned as the
// typed errors in pkg/errors.
package mpesa

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/daraja"
	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"github.com/kevin07696/mpesa-sdk/pkg/crypto"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	httpclient "github.com/kevin07696/mpesa-sdk/pkg/http"
	"github.com/kevin07696/mpesa-sdk/pkg/logging"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultTimeout applies to the default HTTP client
const DefaultTimeout = 30 * time.Second

// HTTPClient performs a single HTTP exchange. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenCache holds access tokens and may be shared by several clients
type TokenCache = daraja.TokenCache

// AccessToken is a bearer token and the instant it stops being served
type AccessToken = daraja.AccessToken

// NewTokenCache creates a token cache with the given safety margin
func NewTokenCache(safetyMargin time.Duration) *TokenCache {
	cfg := daraja.DefaultTokenCacheConfig()
	cfg.SafetyMargin = safetyMargin
	return daraja.NewTokenCache(cfg)
}

// Credentials are the application and initiator secrets a client acts with.
// InitiatorName and InitiatorPassword are only needed by operations that carry
// a security credential.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    secret.Secret
	InitiatorName     string
	InitiatorPassword secret.Secret
}

type options struct {
	httpClient   HTTPClient
	logger       *zap.Logger
	tokenCache   *TokenCache
	safetyMargin time.Duration
	timeout      time.Duration
	limiter      *rate.Limiter
	clock        func() time.Time
	certificate  []byte
}

// Option configures a Client
type Option func(*options)

// WithHTTPClient replaces the default pooled HTTP client
func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the zap logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenCache shares an existing token cache. WithTokenSafetyMargin is
// ignored when a cache is supplied.
func WithTokenCache(c *TokenCache) Option {
	return func(o *options) { o.tokenCache = c }
}

// WithTokenSafetyMargin sets how long before provider expiry a token is refreshed
func WithTokenSafetyMargin(d time.Duration) Option {
	return func(o *options) { o.safetyMargin = d }
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit caps outgoing requests per second. Waiting never adds requests.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCertificate replaces the embedded public certificate used to encrypt
// the initiator password. certPEM must hold an RSA X.509 certificate.
func WithCertificate(certPEM []byte) Option {
	return func(o *options) { o.certificate = certPEM }
}

// withClock injects the clock used for express timestamps and the token cache
func withClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// Client calls the M-Pesa API for one application in one environment.
// It is safe for concurrent use.
type Client struct {
	env            Environment
	credentials    Credentials
	dispatcher     *daraja.Dispatcher
	logger         ports.Logger
	clock          func() time.Time
	certificatePEM []byte

	credMu     sync.Mutex
	credential secret.Secret
}

// New creates a client. The consumer key and secret are required.
func New(credentials Credentials, env Environment, opts ...Option) (*Client, error) {
	if !env.Valid() {
		return nil, pkgerrors.NewValidationError("environment", "unknown environment")
	}
	if err := required("consumer_key", credentials.ConsumerKey); err != nil {
		return nil, err
	}
	if credentials.ConsumerSecret.IsEmpty() {
		return nil, pkgerrors.NewValidationError("consumer_secret", "is required")
	}

	o := &options{
		safetyMargin: daraja.DefaultSafetyMargin,
		timeout:      DefaultTimeout,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.certificate != nil {
		if _, err := crypto.ParseCertificatePublicKey(o.certificate); err != nil {
			return nil, err
		}
	}

	if o.httpClient == nil {
		o.httpClient = httpclient.NewHTTPClient(httpclient.DarajaClientConfig(), o.timeout)
	}
	if o.tokenCache == nil {
		cfg := daraja.DefaultTokenCacheConfig()
		cfg.SafetyMargin = o.safetyMargin
		cfg.Clock = o.clock
		o.tokenCache = daraja.NewTokenCache(cfg)
	}

	logger := logging.NewZapLogger(o.logger)

	dispatcher := daraja.NewDispatcher(daraja.Config{
		BaseURL:        env.BaseURL(),
		Environment:    env.String(),
		ConsumerKey:    credentials.ConsumerKey,
		ConsumerSecret: credentials.ConsumerSecret,
	}, o.httpClient, o.tokenCache, o.limiter, logger)

	return &Client{
		env:            env,
		credentials:    credentials,
		dispatcher:     dispatcher,
		logger:         logger,
		clock:          o.clock,
		certificatePEM: o.certificate,
	}, nil
}

// Environment returns the environment the client targets
func (c *Client) Environment() Environment {
	return c.env
}

// AccessToken returns a valid bearer token, fetching one if none is cached
func (c *Client) AccessToken(ctx context.Context) (AccessToken, error) {
	return c.dispatcher.Token(ctx)
}

// validator is implemented by every request type
type validator interface {
	Validate() error
}

// send validates req, derives the security credential when the endpoint
// needs one, builds the wire payload and dispatches it
func (c *Client) send(ctx context.Context, endpoint daraja.Endpoint, req validator, build func(credential string) any, out any) error {
	if err := req.Validate(); err != nil {
		return err
	}

	var credential string
	if endpoint.RequiresSecurityCredential {
		if err := required("initiator_name", c.credentials.InitiatorName); err != nil {
			return err
		}
		var err error
		credential, err = c.SecurityCredential()
		if err != nil {
			return err
		}
	}

	return c.dispatcher.Dispatch(ctx, endpoint, build(credential), out)
}
