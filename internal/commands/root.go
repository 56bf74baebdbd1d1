// Package commands implements the mpesactl commands using Cobra.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/config"
	"github.com/kevin07696/mpesa-sdk/pkg/logging"
	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/kevin07696/mpesa-sdk/pkg/resilience"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (set at build time via ldflags)
var (
	Version = "dev"
	Commit  = "none"
)

// app carries global flags and the seams tests replace
type app struct {
	retries    int
	retryDelay time.Duration
	verbose    bool

	// options are appended to every client the CLI builds
	options []mpesa.Option

	readPassword func(prompt string) (string, error)
}

// NewRootCommand builds the mpesactl command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{readPassword: promptPassword})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mpesactl",
		Short: "Command-line client for the M-Pesa Daraja API",
		Long: `mpesactl calls the M-Pesa Daraja API with credentials taken from the
environment or a secret manager.

Configuration:
  MPESA_ENVIRONMENT        sandbox (default) or production
  MPESA_CONSUMER_KEY       application consumer key
  MPESA_CONSUMER_SECRET    application consumer secret
  MPESA_INITIATOR_NAME     initiator for balance, B2C, B2B, status and reversal
  MPESA_INITIATOR_PASSWORD initiator password (prompted for when unset)
  MPESA_CERTIFICATE_PATH   PEM certificate replacing the embedded one
  SECRET_MANAGER           env (default), local, aws, vault or gcp

Examples:
  # Fetch an access token
  mpesactl token

  # Prompt a customer to pay 10 KES
  mpesactl express --shortcode 174379 --phone 254708374149 --amount 10 \
    --callback-url https://example.com/cb --reference INV-1

  # Pay a customer, retrying transient failures twice
  mpesactl b2c --shortcode 600981 --phone 254708374149 --amount 100 \
    --result-url https://example.com/result --timeout-url https://example.com/timeout --retries 2`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().IntVar(&a.retries, "retries", 0, "Retry transient failures this many times")
	root.PersistentFlags().DurationVar(&a.retryDelay, "retry-delay", 0, "Fixed delay between retries (default: exponential, slower after token failures)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newTokenCommand(a),
		newCredentialCommand(a),
		newBalanceCommand(a),
		newB2CCommand(a),
		newB2BCommand(a),
		newStatusCommand(a),
		newReversalCommand(a),
		newExpressCommand(a),
		newExpressQueryCommand(a),
		newQRCommand(a),
		newC2BRegisterCommand(a),
		newC2BSimulateCommand(a),
		newBillManagerCommand(a),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// session is one configured client plus the resources behind it
type session struct {
	config *config.Config
	client *mpesa.Client
	logger *zap.Logger
	close  func()
}

// open loads configuration, resolves credentials and builds a client.
// needsInitiator prompts for the initiator password when none is configured.
func (a *app) open(ctx context.Context, needsInitiator bool) (*session, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logger.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logger.Development)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := initSecretManager(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close secret manager", zap.Error(err))
		}
		_ = logger.Sync()
	}

	creds, err := cfg.ResolveCredentials(ctx, store)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}

	if needsInitiator && creds.InitiatorPassword.IsEmpty() {
		password, err := a.readPassword("Initiator password: ")
		if err != nil {
			cleanup()
			return nil, err
		}
		creds.InitiatorPassword = secret.New(password)
	}

	opts := []mpesa.Option{
		mpesa.WithLogger(logger),
		mpesa.WithTimeout(cfg.Mpesa.HTTPTimeout),
		mpesa.WithTokenSafetyMargin(cfg.Mpesa.TokenMargin),
	}
	if cfg.Mpesa.RateLimitRPS > 0 {
		opts = append(opts, mpesa.WithRateLimit(cfg.Mpesa.RateLimitRPS, cfg.Mpesa.RateLimitBurst))
	}
	if cfg.Mpesa.CertificatePath != "" {
		certPEM, err := os.ReadFile(cfg.Mpesa.CertificatePath)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to read certificate: %w", err)
		}
		opts = append(opts, mpesa.WithCertificate(certPEM))
	}
	opts = append(opts, a.options...)

	client, err := mpesa.New(creds, cfg.Mpesa.Environment, opts...)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &session{config: cfg, client: client, logger: logger, close: cleanup}, nil
}

// call runs fn against a fresh client, retrying transient failures, and
// prints the result as JSON
func (a *app) call(cmd *cobra.Command, needsInitiator bool, fn func(ctx context.Context, c *mpesa.Client) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := a.open(ctx, needsInitiator)
	if err != nil {
		return err
	}
	defer s.close()

	attempt := 0
	var result any
	err = resilience.Retry(ctx, a.backoff(), a.retries+1, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.logger.Info("Retrying", zap.String("command", cmd.Name()), zap.Int("attempt", attempt))
		}
		var err error
		result, err = fn(ctx, s.client)
		return err
	})
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), result)
}

// backoff is the fixed --retry-delay when set. Otherwise token failures back
// off per resilience.AuthBackoff and endpoint failures exponentially.
func (a *app) backoff() resilience.BackoffStrategy {
	if a.retryDelay > 0 {
		return &resilience.FixedBackoff{Delay: a.retryDelay}
	}
	return resilience.NewByErrorKind()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
