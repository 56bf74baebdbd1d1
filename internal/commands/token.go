package commands

import (
	"context"
	"time"

	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/spf13/cobra"
)

type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTokenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Fetch an OAuth access token",
		Long: `Fetch an access token with the configured consumer key and secret.

The token is printed in clear text. ExpiresAt already has the safety margin applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				tok, err := c.AccessToken(ctx)
				if err != nil {
					return nil, err
				}
				return tokenOutput{AccessToken: tok.Value.Reveal(), ExpiresAt: tok.ExpiresAt}, nil
			})
		},
	}
}

type credentialOutput struct {
	Environment        string `json:"environment"`
	SecurityCredential string `json:"security_credential"`
}

func newCredentialCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "credential",
		Short: "Encrypt the initiator password into a security credential",
		Long: `Encrypt the initiator password with the environment's public certificate.

No request is sent. The output changes on every run because the padding is random.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, true, func(ctx context.Context, c *mpesa.Client) (any, error) {
				credential, err := c.SecurityCredential()
				if err != nil {
					return nil, err
				}
				return credentialOutput{
					Environment:        c.Environment().String(),
					SecurityCredential: credential,
				}, nil
			})
		},
	}
}
