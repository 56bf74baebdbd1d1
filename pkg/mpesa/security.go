package mpesa

import (
	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"github.com/kevin07696/mpesa-sdk/pkg/crypto"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
)

// GenerateSecurityCredential encrypts an initiator password with the public
// certificate of env and returns the base64 value for SecurityCredential fields.
// Each call returns a different string; all of them decrypt to password.
func GenerateSecurityCredential(password string, env Environment) (string, error) {
	if password == "" {
		return "", pkgerrors.NewValidationError("initiator_password", "is required")
	}

	cert, err := env.Certificate()
	if err != nil {
		return "", err
	}

	return crypto.EncryptCredential(password, cert)
}

// placeholderFingerprints are the self-signed certificates shipped in certs/
// until the provider's published certificates are dropped in. The provider
// cannot decrypt credentials made with them.
var placeholderFingerprints = map[string]bool{
	"37cf13baf07a0082431a091e64d9fe1b3a761b29098ddf0555f0b885bad5c9e7": true,
	"f4bd9c9e1203143e9529d883101b3af9bd4d8252555225c2faa6a3ce8e1a99a1": true,
}

// certificate returns the WithCertificate override or the embedded certificate
func (c *Client) certificate() ([]byte, error) {
	if c.certificatePEM != nil {
		return c.certificatePEM, nil
	}
	return c.env.Certificate()
}

// SecurityCredential returns the client's encrypted initiator password.
// It is derived once and reused; a failed derivation is retried on the next call.
func (c *Client) SecurityCredential() (string, error) {
	c.credMu.Lock()
	defer c.credMu.Unlock()

	if !c.credential.IsEmpty() {
		return c.credential.Reveal(), nil
	}

	password := c.credentials.InitiatorPassword.Reveal()
	if password == "" {
		return "", pkgerrors.NewValidationError("initiator_password", "is required")
	}

	cert, err := c.certificate()
	if err != nil {
		return "", err
	}

	credential, err := crypto.EncryptCredential(password, cert)
	if err != nil {
		c.logger.Error("Failed to derive security credential", ports.String("environment", c.env.String()), ports.Err(err))
		return "", err
	}

	if fp, fpErr := crypto.CertificateFingerprint(cert); fpErr == nil {
		if placeholderFingerprints[fp] {
			c.logger.Warn("Security credential encrypted with a placeholder certificate; the provider will reject it. Use WithCertificate or replace pkg/mpesa/certs",
				ports.String("environment", c.env.String()),
				ports.String("certificate_sha256", fp),
			)
		}
		c.logger.Info("Derived security credential",
			ports.String("environment", c.env.String()),
			ports.String("certificate_sha256", fp),
		)
	}

	c.credential = secret.New(credential)
	return credential, nil
}
