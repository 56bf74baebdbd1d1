package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
)

// ParseCertificatePublicKey parses a PEM-encoded X.509 certificate and returns its RSA public key.
func ParseCertificatePublicKey(certPEM []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, pkgerrors.NewEncryptionError("failed to parse PEM block", nil)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, pkgerrors.NewEncryptionError("failed to parse certificate", err)
	}

	rsaPub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, pkgerrors.NewEncryptionError(fmt.Sprintf("certificate key is %T, not RSA", cert.PublicKey), nil)
	}

	return rsaPub, nil
}

// EncryptCredential encrypts plaintext with the certificate's public key using
// PKCS#1 v1.5 padding and returns the base64 ciphertext.
//
// The provider only accepts PKCS#1 v1.5. The padding is randomized, so two calls
// with the same input return different strings that decrypt to the same plaintext.
func EncryptCredential(plaintext string, certPEM []byte) (string, error) {
	pub, err := ParseCertificatePublicKey(certPEM)
	if err != nil {
		return "", err
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		// err from the primitive never contains the plaintext
		return "", pkgerrors.NewEncryptionError("failed to encrypt credential", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// CertificateFingerprint computes the SHA-256 fingerprint of a PEM certificate's DER bytes.
func CertificateFingerprint(certPEM []byte) (string, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return "", pkgerrors.NewEncryptionError("failed to parse PEM block", nil)
	}

	hash := sha256.Sum256(block.Bytes)
	return hex.EncodeToString(hash[:]), nil
}
