package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/testutil/fixtures"
	"github.com/kevin07696/mpesa-sdk/internal/testutil/mocks"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/kevin07696/mpesa-sdk/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenJSON = `{"access_token":"sandbox-bearer","expires_in":"3599"}`

const asyncJSON = `{"ConversationID":"AG_1","OriginatorConversationID":"oc-1","ResponseCode":"0","ResponseDescription":"Accept the service request successfully."}`

// reply answers one business request
type reply struct {
	status int
	body   string
}

// daraja serves the token endpoint and plays back replies per path
type daraja struct {
	client *mocks.MockHTTPClient

	mu      sync.Mutex
	replies map[string][]reply
	bodies  map[string][][]byte
}

func newDaraja(t *testing.T) *daraja {
	d := &daraja{replies: make(map[string][]reply), bodies: make(map[string][][]byte)}
	d.client = mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if strings.HasPrefix(req.URL.Path, "/oauth/") {
			return mocks.JSONResponse(http.StatusOK, tokenJSON), nil
		}

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)

		d.mu.Lock()
		defer d.mu.Unlock()

		d.bodies[req.URL.Path] = append(d.bodies[req.URL.Path], body)
		queue := d.replies[req.URL.Path]
		if len(queue) == 0 {
			return mocks.JSONResponse(http.StatusNotFound, `{"errorCode":"404.001.03","errorMessage":"Invalid Access Token"}`), nil
		}
		next := queue[0]
		if len(queue) > 1 {
			d.replies[req.URL.Path] = queue[1:]
		}
		return mocks.JSONResponse(next.status, next.body), nil
	})
	return d
}

func (d *daraja) on(path string, replies ...reply) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[path] = replies
}

func (d *daraja) sent(path string) []map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []map[string]any
	for _, body := range d.bodies[path] {
		var m map[string]any
		if err := json.Unmarshal(body, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (d *daraja) raw(path string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	bodies := d.bodies[path]
	if len(bodies) == 0 {
		return nil
	}
	return bodies[len(bodies)-1]
}

func setTestEnv(t *testing.T) {
	t.Helper()
	for key, value := range map[string]string{
		"MPESA_ENVIRONMENT":        "sandbox",
		"MPESA_CONSUMER_KEY":       "consumer-key",
		"MPESA_CONSUMER_SECRET":    "consumer-secret",
		"MPESA_INITIATOR_NAME":     "testapi",
		"MPESA_INITIATOR_PASSWORD": "",
		"MPESA_HTTP_TIMEOUT":       "",
		"MPESA_RATE_LIMIT_RPS":     "",
		"MPESA_CERTIFICATE_PATH":   "",
		"SECRET_MANAGER":           "env",
		"LOG_LEVEL":                "error",
		"LOG_DEVELOPMENT":          "",
	} {
		t.Setenv(key, value)
	}
}

// testApp builds an app wired to d. The password prompt answers with password,
// or fails the test when password is empty.
func testApp(t *testing.T, d *daraja, password string) (*app, *int) {
	prompts := 0
	a := &app{
		options: []mpesa.Option{mpesa.WithHTTPClient(d.client)},
		readPassword: func(prompt string) (string, error) {
			prompts++
			if password == "" {
				t.Errorf("unexpected password prompt %q", prompt)
				return "", errors.New("no password")
			}
			return password, nil
		},
	}
	return a, &prompts
}

func run(a *app, args ...string) (string, error) {
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	out, err := run(a, "token")
	require.NoError(t, err)

	var got tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "sandbox-bearer", got.AccessToken)
	assert.False(t, got.ExpiresAt.IsZero())
	assert.Equal(t, 1, d.client.CallsTo("/oauth/"))
}

func TestTokenCommand_MissingConsumerKey(t *testing.T) {
	setTestEnv(t)
	t.Setenv("MPESA_CONSUMER_KEY", "")
	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	_, err := run(a, "token")
	require.Error(t, err)

	var validationErr *pkgerrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "consumer_key", validationErr.Field)
	assert.Zero(t, d.client.CallCount())
}

func TestCredentialCommand(t *testing.T) {
	setTestEnv(t)
	t.Setenv("MPESA_INITIATOR_PASSWORD", "Safaricom999!*!")
	d := newDaraja(t)
	a, prompts := testApp(t, d, "")

	out, err := run(a, "credential")
	require.NoError(t, err)

	var got credentialOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "sandbox", got.Environment)

	raw, err := base64.StdEncoding.DecodeString(got.SecurityCredential)
	require.NoError(t, err)
	assert.Len(t, raw, 256)

	assert.Zero(t, *prompts)
	assert.Zero(t, d.client.CallCount())
}

func TestCredentialCommand_CertificateFromFile(t *testing.T) {
	setTestEnv(t)
	t.Setenv("MPESA_INITIATOR_PASSWORD", "Safaricom999!*!")
	certPEM, key := fixtures.RSACertificate(t)
	certPath := filepath.Join(t.TempDir(), "sandbox.cer")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	t.Setenv("MPESA_CERTIFICATE_PATH", certPath)

	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	out, err := run(a, "credential")
	require.NoError(t, err)

	var got credentialOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	raw, err := base64.StdEncoding.DecodeString(got.SecurityCredential)
	require.NoError(t, err)
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, key, raw)
	require.NoError(t, err)
	assert.Equal(t, "Safaricom999!*!", string(plain))
}

func TestCredentialCommand_MissingCertificateFile(t *testing.T) {
	setTestEnv(t)
	t.Setenv("MPESA_INITIATOR_PASSWORD", "Safaricom999!*!")
	t.Setenv("MPESA_CERTIFICATE_PATH", filepath.Join(t.TempDir(), "missing.cer"))
	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	_, err := run(a, "credential")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read certificate")
}

func TestB2CCommand_PromptsAndRetries(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	d.on("/mpesa/b2c/v1/paymentrequest",
		reply{http.StatusServiceUnavailable, `{"errorCode":"503.001.01","errorMessage":"System busy"}`},
		reply{http.StatusOK, asyncJSON},
	)
	a, prompts := testApp(t, d, "Safaricom999!*!")

	out, err := run(a, "b2c",
		"--shortcode", "600981",
		"--phone", "0708374149",
		"--amount", "100",
		"--result-url", "https://example.com/result",
		"--timeout-url", "https://example.com/timeout",
		"--retries", "1",
		"--retry-delay", "10ms",
	)
	require.NoError(t, err)
	assert.Equal(t, 1, *prompts)

	var got mpesa.AsyncResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "AG_1", got.ConversationID)

	sent := d.sent("/mpesa/b2c/v1/paymentrequest")
	require.Len(t, sent, 2)
	assert.Equal(t, "254708374149", sent[0]["PartyB"])
	assert.NotEmpty(t, sent[0]["OriginatorConversationID"])
	assert.Equal(t, sent[0]["OriginatorConversationID"], sent[1]["OriginatorConversationID"])
	assert.Equal(t, 1, d.client.CallsTo("/oauth/"))
}

func TestB2CCommand_ValidationFailsBeforeHTTP(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	a, _ := testApp(t, d, "Safaricom999!*!")

	_, err := run(a, "b2c",
		"--shortcode", "600981",
		"--phone", "0708374149",
		"--amount", "0",
		"--result-url", "https://example.com/result",
		"--timeout-url", "https://example.com/timeout",
		"--retries", "3",
	)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Zero(t, d.client.CallsTo("/mpesa/"))
}

func TestB2CCommand_InvalidAmountFlag(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	_, err := run(a, "b2c", "--amount", "ten")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")
	assert.Zero(t, d.client.CallCount())
}

func TestBalanceCommand_DoesNotRetryRejections(t *testing.T) {
	setTestEnv(t)
	t.Setenv("MPESA_INITIATOR_PASSWORD", "Safaricom999!*!")
	d := newDaraja(t)
	d.on("/mpesa/accountbalance/v1/query",
		reply{http.StatusBadRequest, `{"requestId":"r-1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PartyA"}`},
	)
	a, _ := testApp(t, d, "")

	_, err := run(a, "balance",
		"--shortcode", "600981",
		"--result-url", "https://example.com/result",
		"--timeout-url", "https://example.com/timeout",
		"--retries", "3",
	)
	require.Error(t, err)

	var apiErr *pkgerrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "400.002.02", apiErr.Code)
	assert.Equal(t, 1, d.client.CallsTo("accountbalance"))
}

func TestBalanceCommand_PromptFailure(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	a := &app{
		options: []mpesa.Option{mpesa.WithHTTPClient(d.client)},
		readPassword: func(string) (string, error) {
			return "", errors.New("initiator password required")
		},
	}

	_, err := run(a, "balance", "--shortcode", "600981")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initiator password required")
	assert.Zero(t, d.client.CallCount())
}

func TestExpressCommand(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	d.on("/mpesa/stkpush/v1/processrequest", reply{http.StatusOK,
		`{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success","CustomerMessage":"Success"}`})
	a, _ := testApp(t, d, "")

	out, err := run(a, "express",
		"--shortcode", "174379",
		"--phone", "254708374149",
		"--amount", "10",
		"--callback-url", "https://example.com/cb",
		"--reference", "INV-1",
	)
	require.NoError(t, err)

	var got mpesa.ExpressResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ws_CO_1", got.CheckoutRequestID)

	sent := d.sent("/mpesa/stkpush/v1/processrequest")
	require.Len(t, sent, 1)
	assert.Equal(t, "174379", sent[0]["BusinessShortCode"])
	assert.Equal(t, "CustomerPayBillOnline", sent[0]["TransactionType"])

	password, err := base64.StdEncoding.DecodeString(sent[0]["Password"].(string))
	require.NoError(t, err)
	assert.Equal(t, "174379"+mpesa.DefaultPasskey+sent[0]["Timestamp"].(string), string(password))
}

func TestC2BSimulateCommand_ProductionRejected(t *testing.T) {
	setTestEnv(t)
	t.Setenv("MPESA_ENVIRONMENT", "production")
	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	_, err := run(a, "c2b-simulate", "--shortcode", "600981", "--phone", "254708374149", "--amount", "10")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Zero(t, d.client.CallCount())
}

func TestBillCancelCommand(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	d.on("/v1/billmanager-invoice/cancel-single-invoice", reply{http.StatusOK, `{"rescode":"200","resmsg":"Success"}`})
	a, _ := testApp(t, d, "")

	out, err := run(a, "bill", "cancel", "1107", "1108")
	require.NoError(t, err)

	var got mpesa.BillManagerResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "200", got.ResCode)

	assert.JSONEq(t, `[{"externalReference":"1107"},{"externalReference":"1108"}]`,
		string(d.raw("/v1/billmanager-invoice/cancel-single-invoice")))
}

func TestBillBulkCommand(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	d.on("/v1/billmanager-invoice/bulk-invoicing", reply{http.StatusOK, `{"rescode":"200","resmsg":"Success"}`})
	a, _ := testApp(t, d, "")

	file := filepath.Join(t.TempDir(), "invoices.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{
		"ExternalReference": "1107",
		"BilledFullName": "John Doe",
		"BilledPhoneNumber": "0722000000",
		"BilledPeriod": "August 2021",
		"InvoiceName": "Jentrys",
		"DueDate": "2021-10-12T09:00:00Z",
		"AccountReference": "1ASD678H",
		"Amount": "800"
	}]`), 0o600))

	_, err := run(a, "bill", "bulk", file)
	require.NoError(t, err)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(d.raw("/v1/billmanager-invoice/bulk-invoicing"), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "1107", sent[0]["externalReference"])
}

func TestBillBulkCommand_BadFile(t *testing.T) {
	setTestEnv(t)
	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	_, err := run(a, "bill", "bulk", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading invoices")
}

func TestSecretManagerBackend_Local(t *testing.T) {
	setTestEnv(t)
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "mpesa", "sandbox"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "mpesa", "sandbox", "consumer-key"), []byte("file-key\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "mpesa", "sandbox", "consumer-secret"), []byte("file-secret\n"), 0o600))

	t.Setenv("SECRET_MANAGER", "local")
	t.Setenv("SECRETS_LOCAL_PATH", base)
	t.Setenv("MPESA_CONSUMER_KEY", "")
	t.Setenv("MPESA_CONSUMER_SECRET", "")
	t.Setenv("MPESA_CONSUMER_KEY_PATH", "")
	t.Setenv("MPESA_CONSUMER_SECRET_PATH", "")

	d := newDaraja(t)
	a, _ := testApp(t, d, "")

	_, err := run(a, "token")
	require.NoError(t, err)

	calls := d.client.Calls()
	require.Len(t, calls, 1)
	user, pass, ok := calls[0].BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "file-key", user)
	assert.Equal(t, "file-secret", pass)
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount(" 100 ")
	require.NoError(t, err)
	assert.Equal(t, "100", amount.String())

	amount, err = parseAmount("")
	require.NoError(t, err)
	assert.True(t, amount.IsZero())

	_, err = parseAmount("1,000")
	assert.Error(t, err)
}

func TestApp_Backoff(t *testing.T) {
	a := &app{}
	byKind, ok := a.backoff().(*resilience.ByErrorKind)
	require.True(t, ok)
	assert.Equal(t, resilience.AuthBackoff().MaxDelay, byKind.Auth.(*resilience.ExponentialBackoff).MaxDelay)

	a.retryDelay = 250 * time.Millisecond
	assert.Equal(t, &resilience.FixedBackoff{Delay: 250 * time.Millisecond}, a.backoff())
}
