package mpesa

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/kevin07696/mpesa-sdk/pkg/timeutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asyncReply = `{"ConversationID":"AG_20240301_1","OriginatorConversationID":"16740-34861180-1","ResponseCode":"0","ResponseDescription":"Accept the service request successfully."}`

func validAccountBalance() AccountBalanceRequest {
	return AccountBalanceRequest{
		PartyA:          "600426",
		IdentifierType:  ShortCode,
		QueueTimeoutURL: "https://example.com/timeout",
		ResultURL:       "https://example.com/result",
	}
}

func validB2C() B2CRequest {
	return B2CRequest{
		CommandID:       BusinessPayment,
		Amount:          decimal.NewFromInt(10),
		PartyA:          "600496",
		PartyB:          "0708374149",
		Remarks:         "payout",
		QueueTimeoutURL: "https://example.com/timeout",
		ResultURL:       "https://example.com/result",
		Occasion:        "June",
	}
}

func validDynamicQR() DynamicQRRequest {
	return DynamicQRRequest{
		MerchantName: "TEST SUPERMARKET",
		RefNo:        "Invoice Test",
		Amount:       decimal.NewFromInt(2000),
		TrxCode:      BuyGoods,
		CPI:          "373132",
		Size:         300,
	}
}

func TestAccountBalance(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, asyncReply)
	c := newTestClient(t, Sandbox, fake)

	resp, err := c.AccountBalance(context.Background(), validAccountBalance())
	require.NoError(t, err)
	assert.Equal(t, "AG_20240301_1", resp.ConversationID)
	assert.Equal(t, "16740-34861180-1", resp.OriginatorConversationID)
	assert.Equal(t, "0", resp.ResponseCode)

	payload := fake.payload("/mpesa/accountbalance/v1/query")
	assert.Equal(t, "testapi", payload["Initiator"])
	assert.Equal(t, "AccountBalance", payload["CommandID"])
	assert.Equal(t, "600426", payload["PartyA"])
	assert.Equal(t, "4", payload["IdentifierType"])
	assert.Equal(t, "None", payload["Remarks"])
	assert.Equal(t, "https://example.com/timeout", payload["QueueTimeOutURL"])
	assert.Equal(t, "https://example.com/result", payload["ResultURL"])
	assert.NotEmpty(t, payload["SecurityCredential"])
	assert.NotEqual(t, "Safaricom999!*!", payload["SecurityCredential"])
}

func TestB2C(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, asyncReply)
	c := newTestClient(t, Sandbox, fake)

	_, err := c.B2C(context.Background(), validB2C())
	require.NoError(t, err)

	payload := fake.payload("/mpesa/b2c/v1/paymentrequest")
	assert.Equal(t, "testapi", payload["InitiatorName"])
	assert.Equal(t, "BusinessPayment", payload["CommandID"])
	assert.Equal(t, float64(10), payload["Amount"])
	assert.Equal(t, "254708374149", payload["PartyB"])
	assert.Equal(t, "June", payload["Occassion"])

	_, err = uuid.Parse(payload["OriginatorConversationID"].(string))
	assert.NoError(t, err)
}

func TestB2C_KeepsOriginatorConversationID(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, asyncReply)
	c := newTestClient(t, Sandbox, fake)

	req := validB2C()
	req.OriginatorConversationID = "my-id-1"
	_, err := c.B2C(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "my-id-1", fake.payload("/mpesa/b2c/v1/paymentrequest")["OriginatorConversationID"])
}

func TestB2C_InvalidAmountMakesNoHTTPCalls(t *testing.T) {
	for _, amount := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-1),
		decimal.RequireFromString("1.5"),
		decimal.RequireFromString("18446744073709551626"),
	} {
		t.Run(amount.String(), func(t *testing.T) {
			fake := newFakeDaraja(t, http.StatusOK, asyncReply)
			c := newTestClient(t, Sandbox, fake)

			req := validB2C()
			req.Amount = amount
			_, err := c.B2C(context.Background(), req)

			var ve *pkgerrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "amount", ve.Field)
			assert.Equal(t, 0, fake.client.CallCount())
		})
	}
}

func TestB2C_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *B2CRequest)
		field  string
	}{
		{name: "wrong command", mutate: func(r *B2CRequest) { r.CommandID = BusinessPayBill }, field: "command_id"},
		{name: "bad phone", mutate: func(r *B2CRequest) { r.PartyB = "12345" }, field: "party_b"},
		{name: "missing party a", mutate: func(r *B2CRequest) { r.PartyA = "" }, field: "party_a"},
		{name: "relative result url", mutate: func(r *B2CRequest) { r.ResultURL = "/result" }, field: "result_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validB2C()
			tt.mutate(&req)

			var ve *pkgerrors.ValidationError
			require.ErrorAs(t, req.Validate(), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestB2B(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, asyncReply)
	c := newTestClient(t, Sandbox, fake)

	_, err := c.B2B(context.Background(), B2BRequest{
		CommandID:              BusinessPayBill,
		Amount:                 decimal.NewFromInt(500),
		PartyA:                 "600000",
		SenderIdentifierType:   ShortCode,
		PartyB:                 "600001",
		ReceiverIdentifierType: ShortCode,
		AccountReference:       "353353",
		Requester:              "0708374149",
		QueueTimeoutURL:        "https://example.com/timeout",
		ResultURL:              "https://example.com/result",
	})
	require.NoError(t, err)

	payload := fake.payload("/mpesa/b2b/v1/paymentrequest")
	assert.Equal(t, "BusinessPayBill", payload["CommandID"])
	assert.Equal(t, float64(500), payload["Amount"])
	assert.Equal(t, "4", payload["SenderIdentifierType"])
	assert.Equal(t, "4", payload["RecieverIdentifierType"])
	assert.Equal(t, "353353", payload["AccountReference"])
	assert.Equal(t, "254708374149", payload["Requester"])
	assert.NotEmpty(t, payload["SecurityCredential"])
}

func TestB2B_RejectsCustomerCommand(t *testing.T) {
	req := B2BRequest{CommandID: SalaryPayment}
	assert.True(t, pkgerrors.IsValidation(req.Validate()))
}

func TestC2BRegister(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{"OriginatorCoversationID":"7619-37765134-1","ResponseCode":"0","ResponseDescription":"success"}`)
	c := newTestClient(t, Sandbox, fake)

	resp, err := c.C2BRegister(context.Background(), C2BRegisterRequest{
		ShortCode:       "600984",
		ConfirmationURL: "https://example.com/confirm",
		ValidationURL:   "https://example.com/validate",
	})
	require.NoError(t, err)
	assert.Equal(t, "7619-37765134-1", resp.OriginatorConversationID)

	payload := fake.payload("/mpesa/c2b/v1/registerurl")
	assert.Equal(t, "Completed", payload["ResponseType"])
	assert.NotContains(t, payload, "SecurityCredential")

	bad := C2BRegisterRequest{ShortCode: "1", ResponseType: "Maybe", ConfirmationURL: "https://a.b", ValidationURL: "https://a.b"}
	assert.True(t, pkgerrors.IsValidation(bad.Validate()))
}

func TestC2BSimulate(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{"OriginatorCoversationID":"1","ResponseCode":"0","ResponseDescription":"Accept the service request successfully."}`)
	c := newTestClient(t, Sandbox, fake)

	_, err := c.C2BSimulate(context.Background(), C2BSimulateRequest{
		Amount:    decimal.NewFromInt(1),
		MSISDN:    "+254708374149",
		ShortCode: "600984",
	})
	require.NoError(t, err)

	payload := fake.payload("/mpesa/c2b/v1/simulate")
	assert.Equal(t, "CustomerPayBillOnline", payload["CommandID"])
	assert.Equal(t, "254708374149", payload["Msisdn"])
	assert.Equal(t, "None", payload["BillRefNumber"])
}

func TestC2BSimulate_RejectedInProduction(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{}`)
	c := newTestClient(t, Production, fake)

	_, err := c.C2BSimulate(context.Background(), C2BSimulateRequest{
		Amount:    decimal.NewFromInt(1),
		MSISDN:    "254708374149",
		ShortCode: "600984",
	})

	var ve *pkgerrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "environment", ve.Field)
	assert.Equal(t, 0, fake.client.CallCount())
}

func TestReversal(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, asyncReply)
	c := newTestClient(t, Sandbox, fake)

	_, err := c.Reversal(context.Background(), ReversalRequest{
		TransactionID:          "OEI2AK4Q16",
		Amount:                 decimal.NewFromInt(100),
		ReceiverParty:          "600111",
		ReceiverIdentifierType: ShortCode,
		QueueTimeoutURL:        "https://example.com/timeout",
		ResultURL:              "https://example.com/result",
	})
	require.NoError(t, err)

	payload := fake.payload("/mpesa/reversal/v1/request")
	assert.Equal(t, "TransactionReversal", payload["CommandID"])
	assert.Equal(t, "OEI2AK4Q16", payload["TransactionID"])
	assert.Equal(t, "4", payload["RecieverIdentifierType"])
	assert.Equal(t, float64(100), payload["Amount"])
}

func TestTransactionStatus(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, asyncReply)
	c := newTestClient(t, Sandbox, fake)

	_, err := c.TransactionStatus(context.Background(), TransactionStatusRequest{
		TransactionID:   "OEI2AK4Q16",
		PartyA:          "600426",
		IdentifierType:  ShortCode,
		QueueTimeoutURL: "https://example.com/timeout",
		ResultURL:       "https://example.com/result",
	})
	require.NoError(t, err)

	payload := fake.payload("/mpesa/transactionstatus/v1/query")
	assert.Equal(t, "TransactionStatusQuery", payload["CommandID"])
	assert.Equal(t, "OEI2AK4Q16", payload["TransactionID"])
	assert.Equal(t, "testapi", payload["Initiator"])
}

func TestDynamicQR(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{"ResponseCode":"AG_20191219_000043fdf61864fe9ff5","ResponseDescription":"QR Code Successfully Generated.","QRCode":"iVBORw0KGgo="}`)
	c := newTestClient(t, Sandbox, fake)

	resp, err := c.DynamicQR(context.Background(), validDynamicQR())
	require.NoError(t, err)
	assert.Equal(t, "iVBORw0KGgo=", resp.QRCode)

	payload := fake.payload("/mpesa/qrcode/v1/generate")
	assert.Equal(t, "BG", payload["TrxCode"])
	assert.Equal(t, "300", payload["Size"])
	assert.Equal(t, float64(2000), payload["Amount"])
}

func TestDynamicQR_Validation(t *testing.T) {
	req := validDynamicQR()
	req.TrxCode = "XX"
	assert.True(t, pkgerrors.IsValidation(req.Validate()))

	req = validDynamicQR()
	req.Size = 0
	assert.True(t, pkgerrors.IsValidation(req.Validate()))
}

func TestExpress(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`)
	c := newTestClient(t, Sandbox, fake)

	resp, err := c.Express(context.Background(), ExpressRequest{
		BusinessShortCode: "174379",
		Amount:            decimal.NewFromInt(1),
		PartyA:            "0708374149",
		CallbackURL:       "https://example.com/callback",
		AccountReference:  "CompanyXLTD",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)

	payload := fake.payload("/mpesa/stkpush/v1/processrequest")
	timestamp := payload["Timestamp"].(string)

	// 09:30:45 UTC is 12:30:45 in Nairobi
	assert.Equal(t, "20240301123045", timestamp)
	assert.Equal(t, timeutil.ProviderTimestamp(fixedNow), timestamp)

	password, err := base64.StdEncoding.DecodeString(payload["Password"].(string))
	require.NoError(t, err)
	assert.Equal(t, "174379"+DefaultPasskey+timestamp, string(password))

	assert.Equal(t, "CustomerPayBillOnline", payload["TransactionType"])
	assert.Equal(t, "254708374149", payload["PartyA"])
	assert.Equal(t, "174379", payload["PartyB"])
	assert.Equal(t, "254708374149", payload["PhoneNumber"])
	assert.Equal(t, "https://example.com/callback", payload["CallBackURL"])
	assert.Equal(t, "None", payload["TransactionDesc"])
}

func TestExpress_PasswordUsesPayloadTimestamp(t *testing.T) {
	ticks := []time.Time{
		time.Date(2024, 3, 1, 9, 30, 45, 0, time.UTC),
		time.Date(2024, 3, 1, 9, 30, 46, 0, time.UTC),
	}
	i := 0
	fake := newFakeDaraja(t, http.StatusOK, `{"ResponseCode":"0"}`)
	c := newTestClient(t, Sandbox, fake, withClock(func() time.Time {
		now := ticks[i%len(ticks)]
		i++
		return now
	}))

	_, err := c.Express(context.Background(), ExpressRequest{
		BusinessShortCode: "174379",
		Passkey:           "custom-passkey",
		TransactionType:   CustomerBuyGoodsOnline,
		Amount:            decimal.NewFromInt(1),
		PartyA:            "254708374149",
		PartyB:            "600000",
		CallbackURL:       "https://example.com/callback",
		AccountReference:  "ref",
	})
	require.NoError(t, err)

	payload := fake.payload("/mpesa/stkpush/v1/processrequest")
	password, err := base64.StdEncoding.DecodeString(payload["Password"].(string))
	require.NoError(t, err)
	assert.Equal(t, "174379custom-passkey"+payload["Timestamp"].(string), string(password))
	assert.Equal(t, "600000", payload["PartyB"])
}

func TestExpress_Validation(t *testing.T) {
	base := ExpressRequest{
		BusinessShortCode: "174379",
		Amount:            decimal.NewFromInt(1),
		PartyA:            "254708374149",
		CallbackURL:       "https://example.com/callback",
		AccountReference:  "ref",
	}
	require.NoError(t, base.Validate())

	wrongType := base
	wrongType.TransactionType = BusinessPayment
	assert.True(t, pkgerrors.IsValidation(wrongType.Validate()))

	badPhone := base
	badPhone.PhoneNumber = "0808374149"
	assert.True(t, pkgerrors.IsValidation(badPhone.Validate()))

	noCallback := base
	noCallback.CallbackURL = ""
	assert.True(t, pkgerrors.IsValidation(noCallback.Validate()))
}

func TestExpressQuery(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{"ResponseCode":"0","ResponseDescription":"The service request has been accepted successsfully","MerchantRequestID":"22205-34066-1","CheckoutRequestID":"ws_CO_13012021093521236557","ResultCode":"0","ResultDesc":"The service request is processed successfully."}`)
	c := newTestClient(t, Sandbox, fake)

	resp, err := c.ExpressQuery(context.Background(), ExpressQueryRequest{
		BusinessShortCode: "174379",
		CheckoutRequestID: "ws_CO_13012021093521236557",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.ResultCode.String())

	payload := fake.payload("/mpesa/stkpushquery/v1/query")
	password, err := base64.StdEncoding.DecodeString(payload["Password"].(string))
	require.NoError(t, err)
	assert.Equal(t, "174379"+DefaultPasskey+payload["Timestamp"].(string), string(password))
}

func TestExpressQuery_NumericResultCode(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusOK, `{"ResponseCode":"0","ResultCode":1032,"ResultDesc":"Request cancelled by user"}`)
	c := newTestClient(t, Sandbox, fake)

	resp, err := c.ExpressQuery(context.Background(), ExpressQueryRequest{BusinessShortCode: "174379", CheckoutRequestID: "ws_1"})
	require.NoError(t, err)
	assert.Equal(t, "1032", resp.ResultCode.String())
}

func TestOperations_RemoteErrorIsClassified(t *testing.T) {
	fake := newFakeDaraja(t, http.StatusInternalServerError, `{"requestId":"11728-2929992-1","errorCode":"500.001.1001","errorMessage":"invalid access token"}`)
	c := newTestClient(t, Sandbox, fake)

	_, err := c.B2C(context.Background(), validB2C())

	var apiErr *pkgerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, pkgerrors.APIRemote, apiErr.Kind)
	assert.Equal(t, "500.001.1001", apiErr.Code)
	assert.Equal(t, "invalid access token", apiErr.Description)
	assert.Equal(t, "11728-2929992-1", apiErr.RequestID)
	assert.Equal(t, 1, fake.client.CallsTo("/mpesa/"))
}
