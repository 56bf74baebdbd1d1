package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/kevin07696/mpesa-sdk/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// ExpressRequest prompts a customer's phone to authorise a payment (STK push)
type ExpressRequest struct {
	BusinessShortCode string
	// Passkey defaults to the sandbox passkey
	Passkey string
	// TransactionType defaults to CustomerPayBillOnline
	TransactionType CommandID
	Amount          decimal.Decimal
	// PartyA is the paying phone number
	PartyA string
	// PartyB receives the funds. Defaults to BusinessShortCode.
	PartyB string
	// PhoneNumber receives the PIN prompt. Defaults to PartyA.
	PhoneNumber      string
	CallbackURL      string
	AccountReference string
	TransactionDesc  string
}

// Validate checks the request before any network call
func (r *ExpressRequest) Validate() error {
	txType := r.TransactionType
	if txType == "" {
		txType = CustomerPayBillOnline
	}
	var phone error
	if r.PhoneNumber != "" {
		phone = validatePhone("phone_number", r.PhoneNumber)
	}
	return firstError(
		required("business_short_code", r.BusinessShortCode),
		validateCommand("transaction_type", txType, CustomerPayBillOnline, CustomerBuyGoodsOnline),
		validateAmount("amount", r.Amount),
		validatePhone("party_a", r.PartyA),
		phone,
		validateURL("callback_url", r.CallbackURL),
		required("account_reference", r.AccountReference),
	)
}

type expressPayload struct {
	BusinessShortCode string    `json:"BusinessShortCode"`
	Password          string    `json:"Password"`
	Timestamp         string    `json:"Timestamp"`
	TransactionType   CommandID `json:"TransactionType"`
	Amount            int64     `json:"Amount"`
	PartyA            string    `json:"PartyA"`
	PartyB            string    `json:"PartyB"`
	PhoneNumber       string    `json:"PhoneNumber"`
	CallBackURL       string    `json:"CallBackURL"`
	AccountReference  string    `json:"AccountReference"`
	TransactionDesc   string    `json:"TransactionDesc"`
}

// ExpressResponse acknowledges an STK push
type ExpressResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// ExpressPassword returns base64(shortcode + passkey + timestamp)
func ExpressPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// expressAuth returns the timestamp and matching password for one request
func (c *Client) expressAuth(shortCode, passkey string) (timestamp, password string) {
	if passkey == "" {
		passkey = DefaultPasskey
	}
	timestamp = timeutil.ProviderTimestamp(c.clock())
	return timestamp, ExpressPassword(shortCode, passkey, timestamp)
}

// Express initiates an STK push. The payment result is delivered
// asynchronously to CallbackURL.
func (c *Client) Express(ctx context.Context, req ExpressRequest) (*ExpressResponse, error) {
	var resp ExpressResponse
	err := c.send(ctx, expressEndpoint, &req, func(string) any {
		timestamp, password := c.expressAuth(req.BusinessShortCode, req.Passkey)

		txType := req.TransactionType
		if txType == "" {
			txType = CustomerPayBillOnline
		}
		partyA, _ := NormalizePhone(req.PartyA)
		phone := partyA
		if req.PhoneNumber != "" {
			phone, _ = NormalizePhone(req.PhoneNumber)
		}
		partyB := req.PartyB
		if partyB == "" {
			partyB = req.BusinessShortCode
		}
		desc := req.TransactionDesc
		if desc == "" {
			desc = "None"
		}

		return expressPayload{
			BusinessShortCode: req.BusinessShortCode,
			Password:          password,
			Timestamp:         timestamp,
			TransactionType:   txType,
			Amount:            req.Amount.IntPart(),
			PartyA:            partyA,
			PartyB:            partyB,
			PhoneNumber:       phone,
			CallBackURL:       req.CallbackURL,
			AccountReference:  req.AccountReference,
			TransactionDesc:   desc,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExpressQueryRequest checks the status of an STK push
type ExpressQueryRequest struct {
	BusinessShortCode string
	// Passkey defaults to the sandbox passkey
	Passkey           string
	CheckoutRequestID string
}

// Validate checks the request before any network call
func (r *ExpressQueryRequest) Validate() error {
	return firstError(
		required("business_short_code", r.BusinessShortCode),
		required("checkout_request_id", r.CheckoutRequestID),
	)
}

type expressQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// ExpressQueryResponse reports the outcome of an STK push
type ExpressQueryResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	// ResultCode arrives as either a string or a number; "0" means the customer paid
	ResultCode json.Number `json:"ResultCode"`
	ResultDesc string      `json:"ResultDesc"`
}

// ExpressQuery checks whether an STK push was completed
func (c *Client) ExpressQuery(ctx context.Context, req ExpressQueryRequest) (*ExpressQueryResponse, error) {
	var resp ExpressQueryResponse
	err := c.send(ctx, expressQueryEndpoint, &req, func(string) any {
		timestamp, password := c.expressAuth(req.BusinessShortCode, req.Passkey)
		return expressQueryPayload{
			BusinessShortCode: req.BusinessShortCode,
			Password:          password,
			Timestamp:         timestamp,
			CheckoutRequestID: req.CheckoutRequestID,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
