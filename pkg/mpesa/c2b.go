package mpesa

import (
	"context"
	"fmt"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/shopspring/decimal"
)

// C2BResponse acknowledges a C2B register or simulate request
type C2BResponse struct {
	ConversationID string `json:"ConversationID"`
	// the provider spells the key OriginatorCoversationID
	OriginatorConversationID string `json:"OriginatorCoversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// C2BRegisterRequest registers the confirmation and validation URLs of a shortcode
type C2BRegisterRequest struct {
	ShortCode string
	// ResponseType is applied when ValidationURL cannot be reached. Defaults to Completed.
	ResponseType    ResponseType
	ConfirmationURL string
	ValidationURL   string
}

// Validate checks the request before any network call
func (r *C2BRegisterRequest) Validate() error {
	var responseType error
	if r.ResponseType != "" && r.ResponseType != ResponseCompleted && r.ResponseType != ResponseCancelled {
		responseType = pkgerrors.NewValidationError("response_type", fmt.Sprintf("%q is not Completed or Cancelled", r.ResponseType))
	}
	return firstError(
		required("short_code", r.ShortCode),
		responseType,
		validateURL("confirmation_url", r.ConfirmationURL),
		validateURL("validation_url", r.ValidationURL),
	)
}

type c2bRegisterPayload struct {
	ShortCode       string       `json:"ShortCode"`
	ResponseType    ResponseType `json:"ResponseType"`
	ConfirmationURL string       `json:"ConfirmationURL"`
	ValidationURL   string       `json:"ValidationURL"`
}

// C2BRegister registers the URLs that receive customer payment notifications
func (c *Client) C2BRegister(ctx context.Context, req C2BRegisterRequest) (*C2BResponse, error) {
	var resp C2BResponse
	err := c.send(ctx, c2bRegisterEndpoint, &req, func(string) any {
		responseType := req.ResponseType
		if responseType == "" {
			responseType = ResponseCompleted
		}
		return c2bRegisterPayload{
			ShortCode:       req.ShortCode,
			ResponseType:    responseType,
			ConfirmationURL: req.ConfirmationURL,
			ValidationURL:   req.ValidationURL,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// C2BSimulateRequest simulates a customer paying a shortcode. Sandbox only.
type C2BSimulateRequest struct {
	// CommandID defaults to CustomerPayBillOnline
	CommandID     CommandID
	Amount        decimal.Decimal
	MSISDN        string
	BillRefNumber string
	ShortCode     string
}

// Validate checks the request before any network call
func (r *C2BSimulateRequest) Validate() error {
	command := r.CommandID
	if command == "" {
		command = CustomerPayBillOnline
	}
	return firstError(
		validateCommand("command_id", command, CustomerPayBillOnline, CustomerBuyGoodsOnline),
		validateAmount("amount", r.Amount),
		validatePhone("msisdn", r.MSISDN),
		required("short_code", r.ShortCode),
	)
}

type c2bSimulatePayload struct {
	CommandID     CommandID `json:"CommandID"`
	Amount        int64     `json:"Amount"`
	Msisdn        string    `json:"Msisdn"`
	BillRefNumber string    `json:"BillRefNumber"`
	ShortCode     string    `json:"ShortCode"`
}

// C2BSimulate makes a simulated customer payment. It is rejected outside the
// sandbox before any network call.
func (c *Client) C2BSimulate(ctx context.Context, req C2BSimulateRequest) (*C2BResponse, error) {
	if c.env != Sandbox {
		return nil, pkgerrors.NewValidationError("environment", "C2B simulate is only available in the sandbox")
	}

	var resp C2BResponse
	err := c.send(ctx, c2bSimulateEndpoint, &req, func(string) any {
		command := req.CommandID
		if command == "" {
			command = CustomerPayBillOnline
		}
		msisdn, _ := NormalizePhone(req.MSISDN)
		billRef := req.BillRefNumber
		if billRef == "" {
			billRef = "None"
		}
		return c2bSimulatePayload{
			CommandID:     command,
			Amount:        req.Amount.IntPart(),
			Msisdn:        msisdn,
			BillRefNumber: billRef,
			ShortCode:     req.ShortCode,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
