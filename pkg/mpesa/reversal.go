package mpesa

import (
	"context"

	"github.com/shopspring/decimal"
)

// ReversalRequest reverses a completed M-Pesa transaction
type ReversalRequest struct {
	TransactionID          string
	Amount                 decimal.Decimal
	ReceiverParty          string
	ReceiverIdentifierType IdentifierType
	Remarks                string
	Occasion               string
	QueueTimeoutURL        string
	ResultURL              string
}

// Validate checks the request before any network call
func (r *ReversalRequest) Validate() error {
	return firstError(
		required("transaction_id", r.TransactionID),
		validateAmount("amount", r.Amount),
		required("receiver_party", r.ReceiverParty),
		validateIdentifier("receiver_identifier_type", r.ReceiverIdentifierType),
		validateURL("queue_timeout_url", r.QueueTimeoutURL),
		validateURL("result_url", r.ResultURL),
	)
}

type reversalPayload struct {
	Initiator              string         `json:"Initiator"`
	SecurityCredential     string         `json:"SecurityCredential"`
	CommandID              CommandID      `json:"CommandID"`
	TransactionID          string         `json:"TransactionID"`
	Amount                 int64          `json:"Amount"`
	ReceiverParty          string         `json:"ReceiverParty"`
	RecieverIdentifierType IdentifierType `json:"RecieverIdentifierType"`
	Remarks                string         `json:"Remarks"`
	Occasion               string         `json:"Occasion"`
	QueueTimeOutURL        string         `json:"QueueTimeOutURL"`
	ResultURL              string         `json:"ResultURL"`
}

// Reversal asks the provider to reverse a transaction. The outcome is
// delivered asynchronously to ResultURL.
func (c *Client) Reversal(ctx context.Context, req ReversalRequest) (*AsyncResponse, error) {
	var resp AsyncResponse
	err := c.send(ctx, reversalEndpoint, &req, func(credential string) any {
		remarks := req.Remarks
		if remarks == "" {
			remarks = "None"
		}
		return reversalPayload{
			Initiator:              c.credentials.InitiatorName,
			SecurityCredential:     credential,
			CommandID:              TransactionReversal,
			TransactionID:          req.TransactionID,
			Amount:                 req.Amount.IntPart(),
			ReceiverParty:          req.ReceiverParty,
			RecieverIdentifierType: req.ReceiverIdentifierType,
			Remarks:                remarks,
			Occasion:               req.Occasion,
			QueueTimeOutURL:        req.QueueTimeoutURL,
			ResultURL:              req.ResultURL,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
