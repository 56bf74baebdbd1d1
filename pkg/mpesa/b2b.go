package mpesa

import (
	"context"

	"github.com/shopspring/decimal"
)

// B2BRequest moves money between two business shortcodes or tills
type B2BRequest struct {
	CommandID              CommandID
	Amount                 decimal.Decimal
	PartyA                 string
	SenderIdentifierType   IdentifierType
	PartyB                 string
	ReceiverIdentifierType IdentifierType
	AccountReference       string
	// Requester is the optional customer phone number on whose behalf the business pays
	Requester       string
	Remarks         string
	QueueTimeoutURL string
	ResultURL       string
}

// Validate checks the request before any network call
func (r *B2BRequest) Validate() error {
	var requester error
	if r.Requester != "" {
		requester = validatePhone("requester", r.Requester)
	}
	return firstError(
		validateCommand("command_id", r.CommandID,
			BusinessPayBill, BusinessBuyGoods, DisburseFundsToBusiness, BusinessToBusinessTransfer, MerchantToMerchantTransfer),
		validateAmount("amount", r.Amount),
		required("party_a", r.PartyA),
		validateIdentifier("sender_identifier_type", r.SenderIdentifierType),
		required("party_b", r.PartyB),
		validateIdentifier("receiver_identifier_type", r.ReceiverIdentifierType),
		required("account_reference", r.AccountReference),
		requester,
		validateURL("queue_timeout_url", r.QueueTimeoutURL),
		validateURL("result_url", r.ResultURL),
	)
}

type b2bPayload struct {
	Initiator              string         `json:"Initiator"`
	SecurityCredential     string         `json:"SecurityCredential"`
	CommandID              CommandID      `json:"CommandID"`
	Amount                 int64          `json:"Amount"`
	PartyA                 string         `json:"PartyA"`
	SenderIdentifierType   IdentifierType `json:"SenderIdentifierType"`
	PartyB                 string         `json:"PartyB"`
	RecieverIdentifierType IdentifierType `json:"RecieverIdentifierType"`
	AccountReference       string         `json:"AccountReference"`
	Requester              string         `json:"Requester,omitempty"`
	Remarks                string         `json:"Remarks"`
	QueueTimeOutURL        string         `json:"QueueTimeOutURL"`
	ResultURL              string         `json:"ResultURL"`
}

// B2B pays from one business to another. The outcome is delivered
// asynchronously to ResultURL.
func (c *Client) B2B(ctx context.Context, req B2BRequest) (*AsyncResponse, error) {
	var resp AsyncResponse
	err := c.send(ctx, b2bEndpoint, &req, func(credential string) any {
		requester := ""
		if req.Requester != "" {
			requester, _ = NormalizePhone(req.Requester)
		}
		remarks := req.Remarks
		if remarks == "" {
			remarks = "None"
		}
		return b2bPayload{
			Initiator:              c.credentials.InitiatorName,
			SecurityCredential:     credential,
			CommandID:              req.CommandID,
			Amount:                 req.Amount.IntPart(),
			PartyA:                 req.PartyA,
			SenderIdentifierType:   req.SenderIdentifierType,
			PartyB:                 req.PartyB,
			RecieverIdentifierType: req.ReceiverIdentifierType,
			AccountReference:       req.AccountReference,
			Requester:              requester,
			Remarks:                remarks,
			QueueTimeOutURL:        req.QueueTimeoutURL,
			ResultURL:              req.ResultURL,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
