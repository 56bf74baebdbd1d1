package mpesa

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// B2CRequest pays out from a business shortcode to a customer phone number
type B2CRequest struct {
	// OriginatorConversationID defaults to a random UUID
	OriginatorConversationID string
	CommandID                CommandID
	Amount                   decimal.Decimal
	PartyA                   string
	PartyB                   string
	Remarks                  string
	QueueTimeoutURL          string
	ResultURL                string
	Occasion                 string
}

// Validate checks the request before any network call
func (r *B2CRequest) Validate() error {
	return firstError(
		validateCommand("command_id", r.CommandID, SalaryPayment, BusinessPayment, PromotionPayment),
		validateAmount("amount", r.Amount),
		required("party_a", r.PartyA),
		validatePhone("party_b", r.PartyB),
		validateURL("queue_timeout_url", r.QueueTimeoutURL),
		validateURL("result_url", r.ResultURL),
	)
}

type b2cPayload struct {
	OriginatorConversationID string    `json:"OriginatorConversationID"`
	InitiatorName            string    `json:"InitiatorName"`
	SecurityCredential       string    `json:"SecurityCredential"`
	CommandID                CommandID `json:"CommandID"`
	Amount                   int64     `json:"Amount"`
	PartyA                   string    `json:"PartyA"`
	PartyB                   string    `json:"PartyB"`
	Remarks                  string    `json:"Remarks"`
	QueueTimeOutURL          string    `json:"QueueTimeOutURL"`
	ResultURL                string    `json:"ResultURL"`
	// the provider spells it this way
	Occassion string `json:"Occassion"`
}

// B2C sends money from a business to a customer. The outcome is delivered
// asynchronously to ResultURL.
func (c *Client) B2C(ctx context.Context, req B2CRequest) (*AsyncResponse, error) {
	var resp AsyncResponse
	err := c.send(ctx, b2cEndpoint, &req, func(credential string) any {
		originatorID := req.OriginatorConversationID
		if originatorID == "" {
			originatorID = uuid.NewString()
		}
		partyB, _ := NormalizePhone(req.PartyB)
		remarks := req.Remarks
		if remarks == "" {
			remarks = "None"
		}
		return b2cPayload{
			OriginatorConversationID: originatorID,
			InitiatorName:            c.credentials.InitiatorName,
			SecurityCredential:       credential,
			CommandID:                req.CommandID,
			Amount:                   req.Amount.IntPart(),
			PartyA:                   req.PartyA,
			PartyB:                   partyB,
			Remarks:                  remarks,
			QueueTimeOutURL:          req.QueueTimeoutURL,
			ResultURL:                req.ResultURL,
			Occassion:                req.Occasion,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
