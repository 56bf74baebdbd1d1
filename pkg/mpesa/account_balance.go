package mpesa

import "context"

// AccountBalanceRequest queries the balance of a shortcode, till or MSISDN
type AccountBalanceRequest struct {
	PartyA          string
	IdentifierType  IdentifierType
	Remarks         string
	QueueTimeoutURL string
	ResultURL       string
}

// Validate checks the request before any network call
func (r *AccountBalanceRequest) Validate() error {
	return firstError(
		required("party_a", r.PartyA),
		validateIdentifier("identifier_type", r.IdentifierType),
		validateURL("queue_timeout_url", r.QueueTimeoutURL),
		validateURL("result_url", r.ResultURL),
	)
}

type accountBalancePayload struct {
	Initiator          string         `json:"Initiator"`
	SecurityCredential string         `json:"SecurityCredential"`
	CommandID          CommandID      `json:"CommandID"`
	PartyA             string         `json:"PartyA"`
	IdentifierType     IdentifierType `json:"IdentifierType"`
	Remarks            string         `json:"Remarks"`
	QueueTimeOutURL    string         `json:"QueueTimeOutURL"`
	ResultURL          string         `json:"ResultURL"`
}

// AccountBalance enquires the balance on an M-Pesa account. The balance is
// delivered asynchronously to ResultURL.
func (c *Client) AccountBalance(ctx context.Context, req AccountBalanceRequest) (*AsyncResponse, error) {
	var resp AsyncResponse
	err := c.send(ctx, accountBalanceEndpoint, &req, func(credential string) any {
		remarks := req.Remarks
		if remarks == "" {
			remarks = "None"
		}
		return accountBalancePayload{
			Initiator:          c.credentials.InitiatorName,
			SecurityCredential: credential,
			CommandID:          AccountBalanceQuery,
			PartyA:             req.PartyA,
			IdentifierType:     req.IdentifierType,
			Remarks:            remarks,
			QueueTimeOutURL:    req.QueueTimeoutURL,
			ResultURL:          req.ResultURL,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
