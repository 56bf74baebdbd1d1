package mpesa

import "context"

// TransactionStatusRequest looks up the status of a transaction
type TransactionStatusRequest struct {
	TransactionID   string
	PartyA          string
	IdentifierType  IdentifierType
	Remarks         string
	Occasion        string
	QueueTimeoutURL string
	ResultURL       string
}

// Validate checks the request before any network call
func (r *TransactionStatusRequest) Validate() error {
	return firstError(
		required("transaction_id", r.TransactionID),
		required("party_a", r.PartyA),
		validateIdentifier("identifier_type", r.IdentifierType),
		validateURL("queue_timeout_url", r.QueueTimeoutURL),
		validateURL("result_url", r.ResultURL),
	)
}

type transactionStatusPayload struct {
	Initiator          string         `json:"Initiator"`
	SecurityCredential string         `json:"SecurityCredential"`
	CommandID          CommandID      `json:"CommandID"`
	TransactionID      string         `json:"TransactionID"`
	PartyA             string         `json:"PartyA"`
	IdentifierType     IdentifierType `json:"IdentifierType"`
	Remarks            string         `json:"Remarks"`
	Occasion           string         `json:"Occasion"`
	QueueTimeOutURL    string         `json:"QueueTimeOutURL"`
	ResultURL          string         `json:"ResultURL"`
}

// TransactionStatus queries a transaction. The status is delivered
// asynchronously to ResultURL.
func (c *Client) TransactionStatus(ctx context.Context, req TransactionStatusRequest) (*AsyncResponse, error) {
	var resp AsyncResponse
	err := c.send(ctx, transactionStatusEndpoint, &req, func(credential string) any {
		remarks := req.Remarks
		if remarks == "" {
			remarks = "None"
		}
		return transactionStatusPayload{
			Initiator:          c.credentials.InitiatorName,
			SecurityCredential: credential,
			CommandID:          TransactionStatusQuery,
			TransactionID:      req.TransactionID,
			PartyA:             req.PartyA,
			IdentifierType:     req.IdentifierType,
			Remarks:            remarks,
			Occasion:           req.Occasion,
			QueueTimeOutURL:    req.QueueTimeoutURL,
			ResultURL:          req.ResultURL,
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
