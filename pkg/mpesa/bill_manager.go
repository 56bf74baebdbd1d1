package mpesa

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/daraja"
	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/kevin07696/mpesa-sdk/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// BillManagerResponse is returned by every bill manager operation
type BillManagerResponse struct {
	// AppKey is only set by onboarding
	AppKey        string `json:"app_key,omitempty"`
	ResCode       string `json:"rescode"`
	ResMsg        string `json:"resmsg"`
	StatusMessage string `json:"Status_Message,omitempty"`
}

// BillManagerOnboardRequest opts a paybill into bill manager, or changes its details
type BillManagerOnboardRequest struct {
	ShortCode       string
	Email           string
	OfficialContact string
	SendReminders   bool
	// Logo is an optional image URL shown on invoices
	Logo        string
	CallbackURL string
}

// Validate checks the request before any network call
func (r *BillManagerOnboardRequest) Validate() error {
	var email error
	if _, err := mail.ParseAddress(r.Email); err != nil {
		email = pkgerrors.NewValidationError("email", fmt.Sprintf("%q is not a valid email address", r.Email))
	}
	return firstError(
		required("short_code", r.ShortCode),
		email,
		validatePhone("official_contact", r.OfficialContact),
		validateURL("callback_url", r.CallbackURL),
	)
}

type billOnboardPayload struct {
	ShortCode       string `json:"shortcode"`
	Email           string `json:"email"`
	OfficialContact string `json:"officialContact"`
	SendReminders   string `json:"sendReminders"`
	Logo            string `json:"logo,omitempty"`
	CallbackURL     string `json:"callbackurl"`
}

func (r *BillManagerOnboardRequest) payload() billOnboardPayload {
	reminders := "0"
	if r.SendReminders {
		reminders = "1"
	}
	contact, _ := NormalizePhone(r.OfficialContact)
	return billOnboardPayload{
		ShortCode:       r.ShortCode,
		Email:           r.Email,
		OfficialContact: contact,
		SendReminders:   reminders,
		Logo:            r.Logo,
		CallbackURL:     r.CallbackURL,
	}
}

// BillManagerOnboard opts a paybill into bill manager. The response carries the app key.
func (c *Client) BillManagerOnboard(ctx context.Context, req BillManagerOnboardRequest) (*BillManagerResponse, error) {
	return c.billManager(ctx, billOnboardEndpoint, &req, func() any { return req.payload() })
}

// BillManagerOnboardModify changes the details of an onboarded paybill
func (c *Client) BillManagerOnboardModify(ctx context.Context, req BillManagerOnboardRequest) (*BillManagerResponse, error) {
	return c.billManager(ctx, billOnboardModifyEndpoint, &req, func() any { return req.payload() })
}

// InvoiceItem is one line of an invoice
type InvoiceItem struct {
	ItemName string
	Amount   decimal.Decimal
}

// Invoice is a bill sent to a customer
type Invoice struct {
	ExternalReference string
	BilledFullName    string
	BilledPhoneNumber string
	// BilledPeriod is free text such as "August 2021"
	BilledPeriod     string
	InvoiceName      string
	DueDate          time.Time
	AccountReference string
	Amount           decimal.Decimal
	InvoiceItems     []InvoiceItem
}

// Validate checks the invoice before any network call
func (r *Invoice) Validate() error {
	var dueDate error
	if r.DueDate.IsZero() {
		dueDate = pkgerrors.NewValidationError("due_date", "is required")
	}
	if err := firstError(
		required("external_reference", r.ExternalReference),
		required("billed_full_name", r.BilledFullName),
		validatePhone("billed_phone_number", r.BilledPhoneNumber),
		required("billed_period", r.BilledPeriod),
		required("invoice_name", r.InvoiceName),
		dueDate,
		required("account_reference", r.AccountReference),
		validateAmount("amount", r.Amount),
	); err != nil {
		return err
	}

	for i, item := range r.InvoiceItems {
		if err := firstError(
			required(fmt.Sprintf("invoice_items[%d].item_name", i), item.ItemName),
			validateAmount(fmt.Sprintf("invoice_items[%d].amount", i), item.Amount),
		); err != nil {
			return err
		}
	}
	return nil
}

type invoiceItemPayload struct {
	ItemName string `json:"itemName"`
	Amount   int64  `json:"amount"`
}

type invoicePayload struct {
	ExternalReference string               `json:"externalReference"`
	BilledFullName    string               `json:"billedFullName"`
	BilledPhoneNumber string               `json:"billedPhoneNumber"`
	BilledPeriod      string               `json:"billedPeriod"`
	InvoiceName       string               `json:"invoiceName"`
	DueDate           string               `json:"dueDate"`
	AccountReference  string               `json:"accountReference"`
	Amount            int64                `json:"amount"`
	InvoiceItems      []invoiceItemPayload `json:"invoiceItems,omitempty"`
}

func (r *Invoice) payload() invoicePayload {
	phone, _ := NormalizePhone(r.BilledPhoneNumber)
	items := make([]invoiceItemPayload, len(r.InvoiceItems))
	for i, item := range r.InvoiceItems {
		items[i] = invoiceItemPayload{ItemName: item.ItemName, Amount: item.Amount.IntPart()}
	}
	return invoicePayload{
		ExternalReference: r.ExternalReference,
		BilledFullName:    r.BilledFullName,
		BilledPhoneNumber: phone,
		BilledPeriod:      r.BilledPeriod,
		InvoiceName:       r.InvoiceName,
		DueDate:           timeutil.FormatDateTime(r.DueDate),
		AccountReference:  r.AccountReference,
		Amount:            r.Amount.IntPart(),
		InvoiceItems:      items,
	}
}

// BillManagerSingleInvoice sends one invoice
func (c *Client) BillManagerSingleInvoice(ctx context.Context, req Invoice) (*BillManagerResponse, error) {
	return c.billManager(ctx, billSingleInvoiceEndpoint, &req, func() any { return req.payload() })
}

// BulkInvoiceRequest sends several invoices in one call
type BulkInvoiceRequest struct {
	Invoices []Invoice
}

// Validate checks every invoice before any network call
func (r *BulkInvoiceRequest) Validate() error {
	if len(r.Invoices) == 0 {
		return pkgerrors.NewValidationError("invoices", "at least one invoice is required")
	}
	for i := range r.Invoices {
		if err := r.Invoices[i].Validate(); err != nil {
			var ve *pkgerrors.ValidationError
			if errors.As(err, &ve) {
				return pkgerrors.NewValidationError(fmt.Sprintf("invoices[%d].%s", i, ve.Field), ve.Message)
			}
			return err
		}
	}
	return nil
}

// BillManagerBulkInvoice sends several invoices at once
func (c *Client) BillManagerBulkInvoice(ctx context.Context, req BulkInvoiceRequest) (*BillManagerResponse, error) {
	return c.billManager(ctx, billBulkInvoiceEndpoint, &req, func() any {
		payload := make([]invoicePayload, len(req.Invoices))
		for i := range req.Invoices {
			payload[i] = req.Invoices[i].payload()
		}
		return payload
	})
}

// CancelInvoiceRequest cancels previously sent invoices by external reference
type CancelInvoiceRequest struct {
	ExternalReferences []string
}

// Validate checks the request before any network call
func (r *CancelInvoiceRequest) Validate() error {
	if len(r.ExternalReferences) == 0 {
		return pkgerrors.NewValidationError("external_references", "at least one reference is required")
	}
	for i, ref := range r.ExternalReferences {
		if err := required(fmt.Sprintf("external_references[%d]", i), ref); err != nil {
			return err
		}
	}
	return nil
}

type cancelInvoicePayload struct {
	ExternalReference string `json:"externalReference"`
}

// BillManagerCancelInvoice cancels invoices that have not been paid
func (c *Client) BillManagerCancelInvoice(ctx context.Context, req CancelInvoiceRequest) (*BillManagerResponse, error) {
	return c.billManager(ctx, billCancelInvoiceEndpoint, &req, func() any {
		payload := make([]cancelInvoicePayload, len(req.ExternalReferences))
		for i, ref := range req.ExternalReferences {
			payload[i] = cancelInvoicePayload{ExternalReference: ref}
		}
		return payload
	})
}

// ReconciliationRequest acknowledges a payment received against an invoice
type ReconciliationRequest struct {
	TransactionID     string
	PaidAmount        decimal.Decimal
	MSISDN            string
	DateCreated       time.Time
	AccountReference  string
	ShortCode         string
	FullName          string
	InvoiceName       string
	ExternalReference string
}

// Validate checks the request before any network call
func (r *ReconciliationRequest) Validate() error {
	var dateCreated error
	if r.DateCreated.IsZero() {
		dateCreated = pkgerrors.NewValidationError("date_created", "is required")
	}
	return firstError(
		required("transaction_id", r.TransactionID),
		validateAmount("paid_amount", r.PaidAmount),
		validatePhone("msisdn", r.MSISDN),
		dateCreated,
		required("account_reference", r.AccountReference),
		required("short_code", r.ShortCode),
		required("full_name", r.FullName),
		required("invoice_name", r.InvoiceName),
		required("external_reference", r.ExternalReference),
	)
}

type reconciliationPayload struct {
	TransactionID     string `json:"transactionId"`
	PaidAmount        int64  `json:"paidAmount"`
	MSISDN            string `json:"msisdn"`
	DateCreated       string `json:"dateCreated"`
	AccountReference  string `json:"accountReference"`
	ShortCode         string `json:"shortCode"`
	FullName          string `json:"fullName"`
	InvoiceName       string `json:"invoiceName"`
	ExternalReference string `json:"externalReference"`
}

// BillManagerReconciliation reconciles a payment with its invoice
func (c *Client) BillManagerReconciliation(ctx context.Context, req ReconciliationRequest) (*BillManagerResponse, error) {
	return c.billManager(ctx, billReconciliationEndpoint, &req, func() any {
		msisdn, _ := NormalizePhone(req.MSISDN)
		return reconciliationPayload{
			TransactionID:     req.TransactionID,
			PaidAmount:        req.PaidAmount.IntPart(),
			MSISDN:            msisdn,
			DateCreated:       timeutil.FormatDateTime(req.DateCreated),
			AccountReference:  req.AccountReference,
			ShortCode:         req.ShortCode,
			FullName:          req.FullName,
			InvoiceName:       req.InvoiceName,
			ExternalReference: req.ExternalReference,
		}
	})
}

func (c *Client) billManager(ctx context.Context, endpoint daraja.Endpoint, req validator, build func() any) (*BillManagerResponse, error) {
	var resp BillManagerResponse
	if err := c.send(ctx, endpoint, req, func(string) any { return build() }, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
