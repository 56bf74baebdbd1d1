package mpesa

import "github.com/kevin07696/mpesa-sdk/internal/adapters/daraja"

// Endpoint descriptors for every provider operation
var (
	accountBalanceEndpoint    = daraja.Post("account_balance", "mpesa/accountbalance/v1/query").WithSecurityCredential()
	b2bEndpoint               = daraja.Post("b2b", "mpesa/b2b/v1/paymentrequest").WithSecurityCredential()
	b2cEndpoint               = daraja.Post("b2c", "mpesa/b2c/v1/paymentrequest").WithSecurityCredential()
	c2bRegisterEndpoint       = daraja.Post("c2b_register", "mpesa/c2b/v1/registerurl")
	c2bSimulateEndpoint       = daraja.Post("c2b_simulate", "mpesa/c2b/v1/simulate")
	reversalEndpoint          = daraja.Post("reversal", "mpesa/reversal/v1/request").WithSecurityCredential()
	transactionStatusEndpoint = daraja.Post("transaction_status", "mpesa/transactionstatus/v1/query").WithSecurityCredential()
	dynamicQREndpoint         = daraja.Post("dynamic_qr", "mpesa/qrcode/v1/generate")
	expressEndpoint           = daraja.Post("express", "mpesa/stkpush/v1/processrequest")
	expressQueryEndpoint      = daraja.Post("express_query", "mpesa/stkpushquery/v1/query")

	// Bill manager paths sit outside the mpesa/ prefix
	billOnboardEndpoint        = daraja.Post("bill_manager_onboard", "v1/billmanager-invoice/optin")
	billOnboardModifyEndpoint  = daraja.Post("bill_manager_onboard_modify", "v1/billmanager-invoice/change-optin-details")
	billSingleInvoiceEndpoint  = daraja.Post("bill_manager_single_invoice", "v1/billmanager-invoice/single-invoicing")
	billBulkInvoiceEndpoint    = daraja.Post("bill_manager_bulk_invoice", "v1/billmanager-invoice/bulk-invoicing")
	billCancelInvoiceEndpoint  = daraja.Post("bill_manager_cancel_invoice", "v1/billmanager-invoice/cancel-single-invoice")
	billReconciliationEndpoint = daraja.Post("bill_manager_reconciliation", "v1/billmanager-invoice/reconciliation")
)

// AsyncResponse acknowledges a request whose result is delivered to ResultURL
type AsyncResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}
