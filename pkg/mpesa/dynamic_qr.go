package mpesa

import (
	"context"
	"fmt"
	"strconv"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/shopspring/decimal"
)

// DynamicQRRequest generates a QR code customers scan to pay
type DynamicQRRequest struct {
	MerchantName string
	RefNo        string
	Amount       decimal.Decimal
	TrxCode      TransactionCode
	// CPI is the credit party identifier: till, paybill, phone or business number
	CPI string
	// Size is the QR image edge in pixels
	Size int
}

// Validate checks the request before any network call
func (r *DynamicQRRequest) Validate() error {
	var trxCode, size error
	switch r.TrxCode {
	case BuyGoods, WithdrawAgent, PayBill, SendMoney, SendToBusiness:
	default:
		trxCode = pkgerrors.NewValidationError("trx_code", fmt.Sprintf("%q is not one of BG, WA, PB, SM, SB", r.TrxCode))
	}
	if r.Size <= 0 {
		size = pkgerrors.NewValidationError("size", "must be greater than zero")
	}
	return firstError(
		required("merchant_name", r.MerchantName),
		required("ref_no", r.RefNo),
		validateAmount("amount", r.Amount),
		trxCode,
		required("cpi", r.CPI),
		size,
	)
}

type dynamicQRPayload struct {
	MerchantName string          `json:"MerchantName"`
	RefNo        string          `json:"RefNo"`
	Amount       int64           `json:"Amount"`
	TrxCode      TransactionCode `json:"TrxCode"`
	CPI          string          `json:"CPI"`
	Size         string          `json:"Size"`
}

// DynamicQRResponse carries the base64 encoded QR image
type DynamicQRResponse struct {
	QRCode              string `json:"QRCode"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// DynamicQR generates a dynamic payment QR code
func (c *Client) DynamicQR(ctx context.Context, req DynamicQRRequest) (*DynamicQRResponse, error) {
	var resp DynamicQRResponse
	err := c.send(ctx, dynamicQREndpoint, &req, func(string) any {
		return dynamicQRPayload{
			MerchantName: req.MerchantName,
			RefNo:        req.RefNo,
			Amount:       req.Amount.IntPart(),
			TrxCode:      req.TrxCode,
			CPI:          req.CPI,
			Size:         strconv.Itoa(req.Size),
		}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
