package mpesa

import "strconv"

// CommandID names the transaction type a request asks the provider to perform
type CommandID string

const (
	TransactionReversal              CommandID = "TransactionReversal"
	SalaryPayment                    CommandID = "SalaryPayment"
	BusinessPayment                  CommandID = "BusinessPayment"
	PromotionPayment                 CommandID = "PromotionPayment"
	AccountBalanceQuery              CommandID = "AccountBalance"
	CustomerPayBillOnline            CommandID = "CustomerPayBillOnline"
	CustomerBuyGoodsOnline           CommandID = "CustomerBuyGoodsOnline"
	TransactionStatusQuery           CommandID = "TransactionStatusQuery"
	CheckIdentity                    CommandID = "CheckIdentity"
	BusinessPayBill                  CommandID = "BusinessPayBill"
	BusinessBuyGoods                 CommandID = "BusinessBuyGoods"
	DisburseFundsToBusiness          CommandID = "DisburseFundsToBusiness"
	BusinessToBusinessTransfer       CommandID = "BusinessToBusinessTransfer"
	BusinessTransferFromMMFToUtility CommandID = "BusinessTransferFromMMFToUtility"
	MerchantToMerchantTransfer       CommandID = "MerchantToMerchantTransfer"
)

// IdentifierType identifies the kind of party in a request
type IdentifierType int

const (
	MSISDN     IdentifierType = 1
	TillNumber IdentifierType = 2
	ShortCode  IdentifierType = 4
)

// MarshalText encodes the identifier as the numeric string the provider expects
func (t IdentifierType) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(int(t))), nil
}

func (t IdentifierType) valid() bool {
	return t == MSISDN || t == TillNumber || t == ShortCode
}

// ResponseType tells the provider what to do when a validation URL is unreachable
type ResponseType string

const (
	ResponseCompleted ResponseType = "Completed"
	ResponseCancelled ResponseType = "Cancelled"
)

// TransactionCode is the payment flavour encoded in a dynamic QR code
type TransactionCode string

const (
	// BuyGoods pays a till number
	BuyGoods TransactionCode = "BG"
	// WithdrawAgent withdraws cash at an agent till
	WithdrawAgent TransactionCode = "WA"
	// PayBill pays a paybill number
	PayBill TransactionCode = "PB"
	// SendMoney sends to a mobile number
	SendMoney TransactionCode = "SM"
	// SendToBusiness sends to a business number
	SendToBusiness TransactionCode = "SB"
)

// DefaultPasskey is the provider's published sandbox passkey for shortcode 174379
const DefaultPasskey = "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"
