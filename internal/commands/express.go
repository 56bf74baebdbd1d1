package commands

import (
	"context"

	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/spf13/cobra"
)

func newExpressCommand(a *app) *cobra.Command {
	var (
		shortCode       string
		passkey         string
		transactionType string
		amount          string
		phone           string
		partyB          string
		callbackURL     string
		reference       string
		description     string
	)

	cmd := &cobra.Command{
		Use:   "express",
		Short: "Send an STK push payment prompt to a customer's phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			req := mpesa.ExpressRequest{
				BusinessShortCode: shortCode,
				Passkey:           passkey,
				TransactionType:   mpesa.CommandID(transactionType),
				Amount:            value,
				PartyA:            phone,
				PartyB:            partyB,
				CallbackURL:       callbackURL,
				AccountReference:  reference,
				TransactionDesc:   description,
			}
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.Express(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&shortCode, "shortcode", "", "Business shortcode")
	cmd.Flags().StringVar(&passkey, "passkey", "", "Online passkey (default: sandbox passkey)")
	cmd.Flags().StringVar(&transactionType, "type", string(mpesa.CustomerPayBillOnline), "CustomerPayBillOnline or CustomerBuyGoodsOnline")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	cmd.Flags().StringVar(&phone, "phone", "", "Paying phone number")
	cmd.Flags().StringVar(&partyB, "party-b", "", "Receiving shortcode or till (default: --shortcode)")
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "URL the payment result is posted to")
	cmd.Flags().StringVar(&reference, "reference", "", "Account reference shown to the customer")
	cmd.Flags().StringVar(&description, "description", "", "Transaction description")
	return cmd
}

func newExpressQueryCommand(a *app) *cobra.Command {
	var (
		shortCode  string
		passkey    string
		checkoutID string
	)

	cmd := &cobra.Command{
		Use:   "express-query",
		Short: "Query the outcome of an STK push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := mpesa.ExpressQueryRequest{
				BusinessShortCode: shortCode,
				Passkey:           passkey,
				CheckoutRequestID: checkoutID,
			}
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.ExpressQuery(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&shortCode, "shortcode", "", "Business shortcode")
	cmd.Flags().StringVar(&passkey, "passkey", "", "Online passkey (default: sandbox passkey)")
	cmd.Flags().StringVar(&checkoutID, "checkout-id", "", "CheckoutRequestID returned by express")
	return cmd
}

func newQRCommand(a *app) *cobra.Command {
	var (
		merchant string
		refNo    string
		amount   string
		trxCode  string
		cpi      string
		size     int
	)

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Generate a dynamic payment QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			req := mpesa.DynamicQRRequest{
				MerchantName: merchant,
				RefNo:        refNo,
				Amount:       value,
				TrxCode:      mpesa.TransactionCode(trxCode),
				CPI:          cpi,
				Size:         size,
			}
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.DynamicQR(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&merchant, "merchant", "", "Merchant name")
	cmd.Flags().StringVar(&refNo, "ref", "", "Transaction reference")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	cmd.Flags().StringVar(&trxCode, "code", string(mpesa.BuyGoods), "Transaction code: BG, WA, PB, SM or SB")
	cmd.Flags().StringVar(&cpi, "cpi", "", "Credit party identifier")
	cmd.Flags().IntVar(&size, "size", 300, "QR image size in pixels")
	return cmd
}

func newC2BRegisterCommand(a *app) *cobra.Command {
	var (
		shortCode       string
		responseType    string
		confirmationURL string
		validationURL   string
	)

	cmd := &cobra.Command{
		Use:   "c2b-register",
		Short: "Register C2B confirmation and validation URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := mpesa.C2BRegisterRequest{
				ShortCode:       shortCode,
				ResponseType:    mpesa.ResponseType(responseType),
				ConfirmationURL: confirmationURL,
				ValidationURL:   validationURL,
			}
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.C2BRegister(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&shortCode, "shortcode", "", "Receiving shortcode")
	cmd.Flags().StringVar(&responseType, "response-type", string(mpesa.ResponseCompleted), "Completed or Cancelled")
	cmd.Flags().StringVar(&confirmationURL, "confirmation-url", "", "Confirmation URL")
	cmd.Flags().StringVar(&validationURL, "validation-url", "", "Validation URL")
	return cmd
}

func newC2BSimulateCommand(a *app) *cobra.Command {
	var (
		shortCode string
		commandID string
		amount    string
		phone     string
		billRef   string
	)

	cmd := &cobra.Command{
		Use:   "c2b-simulate",
		Short: "Simulate a customer payment (sandbox only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			req := mpesa.C2BSimulateRequest{
				CommandID:     mpesa.CommandID(commandID),
				Amount:        value,
				MSISDN:        phone,
				BillRefNumber: billRef,
				ShortCode:     shortCode,
			}
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.C2BSimulate(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&shortCode, "shortcode", "", "Receiving shortcode")
	cmd.Flags().StringVar(&commandID, "command", string(mpesa.CustomerPayBillOnline), "CustomerPayBillOnline or CustomerBuyGoodsOnline")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	cmd.Flags().StringVar(&phone, "phone", "", "Paying phone number")
	cmd.Flags().StringVar(&billRef, "bill-ref", "", "Bill reference number")
	return cmd
}
