package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newBillManagerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Bill manager: onboarding, invoicing and reconciliation",
	}

	cmd.AddCommand(
		newBillOnboardCommand(a, false),
		newBillOnboardCommand(a, true),
		newBillInvoiceCommand(a),
		newBillBulkCommand(a),
		newBillCancelCommand(a),
		newBillReconcileCommand(a),
	)
	return cmd
}

func newBillOnboardCommand(a *app, modify bool) *cobra.Command {
	var req mpesa.BillManagerOnboardRequest

	use, short := "onboard", "Opt a shortcode in to bill manager"
	if modify {
		use, short = "onboard-modify", "Change a shortcode's bill manager details"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				if modify {
					return c.BillManagerOnboardModify(ctx, req)
				}
				return c.BillManagerOnboard(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.ShortCode, "shortcode", "", "Paybill or till shortcode")
	cmd.Flags().StringVar(&req.Email, "email", "", "Official contact email")
	cmd.Flags().StringVar(&req.OfficialContact, "contact", "", "Official contact phone number")
	cmd.Flags().BoolVar(&req.SendReminders, "reminders", false, "Send payment reminders to customers")
	cmd.Flags().StringVar(&req.Logo, "logo", "", "Optional logo image URL")
	cmd.Flags().StringVar(&req.CallbackURL, "callback-url", "", "Payment notification URL")
	return cmd
}

func newBillInvoiceCommand(a *app) *cobra.Command {
	var (
		inv     mpesa.Invoice
		amount  string
		dueDate string
	)

	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Send a single invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			inv.Amount = value

			if dueDate != "" {
				due, err := time.Parse(dateLayout, dueDate)
				if err != nil {
					return fmt.Errorf("invalid --due date %q: %w", dueDate, err)
				}
				inv.DueDate = due
			}

			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.BillManagerSingleInvoice(ctx, inv)
			})
		},
	}

	cmd.Flags().StringVar(&inv.ExternalReference, "ref", "", "Your unique invoice reference")
	cmd.Flags().StringVar(&inv.BilledFullName, "name", "", "Customer full name")
	cmd.Flags().StringVar(&inv.BilledPhoneNumber, "phone", "", "Customer phone number")
	cmd.Flags().StringVar(&inv.BilledPeriod, "period", "", "Billed period, e.g. \"August 2021\"")
	cmd.Flags().StringVar(&inv.InvoiceName, "title", "", "Invoice name")
	cmd.Flags().StringVar(&dueDate, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&inv.AccountReference, "account", "", "Account reference")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	return cmd
}

func newBillBulkCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <invoices.json>",
		Short: "Send several invoices from a JSON array file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading invoices: %w", err)
			}

			var req mpesa.BulkInvoiceRequest
			if err := json.Unmarshal(data, &req.Invoices); err != nil {
				return fmt.Errorf("parsing invoices: %w", err)
			}

			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.BillManagerBulkInvoice(ctx, req)
			})
		},
	}
}

func newBillCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <external-reference>...",
		Short: "Cancel invoices by external reference",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := mpesa.CancelInvoiceRequest{ExternalReferences: args}
			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.BillManagerCancelInvoice(ctx, req)
			})
		},
	}
}

func newBillReconcileCommand(a *app) *cobra.Command {
	var (
		req     mpesa.ReconciliationRequest
		amount  string
		created string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Acknowledge a payment against an invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			req.PaidAmount = value

			if created != "" {
				at, err := time.Parse(dateLayout, created)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", created, err)
				}
				req.DateCreated = at
			}

			return a.call(cmd, false, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.BillManagerReconciliation(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.TransactionID, "transaction-id", "", "M-Pesa receipt number")
	cmd.Flags().StringVar(&amount, "amount", "", "Paid amount in KES")
	cmd.Flags().StringVar(&req.MSISDN, "phone", "", "Paying phone number")
	cmd.Flags().StringVar(&created, "date", "", "Payment date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.AccountReference, "account", "", "Account reference")
	cmd.Flags().StringVar(&req.ShortCode, "shortcode", "", "Receiving shortcode")
	cmd.Flags().StringVar(&req.FullName, "name", "", "Payer full name")
	cmd.Flags().StringVar(&req.InvoiceName, "title", "", "Invoice name")
	cmd.Flags().StringVar(&req.ExternalReference, "ref", "", "Invoice external reference")
	return cmd
}
