package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/mpesa-sdk/pkg/mpesa"
	"github.com/spf13/cobra"
)

// asyncFlags are shared by operations that report their result to a callback
type asyncFlags struct {
	resultURL  string
	timeoutURL string
	remarks    string
}

func (f *asyncFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.resultURL, "result-url", "", "URL the result is posted to")
	cmd.Flags().StringVar(&f.timeoutURL, "timeout-url", "", "URL notified when the request times out in the queue")
	cmd.Flags().StringVar(&f.remarks, "remarks", "", "Free-text remarks")
}

func newBalanceCommand(a *app) *cobra.Command {
	var (
		async          asyncFlags
		shortCode      string
		identifierType int
	)

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Query an organisation's account balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := mpesa.AccountBalanceRequest{
				PartyA:          shortCode,
				IdentifierType:  mpesa.IdentifierType(identifierType),
				Remarks:         async.remarks,
				QueueTimeoutURL: async.timeoutURL,
				ResultURL:       async.resultURL,
			}
			return a.call(cmd, true, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.AccountBalance(ctx, req)
			})
		},
	}

	async.register(cmd)
	cmd.Flags().StringVar(&shortCode, "shortcode", "", "Organisation shortcode")
	cmd.Flags().IntVar(&identifierType, "identifier-type", int(mpesa.ShortCode), "Party identifier type (1 MSISDN, 2 till, 4 shortcode)")
	return cmd
}

func newB2CCommand(a *app) *cobra.Command {
	var (
		async          asyncFlags
		shortCode      string
		phone          string
		amount         string
		commandID      string
		occasion       string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "b2c",
		Short: "Pay a customer from a business shortcode",
		Long: `Pay a customer from a business shortcode.

A conversation ID is generated once per invocation and reused across --retries
so the provider can recognise a repeated request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if conversationID == "" {
				conversationID = uuid.NewString()
			}

			req := mpesa.B2CRequest{
				OriginatorConversationID: conversationID,
				CommandID:                mpesa.CommandID(commandID),
				Amount:                   value,
				PartyA:                   shortCode,
				PartyB:                   phone,
				Remarks:                  async.remarks,
				QueueTimeoutURL:          async.timeoutURL,
				ResultURL:                async.resultURL,
				Occasion:                 occasion,
			}
			return a.call(cmd, true, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.B2C(ctx, req)
			})
		},
	}

	async.register(cmd)
	cmd.Flags().StringVar(&shortCode, "shortcode", "", "Paying shortcode")
	cmd.Flags().StringVar(&phone, "phone", "", "Receiving phone number")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	cmd.Flags().StringVar(&commandID, "command", string(mpesa.BusinessPayment), "SalaryPayment, BusinessPayment or PromotionPayment")
	cmd.Flags().StringVar(&occasion, "occasion", "", "Optional occasion")
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Originator conversation ID (default: random UUID)")
	return cmd
}

func newB2BCommand(a *app) *cobra.Command {
	var (
		async        asyncFlags
		sender       string
		receiver     string
		senderType   int
		receiverType int
		amount       string
		commandID    string
		reference    string
		requester    string
	)

	cmd := &cobra.Command{
		Use:   "b2b",
		Short: "Pay another business",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			req := mpesa.B2BRequest{
				CommandID:              mpesa.CommandID(commandID),
				Amount:                 value,
				PartyA:                 sender,
				SenderIdentifierType:   mpesa.IdentifierType(senderType),
				PartyB:                 receiver,
				ReceiverIdentifierType: mpesa.IdentifierType(receiverType),
				AccountReference:       reference,
				Requester:              requester,
				Remarks:                async.remarks,
				QueueTimeoutURL:        async.timeoutURL,
				ResultURL:              async.resultURL,
			}
			return a.call(cmd, true, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.B2B(ctx, req)
			})
		},
	}

	async.register(cmd)
	cmd.Flags().StringVar(&sender, "shortcode", "", "Paying shortcode")
	cmd.Flags().StringVar(&receiver, "receiver", "", "Receiving shortcode or till")
	cmd.Flags().IntVar(&senderType, "sender-type", int(mpesa.ShortCode), "Sender identifier type")
	cmd.Flags().IntVar(&receiverType, "receiver-type", int(mpesa.ShortCode), "Receiver identifier type")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	cmd.Flags().StringVar(&commandID, "command", string(mpesa.BusinessPayBill), "B2B command ID")
	cmd.Flags().StringVar(&reference, "reference", "", "Account reference")
	cmd.Flags().StringVar(&requester, "requester", "", "Optional customer phone number paid on behalf of")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	var (
		async          asyncFlags
		transactionID  string
		party          string
		identifierType int
		occasion       string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the status of a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := mpesa.TransactionStatusRequest{
				TransactionID:   transactionID,
				PartyA:          party,
				IdentifierType:  mpesa.IdentifierType(identifierType),
				Remarks:         async.remarks,
				Occasion:        occasion,
				QueueTimeoutURL: async.timeoutURL,
				ResultURL:       async.resultURL,
			}
			return a.call(cmd, true, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.TransactionStatus(ctx, req)
			})
		},
	}

	async.register(cmd)
	cmd.Flags().StringVar(&transactionID, "transaction-id", "", "M-Pesa receipt number")
	cmd.Flags().StringVar(&party, "party", "", "Querying party")
	cmd.Flags().IntVar(&identifierType, "identifier-type", int(mpesa.ShortCode), "Party identifier type")
	cmd.Flags().StringVar(&occasion, "occasion", "", "Optional occasion")
	return cmd
}

func newReversalCommand(a *app) *cobra.Command {
	var (
		async         asyncFlags
		transactionID string
		amount        string
		receiver      string
		receiverType  int
		occasion      string
	)

	cmd := &cobra.Command{
		Use:   "reversal",
		Short: "Reverse a completed transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			req := mpesa.ReversalRequest{
				TransactionID:          transactionID,
				Amount:                 value,
				ReceiverParty:          receiver,
				ReceiverIdentifierType: mpesa.IdentifierType(receiverType),
				Remarks:                async.remarks,
				Occasion:               occasion,
				QueueTimeoutURL:        async.timeoutURL,
				ResultURL:              async.resultURL,
			}
			return a.call(cmd, true, func(ctx context.Context, c *mpesa.Client) (any, error) {
				return c.Reversal(ctx, req)
			})
		},
	}

	async.register(cmd)
	cmd.Flags().StringVar(&transactionID, "transaction-id", "", "M-Pesa receipt number to reverse")
	cmd.Flags().StringVar(&amount, "amount", "", "Whole amount in KES")
	cmd.Flags().StringVar(&receiver, "receiver", "", "Receiving party")
	cmd.Flags().IntVar(&receiverType, "receiver-type", int(mpesa.ShortCode), "Receiver identifier type")
	cmd.Flags().StringVar(&occasion, "occasion", "", "Optional occasion")
	return cmd
}
