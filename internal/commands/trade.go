package commands

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/gaborage/b2c2-cli/b2c2"
)

type rfqOptions struct {
	instrument  string
	side        string
	quantity    string
	clientRFQID string
}

func (a *app) newRFQCommand() *cobra.Command {
	opts := &rfqOptions{}

	cmd := &cobra.Command{
		Use:   "rfq",
		Short: "Request a quote and optionally trade on it",
		Long: `Requests a firm quote, shows it and asks whether to execute it.

On confirmation a fill-or-kill order is placed at the quoted price, valid
until the quote expires, with the RFQ client id as the client order id.
The balance is shown once the order is filled.`,
		Example: `  b2c2-cli rfq --instrument BTCUSD.SPOT --side buy --quantity 1.5
  b2c2-cli rfq --instrument ETHUSD.SPOT --side sell --quantity 10 --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRFQ(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.instrument, "instrument", "", "Instrument as given by the instruments command")
	cmd.Flags().StringVar(&opts.side, "side", "", "buy or sell")
	cmd.Flags().StringVar(&opts.quantity, "quantity", "", "Quantity in base currency (maximum 4 decimals)")
	cmd.Flags().StringVar(&opts.clientRFQID, "client-rfq-id", "", "Unique id echoed back by the API (generated when omitted)")
	_ = cmd.MarkFlagRequired("instrument")
	_ = cmd.MarkFlagRequired("side")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func (a *app) runRFQ(cmd *cobra.Command, opts *rfqOptions) error {
	side, err := parseSide(opts.side)
	if err != nil {
		return err
	}
	quantity, err := parseQuantity(opts.quantity)
	if err != nil {
		return err
	}
	clientRFQID := opts.clientRFQID
	if clientRFQID == "" {
		clientRFQID = uuid.NewString()
	}

	sess, err := a.session(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Sending Request For Quote..")
	quote, err := sess.client.RequestForQuote(cmd.Context(), b2c2.QuoteRequest{
		Instrument:  opts.instrument,
		Side:        side,
		Quantity:    quantity,
		ClientRFQID: clientRFQID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Request For Quote response received:")
	fmt.Fprintln(out)
	printFields(out, quote.Fields())

	if !a.flags.yes {
		ok, err := confirm(cmd.InOrStdin(), out, "\nDo you want to execute this RFQ and make an order?")
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	return a.placeOrder(cmd, sess, b2c2.OrderRequest{
		Instrument:    opts.instrument,
		Side:          side,
		Quantity:      quantity,
		Price:         quote.Price,
		OrderType:     b2c2.OrderTypeFOK,
		ValidUntil:    quote.ValidUntil,
		ClientOrderID: clientRFQID,
	})
}

type orderOptions struct {
	instrument    string
	side          string
	quantity      string
	price         string
	validUntil    string
	clientOrderID string
}

func (a *app) newOrderCommand() *cobra.Command {
	opts := &orderOptions{}

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place a fill-or-kill order",
		Example: `  b2c2-cli order --instrument BTCUSD.SPOT --side buy --quantity 1 \
    --price 7000.50 --valid-until 2024-01-01T19:45:22 --client-order-id my-order-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runOrder(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.instrument, "instrument", "", "Instrument as given by the instruments command")
	cmd.Flags().StringVar(&opts.side, "side", "", "buy or sell")
	cmd.Flags().StringVar(&opts.quantity, "quantity", "", "Quantity in base currency (maximum 4 decimals)")
	cmd.Flags().StringVar(&opts.price, "price", "", "Limit price of the fill-or-kill order")
	cmd.Flags().StringVar(&opts.validUntil, "valid-until", "", `Expiry formatted "2006-01-02T15:04:05"`)
	cmd.Flags().StringVar(&opts.clientOrderID, "client-order-id", "", "Unique id echoed back in the response")
	for _, name := range []string{"instrument", "side", "quantity", "price", "valid-until", "client-order-id"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (a *app) runOrder(cmd *cobra.Command, opts *orderOptions) error {
	side, err := parseSide(opts.side)
	if err != nil {
		return err
	}
	quantity, err := parseQuantity(opts.quantity)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(opts.price)
	if err != nil {
		return invalidFlag("price", "invalid format")
	}

	sess, err := a.session(cmd)
	if err != nil {
		return err
	}
	return a.placeOrder(cmd, sess, b2c2.OrderRequest{
		Instrument:    opts.instrument,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
		OrderType:     b2c2.OrderTypeFOK,
		ValidUntil:    opts.validUntil,
		ClientOrderID: opts.clientOrderID,
	})
}

// placeOrder submits req and reports the fill. A filled order is followed by the balance.
func (a *app) placeOrder(cmd *cobra.Command, sess *session, req b2c2.OrderRequest) error {
	order, err := sess.client.PlaceOrder(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if order.Rejected() {
		fmt.Fprintln(out, "Your order was rejected.")
		return nil
	}
	fmt.Fprintf(out, "Order placed. Executed price %s\n", b2c2.FormatDecimal(order.ExecutedPrice.Decimal))
	printFields(out, order.Fields())
	for i := range order.Trades {
		trade := &order.Trades[i]
		fmt.Fprintf(out, "Trade %s\n", trade.TradeID)
		printFields(out, trade.Fields())
	}

	return printBalance(cmd, sess)
}

func printFields(w io.Writer, fields []b2c2.Field) {
	for _, f := range fields {
		fmt.Fprintf(w, "%s: %s\n", f.Key, f.Value)
	}
}
