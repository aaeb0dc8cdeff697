// Package payments is a client for the Stripe API, wrapping the
// official SDK with the read-only operations servicegate exposes:
// balances, transactions, charges, payment intents, refunds, and
// invoice lookups through either.
package payments

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
)

// defaultListLimit is applied when a caller passes no limit.
const defaultListLimit = 10

// Client calls the Stripe API with a fixed secret key.
type Client struct {
	api *client.API
}

// New creates a payments client. The API key is revealed once here to
// initialise the SDK and is not retained by this package.
func New(cfg config.StripeConfig) (*Client, error) {
	key := cfg.APIKey.Reveal()
	if key == "" {
		return nil, errors.New("stripe api key is empty")
	}

	api := &client.API{}
	api.Init(key, nil)
	return &Client{api: api}, nil
}

// Page selects a slice of a paginated listing. StartingAfter and
// EndingBefore are object IDs; both empty means the first page.
type Page struct {
	Limit         int64
	StartingAfter string
	EndingBefore  string
}

// apply copies the page window onto the SDK's list params.
func (p Page) apply(ctx context.Context, lp *stripe.ListParams) {
	lp.Context = ctx
	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	lp.Limit = stripe.Int64(limit)
	if p.StartingAfter != "" {
		lp.StartingAfter = stripe.String(p.StartingAfter)
	}
	if p.EndingBefore != "" {
		lp.EndingBefore = stripe.String(p.EndingBefore)
	}
}

// Balance returns the current account balance.
func (c *Client) Balance(ctx context.Context) (*stripe.Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	return c.api.Balance.Get(params)
}

// BalanceTransactions returns a page of balance transactions.
func (c *Client) BalanceTransactions(ctx context.Context, page Page) ([]*stripe.BalanceTransaction, error) {
	params := &stripe.BalanceTransactionListParams{}
	page.apply(ctx, &params.ListParams)

	var txns []*stripe.BalanceTransaction
	iter := c.api.BalanceTransactions.List(params)
	for iter.Next() {
		txns = append(txns, iter.BalanceTransaction())
	}
	return txns, iter.Err()
}

// Charges returns a page of charges.
func (c *Client) Charges(ctx context.Context, page Page) ([]*stripe.Charge, error) {
	params := &stripe.ChargeListParams{}
	page.apply(ctx, &params.ListParams)

	var charges []*stripe.Charge
	iter := c.api.Charges.List(params)
	for iter.Next() {
		charges = append(charges, iter.Charge())
	}
	return charges, iter.Err()
}

// PaymentIntents returns a page of payment intents.
func (c *Client) PaymentIntents(ctx context.Context, page Page) ([]*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentListParams{}
	page.apply(ctx, &params.ListParams)

	var intents []*stripe.PaymentIntent
	iter := c.api.PaymentIntents.List(params)
	for iter.Next() {
		intents = append(intents, iter.PaymentIntent())
	}
	return intents, iter.Err()
}

// PaymentIntent fetches one payment intent with its invoice and latest
// charge expanded, so invoice lookups need no second round trip.
func (c *Client) PaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("invoice")
	params.AddExpand("latest_charge")
	return c.api.PaymentIntents.Get(id, params)
}

// Refund fetches one refund with its charge and the charge's invoice
// expanded.
func (c *Client) Refund(ctx context.Context, id string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{}
	params.Context = ctx
	params.AddExpand("charge")
	params.AddExpand("charge.invoice")
	return c.api.Refunds.Get(id, params)
}

// InvoiceRef summarises the invoice associated with a payment object.
// InvoiceID and ChargeID are empty when Stripe has no such association.
type InvoiceRef struct {
	InvoiceID  string `json:"invoice_id,omitempty"`
	ChargeID   string `json:"charge_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

// InvoiceFromPaymentIntent resolves the invoice behind a payment
// intent, falling back to the latest charge's invoice when the intent
// has none of its own.
func (c *Client) InvoiceFromPaymentIntent(ctx context.Context, paymentIntentID string) (InvoiceRef, error) {
	pi, err := c.PaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return InvoiceRef{}, err
	}
	return invoiceRefFromPaymentIntent(pi), nil
}

// InvoiceFromRefund resolves the invoice behind a refund via its
// charge.
func (c *Client) InvoiceFromRefund(ctx context.Context, refundID string) (InvoiceRef, error) {
	refund, err := c.Refund(ctx, refundID)
	if err != nil {
		return InvoiceRef{}, err
	}
	return invoiceRefFromRefund(refund), nil
}

// invoiceRefFromPaymentIntent extracts the invoice association from an
// already-expanded payment intent.
func invoiceRefFromPaymentIntent(pi *stripe.PaymentIntent) InvoiceRef {
	ref := InvoiceRef{
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Status:   string(pi.Status),
	}
	if pi.Customer != nil {
		ref.CustomerID = pi.Customer.ID
	}

	if pi.Invoice != nil {
		ref.InvoiceID = pi.Invoice.ID
	}

	// No direct invoice: try the latest charge.
	if ref.InvoiceID == "" && pi.LatestCharge != nil {
		ref.ChargeID = pi.LatestCharge.ID
		if pi.LatestCharge.Invoice != nil {
			ref.InvoiceID = pi.LatestCharge.Invoice.ID
		}
	}

	return ref
}

// invoiceRefFromRefund extracts the invoice association from an
// already-expanded refund.
func invoiceRefFromRefund(refund *stripe.Refund) InvoiceRef {
	ref := InvoiceRef{
		Amount:   refund.Amount,
		Currency: string(refund.Currency),
		Status:   string(refund.Status),
	}

	if refund.Charge != nil {
		ref.ChargeID = refund.Charge.ID
		if refund.Charge.Invoice != nil {
			ref.InvoiceID = refund.Charge.Invoice.ID
		}
	}

	return ref
}
