package payments

import (
	"context"
	"testing"

	stripe "github.com/stripe/stripe-go/v79"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
	"github.com/dkemmer/servicegate/internal/secrets"
)

func TestNew_EmptyKey(t *testing.T) {
	_, err := New(config.StripeConfig{APIKey: secrets.New("")})
	if err == nil {
		t.Error("New() should refuse an empty API key")
	}
}

func TestNew(t *testing.T) {
	c, err := New(config.StripeConfig{APIKey: secrets.New("sk_test_123")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c == nil {
		t.Fatal("New() returned nil client")
	}
}

func TestInvoiceRefFromPaymentIntent_DirectInvoice(t *testing.T) {
	pi := &stripe.PaymentIntent{
		Amount:   2500,
		Currency: "usd",
		Status:   stripe.PaymentIntentStatusSucceeded,
		Customer: &stripe.Customer{ID: "cus_1"},
		Invoice:  &stripe.Invoice{ID: "in_1"},
	}

	ref := invoiceRefFromPaymentIntent(pi)

	if ref.InvoiceID != "in_1" {
		t.Errorf("InvoiceID = %q, want in_1", ref.InvoiceID)
	}
	if ref.CustomerID != "cus_1" {
		t.Errorf("CustomerID = %q, want cus_1", ref.CustomerID)
	}
	if ref.Amount != 2500 || ref.Currency != "usd" {
		t.Errorf("amount/currency = %d/%q, want 2500/usd", ref.Amount, ref.Currency)
	}
	if ref.ChargeID != "" {
		t.Errorf("ChargeID = %q, want empty when invoice is direct", ref.ChargeID)
	}
}

func TestInvoiceRefFromPaymentIntent_ViaLatestCharge(t *testing.T) {
	pi := &stripe.PaymentIntent{
		Amount:   900,
		Currency: "eur",
		Status:   stripe.PaymentIntentStatusSucceeded,
		LatestCharge: &stripe.Charge{
			ID:      "ch_1",
			Invoice: &stripe.Invoice{ID: "in_2"},
		},
	}

	ref := invoiceRefFromPaymentIntent(pi)

	if ref.InvoiceID != "in_2" {
		t.Errorf("InvoiceID = %q, want in_2 via charge", ref.InvoiceID)
	}
	if ref.ChargeID != "ch_1" {
		t.Errorf("ChargeID = %q, want ch_1", ref.ChargeID)
	}
}

func TestInvoiceRefFromPaymentIntent_NoInvoice(t *testing.T) {
	pi := &stripe.PaymentIntent{
		Amount:       100,
		Currency:     "usd",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		LatestCharge: &stripe.Charge{ID: "ch_2"},
	}

	ref := invoiceRefFromPaymentIntent(pi)

	if ref.InvoiceID != "" {
		t.Errorf("InvoiceID = %q, want empty", ref.InvoiceID)
	}
	if ref.ChargeID != "ch_2" {
		t.Errorf("ChargeID = %q, want ch_2", ref.ChargeID)
	}
}

func TestInvoiceRefFromRefund(t *testing.T) {
	refund := &stripe.Refund{
		Amount:   450,
		Currency: "gbp",
		Status:   stripe.RefundStatusSucceeded,
		Charge: &stripe.Charge{
			ID:      "ch_3",
			Invoice: &stripe.Invoice{ID: "in_3"},
		},
	}

	ref := invoiceRefFromRefund(refund)

	if ref.InvoiceID != "in_3" {
		t.Errorf("InvoiceID = %q, want in_3", ref.InvoiceID)
	}
	if ref.ChargeID != "ch_3" {
		t.Errorf("ChargeID = %q, want ch_3", ref.ChargeID)
	}
	if ref.Amount != 450 || ref.Currency != "gbp" {
		t.Errorf("amount/currency = %d/%q, want 450/gbp", ref.Amount, ref.Currency)
	}
}

func TestInvoiceRefFromRefund_NoCharge(t *testing.T) {
	ref := invoiceRefFromRefund(&stripe.Refund{Amount: 1, Currency: "usd"})

	if ref.InvoiceID != "" || ref.ChargeID != "" {
		t.Errorf("ref = %+v, want empty invoice and charge", ref)
	}
}

func TestPageApply(t *testing.T) {
	var lp stripe.ListParams
	Page{Limit: 25, StartingAfter: "txn_1"}.apply(context.Background(), &lp)

	if lp.Limit == nil || *lp.Limit != 25 {
		t.Errorf("Limit = %v, want 25", lp.Limit)
	}
	if lp.StartingAfter == nil || *lp.StartingAfter != "txn_1" {
		t.Errorf("StartingAfter = %v, want txn_1", lp.StartingAfter)
	}
	if lp.EndingBefore != nil {
		t.Errorf("EndingBefore = %v, want nil", lp.EndingBefore)
	}

	var defaulted stripe.ListParams
	Page{}.apply(context.Background(), &defaulted)
	if defaulted.Limit == nil || *defaulted.Limit != defaultListLimit {
		t.Errorf("default Limit = %v, want %d", defaulted.Limit, defaultListLimit)
	}
}
