package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderInvoiceProducesPDF(t *testing.T) {
	p := New("Corner Print Co.")
	out, err := p.RenderInvoice(context.Background(), InvoiceData{
		InvoiceNumber: "INV-01J0000000000000000000000",
		IssueDate:     "2026-06-01",
		Status:        "ISSUED",
		OrderRef:      "1234",
		BillToName:    "Ana",
		Lines: []InvoiceLine{
			{Description: "Business cards, Premium", Qty: 500, Amount: "120.00"},
			{Description: "Rush fee", Amount: "24.00"},
		},
		Subtotal:   "120.00",
		Tax:        "12.00",
		Total:      "156.00",
		AmountPaid: "66.00",
		AmountDue:  "90.00",
	})
	require.NoError(t, err)
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %q", out[:min(len(out), 8)])
	}
}

func TestRenderInvoiceHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("x").RenderInvoice(ctx, InvoiceData{})
	require.Error(t, err)
}
