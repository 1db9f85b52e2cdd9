package domain

import (
	"context"

	"github.com/smallbiznis/printflow/pkg/errs"
)

type Service interface {
	// Issue creates the order's invoice, or refreshes and returns the existing one.
	Issue(ctx context.Context, orderID string) (Invoice, error)
	GetByOrder(ctx context.Context, orderID string) (Invoice, error)
	// RenderPDF returns the invoice document and a file name for it.
	RenderPDF(ctx context.Context, orderID string) ([]byte, string, error)
}

var (
	ErrInvoiceNotFound  = errs.New(errs.KindNotFound, "invoice_not_found", "invoice not found")
	ErrOrderCancelled   = errs.New(errs.KindInvalidState, "order_cancelled", "cancelled orders are not invoiced")
	ErrRendererMissing  = errs.New(errs.KindDependencyUnavailable, "pdf_unavailable", "pdf rendering is not configured")
)
