package pdf

import (
	"context"
)

type Provider interface {
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}
