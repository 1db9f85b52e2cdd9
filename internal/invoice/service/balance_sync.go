package service

import (
	"context"

	"github.com/smallbiznis/printflow/internal/clock"
	invoicedomain "github.com/smallbiznis/printflow/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	"gorm.io/gorm"
)

type balanceSync struct {
	repo  invoicedomain.Repository
	clock clock.Clock
}

// NewBalanceSync keeps an issued invoice in step with its order's balance.
// Orders without an invoice are left alone.
func NewBalanceSync(repo invoicedomain.Repository, clk clock.Clock) orderdomain.BalanceListener {
	return &balanceSync{repo: repo, clock: clk}
}

func (b *balanceSync) OnBalanceChangedTx(ctx context.Context, tx *gorm.DB, order orderdomain.Order) error {
	invoice, err := b.repo.FindByOrderID(ctx, tx, order.ID)
	if err != nil || invoice == nil {
		return err
	}
	ApplyOrder(invoice, order, b.clock.Now())
	return b.repo.Update(ctx, tx, invoice)
}
