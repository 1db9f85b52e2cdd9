package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/clock"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	"github.com/smallbiznis/printflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	"github.com/smallbiznis/printflow/internal/payment/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Orders  orderdomain.Service
	Events  eventdomain.Publisher
	Gateway domain.Gateway      `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	orders  orderdomain.Service
	events  eventdomain.Publisher
	gateway domain.Gateway
	metrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		orders:  p.Orders,
		events:  p.Events,
		gateway: p.Gateway,
		metrics: p.Metrics,
	}
}

func (s *Service) RecordPayment(ctx context.Context, orderID string, req domain.RecordPaymentRequest) (domain.Payment, error) {
	id, err := parseID(orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !req.Amount.IsPositive() {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	method := domain.Method(strings.ToUpper(strings.TrimSpace(string(req.Method))))
	if !method.Valid() {
		return domain.Payment{}, domain.ErrInvalidMethod
	}

	var payment domain.Payment
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.orders.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return domain.ErrOrderClosed
		}
		if req.Amount.GreaterThan(order.BalanceDue) {
			return domain.ErrAmountExceedsBalance.Withf("amount %s exceeds balance due %s",
				req.Amount.StringFixed(2), order.BalanceDue.StringFixed(2))
		}

		now := s.clock.Now()
		payment = domain.Payment{
			ID:           s.genID.Generate(),
			OrderID:      order.ID,
			Kind:         domain.KindPayment,
			Method:       method,
			Status:       domain.StatusPending,
			Amount:       req.Amount,
			RefundAmount: decimal.Zero,
			ProviderRef:  strings.TrimSpace(req.ProviderRef),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.repo.Insert(ctx, tx, &payment)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(ctx, string(payment.Method), string(payment.Status))
	logger.WithOrder(s.log, payment.OrderID.String()).Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(payment.Method)),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return payment, nil
}

func (s *Service) RecordDepositTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, amount decimal.Decimal, method domain.Method) (*domain.Payment, error) {
	if amount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil, nil
	}
	if method == "" {
		method = domain.MethodCash
	}
	if !method.Valid() {
		return nil, domain.ErrInvalidMethod
	}

	now := s.clock.Now()
	payment := domain.Payment{
		ID:           s.genID.Generate(),
		OrderID:      orderID,
		Kind:         domain.KindDeposit,
		Method:       method,
		Status:       domain.StatusCompleted,
		Amount:       amount,
		RefundAmount: decimal.Zero,
		CompletedAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, tx, &payment); err != nil {
		return nil, err
	}
	if _, err := s.orders.RecomputeBalanceTx(ctx, tx, orderID); err != nil {
		return nil, err
	}
	s.metrics.RecordPayment(ctx, string(method), string(domain.StatusCompleted))
	return &payment, nil
}

// ConfirmPayment completes a pending payment. Processor-backed payments are
// checked with the gateway first, outside the transaction.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if current.Status != domain.StatusPending {
		return domain.Payment{}, domain.ErrPaymentNotPending
	}

	if current.ProviderRef != "" && s.gateway != nil {
		status, err := s.gateway.PaymentStatus(ctx, current.ProviderRef)
		if err != nil {
			return domain.Payment{}, domain.ErrGatewayUnavailable.Wrap(err)
		}
		switch status {
		case domain.GatewayApproved:
		case domain.GatewayRejected, domain.GatewayCancelled:
			return s.FailPayment(ctx, id, domain.FailPaymentRequest{Reason: fmt.Sprintf("processor status %s", status)})
		default:
			return domain.Payment{}, domain.ErrGatewayPending.Withf("processor status %s", status)
		}
	}

	var (
		payment *domain.Payment
		order   *orderdomain.Order
	)
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		payment, err = s.lockPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.StatusPending {
			return domain.ErrPaymentNotPending
		}
		locked, err := s.orders.GetForUpdateTx(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			return domain.ErrOrderClosed
		}

		now := s.clock.Now()
		payment.Status = domain.StatusCompleted
		payment.CompletedAt = &now
		payment.UpdatedAt = now
		if err := s.transition(ctx, tx, payment, domain.StatusPending); err != nil {
			return err
		}
		if order, err = s.orders.RecomputeBalanceTx(ctx, tx, payment.OrderID); err != nil {
			return err
		}
		return s.publish(ctx, tx, eventdomain.EventPaymentCompleted, payment, order)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(ctx, string(payment.Method), string(payment.Status))
	logger.WithOrder(s.log, payment.OrderID.String()).Info("payment completed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("balance_due", order.BalanceDue.StringFixed(2)),
	)
	return *payment, nil
}

func (s *Service) FailPayment(ctx context.Context, id string, req domain.FailPaymentRequest) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, err
	}

	var payment *domain.Payment
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		payment, err = s.lockPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.StatusPending {
			return domain.ErrPaymentNotPending
		}

		now := s.clock.Now()
		payment.Status = domain.StatusFailed
		payment.FailedAt = &now
		payment.FailureReason = strings.TrimSpace(req.Reason)
		payment.UpdatedAt = now
		return s.transition(ctx, tx, payment, domain.StatusPending)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(ctx, string(payment.Method), string(payment.Status))
	logger.WithOrder(s.log, payment.OrderID.String()).Warn("payment failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("reason", payment.FailureReason),
	)
	return *payment, nil
}

// RefundPayment refunds part or all of a completed payment. Refunds are
// accepted on closed orders.
func (s *Service) RefundPayment(ctx context.Context, id string, req domain.RefundPaymentRequest) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, err
	}
	if !req.Amount.IsPositive() {
		return domain.Payment{}, domain.ErrInvalidAmount
	}

	var (
		payment *domain.Payment
		order   *orderdomain.Order
	)
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		payment, err = s.lockPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.StatusCompleted {
			return domain.ErrPaymentNotCompleted
		}
		if req.Amount.GreaterThan(payment.Refundable()) {
			return domain.ErrRefundExceedsPayment.Withf("at most %s can be refunded", payment.Refundable().StringFixed(2))
		}

		now := s.clock.Now()
		payment.RefundAmount = payment.RefundAmount.Add(req.Amount)
		payment.UpdatedAt = now
		if payment.Refundable().IsZero() {
			payment.Status = domain.StatusRefunded
			payment.RefundedAt = &now
		}
		if err := s.transition(ctx, tx, payment, domain.StatusCompleted); err != nil {
			return err
		}
		if err := s.repo.InsertRefund(ctx, tx, &domain.PaymentRefund{
			ID:        s.genID.Generate(),
			PaymentID: payment.ID,
			Amount:    req.Amount,
			Reason:    strings.TrimSpace(req.Reason),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if order, err = s.orders.RecomputeBalanceTx(ctx, tx, payment.OrderID); err != nil {
			return err
		}
		return s.publish(ctx, tx, eventdomain.EventPaymentRefunded, payment, order)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(ctx, string(payment.Method), "REFUND")
	logger.WithOrder(s.log, payment.OrderID.String()).Info("payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("refund_amount", req.Amount.StringFixed(2)),
		zap.String("balance_due", order.BalanceDue.StringFixed(2)),
	)
	return *payment, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, err
	}
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return *payment, nil
}

func (s *Service) List(ctx context.Context, orderID string) ([]domain.Payment, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, s.db, order.ID)
}

func (s *Service) lockPayment(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, payment *domain.Payment, from domain.Status) error {
	ok, err := s.repo.UpdateFrom(ctx, tx, payment, from)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrConcurrencyConflict.Withf("payment %s changed concurrently", payment.ID)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, eventType eventdomain.EventType, payment *domain.Payment, order *orderdomain.Order) error {
	return s.events.PublishTx(ctx, tx, eventdomain.Event{
		Type:          eventType,
		AggregateType: eventdomain.AggregateOrder,
		AggregateID:   payment.OrderID,
		DedupeKey:     fmt.Sprintf("%s:%s:%s", eventType, payment.ID, payment.RefundAmount.StringFixed(2)),
		Payload: eventdomain.PaymentPayload{
			OrderID:    payment.OrderID.String(),
			PaymentID:  payment.ID.String(),
			Amount:     payment.Amount.StringFixed(2),
			BalanceDue: order.BalanceDue.StringFixed(2),
			Recipient: eventdomain.Recipient{
				CustomerID: order.CustomerID,
				Name:       order.CustomerName,
				Email:      order.CustomerEmail,
				Phone:      order.CustomerPhone,
			},
		},
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
