package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	"github.com/smallbiznis/printflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	"github.com/smallbiznis/printflow/internal/order/domain"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPriority = 3

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Inventory inventorydomain.Service
	SLA       sladomain.Service
	Events    eventdomain.Publisher
	Lifecycle *config.LifecycleConfigHolder
	Listeners []domain.BalanceListener `group:"order_balance_listeners"`
	Metrics   *obsmetrics.Metrics      `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	inventory inventorydomain.Service
	sla       sladomain.Service
	events    eventdomain.Publisher
	lifecycle *config.LifecycleConfigHolder
	listeners []domain.BalanceListener
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		inventory: p.Inventory,
		sla:       p.SLA,
		events:    p.Events,
		lifecycle: p.Lifecycle,
		listeners: p.Listeners,
		metrics:   p.Metrics,
	}
}

func (s *Service) CreateFromQuoteTx(ctx context.Context, tx *gorm.DB, in domain.CreateFromQuoteInput) (*domain.Order, error) {
	if in.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	for _, amount := range []decimal.Decimal{in.Subtotal, in.TaxRate, in.RushFee, in.EmergencyFee, in.DepositPercentage} {
		if amount.IsNegative() {
			return nil, domain.ErrInvalidAmount
		}
	}
	if in.DepositPercentage.GreaterThan(hundred) {
		return nil, domain.ErrInvalidAmount.Withf("deposit percentage above 100")
	}

	existing, err := s.repo.FindByQuoteID(ctx, tx, in.QuoteID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrOrderExists
	}

	now := s.clock.Now()
	taxAmount := in.Subtotal.Mul(in.TaxRate).Round(2)
	total := in.Subtotal.Add(taxAmount).Add(in.RushFee).Add(in.EmergencyFee)
	order := domain.Order{
		ID:                s.genID.Generate(),
		QuoteID:           in.QuoteID,
		CustomerID:        in.CustomerID,
		CustomerName:      in.CustomerName,
		CustomerEmail:     in.CustomerEmail,
		CustomerPhone:     in.CustomerPhone,
		ServiceID:         in.ServiceID,
		TierID:            in.TierID,
		Quantity:          in.Quantity,
		Status:            domain.StatusDepositPaid,
		Subtotal:          in.Subtotal,
		EmergencyFee:      in.EmergencyFee,
		RushFee:           in.RushFee,
		TaxRate:           in.TaxRate,
		TaxAmount:         taxAmount,
		TotalAmount:       total,
		DepositPercentage: in.DepositPercentage,
		DepositAmount:     total.Mul(in.DepositPercentage).Div(hundred).Round(2),
		BalanceDue:        total,
		RevisionsAllowed:  in.RevisionsAllowed,
		Priority:          defaultPriority,
		Notes:             strings.TrimSpace(in.Notes),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.TurnaroundDays > 0 {
		due := now.AddDate(0, 0, in.TurnaroundDays)
		order.DueAt = &due
	}

	if err := s.repo.Insert(ctx, tx, &order); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrOrderExists
		}
		return nil, err
	}
	if err := s.appendHistory(ctx, tx, order.ID, "", order.Status, "created from quote"); err != nil {
		return nil, err
	}
	firstProofDue := now.Add(s.lifecycle.Get().SLA.FirstProof)
	if _, err := s.sla.StartTimerTx(ctx, tx, order.ID, sladomain.TimerFirstProof, firstProofDue); err != nil {
		return nil, err
	}

	logger.WithOrder(s.log, order.ID.String()).Info("order created",
		zap.String("quote_id", in.QuoteID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.String("deposit_amount", order.DepositAmount.StringFixed(2)),
	)
	return &order, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Service) GetForUpdateTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrdersRequest) (domain.ListOrdersResponse, error) {
	page, err := req.Params.Normalize(domain.OrderSortable, "created_at")
	if err != nil {
		return domain.ListOrdersResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}

	filter := domain.ListOrdersFilter{
		CustomerID:      strings.TrimSpace(req.CustomerID),
		AssignedStaffID: strings.TrimSpace(req.AssignedStaffID),
		SLABreached:     req.SLABreached,
	}
	if value := strings.TrimSpace(req.Status); value != "" {
		filter.Status = domain.Status(strings.ToUpper(value))
		if !filter.Status.Valid() {
			return domain.ListOrdersResponse{}, domain.ErrInvalidStatus
		}
	}

	orders, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListOrdersResponse{}, err
	}
	return domain.ListOrdersResponse{PageInfo: page.PageInfo(total), Orders: orders}, nil
}

func (s *Service) History(ctx context.Context, id string) ([]domain.OrderStatusHistory, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, s.db, order.ID)
}

func (s *Service) AdvanceStatus(ctx context.Context, id string, req domain.AdvanceStatusRequest) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	return s.inTx(ctx, func(tx *gorm.DB) (*domain.Order, error) {
		return s.AdvanceStatusTx(ctx, tx, orderID, req.Status, req.Reason)
	})
}

// AdvanceStatusTx moves the order along the transition graph and runs the
// side effects tied to the target state in the same transaction.
func (s *Service) AdvanceStatusTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, target domain.Status, reason string) (*domain.Order, error) {
	target = domain.Status(strings.ToUpper(strings.TrimSpace(string(target))))
	if !target.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	order, err := s.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !domain.CanTransition(from, target) {
		return nil, errs.NewIllegalTransition("order", string(from), string(target))
	}

	now := s.clock.Now()
	rules := s.lifecycle.Get()

	switch target {
	case domain.StatusInProduction:
		if _, err := s.inventory.ApplyConsumptionTx(ctx, tx, inventorydomain.ConsumptionInput{
			OrderID:   order.ID,
			ServiceID: order.ServiceID,
			TierID:    order.TierID,
			Quantity:  order.Quantity,
		}); err != nil {
			return nil, err
		}
		if order.InventoryConsumedAt == nil {
			order.InventoryConsumedAt = &now
		}
		if _, err := s.sla.StartTimerTx(ctx, tx, order.ID, sladomain.TimerProduction, now.Add(rules.SLA.ProductionDefault)); err != nil {
			return nil, err
		}
	case domain.StatusReadyForPickup, domain.StatusShipped:
		if err := s.sla.CompleteByTypeTx(ctx, tx, order.ID, sladomain.TimerProduction); err != nil {
			return nil, err
		}
	case domain.StatusCompleted:
		paid, err := s.repo.SumNetCompletedPayments(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
		order.BalanceDue = order.TotalAmount.Sub(paid)
		if order.BalanceDue.IsPositive() {
			return nil, domain.ErrBalanceOutstanding.Withf("order %s still owes %s", order.ID, order.BalanceDue.StringFixed(2))
		}
		if err := s.sla.CompleteByTypeTx(ctx, tx, order.ID, sladomain.TimerProduction); err != nil {
			return nil, err
		}
		order.CompletedAt = &now
	case domain.StatusCancelled:
		if err := s.sla.CompleteAllOpenTx(ctx, tx, order.ID); err != nil {
			return nil, err
		}
		order.CancelledAt = &now
	}

	order.Status = target
	if err := s.save(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, tx, order.ID, from, target, reason); err != nil {
		return nil, err
	}

	role, actorID := obscontext.ActorFromContext(ctx)
	if err := s.events.PublishTx(ctx, tx, eventdomain.Event{
		Type:          eventdomain.EventOrderStatusChanged,
		AggregateType: eventdomain.AggregateOrder,
		AggregateID:   order.ID,
		DedupeKey:     fmt.Sprintf("%s:%s:%d", eventdomain.EventOrderStatusChanged, order.ID, order.Version),
		Payload: eventdomain.OrderStatusChangedPayload{
			OrderID:   order.ID.String(),
			From:      string(from),
			To:        string(target),
			ActorID:   actorID,
			ActorRole: role,
			Recipient: recipient(order),
		},
	}); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusTransition(ctx, string(from), string(target))
	logger.WithOrder(logger.WithContext(ctx, s.log), order.ID.String()).Info("order status changed",
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	return order, nil
}

func (s *Service) RecordRevision(ctx context.Context, id string, req domain.RecordRevisionRequest) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	return s.inTx(ctx, func(tx *gorm.DB) (*domain.Order, error) {
		return s.RecordRevisionTx(ctx, tx, orderID, req.Override)
	})
}

func (s *Service) RecordRevisionTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, override bool) (*domain.Order, error) {
	if override {
		if role, _ := obscontext.ActorFromContext(ctx); role != obscontext.RoleAdmin {
			return nil, domain.ErrRevisionOverrideDenied
		}
	}

	order, err := s.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, domain.ErrOrderTerminal
	}
	if order.RevisionLimitReached() && !override {
		return nil, domain.ErrRevisionLimitExceeded.Withf("%d of %d revisions used", order.RevisionsUsed, order.RevisionsAllowed)
	}

	order.RevisionsUsed++
	if err := s.save(ctx, tx, order); err != nil {
		return nil, err
	}

	logger.WithOrder(s.log, order.ID.String()).Info("revision recorded",
		zap.Int("revisions_used", order.RevisionsUsed),
		zap.Int("revisions_allowed", order.RevisionsAllowed),
		zap.Bool("override", override),
	)
	return order, nil
}

func (s *Service) RecomputeBalance(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	return s.inTx(ctx, func(tx *gorm.DB) (*domain.Order, error) {
		return s.RecomputeBalanceTx(ctx, tx, orderID)
	})
}

// RecomputeBalanceTx derives balance_due from the payments ledger. Terminal
// orders are allowed so refunds after completion stay consistent.
func (s *Service) RecomputeBalanceTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	order, err := s.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refreshBalance(ctx, tx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) AddFeeTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, kind domain.FeeKind, amount decimal.Decimal) (*domain.Order, error) {
	if amount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	order, err := s.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, domain.ErrOrderTerminal
	}

	switch kind {
	case domain.FeeEmergency:
		order.EmergencyFee = order.EmergencyFee.Add(amount)
	case domain.FeeRush:
		order.RushFee = order.RushFee.Add(amount)
	default:
		return nil, domain.ErrInvalidFeeKind
	}
	order.TotalAmount = order.Subtotal.Add(order.TaxAmount).Add(order.RushFee).Add(order.EmergencyFee)

	if err := s.refreshBalance(ctx, tx, order); err != nil {
		return nil, err
	}
	logger.WithOrder(s.log, order.ID.String()).Info("fee added",
		zap.String("kind", string(kind)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return order, nil
}

// refreshBalance saves the order with a freshly derived balance and lets
// listeners (invoices) follow along.
func (s *Service) refreshBalance(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	paid, err := s.repo.SumNetCompletedPayments(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	order.BalanceDue = order.TotalAmount.Sub(paid)
	if err := s.save(ctx, tx, order); err != nil {
		return err
	}
	for _, listener := range s.listeners {
		if err := listener.OnBalanceChangedTx(ctx, tx, *order); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) AssignStaff(ctx context.Context, id string, req domain.AssignStaffRequest) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	var staffID *string
	if req.StaffID != nil {
		if trimmed := strings.TrimSpace(*req.StaffID); trimmed != "" {
			staffID = &trimmed
		}
	}

	return s.inTx(ctx, func(tx *gorm.DB) (*domain.Order, error) {
		order, err := s.GetForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status.Terminal() {
			return nil, domain.ErrOrderTerminal
		}
		order.AssignedStaffID = staffID
		if err := s.save(ctx, tx, order); err != nil {
			return nil, err
		}
		return order, nil
	})
}

func (s *Service) SetPriority(ctx context.Context, id string, req domain.SetPriorityRequest) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	if req.Priority < 1 || req.Priority > 5 {
		return domain.Order{}, domain.ErrInvalidPriority
	}

	return s.inTx(ctx, func(tx *gorm.DB) (*domain.Order, error) {
		order, err := s.GetForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status.Terminal() {
			return nil, domain.ErrOrderTerminal
		}
		order.Priority = req.Priority
		if err := s.save(ctx, tx, order); err != nil {
			return nil, err
		}
		return order, nil
	})
}

func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) (*domain.Order, error)) (domain.Order, error) {
	var result *domain.Order
	err := pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := fn(tx)
		if err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return *result, nil
}

func (s *Service) save(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	order.UpdatedAt = s.clock.Now()
	ok, err := s.repo.Update(ctx, tx, order, order.Version)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrConcurrencyConflict.Withf("order %s was modified concurrently", order.ID)
	}
	return nil
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, from, to domain.Status, reason string) error {
	role, actorID := obscontext.ActorFromContext(ctx)
	return s.repo.InsertHistory(ctx, tx, &domain.OrderStatusHistory{
		ID:         s.genID.Generate(),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  role,
		ActorID:    actorID,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  s.clock.Now(),
	})
}

func recipient(order *domain.Order) eventdomain.Recipient {
	return eventdomain.Recipient{
		CustomerID: order.CustomerID,
		Name:       order.CustomerName,
		Email:      order.CustomerEmail,
		Phone:      order.CustomerPhone,
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// breachFlagger sets the order's sla_breached flag when a timer breaches.
type breachFlagger struct {
	repo  domain.Repository
	clock clock.Clock
}

func NewBreachFlagger(repo domain.Repository, clk clock.Clock) sladomain.BreachListener {
	return &breachFlagger{repo: repo, clock: clk}
}

func (f *breachFlagger) OnBreachTx(ctx context.Context, tx *gorm.DB, breach sladomain.SlaBreach) error {
	return f.repo.MarkSLABreached(ctx, tx, breach.OrderID, f.clock.Now())
}
