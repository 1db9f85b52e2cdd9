package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/printflow/internal/catalog/repository"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	eventrepo "github.com/smallbiznis/printflow/internal/events/repository"
	eventservice "github.com/smallbiznis/printflow/internal/events/service"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/printflow/internal/inventory/repository"
	inventoryservice "github.com/smallbiznis/printflow/internal/inventory/service"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	"github.com/smallbiznis/printflow/internal/order/domain"
	"github.com/smallbiznis/printflow/internal/order/mocks"
	"github.com/smallbiznis/printflow/internal/order/repository"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	slarepo "github.com/smallbiznis/printflow/internal/sla/repository"
	slaservice "github.com/smallbiznis/printflow/internal/sla/service"
	"github.com/smallbiznis/printflow/pkg/db/dbtest"
	"github.com/smallbiznis/printflow/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The payments table belongs to the payment domain; orders only read it.
const paymentsDDL = `CREATE TABLE payments (
	id INTEGER PRIMARY KEY,
	order_id INTEGER NOT NULL,
	amount NUMERIC NOT NULL,
	refund_amount NUMERIC NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL
)`

type fixture struct {
	svc       *Service
	conn      *gorm.DB
	node      *snowflake.Node
	clk       *clock.FakeClock
	sla       sladomain.Service
	inventory inventorydomain.Service
	events    eventdomain.Service
	service   catalogdomain.PrintService
}

func newFixture(t *testing.T, listeners ...domain.BalanceListener) fixture {
	t.Helper()

	conn := dbtest.Open(t,
		&domain.Order{}, &domain.OrderStatusHistory{},
		&catalogdomain.PrintService{}, &catalogdomain.Tier{},
		&inventorydomain.InventoryItem{}, &inventorydomain.MaterialConsumptionRule{}, &inventorydomain.InventoryTransaction{},
		&sladomain.SlaTimer{}, &sladomain.SlaBreach{},
		&eventdomain.LifecycleEvent{},
	)
	require.NoError(t, conn.Exec(paymentsDDL).Error)

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	holder := config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig())
	log := zap.NewNop()
	repo := repository.Provide()

	events := eventservice.NewService(eventservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: eventrepo.Provide(), Lifecycle: holder,
	})
	sla := slaservice.NewService(slaservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: slarepo.Provide(), Events: events,
		Listeners: []sladomain.BreachListener{NewBreachFlagger(repo, clk)},
	})
	catalog := catalogrepo.Provide()
	inventory := inventoryservice.NewService(inventoryservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: inventoryrepo.Provide(),
		Catalog: catalog, Events: events, Lifecycle: holder,
	})

	printService := catalogdomain.PrintService{
		ID: node.Generate(), Name: "Stickers", Slug: "stickers",
		BasePrice: decimal.NewFromInt(100), DepositPercentage: decimal.NewFromInt(50),
		IsActive: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}
	require.NoError(t, catalog.InsertService(context.Background(), conn, &printService))

	svc := NewService(Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: repo,
		Inventory: inventory, SLA: sla, Events: events, Lifecycle: holder,
		Listeners: listeners,
	}).(*Service)

	return fixture{
		svc: svc, conn: conn, node: node, clk: clk,
		sla: sla, inventory: inventory, events: events, service: printService,
	}
}

func staffCtx() context.Context {
	return obscontext.WithActor(context.Background(), obscontext.RoleStaff, "staff-1")
}

func (f fixture) createOrder(t *testing.T, revisionsAllowed int) domain.Order {
	t.Helper()
	var order *domain.Order
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = f.svc.CreateFromQuoteTx(context.Background(), tx, domain.CreateFromQuoteInput{
			QuoteID:           f.node.Generate(),
			CustomerID:        "cust-1",
			CustomerName:      "Ana",
			CustomerEmail:     "ana@example.com",
			ServiceID:         f.service.ID,
			Quantity:          1,
			Subtotal:          decimal.NewFromInt(120),
			TaxRate:           decimal.RequireFromString("0.10"),
			DepositPercentage: decimal.NewFromInt(50),
			RevisionsAllowed:  revisionsAllowed,
			TurnaroundDays:    5,
		})
		return err
	})
	require.NoError(t, err)
	return *order
}

func (f fixture) pay(t *testing.T, orderID snowflake.ID, amount string) {
	t.Helper()
	require.NoError(t, f.conn.Exec(
		"INSERT INTO payments (id, order_id, amount, refund_amount, status) VALUES (?, ?, ?, 0, 'COMPLETED')",
		f.node.Generate(), orderID, amount,
	).Error)
}

func (f fixture) advance(t *testing.T, order domain.Order, statuses ...domain.Status) domain.Order {
	t.Helper()
	for _, status := range statuses {
		var err error
		order, err = f.svc.AdvanceStatus(staffCtx(), order.ID.String(), domain.AdvanceStatusRequest{Status: status})
		require.NoError(t, err, "advance to %s", status)
	}
	return order
}

func TestCreateFromQuoteComputesFinancials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, 2)
	assert.Equal(t, domain.StatusDepositPaid, order.Status)
	assert.Equal(t, "12.00", order.TaxAmount.StringFixed(2))
	assert.Equal(t, "132.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "66.00", order.DepositAmount.StringFixed(2))
	assert.Equal(t, 3, order.Priority)
	require.NotNil(t, order.DueAt)

	f.pay(t, order.ID, "66")
	order, err := f.svc.RecomputeBalance(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "66.00", order.BalanceDue.StringFixed(2))

	f.pay(t, order.ID, "66")
	order, err = f.svc.RecomputeBalance(ctx, order.ID.String())
	require.NoError(t, err)
	assert.True(t, order.BalanceDue.IsZero(), "balance %s", order.BalanceDue)

	timers, err := f.sla.ListTimers(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, sladomain.TimerFirstProof, timers[0].TimerType)
}

func TestCreateFromQuoteRejectsSecondOrder(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 0)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.CreateFromQuoteTx(context.Background(), tx, domain.CreateFromQuoteInput{
			QuoteID: order.QuoteID, CustomerID: "cust-1", ServiceID: f.service.ID, Quantity: 1,
			Subtotal: decimal.NewFromInt(10),
		})
		return err
	})
	require.ErrorIs(t, err, domain.ErrOrderExists)
}

func TestIllegalTransitionNamesStates(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 0)

	_, err := f.svc.AdvanceStatus(staffCtx(), order.ID.String(), domain.AdvanceStatusRequest{Status: domain.StatusInProduction})
	require.Equal(t, errs.KindIllegalTransition, errs.KindOf(err))

	var transitionErr *errs.IllegalTransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, "DEPOSIT_PAID", transitionErr.From)
	assert.Equal(t, "IN_PRODUCTION", transitionErr.To)

	_, err = f.svc.AdvanceStatus(staffCtx(), order.ID.String(), domain.AdvanceStatusRequest{Status: "PRINTING"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestFullLifecycleRequiresSettledBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, 0)
	order = f.advance(t, order,
		domain.StatusDesignInProgress,
		domain.StatusWaitingApproval,
		domain.StatusInProduction,
		domain.StatusQualityCheck,
		domain.StatusReadyForPickup,
	)

	_, err := f.svc.AdvanceStatus(staffCtx(), order.ID.String(), domain.AdvanceStatusRequest{Status: domain.StatusCompleted})
	require.ErrorIs(t, err, domain.ErrBalanceOutstanding)

	f.pay(t, order.ID, "132")
	order = f.advance(t, order, domain.StatusCompleted)
	require.NotNil(t, order.CompletedAt)
	require.True(t, order.BalanceDue.IsZero())

	_, err = f.svc.AdvanceStatus(staffCtx(), order.ID.String(), domain.AdvanceStatusRequest{Status: domain.StatusCancelled})
	require.Equal(t, errs.KindIllegalTransition, errs.KindOf(err))

	history, err := f.svc.History(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 7)
	assert.Equal(t, "staff-1", history[1].ActorID)

	events, err := f.events.List(ctx, eventdomain.ListEventsRequest{EventType: string(eventdomain.EventOrderStatusChanged)})
	require.NoError(t, err)
	assert.EqualValues(t, 6, events.Total)

	timers, err := f.sla.ListTimers(ctx, order.ID.String())
	require.NoError(t, err)
	for _, timer := range timers {
		if timer.TimerType == sladomain.TimerProduction {
			assert.False(t, timer.Open())
		}
	}
}

func TestProductionConsumesInventoryOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{
		SKU: "label-stock", Name: "Label stock", Unit: "sheet", OpeningQty: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	_, err = f.inventory.CreateRule(ctx, inventorydomain.CreateRuleRequest{
		ServiceID: f.service.ID.String(), ItemID: item.ID.String(), QtyPerUnit: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	order := f.createOrder(t, 0)
	order = f.advance(t, order,
		domain.StatusDesignInProgress,
		domain.StatusWaitingApproval,
		domain.StatusInProduction,
	)
	require.NotNil(t, order.InventoryConsumedAt)

	got, err := f.inventory.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.True(t, got.QtyOnHand.Equal(decimal.NewFromInt(8)), "qty %s", got.QtyOnHand)

	// Rework loop back into production.
	f.advance(t, order, domain.StatusQualityCheck, domain.StatusInProduction)
	got, err = f.inventory.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.True(t, got.QtyOnHand.Equal(decimal.NewFromInt(8)))

	txns, err := f.inventory.ListTransactions(ctx, item.ID.String())
	require.NoError(t, err)
	consumption := 0
	for _, txn := range txns {
		if txn.Type == inventorydomain.TransactionConsumption {
			consumption++
			assert.True(t, txn.QtyChange.Equal(decimal.NewFromInt(-2)))
		}
	}
	require.Equal(t, 1, consumption)
}

func TestRevisionLimit(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1)

	order, err := f.svc.RecordRevision(staffCtx(), order.ID.String(), domain.RecordRevisionRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, order.RevisionsUsed)

	_, err = f.svc.RecordRevision(staffCtx(), order.ID.String(), domain.RecordRevisionRequest{})
	require.ErrorIs(t, err, domain.ErrRevisionLimitExceeded)
	require.Equal(t, errs.KindRevisionLimitExceeded, errs.KindOf(err))

	_, err = f.svc.RecordRevision(staffCtx(), order.ID.String(), domain.RecordRevisionRequest{Override: true})
	require.ErrorIs(t, err, domain.ErrRevisionOverrideDenied)

	adminCtx := obscontext.WithActor(context.Background(), obscontext.RoleAdmin, "admin-1")
	order, err = f.svc.RecordRevision(adminCtx, order.ID.String(), domain.RecordRevisionRequest{Override: true})
	require.NoError(t, err)
	require.Equal(t, 2, order.RevisionsUsed)
}

func TestUnlimitedRevisions(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 0)
	for i := 0; i < 5; i++ {
		var err error
		order, err = f.svc.RecordRevision(staffCtx(), order.ID.String(), domain.RecordRevisionRequest{})
		require.NoError(t, err)
	}
	require.Equal(t, 5, order.RevisionsUsed)
}

func TestCancelClosesTimersAndFreezesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, 0)
	order = f.advance(t, order, domain.StatusCancelled)
	require.NotNil(t, order.CancelledAt)

	timers, err := f.sla.ListTimers(ctx, order.ID.String())
	require.NoError(t, err)
	for _, timer := range timers {
		assert.False(t, timer.Open())
	}

	_, err = f.svc.RecordRevision(staffCtx(), order.ID.String(), domain.RecordRevisionRequest{})
	require.ErrorIs(t, err, domain.ErrOrderTerminal)
	staff := "staff-9"
	_, err = f.svc.AssignStaff(ctx, order.ID.String(), domain.AssignStaffRequest{StaffID: &staff})
	require.ErrorIs(t, err, domain.ErrOrderTerminal)

	// Refund bookkeeping still works after the order is closed.
	_, err = f.svc.RecomputeBalance(ctx, order.ID.String())
	require.NoError(t, err)
}

func TestBalanceListenersSeeEveryRecompute(t *testing.T) {
	ctrl := gomock.NewController(t)
	listener := mocks.NewMockBalanceListener(ctrl)

	f := newFixture(t, listener)
	order := f.createOrder(t, 0)

	listener.EXPECT().
		OnBalanceChangedTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *gorm.DB, got domain.Order) error {
			assert.Equal(t, "32.00", got.BalanceDue.StringFixed(2))
			return nil
		})

	f.pay(t, order.ID, "100")
	_, err := f.svc.RecomputeBalance(context.Background(), order.ID.String())
	require.NoError(t, err)
}

func TestAddFeeRaisesTotal(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 0)

	var updated *domain.Order
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = f.svc.AddFeeTx(context.Background(), tx, order.ID, domain.FeeEmergency, decimal.NewFromInt(24))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "156.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, "156.00", updated.BalanceDue.StringFixed(2))
	assert.Equal(t, "66.00", updated.DepositAmount.StringFixed(2))
}

func TestAssignStaffAndPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 0)

	staff := "  staff-7 "
	order, err := f.svc.AssignStaff(ctx, order.ID.String(), domain.AssignStaffRequest{StaffID: &staff})
	require.NoError(t, err)
	require.NotNil(t, order.AssignedStaffID)
	assert.Equal(t, "staff-7", *order.AssignedStaffID)
	assert.Equal(t, domain.StatusDepositPaid, order.Status)

	order, err = f.svc.AssignStaff(ctx, order.ID.String(), domain.AssignStaffRequest{})
	require.NoError(t, err)
	assert.Nil(t, order.AssignedStaffID)

	_, err = f.svc.SetPriority(ctx, order.ID.String(), domain.SetPriorityRequest{Priority: 9})
	require.ErrorIs(t, err, domain.ErrInvalidPriority)
	order, err = f.svc.SetPriority(ctx, order.ID.String(), domain.SetPriorityRequest{Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, order.Priority)

	list, err := f.svc.List(ctx, domain.ListOrdersRequest{Status: "deposit_paid"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}

func TestStaleVersionIsRejected(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 0)

	stale := order
	_, err := f.svc.SetPriority(context.Background(), order.ID.String(), domain.SetPriorityRequest{Priority: 2})
	require.NoError(t, err)

	ok, err := f.svc.repo.Update(context.Background(), f.conn, &stale, stale.Version)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBreachFlagsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 0)

	f.clk.Advance(49 * time.Hour)
	n, err := f.sla.ScanForBreaches(ctx, f.clk.Now(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, order.ID.String())
	require.NoError(t, err)
	require.True(t, got.SLABreached)

	breached := true
	list, err := f.svc.List(ctx, domain.ListOrdersRequest{SLABreached: &breached})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
}
