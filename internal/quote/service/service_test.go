package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/printflow/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/printflow/internal/booking/repository"
	bookingservice "github.com/smallbiznis/printflow/internal/booking/service"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/printflow/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/printflow/internal/catalog/service"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	eventrepo "github.com/smallbiznis/printflow/internal/events/repository"
	eventservice "github.com/smallbiznis/printflow/internal/events/service"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/printflow/internal/inventory/repository"
	inventoryservice "github.com/smallbiznis/printflow/internal/inventory/service"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	ordermocks "github.com/smallbiznis/printflow/internal/order/mocks"
	orderrepo "github.com/smallbiznis/printflow/internal/order/repository"
	orderservice "github.com/smallbiznis/printflow/internal/order/service"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/printflow/internal/payment/repository"
	paymentservice "github.com/smallbiznis/printflow/internal/payment/service"
	"github.com/smallbiznis/printflow/internal/quote/domain"
	"github.com/smallbiznis/printflow/internal/quote/repository"
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

type fixture struct {
	svc      *Service
	conn     *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	catalog  catalogdomain.Repository
	orders   orderdomain.Service
	payments paymentdomain.Service
	bookings bookingdomain.Service
	events   eventdomain.Service
	svcID    snowflake.ID
}

// newFixture wires the real lifecycle around the quote service. A non-nil
// orders replaces the order service seen by quotes.
func newFixture(t *testing.T, orders orderdomain.Service) fixture {
	t.Helper()

	conn := dbtest.Open(t,
		&domain.Quote{}, &domain.QuoteAnswer{},
		&bookingdomain.Booking{}, &bookingdomain.CapacitySetting{}, &bookingdomain.CapacityOverride{},
		&bookingdomain.BlackoutDate{}, &bookingdomain.BookingDay{},
		&paymentdomain.Payment{}, &paymentdomain.PaymentRefund{},
		&orderdomain.Order{}, &orderdomain.OrderStatusHistory{},
		&catalogdomain.PrintService{}, &catalogdomain.ServiceOption{}, &catalogdomain.Tier{},
		&inventorydomain.InventoryItem{}, &inventorydomain.MaterialConsumptionRule{}, &inventorydomain.InventoryTransaction{},
		&sladomain.SlaTimer{}, &sladomain.SlaBreach{},
		&eventdomain.LifecycleEvent{},
	)

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	holder := config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig())
	log := zap.NewNop()

	events := eventservice.NewService(eventservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: eventrepo.Provide(), Lifecycle: holder,
	})
	sla := slaservice.NewService(slaservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: slarepo.Provide(), Events: events,
	})
	catalogRepo := catalogrepo.Provide()
	catalog := catalogservice.NewService(catalogservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: catalogRepo,
	})
	inventory := inventoryservice.NewService(inventoryservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: inventoryrepo.Provide(),
		Catalog: catalogRepo, Events: events, Lifecycle: holder,
	})
	ordersRepo := orderrepo.Provide()
	realOrders := orderservice.NewService(orderservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: ordersRepo,
		Inventory: inventory, SLA: sla, Events: events, Lifecycle: holder,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: paymentrepo.Provide(),
		Orders: realOrders, Events: events,
	})
	if orders == nil {
		orders = realOrders
	}

	quotes := repository.Provide()
	bookingsRepo := bookingrepo.Provide()
	bookings := bookingservice.NewService(bookingservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: bookingsRepo,
		Quotes: quotes, Orders: realOrders, OrderRepo: ordersRepo, Events: events, Lifecycle: holder,
	})

	printService := catalogdomain.PrintService{
		ID: node.Generate(), Name: "Flyers", Slug: "flyers",
		BasePrice: decimal.NewFromInt(100), DepositPercentage: decimal.NewFromInt(50),
		IsActive: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}
	require.NoError(t, catalogRepo.InsertService(context.Background(), conn, &printService))

	svc := NewService(Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: quotes,
		Catalog: catalog, CatalogRepo: catalogRepo, Bookings: bookingsRepo,
		Orders: orders, Payments: payments, Events: events, Lifecycle: holder,
	}).(*Service)

	return fixture{
		svc: svc, conn: conn, node: node, clock: clk, catalog: catalogRepo,
		orders: realOrders, payments: payments, bookings: bookings, events: events,
		svcID: printService.ID,
	}
}

func (f fixture) submit(t *testing.T, req domain.SubmitQuoteRequest) domain.Quote {
	t.Helper()
	if req.ServiceID == "" {
		req.ServiceID = f.svcID.String()
	}
	if req.CustomerID == "" {
		req.CustomerID = "cust-1"
	}
	quote, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	return quote
}

func (f fixture) reviewed(t *testing.T, req domain.SubmitQuoteRequest) domain.Quote {
	t.Helper()
	quote := f.submit(t, req)
	quote, err := f.svc.StartReview(context.Background(), quote.ID.String())
	require.NoError(t, err)
	return quote
}

func (f fixture) countEvents(t *testing.T, eventType eventdomain.EventType) int {
	t.Helper()
	resp, err := f.events.List(context.Background(), eventdomain.ListEventsRequest{EventType: string(eventType)})
	require.NoError(t, err)
	return len(resp.Events)
}

func money(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestSubmitEstimatesAndExpires(t *testing.T) {
	f := newFixture(t, nil)

	quote := f.submit(t, domain.SubmitQuoteRequest{CustomerName: "Ana", Quantity: 2, Notes: "matte finish"})
	assert.Equal(t, domain.StatusRequested, quote.Status)
	assert.Equal(t, "200.00", quote.EstimateMin.StringFixed(2))
	assert.Equal(t, "250.00", quote.EstimateMax.StringFixed(2))
	assert.Nil(t, quote.FinalSubtotal)
	assert.Equal(t, f.clock.Now().Add(14*24*time.Hour), quote.ExpiresAt)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	inactive := catalogdomain.PrintService{
		ID: f.node.Generate(), Name: "Retired", Slug: "retired", BasePrice: decimal.NewFromInt(10),
		DepositPercentage: decimal.Zero, CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.catalog.InsertService(ctx, f.conn, &inactive))
	_, err := f.svc.Submit(ctx, domain.SubmitQuoteRequest{CustomerID: "cust-1", ServiceID: inactive.ID.String()})
	require.ErrorIs(t, err, domain.ErrServiceInactive)

	_, err = f.svc.Submit(ctx, domain.SubmitQuoteRequest{ServiceID: f.svcID.String()})
	require.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Submit(ctx, domain.SubmitQuoteRequest{CustomerID: "cust-1", ServiceID: f.svcID.String(), Quantity: -3})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	otherTier := catalogdomain.Tier{
		ID: f.node.Generate(), ServiceID: inactive.ID, Name: "Gold", TurnaroundDays: 2,
		DepositPercentage: decimal.Zero, RushFeePercentage: decimal.Zero, IsActive: true,
		CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.catalog.InsertTier(ctx, f.conn, &otherTier))
	tierID := otherTier.ID.String()
	_, err = f.svc.Submit(ctx, domain.SubmitQuoteRequest{CustomerID: "cust-1", ServiceID: f.svcID.String(), TierID: &tierID})
	require.ErrorIs(t, err, domain.ErrTierMismatch)
}

func TestCustomerActorOwnsQuotes(t *testing.T) {
	f := newFixture(t, nil)
	customer := obscontext.WithActor(context.Background(), obscontext.RoleCustomer, "cust-7")

	mine, err := f.svc.Submit(customer, domain.SubmitQuoteRequest{CustomerID: "someone-else", ServiceID: f.svcID.String()})
	require.NoError(t, err)
	assert.Equal(t, "cust-7", mine.CustomerID)
	theirs := f.submit(t, domain.SubmitQuoteRequest{CustomerID: "cust-2"})

	resp, err := f.svc.List(customer, domain.ListQuotesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, mine.ID, resp.Quotes[0].ID)

	_, err = f.svc.Get(customer, theirs.ID.String())
	require.ErrorIs(t, err, domain.ErrQuoteNotFound)

	resp, err = f.svc.List(context.Background(), domain.ListQuotesRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Quotes, 2)
}

func TestFinalizeCreatesOrderWithDeposit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quote := f.reviewed(t, domain.SubmitQuoteRequest{CustomerEmail: "ana@example.com"})

	order, err := f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{
		FinalSubtotal: money("120"),
		TaxRate:       money("0.10"),
		AdminNotes:    "approved by phone",
	})
	require.NoError(t, err)
	assert.Equal(t, quote.ID, order.QuoteID)
	assert.Equal(t, "12.00", order.TaxAmount.StringFixed(2))
	assert.Equal(t, "132.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "66.00", order.DepositAmount.StringFixed(2))
	assert.Equal(t, "66.00", order.BalanceDue.StringFixed(2))

	finalized, err := f.svc.Get(ctx, quote.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinalized, finalized.Status)
	require.NotNil(t, finalized.FinalSubtotal)
	assert.Equal(t, "120.00", finalized.FinalSubtotal.StringFixed(2))
	assert.Equal(t, "132.00", finalized.TotalAmount.StringFixed(2))
	require.NotNil(t, finalized.OrderID)
	assert.Equal(t, order.ID, *finalized.OrderID)
	assert.Equal(t, 1, f.countEvents(t, eventdomain.EventQuoteFinalized))

	payment, err := f.payments.RecordPayment(ctx, order.ID.String(), paymentdomain.RecordPaymentRequest{
		Amount: decimal.NewFromInt(66), Method: paymentdomain.MethodCash,
	})
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, payment.ID.String())
	require.NoError(t, err)

	settled, err := f.orders.Get(ctx, order.ID.String())
	require.NoError(t, err)
	assert.True(t, settled.BalanceDue.IsZero())

	_, err = f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{FinalSubtotal: money("120"), TaxRate: money("0")})
	require.ErrorIs(t, err, domain.ErrQuoteClosed)
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
}

func TestFinalizeRequiresReview(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quote := f.submit(t, domain.SubmitQuoteRequest{})

	_, err := f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{FinalSubtotal: money("50"), TaxRate: money("0")})
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	var transition *errs.IllegalTransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, "REQUESTED", transition.From)
	assert.Equal(t, "FINALIZED", transition.To)

	_, err = f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{FinalSubtotal: money("-1"), TaxRate: money("0")})
	require.ErrorIs(t, err, domain.ErrInvalidSubtotal)

	_, err = f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{FinalSubtotal: money("50"), TaxRate: money("10")})
	require.ErrorIs(t, err, domain.ErrInvalidTaxRate)
}

func TestFinalizeNeedsPricingInputs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quote := f.reviewed(t, domain.SubmitQuoteRequest{})

	_, err := f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{})
	require.ErrorIs(t, err, domain.ErrSubtotalRequired)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Equal(t, "final_subtotal", errs.FieldOf(err))

	_, err = f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{FinalSubtotal: money("120")})
	require.ErrorIs(t, err, domain.ErrTaxRateRequired)
	assert.Equal(t, "tax_rate", errs.FieldOf(err))

	after, err := f.svc.Get(ctx, quote.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, after.Status)
	assert.Nil(t, after.OrderID)

	var count int64
	require.NoError(t, f.conn.Model(&orderdomain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFinalizeIsAllOrNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := ordermocks.NewMockService(ctrl)
	f := newFixture(t, orders)
	ctx := context.Background()

	quote := f.reviewed(t, domain.SubmitQuoteRequest{})
	_, err := f.svc.SendForApproval(ctx, quote.ID.String())
	require.NoError(t, err)

	orders.EXPECT().
		CreateFromQuoteTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("orders table unavailable")).
		Times(1)

	_, err = f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{
		FinalSubtotal: money("120"),
		TaxRate:       money("0.10"),
	})
	require.Error(t, err)

	after, err := f.svc.Get(ctx, quote.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, after.Status)
	assert.Nil(t, after.FinalSubtotal)
	assert.Nil(t, after.OrderID)
	assert.Nil(t, after.FinalizedAt)
	assert.Equal(t, 0, f.countEvents(t, eventdomain.EventQuoteFinalized))

	var count int64
	require.NoError(t, f.conn.Model(&orderdomain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFinalizeAppliesTierFees(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tier := catalogdomain.Tier{
		ID: f.node.Generate(), ServiceID: f.svcID, Name: "Express", TurnaroundDays: 1, RevisionsAllowed: 2,
		DepositPercentage: decimal.NewFromInt(40), RushFeePercentage: decimal.NewFromInt(10), IsActive: true,
		CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.catalog.InsertTier(ctx, f.conn, &tier))
	tierID := tier.ID.String()
	quote := f.reviewed(t, domain.SubmitQuoteRequest{TierID: &tierID})

	// Priced on the 100.00 estimate until the quote is finalized.
	booking, err := f.bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		QuoteID: quote.ID.String(), Date: "2026-06-03", IsEmergency: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", booking.EmergencyFeeAmount.StringFixed(2))
	assert.False(t, booking.FeeApplied)

	order, err := f.svc.Finalize(ctx, quote.ID.String(), domain.FinalizeQuoteRequest{
		FinalSubtotal: money("200"),
		TaxRate:       money("0"),
		Rush:          true,
		DepositMethod: paymentdomain.MethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.RushFee.StringFixed(2))
	assert.Equal(t, "40.00", order.EmergencyFee.StringFixed(2))
	assert.Equal(t, "260.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "104.00", order.DepositAmount.StringFixed(2))
	assert.Equal(t, "156.00", order.BalanceDue.StringFixed(2))
	assert.Equal(t, 2, order.RevisionsAllowed)

	booking, err = f.bookings.Get(ctx, booking.ID.String())
	require.NoError(t, err)
	assert.True(t, booking.FeeApplied)
	assert.Equal(t, "40.00", booking.EmergencyFeeAmount.StringFixed(2))

	payments, err := f.payments.List(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, paymentdomain.MethodCard, payments[0].Method)
	assert.Equal(t, paymentdomain.StatusCompleted, payments[0].Status)
}

func TestRejectClosesQuote(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quote := f.submit(t, domain.SubmitQuoteRequest{})

	_, err := f.svc.Reject(ctx, quote.ID.String(), domain.RejectQuoteRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidReason)

	rejected, err := f.svc.Reject(ctx, quote.ID.String(), domain.RejectQuoteRequest{Reason: "out of scope"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Equal(t, "out of scope", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	_, err = f.svc.StartReview(ctx, quote.ID.String())
	require.ErrorIs(t, err, domain.ErrQuoteClosed)
}

func TestExpireStaleIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	stale := f.submit(t, domain.SubmitQuoteRequest{})
	reviewed := f.reviewed(t, domain.SubmitQuoteRequest{})
	finalized := f.reviewed(t, domain.SubmitQuoteRequest{})
	_, err := f.svc.Finalize(ctx, finalized.ID.String(), domain.FinalizeQuoteRequest{FinalSubtotal: money("80"), TaxRate: money("0")})
	require.NoError(t, err)

	f.clock.Advance(15 * 24 * time.Hour)

	_, err = f.svc.SendForApproval(ctx, reviewed.ID.String())
	require.ErrorIs(t, err, domain.ErrQuoteExpired)

	n, err := f.svc.ExpireStale(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.ExpireStale(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Zero(t, n)

	for id, want := range map[snowflake.ID]domain.Status{
		stale.ID:     domain.StatusExpired,
		reviewed.ID:  domain.StatusExpired,
		finalized.ID: domain.StatusFinalized,
	} {
		quote, err := f.svc.Get(ctx, id.String())
		require.NoError(t, err)
		assert.Equal(t, want, quote.Status)
	}
	assert.Equal(t, 2, f.countEvents(t, eventdomain.EventQuoteExpired))
}
