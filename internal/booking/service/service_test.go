package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/booking/domain"
	"github.com/smallbiznis/printflow/internal/booking/repository"
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
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	orderrepo "github.com/smallbiznis/printflow/internal/order/repository"
	orderservice "github.com/smallbiznis/printflow/internal/order/service"
	quotedomain "github.com/smallbiznis/printflow/internal/quote/domain"
	quoterepo "github.com/smallbiznis/printflow/internal/quote/repository"
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
	svc    *Service
	conn   *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	quotes quotedomain.Repository
	orders orderdomain.Service
	events eventdomain.Service
	svcID  snowflake.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := dbtest.Open(t,
		&domain.Booking{}, &domain.CapacitySetting{}, &domain.CapacityOverride{},
		&domain.BlackoutDate{}, &domain.BookingDay{},
		&quotedomain.Quote{}, &quotedomain.QuoteAnswer{},
		&orderdomain.Order{}, &orderdomain.OrderStatusHistory{},
		&catalogdomain.PrintService{}, &catalogdomain.Tier{},
		&inventorydomain.InventoryItem{}, &inventorydomain.MaterialConsumptionRule{}, &inventorydomain.InventoryTransaction{},
		&sladomain.SlaTimer{}, &sladomain.SlaBreach{},
		&eventdomain.LifecycleEvent{},
	)

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	// Monday.
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	holder := config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig())
	log := zap.NewNop()

	events := eventservice.NewService(eventservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: eventrepo.Provide(), Lifecycle: holder,
	})
	sla := slaservice.NewService(slaservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: slarepo.Provide(), Events: events,
	})
	catalog := catalogrepo.Provide()
	inventory := inventoryservice.NewService(inventoryservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: inventoryrepo.Provide(),
		Catalog: catalog, Events: events, Lifecycle: holder,
	})
	ordersRepo := orderrepo.Provide()
	orders := orderservice.NewService(orderservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: ordersRepo,
		Inventory: inventory, SLA: sla, Events: events, Lifecycle: holder,
	})

	printService := catalogdomain.PrintService{
		ID: node.Generate(), Name: "Banners", Slug: "banners",
		BasePrice: decimal.NewFromInt(100), DepositPercentage: decimal.NewFromInt(50),
		IsActive: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}
	require.NoError(t, catalog.InsertService(context.Background(), conn, &printService))

	quotes := quoterepo.Provide()
	svc := NewService(Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: repository.Provide(),
		Quotes: quotes, Orders: orders, OrderRepo: ordersRepo, Events: events, Lifecycle: holder,
	}).(*Service)

	return fixture{
		svc: svc, conn: conn, node: node, clock: clk,
		quotes: quotes, orders: orders, events: events, svcID: printService.ID,
	}
}

// quote stores an open quote estimated at 200.00 to 250.00.
func (f fixture) quote(t *testing.T, status quotedomain.Status) quotedomain.Quote {
	t.Helper()
	now := f.clock.Now()
	q := quotedomain.Quote{
		ID:           f.node.Generate(),
		CustomerID:   "cust-3",
		CustomerName: "Noor",
		ServiceID:    f.svcID,
		Quantity:     2,
		Status:       status,
		EstimateMin:  decimal.NewFromInt(200),
		EstimateMax:  decimal.NewFromInt(250),
		ExpiresAt:    now.Add(14 * 24 * time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.quotes.Insert(context.Background(), f.conn, &q))
	return q
}

func (f fixture) book(t *testing.T, quoteID snowflake.ID, date string, emergency bool) domain.Booking {
	t.Helper()
	booking, err := f.svc.Create(context.Background(), domain.CreateBookingRequest{
		QuoteID:     quoteID.String(),
		Date:        date,
		TimeSlot:    "10:00",
		IsEmergency: emergency,
	})
	require.NoError(t, err)
	return booking
}

func TestCapacityRejectsExtraBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusRequested)

	_, err := f.svc.SetCapacityOverride(ctx, "2026-06-10", domain.SetCapacityOverrideRequest{Slots: 2, EmergencySlots: 1, Reason: "short staffed"})
	require.NoError(t, err)

	f.book(t, q.ID, "2026-06-10", false)
	f.book(t, q.ID, "2026-06-10", false)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: q.ID.String(), Date: "2026-06-10"})
	require.Error(t, err)
	assert.Equal(t, errs.KindCapacityExceeded, errs.KindOf(err))
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))

	// The emergency pool is counted apart from regular slots.
	emergency := f.book(t, q.ID, "2026-06-10", true)
	assert.True(t, emergency.IsEmergency)

	avail, err := f.svc.Availability(ctx, "2026-06-10")
	require.NoError(t, err)
	assert.True(t, avail.Overridden)
	assert.EqualValues(t, 2, avail.Booked)
	assert.Equal(t, 0, avail.Remaining)
	assert.Equal(t, 0, avail.EmergencyRemaining)
}

func TestCancelledBookingFreesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusRequested)

	_, err := f.svc.SetCapacityOverride(ctx, "2026-06-12", domain.SetCapacityOverrideRequest{Slots: 1})
	require.NoError(t, err)
	first := f.book(t, q.ID, "2026-06-12", false)

	_, err = f.svc.Cancel(ctx, first.ID.String(), domain.CancelBookingRequest{Reason: "changed plans"})
	require.NoError(t, err)

	second := f.book(t, q.ID, "2026-06-12", false)
	assert.Equal(t, domain.StatusPending, second.Status)
}

func TestBlackoutDateRejectsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusUnderReview)

	_, err := f.svc.AddBlackoutDate(ctx, domain.AddBlackoutDateRequest{Date: "2026-06-15", Reason: "press maintenance"})
	require.NoError(t, err)

	_, err = f.svc.AddBlackoutDate(ctx, domain.AddBlackoutDateRequest{Date: "2026-06-15"})
	require.ErrorIs(t, err, domain.ErrDuplicateBlackout)

	for _, emergency := range []bool{false, true} {
		_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: q.ID.String(), Date: "2026-06-15", IsEmergency: emergency})
		require.Error(t, err)
		assert.Equal(t, errs.KindBlackoutDate, errs.KindOf(err))
	}

	avail, err := f.svc.Availability(ctx, "2026-06-15")
	require.NoError(t, err)
	assert.True(t, avail.Blackout)
	assert.Equal(t, "press maintenance", avail.BlackoutReason)
	assert.Equal(t, 0, avail.Remaining)

	dates, err := f.svc.ListBlackoutDates(ctx, domain.ListBlackoutDatesRequest{From: "2026-06-01", To: "2026-06-30"})
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2026-06-15", dates[0].Date)
}

type failingCountRepo struct {
	domain.Repository
	err error
}

func (r *failingCountRepo) CountActive(ctx context.Context, db *gorm.DB, date string, emergency bool, excludeID snowflake.ID) (int64, error) {
	if emergency {
		return 0, r.err
	}
	return r.Repository.CountActive(ctx, db, date, emergency, excludeID)
}

func TestBlackoutDateSurfacesCountFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	countErr := errors.New("bookings table unavailable")
	svc := NewService(Params{
		DB: f.conn, Log: zap.NewNop(), GenID: f.node, Clock: f.clock,
		Repo:   &failingCountRepo{Repository: repository.Provide(), err: countErr},
		Quotes: f.quotes, Orders: f.orders, OrderRepo: orderrepo.Provide(), Events: f.events,
		Lifecycle: config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig()),
	})

	_, err := svc.AddBlackoutDate(ctx, domain.AddBlackoutDateRequest{Date: "2026-06-16"})
	require.ErrorIs(t, err, countErr)

	dates, err := f.svc.ListBlackoutDates(ctx, domain.ListBlackoutDatesRequest{})
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestEmergencyFeeOnEstimate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusRequested)

	booking := f.book(t, q.ID, "2026-06-03", true)
	assert.Equal(t, "20.00", booking.EmergencyFeePercentage.StringFixed(2))
	assert.Equal(t, "40.00", booking.EmergencyFeeAmount.StringFixed(2))
	assert.False(t, booking.FeeApplied)

	_, err := f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: q.ID.String(), Date: "2026-06-03", IsEmergency: true})
	require.ErrorIs(t, err, domain.ErrEmergencyCapacity)
}

func TestEmergencyFeeChargedToOpenOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusFinalized)

	var orderID snowflake.ID
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		order, err := f.orders.CreateFromQuoteTx(ctx, tx, orderdomain.CreateFromQuoteInput{
			QuoteID:           q.ID,
			CustomerID:        q.CustomerID,
			ServiceID:         f.svcID,
			Quantity:          q.Quantity,
			Subtotal:          decimal.NewFromInt(150),
			TaxRate:           decimal.Zero,
			DepositPercentage: decimal.NewFromInt(50),
			TurnaroundDays:    2,
		})
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.UpsertCapacitySetting(ctx, int(time.Thursday), domain.UpsertCapacitySettingRequest{
		DefaultSlots: 3, EmergencySlotsMax: 2, EmergencyFeePercentage: decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	booking := f.book(t, q.ID, "2026-06-04", true)
	assert.Equal(t, "45.00", booking.EmergencyFeeAmount.StringFixed(2))
	assert.True(t, booking.FeeApplied)

	order, err := f.orders.Get(ctx, orderID.String())
	require.NoError(t, err)
	assert.Equal(t, "45.00", order.EmergencyFee.StringFixed(2))
	assert.Equal(t, "195.00", order.TotalAmount.StringFixed(2))
}

// txTrackingQuotes and txTrackingOrders note whether lookups ran inside a
// transaction.
type txTrackingQuotes struct {
	quotedomain.Repository
	inTx []bool
}

func (r *txTrackingQuotes) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*quotedomain.Quote, error) {
	r.inTx = append(r.inTx, inTransaction(db))
	return r.Repository.FindByID(ctx, db, id)
}

type txTrackingOrders struct {
	orderdomain.Repository
	inTx []bool
}

func (r *txTrackingOrders) FindByQuoteID(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) (*orderdomain.Order, error) {
	r.inTx = append(r.inTx, inTransaction(db))
	return r.Repository.FindByQuoteID(ctx, db, quoteID)
}

func inTransaction(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

func TestCreateReadsQuoteAndOrderInsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusPendingApproval)

	quotes := &txTrackingQuotes{Repository: f.quotes}
	orders := &txTrackingOrders{Repository: orderrepo.Provide()}
	svc := NewService(Params{
		DB: f.conn, Log: zap.NewNop(), GenID: f.node, Clock: f.clock, Repo: repository.Provide(),
		Quotes: quotes, Orders: f.orders, OrderRepo: orders, Events: f.events,
		Lifecycle: config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig()),
	})

	booking, err := svc.Create(ctx, domain.CreateBookingRequest{
		QuoteID: q.ID.String(), Date: "2026-06-04", TimeSlot: "10:00", IsEmergency: true,
	})
	require.NoError(t, err)
	assert.False(t, booking.FeeApplied)

	require.Equal(t, []bool{true}, quotes.inTx)
	require.Equal(t, []bool{true}, orders.inTx)
}

func TestClosedQuotesAndPastDatesAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.quote(t, quotedomain.StatusRequested)
	rejected := f.quote(t, quotedomain.StatusRejected)

	_, err := f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: rejected.ID.String(), Date: "2026-06-05"})
	require.ErrorIs(t, err, domain.ErrQuoteNotBookable)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: open.ID.String(), Date: "2026-05-31"})
	require.ErrorIs(t, err, domain.ErrDateInPast)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: open.ID.String(), Date: "06/05/2026"})
	require.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: open.ID.String(), Date: "2026-06-05", TimeSlot: "25:00"})
	require.ErrorIs(t, err, domain.ErrInvalidTimeSlot)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: f.node.Generate().String(), Date: "2026-06-05"})
	require.ErrorIs(t, err, quotedomain.ErrQuoteNotFound)
}

func TestCancellationWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusRequested)

	// 23 hours away with a 24 hour lead time.
	soon, err := f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: q.ID.String(), Date: "2026-06-02", TimeSlot: "08:00"})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, soon.ID.String(), domain.CancelBookingRequest{})
	require.Error(t, err)
	assert.Equal(t, errs.KindCancellationWindowClosed, errs.KindOf(err))

	later := f.book(t, q.ID, "2026-06-03", false)
	cancelled, err := f.svc.Cancel(ctx, later.ID.String(), domain.CancelBookingRequest{Reason: "artwork not ready"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "artwork not ready", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Cancel(ctx, later.ID.String(), domain.CancelBookingRequest{})
	require.ErrorIs(t, err, domain.ErrBookingNotActive)

	resp, err := f.events.List(ctx, eventdomain.ListEventsRequest{EventType: string(eventdomain.EventBookingCancelled)})
	require.NoError(t, err)
	assert.Len(t, resp.Events, 1)
}

func TestRescheduleAndConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusRequested)

	for _, date := range []string{"2026-06-16", "2026-06-17"} {
		_, err := f.svc.SetCapacityOverride(ctx, date, domain.SetCapacityOverrideRequest{Slots: 1})
		require.NoError(t, err)
	}
	booking := f.book(t, q.ID, "2026-06-16", false)

	moved, err := f.svc.Reschedule(ctx, booking.ID.String(), domain.RescheduleBookingRequest{Date: "2026-06-17", TimeSlot: "14:30"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRescheduled, moved.Status)
	assert.Equal(t, "2026-06-17", moved.Date)
	assert.Equal(t, "14:30", moved.TimeSlot)
	assert.Equal(t, 1, moved.RescheduleCount)

	// The old date is free again and the new one is full.
	f.book(t, q.ID, "2026-06-16", false)
	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{QuoteID: q.ID.String(), Date: "2026-06-17"})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	confirmed, err := f.svc.Confirm(ctx, booking.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	completed, err := f.svc.Complete(ctx, booking.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	_, err = f.svc.Complete(ctx, booking.ID.String())
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	_, err = f.svc.Reschedule(ctx, booking.ID.String(), domain.RescheduleBookingRequest{Date: "2026-06-20"})
	require.ErrorIs(t, err, domain.ErrBookingNotActive)
}

func TestListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, quotedomain.StatusRequested)
	other := f.quote(t, quotedomain.StatusRequested)

	f.book(t, q.ID, "2026-06-09", false)
	f.book(t, q.ID, "2026-06-08", false)
	f.book(t, other.ID, "2026-06-08", false)

	resp, err := f.svc.List(ctx, domain.ListBookingsRequest{QuoteID: q.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 2)

	resp, err = f.svc.List(ctx, domain.ListBookingsRequest{DateFrom: "2026-06-08", DateTo: "2026-06-08"})
	require.NoError(t, err)
	assert.Len(t, resp.Bookings, 2)

	_, err = f.svc.List(ctx, domain.ListBookingsRequest{Status: "LOST"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestCapacitySettingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpsertCapacitySetting(ctx, 7, domain.UpsertCapacitySettingRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidWeekday)

	_, err = f.svc.UpsertCapacitySetting(ctx, 1, domain.UpsertCapacitySettingRequest{EmergencyFeePercentage: decimal.NewFromInt(120)})
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	setting, err := f.svc.UpsertCapacitySetting(ctx, 1, domain.UpsertCapacitySettingRequest{DefaultSlots: 6, EmergencySlotsMax: 2, EmergencyFeePercentage: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.Equal(t, 6, setting.DefaultSlots)

	avail, err := f.svc.Availability(ctx, "2026-06-08")
	require.NoError(t, err)
	assert.Equal(t, 6, avail.Slots)
	assert.Equal(t, 2, avail.EmergencySlots)
	assert.False(t, avail.Overridden)
}
