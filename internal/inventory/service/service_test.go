package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/printflow/internal/catalog/repository"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	eventrepo "github.com/smallbiznis/printflow/internal/events/repository"
	eventservice "github.com/smallbiznis/printflow/internal/events/service"
	"github.com/smallbiznis/printflow/internal/inventory/domain"
	"github.com/smallbiznis/printflow/internal/inventory/repository"
	"github.com/smallbiznis/printflow/pkg/db/dbtest"
	"github.com/smallbiznis/printflow/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	events  eventdomain.Service
	conn    *gorm.DB
	service catalogdomain.PrintService
	tier    catalogdomain.Tier
}

func newFixture(t *testing.T, allowNegative bool) fixture {
	t.Helper()

	conn := dbtest.Open(t,
		&catalogdomain.PrintService{}, &catalogdomain.Tier{},
		&domain.InventoryItem{}, &domain.MaterialConsumptionRule{}, &domain.InventoryTransaction{},
		&eventdomain.LifecycleEvent{},
	)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))

	rules := config.DefaultLifecycleConfig()
	rules.Inventory.AllowNegativeStock = allowNegative
	holder := config.NewStaticLifecycleHolder(rules)

	events := eventservice.NewService(eventservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo: eventrepo.Provide(), Lifecycle: holder,
	})

	catalog := catalogrepo.Provide()
	printService := catalogdomain.PrintService{
		ID: node.Generate(), Name: "Banners", Slug: "banners",
		BasePrice: decimal.NewFromInt(100), DepositPercentage: decimal.NewFromInt(50),
		IsActive: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}
	require.NoError(t, catalog.InsertService(context.Background(), conn, &printService))
	tier := catalogdomain.Tier{
		ID: node.Generate(), ServiceID: printService.ID, Name: "Premium",
		TurnaroundDays: 3, RevisionsAllowed: 2, IsActive: true,
		CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}
	require.NoError(t, catalog.InsertTier(context.Background(), conn, &tier))

	svc := NewService(Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo: repository.Provide(), Catalog: catalog, Events: events, Lifecycle: holder,
	}).(*Service)
	return fixture{svc: svc, events: events, conn: conn, service: printService, tier: tier}
}

func (f fixture) consume(t *testing.T, in domain.ConsumptionInput) ([]domain.InventoryTransaction, error) {
	t.Helper()
	var applied []domain.InventoryTransaction
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = f.svc.ApplyConsumptionTx(context.Background(), tx, in)
		return err
	})
	return applied, err
}

func TestConsumptionDeductsStockOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{
		SKU: "vinyl-roll", Name: "Vinyl roll", Unit: "m",
		OpeningQty: decimal.NewFromInt(10), ReorderPoint: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	require.Equal(t, "VINYL-ROLL", item.SKU)

	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		ServiceID: f.service.ID.String(), ItemID: item.ID.String(), QtyPerUnit: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	in := domain.ConsumptionInput{OrderID: 9001, ServiceID: f.service.ID, Quantity: 1}
	applied, err := f.consume(t, in)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, domain.TransactionConsumption, applied[0].Type)
	assert.True(t, applied[0].QtyChange.Equal(decimal.NewFromInt(-2)))

	// Rework re-enters production; nothing is deducted twice.
	applied, err = f.consume(t, in)
	require.NoError(t, err)
	require.Empty(t, applied)

	got, err := f.svc.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.True(t, got.QtyOnHand.Equal(decimal.NewFromInt(8)), "qty_on_hand %s", got.QtyOnHand)

	txns, err := f.svc.ListTransactions(ctx, item.ID.String())
	require.NoError(t, err)
	require.Len(t, txns, 2)
}

func TestTierFilteredRuleOnlyMatchesItsTier(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{
		SKU: "gold-foil", Name: "Gold foil", Unit: "sheet", OpeningQty: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		ServiceID: f.service.ID.String(), TierID: f.tier.ID.String(),
		ItemID: item.ID.String(), QtyPerUnit: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	applied, err := f.consume(t, domain.ConsumptionInput{OrderID: 1, ServiceID: f.service.ID, Quantity: 5})
	require.NoError(t, err)
	require.Empty(t, applied)

	tierID := f.tier.ID
	applied, err = f.consume(t, domain.ConsumptionInput{OrderID: 2, ServiceID: f.service.ID, TierID: &tierID, Quantity: 5})
	require.NoError(t, err)
	require.Len(t, applied, 1)

	got, err := f.svc.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.True(t, got.QtyOnHand.Equal(decimal.NewFromInt(45)))
}

func TestNegativeStockRejectedWhenDisallowed(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{
		SKU: "ink-k", Name: "Black ink", Unit: "ml", OpeningQty: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		ServiceID: f.service.ID.String(), ItemID: item.ID.String(), QtyPerUnit: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	_, err = f.consume(t, domain.ConsumptionInput{OrderID: 5, ServiceID: f.service.ID, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.svc.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.True(t, got.QtyOnHand.Equal(decimal.NewFromInt(1)))
}

func TestReorderEventAndAlerts(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{
		SKU: "paper-a4", Name: "A4 paper", Unit: "ream",
		OpeningQty: decimal.NewFromInt(5), ReorderPoint: decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, domain.CreateItemRequest{
		SKU: "paper-a3", Name: "A3 paper", Unit: "ream",
		OpeningQty: decimal.NewFromInt(40), ReorderPoint: decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		ServiceID: f.service.ID.String(), ItemID: item.ID.String(), QtyPerUnit: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = f.consume(t, domain.ConsumptionInput{OrderID: 77, ServiceID: f.service.ID, Quantity: 2})
	require.NoError(t, err)

	alerts, err := f.svc.ReorderAlertItems(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "PAPER-A4", alerts[0].SKU)

	events, err := f.events.List(ctx, eventdomain.ListEventsRequest{EventType: string(eventdomain.EventInventoryReorderDue)})
	require.NoError(t, err)
	require.Len(t, events.Events, 1)

	below, err := f.svc.ListItems(ctx, domain.ListItemsRequest{BelowReorder: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, below.Total)
}

func TestReorderEventOncePerThresholdCrossing(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{
		SKU: "ink-cyan", Name: "Cyan ink", Unit: "cartridge",
		OpeningQty: decimal.NewFromInt(6), ReorderPoint: decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	reorderEvents := func() []eventdomain.LifecycleEvent {
		t.Helper()
		events, err := f.events.List(ctx, eventdomain.ListEventsRequest{EventType: string(eventdomain.EventInventoryReorderDue)})
		require.NoError(t, err)
		return events.Events
	}
	adjust := func(qty int64) {
		t.Helper()
		_, err := f.svc.RecordTransaction(ctx, item.ID.String(), domain.RecordTransactionRequest{
			Type: domain.TransactionAdjustment, Qty: decimal.NewFromInt(qty),
		})
		require.NoError(t, err)
	}

	adjust(-3)
	require.Len(t, reorderEvents(), 1)

	// Still below the point: no new alert.
	adjust(-1)
	adjust(-1)
	require.Len(t, reorderEvents(), 1)

	// Restocked above the point, then crossing again alerts again.
	adjust(10)
	adjust(-9)
	require.Len(t, reorderEvents(), 2)
}

func TestRecordTransactionValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{SKU: "glue", Name: "Glue", Unit: "tube"})
	require.NoError(t, err)

	_, err = f.svc.RecordTransaction(ctx, item.ID.String(), domain.RecordTransactionRequest{
		Type: domain.TransactionPurchase, Qty: decimal.NewFromInt(-1),
	})
	require.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.RecordTransaction(ctx, item.ID.String(), domain.RecordTransactionRequest{
		Type: domain.TransactionConsumption, Qty: decimal.NewFromInt(-1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.RecordTransaction(ctx, item.ID.String(), domain.RecordTransactionRequest{
		Type: domain.TransactionPurchase, Qty: decimal.NewFromInt(12),
	})
	require.NoError(t, err)
	_, err = f.svc.RecordTransaction(ctx, item.ID.String(), domain.RecordTransactionRequest{
		Type: domain.TransactionAdjustment, Qty: decimal.NewFromInt(-2), Note: "damaged",
	})
	require.NoError(t, err)

	got, err := f.svc.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.True(t, got.QtyOnHand.Equal(decimal.NewFromInt(10)))
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{SKU: "tape", Name: "Tape", Unit: "roll"})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, domain.CreateItemRequest{SKU: "TAPE", Name: "Tape", Unit: "roll"})
	require.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestCreateRuleRejectsForeignTier(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, domain.CreateItemRequest{SKU: "card", Name: "Card", Unit: "sheet"})
	require.NoError(t, err)

	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		ServiceID: "12345", ItemID: item.ID.String(), QtyPerUnit: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, catalogdomain.ErrServiceNotFound)

	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		ServiceID: f.service.ID.String(), ItemID: item.ID.String(), QtyPerUnit: decimal.Zero,
	})
	require.ErrorIs(t, err, domain.ErrInvalidRule)
}
