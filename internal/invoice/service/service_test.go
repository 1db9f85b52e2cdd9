package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
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
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/printflow/internal/inventory/repository"
	inventoryservice "github.com/smallbiznis/printflow/internal/inventory/service"
	invoicedomain "github.com/smallbiznis/printflow/internal/invoice/domain"
	"github.com/smallbiznis/printflow/internal/invoice/repository"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	orderrepo "github.com/smallbiznis/printflow/internal/order/repository"
	orderservice "github.com/smallbiznis/printflow/internal/order/service"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/printflow/internal/payment/repository"
	paymentservice "github.com/smallbiznis/printflow/internal/payment/service"
	"github.com/smallbiznis/printflow/internal/providers/pdf"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	slarepo "github.com/smallbiznis/printflow/internal/sla/repository"
	slaservice "github.com/smallbiznis/printflow/internal/sla/service"
	"github.com/smallbiznis/printflow/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      *Service
	conn     *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	orders   orderdomain.Service
	payments paymentdomain.Service
	events   eventdomain.Service
	service  catalogdomain.PrintService
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := dbtest.Open(t,
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{}, &paymentdomain.PaymentRefund{},
		&orderdomain.Order{}, &orderdomain.OrderStatusHistory{},
		&catalogdomain.PrintService{}, &catalogdomain.Tier{},
		&inventorydomain.InventoryItem{}, &inventorydomain.MaterialConsumptionRule{}, &inventorydomain.InventoryTransaction{},
		&sladomain.SlaTimer{}, &sladomain.SlaBreach{},
		&eventdomain.LifecycleEvent{},
	)

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig())
	log := zap.NewNop()
	repo := repository.Provide()
	catalog := catalogrepo.Provide()

	events := eventservice.NewService(eventservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: eventrepo.Provide(), Lifecycle: holder,
	})
	sla := slaservice.NewService(slaservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: slarepo.Provide(), Events: events,
	})
	inventory := inventoryservice.NewService(inventoryservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: inventoryrepo.Provide(),
		Catalog: catalog, Events: events, Lifecycle: holder,
	})
	orders := orderservice.NewService(orderservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: orderrepo.Provide(),
		Inventory: inventory, SLA: sla, Events: events, Lifecycle: holder,
		Listeners: []orderdomain.BalanceListener{NewBalanceSync(repo, clk)},
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: paymentrepo.Provide(),
		Orders: orders, Events: events,
	})

	printService := catalogdomain.PrintService{
		ID: node.Generate(), Name: "Flyers", Slug: "flyers",
		BasePrice: decimal.NewFromInt(80), DepositPercentage: decimal.NewFromInt(50),
		IsActive: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}
	require.NoError(t, catalog.InsertService(context.Background(), conn, &printService))

	svc := NewService(ServiceParam{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: repo,
		Orders: orders, Catalog: catalog, Events: events, Renderer: pdf.New("Corner Print Co."),
	}).(*Service)

	return fixture{
		svc: svc, conn: conn, node: node, clk: clk,
		orders: orders, payments: payments, events: events, service: printService,
	}
}

// createOrder opens a 200.00 order with no tax and its 100.00 deposit paid.
func (f fixture) createOrder(t *testing.T) orderdomain.Order {
	t.Helper()
	ctx := context.Background()
	var id snowflake.ID
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		order, err := f.orders.CreateFromQuoteTx(ctx, tx, orderdomain.CreateFromQuoteInput{
			QuoteID:           f.node.Generate(),
			CustomerID:        "cust-3",
			CustomerName:      "Rui",
			CustomerEmail:     "rui@example.com",
			ServiceID:         f.service.ID,
			Quantity:          250,
			Subtotal:          decimal.NewFromInt(200),
			TaxRate:           decimal.Zero,
			DepositPercentage: decimal.NewFromInt(50),
			TurnaroundDays:    4,
		})
		if err != nil {
			return err
		}
		id = order.ID
		_, err = f.payments.RecordDepositTx(ctx, tx, order.ID, order.DepositAmount, paymentdomain.MethodCash)
		return err
	})
	require.NoError(t, err)

	order, err := f.orders.Get(ctx, id.String())
	require.NoError(t, err)
	return order
}

func TestIssueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createOrder(t)

	first, err := f.svc.Issue(ctx, order.ID.String())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.InvoiceNumber, "INV-"), first.InvoiceNumber)
	assert.Len(t, first.InvoiceNumber, len("INV-")+26)
	assert.Equal(t, invoicedomain.InvoiceStatusIssued, first.Status)
	assert.Equal(t, "Flyers", first.Description)
	assert.Equal(t, "200.00", first.TotalAmount.StringFixed(2))
	assert.Equal(t, "100.00", first.AmountPaid.StringFixed(2))
	assert.Equal(t, "100.00", first.AmountDue.StringFixed(2))

	second, err := f.svc.Issue(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)

	resp, err := f.events.List(ctx, eventdomain.ListEventsRequest{EventType: string(eventdomain.EventInvoiceIssued)})
	require.NoError(t, err)
	assert.Len(t, resp.Events, 1)
}

func TestInvoiceFollowsBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createOrder(t)

	_, err := f.svc.Issue(ctx, order.ID.String())
	require.NoError(t, err)

	pending, err := f.payments.RecordPayment(ctx, order.ID.String(), paymentdomain.RecordPaymentRequest{
		Amount: decimal.NewFromInt(100), Method: paymentdomain.MethodCard,
	})
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, pending.ID.String())
	require.NoError(t, err)

	paid, err := f.svc.GetByOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "0.00", paid.AmountDue.StringFixed(2))
	require.NotNil(t, paid.PaidAt)

	_, err = f.payments.RefundPayment(ctx, pending.ID.String(), paymentdomain.RefundPaymentRequest{
		Amount: decimal.NewFromInt(40), Reason: "misprint on 50 flyers",
	})
	require.NoError(t, err)

	reopened, err := f.svc.GetByOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusIssued, reopened.Status)
	assert.Equal(t, "40.00", reopened.AmountDue.StringFixed(2))
	assert.Equal(t, "160.00", reopened.AmountPaid.StringFixed(2))
	assert.Nil(t, reopened.PaidAt)
}

func TestCancelledOrderIsNotInvoiced(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	ctx := obscontext.WithActor(context.Background(), obscontext.RoleStaff, "staff-7")

	_, err := f.orders.AdvanceStatus(ctx, order.ID.String(), orderdomain.AdvanceStatusRequest{Status: orderdomain.StatusCancelled})
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, order.ID.String())
	require.True(t, errors.Is(err, invoicedomain.ErrOrderCancelled), "got %v", err)
}

func TestGetByOrderWithoutInvoice(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	_, err := f.svc.GetByOrder(context.Background(), order.ID.String())
	require.True(t, errors.Is(err, invoicedomain.ErrInvoiceNotFound))

	_, err = f.svc.GetByOrder(context.Background(), "x")
	require.True(t, errors.Is(err, orderdomain.ErrInvalidID))
}

func TestRenderPDF(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createOrder(t)

	invoice, err := f.svc.Issue(ctx, order.ID.String())
	require.NoError(t, err)

	doc, name, err := f.svc.RenderPDF(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoice.InvoiceNumber+".pdf", name)
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("expected pdf bytes")
	}
}

func TestPDFDataListsFees(t *testing.T) {
	invoice := invoicedomain.Invoice{
		InvoiceNumber: "INV-X",
		Description:   "Posters, Express",
		Quantity:      10,
		Subtotal:      decimal.NewFromInt(100),
		RushFee:       decimal.NewFromInt(20),
		EmergencyFee:  decimal.NewFromInt(15),
		TaxAmount:     decimal.NewFromInt(10),
		TotalAmount:   decimal.NewFromInt(145),
		AmountPaid:    decimal.NewFromInt(45),
		AmountDue:     decimal.NewFromInt(100),
		Status:        invoicedomain.InvoiceStatusIssued,
	}
	data := PDFData(invoice, orderdomain.Order{ID: 7, CustomerName: "Bo"})

	require.Len(t, data.Lines, 3)
	assert.Equal(t, "Rush fee", data.Lines[1].Description)
	assert.Equal(t, "15.00", data.Lines[2].Amount)
	assert.Equal(t, "100.00", data.AmountDue)
	assert.Equal(t, "Bo", data.BillToName)
}
