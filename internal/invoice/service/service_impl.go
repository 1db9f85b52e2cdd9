package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	"github.com/smallbiznis/printflow/internal/clock"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	invoicedomain "github.com/smallbiznis/printflow/internal/invoice/domain"
	"github.com/smallbiznis/printflow/internal/observability/logger"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	"github.com/smallbiznis/printflow/internal/providers/pdf"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Orders   orderdomain.Service
	Catalog  catalogdomain.Repository
	Events   eventdomain.Publisher
	Renderer pdf.Provider `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     invoicedomain.Repository
	orders   orderdomain.Service
	catalog  catalogdomain.Repository
	events   eventdomain.Publisher
	renderer pdf.Provider
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		orders:   p.Orders,
		catalog:  p.Catalog,
		events:   p.Events,
		renderer: p.Renderer,
	}
}

func (s *Service) Issue(ctx context.Context, orderID string) (invoicedomain.Invoice, error) {
	id, err := parseID(orderID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var (
		invoice *invoicedomain.Invoice
		created bool
	)
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.orders.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status == orderdomain.StatusCancelled {
			return invoicedomain.ErrOrderCancelled
		}

		now := s.clock.Now()
		invoice, err = s.repo.FindByOrderID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if invoice != nil {
			ApplyOrder(invoice, *order, now)
			return s.repo.Update(ctx, tx, invoice)
		}

		description, err := s.describe(ctx, tx, *order)
		if err != nil {
			return err
		}
		invoice = &invoicedomain.Invoice{
			ID:            s.genID.Generate(),
			OrderID:       order.ID,
			InvoiceNumber: "INV-" + ulid.Make().String(),
			Description:   description,
			Quantity:      order.Quantity,
			IssuedAt:      now,
			CreatedAt:     now,
		}
		ApplyOrder(invoice, *order, now)
		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				// another request issued it first; retry picks it up
				return errs.ErrConcurrencyConflict.Wrap(err)
			}
			return err
		}
		created = true

		return s.events.PublishTx(ctx, tx, eventdomain.Event{
			Type:          eventdomain.EventInvoiceIssued,
			AggregateType: eventdomain.AggregateOrder,
			AggregateID:   order.ID,
			DedupeKey:     fmt.Sprintf("%s:%s", eventdomain.EventInvoiceIssued, order.ID),
			Payload: eventdomain.InvoicePayload{
				OrderID:       order.ID.String(),
				InvoiceID:     invoice.ID.String(),
				InvoiceNumber: invoice.InvoiceNumber,
				AmountDue:     invoice.AmountDue.StringFixed(2),
				Recipient: eventdomain.Recipient{
					CustomerID: order.CustomerID,
					Name:       order.CustomerName,
					Email:      order.CustomerEmail,
					Phone:      order.CustomerPhone,
				},
			},
		})
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if created {
		logger.WithOrder(s.log, invoice.OrderID.String()).Info("invoice issued",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("amount_due", invoice.AmountDue.StringFixed(2)),
		)
	}
	return *invoice, nil
}

func (s *Service) GetByOrder(ctx context.Context, orderID string) (invoicedomain.Invoice, error) {
	id, err := parseID(orderID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice, err := s.repo.FindByOrderID(ctx, s.db, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	return *invoice, nil
}

func (s *Service) RenderPDF(ctx context.Context, orderID string) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", invoicedomain.ErrRendererMissing
	}
	invoice, err := s.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	doc, err := s.renderer.RenderInvoice(ctx, PDFData(invoice, order))
	if err != nil {
		return nil, "", invoicedomain.ErrRendererMissing.Wrap(err)
	}
	return doc, invoice.InvoiceNumber + ".pdf", nil
}

func (s *Service) describe(ctx context.Context, tx *gorm.DB, order orderdomain.Order) (string, error) {
	svc, err := s.catalog.FindServiceByID(ctx, tx, order.ServiceID)
	if err != nil {
		return "", err
	}
	if svc == nil {
		return "Print order", nil
	}
	description := svc.Name
	if order.TierID != nil {
		tier, err := s.catalog.FindTierByID(ctx, tx, *order.TierID)
		if err != nil {
			return "", err
		}
		if tier != nil {
			description = fmt.Sprintf("%s, %s", svc.Name, tier.Name)
		}
	}
	return description, nil
}

// ApplyOrder copies the order's current financials onto the invoice.
func ApplyOrder(invoice *invoicedomain.Invoice, order orderdomain.Order, now time.Time) {
	invoice.Subtotal = order.Subtotal
	invoice.RushFee = order.RushFee
	invoice.EmergencyFee = order.EmergencyFee
	invoice.TaxAmount = order.TaxAmount
	invoice.TotalAmount = order.TotalAmount
	invoice.AmountDue = order.BalanceDue
	invoice.AmountPaid = order.TotalAmount.Sub(order.BalanceDue)
	invoice.UpdatedAt = now

	if order.BalanceDue.LessThanOrEqual(decimal.Zero) {
		if invoice.Status != invoicedomain.InvoiceStatusPaid {
			invoice.PaidAt = &now
		}
		invoice.Status = invoicedomain.InvoiceStatusPaid
		return
	}
	invoice.Status = invoicedomain.InvoiceStatusIssued
	invoice.PaidAt = nil
}

func PDFData(invoice invoicedomain.Invoice, order orderdomain.Order) pdf.InvoiceData {
	lines := []pdf.InvoiceLine{{
		Description: invoice.Description,
		Qty:         invoice.Quantity,
		Amount:      invoice.Subtotal.StringFixed(2),
	}}
	if invoice.RushFee.IsPositive() {
		lines = append(lines, pdf.InvoiceLine{Description: "Rush fee", Amount: invoice.RushFee.StringFixed(2)})
	}
	if invoice.EmergencyFee.IsPositive() {
		lines = append(lines, pdf.InvoiceLine{Description: "Emergency booking fee", Amount: invoice.EmergencyFee.StringFixed(2)})
	}

	return pdf.InvoiceData{
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     invoice.IssuedAt.Format("2006-01-02"),
		Status:        string(invoice.Status),
		OrderRef:      order.ID.String(),
		BillToName:    order.CustomerName,
		BillToEmail:   order.CustomerEmail,
		BillToPhone:   order.CustomerPhone,
		Lines:         lines,
		Subtotal:      invoice.Subtotal.StringFixed(2),
		Tax:           invoice.TaxAmount.StringFixed(2),
		Total:         invoice.TotalAmount.StringFixed(2),
		AmountPaid:    invoice.AmountPaid.StringFixed(2),
		AmountDue:     invoice.AmountDue.StringFixed(2),
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, orderdomain.ErrInvalidID
	}
	return id, nil
}
