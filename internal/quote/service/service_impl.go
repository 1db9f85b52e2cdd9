package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/printflow/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	"github.com/smallbiznis/printflow/internal/quote/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	hundred = decimal.NewFromInt(100)
	// estimateSpread widens the upper estimate to leave room for review.
	estimateSpread = decimal.RequireFromString("1.25")
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Catalog     catalogdomain.Service
	CatalogRepo catalogdomain.Repository
	Bookings    bookingdomain.Repository
	Orders      orderdomain.Service
	Payments    paymentdomain.Service
	Events      eventdomain.Publisher
	Lifecycle   *config.LifecycleConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	catalog     catalogdomain.Service
	catalogRepo catalogdomain.Repository
	bookings    bookingdomain.Repository
	orders      orderdomain.Service
	payments    paymentdomain.Service
	events      eventdomain.Publisher
	lifecycle   *config.LifecycleConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("quote.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		catalog:     p.Catalog,
		catalogRepo: p.CatalogRepo,
		bookings:    p.Bookings,
		orders:      p.Orders,
		payments:    p.Payments,
		events:      p.Events,
		lifecycle:   p.Lifecycle,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitQuoteRequest) (domain.Quote, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if role, actorID := obscontext.ActorFromContext(ctx); role == obscontext.RoleCustomer {
		customerID = actorID
	}
	if customerID == "" {
		return domain.Quote{}, domain.ErrInvalidCustomer
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return domain.Quote{}, domain.ErrInvalidQuantity
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		return domain.Quote{}, domain.ErrInvalidServiceID
	}

	evaluation, err := s.catalog.EvaluateAnswers(ctx, req.ServiceID, req.Answers)
	if err != nil {
		return domain.Quote{}, err
	}
	if !evaluation.Service.IsActive {
		return domain.Quote{}, domain.ErrServiceInactive
	}

	var tierID *snowflake.ID
	if req.TierID != nil && strings.TrimSpace(*req.TierID) != "" {
		tier, err := s.loadTier(ctx, *req.TierID, evaluation.Service.ID)
		if err != nil {
			return domain.Quote{}, err
		}
		tierID = &tier.ID
	}

	now := s.clock.Now()
	estimateMin := evaluation.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	quote := domain.Quote{
		ID:            s.genID.Generate(),
		CustomerID:    customerID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		ServiceID:     evaluation.Service.ID,
		TierID:        tierID,
		Quantity:      quantity,
		Status:        domain.StatusRequested,
		EstimateMin:   estimateMin,
		EstimateMax:   estimateMin.Mul(estimateSpread).Round(2),
		Notes:         strings.TrimSpace(req.Notes),
		ExpiresAt:     now.Add(s.lifecycle.Get().Quote.Expiry),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	answers := make([]domain.QuoteAnswer, 0, len(evaluation.Answers))
	for _, answer := range evaluation.Answers {
		answers = append(answers, domain.QuoteAnswer{
			ID:        s.genID.Generate(),
			QuoteID:   quote.ID,
			Key:       answer.Key,
			Label:     answer.Label,
			Value:     answer.Value,
			CreatedAt: now,
		})
	}

	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &quote); err != nil {
			return err
		}
		return s.repo.InsertAnswers(ctx, tx, answers)
	})
	if err != nil {
		return domain.Quote{}, err
	}

	quote.Answers = answers
	s.log.Info("quote submitted",
		zap.String("quote_id", quote.ID.String()),
		zap.String("service_id", quote.ServiceID.String()),
		zap.String("estimate_min", quote.EstimateMin.StringFixed(2)),
	)
	return quote, nil
}

func (s *Service) StartReview(ctx context.Context, id string) (domain.Quote, error) {
	return s.transition(ctx, id, domain.StatusUnderReview, nil)
}

func (s *Service) SendForApproval(ctx context.Context, id string) (domain.Quote, error) {
	return s.transition(ctx, id, domain.StatusPendingApproval, nil)
}

func (s *Service) Reject(ctx context.Context, id string, req domain.RejectQuoteRequest) (domain.Quote, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.Quote{}, domain.ErrInvalidReason
	}
	return s.transition(ctx, id, domain.StatusRejected, func(quote *domain.Quote, now time.Time) {
		quote.RejectionReason = reason
		quote.RejectedAt = &now
	})
}

func (s *Service) Finalize(ctx context.Context, id string, req domain.FinalizeQuoteRequest) (orderdomain.Order, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return orderdomain.Order{}, err
	}
	if req.FinalSubtotal == nil {
		return orderdomain.Order{}, domain.ErrSubtotalRequired
	}
	if req.TaxRate == nil {
		return orderdomain.Order{}, domain.ErrTaxRateRequired
	}
	if req.FinalSubtotal.IsNegative() {
		return orderdomain.Order{}, domain.ErrInvalidSubtotal
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return orderdomain.Order{}, domain.ErrInvalidTaxRate
	}
	method := paymentdomain.Method(strings.ToUpper(strings.TrimSpace(string(req.DepositMethod))))
	if method == "" {
		method = paymentdomain.MethodCash
	}
	if !method.Valid() {
		return orderdomain.Order{}, paymentdomain.ErrInvalidMethod
	}

	subtotal := req.FinalSubtotal.Round(2)
	var (
		quote   *domain.Quote
		orderID snowflake.ID
	)
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		now := s.clock.Now()
		var err error
		quote, err = s.lockOpen(ctx, tx, quoteID, domain.StatusFinalized, now)
		if err != nil {
			return err
		}
		from := quote.Status

		service, err := s.catalogRepo.FindServiceByID(ctx, tx, quote.ServiceID)
		if err != nil {
			return err
		}
		if service == nil {
			return catalogdomain.ErrServiceNotFound
		}
		var tier *catalogdomain.Tier
		if quote.TierID != nil {
			tier, err = s.catalogRepo.FindTierByID(ctx, tx, *quote.TierID)
			if err != nil {
				return err
			}
			if tier == nil {
				return catalogdomain.ErrTierNotFound
			}
		}

		emergencyFee, err := s.applyEmergencyFees(ctx, tx, quote.ID, subtotal, now)
		if err != nil {
			return err
		}
		rushFee := decimal.Zero
		if req.Rush && tier != nil {
			rushFee = subtotal.Mul(tier.RushFeePercentage).Div(hundred).Round(2)
		}

		taxRate := *req.TaxRate
		taxAmount := subtotal.Mul(taxRate).Round(2)
		total := subtotal.Add(taxAmount).Add(rushFee).Add(emergencyFee)
		quote.Status = domain.StatusFinalized
		quote.FinalSubtotal = &subtotal
		quote.TaxRate = &taxRate
		quote.TaxAmount = &taxAmount
		quote.TotalAmount = &total
		quote.AdminNotes = strings.TrimSpace(req.AdminNotes)
		quote.FinalizedAt = &now
		quote.UpdatedAt = now
		ok, err := s.repo.UpdateFrom(ctx, tx, quote, from)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrConcurrencyConflict.Withf("quote %s changed during finalize", quote.ID)
		}

		input := orderdomain.CreateFromQuoteInput{
			QuoteID:           quote.ID,
			CustomerID:        quote.CustomerID,
			CustomerName:      quote.CustomerName,
			CustomerEmail:     quote.CustomerEmail,
			CustomerPhone:     quote.CustomerPhone,
			ServiceID:         quote.ServiceID,
			TierID:            quote.TierID,
			Quantity:          quote.Quantity,
			Subtotal:          subtotal,
			TaxRate:           taxRate,
			RushFee:           rushFee,
			EmergencyFee:      emergencyFee,
			DepositPercentage: service.DepositPercentage,
			Notes:             quote.Notes,
		}
		if tier != nil {
			input.RevisionsAllowed = tier.RevisionsAllowed
			input.TurnaroundDays = tier.TurnaroundDays
			if tier.DepositPercentage.IsPositive() {
				input.DepositPercentage = tier.DepositPercentage
			}
		}
		order, err := s.orders.CreateFromQuoteTx(ctx, tx, input)
		if err != nil {
			return err
		}
		orderID = order.ID
		if err := s.repo.SetOrderID(ctx, tx, quote.ID, order.ID); err != nil {
			return err
		}
		quote.OrderID = &order.ID

		if _, err := s.payments.RecordDepositTx(ctx, tx, order.ID, order.DepositAmount, method); err != nil {
			return err
		}

		return s.events.PublishTx(ctx, tx, eventdomain.Event{
			Type:          eventdomain.EventQuoteFinalized,
			AggregateType: eventdomain.AggregateQuote,
			AggregateID:   quote.ID,
			DedupeKey:     fmt.Sprintf("%s:%s", eventdomain.EventQuoteFinalized, quote.ID),
			Payload: eventdomain.QuoteFinalizedPayload{
				QuoteID:       quote.ID.String(),
				OrderID:       order.ID.String(),
				TotalAmount:   order.TotalAmount.StringFixed(2),
				DepositAmount: order.DepositAmount.StringFixed(2),
				Recipient:     recipient(*quote),
			},
		})
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.log.Info("quote finalized",
		zap.String("quote_id", quote.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("total_amount", quote.TotalAmount.StringFixed(2)),
	)
	return s.orders.Get(ctx, orderID.String())
}

func (s *Service) Get(ctx context.Context, id string) (domain.Quote, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}
	quote, err := s.repo.FindByID(ctx, s.db, quoteID)
	if err != nil {
		return domain.Quote{}, err
	}
	if quote == nil {
		return domain.Quote{}, domain.ErrQuoteNotFound
	}
	if role, actorID := obscontext.ActorFromContext(ctx); role == obscontext.RoleCustomer && quote.CustomerID != actorID {
		return domain.Quote{}, domain.ErrQuoteNotFound
	}

	answers, err := s.repo.ListAnswers(ctx, s.db, quote.ID)
	if err != nil {
		return domain.Quote{}, err
	}
	quote.Answers = answers
	return *quote, nil
}

func (s *Service) List(ctx context.Context, req domain.ListQuotesRequest) (domain.ListQuotesResponse, error) {
	page, err := req.Params.Normalize(domain.QuoteSortable, "created_at")
	if err != nil {
		return domain.ListQuotesResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}

	filter := domain.ListQuotesFilter{CustomerID: strings.TrimSpace(req.CustomerID)}
	if role, actorID := obscontext.ActorFromContext(ctx); role == obscontext.RoleCustomer {
		filter.CustomerID = actorID
	}
	if value := strings.ToUpper(strings.TrimSpace(req.Status)); value != "" {
		status := domain.Status(value)
		if !status.Valid() {
			return domain.ListQuotesResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	quotes, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListQuotesResponse{}, err
	}
	return domain.ListQuotesResponse{
		PageInfo: page.PageInfo(total),
		Quotes:   quotes,
	}, nil
}

func (s *Service) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	stale, err := s.repo.ListStale(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, quote := range stale {
		quote := quote
		var ok bool
		err := pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
			var err error
			ok, err = s.repo.Expire(ctx, tx, quote.ID, now)
			if err != nil || !ok {
				return err
			}
			return s.events.PublishTx(ctx, tx, eventdomain.Event{
				Type:          eventdomain.EventQuoteExpired,
				AggregateType: eventdomain.AggregateQuote,
				AggregateID:   quote.ID,
				DedupeKey:     fmt.Sprintf("%s:%s", eventdomain.EventQuoteExpired, quote.ID),
				Payload: eventdomain.QuoteExpiredPayload{
					QuoteID:   quote.ID.String(),
					Recipient: recipient(quote),
				},
			})
		})
		if err != nil {
			s.log.Warn("failed to expire quote", zap.String("quote_id", quote.ID.String()), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		s.log.Info("expired stale quotes", zap.Int("count", expired))
	}
	return expired, nil
}

// transition moves an open quote to next and applies mutate before writing.
func (s *Service) transition(ctx context.Context, id string, next domain.Status, mutate func(*domain.Quote, time.Time)) (domain.Quote, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}

	var quote *domain.Quote
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		now := s.clock.Now()
		var err error
		quote, err = s.lockOpen(ctx, tx, quoteID, next, now)
		if err != nil {
			return err
		}
		from := quote.Status
		quote.Status = next
		quote.UpdatedAt = now
		if mutate != nil {
			mutate(quote, now)
		}
		ok, err := s.repo.UpdateFrom(ctx, tx, quote, from)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrConcurrencyConflict.Withf("quote %s changed concurrently", quote.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.log.Info("quote status changed",
		zap.String("quote_id", quote.ID.String()),
		zap.String("status", string(quote.Status)),
	)
	return *quote, nil
}

// lockOpen loads the quote for update and checks it may move to next.
func (s *Service) lockOpen(ctx context.Context, tx *gorm.DB, id snowflake.ID, next domain.Status, now time.Time) (*domain.Quote, error) {
	quote, err := s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), id)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, domain.ErrQuoteNotFound
	}
	if !quote.Status.Open() {
		return nil, domain.ErrQuoteClosed.Withf("quote is %s", strings.ToLower(string(quote.Status)))
	}
	if !domain.CanTransition(quote.Status, next) {
		return nil, errs.NewIllegalTransition("quote", string(quote.Status), string(next))
	}
	if quote.PastExpiry(now) {
		return nil, domain.ErrQuoteExpired
	}
	return quote, nil
}

// applyEmergencyFees reprices the quote's active emergency bookings on the
// final subtotal and returns their sum.
func (s *Service) applyEmergencyFees(ctx context.Context, tx *gorm.DB, quoteID snowflake.ID, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	bookings, err := s.bookings.ListActiveEmergency(ctx, tx, quoteID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i := range bookings {
		booking := &bookings[i]
		if booking.FeeApplied {
			continue
		}
		booking.EmergencyFeeAmount = subtotal.Mul(booking.EmergencyFeePercentage).Div(hundred).Round(2)
		booking.FeeApplied = true
		booking.UpdatedAt = now
		if err := s.bookings.Update(ctx, tx, booking); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(booking.EmergencyFeeAmount)
	}
	return total, nil
}

func (s *Service) loadTier(ctx context.Context, id string, serviceID snowflake.ID) (*catalogdomain.Tier, error) {
	tierID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || tierID == 0 {
		return nil, domain.ErrInvalidTierID
	}
	tier, err := s.catalogRepo.FindTierByID(ctx, s.db, tierID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, catalogdomain.ErrTierNotFound
	}
	if tier.ServiceID != serviceID {
		return nil, domain.ErrTierMismatch
	}
	if !tier.IsActive {
		return nil, domain.ErrTierInactive
	}
	return tier, nil
}

func recipient(quote domain.Quote) eventdomain.Recipient {
	return eventdomain.Recipient{
		CustomerID: quote.CustomerID,
		Name:       quote.CustomerName,
		Email:      quote.CustomerEmail,
		Phone:      quote.CustomerPhone,
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
