package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/booking/domain"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	quotedomain "github.com/smallbiznis/printflow/internal/quote/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Quotes    quotedomain.Repository
	Orders    orderdomain.Service
	OrderRepo orderdomain.Repository
	Events    eventdomain.Publisher
	Lifecycle *config.LifecycleConfigHolder
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	quotes    quotedomain.Repository
	orders    orderdomain.Service
	orderRepo orderdomain.Repository
	events    eventdomain.Publisher
	lifecycle *config.LifecycleConfigHolder
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("booking.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		quotes:    p.Quotes,
		orders:    p.Orders,
		orderRepo: p.OrderRepo,
		events:    p.Events,
		lifecycle: p.Lifecycle,
		metrics:   p.Metrics,
	}
}

// capacity is the resolved allowance of one date.
type capacity struct {
	slots          int
	emergencySlots int
	feePercentage  decimal.Decimal
	overridden     bool
}

func (s *Service) Create(ctx context.Context, req domain.CreateBookingRequest) (domain.Booking, error) {
	quoteID, err := snowflake.ParseString(strings.TrimSpace(req.QuoteID))
	if err != nil || quoteID == 0 {
		return domain.Booking{}, domain.ErrInvalidQuoteID
	}
	date, err := s.parseFutureDate(req.Date)
	if err != nil {
		return domain.Booking{}, err
	}
	slot, err := parseTimeSlot(req.TimeSlot)
	if err != nil {
		return domain.Booking{}, err
	}

	var booking domain.Booking
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		// The quote row lock orders this against a concurrent finalize, so
		// either finalize sees the booking or the booking sees the order.
		quote, err := s.quotes.FindByID(ctx, pkgdb.ForUpdate(tx), quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrQuoteNotFound
		}
		now := s.clock.Now()
		if quote.Status == quotedomain.StatusRejected || quote.Status == quotedomain.StatusExpired || quote.PastExpiry(now) {
			return domain.ErrQuoteNotBookable
		}
		order, err := s.orderRepo.FindByQuoteID(ctx, tx, quote.ID)
		if err != nil {
			return err
		}
		if order != nil && order.Status.Terminal() {
			return domain.ErrOrderNotBookable
		}

		if err := s.repo.LockDay(ctx, tx, date); err != nil {
			return err
		}
		capa, err := s.checkDate(ctx, tx, date, req.IsEmergency, 0)
		if err != nil {
			return err
		}

		booking = domain.Booking{
			ID:                     s.genID.Generate(),
			QuoteID:                quote.ID,
			Date:                   date,
			TimeSlot:               slot,
			IsEmergency:            req.IsEmergency,
			EmergencyFeePercentage: decimal.Zero,
			EmergencyFeeAmount:     decimal.Zero,
			Status:                 domain.StatusPending,
			Notes:                  strings.TrimSpace(req.Notes),
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if req.IsEmergency {
			booking.EmergencyFeePercentage = capa.feePercentage
			booking.EmergencyFeeAmount = EmergencyFee(bookingBase(*quote, order), capa.feePercentage)
			if order != nil {
				if booking.EmergencyFeeAmount.IsPositive() {
					if _, err := s.orders.AddFeeTx(ctx, tx, order.ID, orderdomain.FeeEmergency, booking.EmergencyFeeAmount); err != nil {
						return err
					}
				}
				booking.FeeApplied = true
			}
		}
		if err := s.repo.Insert(ctx, tx, &booking); err != nil {
			return err
		}
		return s.publish(ctx, tx, eventdomain.EventBookingCreated, booking)
	})
	if err != nil {
		s.metrics.RecordBooking(ctx, slotType(req.IsEmergency), "rejected")
		return domain.Booking{}, err
	}

	s.metrics.RecordBooking(ctx, slotType(booking.IsEmergency), string(booking.Status))
	s.log.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("quote_id", booking.QuoteID.String()),
		zap.String("date", booking.Date),
		zap.Bool("is_emergency", booking.IsEmergency),
	)
	return booking, nil
}

func (s *Service) Reschedule(ctx context.Context, id string, req domain.RescheduleBookingRequest) (domain.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return domain.Booking{}, err
	}
	date, err := s.parseFutureDate(req.Date)
	if err != nil {
		return domain.Booking{}, err
	}
	slot, err := parseTimeSlot(req.TimeSlot)
	if err != nil {
		return domain.Booking{}, err
	}

	return s.mutate(ctx, bookingID, func(tx *gorm.DB, booking *domain.Booking, now time.Time) error {
		if !booking.Status.Active() {
			return domain.ErrBookingNotActive
		}
		if err := s.repo.LockDay(ctx, tx, date); err != nil {
			return err
		}
		if _, err := s.checkDate(ctx, tx, date, booking.IsEmergency, booking.ID); err != nil {
			return err
		}
		booking.Date = date
		booking.TimeSlot = slot
		booking.RescheduleCount++
		booking.Status = domain.StatusRescheduled
		booking.ConfirmedAt = nil
		return nil
	})
}

func (s *Service) Cancel(ctx context.Context, id string, req domain.CancelBookingRequest) (domain.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return domain.Booking{}, err
	}

	rules := s.lifecycle.Get().Booking
	return s.mutate(ctx, bookingID, func(tx *gorm.DB, booking *domain.Booking, now time.Time) error {
		if !booking.Status.Active() {
			return domain.ErrBookingNotActive
		}
		startsAt, err := booking.StartsAt(rules.Location())
		if err != nil {
			return err
		}
		if startsAt.Sub(now) <= rules.CancellationLeadTime {
			return domain.ErrCancellationClosed.Withf("bookings must be cancelled at least %s before they start", rules.CancellationLeadTime)
		}
		booking.Status = domain.StatusCancelled
		booking.CancelReason = strings.TrimSpace(req.Reason)
		booking.CancelledAt = &now
		return s.publish(ctx, tx, eventdomain.EventBookingCancelled, *booking)
	})
}

func (s *Service) Confirm(ctx context.Context, id string) (domain.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return domain.Booking{}, err
	}
	return s.mutate(ctx, bookingID, func(tx *gorm.DB, booking *domain.Booking, now time.Time) error {
		if booking.Status != domain.StatusPending && booking.Status != domain.StatusRescheduled {
			return errs.NewIllegalTransition("booking", string(booking.Status), string(domain.StatusConfirmed))
		}
		booking.Status = domain.StatusConfirmed
		booking.ConfirmedAt = &now
		return nil
	})
}

func (s *Service) Complete(ctx context.Context, id string) (domain.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return domain.Booking{}, err
	}
	return s.mutate(ctx, bookingID, func(tx *gorm.DB, booking *domain.Booking, now time.Time) error {
		if booking.Status != domain.StatusConfirmed {
			return errs.NewIllegalTransition("booking", string(booking.Status), string(domain.StatusCompleted))
		}
		booking.Status = domain.StatusCompleted
		booking.CompletedAt = &now
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id string) (domain.Booking, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return domain.Booking{}, err
	}
	booking, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking == nil {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return *booking, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBookingsRequest) (domain.ListBookingsResponse, error) {
	page, err := req.Params.Normalize(domain.BookingSortable, "date")
	if err != nil {
		return domain.ListBookingsResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}

	filter := domain.ListBookingsFilter{}
	if value := strings.ToUpper(strings.TrimSpace(req.Status)); value != "" {
		status := domain.Status(value)
		if !status.Valid() {
			return domain.ListBookingsResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if value := strings.TrimSpace(req.QuoteID); value != "" {
		quoteID, err := snowflake.ParseString(value)
		if err != nil {
			return domain.ListBookingsResponse{}, domain.ErrInvalidQuoteID
		}
		filter.QuoteID = quoteID
	}
	for _, value := range []string{req.DateFrom, req.DateTo} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, value); err != nil {
			return domain.ListBookingsResponse{}, domain.ErrInvalidDate
		}
	}
	filter.DateFrom = req.DateFrom
	filter.DateTo = req.DateTo

	bookings, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListBookingsResponse{}, err
	}
	return domain.ListBookingsResponse{
		PageInfo: page.PageInfo(total),
		Bookings: bookings,
	}, nil
}

func (s *Service) Availability(ctx context.Context, date string) (domain.Availability, error) {
	day, err := parseDate(date)
	if err != nil {
		return domain.Availability{}, err
	}

	capa, err := s.resolveCapacity(ctx, s.db, day)
	if err != nil {
		return domain.Availability{}, err
	}
	booked, err := s.repo.CountActive(ctx, s.db, day, false, 0)
	if err != nil {
		return domain.Availability{}, err
	}
	emergencyBooked, err := s.repo.CountActive(ctx, s.db, day, true, 0)
	if err != nil {
		return domain.Availability{}, err
	}

	out := domain.Availability{
		Date:                   day,
		Overridden:             capa.overridden,
		Slots:                  capa.slots,
		Booked:                 booked,
		Remaining:              remaining(capa.slots, booked),
		EmergencySlots:         capa.emergencySlots,
		EmergencyBooked:        emergencyBooked,
		EmergencyRemaining:     remaining(capa.emergencySlots, emergencyBooked),
		EmergencyFeePercentage: capa.feePercentage,
	}

	blackout, err := s.repo.FindBlackout(ctx, s.db, day)
	if err != nil {
		return domain.Availability{}, err
	}
	if blackout != nil {
		out.Blackout = true
		out.BlackoutReason = blackout.Reason
		out.Remaining = 0
		out.EmergencyRemaining = 0
	}
	return out, nil
}

func (s *Service) UpsertCapacitySetting(ctx context.Context, weekday int, req domain.UpsertCapacitySettingRequest) (domain.CapacitySetting, error) {
	if weekday < 0 || weekday > 6 {
		return domain.CapacitySetting{}, domain.ErrInvalidWeekday
	}
	if req.DefaultSlots < 0 || req.EmergencySlotsMax < 0 {
		return domain.CapacitySetting{}, domain.ErrInvalidSlots
	}
	if req.EmergencyFeePercentage.IsNegative() || req.EmergencyFeePercentage.GreaterThan(hundred) {
		return domain.CapacitySetting{}, domain.ErrInvalidPercentage
	}

	setting := domain.CapacitySetting{
		Weekday:                weekday,
		DefaultSlots:           req.DefaultSlots,
		EmergencySlotsMax:      req.EmergencySlotsMax,
		EmergencyFeePercentage: req.EmergencyFeePercentage,
		UpdatedAt:              s.clock.Now(),
	}
	if err := s.repo.UpsertSetting(ctx, s.db, &setting); err != nil {
		return domain.CapacitySetting{}, err
	}
	return setting, nil
}

func (s *Service) SetCapacityOverride(ctx context.Context, date string, req domain.SetCapacityOverrideRequest) (domain.CapacityOverride, error) {
	day, err := parseDate(date)
	if err != nil {
		return domain.CapacityOverride{}, err
	}
	if req.Slots < 0 || req.EmergencySlots < 0 {
		return domain.CapacityOverride{}, domain.ErrInvalidSlots.WithField("slots")
	}

	override := domain.CapacityOverride{
		Date:           day,
		Slots:          req.Slots,
		EmergencySlots: req.EmergencySlots,
		Reason:         strings.TrimSpace(req.Reason),
		UpdatedAt:      s.clock.Now(),
	}
	if err := s.repo.UpsertOverride(ctx, s.db, &override); err != nil {
		return domain.CapacityOverride{}, err
	}
	return override, nil
}

func (s *Service) AddBlackoutDate(ctx context.Context, req domain.AddBlackoutDateRequest) (domain.BlackoutDate, error) {
	day, err := parseDate(req.Date)
	if err != nil {
		return domain.BlackoutDate{}, err
	}

	blackout := domain.BlackoutDate{
		ID:        s.genID.Generate(),
		Date:      day,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: s.clock.Now(),
	}
	var booked int64
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.InsertBlackout(ctx, tx, &blackout); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateBlackout
			}
			return err
		}
		normal, err := s.repo.CountActive(ctx, tx, day, false, 0)
		if err != nil {
			return err
		}
		emergency, err := s.repo.CountActive(ctx, tx, day, true, 0)
		if err != nil {
			return err
		}
		booked = normal + emergency
		return nil
	})
	if err != nil {
		return domain.BlackoutDate{}, err
	}

	// Existing bookings are kept; staff reach out to move them.
	if booked > 0 {
		s.log.Warn("blackout date has active bookings", zap.String("date", day), zap.Int64("bookings", booked))
	}
	return blackout, nil
}

func (s *Service) ListBlackoutDates(ctx context.Context, req domain.ListBlackoutDatesRequest) ([]domain.BlackoutDate, error) {
	for _, value := range []string{req.From, req.To} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, value); err != nil {
			return nil, domain.ErrInvalidDate
		}
	}
	return s.repo.ListBlackouts(ctx, s.db, req.From, req.To)
}

func (s *Service) mutate(ctx context.Context, id snowflake.ID, fn func(tx *gorm.DB, booking *domain.Booking, now time.Time) error) (domain.Booking, error) {
	var booking *domain.Booking
	err := pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), id)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		now := s.clock.Now()
		if err := fn(tx, booking, now); err != nil {
			return err
		}
		booking.UpdatedAt = now
		return s.repo.Update(ctx, tx, booking)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.metrics.RecordBooking(ctx, slotType(booking.IsEmergency), string(booking.Status))
	s.log.Info("booking updated",
		zap.String("booking_id", booking.ID.String()),
		zap.String("status", string(booking.Status)),
		zap.String("date", booking.Date),
	)
	return *booking, nil
}

// checkDate rejects blacked out dates and full pools. The caller holds the day lock.
func (s *Service) checkDate(ctx context.Context, tx *gorm.DB, date string, emergency bool, excludeID snowflake.ID) (capacity, error) {
	blackout, err := s.repo.FindBlackout(ctx, tx, date)
	if err != nil {
		return capacity{}, err
	}
	if blackout != nil {
		if blackout.Reason != "" {
			return capacity{}, domain.ErrBlackoutDate.Withf("%s is unavailable: %s", date, blackout.Reason)
		}
		return capacity{}, domain.ErrBlackoutDate
	}

	capa, err := s.resolveCapacity(ctx, tx, date)
	if err != nil {
		return capacity{}, err
	}
	booked, err := s.repo.CountActive(ctx, tx, date, emergency, excludeID)
	if err != nil {
		return capacity{}, err
	}
	if emergency {
		if booked >= int64(capa.emergencySlots) {
			return capacity{}, domain.ErrEmergencyCapacity.Withf("%d of %d emergency slots taken on %s", booked, capa.emergencySlots, date)
		}
		return capa, nil
	}
	if booked >= int64(capa.slots) {
		return capacity{}, domain.ErrCapacityExceeded.Withf("%d of %d slots taken on %s", booked, capa.slots, date)
	}
	return capa, nil
}

func (s *Service) resolveCapacity(ctx context.Context, db *gorm.DB, date string) (capacity, error) {
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return capacity{}, domain.ErrInvalidDate
	}
	setting, err := s.repo.FindSetting(ctx, db, int(day.Weekday()))
	if err != nil {
		return capacity{}, err
	}
	if setting == nil {
		fallback := domain.DefaultCapacity(day.Weekday())
		setting = &fallback
	}

	capa := capacity{
		slots:          setting.DefaultSlots,
		emergencySlots: setting.EmergencySlotsMax,
		feePercentage:  setting.EmergencyFeePercentage,
	}
	override, err := s.repo.FindOverride(ctx, db, date)
	if err != nil {
		return capacity{}, err
	}
	if override != nil {
		capa.slots = override.Slots
		capa.emergencySlots = override.EmergencySlots
		capa.overridden = true
	}
	return capa, nil
}

func (s *Service) parseFutureDate(value string) (string, error) {
	day, err := parseDate(value)
	if err != nil {
		return "", err
	}
	today := s.clock.Now().In(s.lifecycle.Get().Booking.Location()).Format(domain.DateLayout)
	if day < today {
		return "", domain.ErrDateInPast
	}
	return day, nil
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, eventType eventdomain.EventType, booking domain.Booking) error {
	return s.events.PublishTx(ctx, tx, eventdomain.Event{
		Type:          eventType,
		AggregateType: eventdomain.AggregateBooking,
		AggregateID:   booking.ID,
		DedupeKey:     fmt.Sprintf("%s:%s", eventType, booking.ID),
		Payload: eventdomain.BookingPayload{
			BookingID:   booking.ID.String(),
			QuoteID:     booking.QuoteID.String(),
			Date:        booking.Date,
			TimeSlot:    booking.TimeSlot,
			IsEmergency: booking.IsEmergency,
		},
	})
}

// EmergencyFee is the surcharge on subtotal for a percentage given as 0-100.
func EmergencyFee(subtotal, percentage decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(percentage).Div(hundred).Round(2)
}

// bookingBase is the best known subtotal: the order's, else the finalized
// quote's, else the low estimate. Quote finalization reprices fees that were
// computed on an estimate.
func bookingBase(quote quotedomain.Quote, order *orderdomain.Order) decimal.Decimal {
	if order != nil {
		return order.Subtotal
	}
	if quote.FinalSubtotal != nil {
		return *quote.FinalSubtotal
	}
	return quote.EstimateMin
}

func remaining(slots int, booked int64) int {
	left := slots - int(booked)
	if left < 0 {
		return 0
	}
	return left
}

func slotType(emergency bool) string {
	if emergency {
		return "emergency"
	}
	return "standard"
}

func parseDate(value string) (string, error) {
	day, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", domain.ErrInvalidDate
	}
	return day.Format(domain.DateLayout), nil
}

func parseTimeSlot(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	slot, err := time.Parse(domain.TimeSlotLayout, value)
	if err != nil {
		return "", domain.ErrInvalidTimeSlot
	}
	return slot.Format(domain.TimeSlotLayout), nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
