package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/clock"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	"github.com/smallbiznis/printflow/internal/sla/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultScanLimit   = 100
	maxEscalationLevel = 3
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Events    eventdomain.Publisher
	Listeners []domain.BreachListener `group:"sla_breach_listeners"`
	Metrics   *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	events    eventdomain.Publisher
	listeners []domain.BreachListener
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("sla.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		events:    p.Events,
		listeners: p.Listeners,
		metrics:   p.Metrics,
	}
}

func (s *Service) StartTimerTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType domain.TimerType, dueAt time.Time) (*domain.SlaTimer, error) {
	if !timerType.Valid() {
		return nil, domain.ErrInvalidTimerType
	}
	if dueAt.IsZero() {
		return nil, domain.ErrInvalidDueAt
	}

	existing, err := s.repo.FindOpen(ctx, tx, orderID, timerType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	timer := domain.SlaTimer{
		ID:        s.genID.Generate(),
		OrderID:   orderID,
		TimerType: timerType,
		StartedAt: now,
		DueAt:     dueAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, &timer); err != nil {
		return nil, err
	}

	s.log.Debug("sla timer started",
		zap.String("order_id", orderID.String()),
		zap.String("timer_type", string(timerType)),
		zap.Time("due_at", timer.DueAt),
	)
	return &timer, nil
}

func (s *Service) CompleteTimer(ctx context.Context, timerID string) (domain.SlaTimer, error) {
	id, err := parseID(timerID, domain.ErrInvalidID)
	if err != nil {
		return domain.SlaTimer{}, err
	}

	var completed *domain.SlaTimer
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var txErr error
		completed, txErr = s.CompleteTimerTx(ctx, tx, id)
		return txErr
	})
	if err != nil {
		return domain.SlaTimer{}, err
	}
	return *completed, nil
}

func (s *Service) CompleteTimerTx(ctx context.Context, tx *gorm.DB, timerID snowflake.ID) (*domain.SlaTimer, error) {
	timer, err := s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), timerID)
	if err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, domain.ErrTimerNotFound
	}
	if !timer.Open() {
		return nil, domain.ErrTimerCompleted
	}
	if err := s.complete(ctx, tx, timer); err != nil {
		return nil, err
	}
	return timer, nil
}

func (s *Service) CompleteByTypeTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType domain.TimerType) error {
	timer, err := s.repo.FindOpen(ctx, pkgdb.ForUpdate(tx), orderID, timerType)
	if err != nil || timer == nil {
		return err
	}
	return s.complete(ctx, tx, timer)
}

func (s *Service) CompleteAllOpenTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) error {
	timers, err := s.repo.ListOpenByOrder(ctx, pkgdb.ForUpdate(tx), orderID)
	if err != nil {
		return err
	}
	for i := range timers {
		if err := s.complete(ctx, tx, &timers[i]); err != nil {
			return err
		}
	}
	return nil
}

// complete closes the timer. A timer completed after its deadline is
// recorded as breached if no scan caught it first.
func (s *Service) complete(ctx context.Context, tx *gorm.DB, timer *domain.SlaTimer) error {
	now := s.clock.Now()
	if !timer.IsBreached && timer.PausedAt == nil && now.After(timer.DueAt) {
		breach, err := s.breachTx(ctx, tx, *timer, now)
		if err != nil {
			return err
		}
		if breach != nil {
			timer.IsBreached = true
			timer.BreachedAt = &now
			s.metrics.RecordSLABreach(ctx, string(timer.TimerType))
		}
	}
	timer.CompletedAt = &now
	timer.PausedAt = nil
	timer.UpdatedAt = now
	return s.repo.Update(ctx, tx, timer)
}

func (s *Service) PauseByTypeTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType domain.TimerType) error {
	timer, err := s.repo.FindOpen(ctx, pkgdb.ForUpdate(tx), orderID, timerType)
	if err != nil || timer == nil {
		return err
	}
	if timer.PausedAt != nil {
		return nil
	}

	now := s.clock.Now()
	timer.PausedAt = &now
	timer.UpdatedAt = now
	return s.repo.Update(ctx, tx, timer)
}

func (s *Service) ResumeByTypeTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType domain.TimerType) (bool, error) {
	timer, err := s.repo.FindOpen(ctx, pkgdb.ForUpdate(tx), orderID, timerType)
	if err != nil || timer == nil {
		return false, err
	}
	if timer.PausedAt == nil {
		return true, nil
	}

	now := s.clock.Now()
	// Paused time does not count against the deadline.
	timer.DueAt = timer.DueAt.Add(now.Sub(*timer.PausedAt))
	timer.PausedAt = nil
	timer.UpdatedAt = now
	if err := s.repo.Update(ctx, tx, timer); err != nil {
		return false, err
	}
	return true, nil
}

// ScanForBreaches records a breach for every overdue running timer. Each
// timer is handled in its own transaction; one failure does not stop the rest.
func (s *Service) ScanForBreaches(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultScanLimit
	}
	now = now.UTC()

	timers, err := s.repo.ListOverdue(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, timer := range timers {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		breach, err := s.recordBreach(ctx, timer, now)
		if err != nil {
			s.log.Warn("sla breach not recorded",
				zap.String("timer_id", timer.ID.String()),
				zap.String("order_id", timer.OrderID.String()),
				zap.Error(err),
			)
			continue
		}
		if breach == nil {
			continue
		}
		recorded++
		s.metrics.RecordSLABreach(ctx, string(breach.TimerType))
		s.log.Info("sla breached",
			zap.String("order_id", breach.OrderID.String()),
			zap.String("timer_type", string(breach.TimerType)),
			zap.String("breach_hours", breach.BreachDurationHours.String()),
			zap.Int("escalation_level", breach.EscalationLevel),
		)
	}
	return recorded, nil
}

// recordBreach re-reads the listed timer under lock; a pause, resume or
// completion since the listing wins over the stale copy.
func (s *Service) recordBreach(ctx context.Context, listed domain.SlaTimer, now time.Time) (*domain.SlaBreach, error) {
	var breach *domain.SlaBreach
	err := pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		timer, err := s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), listed.ID)
		if err != nil || timer == nil {
			return err
		}
		if !timer.Open() || timer.IsBreached || timer.PausedAt != nil || !now.After(timer.DueAt) {
			return nil
		}
		breach, err = s.breachTx(ctx, tx, *timer, now)
		return err
	})
	return breach, err
}

// breachTx flips the timer to breached and records the breach. It returns
// nil when another run already did so.
func (s *Service) breachTx(ctx context.Context, tx *gorm.DB, timer domain.SlaTimer, now time.Time) (*domain.SlaBreach, error) {
	flipped, err := s.repo.MarkBreached(ctx, tx, timer.ID, now)
	if err != nil || !flipped {
		return nil, err
	}

	overdue := now.Sub(timer.DueAt)
	breach := domain.SlaBreach{
		ID:                  s.genID.Generate(),
		TimerID:             timer.ID,
		OrderID:             timer.OrderID,
		TimerType:           timer.TimerType,
		DueAt:               timer.DueAt,
		DetectedAt:          now,
		BreachDurationHours: decimal.NewFromFloat(overdue.Hours()).Round(2),
		EscalationLevel:     EscalationLevel(overdue),
		CreatedAt:           now,
	}
	inserted, err := s.repo.InsertBreach(ctx, tx, &breach)
	if err != nil || !inserted {
		return nil, err
	}

	for _, listener := range s.listeners {
		if err := listener.OnBreachTx(ctx, tx, breach); err != nil {
			return nil, err
		}
	}

	if err := s.events.PublishTx(ctx, tx, eventdomain.Event{
		Type:          eventdomain.EventSLABreached,
		AggregateType: eventdomain.AggregateOrder,
		AggregateID:   timer.OrderID,
		DedupeKey:     fmt.Sprintf("%s:%s", eventdomain.EventSLABreached, timer.ID),
		Payload: eventdomain.SLABreachedPayload{
			OrderID:             timer.OrderID.String(),
			TimerID:             timer.ID.String(),
			TimerType:           string(timer.TimerType),
			BreachDurationHours: breach.BreachDurationHours.StringFixed(2),
		},
	}); err != nil {
		return nil, err
	}
	return &breach, nil
}

// EscalationLevel starts at 1 and rises by one for each full day overdue, up to 3.
func EscalationLevel(overdue time.Duration) int {
	if overdue <= 0 {
		return 1
	}
	level := 1 + int(math.Floor(overdue.Hours()/24))
	if level > maxEscalationLevel {
		return maxEscalationLevel
	}
	return level
}

func (s *Service) ListTimers(ctx context.Context, orderID string) ([]domain.SlaTimer, error) {
	id, err := parseID(orderID, domain.ErrInvalidOrderID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, s.db, id)
}

func (s *Service) ListBreaches(ctx context.Context, req domain.ListBreachesRequest) (domain.ListBreachesResponse, error) {
	page, err := req.Params.Normalize(domain.BreachSortable, "detected_at")
	if err != nil {
		return domain.ListBreachesResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}

	var filter domain.ListBreachesFilter
	if strings.TrimSpace(req.OrderID) != "" {
		if filter.OrderID, err = parseID(req.OrderID, domain.ErrInvalidOrderID); err != nil {
			return domain.ListBreachesResponse{}, err
		}
	}
	if req.TimerType != "" {
		filter.TimerType = domain.TimerType(strings.ToUpper(strings.TrimSpace(req.TimerType)))
		if !filter.TimerType.Valid() {
			return domain.ListBreachesResponse{}, domain.ErrInvalidTimerType
		}
	}

	items, total, err := s.repo.ListBreaches(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListBreachesResponse{}, err
	}
	return domain.ListBreachesResponse{PageInfo: page.PageInfo(total), Breaches: items}, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
