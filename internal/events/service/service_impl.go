package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	"github.com/smallbiznis/printflow/internal/events/domain"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const notifyTimeout = 10 * time.Second

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Lifecycle *config.LifecycleConfigHolder
	Notifier  domain.Notifier     `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	lifecycle *config.LifecycleConfigHolder
	notifier  domain.Notifier
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("events.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		lifecycle: p.Lifecycle,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
	}
}

func (s *Service) PublishTx(ctx context.Context, tx *gorm.DB, event domain.Event) error {
	if strings.TrimSpace(string(event.Type)) == "" {
		return domain.ErrInvalidEventType
	}
	if event.AggregateID == 0 {
		return domain.ErrInvalidAggregate
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return domain.ErrInvalidPayload.Wrap(err)
	}

	id := s.genID.Generate()
	dedupeKey := strings.TrimSpace(event.DedupeKey)
	if dedupeKey == "" {
		dedupeKey = fmt.Sprintf("%s:%s:%s", event.Type, event.AggregateID, id)
	}

	row := domain.LifecycleEvent{
		ID:            id,
		EventType:     event.Type,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       datatypes.JSON(payload),
		DedupeKey:     dedupeKey,
		CreatedAt:     s.clock.Now(),
	}
	inserted, err := s.repo.Insert(ctx, tx, &row)
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Debug("duplicate event ignored",
			zap.String("event_type", string(event.Type)),
			zap.String("dedupe_key", dedupeKey),
		)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListEventsRequest) (domain.ListEventsResponse, error) {
	page, err := req.Params.Normalize(domain.SortableFields, "created_at")
	if err != nil {
		return domain.ListEventsResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}

	filter := domain.ListEventsFilter{
		EventType:     domain.EventType(strings.TrimSpace(req.EventType)),
		AggregateType: domain.AggregateType(strings.TrimSpace(req.AggregateType)),
		Since:         req.Since,
	}
	if value := strings.TrimSpace(req.AggregateID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil {
			return domain.ListEventsResponse{}, domain.ErrInvalidAggregate
		}
		filter.AggregateID = id
	}

	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListEventsResponse{}, err
	}
	return domain.ListEventsResponse{PageInfo: page.PageInfo(total), Events: items}, nil
}

func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx, s.db)
}

// Dispatch hands up to limit unpublished events to the notifier. Delivery is
// at least once: an event is marked published only after the notifier returns.
func (s *Service) Dispatch(ctx context.Context, limit int) (domain.DispatchResult, error) {
	var result domain.DispatchResult
	if s.notifier == nil {
		return result, nil
	}
	if limit <= 0 {
		limit = 50
	}

	pending, err := s.repo.ListPending(ctx, s.db, limit)
	if err != nil {
		return result, err
	}
	result.Claimed = len(pending)

	maxAttempts := s.lifecycle.Get().Outbox.MaxAttempts
	for _, event := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		deliverErr := s.deliver(ctx, event)
		if deliverErr == nil {
			if _, err := s.repo.MarkPublished(ctx, s.db, event.ID, s.clock.Now()); err != nil {
				s.log.Warn("failed to mark event published", zap.String("event_id", event.ID.String()), zap.Error(err))
				continue
			}
			result.Published++
			s.metrics.RecordEventDispatched(ctx, string(event.EventType), "all", "sent")
			continue
		}

		result.Failed++
		var failedAt *time.Time
		if maxAttempts > 0 && event.Attempts+1 >= maxAttempts {
			now := s.clock.Now()
			failedAt = &now
			result.GaveUp++
		}
		s.log.Warn("event delivery failed",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.EventType)),
			zap.Int("attempt", event.Attempts+1),
			zap.Bool("gave_up", failedAt != nil),
			zap.Error(deliverErr),
		)
		s.metrics.RecordEventDispatched(ctx, string(event.EventType), "all", "failed")
		if err := s.repo.MarkAttemptFailed(ctx, s.db, event.ID, truncate(deliverErr.Error(), 1000), failedAt); err != nil {
			s.log.Warn("failed to record delivery attempt", zap.String("event_id", event.ID.String()), zap.Error(err))
		}
	}
	return result, nil
}

func (s *Service) deliver(ctx context.Context, event domain.LifecycleEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		err := s.notifier.Notify(callCtx, event)
		if err == nil {
			return struct{}{}, nil
		}
		if errs.KindOf(err).Retryable() {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(5*time.Second),
	)
	return err
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
