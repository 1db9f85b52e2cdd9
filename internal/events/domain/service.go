package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

// Event is what a domain service hands to the outbox.
type Event struct {
	Type          EventType
	AggregateType AggregateType
	AggregateID   snowflake.ID
	// DedupeKey makes publishing idempotent. Empty keys are generated.
	DedupeKey string
	Payload   any
}

// Publisher writes events inside the caller's transaction.
type Publisher interface {
	PublishTx(ctx context.Context, tx *gorm.DB, event Event) error
}

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

// Notifier delivers a published event to people. It is called outside any
// database transaction and may fail; the dispatcher retries.
type Notifier interface {
	Notify(ctx context.Context, event LifecycleEvent) error
}

type ListEventsRequest struct {
	pagination.Params
	EventType     string     `form:"event_type"`
	AggregateType string     `form:"aggregate_type"`
	AggregateID   string     `form:"aggregate_id"`
	Since         *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

var SortableFields = pagination.Sortable{
	"created_at": "created_at",
	"event_type": "event_type",
}

type ListEventsFilter struct {
	EventType     EventType
	AggregateType AggregateType
	AggregateID   snowflake.ID
	Since         *time.Time
}

type ListEventsResponse struct {
	pagination.PageInfo
	Events []LifecycleEvent `json:"events"`
}

type DispatchResult struct {
	Claimed   int
	Published int
	Failed    int
	GaveUp    int
}

type Service interface {
	Publisher
	List(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
	Dispatch(ctx context.Context, limit int) (DispatchResult, error)
	CountPending(ctx context.Context) (int64, error)
}

var (
	ErrInvalidEventType = errs.Validation("event_type", "invalid_event_type", "event type is required")
	ErrInvalidAggregate = errs.Validation("aggregate_id", "invalid_aggregate", "aggregate id is required")
	ErrInvalidPayload   = errs.Validation("payload", "invalid_payload", "event payload cannot be encoded")
	ErrInvalidSort      = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
)
