package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
)

type CreateServiceRequest struct {
	Name              string          `json:"name" binding:"required,max=160"`
	Slug              string          `json:"slug" binding:"omitempty,max=160"`
	Description       string          `json:"description"`
	BasePrice         decimal.Decimal `json:"base_price"`
	DepositPercentage decimal.Decimal `json:"deposit_percentage"`
	IsActive          *bool           `json:"is_active"`
}

type UpdateServiceRequest struct {
	Name              *string          `json:"name" binding:"omitempty,max=160"`
	Description       *string          `json:"description"`
	BasePrice         *decimal.Decimal `json:"base_price"`
	DepositPercentage *decimal.Decimal `json:"deposit_percentage"`
	IsActive          *bool            `json:"is_active"`
}

type ListServicesRequest struct {
	pagination.Params
	Active *bool `form:"active"`
}

type ListServicesResponse struct {
	pagination.PageInfo
	Services []PrintService `json:"services"`
}

var ServiceSortable = pagination.Sortable{
	"created_at": "created_at",
	"name":       "name",
	"base_price": "base_price",
}

type AddOptionRequest struct {
	Key      string          `json:"key" binding:"required,max=64"`
	Label    string          `json:"label" binding:"required,max=160"`
	Kind     OptionKind      `json:"kind" binding:"required,oneof=TEXT NUMBER SELECT BOOLEAN"`
	Choices  []OptionChoice  `json:"choices" binding:"omitempty,dive"`
	Rules    ValidationRules `json:"validation_rules"`
	Position int             `json:"position"`
}

type CreateTierRequest struct {
	Name              string          `json:"name" binding:"required,max=120"`
	TurnaroundDays    int             `json:"turnaround_days" binding:"gte=0"`
	RevisionsAllowed  int             `json:"revisions_allowed" binding:"gte=0"`
	DepositPercentage decimal.Decimal `json:"deposit_percentage"`
	RushFeePercentage decimal.Decimal `json:"rush_fee_percentage"`
}

type AddDeliverableRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// Answer is a customer's response to one configurable option.
type Answer struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

type EvaluatedAnswer struct {
	Key   string
	Label string
	Value string
}

// AnswerEvaluation is the validated answer set with the unit price it implies.
type AnswerEvaluation struct {
	Service   PrintService
	Answers   []EvaluatedAnswer
	UnitPrice decimal.Decimal
}

type Service interface {
	CreateService(ctx context.Context, req CreateServiceRequest) (PrintService, error)
	UpdateService(ctx context.Context, id string, req UpdateServiceRequest) (PrintService, error)
	GetService(ctx context.Context, id string) (PrintService, error)
	ListServices(ctx context.Context, req ListServicesRequest) (ListServicesResponse, error)

	AddOption(ctx context.Context, serviceID string, req AddOptionRequest) (ServiceOption, error)
	ListOptions(ctx context.Context, serviceID string) ([]ServiceOption, error)

	CreateTier(ctx context.Context, serviceID string, req CreateTierRequest) (Tier, error)
	GetTier(ctx context.Context, id string) (Tier, error)
	ListTiers(ctx context.Context, serviceID string) ([]Tier, error)

	AddDeliverable(ctx context.Context, tierID string, req AddDeliverableRequest) (TierDeliverable, error)
	ListDeliverables(ctx context.Context, tierID string) ([]TierDeliverable, error)

	// EvaluateAnswers validates answers against the service's options and prices them.
	EvaluateAnswers(ctx context.Context, serviceID string, answers []Answer) (AnswerEvaluation, error)
}

var (
	ErrServiceNotFound    = errs.New(errs.KindNotFound, "service_not_found", "service not found")
	ErrTierNotFound       = errs.New(errs.KindNotFound, "tier_not_found", "tier not found")
	ErrInvalidID          = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidName        = errs.Validation("name", "invalid_name", "name is required")
	ErrInvalidPrice       = errs.Validation("base_price", "invalid_price", "price must not be negative")
	ErrInvalidPercentage  = errs.Validation("deposit_percentage", "invalid_percentage", "percentage must be between 0 and 100")
	ErrDuplicateSlug      = errs.Validation("slug", "duplicate_slug", "slug already in use")
	ErrInvalidOptionKey   = errs.Validation("key", "invalid_option_key", "option key is required")
	ErrDuplicateOptionKey = errs.Validation("key", "duplicate_option_key", "option key already defined for service")
	ErrInvalidChoices     = errs.Validation("choices", "invalid_choices", "select options need distinct choices")
	ErrInvalidTurnaround  = errs.Validation("turnaround_days", "invalid_turnaround", "turnaround days must not be negative")
	ErrInvalidRevisions   = errs.Validation("revisions_allowed", "invalid_revisions", "revisions allowed must not be negative")
	ErrUnknownAnswer      = errs.Validation("answers", "unknown_option", "answer refers to an unknown option")
	ErrAnswerRequired     = errs.Validation("answers", "answer_required", "required option is missing")
	ErrInvalidAnswer      = errs.Validation("answers", "invalid_answer", "answer is not valid for option")
	ErrDuplicateAnswer    = errs.Validation("answers", "duplicate_answer", "option answered more than once")
)

var ErrInvalidSort = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
