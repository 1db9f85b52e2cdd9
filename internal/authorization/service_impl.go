package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	"github.com/smallbiznis/printflow/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCatalog   = "catalog"
	ObjectQuote     = "quote"
	ObjectOrder     = "order"
	ObjectProof     = "proof"
	ObjectBooking   = "booking"
	ObjectCapacity  = "capacity"
	ObjectPayment   = "payment"
	ObjectInvoice   = "invoice"
	ObjectSLA       = "sla"
	ObjectInventory = "inventory"
	ObjectEvent     = "event"
)

const (
	ActionCatalogView   = "catalog.view"
	ActionCatalogManage = "catalog.manage"

	ActionQuoteView     = "quote.view"
	ActionQuoteSubmit   = "quote.submit"
	ActionQuoteReview   = "quote.review"
	ActionQuoteFinalize = "quote.finalize"

	ActionOrderView             = "order.view"
	ActionOrderAdvance          = "order.advance"
	ActionOrderRevision         = "order.revision"
	ActionOrderRevisionOverride = "order.revision_override"
	ActionOrderAssign           = "order.assign"

	ActionProofView       = "proof.view"
	ActionProofUpload     = "proof.upload"
	ActionProofMarkViewed = "proof.mark_viewed"
	ActionProofRespond    = "proof.respond"

	ActionBookingView       = "booking.view"
	ActionBookingCreate     = "booking.create"
	ActionBookingReschedule = "booking.reschedule"
	ActionBookingCancel     = "booking.cancel"
	ActionBookingConfirm    = "booking.confirm"

	ActionCapacityView   = "capacity.view"
	ActionCapacityManage = "capacity.manage"

	ActionPaymentView    = "payment.view"
	ActionPaymentRecord  = "payment.record"
	ActionPaymentConfirm = "payment.confirm"
	ActionPaymentRefund  = "payment.refund"

	ActionInvoiceView  = "invoice.view"
	ActionInvoiceIssue = "invoice.issue"

	ActionSLAView     = "sla.view"
	ActionSLAComplete = "sla.complete"

	ActionInventoryView   = "inventory.view"
	ActionInventoryManage = "inventory.manage"

	ActionEventView = "event.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, actorID := obscontext.ActorFromContext(ctx)
	subject, ok := subjectForRole(role)
	if !ok {
		return ErrInvalidActor
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("role", role),
			zap.String("actor_id", actorID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subjectForRole(role string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case obscontext.RoleCustomer:
		return "role:customer", true
	case obscontext.RoleStaff:
		return "role:staff", true
	case obscontext.RoleAdmin:
		return "role:admin", true
	case obscontext.RoleSystem:
		return "role:system", true
	default:
		return "", false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Customers place and follow their own work.
		{"role:customer", ObjectCatalog, ActionCatalogView},
		{"role:customer", ObjectQuote, ActionQuoteView},
		{"role:customer", ObjectQuote, ActionQuoteSubmit},
		{"role:customer", ObjectOrder, ActionOrderView},
		{"role:customer", ObjectProof, ActionProofView},
		{"role:customer", ObjectProof, ActionProofMarkViewed},
		{"role:customer", ObjectProof, ActionProofRespond},
		{"role:customer", ObjectBooking, ActionBookingView},
		{"role:customer", ObjectBooking, ActionBookingCreate},
		{"role:customer", ObjectBooking, ActionBookingReschedule},
		{"role:customer", ObjectBooking, ActionBookingCancel},
		{"role:customer", ObjectCapacity, ActionCapacityView},
		{"role:customer", ObjectPayment, ActionPaymentView},
		{"role:customer", ObjectInvoice, ActionInvoiceView},

		// Staff run the lifecycle.
		{"role:staff", ObjectCatalog, ActionCatalogView},
		{"role:staff", ObjectQuote, ActionQuoteView},
		{"role:staff", ObjectQuote, ActionQuoteSubmit},
		{"role:staff", ObjectQuote, ActionQuoteReview},
		{"role:staff", ObjectQuote, ActionQuoteFinalize},
		{"role:staff", ObjectOrder, ActionOrderView},
		{"role:staff", ObjectOrder, ActionOrderAdvance},
		{"role:staff", ObjectOrder, ActionOrderRevision},
		{"role:staff", ObjectOrder, ActionOrderAssign},
		{"role:staff", ObjectProof, ActionProofView},
		{"role:staff", ObjectProof, ActionProofUpload},
		{"role:staff", ObjectBooking, ActionBookingView},
		{"role:staff", ObjectBooking, ActionBookingCreate},
		{"role:staff", ObjectBooking, ActionBookingReschedule},
		{"role:staff", ObjectBooking, ActionBookingCancel},
		{"role:staff", ObjectBooking, ActionBookingConfirm},
		{"role:staff", ObjectCapacity, ActionCapacityView},
		{"role:staff", ObjectPayment, ActionPaymentView},
		{"role:staff", ObjectPayment, ActionPaymentRecord},
		{"role:staff", ObjectPayment, ActionPaymentConfirm},
		{"role:staff", ObjectPayment, ActionPaymentRefund},
		{"role:staff", ObjectInvoice, ActionInvoiceView},
		{"role:staff", ObjectInvoice, ActionInvoiceIssue},
		{"role:staff", ObjectSLA, ActionSLAView},
		{"role:staff", ObjectSLA, ActionSLAComplete},
		{"role:staff", ObjectInventory, ActionInventoryView},
		{"role:staff", ObjectInventory, ActionInventoryManage},
		{"role:staff", ObjectEvent, ActionEventView},

		{"role:admin", "*", "*"},
		{"role:system", "*", "*"},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
