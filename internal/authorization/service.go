package authorization

import (
	"context"

	"github.com/smallbiznis/printflow/pkg/errs"
)

// Service decides whether the actor carried by ctx may perform action on object.
type Service interface {
	Authorize(ctx context.Context, object string, action string) error
}

var (
	ErrInvalidActor  = errs.New(errs.KindForbidden, "invalid_actor", "actor role is missing or unknown")
	ErrInvalidObject = errs.New(errs.KindValidation, "invalid_object", "object is required")
	ErrInvalidAction = errs.New(errs.KindValidation, "invalid_action", "action is required")
	ErrForbidden     = errs.New(errs.KindForbidden, "forbidden", "actor is not allowed to perform this action")
)
