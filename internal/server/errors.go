package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/printflow/pkg/errs"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errs.New(errs.KindNotFound, "not_found", "not found")
	ErrInvalidRequest = errs.New(errs.KindValidation, "invalid_request", "invalid request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindError turns a gin binding failure into field-level validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
		for _, fe := range fieldErrs {
			out.Errors = append(out.Errors, ValidationError{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: "failed " + fe.Tag() + " validation",
			})
		}
		return out
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return newValidationError(typeErr.Field, "invalid_type", "expected "+typeErr.Type.String())
	case errors.As(err, &syntaxErr):
		return newValidationError("request", "invalid_json", "malformed JSON body")
	}
	return invalidRequestError()
}

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindIllegalTransition, errs.KindInvalidState, errs.KindConcurrencyConflict:
		return http.StatusConflict
	case errs.KindCapacityExceeded, errs.KindBlackoutDate, errs.KindCancellationWindowClosed, errs.KindRevisionLimitExceeded:
		return http.StatusUnprocessableEntity
	case errs.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    string(errs.KindInternal),
			Code:    string(errs.KindInternal),
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    string(errs.KindValidation),
			Code:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	kind := errs.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		return status, errorPayload{
			Type:    string(errs.KindInternal),
			Code:    string(errs.KindInternal),
			Message: "internal server error",
		}
	}

	payload := errorPayload{
		Type:    string(kind),
		Code:    errs.CodeOf(err),
		Message: err.Error(),
	}
	if kind == errs.KindValidation {
		payload.Errors = []ValidationError{{
			Field:   errs.FieldOf(err),
			Code:    payload.Code,
			Message: payload.Message,
		}}
	}
	if kind == errs.KindDependencyUnavailable {
		payload.Message = "service unavailable"
	}
	return status, payload
}

// classifyErrorForLog feeds the access log with the error kind and code.
func classifyErrorForLog(err error) (string, string) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return string(errs.KindValidation), "validation_error"
	}
	return string(errs.KindOf(err)), errs.CodeOf(err)
}
