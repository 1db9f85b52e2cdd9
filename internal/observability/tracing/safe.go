package tracing

import (
	"errors"
	"strings"

	"github.com/smallbiznis/printflow/pkg/errs"
	"go.opentelemetry.io/otel/attribute"
)

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"customer.email": {},
	"customer.phone": {},
	"customer.name":  {},
}

// SafeAttributes drops attributes that may carry customer contact data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its kind and code so raw SQL and driver
// messages never reach the span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	kind := errs.KindOf(err)
	code := errs.CodeOf(err)
	if kind == errs.KindInternal {
		return errors.New(string(kind))
	}
	return errors.New(strings.TrimSpace(string(kind) + ": " + code))
}
