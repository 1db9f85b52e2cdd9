package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errQuoteMissing = New(KindNotFound, "quote_not_found", "quote not found")

func TestDetailedCopyMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("finalize: %w", errQuoteMissing.Withf("quote %d not found", 42))

	assert.True(t, errors.Is(err, errQuoteMissing))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "quote_not_found", CodeOf(err))
	assert.False(t, errors.Is(err, ErrConcurrencyConflict))
}

func TestIllegalTransitionKind(t *testing.T) {
	err := NewIllegalTransition("order", "COMPLETED", "IN_PRODUCTION")

	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, KindIllegalTransition, KindOf(err))
	assert.Contains(t, err.Error(), "COMPLETED")
	assert.Contains(t, err.Error(), "IN_PRODUCTION")
}

func TestKindOfUntyped(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal kind, got %s", got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("expected empty kind for nil, got %s", got)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindConcurrencyConflict.Retryable())
	assert.True(t, KindDependencyUnavailable.Retryable())
	assert.False(t, KindValidation.Retryable())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := ErrDependencyUnavailable.Wrap(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrDependencyUnavailable))
}
