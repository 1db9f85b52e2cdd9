package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

const (
	defaultTxAttempts   = 4
	defaultTxMaxElapsed = 3 * time.Second
)

// RunInTx executes fn in a single transaction. When the transaction fails
// with a retryable kind the whole unit is re-run; partial state is never
// committed because every attempt rolls back before the next one starts.
func RunInTx(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := Classify(conn.WithContext(ctx).Transaction(fn))
		if err == nil {
			return struct{}{}, nil
		}
		if errs.KindOf(err).Retryable() {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(defaultTxAttempts),
		backoff.WithMaxElapsedTime(defaultTxMaxElapsed),
	)
	return err
}
