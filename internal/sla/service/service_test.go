package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	eventrepo "github.com/smallbiznis/printflow/internal/events/repository"
	eventservice "github.com/smallbiznis/printflow/internal/events/service"
	"github.com/smallbiznis/printflow/internal/sla/domain"
	"github.com/smallbiznis/printflow/internal/sla/repository"
	"github.com/smallbiznis/printflow/pkg/db/dbtest"
	"github.com/smallbiznis/printflow/pkg/errs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingListener struct {
	breaches []domain.SlaBreach
}

func (l *recordingListener) OnBreachTx(_ context.Context, _ *gorm.DB, breach domain.SlaBreach) error {
	l.breaches = append(l.breaches, breach)
	return nil
}

// listedHookRepo runs afterList once the overdue timers have been read,
// standing in for a request that lands between the scan's read and write.
type listedHookRepo struct {
	domain.Repository
	afterList func()
}

func (r *listedHookRepo) ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.SlaTimer, error) {
	timers, err := r.Repository.ListOverdue(ctx, db, now, limit)
	if err == nil && r.afterList != nil {
		r.afterList()
	}
	return timers, err
}

type fixture struct {
	svc      *Service
	events   eventdomain.Service
	conn     *gorm.DB
	clk      *clock.FakeClock
	listener *recordingListener
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := dbtest.Open(t, &domain.SlaTimer{}, &domain.SlaBreach{}, &eventdomain.LifecycleEvent{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC))

	events := eventservice.NewService(eventservice.Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      eventrepo.Provide(),
		Lifecycle: config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig()),
	})
	listener := &recordingListener{}
	svc := NewService(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Events:    events,
		Listeners: []domain.BreachListener{listener},
	}).(*Service)
	return fixture{svc: svc, events: events, conn: conn, clk: clk, listener: listener}
}

func (f fixture) start(t *testing.T, orderID snowflake.ID, timerType domain.TimerType, due time.Duration) *domain.SlaTimer {
	t.Helper()
	var timer *domain.SlaTimer
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		timer, err = f.svc.StartTimerTx(context.Background(), tx, orderID, timerType, f.clk.Now().Add(due))
		return err
	})
	require.NoError(t, err)
	return timer
}

func TestStartTimerReturnsExistingOpenTimer(t *testing.T) {
	f := newFixture(t)

	first := f.start(t, 100, domain.TimerFirstProof, 48*time.Hour)
	second := f.start(t, 100, domain.TimerFirstProof, 10*time.Hour)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.DueAt.Equal(first.DueAt))

	timers, err := f.svc.ListTimers(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, timers, 1)
}

func TestStartTimerRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.StartTimerTx(context.Background(), tx, 1, domain.TimerType("LUNCH"), f.clk.Now())
		return err
	})
	require.ErrorIs(t, err, domain.ErrInvalidTimerType)
}

func TestPauseAndResumeExtendsDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	timer := f.start(t, 7, domain.TimerRevisionTurnaround, 24*time.Hour)
	originalDue := timer.DueAt

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return f.svc.PauseByTypeTx(ctx, tx, 7, domain.TimerRevisionTurnaround)
	}))

	// A paused timer is never overdue.
	f.clk.Advance(30 * time.Hour)
	n, err := f.svc.ScanForBreaches(ctx, f.clk.Now(), 10)
	require.NoError(t, err)
	require.Zero(t, n)

	var resumed bool
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		resumed, err = f.svc.ResumeByTypeTx(ctx, tx, 7, domain.TimerRevisionTurnaround)
		return err
	}))
	require.True(t, resumed)

	timers, err := f.svc.ListTimers(ctx, "7")
	require.NoError(t, err)
	require.Len(t, timers, 1)
	require.Nil(t, timers[0].PausedAt)
	require.True(t, timers[0].DueAt.Equal(originalDue.Add(30*time.Hour)), "due %s", timers[0].DueAt)
}

func TestResumeWithoutTimerReportsFalse(t *testing.T) {
	f := newFixture(t)
	var resumed bool
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		resumed, err = f.svc.ResumeByTypeTx(context.Background(), tx, 9, domain.TimerRevisionTurnaround)
		return err
	}))
	require.False(t, resumed)
}

func TestScanRecordsBreachOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.start(t, 11, domain.TimerFirstProof, 48*time.Hour)
	f.start(t, 12, domain.TimerProduction, 96*time.Hour)

	f.clk.Advance(48*time.Hour + 30*time.Hour)
	n, err := f.svc.ScanForBreaches(ctx, f.clk.Now(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = f.svc.ScanForBreaches(ctx, f.clk.Now(), 10)
	require.NoError(t, err)
	require.Zero(t, n)

	resp, err := f.svc.ListBreaches(ctx, domain.ListBreachesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Breaches, 1)
	breach := resp.Breaches[0]
	require.Equal(t, snowflake.ID(11), breach.OrderID)
	require.Equal(t, domain.TimerFirstProof, breach.TimerType)
	require.Equal(t, "30.00", breach.BreachDurationHours.StringFixed(2))
	require.Equal(t, 2, breach.EscalationLevel)

	require.Len(t, f.listener.breaches, 1)

	events, err := f.events.List(ctx, eventdomain.ListEventsRequest{EventType: string(eventdomain.EventSLABreached)})
	require.NoError(t, err)
	require.Len(t, events.Events, 1)
}

func TestScanSkipsTimerPausedAfterListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.start(t, 31, domain.TimerRevisionTurnaround, 24*time.Hour)
	f.clk.Advance(30 * time.Hour)

	repo := &listedHookRepo{Repository: repository.Provide()}
	repo.afterList = func() {
		require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
			return f.svc.PauseByTypeTx(ctx, tx, 31, domain.TimerRevisionTurnaround)
		}))
	}
	scanner := NewService(Params{
		DB:     f.conn,
		Log:    zap.NewNop(),
		GenID:  f.svc.genID,
		Clock:  f.clk,
		Repo:   repo,
		Events: f.events,
	}).(*Service)

	n, err := scanner.ScanForBreaches(ctx, f.clk.Now(), 10)
	require.NoError(t, err)
	require.Zero(t, n)

	resp, err := f.svc.ListBreaches(ctx, domain.ListBreachesRequest{})
	require.NoError(t, err)
	require.Empty(t, resp.Breaches)

	timers, err := f.svc.ListTimers(ctx, "31")
	require.NoError(t, err)
	require.Len(t, timers, 1)
	require.False(t, timers[0].IsBreached)
	require.NotNil(t, timers[0].PausedAt)
}

func TestMarkBreachedIgnoresPausedOrNotYetDueTimers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := repository.Provide()

	running := f.start(t, 32, domain.TimerProduction, 10*time.Hour)
	flipped, err := repo.MarkBreached(ctx, f.conn, running.ID, f.clk.Now())
	require.NoError(t, err)
	require.False(t, flipped, "not yet due")

	paused := f.start(t, 33, domain.TimerRevisionTurnaround, time.Hour)
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return f.svc.PauseByTypeTx(ctx, tx, 33, domain.TimerRevisionTurnaround)
	}))
	f.clk.Advance(2 * time.Hour)
	flipped, err = repo.MarkBreached(ctx, f.conn, paused.ID, f.clk.Now())
	require.NoError(t, err)
	require.False(t, flipped, "paused")

	f.clk.Advance(10 * time.Hour)
	flipped, err = repo.MarkBreached(ctx, f.conn, running.ID, f.clk.Now())
	require.NoError(t, err)
	require.True(t, flipped)
}

func TestCompletedTimerIsNotScanned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	timer := f.start(t, 21, domain.TimerFirstProof, time.Hour)
	completed, err := f.svc.CompleteTimer(ctx, timer.ID.String())
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	_, err = f.svc.CompleteTimer(ctx, timer.ID.String())
	require.Equal(t, errs.KindInvalidState, errs.KindOf(err))

	f.clk.Advance(5 * time.Hour)
	n, err := f.svc.ScanForBreaches(ctx, f.clk.Now(), 10)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLateCompletionRecordsBreach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	timer := f.start(t, 41, domain.TimerFirstProof, 2*time.Hour)
	f.clk.Advance(3 * time.Hour)

	completed, err := f.svc.CompleteTimer(ctx, timer.ID.String())
	require.NoError(t, err)
	require.True(t, completed.IsBreached)

	resp, err := f.svc.ListBreaches(ctx, domain.ListBreachesRequest{OrderID: "41"})
	require.NoError(t, err)
	require.Len(t, resp.Breaches, 1)
	require.Equal(t, "1.00", resp.Breaches[0].BreachDurationHours.StringFixed(2))
	require.Len(t, f.listener.breaches, 1)
}

func TestCompleteAllOpenClosesEveryTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.start(t, 31, domain.TimerFirstProof, time.Hour)
	f.start(t, 31, domain.TimerProduction, time.Hour)
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return f.svc.CompleteAllOpenTx(ctx, tx, 31)
	}))

	timers, err := f.svc.ListTimers(ctx, "31")
	require.NoError(t, err)
	require.Len(t, timers, 2)
	for _, timer := range timers {
		require.False(t, timer.Open())
	}
}

func TestEscalationLevel(t *testing.T) {
	cases := map[time.Duration]int{
		time.Minute:    1,
		23 * time.Hour: 1,
		24 * time.Hour: 2,
		47 * time.Hour: 2,
		48 * time.Hour: 3,
		200 * time.Hour: 3,
	}
	for overdue, want := range cases {
		if got := EscalationLevel(overdue); got != want {
			t.Fatalf("EscalationLevel(%s) = %d, want %d", overdue, got, want)
		}
	}
}

func TestListBreachesRejectsBadFilter(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListBreaches(context.Background(), domain.ListBreachesRequest{TimerType: "coffee"})
	require.ErrorIs(t, err, domain.ErrInvalidTimerType)
	_, err = f.svc.ListBreaches(context.Background(), domain.ListBreachesRequest{OrderID: "nope"})
	require.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestZeroIDIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteTimer(ctx, "0")
	require.ErrorIs(t, err, domain.ErrInvalidID)
	require.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.ListTimers(ctx, "0")
	require.ErrorIs(t, err, domain.ErrInvalidOrderID)

	_, err = f.svc.ListBreaches(ctx, domain.ListBreachesRequest{OrderID: "0"})
	require.ErrorIs(t, err, domain.ErrInvalidOrderID)
}
