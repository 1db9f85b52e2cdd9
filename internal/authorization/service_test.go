package authorization

import (
	"context"
	"errors"
	"testing"

	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	"github.com/smallbiznis/printflow/pkg/db/dbtest"
	"github.com/smallbiznis/printflow/pkg/errs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := dbtest.Open(t)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer}), conn
}

func asActor(role string) context.Context {
	return obscontext.WithActor(context.Background(), role, "1001")
}

func TestRolePolicies(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{obscontext.RoleCustomer, ObjectQuote, ActionQuoteSubmit, true},
		{obscontext.RoleCustomer, ObjectProof, ActionProofRespond, true},
		{obscontext.RoleCustomer, ObjectBooking, ActionBookingCancel, true},
		{obscontext.RoleCustomer, ObjectQuote, ActionQuoteFinalize, false},
		{obscontext.RoleCustomer, ObjectOrder, ActionOrderAdvance, false},
		{obscontext.RoleCustomer, ObjectProof, ActionProofUpload, false},
		{obscontext.RoleStaff, ObjectQuote, ActionQuoteFinalize, true},
		{obscontext.RoleStaff, ObjectOrder, ActionOrderAdvance, true},
		{obscontext.RoleStaff, ObjectProof, ActionProofUpload, true},
		{obscontext.RoleStaff, ObjectProof, ActionProofRespond, false},
		{obscontext.RoleStaff, ObjectOrder, ActionOrderRevisionOverride, false},
		{obscontext.RoleStaff, ObjectCapacity, ActionCapacityManage, false},
		{obscontext.RoleAdmin, ObjectOrder, ActionOrderRevisionOverride, true},
		{obscontext.RoleAdmin, ObjectCapacity, ActionCapacityManage, true},
		{obscontext.RoleSystem, ObjectQuote, ActionQuoteReview, true},
	}

	for _, tc := range cases {
		err := svc.Authorize(asActor(tc.role), tc.object, tc.action)
		if tc.allowed {
			require.NoError(t, err, "%s %s", tc.role, tc.action)
			continue
		}
		require.ErrorIs(t, err, ErrForbidden, "%s %s", tc.role, tc.action)
	}
}

func TestUnknownActorIsRejected(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Authorize(context.Background(), ObjectQuote, ActionQuoteView)
	require.ErrorIs(t, err, ErrInvalidActor)
	require.Equal(t, errs.KindForbidden, errs.KindOf(err))

	err = svc.Authorize(asActor("intern"), ObjectQuote, ActionQuoteView)
	require.ErrorIs(t, err, ErrInvalidActor)

	err = svc.Authorize(asActor(obscontext.RoleStaff), " ", ActionQuoteView)
	require.True(t, errors.Is(err, ErrInvalidObject))
}

func TestSeedingIsRepeatable(t *testing.T) {
	_, conn := newTestService(t)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Table("casbin_rule").Count(&count).Error)
	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	require.Equal(t, int64(len(policies)), count)
}
