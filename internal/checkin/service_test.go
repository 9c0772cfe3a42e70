package checkin_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ms-invites/internal/catalog"
	"ms-invites/internal/checkin"
	"ms-invites/internal/lifecycle"
	"ms-invites/internal/models"
	"ms-invites/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type fixture struct {
	bun *bun.DB
	svc *checkin.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	err = bunDB.ResetModel(context.Background(),
		(*models.Event)(nil), (*models.CodeRange)(nil),
		(*models.QuotaUsage)(nil), (*models.Invite)(nil))
	require.NoError(t, err)

	calc, err := payment.NewCalculator(map[string]payment.Fee{"cash": {}})
	require.NoError(t, err)

	catalogSvc := catalog.NewService(&catalog.DB{Bun: bunDB})
	lcSvc := lifecycle.NewService(&lifecycle.DB{Bun: bunDB}, catalogSvc, calc)
	return &fixture{bun: bunDB, svc: checkin.NewService(lcSvc)}
}

func seedInvite(t *testing.T, f *fixture, eventID, code string, number int, state models.InviteState) {
	t.Helper()
	invite := &models.Invite{
		EventID:      eventID,
		Code:         code,
		Number:       number,
		Kind:         models.KindPhysical,
		Tier:         models.TierFull,
		SellerID:     "comp001",
		BuyerName:    "Maria",
		BuyerContact: "+55 11 98888-0001",
		PriceDue:     100.0,
		State:        state,
		CreatedAt:    time.Now(),
	}
	if state == models.StateCheckedIn {
		invite.CheckedInAt = time.Now()
	}
	_, err := f.bun.NewInsert().Model(invite).Exec(context.Background())
	require.NoError(t, err)
}

func TestCheckinAdmitsPaidInvite(t *testing.T) {
	f := setup(t)
	seedInvite(t, f, "event001", "F001", 1, models.StatePaid)

	result, err := f.svc.Checkin(context.Background(), "event001", "F001")
	require.NoError(t, err)
	assert.Equal(t, "F001", result.Code)
	assert.Equal(t, "Maria", result.BuyerName)
	assert.Equal(t, models.TierFull, result.Tier)
	assert.Equal(t, "comp001", result.SellerID)
	assert.NotEmpty(t, result.CheckedInAt)
}

func TestCheckinUnknownCode(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Checkin(context.Background(), "event001", "F999")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCheckinWrongEvent(t *testing.T) {
	f := setup(t)
	seedInvite(t, f, "event002", "F001", 1, models.StatePaid)

	// The scanner is configured for event001 but the code was sold for
	// event002.
	_, err := f.svc.Checkin(context.Background(), "event001", "F001")
	assert.ErrorIs(t, err, models.ErrWrongEvent)
}

func TestCheckinUnpaidInvite(t *testing.T) {
	f := setup(t)
	seedInvite(t, f, "event001", "F001", 1, models.StateSent)

	_, err := f.svc.Checkin(context.Background(), "event001", "F001")
	assert.ErrorIs(t, err, models.ErrNotPaid)
}

func TestCheckinCancelledInvite(t *testing.T) {
	f := setup(t)
	seedInvite(t, f, "event001", "F001", 1, models.StateCancelled)

	_, err := f.svc.Checkin(context.Background(), "event001", "F001")
	assert.ErrorIs(t, err, models.ErrNotPaid)
}

func TestCheckinDuplicateScan(t *testing.T) {
	f := setup(t)
	seedInvite(t, f, "event001", "F001", 1, models.StatePaid)
	ctx := context.Background()

	_, err := f.svc.Checkin(ctx, "event001", "F001")
	require.NoError(t, err)

	_, err = f.svc.Checkin(ctx, "event001", "F001")
	assert.ErrorIs(t, err, models.ErrAlreadyCheckedIn)
}

func TestCheckinMissingArguments(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Checkin(context.Background(), "", "F001")
	assert.Error(t, err)

	_, err = f.svc.Checkin(context.Background(), "event001", "")
	assert.Error(t, err)
}

func TestConcurrentScansAdmitExactlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Two doors scan the same code at once, several times over. Every trial
	// must admit exactly one scan and reject the other as a duplicate.
	for trial := 0; trial < 5; trial++ {
		code := fmt.Sprintf("F%03d", trial+1)
		seedInvite(t, f, "event001", code, trial+1, models.StatePaid)

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for door := 0; door < 2; door++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Checkin(ctx, "event001", code)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		admitted, rejected := 0, 0
		for err := range results {
			if err == nil {
				admitted++
			} else if errors.Is(err, models.ErrAlreadyCheckedIn) {
				rejected++
			} else {
				t.Fatalf("unexpected error on trial %d: %v", trial, err)
			}
		}
		assert.Equal(t, 1, admitted, "trial %d", trial)
		assert.Equal(t, 1, rejected, "trial %d", trial)
	}
}

func TestRecentCheckins(t *testing.T) {
	f := setup(t)
	seedInvite(t, f, "event001", "F001", 1, models.StateCheckedIn)
	seedInvite(t, f, "event001", "F002", 2, models.StateCheckedIn)
	seedInvite(t, f, "event001", "F003", 3, models.StatePaid)

	results, err := f.svc.Recent(context.Background(), "event001", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.NotEmpty(t, r.CheckedInAt)
	}
}
