package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-invites/internal/models"
	"ms-invites/internal/quota"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetInvite(ctx context.Context, eventID, code string) (*models.Invite, error) {
	var invite models.Invite
	err := d.Bun.NewSelect().
		Model(&invite).
		Where("event_id = ?", eventID).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite %s/%s: %w", eventID, code, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// FindByCode looks an invite up by code alone, so the check-in gate can tell
// "no such code" apart from "code belongs to another event".
func (d *DB) FindByCode(ctx context.Context, code string) (*models.Invite, error) {
	var invite models.Invite
	err := d.Bun.NewSelect().
		Model(&invite).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite %s: %w", code, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// transition is the single compare-and-set every state change goes through:
// the state column moves to `to` only if it currently sits in `from`. Zero
// rows affected means the precondition lost a race or never held; the caller
// refetches to decide which documented error applies.
func transition(ctx context.Context, idb bun.IDB, eventID, code string, from []models.InviteState, to models.InviteState, set func(*bun.UpdateQuery)) (bool, error) {
	q := idb.NewUpdate().
		Model((*models.Invite)(nil)).
		Set("state = ?", to).
		Where("event_id = ?", eventID).
		Where("code = ?", code).
		Where("state IN (?)", bun.In(from))
	if set != nil {
		set(q)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("transition %s/%s to %s: %w", eventID, code, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkSent flips generated→sent.
func (d *DB) MarkSent(ctx context.Context, eventID, code string) (bool, error) {
	return transition(ctx, d.Bun, eventID, code, []models.InviteState{models.StateGenerated}, models.StateSent, nil)
}

// ConfirmPaid marks every code of one checkout paid in a single transaction.
// Any code that is missing or already terminal aborts the whole confirmation,
// leaving state exactly as it was.
func (d *DB) ConfirmPaid(ctx context.Context, eventID string, codes []string, method string, paidAt time.Time) error {
	nonTerminal := []models.InviteState{models.StateGenerated, models.StateSent}
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, code := range codes {
			ok, err := transition(ctx, tx, eventID, code, nonTerminal, models.StatePaid, func(q *bun.UpdateQuery) {
				q.Set("paid_at = ?", paidAt).Set("payment_method = ?", method)
			})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("invite %s/%s cannot move to paid: %w", eventID, code, models.ErrInvalidTransition)
			}
		}
		return nil
	})
}

// Cancel retires an invite from any non-terminal state. With refund the
// invite becomes revoked and the seller's quota slot is given back in the
// same transaction; without it the slot stays burned and the invite is
// cancelled. Either way the code number is never reissued.
func (d *DB) Cancel(ctx context.Context, invite *models.Invite, refund bool) (models.InviteState, error) {
	nonTerminal := []models.InviteState{models.StateGenerated, models.StateSent, models.StatePaid}
	target := models.StateCancelled
	if refund {
		target = models.StateRevoked
	}

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ok, err := transition(ctx, tx, invite.EventID, invite.Code, nonTerminal, target, nil)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("invite %s/%s is terminal: %w", invite.EventID, invite.Code, models.ErrInvalidTransition)
		}
		if refund && invite.Kind.RequiresSeller() && invite.SellerID != "" {
			return quota.Refund(ctx, tx, invite.EventID, invite.SellerID, invite.Kind, 1)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

// Expire retires one unpaid invite.
func (d *DB) Expire(ctx context.Context, eventID, code string) (bool, error) {
	return transition(ctx, d.Bun, eventID, code,
		[]models.InviteState{models.StateGenerated, models.StateSent}, models.StateExpired, nil)
}

// ExpireStale sweeps every generated/sent invite older than cutoff. Fallback
// for when the redis expiry notifications were missed.
func (d *DB) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Invite)(nil)).
		Set("state = ?", models.StateExpired).
		Where("state IN (?)", bun.In([]models.InviteState{models.StateGenerated, models.StateSent})).
		Where("created_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire stale invites: %w", err)
	}
	return res.RowsAffected()
}

// CheckIn flips paid→checked_in. This is the at-most-once admission CAS: of
// two concurrent scans, exactly one observes state = paid.
func (d *DB) CheckIn(ctx context.Context, eventID, code string, at time.Time) (bool, error) {
	return transition(ctx, d.Bun, eventID, code, []models.InviteState{models.StatePaid}, models.StateCheckedIn,
		func(q *bun.UpdateQuery) {
			q.Set("checked_in_at = ?", at)
		})
}

// RecentCheckins lists the latest admissions for the gate UI.
func (d *DB) RecentCheckins(ctx context.Context, eventID string, limit int) ([]models.Invite, error) {
	var invites []models.Invite
	err := d.Bun.NewSelect().
		Model(&invites).
		Where("event_id = ?", eventID).
		Where("state = ?", models.StateCheckedIn).
		Order("checked_in_at DESC").
		Limit(limit).
		Scan(ctx)
	return invites, err
}
