package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-invites/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateSeller(ctx context.Context, seller *models.Seller) error {
	_, err := d.Bun.NewInsert().Model(seller).Exec(ctx)
	return err
}

func (d *DB) GetSeller(ctx context.Context, sellerID string) (*models.Seller, error) {
	var seller models.Seller
	err := d.Bun.NewSelect().
		Model(&seller).
		Where("id = ?", sellerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seller %s: %w", sellerID, models.ErrUnknownSeller)
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// UpsertQuota writes the configured ceiling for (event, seller, kind).
func (d *DB) UpsertQuota(ctx context.Context, q *models.SellerQuota) error {
	_, err := d.Bun.NewInsert().
		Model(q).
		On("CONFLICT (event_id, seller_id, kind) DO UPDATE").
		Set("max_codes = EXCLUDED.max_codes").
		Exec(ctx)
	return err
}

func (d *DB) GetQuota(ctx context.Context, eventID, sellerID string, kind models.InviteKind) (*models.SellerQuota, error) {
	var q models.SellerQuota
	err := d.Bun.NewSelect().
		Model(&q).
		Where("event_id = ?", eventID).
		Where("seller_id = ?", sellerID).
		Where("kind = ?", kind).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no quota for seller %s on event %s kind %s: %w", sellerID, eventID, kind, models.ErrQuotaExceeded)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (d *DB) GetUsage(ctx context.Context, eventID, sellerID string, kind models.InviteKind) (int, error) {
	var usage models.QuotaUsage
	err := d.Bun.NewSelect().
		Model(&usage).
		Where("event_id = ?", eventID).
		Where("seller_id = ?", sellerID).
		Where("kind = ?", kind).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.Used, nil
}

// Reserve admits quantity codes against the (event, seller, kind) ceiling, or
// fails with ErrQuotaExceeded. The usage row is created lazily, then bumped by
// a single conditional UPDATE, so a race between two reservations can never
// push used past max. Runs on the caller's transaction: the reservation
// commits or rolls back together with the code assignment.
func Reserve(ctx context.Context, idb bun.IDB, eventID, sellerID string, kind models.InviteKind, quantity, max int) error {
	usage := &models.QuotaUsage{EventID: eventID, SellerID: sellerID, Kind: kind, Used: 0}
	_, err := idb.NewInsert().
		Model(usage).
		On("CONFLICT (event_id, seller_id, kind) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("init quota usage: %w", err)
	}

	res, err := idb.NewUpdate().
		Model((*models.QuotaUsage)(nil)).
		Set("used = used + ?", quantity).
		Where("event_id = ?", eventID).
		Where("seller_id = ?", sellerID).
		Where("kind = ?", kind).
		Where("used + ? <= ?", quantity, max).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("seller %s event %s kind %s: %w", sellerID, eventID, kind, models.ErrQuotaExceeded)
	}
	return nil
}

// Refund gives quantity slots back after an administrative revocation. It
// never drives usage negative.
func Refund(ctx context.Context, idb bun.IDB, eventID, sellerID string, kind models.InviteKind, quantity int) error {
	res, err := idb.NewUpdate().
		Model((*models.QuotaUsage)(nil)).
		Set("used = used - ?", quantity).
		Where("event_id = ?", eventID).
		Where("seller_id = ?", sellerID).
		Where("kind = ?", kind).
		Where("used >= ?", quantity).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("refund quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no usage to refund for seller %s event %s kind %s", sellerID, eventID, kind)
	}
	return nil
}
