package allocator

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

// BlockRequest describes one atomic allocation: quantity consecutive numbers
// from the range, one invite per number, plus the quota reservation when the
// kind draws on seller inventory.
type BlockRequest struct {
	Event     *models.Event
	Range     *models.CodeRange
	Kind      models.InviteKind
	Tier      models.Tier
	SellerID  string
	Quantity  int
	UnitPrice float64
	Buyer     models.Buyer
	// QRFunc renders the QR payload for a fully-formed invite. Called inside
	// the transaction so a QR failure aborts the whole block.
	QRFunc func(models.Invite) ([]byte, error)
}

// AllocateCodes runs one atomic allocation: advance the (event, kind) counter,
// reserve seller quota, and insert the invites, all-or-nothing. The counter
// is a row bumped by a conditional UPDATE, so two concurrent blocks for the
// same key serialize on the row and can never hand out the same number.
func (d *DB) AllocateCodes(ctx context.Context, req BlockRequest) ([]models.Invite, error) {
	var invites []models.Invite

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		counter := &models.CodeCounter{EventID: req.Event.ID, Kind: req.Kind, Next: 1}
		if _, err := tx.NewInsert().
			Model(counter).
			On("CONFLICT (event_id, kind) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("init code counter: %w", err)
		}

		var newNext int
		err := tx.NewUpdate().
			Model((*models.CodeCounter)(nil)).
			Set("next = next + ?", req.Quantity).
			Where("event_id = ?", req.Event.ID).
			Where("kind = ?", req.Kind).
			Where("next + ? - 1 <= ?", req.Quantity, req.Range.UpperBound).
			Returning("next").
			Scan(ctx, &newNext)
		if errors.Is(err, sql.ErrNoRows) {
			// The guard refused: not enough numbers left in the range.
			return fmt.Errorf("event %s kind %s: %w", req.Event.ID, req.Kind, models.ErrExhaustedRange)
		}
		if err != nil {
			return fmt.Errorf("advance code counter: %w", err)
		}
		firstNumber := newNext - req.Quantity

		if req.Kind.RequiresSeller() {
			var q models.SellerQuota
			err := tx.NewSelect().
				Model(&q).
				Where("event_id = ?", req.Event.ID).
				Where("seller_id = ?", req.SellerID).
				Where("kind = ?", req.Kind).
				Limit(1).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no quota for seller %s on event %s kind %s: %w",
					req.SellerID, req.Event.ID, req.Kind, models.ErrQuotaExceeded)
			}
			if err != nil {
				return fmt.Errorf("read seller quota: %w", err)
			}
			if err := quota.Reserve(ctx, tx, req.Event.ID, req.SellerID, req.Kind, req.Quantity, q.MaxCodes); err != nil {
				return err
			}
		}

		now := time.Now()
		invites = make([]models.Invite, 0, req.Quantity)
		for i := 0; i < req.Quantity; i++ {
			number := firstNumber + i
			invite := models.Invite{
				EventID:      req.Event.ID,
				Code:         models.FormatCode(req.Range.Prefix, number, req.Range.UpperBound),
				Number:       number,
				Kind:         req.Kind,
				Tier:         req.Tier,
				SellerID:     req.SellerID,
				BuyerName:    req.Buyer.Name,
				BuyerContact: req.Buyer.Contact,
				BuyerEmail:   req.Buyer.Email,
				PriceDue:     req.UnitPrice,
				State:        models.StateGenerated,
				CreatedAt:    now,
			}
			if req.QRFunc != nil {
				qrBytes, err := req.QRFunc(invite)
				if err != nil {
					return fmt.Errorf("generate QR for %s: %w", invite.Code, err)
				}
				invite.QRCode = qrBytes
			}
			invites = append(invites, invite)
		}

		if _, err := tx.NewInsert().Model(&invites).Exec(ctx); err != nil {
			return fmt.Errorf("insert invites: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invites, nil
}

// HighestNumber returns the highest assigned number for (event, kind), 0 when
// none. Diagnostic read, not part of the allocation path.
func (d *DB) HighestNumber(ctx context.Context, eventID string, kind models.InviteKind) (int, error) {
	var counter models.CodeCounter
	err := d.Bun.NewSelect().
		Model(&counter).
		Where("event_id = ?", eventID).
		Where("kind = ?", kind).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Next - 1, nil
}
