package catalog

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

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if len(event.Ranges) > 0 {
			if _, err := tx.NewInsert().Model(&event.Ranges).Exec(ctx); err != nil {
				return fmt.Errorf("insert code ranges: %w", err)
			}
		}
		return nil
	})
}

func (d *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Ranges").
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("Ranges").
		Order("starts_at").
		Scan(ctx)
	return events, err
}
