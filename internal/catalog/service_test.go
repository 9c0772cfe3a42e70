package catalog_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-invites/internal/catalog"
	"ms-invites/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	err = bunDB.ResetModel(context.Background(), (*models.Event)(nil), (*models.CodeRange)(nil))
	require.NoError(t, err)

	return catalog.NewService(&catalog.DB{Bun: bunDB})
}

func sampleEvent() *models.Event {
	return &models.Event{
		ID:        "event001",
		Name:      "Festa Junina 2026",
		Venue:     "Sede do clube",
		StartsAt:  time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC),
		Capacity:  1200,
		FullPrice: 100.0,
		AllowHalf: true,
		Ranges: []*models.CodeRange{
			{Kind: models.KindPhysical, Prefix: "F", UpperBound: 500},
			{Kind: models.KindDigital, Prefix: "D", UpperBound: 500},
			{Kind: models.KindSponsorship, Prefix: "P", UpperBound: 200},
		},
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, sampleEvent())
	require.NoError(t, err)

	event, err := svc.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Festa Junina 2026", event.Name)
	assert.Len(t, event.Ranges, 3)

	rng := event.RangeFor(models.KindPhysical)
	require.NotNil(t, rng)
	assert.Equal(t, "F", rng.Prefix)
	assert.Equal(t, 500, rng.UpperBound)
}

func TestGetEventNotFound(t *testing.T) {
	svc := setupCatalog(t)

	_, err := svc.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateEventValidation(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	noName := sampleEvent()
	noName.Name = ""
	_, err := svc.CreateEvent(ctx, noName)
	assert.Error(t, err)

	noRanges := sampleEvent()
	noRanges.Ranges = nil
	_, err = svc.CreateEvent(ctx, noRanges)
	assert.Error(t, err)

	badPrice := sampleEvent()
	badPrice.FullPrice = 0
	_, err = svc.CreateEvent(ctx, badPrice)
	assert.Error(t, err)

	badPrefix := sampleEvent()
	badPrefix.Ranges[0].Prefix = "FF"
	_, err = svc.CreateEvent(ctx, badPrefix)
	assert.Error(t, err)
}

func TestCreateEventRejectsDuplicateKind(t *testing.T) {
	svc := setupCatalog(t)

	// All ranges start at 1, so a second range for the same kind overlaps.
	event := sampleEvent()
	event.Ranges = []*models.CodeRange{
		{Kind: models.KindPhysical, Prefix: "F", UpperBound: 300},
		{Kind: models.KindPhysical, Prefix: "G", UpperBound: 200},
	}
	_, err := svc.CreateEvent(context.Background(), event)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping")
}

func TestCreateEventRejectsRangesOverCapacity(t *testing.T) {
	svc := setupCatalog(t)

	event := sampleEvent()
	event.Capacity = 1000 // ranges hold 1200
	_, err := svc.CreateEvent(context.Background(), event)
	assert.Error(t, err)
}

func TestResolveSale(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, sampleEvent())
	require.NoError(t, err)

	event, rng, price, err := svc.ResolveSale(ctx, created.ID, models.KindPhysical, models.TierFull)
	require.NoError(t, err)
	assert.Equal(t, created.ID, event.ID)
	assert.Equal(t, "F", rng.Prefix)
	assert.Equal(t, 100.0, price)

	// Half tier defaults to 50% of full.
	_, _, halfPrice, err := svc.ResolveSale(ctx, created.ID, models.KindDigital, models.TierHalf)
	require.NoError(t, err)
	assert.Equal(t, 50.0, halfPrice)
}

func TestResolveSaleUnknownKind(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	event := sampleEvent()
	event.Ranges = []*models.CodeRange{{Kind: models.KindPhysical, Prefix: "F", UpperBound: 500}}
	created, err := svc.CreateEvent(ctx, event)
	require.NoError(t, err)

	_, _, _, err = svc.ResolveSale(ctx, created.ID, models.KindSponsorship, models.TierFull)
	assert.ErrorIs(t, err, models.ErrUnknownKind)
}

func TestResolveSaleHalfNotAllowed(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	event := sampleEvent()
	event.AllowHalf = false
	created, err := svc.CreateEvent(ctx, event)
	require.NoError(t, err)

	_, _, _, err = svc.ResolveSale(ctx, created.ID, models.KindPhysical, models.TierHalf)
	assert.Error(t, err)
}
