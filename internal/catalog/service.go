package catalog

import (
	"context"
	"fmt"
	"time"

	"ms-invites/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
}

// Service is the event catalog: it owns event definitions (capacity, price
// tiers, code ranges) and is read by everything else.
type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

// CreateEvent validates the range layout before writing anything. All ranges
// start at 1, so two ranges of the same kind always overlap; one range per
// kind is the only legal layout. The summed range sizes must fit the event's
// capacity.
func (s *Service) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if event.Capacity < 1 {
		return nil, fmt.Errorf("event capacity must be >= 1, got %d", event.Capacity)
	}
	if event.FullPrice <= 0 {
		return nil, fmt.Errorf("event full price must be > 0, got %.2f", event.FullPrice)
	}
	if event.HalfPricePercent < 0 || event.HalfPricePercent > 100 {
		return nil, fmt.Errorf("half price percent must be within [0,100], got %.2f", event.HalfPricePercent)
	}
	if len(event.Ranges) == 0 {
		return nil, fmt.Errorf("event needs at least one code range")
	}

	seenKinds := map[models.InviteKind]bool{}
	totalSize := 0
	for _, r := range event.Ranges {
		if _, err := models.ParseKind(string(r.Kind)); err != nil {
			return nil, err
		}
		if seenKinds[r.Kind] {
			return nil, fmt.Errorf("overlapping ranges for kind %s", r.Kind)
		}
		seenKinds[r.Kind] = true
		if len(r.Prefix) != 1 {
			return nil, fmt.Errorf("range prefix must be a single character, got %q", r.Prefix)
		}
		if r.UpperBound < 1 {
			return nil, fmt.Errorf("range upper bound must be >= 1, got %d", r.UpperBound)
		}
		r.EventID = event.ID
		totalSize += r.Size()
	}
	if totalSize > event.Capacity {
		return nil, fmt.Errorf("ranges hold %d codes but event capacity is %d", totalSize, event.Capacity)
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.DB.GetEvent(ctx, eventID)
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.DB.ListEvents(ctx)
}

// ResolveSale resolves the pieces an allocation needs in one call: the event,
// the range declared for the kind, and the unit price for the tier.
func (s *Service) ResolveSale(ctx context.Context, eventID string, kind models.InviteKind, tier models.Tier) (*models.Event, *models.CodeRange, float64, error) {
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, 0, err
	}
	rng := event.RangeFor(kind)
	if rng == nil {
		return nil, nil, 0, fmt.Errorf("event %s kind %s: %w", eventID, kind, models.ErrUnknownKind)
	}
	if tier == models.TierHalf && !event.AllowHalf {
		return nil, nil, 0, fmt.Errorf("event %s does not sell half tier", eventID)
	}
	return event, rng, event.TierPrice(tier), nil
}
