package quota

import (
	"context"
	"fmt"
	"time"

	"ms-invites/internal/models"
	"ms-invites/internal/utils"
)

type DBLayer interface {
	CreateSeller(ctx context.Context, seller *models.Seller) error
	GetSeller(ctx context.Context, sellerID string) (*models.Seller, error)
	UpsertQuota(ctx context.Context, q *models.SellerQuota) error
	GetQuota(ctx context.Context, eventID, sellerID string, kind models.InviteKind) (*models.SellerQuota, error)
	GetUsage(ctx context.Context, eventID, sellerID string, kind models.InviteKind) (int, error)
}

// Service is the quota ledger's administrative surface: seller registration,
// quota reassignment, and remaining-quota reads. The admit-or-deny step of an
// allocation does not go through here; it runs as quota.Reserve inside the
// allocator's transaction, which is what keeps check and increment atomic.
type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

func (s *Service) RegisterSeller(ctx context.Context, seller *models.Seller) (*models.Seller, error) {
	if seller.Name == "" {
		return nil, fmt.Errorf("seller name is required")
	}
	if seller.ID == "" {
		seller.ID = utils.GenerateSellerID()
	}
	seller.Active = true
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = time.Now()
	}
	if err := s.DB.CreateSeller(ctx, seller); err != nil {
		return nil, fmt.Errorf("register seller: %w", err)
	}
	return seller, nil
}

func (s *Service) GetSeller(ctx context.Context, sellerID string) (*models.Seller, error) {
	return s.DB.GetSeller(ctx, sellerID)
}

// AssignQuota sets the ceiling for (event, seller, kind). This is the only
// path that mutates a quota; allocations never do.
func (s *Service) AssignQuota(ctx context.Context, eventID, sellerID string, kind models.InviteKind, maxCodes int) error {
	if maxCodes < 0 {
		return fmt.Errorf("quota must not be negative, got %d", maxCodes)
	}
	if _, err := s.DB.GetSeller(ctx, sellerID); err != nil {
		return err
	}
	return s.DB.UpsertQuota(ctx, &models.SellerQuota{
		EventID:  eventID,
		SellerID: sellerID,
		Kind:     kind,
		MaxCodes: maxCodes,
	})
}

// Remaining reports how many codes the seller may still request.
func (s *Service) Remaining(ctx context.Context, eventID, sellerID string, kind models.InviteKind) (int, error) {
	q, err := s.DB.GetQuota(ctx, eventID, sellerID, kind)
	if err != nil {
		return 0, err
	}
	used, err := s.DB.GetUsage(ctx, eventID, sellerID, kind)
	if err != nil {
		return 0, err
	}
	return q.MaxCodes - used, nil
}
