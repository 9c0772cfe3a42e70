package allocator

import (
	"context"
	"fmt"
	"time"

	"ms-invites/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	AllocateCodes(ctx context.Context, req BlockRequest) ([]models.Invite, error)
	HighestNumber(ctx context.Context, eventID string, kind models.InviteKind) (int, error)
}

type Catalog interface {
	ResolveSale(ctx context.Context, eventID string, kind models.InviteKind, tier models.Tier) (*models.Event, *models.CodeRange, float64, error)
}

type SellerDirectory interface {
	GetSeller(ctx context.Context, sellerID string) (*models.Seller, error)
}

type KafkaPublisher interface {
	PublishInviteGenerated(invite models.Invite) error
}

type QRGenerator interface {
	GenerateEncryptedQR(invite models.Invite) ([]byte, error)
}

// PaymentTracker arms the unpaid-payment timer for freshly minted invites.
type PaymentTracker interface {
	TrackPaymentWindow(eventID, code string, window time.Duration) error
}

// Service mints unique invite codes out of the ranges declared by the
// catalog, consulting the quota ledger before issuing.
type Service struct {
	DB            DBLayer
	Catalog       Catalog
	Sellers       SellerDirectory
	Locker        Locker
	Kafka         KafkaPublisher
	QR            QRGenerator
	Tracker       PaymentTracker
	PaymentWindow time.Duration
}

func NewService(db DBLayer, catalog Catalog, sellers SellerDirectory, locker Locker) *Service {
	return &Service{
		DB:      db,
		Catalog: catalog,
		Sellers: sellers,
		Locker:  locker,
	}
}

// Allocate handles one sale request: quantity consecutive codes for
// (event, kind), bound to new invites in state generated. Numbering is
// strictly monotonic per (event, kind); a number is never reused, even after
// cancellation.
func (s *Service) Allocate(ctx context.Context, req models.SaleRequest) (*models.SaleResponse, []models.Invite, error) {
	if req.Quantity < 1 {
		return nil, nil, fmt.Errorf("quantity must be >= 1, got %d", req.Quantity)
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		return nil, nil, err
	}
	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		return nil, nil, err
	}

	if kind.RequiresSeller() {
		if req.SellerID == "" {
			return nil, nil, fmt.Errorf("kind %s requires a seller", kind)
		}
		seller, err := s.Sellers.GetSeller(ctx, req.SellerID)
		if err != nil {
			return nil, nil, err
		}
		if !seller.Active {
			return nil, nil, fmt.Errorf("seller %s is not active: %w", req.SellerID, models.ErrUnknownSeller)
		}
	}

	event, rng, unitPrice, err := s.Catalog.ResolveSale(ctx, req.EventID, kind, tier)
	if err != nil {
		return nil, nil, err
	}

	owner := uuid.New().String()
	ok, err := s.Locker.Acquire(event.ID, kind, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("allocation lock error: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("allocation for %s/%s is busy: %w", event.ID, kind, models.ErrConflict)
	}
	defer s.Locker.Release(event.ID, kind, owner)

	block := BlockRequest{
		Event:     event,
		Range:     rng,
		Kind:      kind,
		Tier:      tier,
		SellerID:  req.SellerID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
		Buyer:     req.Buyer,
	}
	if s.QR != nil {
		block.QRFunc = s.QR.GenerateEncryptedQR
	}

	invites, err := s.DB.AllocateCodes(ctx, block)
	if err != nil {
		return nil, nil, err
	}

	resp := &models.SaleResponse{EventID: event.ID}
	for _, invite := range invites {
		resp.Codes = append(resp.Codes, models.AllocatedCode{Code: invite.Code, PriceDue: invite.PriceDue})
		resp.Subtotal += invite.PriceDue

		if s.Kafka != nil {
			if err := s.Kafka.PublishInviteGenerated(invite); err != nil {
				fmt.Printf("Kafka publish error (invite generated %s): %v\n", invite.Code, err)
			}
		}
		if s.Tracker != nil && s.PaymentWindow > 0 {
			if err := s.Tracker.TrackPaymentWindow(event.ID, invite.Code, s.PaymentWindow); err != nil {
				fmt.Printf("Failed to arm payment window for %s: %v\n", invite.Code, err)
			}
		}
	}
	return resp, invites, nil
}

// HighestNumber reports the last number handed out for (event, kind).
func (s *Service) HighestNumber(ctx context.Context, eventID string, kind models.InviteKind) (int, error) {
	return s.DB.HighestNumber(ctx, eventID, kind)
}
