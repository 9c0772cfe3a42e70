package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-invites/internal/lifecycle"
	"ms-invites/internal/models"
)

type KafkaPublisher interface {
	PublishInviteCheckedIn(invite models.Invite) error
}

// Service is the gate: the single authoritative entry point for admitting a
// bearer. Duplicate scans from multiple doors are an expected operational
// condition, so a duplicate is a normal rejected outcome, never a crash.
type Service struct {
	Lifecycle *lifecycle.Service
	Kafka     KafkaPublisher
}

func NewService(lc *lifecycle.Service) *Service {
	return &Service{Lifecycle: lc}
}

// Checkin admits the bearer of code at eventID at most once. The underlying
// paid→checked_in compare-and-set guarantees that of two concurrent scans of
// the same code exactly one wins; the other gets ErrAlreadyCheckedIn.
func (s *Service) Checkin(ctx context.Context, eventID, code string) (*models.CheckinResult, error) {
	if eventID == "" || code == "" {
		return nil, fmt.Errorf("event_id and code are required")
	}

	invite, err := s.Lifecycle.CheckIn(ctx, eventID, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Tell "unknown code" apart from "scanner is on the wrong event".
			if other, ferr := s.Lifecycle.FindByCode(ctx, code); ferr == nil && other.EventID != eventID {
				return nil, fmt.Errorf("code %s belongs to event %s: %w", code, other.EventID, models.ErrWrongEvent)
			}
		}
		return nil, err
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishInviteCheckedIn(*invite); err != nil {
			fmt.Printf("Kafka publish error (invite checked in %s): %v\n", invite.Code, err)
		}
	}

	return snapshot(invite), nil
}

// Recent lists the latest admissions for the gate UI.
func (s *Service) Recent(ctx context.Context, eventID string, limit int) ([]models.CheckinResult, error) {
	invites, err := s.Lifecycle.RecentCheckins(ctx, eventID, limit)
	if err != nil {
		return nil, err
	}
	results := make([]models.CheckinResult, 0, len(invites))
	for i := range invites {
		results = append(results, *snapshot(&invites[i]))
	}
	return results, nil
}

func snapshot(invite *models.Invite) *models.CheckinResult {
	return &models.CheckinResult{
		EventID:     invite.EventID,
		Code:        invite.Code,
		BuyerName:   invite.BuyerName,
		Tier:        invite.Tier,
		Kind:        invite.Kind,
		SellerID:    invite.SellerID,
		CheckedInAt: invite.CheckedInAt.Format(time.RFC3339),
	}
}
