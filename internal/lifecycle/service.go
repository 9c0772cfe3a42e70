package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"ms-invites/internal/models"
	"ms-invites/internal/payment"
)

type DBLayer interface {
	GetInvite(ctx context.Context, eventID, code string) (*models.Invite, error)
	FindByCode(ctx context.Context, code string) (*models.Invite, error)
	MarkSent(ctx context.Context, eventID, code string) (bool, error)
	ConfirmPaid(ctx context.Context, eventID string, codes []string, method string, paidAt time.Time) error
	Cancel(ctx context.Context, invite *models.Invite, refund bool) (models.InviteState, error)
	Expire(ctx context.Context, eventID, code string) (bool, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
	CheckIn(ctx context.Context, eventID, code string, at time.Time) (bool, error)
	RecentCheckins(ctx context.Context, eventID string, limit int) ([]models.Invite, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type KafkaPublisher interface {
	PublishDeliveryRequest(req models.DeliveryRequest) error
	PublishInvitePaid(invite models.Invite) error
	PublishInviteCancelled(invite models.Invite) error
}

// PaymentTracker disarms the unpaid-invite timer once an invite settles.
type PaymentTracker interface {
	ClearPaymentWindow(eventID, code string) error
}

// Service owns the invite lifecycle: generated → sent → paid → checked_in,
// with cancelled, expired, and revoked side exits. Transitions are the only
// legal mutation path; nothing else writes the state column.
type Service struct {
	DB         DBLayer
	Events     EventReader
	Calculator *payment.Calculator
	Kafka      KafkaPublisher
	Tracker    PaymentTracker
}

func NewService(db DBLayer, events EventReader, calc *payment.Calculator) *Service {
	return &Service{DB: db, Events: events, Calculator: calc}
}

func (s *Service) GetInvite(ctx context.Context, eventID, code string) (*models.Invite, error) {
	return s.DB.GetInvite(ctx, eventID, code)
}

func (s *Service) FindByCode(ctx context.Context, code string) (*models.Invite, error) {
	return s.DB.FindByCode(ctx, code)
}

// MarkSent records that a delivery attempt was dispatched and emits the
// delivery request to the notification collaborator. Purely informational for
// the invite itself; delivery failures are the collaborator's concern, not
// retried here.
func (s *Service) MarkSent(ctx context.Context, eventID, code string) (*models.Invite, error) {
	invite, err := s.DB.GetInvite(ctx, eventID, code)
	if err != nil {
		return nil, err
	}

	ok, err := s.DB.MarkSent(ctx, eventID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invite %s is %s, not generated: %w", code, invite.State, models.ErrInvalidTransition)
	}
	invite.State = models.StateSent

	if s.Kafka != nil {
		event, err := s.Events.GetEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		req := models.DeliveryRequest{
			EventID:      event.ID,
			EventName:    event.Name,
			Venue:        event.Venue,
			Code:         invite.Code,
			BuyerName:    invite.BuyerName,
			BuyerContact: invite.BuyerContact,
			BuyerEmail:   invite.BuyerEmail,
			AmountDue:    models.FormatAmount(invite.PriceDue),
		}
		if err := s.Kafka.PublishDeliveryRequest(req); err != nil {
			fmt.Printf("Kafka publish error (delivery request %s): %v\n", invite.Code, err)
		}
	}
	return invite, nil
}

// ConfirmPayment settles one checkout. The confirmed amount must equal the
// computed total for the covered codes to the cent; a mismatch is never
// auto-corrected, it surfaces for manual reconciliation. All covered codes
// move to paid together or not at all.
func (s *Service) ConfirmPayment(ctx context.Context, conf models.PaymentConfirmation) ([]models.Invite, error) {
	if len(conf.Codes) == 0 {
		return nil, fmt.Errorf("payment confirmation covers no codes")
	}

	invites := make([]models.Invite, 0, len(conf.Codes))
	subtotal := 0.0
	for _, code := range conf.Codes {
		invite, err := s.DB.GetInvite(ctx, conf.EventID, code)
		if err != nil {
			return nil, err
		}
		invites = append(invites, *invite)
		subtotal += invite.PriceDue
	}

	breakdown, err := s.Calculator.ComputeSubtotalTotal(subtotal, conf.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if cents(conf.ConfirmedAmount) != cents(breakdown.Total) {
		return nil, fmt.Errorf("confirmed %.2f but %.2f due: %w",
			conf.ConfirmedAmount, breakdown.Total, models.ErrAmountMismatch)
	}

	paidAt := time.Now()
	if err := s.DB.ConfirmPaid(ctx, conf.EventID, conf.Codes, conf.PaymentMethod, paidAt); err != nil {
		return nil, err
	}

	for i := range invites {
		invites[i].State = models.StatePaid
		invites[i].PaidAt = paidAt
		invites[i].PaymentMethod = conf.PaymentMethod

		if s.Tracker != nil {
			if err := s.Tracker.ClearPaymentWindow(conf.EventID, invites[i].Code); err != nil {
				fmt.Printf("Failed to clear payment window for %s: %v\n", invites[i].Code, err)
			}
		}
		if s.Kafka != nil {
			if err := s.Kafka.PublishInvitePaid(invites[i]); err != nil {
				fmt.Printf("Kafka publish error (invite paid %s): %v\n", invites[i].Code, err)
			}
		}
	}
	return invites, nil
}

// Cancel is the administrative retirement of an invite. The code number stays
// burned either way; with quotaRefund the seller gets the slot back and the
// invite lands in revoked instead of cancelled.
func (s *Service) Cancel(ctx context.Context, eventID, code string, quotaRefund bool) (*models.Invite, error) {
	invite, err := s.DB.GetInvite(ctx, eventID, code)
	if err != nil {
		return nil, err
	}

	state, err := s.DB.Cancel(ctx, invite, quotaRefund)
	if err != nil {
		return nil, err
	}
	invite.State = state

	if s.Tracker != nil {
		if err := s.Tracker.ClearPaymentWindow(eventID, code); err != nil {
			fmt.Printf("Failed to clear payment window for %s: %v\n", code, err)
		}
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishInviteCancelled(*invite); err != nil {
			fmt.Printf("Kafka publish error (invite cancelled %s): %v\n", code, err)
		}
	}
	return invite, nil
}

// Expire retires one unpaid invite, driven by the payment-window timer. An
// invite that moved on (paid, terminal) is left alone.
func (s *Service) Expire(ctx context.Context, eventID, code string) (bool, error) {
	return s.DB.Expire(ctx, eventID, code)
}

// ExpireStale is the sweep fallback: retire everything unpaid past the
// window.
func (s *Service) ExpireStale(ctx context.Context, window time.Duration) (int64, error) {
	return s.DB.ExpireStale(ctx, time.Now().Add(-window))
}

// CheckIn performs the paid→checked_in compare-and-set and classifies a
// refused swap into the documented gate errors.
func (s *Service) CheckIn(ctx context.Context, eventID, code string) (*models.Invite, error) {
	at := time.Now()
	ok, err := s.DB.CheckIn(ctx, eventID, code, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		invite, err := s.DB.GetInvite(ctx, eventID, code)
		if err != nil {
			return nil, err
		}
		if invite.State == models.StateCheckedIn {
			return nil, fmt.Errorf("invite %s: %w", code, models.ErrAlreadyCheckedIn)
		}
		return nil, fmt.Errorf("invite %s is %s: %w", code, invite.State, models.ErrNotPaid)
	}

	invite, err := s.DB.GetInvite(ctx, eventID, code)
	if err != nil {
		return nil, err
	}
	return invite, nil
}

func (s *Service) RecentCheckins(ctx context.Context, eventID string, limit int) ([]models.Invite, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.DB.RecentCheckins(ctx, eventID, limit)
}

func cents(v float64) int64 {
	return int64(math.Floor(v*100 + 0.5))
}
