package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

type InviteKind string

const (
	KindPhysical    InviteKind = "physical"
	KindDigital     InviteKind = "digital"
	KindSponsorship InviteKind = "sponsorship"
)

// RequiresSeller reports whether this kind draws on seller-owned inventory
// and therefore needs a seller and a quota check. Digital invites are
// self-serve links and bypass the per-seller quota.
func (k InviteKind) RequiresSeller() bool {
	return k == KindPhysical || k == KindSponsorship
}

func ParseKind(s string) (InviteKind, error) {
	switch InviteKind(s) {
	case KindPhysical, KindDigital, KindSponsorship:
		return InviteKind(s), nil
	}
	return "", fmt.Errorf("unknown invite kind %q: %w", s, ErrUnknownKind)
}

type InviteState string

const (
	StateGenerated InviteState = "generated"
	StateSent      InviteState = "sent"
	StatePaid      InviteState = "paid"
	StateCheckedIn InviteState = "checked_in"
	StateCancelled InviteState = "cancelled"
	StateExpired   InviteState = "expired"
	StateRevoked   InviteState = "revoked"
)

// Terminal reports whether no further transition may leave this state.
func (s InviteState) Terminal() bool {
	switch s {
	case StateCheckedIn, StateCancelled, StateExpired, StateRevoked:
		return true
	}
	return false
}

type Tier string

const (
	TierFull Tier = "full"
	TierHalf Tier = "half"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFull, TierHalf:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

type Invite struct {
	bun.BaseModel `bun:"table:invites"`

	EventID       string      `bun:"event_id,pk" json:"event_id"`
	Code          string      `bun:"code,pk" json:"code"`
	Number        int         `bun:"number,notnull" json:"number"`
	Kind          InviteKind  `bun:"kind,notnull" json:"kind"`
	Tier          Tier        `bun:"tier,notnull" json:"tier"`
	SellerID      string      `bun:"seller_id,nullzero" json:"seller_id,omitempty"`
	BuyerName     string      `bun:"buyer_name" json:"buyer_name"`
	BuyerContact  string      `bun:"buyer_contact" json:"buyer_contact"`
	BuyerEmail    string      `bun:"buyer_email,nullzero" json:"buyer_email,omitempty"`
	PriceDue      float64     `bun:"price_due,notnull" json:"price_due"`
	PaymentMethod string      `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	State         InviteState `bun:"state,notnull" json:"state"`
	QRCode        []byte      `bun:"qr_code" json:"-"`
	CreatedAt     time.Time   `bun:"created_at,notnull" json:"created_at"`
	PaidAt        time.Time   `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
	CheckedInAt   time.Time   `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
}

// CodeCounter is the durable "next number" per (event, kind). It is advanced
// only by a compare-and-swap so that any process instance observes a
// consistent, strictly increasing sequence.
type CodeCounter struct {
	bun.BaseModel `bun:"table:code_counters"`

	EventID string     `bun:"event_id,pk"`
	Kind    InviteKind `bun:"kind,pk"`
	Next    int        `bun:"next,notnull"`
}

// FormatCode renders prefix + zero-padded number, padded to the width of the
// range's upper bound (upper bound 500 gives F001..F500). Width never drops
// below 3 so small ranges still print the familiar F001 shape.
func FormatCode(prefix string, number, upperBound int) string {
	width := len(strconv.Itoa(upperBound))
	if width < 3 {
		width = 3
	}
	return fmt.Sprintf("%s%0*d", prefix, width, number)
}
