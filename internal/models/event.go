package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID               string    `bun:"id,pk" json:"id"`
	Name             string    `bun:"name,notnull" json:"name"`
	Venue            string    `bun:"venue" json:"venue"`
	StartsAt         time.Time `bun:"starts_at,notnull" json:"starts_at"`
	Capacity         int       `bun:"capacity,notnull" json:"capacity"`
	FullPrice        float64   `bun:"full_price,notnull" json:"full_price"`
	HalfPricePercent float64   `bun:"half_price_percent,nullzero" json:"half_price_percent,omitempty"`
	AllowHalf        bool      `bun:"allow_half" json:"allow_half"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`

	Ranges []*CodeRange `bun:"rel:has-many,join:id=event_id" json:"ranges,omitempty"`
}

// DefaultHalfPricePercent applies when an event does not override the half
// tier (half = 50% of full).
const DefaultHalfPricePercent = 50.0

// TierPrice resolves the unit price for a tier. PaymentCalculator is
// tier-agnostic and always receives an already-resolved price.
func (e *Event) TierPrice(tier Tier) float64 {
	if tier == TierHalf {
		pct := e.HalfPricePercent
		if pct == 0 {
			pct = DefaultHalfPricePercent
		}
		return e.FullPrice * pct / 100
	}
	return e.FullPrice
}

// RangeFor returns the code range declared for kind, or nil.
func (e *Event) RangeFor(kind InviteKind) *CodeRange {
	for _, r := range e.Ranges {
		if r.Kind == kind {
			return r
		}
	}
	return nil
}

// CodeRange is one numbering range [1, UpperBound] for a kind, rendered with
// a one-character prefix (F, D, P in the seeded events).
type CodeRange struct {
	bun.BaseModel `bun:"table:code_ranges"`

	EventID    string     `bun:"event_id,pk" json:"event_id"`
	Kind       InviteKind `bun:"kind,pk" json:"kind"`
	Prefix     string     `bun:"prefix,notnull" json:"prefix"`
	UpperBound int        `bun:"upper_bound,notnull" json:"upper_bound"`
}

// Size returns how many numbers the range holds.
func (r *CodeRange) Size() int {
	return r.UpperBound
}
