package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Seller is the "companheiro": a club member authorized to sell a quota of
// invites for an event. Quotas are mutated only by explicit administrative
// reassignment, never implicitly.
type Seller struct {
	bun.BaseModel `bun:"table:sellers"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Contact   string    `bun:"contact" json:"contact"`
	Email     string    `bun:"email,nullzero" json:"email,omitempty"`
	Active    bool      `bun:"active" json:"active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// SellerQuota is the configured ceiling for (event, seller, kind).
type SellerQuota struct {
	bun.BaseModel `bun:"table:seller_quotas"`

	EventID  string     `bun:"event_id,pk" json:"event_id"`
	SellerID string     `bun:"seller_id,pk" json:"seller_id"`
	Kind     InviteKind `bun:"kind,pk" json:"kind"`
	MaxCodes int        `bun:"max_codes,notnull" json:"max_codes"`
}

// QuotaUsage counts codes already allocated for (event, seller, kind).
// Created lazily on first allocation, incremented only inside the same
// transaction that creates the invites, and decremented only by an explicit
// administrative revocation with quota refund.
type QuotaUsage struct {
	bun.BaseModel `bun:"table:quota_usage"`

	EventID  string     `bun:"event_id,pk" json:"event_id"`
	SellerID string     `bun:"seller_id,pk" json:"seller_id"`
	Kind     InviteKind `bun:"kind,pk" json:"kind"`
	Used     int        `bun:"used,notnull" json:"used"`
}
