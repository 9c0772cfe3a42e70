package models

import "fmt"

// Buyer is the purchaser captured at sale time.
type Buyer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email,omitempty"`
}

// SaleRequest is the inbound sale boundary contract.
type SaleRequest struct {
	EventID  string `json:"event_id"`
	Kind     string `json:"kind"`
	SellerID string `json:"seller_id,omitempty"`
	Tier     string `json:"tier"`
	Quantity int    `json:"quantity"`
	Buyer    Buyer  `json:"buyer"`
}

// AllocatedCode is one {code, price_due} pair of the sale response.
type AllocatedCode struct {
	Code     string  `json:"code"`
	PriceDue float64 `json:"price_due"`
}

// SaleResponse returns the allocated codes and their face-value subtotal.
type SaleResponse struct {
	EventID  string          `json:"event_id"`
	Codes    []AllocatedCode `json:"codes"`
	Subtotal float64         `json:"subtotal"`
}

// PaymentConfirmation is the inbound contract from the payment collaborator.
// One confirmation settles one checkout, which may cover several codes.
type PaymentConfirmation struct {
	EventID         string   `json:"event_id"`
	Codes           []string `json:"codes"`
	PaymentMethod   string   `json:"payment_method"`
	ConfirmedAmount float64  `json:"confirmed_amount"`
}

// DeliveryRequest is the outbound event to the notification collaborator
// (WhatsApp/email). The core emits it once on generated→sent and never
// retries; redelivery is the collaborator's concern.
type DeliveryRequest struct {
	EventID      string `json:"event_id"`
	EventName    string `json:"event_name"`
	Venue        string `json:"venue"`
	Code         string `json:"code"`
	BuyerName    string `json:"buyer_name"`
	BuyerContact string `json:"buyer_contact"`
	BuyerEmail   string `json:"buyer_email,omitempty"`
	AmountDue    string `json:"amount_due"`
}

// FormatAmount renders a human-readable R$ amount for delivery messages.
func FormatAmount(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

// CheckinResult is the snapshot returned to the scanner UI on admission, rich
// enough to display without a second lookup.
type CheckinResult struct {
	EventID     string     `json:"event_id"`
	Code        string     `json:"code"`
	BuyerName   string     `json:"buyer_name"`
	Tier        Tier       `json:"tier"`
	Kind        InviteKind `json:"kind"`
	SellerID    string     `json:"seller_id,omitempty"`
	CheckedInAt string     `json:"checked_in_at"`
}
