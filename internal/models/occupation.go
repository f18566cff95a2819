package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Occupation request statuses owned by the transactions subsystem. Only the
// values this core writes back are listed here.
const (
	OccupationStatusValidated = "VALIDATED"
	OccupationStatusCancelled = "CANCELLED"
)

// Occupation payment statuses
const (
	OccupationPaymentStatusUnpaid   = "UNPAID"
	OccupationPaymentStatusPaid     = "PAID"
	OccupationPaymentStatusRefunded = "REFUNDED"
)

// OccupationRequest is a read model of the external transactions subsystem:
// a tenant's claim on a property, the payer side of a payment.
type OccupationRequest struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	PropertyID    uuid.UUID           `db:"property_id" json:"property_id"`
	RequesterID   uuid.UUID           `db:"requester_id" json:"requester_id"`
	Status        string              `db:"status" json:"status"`
	PaymentStatus string              `db:"payment_status" json:"payment_status"`
	PaymentAmount decimal.NullDecimal `db:"payment_amount" json:"payment_amount"`
	MonthlyRent   decimal.Decimal     `db:"monthly_rent" json:"monthly_rent"`
	PropertyTitle string              `db:"property_title" json:"property_title"`
}

// AmountDue returns the amount the requester owes: the amount fixed on the
// request when present, otherwise the first month's rent.
func (o *OccupationRequest) AmountDue() decimal.Decimal {
	if o.PaymentAmount.Valid {
		return o.PaymentAmount.Decimal
	}
	return o.MonthlyRent
}

// PropertyParties identifies who receives money when an escrow for the
// property is released. AgentID is nil when no agent holds a mandate.
type PropertyParties struct {
	PropertyID uuid.UUID  `db:"property_id" json:"property_id"`
	OwnerID    uuid.UUID  `db:"owner_id" json:"owner_id"`
	AgentID    *uuid.UUID `db:"agent_id" json:"agent_id,omitempty"`
}
