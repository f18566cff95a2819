package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute statuses
const (
	DisputeStatusOpen          = "OPEN"
	DisputeStatusInvestigating = "INVESTIGATING"
	DisputeStatusResolved      = "RESOLVED"
	DisputeStatusClosed        = "CLOSED"
)

// Dispute resolutions
const (
	ResolutionRefundFull    = "REFUND_FULL"
	ResolutionRefundPartial = "REFUND_PARTIAL"
	ResolutionNoRefund      = "NO_REFUND"
)

// ValidResolution reports whether the given resolution is one of the known values.
func ValidResolution(resolution string) bool {
	switch resolution {
	case ResolutionRefundFull, ResolutionRefundPartial, ResolutionNoRefund:
		return true
	}
	return false
}

// PaymentDispute is a claim raised against a payment. A dispute never holds
// money itself; resolving it may trigger an escrow refund.
type PaymentDispute struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PaymentID       uuid.UUID  `db:"payment_id" json:"payment_id"`
	RaisedByID      uuid.UUID  `db:"raised_by_id" json:"raised_by_id"`
	Reason          string     `db:"reason" json:"reason"`
	Status          string     `db:"status" json:"status"`
	Resolution      string     `db:"resolution" json:"resolution,omitempty"`
	ResolutionNotes string     `db:"resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedByID    *uuid.UUID `db:"resolved_by_id" json:"resolved_by_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt      *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
