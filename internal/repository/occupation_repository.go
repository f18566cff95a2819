package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/logema/payments-backend/internal/models"
)

var ErrOccupationNotFound = errors.New("occupation request not found")

// OccupationRepository is the narrow gateway to the transactions subsystem:
// it reads occupation requests and the property parties a release pays out
// to. Writes back to occupation requests happen only through the escrow
// repository's release and refund transactions.
type OccupationRepository struct {
	db *sqlx.DB
}

func NewOccupationRepository(db *sqlx.DB) *OccupationRepository {
	return &OccupationRepository{db: db}
}

// GetByID returns one occupation request together with the property title and
// rent needed to describe and price a payment.
func (r *OccupationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OccupationRequest, error) {
	var occupation models.OccupationRequest
	query := `
		SELECT o.id, o.property_id, o.requester_id, o.status, o.payment_status,
			o.payment_amount, p.monthly_rent, p.title AS property_title
		FROM occupation_requests o
		JOIN properties p ON p.id = o.property_id
		WHERE o.id = $1
	`
	if err := r.db.GetContext(ctx, &occupation, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOccupationNotFound
		}
		return nil, fmt.Errorf("occupation repository: get by id %w", err)
	}
	return &occupation, nil
}

// SetPaymentAmount fixes the amount due on a request the first time a payment
// is initiated for it.
func (r *OccupationRepository) SetPaymentAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE occupation_requests SET payment_amount = $2, updated_at = NOW()
		WHERE id = $1 AND payment_amount IS NULL
	`, id, amount); err != nil {
		return fmt.Errorf("occupation repository: set payment amount %w", err)
	}
	return nil
}

// PartiesFor returns who gets paid when an escrow for the property releases.
func (r *OccupationRepository) PartiesFor(ctx context.Context, propertyID uuid.UUID) (*models.PropertyParties, error) {
	var parties models.PropertyParties
	query := `SELECT id AS property_id, owner_id, agent_id FROM properties WHERE id = $1`
	if err := r.db.GetContext(ctx, &parties, query, propertyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOccupationNotFound
		}
		return nil, fmt.Errorf("occupation repository: parties for property %w", err)
	}
	return &parties, nil
}
