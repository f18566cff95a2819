package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/repository/common"
)

var (
	ErrDisputeNotFound        = errors.New("dispute not found")
	ErrDisputeAlreadyResolved = errors.New("dispute already resolved")
	ErrDisputeNotResolved     = errors.New("dispute is not resolved")
)

const disputeColumns = `id, payment_id, raised_by_id, reason, status, resolution,
	resolution_notes, resolved_by_id, created_at, updated_at, resolved_at`

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create opens a new dispute against a payment.
func (r *DisputeRepository) Create(ctx context.Context, dispute *models.PaymentDispute) error {
	query := fmt.Sprintf(`
		INSERT INTO payment_disputes (payment_id, raised_by_id, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, disputeColumns)
	if err := r.db.GetContext(ctx, dispute, query, dispute.PaymentID, dispute.RaisedByID, dispute.Reason, models.DisputeStatusOpen); err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

// GetByID returns one dispute.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentDispute, error) {
	return common.GetByID[models.PaymentDispute](ctx, r.db, "payment_disputes", id, ErrDisputeNotFound)
}

// ListByUser returns disputes raised by a user, newest first.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PaymentDispute, error) {
	var disputes []models.PaymentDispute
	query := fmt.Sprintf(`SELECT %s FROM payment_disputes WHERE raised_by_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, disputeColumns)
	if err := r.db.SelectContext(ctx, &disputes, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListAll returns every dispute, newest first. Admin-only surface.
func (r *DisputeRepository) ListAll(ctx context.Context, limit, offset int) ([]models.PaymentDispute, error) {
	var disputes []models.PaymentDispute
	query := fmt.Sprintf(`SELECT %s FROM payment_disputes ORDER BY created_at DESC LIMIT $1 OFFSET $2`, disputeColumns)
	if err := r.db.SelectContext(ctx, &disputes, query, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list all %w", err)
	}
	return disputes, nil
}

// Resolve marks a dispute RESOLVED and, when refundFn is non-nil, runs the
// refund inside the same transaction so the two outcomes cannot diverge.
func (r *DisputeRepository) Resolve(ctx context.Context, disputeID uuid.UUID, resolution, notes string, resolvedBy uuid.UUID, refundFn func(tx *sqlx.Tx, paymentID uuid.UUID) error) (*models.PaymentDispute, error) {
	var dispute models.PaymentDispute
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockDispute(ctx, tx, disputeID, &dispute); err != nil {
			return err
		}
		if dispute.Status == models.DisputeStatusResolved || dispute.Status == models.DisputeStatusClosed {
			return ErrDisputeAlreadyResolved
		}

		if err := tx.GetContext(ctx, &dispute, fmt.Sprintf(`
			UPDATE payment_disputes
			SET status = $2, resolution = $3, resolution_notes = $4, resolved_by_id = $5,
				resolved_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING %s
		`, disputeColumns), disputeID, models.DisputeStatusResolved, resolution, notes, resolvedBy); err != nil {
			return fmt.Errorf("dispute repository: resolve %w", err)
		}

		if refundFn != nil {
			return refundFn(tx, dispute.PaymentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// Close closes a RESOLVED dispute.
func (r *DisputeRepository) Close(ctx context.Context, disputeID uuid.UUID) (*models.PaymentDispute, error) {
	var dispute models.PaymentDispute
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockDispute(ctx, tx, disputeID, &dispute); err != nil {
			return err
		}
		if dispute.Status != models.DisputeStatusResolved {
			return ErrDisputeNotResolved
		}

		if err := tx.GetContext(ctx, &dispute, fmt.Sprintf(`
			UPDATE payment_disputes SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING %s
		`, disputeColumns), disputeID, models.DisputeStatusClosed); err != nil {
			return fmt.Errorf("dispute repository: close %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func lockDispute(ctx context.Context, tx *sqlx.Tx, disputeID uuid.UUID, dest *models.PaymentDispute) error {
	query := fmt.Sprintf(`SELECT %s FROM payment_disputes WHERE id = $1 FOR UPDATE`, disputeColumns)
	if err := tx.GetContext(ctx, dest, query, disputeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDisputeNotFound
		}
		return fmt.Errorf("dispute repository: lock dispute %w", err)
	}
	return nil
}
