package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/repository/common"
)

var (
	ErrEscrowNotFound = errors.New("escrow not found")
	ErrEscrowNotHeld  = errors.New("escrow is not holding funds")
)

const escrowColumns = `id, payment_id, held_amount, status, held_at,
	release_scheduled_date, released_at, refund_reason`

type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// GetByID returns one escrow account.
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	return common.GetByID[models.EscrowAccount](ctx, r.db, "escrow_accounts", id, ErrEscrowNotFound)
}

// GetByPaymentID returns the escrow holding a payment's funds.
func (r *EscrowRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.EscrowAccount, error) {
	return common.GetByField[models.EscrowAccount](ctx, r.db, "escrow_accounts", "payment_id", paymentID, ErrEscrowNotFound)
}

// ListDueForRelease returns HOLDING escrows whose scheduled release date has
// passed, oldest first.
func (r *EscrowRepository) ListDueForRelease(ctx context.Context, now time.Time) ([]models.EscrowAccount, error) {
	var escrows []models.EscrowAccount
	query := fmt.Sprintf(`
		SELECT %s FROM escrow_accounts
		WHERE status = $1 AND release_scheduled_date IS NOT NULL AND release_scheduled_date <= $2
		ORDER BY release_scheduled_date ASC
	`, escrowColumns)
	if err := r.db.SelectContext(ctx, &escrows, query, models.EscrowStatusHolding, now); err != nil {
		return nil, fmt.Errorf("escrow repository: list due for release %w", err)
	}
	return escrows, nil
}

// Hold moves a PROCESSING payment into escrow: it creates the escrow account,
// transitions the payment and appends the audit entry in one unit. When the
// payment is already HELD_IN_ESCROW the existing escrow is returned and the
// created flag is false, which makes racing verify and webhook calls benign.
func (r *EscrowRepository) Hold(ctx context.Context, paymentID uuid.UUID, releaseAt time.Time) (*models.EscrowAccount, bool, error) {
	var escrow models.EscrowAccount
	created := false

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var payment models.Payment
		if err := lockPayment(ctx, tx, paymentID, &payment); err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusHeldInEscrow {
			query := fmt.Sprintf(`SELECT %s FROM escrow_accounts WHERE payment_id = $1`, escrowColumns)
			if err := tx.GetContext(ctx, &escrow, query, paymentID); err != nil {
				return fmt.Errorf("escrow repository: load existing escrow %w", err)
			}
			return nil
		}

		if payment.Status != models.PaymentStatusProcessing {
			return ErrInvalidPaymentState
		}

		if err := tx.GetContext(ctx, &escrow, fmt.Sprintf(`
			INSERT INTO escrow_accounts (payment_id, held_amount, status, release_scheduled_date)
			VALUES ($1, $2, $3, $4)
			RETURNING %s
		`, escrowColumns), paymentID, payment.Amount, models.EscrowStatusHolding, releaseAt); err != nil {
			return fmt.Errorf("escrow repository: create escrow %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1
		`, paymentID, models.PaymentStatusHeldInEscrow); err != nil {
			return fmt.Errorf("escrow repository: hold payment %w", err)
		}

		created = true
		return insertTransaction(ctx, tx, &models.Transaction{
			PaymentID:       paymentID,
			TransactionType: models.TransactionTypePayment,
			Amount:          payment.Amount,
			Status:          models.TransactionStatusCompleted,
			Description:     fmt.Sprintf("funds held in escrow - %s %s", payment.Amount, payment.Currency),
		})
	})
	if err != nil {
		return nil, false, err
	}
	return &escrow, created, nil
}

// Release pays out a HOLDING escrow: it persists the computed distribution
// legs, appends one transfer entry per leg, closes the escrow and the payment
// and flips the occupation request to PAID/VALIDATED, all in one unit.
func (r *EscrowRepository) Release(ctx context.Context, escrowID uuid.UUID, distributions []models.PaymentDistribution) ([]models.PaymentDistribution, error) {
	var persisted []models.PaymentDistribution

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		escrow, err := lockEscrow(ctx, tx, "id", escrowID)
		if err != nil {
			return err
		}
		if escrow.Status != models.EscrowStatusHolding {
			return ErrEscrowNotHeld
		}

		var payment models.Payment
		if err := lockPayment(ctx, tx, escrow.PaymentID, &payment); err != nil {
			return err
		}

		persisted = persisted[:0]
		for _, dist := range distributions {
			var row models.PaymentDistribution
			if err := tx.GetContext(ctx, &row, `
				INSERT INTO payment_distributions (payment_id, recipient_id, amount, distribution_type, status, completed_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
				RETURNING id, payment_id, recipient_id, amount, distribution_type, status, created_at, completed_at
			`, payment.ID, dist.RecipientID, dist.Amount, dist.DistributionType, models.DistributionStatusCompleted); err != nil {
				return fmt.Errorf("escrow repository: create distribution %w", err)
			}
			persisted = append(persisted, row)

			if err := insertTransaction(ctx, tx, &models.Transaction{
				PaymentID:       payment.ID,
				TransactionType: models.TransactionTypeTransfer,
				Amount:          dist.Amount,
				Status:          models.TransactionStatusCompleted,
				Description:     fmt.Sprintf("distribution: %s to %s", dist.DistributionType, dist.RecipientID),
			}); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE escrow_accounts SET status = $2, released_at = NOW() WHERE id = $1
		`, escrow.ID, models.EscrowStatusReleased); err != nil {
			return fmt.Errorf("escrow repository: release escrow %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = $2, completed_at = NOW(), updated_at = NOW() WHERE id = $1
		`, payment.ID, models.PaymentStatusReleased); err != nil {
			return fmt.Errorf("escrow repository: complete payment %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE occupation_requests SET payment_status = $2, status = $3, updated_at = NOW() WHERE id = $1
		`, payment.OccupationRequestID, models.OccupationPaymentStatusPaid, models.OccupationStatusValidated); err != nil {
			return fmt.Errorf("escrow repository: mark occupation paid %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

// Refund returns a payment's escrowed funds to the payer in one unit.
func (r *EscrowRepository) Refund(ctx context.Context, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error) {
	var escrow *models.EscrowAccount
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		escrow, err = r.RefundTx(ctx, tx, paymentID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return escrow, nil
}

// RefundTx performs the refund inside the caller's transaction so a dispute
// resolution and its refund commit or roll back together.
func (r *EscrowRepository) RefundTx(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error) {
	escrow, err := lockEscrow(ctx, tx, "payment_id", paymentID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusHolding {
		return nil, ErrEscrowNotHeld
	}

	var payment models.Payment
	if err := lockPayment(ctx, tx, paymentID, &payment); err != nil {
		return nil, err
	}

	if err := tx.GetContext(ctx, escrow, fmt.Sprintf(`
		UPDATE escrow_accounts SET status = $2, refund_reason = $3, released_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, escrowColumns), escrow.ID, models.EscrowStatusRefunded, reason); err != nil {
		return nil, fmt.Errorf("escrow repository: refund escrow %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1
	`, paymentID, models.PaymentStatusRefunded); err != nil {
		return nil, fmt.Errorf("escrow repository: refund payment %w", err)
	}

	if err := insertTransaction(ctx, tx, &models.Transaction{
		PaymentID:       paymentID,
		TransactionType: models.TransactionTypeRefund,
		Amount:          escrow.HeldAmount,
		Status:          models.TransactionStatusCompleted,
		Description:     fmt.Sprintf("refund: %s", reason),
	}); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE occupation_requests SET payment_status = $2, status = $3, updated_at = NOW() WHERE id = $1
	`, payment.OccupationRequestID, models.OccupationPaymentStatusRefunded, models.OccupationStatusCancelled); err != nil {
		return nil, fmt.Errorf("escrow repository: mark occupation refunded %w", err)
	}

	return escrow, nil
}

// lockEscrow reads an escrow row FOR UPDATE by the given column.
func lockEscrow(ctx context.Context, tx *sqlx.Tx, field string, value uuid.UUID) (*models.EscrowAccount, error) {
	var escrow models.EscrowAccount
	query := fmt.Sprintf(`SELECT %s FROM escrow_accounts WHERE %s = $1 FOR UPDATE`, escrowColumns, field)
	if err := tx.GetContext(ctx, &escrow, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: lock escrow %w", err)
	}
	return &escrow, nil
}
