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
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidPaymentState = errors.New("payment state does not allow this operation")
)

const paymentColumns = `id, occupation_request_id, payer_id, amount, currency, status,
	payment_method, payment_phone, transaction_id, provider_reference,
	provider_response, description, created_at, updated_at, completed_at`

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RecordInitiation persists a freshly initiated payment together with its
// first audit transaction in one unit. The payment already carries the
// provider outcome, so a provider failure never leaves a dangling PENDING row.
func (r *PaymentRepository) RecordInitiation(ctx context.Context, payment *models.Payment, txn *models.Transaction) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, occupation_request_id, payer_id, amount, currency, status,
				payment_method, payment_phone, transaction_id, provider_reference,
				provider_response, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, payment.ID, payment.OccupationRequestID, payment.PayerID, payment.Amount,
			payment.Currency, payment.Status, payment.PaymentMethod, payment.PaymentPhone,
			payment.TransactionID, payment.ProviderReference, payment.ProviderResponse,
			payment.Description)
		if err != nil {
			return fmt.Errorf("payment repository: record initiation %w", err)
		}

		return insertTransaction(ctx, tx, txn)
	})
}

// GetByID returns one payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return common.GetByID[models.Payment](ctx, r.db, "payments", id, ErrPaymentNotFound)
}

// GetByProviderTransactionID resolves a payment from the transaction id a
// provider webhook carries.
func (r *PaymentRepository) GetByProviderTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return common.GetByField[models.Payment](ctx, r.db, "payments", "transaction_id", transactionID, ErrPaymentNotFound)
}

// ListByPayer returns the payer's payments, newest first.
func (r *PaymentRepository) ListByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE payer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, paymentColumns)
	if err := r.db.SelectContext(ctx, &payments, query, payerID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list by payer %w", err)
	}
	return payments, nil
}

// Cancel moves a payment to CANCELLED when it is still PENDING or PROCESSING.
// The state is re-checked under a row lock so a racing confirmation wins.
func (r *PaymentRepository) Cancel(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockPayment(ctx, tx, paymentID, &payment); err != nil {
			return err
		}
		if !payment.CanBeCancelled() {
			return ErrInvalidPaymentState
		}

		if err := tx.GetContext(ctx, &payment, fmt.Sprintf(`
			UPDATE payments SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING %s
		`, paymentColumns), paymentID, models.PaymentStatusCancelled); err != nil {
			return fmt.Errorf("payment repository: cancel %w", err)
		}

		return insertTransaction(ctx, tx, &models.Transaction{
			PaymentID:       payment.ID,
			TransactionType: models.TransactionTypePayment,
			Amount:          payment.Amount,
			Status:          models.TransactionStatusCancelled,
			Description:     "payment cancelled by payer",
		})
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkFailed records a provider-reported failure. It no-ops when the payment
// has already moved past a failable state, so duplicate failure webhooks are
// harmless. The returned flag reports whether a transition happened.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID uuid.UUID, errorMessage string, providerResponse []byte) (bool, error) {
	changed := false
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var payment models.Payment
		if err := lockPayment(ctx, tx, paymentID, &payment); err != nil {
			return err
		}
		if !models.CanTransition(payment.Status, models.PaymentStatusFailed) {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = $2, provider_response = COALESCE($3, provider_response), updated_at = NOW()
			WHERE id = $1
		`, paymentID, models.PaymentStatusFailed, providerResponse); err != nil {
			return fmt.Errorf("payment repository: mark failed %w", err)
		}

		changed = true
		return insertTransaction(ctx, tx, &models.Transaction{
			PaymentID:        payment.ID,
			TransactionType:  models.TransactionTypePayment,
			Amount:           payment.Amount,
			Status:           models.TransactionStatusFailed,
			Description:      "payment failed",
			ErrorMessage:     errorMessage,
			ProviderResponse: providerResponse,
		})
	})
	return changed, err
}

// ListTransactionsByPayer returns the audit log entries of the payer's
// payments, newest first.
func (r *PaymentRepository) ListTransactionsByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	query := `
		SELECT t.id, t.payment_id, t.transaction_type, t.amount, t.status,
			t.description, t.provider_response, t.error_message, t.created_at, t.updated_at
		FROM transactions t
		JOIN payments p ON p.id = t.payment_id
		WHERE p.payer_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &transactions, query, payerID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list transactions %w", err)
	}
	return transactions, nil
}

// ListTransactionsByPayment returns the audit log of one payment, oldest first.
func (r *PaymentRepository) ListTransactionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	query := `
		SELECT id, payment_id, transaction_type, amount, status, description,
			provider_response, error_message, created_at, updated_at
		FROM transactions
		WHERE payment_id = $1
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &transactions, query, paymentID); err != nil {
		return nil, fmt.Errorf("payment repository: list payment transactions %w", err)
	}
	return transactions, nil
}

// lockPayment reads a payment row FOR UPDATE, serializing concurrent
// transitions of the same payment.
func lockPayment(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID, dest *models.Payment) error {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1 FOR UPDATE`, paymentColumns)
	if err := tx.GetContext(ctx, dest, query, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("payment repository: lock payment %w", err)
	}
	return nil
}

// insertTransaction appends one audit log entry inside the caller's
// transaction. The log is append-only; nothing here ever updates it.
func insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (payment_id, transaction_type, amount, status, description, provider_response, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, txn.PaymentID, txn.TransactionType, txn.Amount, txn.Status, txn.Description, txn.ProviderResponse, txn.ErrorMessage)
	if err != nil {
		return fmt.Errorf("payment repository: insert transaction %w", err)
	}
	return nil
}
