package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/repository/common"
)

var (
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrPaymentMethodExists   = errors.New("payment method already saved")
)

const paymentMethodColumns = `id, user_id, method_type, phone_number, is_default,
	is_verified, nickname, created_at, updated_at, last_used_at`

type PaymentMethodRepository struct {
	db *sqlx.DB
}

func NewPaymentMethodRepository(db *sqlx.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// Create saves a payment method. Setting it as default clears any previous
// default in the same transaction, so two defaults can never coexist.
func (r *PaymentMethodRepository) Create(ctx context.Context, method *models.PaymentMethod) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if method.IsDefault {
			if err := clearDefault(ctx, tx, method.UserID); err != nil {
				return err
			}
		}

		err := tx.GetContext(ctx, method, fmt.Sprintf(`
			INSERT INTO payment_methods (user_id, method_type, phone_number, is_default, is_verified, nickname)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s
		`, paymentMethodColumns), method.UserID, method.MethodType, method.PhoneNumber, method.IsDefault, method.IsVerified, method.Nickname)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrPaymentMethodExists
			}
			return fmt.Errorf("payment method repository: create %w", err)
		}
		return nil
	})
}

// GetOrCreate returns the user's saved method for the given type and phone,
// creating it unverified when absent. Used by initiate's save-method flag.
func (r *PaymentMethodRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, methodType, phoneNumber string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	query := fmt.Sprintf(`
		INSERT INTO payment_methods (user_id, method_type, phone_number, is_verified)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (user_id, method_type, phone_number)
		DO UPDATE SET last_used_at = NOW(), updated_at = NOW()
		RETURNING %s
	`, paymentMethodColumns)
	if err := r.db.GetContext(ctx, &method, query, userID, methodType, phoneNumber); err != nil {
		return nil, fmt.Errorf("payment method repository: get or create %w", err)
	}
	return &method, nil
}

// GetByID returns one payment method.
func (r *PaymentMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	return common.GetByID[models.PaymentMethod](ctx, r.db, "payment_methods", id, ErrPaymentMethodNotFound)
}

// ListByUser returns the user's saved methods, default first.
func (r *PaymentMethodRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	query := fmt.Sprintf(`
		SELECT %s FROM payment_methods
		WHERE user_id = $1
		ORDER BY is_default DESC, last_used_at DESC NULLS LAST, created_at DESC
	`, paymentMethodColumns)
	if err := r.db.SelectContext(ctx, &methods, query, userID); err != nil {
		return nil, fmt.Errorf("payment method repository: list by user %w", err)
	}
	return methods, nil
}

// SetDefault makes one method the user's default, clearing the previous one
// in the same transaction.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, userID, methodID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := clearDefault(ctx, tx, userID); err != nil {
			return err
		}

		err := tx.GetContext(ctx, &method, fmt.Sprintf(`
			UPDATE payment_methods SET is_default = TRUE, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING %s
		`, paymentMethodColumns), methodID, userID)
		if err != nil {
			return ErrPaymentMethodNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &method, nil
}

// Delete removes a user's saved method.
func (r *PaymentMethodRepository) Delete(ctx context.Context, userID, methodID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, methodID, userID)
	if err != nil {
		return fmt.Errorf("payment method repository: delete %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment method repository: delete %w", err)
	}
	if affected == 0 {
		return ErrPaymentMethodNotFound
	}
	return nil
}

func clearDefault(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE payment_methods SET is_default = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_default = TRUE
	`, userID); err != nil {
		return fmt.Errorf("payment method repository: clear default %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
