package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
	"github.com/logema/payments-backend/internal/repository"
	"github.com/logema/payments-backend/internal/validation"
)

type DisputeStore interface {
	Create(ctx context.Context, dispute *models.PaymentDispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentDispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PaymentDispute, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.PaymentDispute, error)
	Resolve(ctx context.Context, disputeID uuid.UUID, resolution, notes string, resolvedBy uuid.UUID, refundFn func(tx *sqlx.Tx, paymentID uuid.UUID) error) (*models.PaymentDispute, error)
	Close(ctx context.Context, disputeID uuid.UUID) (*models.PaymentDispute, error)
}

// EscrowRefunder refunds inside the caller's transaction, so a dispute
// resolution and its refund commit or roll back together.
type EscrowRefunder interface {
	RefundTx(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error)
}

type EscrowReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error)
}

// DisputeService handles payer complaints about payments. Any refunding
// resolution returns the full held amount; partial amounts are recorded as a
// resolution label only.
type DisputeService struct {
	disputes DisputeStore
	payments PaymentStore
	escrows  EscrowReader
	refunder EscrowRefunder
}

func NewDisputeService(disputes DisputeStore, payments PaymentStore, escrows EscrowReader, refunder EscrowRefunder) *DisputeService {
	return &DisputeService{disputes: disputes, payments: payments, escrows: escrows, refunder: refunder}
}

// Open raises a dispute against a payment. Disputes may be opened in any
// payment state; whether a refund is possible is decided at resolution time.
func (s *DisputeService) Open(ctx context.Context, paymentID, raisedBy uuid.UUID, reason string) (*models.PaymentDispute, error) {
	if err := validation.ValidateLength("reason", reason, validation.MinReasonLength, validation.MaxReasonLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapPaymentLookupError(err)
	}
	if payment.PayerID != raisedBy {
		return nil, apperror.ErrForbidden
	}

	dispute := &models.PaymentDispute{
		PaymentID:  payment.ID,
		RaisedByID: raisedBy,
		Reason:     reason,
		Status:     models.DisputeStatusOpen,
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "opening dispute failed")
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"dispute_id": dispute.ID,
			"payment_id": payment.ID,
		}).Info("dispute opened")
	}
	return dispute, nil
}

// RequestRefund opens a dispute against the payment behind an escrow account.
// This is the payer-facing refund path; the actual refund happens when an
// admin resolves the dispute.
func (s *DisputeService) RequestRefund(ctx context.Context, escrowID, payerID uuid.UUID, reason string) (*models.PaymentDispute, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "refund request failed")
	}
	return s.Open(ctx, escrow.PaymentID, payerID, reason)
}

// Resolve records an admin decision on an open dispute. Refunding resolutions
// refund the escrow in the same transaction; NO_REFUND leaves the payment
// untouched.
func (s *DisputeService) Resolve(ctx context.Context, disputeID uuid.UUID, resolution, notes string, resolvedBy uuid.UUID) (*models.PaymentDispute, error) {
	if !models.ValidResolution(resolution) {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown resolution")
	}
	if err := validation.ValidateLength("resolution notes", notes, 0, validation.MaxResolutionNotes); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	var refundFn func(tx *sqlx.Tx, paymentID uuid.UUID) error
	if resolution != models.ResolutionNoRefund {
		refundFn = func(tx *sqlx.Tx, paymentID uuid.UUID) error {
			_, err := s.refunder.RefundTx(ctx, tx, paymentID, "dispute resolved: "+resolution)
			return err
		}
	}

	dispute, err := s.disputes.Resolve(ctx, disputeID, resolution, notes, resolvedBy, refundFn)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDisputeNotFound):
			return nil, apperror.ErrDisputeNotFound
		case errors.Is(err, repository.ErrDisputeAlreadyResolved):
			return nil, apperror.New(apperror.ErrCodeStateConflict, "dispute is already resolved")
		case errors.Is(err, repository.ErrEscrowNotFound):
			return nil, apperror.ErrNoEscrow
		case errors.Is(err, repository.ErrEscrowNotHeld):
			return nil, apperror.New(apperror.ErrCodeStateConflict, "escrow is not holding funds")
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "resolving dispute failed")
		}
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"dispute_id": dispute.ID,
			"resolution": resolution,
		}).Info("dispute resolved")
	}
	return dispute, nil
}

// Close finalizes a resolved dispute.
func (s *DisputeService) Close(ctx context.Context, disputeID uuid.UUID) (*models.PaymentDispute, error) {
	dispute, err := s.disputes.Close(ctx, disputeID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDisputeNotFound):
			return nil, apperror.ErrDisputeNotFound
		case errors.Is(err, repository.ErrDisputeNotResolved):
			return nil, apperror.New(apperror.ErrCodeStateConflict, "dispute must be resolved before it can be closed")
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "closing dispute failed")
		}
	}
	return dispute, nil
}

// Get returns one dispute, visible to the payer who raised it and to admins.
func (s *DisputeService) Get(ctx context.Context, disputeID, actorID uuid.UUID, isAdmin bool) (*models.PaymentDispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "dispute lookup failed")
	}
	if !isAdmin && dispute.RaisedByID != actorID {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

// List returns disputes: admins see everything, others only their own.
func (s *DisputeService) List(ctx context.Context, actorID uuid.UUID, isAdmin bool, limit, offset int) ([]models.PaymentDispute, error) {
	var (
		disputes []models.PaymentDispute
		err      error
	)
	if isAdmin {
		disputes, err = s.disputes.ListAll(ctx, normalizeLimit(limit), offset)
	} else {
		disputes, err = s.disputes.ListByUser(ctx, actorID, normalizeLimit(limit), offset)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "listing disputes failed")
	}
	return disputes, nil
}
