package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
	"github.com/logema/payments-backend/internal/repository"
)

// Split rates applied when an escrow releases. The platform fee is deducted
// from the owner's leg and never materialized as a distribution of its own.
var (
	AgentCommissionRate = decimal.RequireFromString("0.10")
	PlatformFeeRate     = decimal.RequireFromString("0.02")
)

// DefaultHoldPeriod is how long funds stay in escrow before the sweeper may
// release them automatically.
const DefaultHoldPeriod = 7 * 24 * time.Hour

type EscrowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error)
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.EscrowAccount, error)
	ListDueForRelease(ctx context.Context, now time.Time) ([]models.EscrowAccount, error)
	Hold(ctx context.Context, paymentID uuid.UUID, releaseAt time.Time) (*models.EscrowAccount, bool, error)
	Release(ctx context.Context, escrowID uuid.UUID, distributions []models.PaymentDistribution) ([]models.PaymentDistribution, error)
	Refund(ctx context.Context, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error)
}

type OccupationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.OccupationRequest, error)
	SetPaymentAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	PartiesFor(ctx context.Context, propertyID uuid.UUID) (*models.PropertyParties, error)
}

// EscrowService owns the escrow lifecycle: holding confirmed payments,
// computing distributions on release and refunding disputed ones.
type EscrowService struct {
	escrows     EscrowStore
	payments    PaymentStore
	occupations OccupationStore
	holdPeriod  time.Duration
}

func NewEscrowService(escrows EscrowStore, payments PaymentStore, occupations OccupationStore, holdPeriod time.Duration) *EscrowService {
	if holdPeriod <= 0 {
		holdPeriod = DefaultHoldPeriod
	}
	return &EscrowService{
		escrows:     escrows,
		payments:    payments,
		occupations: occupations,
		holdPeriod:  holdPeriod,
	}
}

// Hold places a confirmed payment's funds in escrow. Calling it for a payment
// that is already held returns the existing escrow, so racing verify and
// webhook confirmations cannot create a second account.
func (s *EscrowService) Hold(ctx context.Context, paymentID uuid.UUID) (*models.EscrowAccount, error) {
	escrow, created, err := s.escrows.Hold(ctx, paymentID, time.Now().Add(s.holdPeriod))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			return nil, apperror.ErrPaymentNotFound
		case errors.Is(err, repository.ErrInvalidPaymentState):
			return nil, apperror.New(apperror.ErrCodeStateConflict, "payment cannot be placed in escrow from its current state")
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "escrow hold failed")
		}
	}

	if created && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"escrow_id":  escrow.ID,
			"amount":     escrow.HeldAmount,
		}).Info("funds held in escrow")
	}
	return escrow, nil
}

// Get returns one escrow account.
func (s *EscrowService) Get(ctx context.Context, escrowID uuid.UUID) (*models.EscrowAccount, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "escrow lookup failed")
	}
	return escrow, nil
}

// Release pays out a holding escrow according to the fixed split and closes
// the payment. The store re-checks the escrow state under lock, so a
// concurrent release or refund loses cleanly.
func (s *EscrowService) Release(ctx context.Context, escrowID uuid.UUID) ([]models.PaymentDistribution, error) {
	escrow, err := s.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusHolding {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "escrow is not holding funds")
	}

	payment, err := s.payments.GetByID(ctx, escrow.PaymentID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "escrow release failed")
	}

	occupation, err := s.occupations.GetByID(ctx, payment.OccupationRequestID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "escrow release failed")
	}

	parties, err := s.occupations.PartiesFor(ctx, occupation.PropertyID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "escrow release failed")
	}

	distributions := CalculateDistributions(payment.ID, escrow.HeldAmount, parties)

	persisted, err := s.escrows.Release(ctx, escrow.ID, distributions)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotHeld) {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "escrow is not holding funds")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "escrow release failed")
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"escrow_id":     escrow.ID,
			"payment_id":    payment.ID,
			"distributions": len(persisted),
		}).Info("escrow released")
	}
	return persisted, nil
}

// Refund returns a held payment to the payer.
func (s *EscrowService) Refund(ctx context.Context, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error) {
	escrow, err := s.escrows.Refund(ctx, paymentID, reason)
	if err != nil {
		return nil, mapRefundError(err)
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"escrow_id":  escrow.ID,
			"reason":     reason,
		}).Info("escrow refunded")
	}
	return escrow, nil
}

// mapRefundError translates store refund failures for both the direct refund
// path and the dispute-driven one.
func mapRefundError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEscrowNotFound):
		return apperror.ErrNoEscrow
	case errors.Is(err, repository.ErrEscrowNotHeld):
		return apperror.New(apperror.ErrCodeStateConflict, "escrow is not holding funds")
	case errors.Is(err, repository.ErrPaymentNotFound):
		return apperror.ErrPaymentNotFound
	default:
		return apperror.Wrap(err, apperror.ErrCodeInternal, "refund failed")
	}
}

// AutoReleaseExpired releases every holding escrow whose scheduled date has
// passed. Failures are isolated per escrow: one stuck release is logged and
// the sweep moves on.
func (s *EscrowService) AutoReleaseExpired(ctx context.Context, now time.Time) (released, failed int) {
	due, err := s.escrows.ListDueForRelease(ctx, now)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithError(err).Error("auto-release: listing due escrows failed")
		}
		return 0, 0
	}

	for _, escrow := range due {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Release(ctx, escrow.ID); err != nil {
			failed++
			if logger.Log != nil {
				logger.Log.WithError(err).WithField("escrow_id", escrow.ID).Error("auto-release failed for escrow")
			}
			continue
		}
		released++
	}
	return released, failed
}

// CalculateDistributions computes the payout legs for a released escrow:
// 10% agent commission when the property has an agent, 2% platform fee kept
// implicitly, remainder to the owner.
func CalculateDistributions(paymentID uuid.UUID, amount decimal.Decimal, parties *models.PropertyParties) []models.PaymentDistribution {
	distributions := make([]models.PaymentDistribution, 0, 2)

	agentCommission := decimal.Zero
	if parties.AgentID != nil {
		agentCommission = amount.Mul(AgentCommissionRate)
		distributions = append(distributions, models.PaymentDistribution{
			PaymentID:        paymentID,
			RecipientID:      *parties.AgentID,
			Amount:           agentCommission,
			DistributionType: models.DistributionTypeAgentCommission,
		})
	}

	platformFee := amount.Mul(PlatformFeeRate)
	ownerPayment := amount.Sub(agentCommission).Sub(platformFee)

	distributions = append(distributions, models.PaymentDistribution{
		PaymentID:        paymentID,
		RecipientID:      parties.OwnerID,
		Amount:           ownerPayment,
		DistributionType: models.DistributionTypeOwnerPayment,
	})

	return distributions
}
