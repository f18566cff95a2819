package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
	"github.com/logema/payments-backend/internal/provider"
	"github.com/logema/payments-backend/internal/repository"
)

type PaymentStore interface {
	RecordInitiation(ctx context.Context, payment *models.Payment, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByProviderTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Payment, error)
	Cancel(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	MarkFailed(ctx context.Context, paymentID uuid.UUID, errorMessage string, providerResponse []byte) (bool, error)
	ListTransactionsByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	ListTransactionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Transaction, error)
}

type ProviderRegistry interface {
	Get(method string) (provider.Provider, error)
	ForWebhook(name string) (provider.Provider, error)
}

type EscrowHolder interface {
	Hold(ctx context.Context, paymentID uuid.UUID) (*models.EscrowAccount, error)
}

type MethodSaver interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, methodType, phoneNumber string) (*models.PaymentMethod, error)
}

type InitiateInput struct {
	OccupationRequestID uuid.UUID
	PayerID             uuid.UUID
	Method              string
	Phone               string
	SaveMethod          bool
}

type InitiateOutput struct {
	Payment    *models.Payment
	Message    string
	USSDCode   string
	PaymentURL string
}

type VerifyOutput struct {
	Payment        *models.Payment
	ProviderStatus string
	Escrow         *models.EscrowAccount
	Message        string
}

// PaymentService drives the payment lifecycle from initiation through
// provider confirmation. Escrow and dispute concerns live in their own
// services; this one only hands confirmed payments over to the escrow holder.
type PaymentService struct {
	payments    PaymentStore
	occupations OccupationStore
	methods     MethodSaver
	escrow      EscrowHolder
	providers   ProviderRegistry
}

func NewPaymentService(payments PaymentStore, occupations OccupationStore, methods MethodSaver, escrow EscrowHolder, providers ProviderRegistry) *PaymentService {
	return &PaymentService{
		payments:    payments,
		occupations: occupations,
		methods:     methods,
		escrow:      escrow,
		providers:   providers,
	}
}

// Initiate starts a mobile-money payment for an occupation request. The
// provider call runs with no transaction open; the payment row is written
// afterwards already carrying the provider outcome.
func (s *PaymentService) Initiate(ctx context.Context, in InitiateInput) (*InitiateOutput, error) {
	occupation, err := s.occupations.GetByID(ctx, in.OccupationRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrOccupationNotFound) {
			return nil, apperror.ErrOccupationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "payment initiation failed")
	}
	if occupation.RequesterID != in.PayerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "only the requester may pay for this occupation request")
	}
	if occupation.PaymentStatus == models.OccupationPaymentStatusPaid {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "occupation request is already paid")
	}

	amount := occupation.AmountDue()
	if amount.LessThan(models.MinAmount) {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment amount must be positive")
	}
	// Pin the amount on the request so a later rent change cannot shift what
	// this payment settles.
	if !occupation.PaymentAmount.Valid {
		if err := s.occupations.SetPaymentAmount(ctx, occupation.ID, amount); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "payment initiation failed")
		}
	}

	prov, err := s.providers.Get(in.Method)
	if err != nil {
		return nil, apperror.ErrUnknownProvider
	}

	payment := &models.Payment{
		ID:                  uuid.New(),
		OccupationRequestID: occupation.ID,
		PayerID:             in.PayerID,
		Amount:              amount,
		Currency:            models.DefaultCurrency,
		PaymentMethod:       in.Method,
		PaymentPhone:        provider.NormalizeMSISDN(in.Phone),
		Description:         "Rental payment for " + occupation.PropertyTitle,
	}

	result := prov.InitiatePayment(ctx, amount, payment.PaymentPhone, payment.ID.String(), payment.Description)
	raw, _ := json.Marshal(result)
	payment.ProviderResponse = raw

	if !result.Success {
		payment.Status = models.PaymentStatusFailed
		txn := &models.Transaction{
			PaymentID:        payment.ID,
			TransactionType:  models.TransactionTypePayment,
			Amount:           amount,
			Status:           models.TransactionStatusFailed,
			Description:      "payment initiation failed",
			ErrorMessage:     result.Error,
			ProviderResponse: raw,
		}
		if err := s.payments.RecordInitiation(ctx, payment, txn); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "payment initiation failed")
		}
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"payment_id": payment.ID,
				"method":     in.Method,
			}).Warn("provider rejected payment initiation")
		}
		return nil, apperror.New(apperror.ErrCodeProvider, "payment could not be initiated with the provider")
	}

	payment.Status = models.PaymentStatusProcessing
	payment.TransactionID = result.TransactionID
	payment.ProviderReference = result.TransactionID
	txn := &models.Transaction{
		PaymentID:        payment.ID,
		TransactionType:  models.TransactionTypePayment,
		Amount:           amount,
		Status:           models.TransactionStatusProcessing,
		Description:      "payment initiated",
		ProviderResponse: raw,
	}
	if err := s.payments.RecordInitiation(ctx, payment, txn); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "payment initiation failed")
	}

	if in.SaveMethod {
		if _, err := s.methods.GetOrCreate(ctx, in.PayerID, in.Method, payment.PaymentPhone); err != nil {
			if logger.Log != nil {
				logger.Log.WithError(err).Warn("saving payment method after initiation failed")
			}
		}
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"payment_id":     payment.ID,
			"method":         in.Method,
			"amount":         amount,
			"transaction_id": payment.TransactionID,
		}).Info("payment initiated")
	}

	return &InitiateOutput{
		Payment:    payment,
		Message:    result.Message,
		USSDCode:   result.USSDCode,
		PaymentURL: result.PaymentURL,
	}, nil
}

// Verify asks the provider for the payment's current status and, on
// confirmation, places the funds in escrow. Verifying an already held payment
// is a no-op success; terminal payments reject.
func (s *PaymentService) Verify(ctx context.Context, paymentID, actorID uuid.UUID, isAdmin bool) (*VerifyOutput, error) {
	payment, err := s.Get(ctx, paymentID, actorID, isAdmin)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusHeldInEscrow {
		escrow, err := s.escrow.Hold(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		return &VerifyOutput{Payment: payment, Escrow: escrow, Message: "payment already confirmed"}, nil
	}
	if models.IsTerminalPaymentStatus(payment.Status) {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "payment is already settled")
	}
	if payment.TransactionID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment has no provider transaction to verify")
	}

	prov, err := s.providers.Get(payment.PaymentMethod)
	if err != nil {
		return nil, apperror.ErrUnknownProvider
	}

	result := prov.VerifyPayment(ctx, payment.TransactionID)
	if !result.Success {
		return nil, apperror.New(apperror.ErrCodeProvider, "payment verification failed, try again later")
	}

	out := &VerifyOutput{Payment: payment, ProviderStatus: result.Status, Message: result.Message}
	switch result.Status {
	case provider.StatusCompleted:
		escrow, err := s.escrow.Hold(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		out.Escrow = escrow
		payment.Status = models.PaymentStatusHeldInEscrow
	case provider.StatusFailed:
		if _, err := s.payments.MarkFailed(ctx, payment.ID, "provider reported failure on verification", nil); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "payment verification failed")
		}
		payment.Status = models.PaymentStatusFailed
	}
	return out, nil
}

// Cancel aborts a payment that has not been confirmed yet. Only the payer may
// cancel.
func (s *PaymentService) Cancel(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapPaymentLookupError(err)
	}
	if payment.PayerID != actorID {
		return nil, apperror.ErrForbidden
	}

	cancelled, err := s.payments.Cancel(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidPaymentState) {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "payment can no longer be cancelled")
		}
		return nil, mapPaymentLookupError(err)
	}

	if logger.Log != nil {
		logger.Log.WithField("payment_id", paymentID).Info("payment cancelled")
	}
	return cancelled, nil
}

// Get returns one payment, visible to its payer and to admins.
func (s *PaymentService) Get(ctx context.Context, paymentID, actorID uuid.UUID, isAdmin bool) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, mapPaymentLookupError(err)
	}
	if !isAdmin && payment.PayerID != actorID {
		return nil, apperror.ErrForbidden
	}
	return payment, nil
}

// ListByPayer returns the caller's payments, newest first.
func (s *PaymentService) ListByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	payments, err := s.payments.ListByPayer(ctx, payerID, normalizeLimit(limit), offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "listing payments failed")
	}
	return payments, nil
}

// ListTransactions returns the caller's audit log entries, newest first.
func (s *PaymentService) ListTransactions(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	transactions, err := s.payments.ListTransactionsByPayer(ctx, payerID, normalizeLimit(limit), offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "listing transactions failed")
	}
	return transactions, nil
}

// ListPaymentTransactions returns the audit log of one payment, oldest first.
func (s *PaymentService) ListPaymentTransactions(ctx context.Context, paymentID, actorID uuid.UUID, isAdmin bool) ([]models.Transaction, error) {
	if _, err := s.Get(ctx, paymentID, actorID, isAdmin); err != nil {
		return nil, err
	}
	transactions, err := s.payments.ListTransactionsByPayment(ctx, paymentID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "listing transactions failed")
	}
	return transactions, nil
}

func mapPaymentLookupError(err error) error {
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return apperror.ErrPaymentNotFound
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, "payment lookup failed")
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
