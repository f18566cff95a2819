package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
	"github.com/logema/payments-backend/internal/provider"
	"github.com/logema/payments-backend/internal/repository"
	"github.com/logema/payments-backend/internal/validation"
)

type PaymentMethodStore interface {
	Create(ctx context.Context, method *models.PaymentMethod) error
	GetOrCreate(ctx context.Context, userID uuid.UUID, methodType, phoneNumber string) (*models.PaymentMethod, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	SetDefault(ctx context.Context, userID, methodID uuid.UUID) (*models.PaymentMethod, error)
	Delete(ctx context.Context, userID, methodID uuid.UUID) error
}

var supportedMethodTypes = map[string]bool{
	models.PaymentMethodOrangeMoney: true,
	models.PaymentMethodMTNMoney:    true,
	models.PaymentMethodWave:        true,
}

// PaymentMethodService manages a user's saved mobile-money accounts.
type PaymentMethodService struct {
	methods PaymentMethodStore
}

func NewPaymentMethodService(methods PaymentMethodStore) *PaymentMethodService {
	return &PaymentMethodService{methods: methods}
}

type CreateMethodInput struct {
	UserID      uuid.UUID
	MethodType  string
	PhoneNumber string
	Nickname    string
	IsDefault   bool
}

// Create saves a new payment method. A duplicate of the same provider and
// phone number rejects.
func (s *PaymentMethodService) Create(ctx context.Context, in CreateMethodInput) (*models.PaymentMethod, error) {
	if !supportedMethodTypes[in.MethodType] {
		return nil, apperror.New(apperror.ErrCodeValidation, "unsupported payment method type")
	}
	if err := validation.ValidatePhone(in.PhoneNumber); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("nickname", in.Nickname, 0, validation.MaxNicknameLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	method := &models.PaymentMethod{
		UserID:      in.UserID,
		MethodType:  in.MethodType,
		PhoneNumber: provider.NormalizeMSISDN(in.PhoneNumber),
		Nickname:    in.Nickname,
		IsDefault:   in.IsDefault,
	}
	if err := s.methods.Create(ctx, method); err != nil {
		if errors.Is(err, repository.ErrPaymentMethodExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "this payment method is already saved")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "saving payment method failed")
	}

	if logger.Log != nil {
		logger.Log.WithField("method_id", method.ID).Info("payment method saved")
	}
	return method, nil
}

// List returns the user's saved methods, the default one first.
func (s *PaymentMethodService) List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	methods, err := s.methods.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "listing payment methods failed")
	}
	return methods, nil
}

// SetDefault marks one saved method as the user's default, clearing any
// previous default.
func (s *PaymentMethodService) SetDefault(ctx context.Context, userID, methodID uuid.UUID) (*models.PaymentMethod, error) {
	method, err := s.methods.SetDefault(ctx, userID, methodID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "payment method not found")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "updating payment method failed")
	}
	return method, nil
}

// Delete removes one of the user's saved methods.
func (s *PaymentMethodService) Delete(ctx context.Context, userID, methodID uuid.UUID) error {
	if err := s.methods.Delete(ctx, userID, methodID); err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "payment method not found")
		}
		return apperror.Wrap(err, apperror.ErrCodeInternal, "deleting payment method failed")
	}
	return nil
}
