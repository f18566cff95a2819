package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
	"github.com/logema/payments-backend/internal/provider"
	"github.com/logema/payments-backend/internal/repository"
)

// WebhookService ingests provider callbacks. Handlers acknowledge anything
// authentic, even notifications for payments we cannot match, so providers do
// not retry forever.
type WebhookService struct {
	providers ProviderRegistry
	payments  PaymentStore
	escrow    EscrowHolder
}

func NewWebhookService(providers ProviderRegistry, payments PaymentStore, escrow EscrowHolder) *WebhookService {
	return &WebhookService{providers: providers, payments: payments, escrow: escrow}
}

// Handle processes one provider notification. It returns an error only when
// the caller must NOT be acknowledged: unknown provider or bad signature.
func (s *WebhookService) Handle(ctx context.Context, providerName string, payload map[string]interface{}, signature string) error {
	prov, err := s.providers.ForWebhook(providerName)
	if err != nil {
		return apperror.ErrUnknownProvider
	}

	if !prov.VerifyWebhookSignature(payload, signature) {
		if logger.Log != nil {
			logger.Log.WithField("provider", providerName).Warn("webhook signature rejected")
		}
		return apperror.ErrSignatureInvalid
	}

	transactionID, _ := payload["transaction_id"].(string)
	status, _ := payload["status"].(string)
	if transactionID == "" {
		if logger.Log != nil {
			logger.Log.WithField("provider", providerName).Warn("webhook without transaction_id acknowledged")
		}
		return nil
	}

	payment, err := s.payments.GetByProviderTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"provider":       providerName,
					"transaction_id": transactionID,
				}).Warn("webhook for unknown payment acknowledged")
			}
			return nil
		}
		return apperror.Wrap(err, apperror.ErrCodeInternal, "webhook processing failed")
	}

	switch strings.ToUpper(status) {
	case provider.StatusCompleted:
		// Hold is idempotent, so a duplicate completion notification is a
		// no-op success.
		if payment.Status != models.PaymentStatusProcessing && payment.Status != models.PaymentStatusHeldInEscrow {
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"payment_id": payment.ID,
					"status":     payment.Status,
				}).Warn("completion webhook for non-confirmable payment acknowledged")
			}
			return nil
		}
		if _, err := s.escrow.Hold(ctx, payment.ID); err != nil {
			return err
		}
	case provider.StatusFailed:
		raw, _ := json.Marshal(payload)
		changed, err := s.payments.MarkFailed(ctx, payment.ID, "provider reported failure", raw)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "webhook processing failed")
		}
		if !changed && logger.Log != nil {
			logger.Log.WithField("payment_id", payment.ID).Warn("failure webhook for settled payment acknowledged")
		}
	default:
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"provider": providerName,
				"status":   status,
			}).Info("webhook with unhandled status acknowledged")
		}
	}

	return nil
}
