package dto

import (
	"github.com/logema/payments-backend/internal/models"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the uniform success envelope for mutations that carry a
// message alongside data.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InitiatePaymentResponse carries everything the client needs to complete a
// freshly initiated payment on their handset.
type InitiatePaymentResponse struct {
	Payment    *models.Payment `json:"payment"`
	Message    string          `json:"message,omitempty"`
	USSDCode   string          `json:"ussd_code,omitempty"`
	PaymentURL string          `json:"payment_url,omitempty"`
}

// VerifyPaymentResponse reports the provider-confirmed state of a payment.
type VerifyPaymentResponse struct {
	Payment        *models.Payment       `json:"payment"`
	ProviderStatus string                `json:"provider_status,omitempty"`
	Escrow         *models.EscrowAccount `json:"escrow,omitempty"`
	Message        string                `json:"message,omitempty"`
}

// ReleaseEscrowResponse lists the payout legs of a released escrow.
type ReleaseEscrowResponse struct {
	Distributions []models.PaymentDistribution `json:"distributions"`
}

// WebhookAckResponse acknowledges a provider notification.
type WebhookAckResponse struct {
	Status string `json:"status"`
}
