package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/logema/payments-backend/internal/models"
)

const waveLiveBaseURL = "https://api.wave.com"

// Wave is the Wave mobile-money client. Wave has no checkout API for Guinea
// yet, so live calls report an explicit unavailability.
type Wave struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

func NewWave(apiKey, apiSecret string, timeout time.Duration) *Wave {
	return &Wave{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    waveLiveBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *Wave) Name() string {
	return models.PaymentMethodWave
}

func (p *Wave) InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference, description string) InitiationResult {
	return InitiationResult{
		Success: false,
		Message: "Wave live integration is not available yet",
	}
}

func (p *Wave) VerifyPayment(ctx context.Context, transactionID string) VerificationResult {
	return VerificationResult{
		Success: false,
		Message: "Wave live integration is not available yet",
	}
}

func (p *Wave) ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) RefundResult {
	return RefundResult{
		Success: false,
		Message: "refund not implemented for Wave",
	}
}

func (p *Wave) VerifyWebhookSignature(payload map[string]interface{}, signature string) bool {
	return VerifySignature([]byte(p.apiSecret), payload, signature)
}
