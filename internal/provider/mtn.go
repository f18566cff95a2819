package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/logema/payments-backend/internal/models"
)

const mtnLiveBaseURL = "https://momodeveloper.mtn.com"

// MTNMoney is the MTN Mobile Money client. The collection API onboarding for
// Guinea is pending, so live calls report an explicit unavailability instead
// of a half-working integration.
type MTNMoney struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

func NewMTNMoney(apiKey, apiSecret string, timeout time.Duration) *MTNMoney {
	return &MTNMoney{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    mtnLiveBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *MTNMoney) Name() string {
	return models.PaymentMethodMTNMoney
}

func (p *MTNMoney) InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference, description string) InitiationResult {
	return InitiationResult{
		Success: false,
		Message: "MTN Mobile Money live integration is not available yet",
	}
}

func (p *MTNMoney) VerifyPayment(ctx context.Context, transactionID string) VerificationResult {
	return VerificationResult{
		Success: false,
		Message: "MTN Mobile Money live integration is not available yet",
	}
}

func (p *MTNMoney) ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) RefundResult {
	return RefundResult{
		Success: false,
		Message: "refund not implemented for MTN Mobile Money",
	}
}

func (p *MTNMoney) VerifyWebhookSignature(payload map[string]interface{}, signature string) bool {
	return VerifySignature([]byte(p.apiSecret), payload, signature)
}
