package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/logema/payments-backend/internal/models"
)

// sandboxTransactionPrefixes produce the deterministic transaction ids the
// rest of the system can rely on in tests and development.
var sandboxTransactionPrefixes = map[string]string{
	models.PaymentMethodOrangeMoney: "OM",
	models.PaymentMethodMTNMoney:    "MTN",
	models.PaymentMethodWave:        "WAVE",
}

var sandboxUSSDCodes = map[string]string{
	models.PaymentMethodOrangeMoney: "*144*4*6#",
	models.PaymentMethodMTNMoney:    "*182*7*1#",
}

// Sandbox wraps a real provider and intercepts every call with a synthetic
// deterministic response, so the whole payment flow can run without live
// credentials or network access. The wrapped provider only contributes its
// identity.
type Sandbox struct {
	inner Provider
}

// NewSandbox wraps a provider in simulation mode.
func NewSandbox(inner Provider) *Sandbox {
	return &Sandbox{inner: inner}
}

func (s *Sandbox) Name() string {
	return s.inner.Name()
}

func (s *Sandbox) InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference, description string) InitiationResult {
	return InitiationResult{
		Success:       true,
		TransactionID: sandboxTransactionPrefixes[s.inner.Name()] + "-" + reference,
		Status:        StatusPending,
		Message:       "payment initiated (sandbox mode)",
		USSDCode:      sandboxUSSDCodes[s.inner.Name()],
	}
}

func (s *Sandbox) VerifyPayment(ctx context.Context, transactionID string) VerificationResult {
	return VerificationResult{
		Success:       true,
		Status:        StatusCompleted,
		TransactionID: transactionID,
		Message:       "payment verified (sandbox mode)",
	}
}

func (s *Sandbox) ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) RefundResult {
	return RefundResult{
		Success:  true,
		RefundID: "REFUND-" + transactionID,
		Message:  "refund processed (sandbox mode)",
	}
}

// VerifyWebhookSignature always accepts in sandbox mode.
func (s *Sandbox) VerifyWebhookSignature(payload map[string]interface{}, signature string) bool {
	return true
}
