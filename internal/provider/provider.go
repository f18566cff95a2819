package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider-reported payment statuses, normalized across backends.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// InitiationResult is the outcome of an initiation attempt. Transport and
// provider failures are folded into Success/Error so callers decide the
// payment transition locally instead of unwinding through error branches.
type InitiationResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
	USSDCode      string `json:"ussd_code,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	Error         string `json:"error,omitempty"`
}

// VerificationResult is the outcome of a status check.
type VerificationResult struct {
	Success       bool   `json:"success"`
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RefundResult is the outcome of a refund attempt. Providers without a
// programmatic refund capability report Success=false with a message.
type RefundResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Provider is one mobile-money backend. Implementations must never panic on
// transport failure and must respect the deadline carried by ctx.
type Provider interface {
	// Name returns the payment method this provider serves, e.g. ORANGE_MONEY.
	Name() string
	InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference, description string) InitiationResult
	VerifyPayment(ctx context.Context, transactionID string) VerificationResult
	ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) RefundResult
	VerifyWebhookSignature(payload map[string]interface{}, signature string) bool
}

// NormalizeMSISDN reduces a phone number to the international digits-only
// form the providers expect. Nine-digit local numbers get Guinea's 224 prefix.
func NormalizeMSISDN(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()
	if len(number) == 9 {
		return "224" + number
	}
	if strings.HasPrefix(number, "00224") {
		return number[2:]
	}
	return number
}
