package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/logema/payments-backend/internal/models"
)

const orangeLiveBaseURL = "https://api.orange.com/orange-money-webpay/gn/v1"

// OrangeMoney is the live Orange Money WebPay client.
type OrangeMoney struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client

	frontendURL string
	backendURL  string
}

// NewOrangeMoney creates a live Orange Money client. The frontend URL serves
// the return and cancel pages; the backend URL receives webhooks.
func NewOrangeMoney(apiKey, apiSecret string, timeout time.Duration, frontendURL, backendURL string) *OrangeMoney {
	return &OrangeMoney{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		baseURL:     orangeLiveBaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		frontendURL: frontendURL,
		backendURL:  backendURL,
	}
}

func (p *OrangeMoney) Name() string {
	return models.PaymentMethodOrangeMoney
}

// InitiatePayment starts an Orange Money web payment session.
func (p *OrangeMoney) InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference, description string) InitiationResult {
	payload := map[string]interface{}{
		"merchant_key": p.apiKey,
		"currency":     models.DefaultCurrency,
		"order_id":     reference,
		"amount":       amount.IntPart(),
		"subscriber":   NormalizeMSISDN(phoneNumber),
		"return_url":   p.frontendURL + "/payment/callback",
		"cancel_url":   p.frontendURL + "/payment/cancel",
		"notif_url":    p.backendURL + "/api/payments/webhook/orange",
		"lang":         "fr",
		"reference":    description,
	}

	var parsed struct {
		PayToken   string `json:"pay_token"`
		PaymentURL string `json:"payment_url"`
		Message    string `json:"message"`
	}
	if err := p.post(ctx, "/webpayment", payload, &parsed); err != nil {
		return InitiationResult{
			Success: false,
			Error:   err.Error(),
			Message: "payment initiation failed",
		}
	}

	return InitiationResult{
		Success:       true,
		TransactionID: parsed.PayToken,
		Status:        StatusPending,
		PaymentURL:    parsed.PaymentURL,
		Message:       "payment initiated",
	}
}

// VerifyPayment checks the status of a web payment session.
func (p *OrangeMoney) VerifyPayment(ctx context.Context, transactionID string) VerificationResult {
	payload := map[string]interface{}{
		"merchant_key": p.apiKey,
		"pay_token":    transactionID,
	}

	var parsed struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := p.post(ctx, "/transactionstatus", payload, &parsed); err != nil {
		return VerificationResult{Success: false, Error: err.Error()}
	}

	return VerificationResult{
		Success:       true,
		Status:        normalizeOrangeStatus(parsed.Status),
		TransactionID: transactionID,
		Message:       parsed.Message,
	}
}

// ProcessRefund is not available on the Orange Money WebPay API: refunds are
// settled out of band through the merchant back office.
func (p *OrangeMoney) ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) RefundResult {
	return RefundResult{
		Success: false,
		Message: "refund not implemented for Orange Money",
	}
}

func (p *OrangeMoney) VerifyWebhookSignature(payload map[string]interface{}, signature string) bool {
	return VerifySignature([]byte(p.apiSecret), payload, signature)
}

// post sends a JSON request and decodes a JSON response, mapping any
// transport or HTTP-level failure to an error.
func (p *OrangeMoney) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("orange money: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("orange money: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("orange money: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("orange money: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("orange money: unexpected status %s: %s", resp.Status, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("orange money: invalid response body: %w", err)
	}
	return nil
}

// normalizeOrangeStatus maps Orange WebPay statuses onto the shared set.
func normalizeOrangeStatus(status string) string {
	switch status {
	case "SUCCESS", "SUCCESSFULL", "COMPLETED":
		return StatusCompleted
	case "FAILED", "EXPIRED":
		return StatusFailed
	default:
		return StatusPending
	}
}
