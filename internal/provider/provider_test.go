package provider

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logema/payments-backend/internal/config"
	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
)

func TestNormalizeMSISDN(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"local nine digits", "624123456", "224624123456"},
		{"spaced local", "624 12 34 56", "224624123456"},
		{"plus prefix", "+224624123456", "224624123456"},
		{"double zero prefix", "00224624123456", "224624123456"},
		{"dashed", "624-12-34-56", "224624123456"},
		{"already international", "224624123456", "224624123456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeMSISDN(tc.input))
		})
	}
}

func TestSignature_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	payload := map[string]interface{}{
		"transaction_id": "OM-abc",
		"status":         "COMPLETED",
		"amount":         1500000,
	}

	signature, err := Sign(secret, payload)
	require.NoError(t, err)
	require.NotEmpty(t, signature)

	assert.True(t, VerifySignature(secret, payload, signature))
	assert.False(t, VerifySignature([]byte("other-secret"), payload, signature))
	assert.False(t, VerifySignature(secret, payload, "deadbeef"))

	payload["status"] = "FAILED"
	assert.False(t, VerifySignature(secret, payload, signature))
}

func TestSignature_KeyOrderIndependent(t *testing.T) {
	secret := []byte("test-secret")
	a := map[string]interface{}{"b": "2", "a": "1"}
	b := map[string]interface{}{"a": "1", "b": "2"}

	sigA, err := Sign(secret, a)
	require.NoError(t, err)
	sigB, err := Sign(secret, b)
	require.NoError(t, err)
	assert.Equal(t, sigA, sigB)
}

func TestSandbox_DeterministicInitiation(t *testing.T) {
	cases := []struct {
		inner    Provider
		wantTxID string
		wantUSSD string
	}{
		{NewOrangeMoney("", "", time.Second, "", ""), "OM-REF-1", "*144*4*6#"},
		{NewMTNMoney("", "", time.Second), "MTN-REF-1", "*182*7*1#"},
		{NewWave("", "", time.Second), "WAVE-REF-1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.inner.Name(), func(t *testing.T) {
			sandbox := NewSandbox(tc.inner)
			result := sandbox.InitiatePayment(context.Background(), decimal.NewFromInt(1500000), "624123456", "REF-1", "rent")

			assert.True(t, result.Success)
			assert.Equal(t, tc.wantTxID, result.TransactionID)
			assert.Equal(t, StatusPending, result.Status)
			assert.Equal(t, tc.wantUSSD, result.USSDCode)
		})
	}
}

func TestSandbox_VerifyAndRefund(t *testing.T) {
	sandbox := NewSandbox(NewOrangeMoney("", "", time.Second, "", ""))

	verification := sandbox.VerifyPayment(context.Background(), "OM-REF-1")
	assert.True(t, verification.Success)
	assert.Equal(t, StatusCompleted, verification.Status)
	assert.Equal(t, "OM-REF-1", verification.TransactionID)

	refund := sandbox.ProcessRefund(context.Background(), "OM-REF-1", decimal.NewFromInt(1500000))
	assert.True(t, refund.Success)
	assert.Equal(t, "REFUND-OM-REF-1", refund.RefundID)

	assert.True(t, sandbox.VerifyWebhookSignature(map[string]interface{}{}, "anything"))
}

func sandboxConfig() *config.Config {
	return &config.Config{
		SandboxMode:     true,
		ProviderTimeout: time.Second,
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry(sandboxConfig())

	for _, method := range []string{
		models.PaymentMethodOrangeMoney,
		models.PaymentMethodMTNMoney,
		models.PaymentMethodWave,
	} {
		p, err := registry.Get(method)
		require.NoError(t, err)
		assert.Equal(t, method, p.Name())
	}

	_, err := registry.Get("BANK_TRANSFER")
	assert.ErrorIs(t, err, apperror.ErrUnknownProvider)
}

func TestRegistry_ForWebhook(t *testing.T) {
	registry := NewRegistry(sandboxConfig())

	cases := map[string]string{
		"orange": models.PaymentMethodOrangeMoney,
		"ORANGE": models.PaymentMethodOrangeMoney,
		"mtn":    models.PaymentMethodMTNMoney,
		"wave":   models.PaymentMethodWave,
	}
	for name, method := range cases {
		p, err := registry.ForWebhook(name)
		require.NoError(t, err)
		assert.Equal(t, method, p.Name())
	}

	_, err := registry.ForWebhook("paypal")
	assert.ErrorIs(t, err, apperror.ErrUnknownProvider)
}

func TestRegistry_SandboxFallsBackWithoutCredentials(t *testing.T) {
	cfg := sandboxConfig()
	cfg.SandboxMode = false

	registry := NewRegistry(cfg)
	p, err := registry.Get(models.PaymentMethodOrangeMoney)
	require.NoError(t, err)

	_, isSandbox := p.(*Sandbox)
	assert.True(t, isSandbox)
}

func TestRegistry_LiveWithCredentials(t *testing.T) {
	cfg := sandboxConfig()
	cfg.SandboxMode = false
	cfg.OrangeMoney = config.ProviderCredentials{APIKey: "key", APISecret: "secret"}

	registry := NewRegistry(cfg)
	p, err := registry.Get(models.PaymentMethodOrangeMoney)
	require.NoError(t, err)

	_, isSandbox := p.(*Sandbox)
	assert.False(t, isSandbox)
}

func TestNormalizeOrangeStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, normalizeOrangeStatus("SUCCESS"))
	assert.Equal(t, StatusCompleted, normalizeOrangeStatus("SUCCESSFULL"))
	assert.Equal(t, StatusFailed, normalizeOrangeStatus("EXPIRED"))
	assert.Equal(t, StatusPending, normalizeOrangeStatus("INITIATED"))
}
