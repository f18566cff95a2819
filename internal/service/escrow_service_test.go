package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
)

func gnf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateDistributions_WithAgent(t *testing.T) {
	paymentID := uuid.New()
	agentID := uuid.New()
	ownerID := uuid.New()

	distributions := CalculateDistributions(paymentID, gnf("1500000"), &models.PropertyParties{
		OwnerID: ownerID,
		AgentID: &agentID,
	})

	require.Len(t, distributions, 2)

	assert.Equal(t, models.DistributionTypeAgentCommission, distributions[0].DistributionType)
	assert.Equal(t, agentID, distributions[0].RecipientID)
	assert.True(t, distributions[0].Amount.Equal(gnf("150000")), "agent got %s", distributions[0].Amount)

	assert.Equal(t, models.DistributionTypeOwnerPayment, distributions[1].DistributionType)
	assert.Equal(t, ownerID, distributions[1].RecipientID)
	assert.True(t, distributions[1].Amount.Equal(gnf("1320000")), "owner got %s", distributions[1].Amount)
}

func TestCalculateDistributions_WithoutAgent(t *testing.T) {
	distributions := CalculateDistributions(uuid.New(), gnf("1000000"), &models.PropertyParties{
		OwnerID: uuid.New(),
	})

	require.Len(t, distributions, 1)
	assert.Equal(t, models.DistributionTypeOwnerPayment, distributions[0].DistributionType)
	assert.True(t, distributions[0].Amount.Equal(gnf("980000")), "owner got %s", distributions[0].Amount)
}

func TestCalculateDistributions_Conservation(t *testing.T) {
	// Distributions plus the implicit platform fee always add up to the held
	// amount exactly.
	agentID := uuid.New()
	amount := gnf("333333.33")

	distributions := CalculateDistributions(uuid.New(), amount, &models.PropertyParties{
		OwnerID: uuid.New(),
		AgentID: &agentID,
	})

	total := amount.Mul(PlatformFeeRate)
	for _, d := range distributions {
		total = total.Add(d.Amount)
	}
	assert.True(t, total.Equal(amount), "split total %s != held %s", total, amount)
}

func newEscrowFixture() (*EscrowService, *mockPaymentStore, *mockEscrowStore, *mockOccupationStore) {
	payments := newMockPaymentStore()
	escrows := newMockEscrowStore(payments)
	occupations := newMockOccupationStore()
	svc := NewEscrowService(escrows, payments, occupations, 7*24*time.Hour)
	return svc, payments, escrows, occupations
}

func seedHeldPayment(t *testing.T, svc *EscrowService, payments *mockPaymentStore, occupations *mockOccupationStore, agent bool) (*models.Payment, *models.EscrowAccount) {
	t.Helper()

	propertyID := uuid.New()
	occupation := &models.OccupationRequest{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		RequesterID: uuid.New(),
	}
	occupations.occupations[occupation.ID] = occupation
	parties := &models.PropertyParties{PropertyID: propertyID, OwnerID: uuid.New()}
	if agent {
		agentID := uuid.New()
		parties.AgentID = &agentID
	}
	occupations.parties[propertyID] = parties

	payment := &models.Payment{
		ID:                  uuid.New(),
		OccupationRequestID: occupation.ID,
		PayerID:             occupation.RequesterID,
		Amount:              gnf("1500000"),
		Currency:            models.DefaultCurrency,
		Status:              models.PaymentStatusProcessing,
		TransactionID:       "OM-" + uuid.NewString(),
	}
	payments.payments[payment.ID] = payment

	escrow, err := svc.Hold(context.Background(), payment.ID)
	require.NoError(t, err)
	return payment, escrow
}

func TestEscrowService_Hold_Idempotent(t *testing.T) {
	svc, payments, _, occupations := newEscrowFixture()
	payment, escrow := seedHeldPayment(t, svc, payments, occupations, true)

	assert.Equal(t, models.PaymentStatusHeldInEscrow, payment.Status)
	assert.Equal(t, models.EscrowStatusHolding, escrow.Status)

	again, err := svc.Hold(context.Background(), payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, escrow.ID, again.ID)
}

func TestEscrowService_Hold_RejectsPending(t *testing.T) {
	svc, payments, _, _ := newEscrowFixture()
	payment := &models.Payment{ID: uuid.New(), Status: models.PaymentStatusPending}
	payments.payments[payment.ID] = payment

	_, err := svc.Hold(context.Background(), payment.ID)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestEscrowService_Release_SplitsAndCloses(t *testing.T) {
	svc, payments, _, occupations := newEscrowFixture()
	payment, escrow := seedHeldPayment(t, svc, payments, occupations, true)

	distributions, err := svc.Release(context.Background(), escrow.ID)
	require.NoError(t, err)

	require.Len(t, distributions, 2)
	assert.Equal(t, models.PaymentStatusReleased, payment.Status)
	assert.Equal(t, models.EscrowStatusReleased, escrow.Status)
	for _, d := range distributions {
		assert.Equal(t, models.DistributionStatusCompleted, d.Status)
	}
}

func TestEscrowService_Release_Twice(t *testing.T) {
	svc, payments, _, occupations := newEscrowFixture()
	_, escrow := seedHeldPayment(t, svc, payments, occupations, false)

	_, err := svc.Release(context.Background(), escrow.ID)
	require.NoError(t, err)

	_, err = svc.Release(context.Background(), escrow.ID)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestEscrowService_Refund(t *testing.T) {
	svc, payments, _, occupations := newEscrowFixture()
	payment, escrow := seedHeldPayment(t, svc, payments, occupations, false)

	refunded, err := svc.Refund(context.Background(), payment.ID, "tenant never moved in")
	require.NoError(t, err)

	assert.Equal(t, escrow.ID, refunded.ID)
	assert.Equal(t, models.EscrowStatusRefunded, refunded.Status)
	assert.Equal(t, "tenant never moved in", refunded.RefundReason)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
}

func TestEscrowService_Refund_NoEscrow(t *testing.T) {
	svc, payments, _, _ := newEscrowFixture()
	payment := &models.Payment{ID: uuid.New(), Status: models.PaymentStatusProcessing}
	payments.payments[payment.ID] = payment

	_, err := svc.Refund(context.Background(), payment.ID, "nothing held")
	assert.ErrorIs(t, err, apperror.ErrNoEscrow)
}

func TestEscrowService_AutoReleaseExpired(t *testing.T) {
	svc, payments, escrows, occupations := newEscrowFixture()

	duePayment, dueEscrow := seedHeldPayment(t, svc, payments, occupations, false)
	past := time.Now().Add(-time.Hour)
	dueEscrow.ReleaseScheduledDate = &past

	notDuePayment, _ := seedHeldPayment(t, svc, payments, occupations, false)

	released, failed := svc.AutoReleaseExpired(context.Background(), time.Now())

	assert.Equal(t, 1, released)
	assert.Equal(t, 0, failed)
	assert.Equal(t, models.PaymentStatusReleased, duePayment.Status)
	assert.Equal(t, models.PaymentStatusHeldInEscrow, notDuePayment.Status)

	// Nothing is due anymore.
	due, err := escrows.ListDueForRelease(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}
