package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/pkg/apperror"
)

type disputeFixture struct {
	svc      *DisputeService
	disputes *mockDisputeStore
	payments *mockPaymentStore
	escrows  *mockEscrowStore
	refunder *mockRefunder
}

func newDisputeFixture() *disputeFixture {
	payments := newMockPaymentStore()
	escrows := newMockEscrowStore(payments)
	disputes := newMockDisputeStore()
	refunder := &mockRefunder{escrows: escrows}
	return &disputeFixture{
		svc:      NewDisputeService(disputes, payments, escrows, refunder),
		disputes: disputes,
		payments: payments,
		escrows:  escrows,
		refunder: refunder,
	}
}

func (f *disputeFixture) seedHeldPayment(t *testing.T) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:      uuid.New(),
		PayerID: uuid.New(),
		Amount:  gnf("900000"),
		Status:  models.PaymentStatusProcessing,
	}
	f.payments.payments[payment.ID] = payment
	_, _, err := f.escrows.Hold(context.Background(), payment.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return payment
}

func TestDisputeService_Open(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)

	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, payment.ID, dispute.PaymentID)
	assert.Equal(t, payment.PayerID, dispute.RaisedByID)
}

func TestDisputeService_Open_ShortReason(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)

	_, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "bad")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Open_StrangerForbidden(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)

	_, err := f.svc.Open(context.Background(), payment.ID, uuid.New(), "someone else complains")
	assert.True(t, apperror.IsForbidden(err))
}

func TestDisputeService_Open_AnyPaymentState(t *testing.T) {
	// Disputes may target settled payments too; only the refund at resolution
	// time requires a held escrow.
	f := newDisputeFixture()
	payment := &models.Payment{ID: uuid.New(), PayerID: uuid.New(), Status: models.PaymentStatusReleased}
	f.payments.payments[payment.ID] = payment

	_, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "released but the flat was never handed over")
	assert.NoError(t, err)
}

func TestDisputeService_Resolve_FullRefund(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	admin := uuid.New()
	resolved, err := f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionRefundFull, "verified with the owner", admin)
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusResolved, resolved.Status)
	assert.Equal(t, models.ResolutionRefundFull, resolved.Resolution)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, admin, *resolved.ResolvedByID)

	assert.Equal(t, 1, f.refunder.called)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
}

func TestDisputeService_Resolve_PartialRefundsFullAmount(t *testing.T) {
	// Partial refunds are a resolution label only; the whole held amount goes
	// back to the payer.
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "half the furniture was missing")
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionRefundPartial, "", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 1, f.refunder.called)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)

	escrow, err := f.escrows.GetByPaymentID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowStatusRefunded, escrow.Status)
}

func TestDisputeService_Resolve_NoRefund(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionNoRefund, "claim not substantiated", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusResolved, resolved.Status)
	assert.Equal(t, 0, f.refunder.called)
	assert.Equal(t, models.PaymentStatusHeldInEscrow, payment.Status)
}

func TestDisputeService_Resolve_UnknownResolution(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), dispute.ID, "SPLIT_THE_DIFFERENCE", "", uuid.New())
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 0, f.refunder.called)
}

func TestDisputeService_Resolve_Twice(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionNoRefund, "", uuid.New())
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionRefundFull, "", uuid.New())
	assert.True(t, apperror.IsStateConflict(err))
}

func TestDisputeService_Resolve_RefundWithoutEscrow(t *testing.T) {
	f := newDisputeFixture()
	payment := &models.Payment{ID: uuid.New(), PayerID: uuid.New(), Status: models.PaymentStatusReleased}
	f.payments.payments[payment.ID] = payment
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "released but the flat was never handed over")
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionRefundFull, "", uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNoEscrow)

	// The failed refund leaves the dispute open.
	stored, getErr := f.disputes.GetByID(context.Background(), dispute.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.DisputeStatusOpen, stored.Status)
}

func TestDisputeService_Close(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), dispute.ID)
	assert.True(t, apperror.IsStateConflict(err))

	_, err = f.svc.Resolve(context.Background(), dispute.ID, models.ResolutionNoRefund, "", uuid.New())
	require.NoError(t, err)

	closed, err := f.svc.Close(context.Background(), dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusClosed, closed.Status)
}

func TestDisputeService_RequestRefund(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	escrow, err := f.escrows.GetByPaymentID(context.Background(), payment.ID)
	require.NoError(t, err)

	dispute, err := f.svc.RequestRefund(context.Background(), escrow.ID, payment.PayerID, "tenant never moved in")
	require.NoError(t, err)

	assert.Equal(t, payment.ID, dispute.PaymentID)
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	// No money moves until an admin resolves.
	assert.Equal(t, models.PaymentStatusHeldInEscrow, payment.Status)
}

func TestDisputeService_Get_Visibility(t *testing.T) {
	f := newDisputeFixture()
	payment := f.seedHeldPayment(t)
	dispute, err := f.svc.Open(context.Background(), payment.ID, payment.PayerID, "the landlord rejected the keys")
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), dispute.ID, payment.PayerID, false)
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), dispute.ID, uuid.New(), false)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Get(context.Background(), dispute.ID, uuid.New(), true)
	assert.NoError(t, err)
}
