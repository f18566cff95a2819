package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/logema/payments-backend/internal/models"
	"github.com/logema/payments-backend/internal/provider"
	"github.com/logema/payments-backend/internal/repository"
)

// mockPaymentStore implements PaymentStore over in-memory maps.
type mockPaymentStore struct {
	payments     map[uuid.UUID]*models.Payment
	transactions []models.Transaction
}

func newMockPaymentStore() *mockPaymentStore {
	return &mockPaymentStore{payments: make(map[uuid.UUID]*models.Payment)}
}

func (m *mockPaymentStore) RecordInitiation(ctx context.Context, payment *models.Payment, txn *models.Transaction) error {
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	m.payments[payment.ID] = payment
	m.transactions = append(m.transactions, *txn)
	return nil
}

func (m *mockPaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if p, ok := m.payments[id]; ok {
		return p, nil
	}
	return nil, repository.ErrPaymentNotFound
}

func (m *mockPaymentStore) GetByProviderTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (m *mockPaymentStore) ListByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.PayerID == payerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) Cancel(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if !p.CanBeCancelled() {
		return nil, repository.ErrInvalidPaymentState
	}
	p.Status = models.PaymentStatusCancelled
	m.transactions = append(m.transactions, models.Transaction{
		PaymentID: p.ID,
		Status:    models.TransactionStatusCancelled,
	})
	return p, nil
}

func (m *mockPaymentStore) MarkFailed(ctx context.Context, paymentID uuid.UUID, errorMessage string, providerResponse []byte) (bool, error) {
	p, ok := m.payments[paymentID]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if !models.CanTransition(p.Status, models.PaymentStatusFailed) {
		return false, nil
	}
	p.Status = models.PaymentStatusFailed
	m.transactions = append(m.transactions, models.Transaction{
		PaymentID:    p.ID,
		Status:       models.TransactionStatusFailed,
		ErrorMessage: errorMessage,
	})
	return true, nil
}

func (m *mockPaymentStore) ListTransactionsByPayer(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range m.transactions {
		if p, ok := m.payments[t.PaymentID]; ok && p.PayerID == payerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) ListTransactionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.PaymentID == paymentID {
			out = append(out, t)
		}
	}
	return out, nil
}

// mockOccupationStore implements OccupationStore.
type mockOccupationStore struct {
	occupations map[uuid.UUID]*models.OccupationRequest
	parties     map[uuid.UUID]*models.PropertyParties
}

func newMockOccupationStore() *mockOccupationStore {
	return &mockOccupationStore{
		occupations: make(map[uuid.UUID]*models.OccupationRequest),
		parties:     make(map[uuid.UUID]*models.PropertyParties),
	}
}

func (m *mockOccupationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.OccupationRequest, error) {
	if o, ok := m.occupations[id]; ok {
		return o, nil
	}
	return nil, repository.ErrOccupationNotFound
}

func (m *mockOccupationStore) SetPaymentAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if o, ok := m.occupations[id]; ok {
		o.PaymentAmount = decimal.NewNullDecimal(amount)
	}
	return nil
}

func (m *mockOccupationStore) PartiesFor(ctx context.Context, propertyID uuid.UUID) (*models.PropertyParties, error) {
	if p, ok := m.parties[propertyID]; ok {
		return p, nil
	}
	return nil, repository.ErrOccupationNotFound
}

// mockEscrowStore implements EscrowStore, transitioning payments through the
// linked mockPaymentStore the way the SQL store does.
type mockEscrowStore struct {
	payments *mockPaymentStore
	escrows  map[uuid.UUID]*models.EscrowAccount
}

func newMockEscrowStore(payments *mockPaymentStore) *mockEscrowStore {
	return &mockEscrowStore{
		payments: payments,
		escrows:  make(map[uuid.UUID]*models.EscrowAccount),
	}
}

func (m *mockEscrowStore) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	if e, ok := m.escrows[id]; ok {
		return e, nil
	}
	return nil, repository.ErrEscrowNotFound
}

func (m *mockEscrowStore) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.EscrowAccount, error) {
	for _, e := range m.escrows {
		if e.PaymentID == paymentID {
			return e, nil
		}
	}
	return nil, repository.ErrEscrowNotFound
}

func (m *mockEscrowStore) ListDueForRelease(ctx context.Context, now time.Time) ([]models.EscrowAccount, error) {
	var out []models.EscrowAccount
	for _, e := range m.escrows {
		if e.Status == models.EscrowStatusHolding && e.ReleaseScheduledDate != nil && !e.ReleaseScheduledDate.After(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEscrowStore) Hold(ctx context.Context, paymentID uuid.UUID, releaseAt time.Time) (*models.EscrowAccount, bool, error) {
	p, ok := m.payments.payments[paymentID]
	if !ok {
		return nil, false, repository.ErrPaymentNotFound
	}
	if p.Status == models.PaymentStatusHeldInEscrow {
		existing, err := m.GetByPaymentID(ctx, paymentID)
		return existing, false, err
	}
	if p.Status != models.PaymentStatusProcessing {
		return nil, false, repository.ErrInvalidPaymentState
	}

	escrow := &models.EscrowAccount{
		ID:                   uuid.New(),
		PaymentID:            paymentID,
		HeldAmount:           p.Amount,
		Status:               models.EscrowStatusHolding,
		HeldAt:               time.Now(),
		ReleaseScheduledDate: &releaseAt,
	}
	m.escrows[escrow.ID] = escrow
	p.Status = models.PaymentStatusHeldInEscrow
	return escrow, true, nil
}

func (m *mockEscrowStore) Release(ctx context.Context, escrowID uuid.UUID, distributions []models.PaymentDistribution) ([]models.PaymentDistribution, error) {
	e, ok := m.escrows[escrowID]
	if !ok {
		return nil, repository.ErrEscrowNotFound
	}
	if e.Status != models.EscrowStatusHolding {
		return nil, repository.ErrEscrowNotHeld
	}
	e.Status = models.EscrowStatusReleased
	now := time.Now()
	e.ReleasedAt = &now
	if p, ok := m.payments.payments[e.PaymentID]; ok {
		p.Status = models.PaymentStatusReleased
	}
	for i := range distributions {
		distributions[i].Status = models.DistributionStatusCompleted
	}
	return distributions, nil
}

func (m *mockEscrowStore) Refund(ctx context.Context, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error) {
	e, err := m.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EscrowStatusHolding {
		return nil, repository.ErrEscrowNotHeld
	}
	e.Status = models.EscrowStatusRefunded
	e.RefundReason = reason
	if p, ok := m.payments.payments[paymentID]; ok {
		p.Status = models.PaymentStatusRefunded
	}
	return e, nil
}

// mockProvider returns scripted results.
type mockProvider struct {
	name           string
	initResult     provider.InitiationResult
	verifyResult   provider.VerificationResult
	validSignature bool
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference, description string) provider.InitiationResult {
	return m.initResult
}

func (m *mockProvider) VerifyPayment(ctx context.Context, transactionID string) provider.VerificationResult {
	return m.verifyResult
}

func (m *mockProvider) ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) provider.RefundResult {
	return provider.RefundResult{Success: true}
}

func (m *mockProvider) VerifyWebhookSignature(payload map[string]interface{}, signature string) bool {
	return m.validSignature
}

// mockRegistry serves one provider for every lookup.
type mockRegistry struct {
	prov provider.Provider
	err  error
}

func (m *mockRegistry) Get(method string) (provider.Provider, error) {
	return m.prov, m.err
}

func (m *mockRegistry) ForWebhook(name string) (provider.Provider, error) {
	return m.prov, m.err
}

// mockMethodStore implements PaymentMethodStore.
type mockMethodStore struct {
	methods map[uuid.UUID]*models.PaymentMethod
}

func newMockMethodStore() *mockMethodStore {
	return &mockMethodStore{methods: make(map[uuid.UUID]*models.PaymentMethod)}
}

func (m *mockMethodStore) Create(ctx context.Context, method *models.PaymentMethod) error {
	for _, existing := range m.methods {
		if existing.UserID == method.UserID && existing.MethodType == method.MethodType && existing.PhoneNumber == method.PhoneNumber {
			return repository.ErrPaymentMethodExists
		}
	}
	if method.IsDefault {
		for _, existing := range m.methods {
			if existing.UserID == method.UserID {
				existing.IsDefault = false
			}
		}
	}
	method.ID = uuid.New()
	m.methods[method.ID] = method
	return nil
}

func (m *mockMethodStore) GetOrCreate(ctx context.Context, userID uuid.UUID, methodType, phoneNumber string) (*models.PaymentMethod, error) {
	for _, existing := range m.methods {
		if existing.UserID == userID && existing.MethodType == methodType && existing.PhoneNumber == phoneNumber {
			return existing, nil
		}
	}
	method := &models.PaymentMethod{
		ID:          uuid.New(),
		UserID:      userID,
		MethodType:  methodType,
		PhoneNumber: phoneNumber,
	}
	m.methods[method.ID] = method
	return method, nil
}

func (m *mockMethodStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	if method, ok := m.methods[id]; ok {
		return method, nil
	}
	return nil, repository.ErrPaymentMethodNotFound
}

func (m *mockMethodStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	for _, method := range m.methods {
		if method.UserID == userID {
			out = append(out, *method)
		}
	}
	return out, nil
}

func (m *mockMethodStore) SetDefault(ctx context.Context, userID, methodID uuid.UUID) (*models.PaymentMethod, error) {
	target, ok := m.methods[methodID]
	if !ok || target.UserID != userID {
		return nil, repository.ErrPaymentMethodNotFound
	}
	for _, method := range m.methods {
		if method.UserID == userID {
			method.IsDefault = false
		}
	}
	target.IsDefault = true
	return target, nil
}

func (m *mockMethodStore) Delete(ctx context.Context, userID, methodID uuid.UUID) error {
	method, ok := m.methods[methodID]
	if !ok || method.UserID != userID {
		return repository.ErrPaymentMethodNotFound
	}
	delete(m.methods, methodID)
	return nil
}

// mockDisputeStore implements DisputeStore. Resolve runs the refund callback
// with a nil transaction, mirroring the atomicity contract without a database.
type mockDisputeStore struct {
	disputes map[uuid.UUID]*models.PaymentDispute
}

func newMockDisputeStore() *mockDisputeStore {
	return &mockDisputeStore{disputes: make(map[uuid.UUID]*models.PaymentDispute)}
}

func (m *mockDisputeStore) Create(ctx context.Context, dispute *models.PaymentDispute) error {
	dispute.ID = uuid.New()
	dispute.CreatedAt = time.Now()
	m.disputes[dispute.ID] = dispute
	return nil
}

func (m *mockDisputeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentDispute, error) {
	if d, ok := m.disputes[id]; ok {
		return d, nil
	}
	return nil, repository.ErrDisputeNotFound
}

func (m *mockDisputeStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PaymentDispute, error) {
	var out []models.PaymentDispute
	for _, d := range m.disputes {
		if d.RaisedByID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDisputeStore) ListAll(ctx context.Context, limit, offset int) ([]models.PaymentDispute, error) {
	var out []models.PaymentDispute
	for _, d := range m.disputes {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDisputeStore) Resolve(ctx context.Context, disputeID uuid.UUID, resolution, notes string, resolvedBy uuid.UUID, refundFn func(tx *sqlx.Tx, paymentID uuid.UUID) error) (*models.PaymentDispute, error) {
	d, ok := m.disputes[disputeID]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	if d.Status == models.DisputeStatusResolved || d.Status == models.DisputeStatusClosed {
		return nil, repository.ErrDisputeAlreadyResolved
	}
	if refundFn != nil {
		if err := refundFn(nil, d.PaymentID); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	d.Status = models.DisputeStatusResolved
	d.Resolution = resolution
	d.ResolutionNotes = notes
	d.ResolvedByID = &resolvedBy
	d.ResolvedAt = &now
	return d, nil
}

func (m *mockDisputeStore) Close(ctx context.Context, disputeID uuid.UUID) (*models.PaymentDispute, error) {
	d, ok := m.disputes[disputeID]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	if d.Status != models.DisputeStatusResolved {
		return nil, repository.ErrDisputeNotResolved
	}
	d.Status = models.DisputeStatusClosed
	return d, nil
}

// mockRefunder records RefundTx calls for dispute tests.
type mockRefunder struct {
	escrows  *mockEscrowStore
	called   int
	reasons  []string
	payments []uuid.UUID
}

func (m *mockRefunder) RefundTx(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID, reason string) (*models.EscrowAccount, error) {
	m.called++
	m.reasons = append(m.reasons, reason)
	m.payments = append(m.payments, paymentID)
	return m.escrows.Refund(ctx, paymentID, reason)
}
