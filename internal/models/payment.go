package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses
const (
	PaymentStatusPending      = "PENDING"
	PaymentStatusProcessing   = "PROCESSING"
	PaymentStatusHeldInEscrow = "HELD_IN_ESCROW"
	PaymentStatusReleased     = "RELEASED"
	PaymentStatusRefunded     = "REFUNDED"
	PaymentStatusFailed       = "FAILED"
	PaymentStatusCancelled    = "CANCELLED"
)

// Payment methods
const (
	PaymentMethodOrangeMoney  = "ORANGE_MONEY"
	PaymentMethodMTNMoney     = "MTN_MONEY"
	PaymentMethodWave         = "WAVE"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCash         = "CASH"
)

// DefaultCurrency is the currency every amount is denominated in.
const DefaultCurrency = "GNF"

// MinAmount is the smallest amount a payment or distribution may carry.
var MinAmount = decimal.RequireFromString("0.01")

// paymentTransitions lists the allowed forward moves of the payment state
// machine. Terminal states have no outgoing edges.
var paymentTransitions = map[string][]string{
	PaymentStatusPending:      {PaymentStatusProcessing, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing:   {PaymentStatusHeldInEscrow, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusHeldInEscrow: {PaymentStatusReleased, PaymentStatusRefunded},
}

// CanTransition reports whether a payment may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalPaymentStatus reports whether no further transition is possible.
func IsTerminalPaymentStatus(status string) bool {
	return len(paymentTransitions[status]) == 0
}

// Payment represents one attempted transfer of money for an occupation request.
type Payment struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	OccupationRequestID uuid.UUID       `db:"occupation_request_id" json:"occupation_request_id"`
	PayerID             uuid.UUID       `db:"payer_id" json:"payer_id"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	Currency            string          `db:"currency" json:"currency"`
	Status              string          `db:"status" json:"status"`
	PaymentMethod       string          `db:"payment_method" json:"payment_method"`
	PaymentPhone        string          `db:"payment_phone" json:"payment_phone"`
	TransactionID       string          `db:"transaction_id" json:"transaction_id"`
	ProviderReference   string          `db:"provider_reference" json:"provider_reference"`
	ProviderResponse    []byte          `db:"provider_response" json:"-"`
	Description         string          `db:"description" json:"description"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt         *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// CanBeCancelled reports whether the payer may still abort the payment.
func (p *Payment) CanBeCancelled() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}

// Escrow statuses
const (
	EscrowStatusHolding  = "HOLDING"
	EscrowStatusReleased = "RELEASED"
	EscrowStatusRefunded = "REFUNDED"
)

// EscrowAccount holds the funds of exactly one payment between confirmation
// and release or refund.
type EscrowAccount struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	PaymentID            uuid.UUID       `db:"payment_id" json:"payment_id"`
	HeldAmount           decimal.Decimal `db:"held_amount" json:"held_amount"`
	Status               string          `db:"status" json:"status"`
	HeldAt               time.Time       `db:"held_at" json:"held_at"`
	ReleaseScheduledDate *time.Time      `db:"release_scheduled_date" json:"release_scheduled_date,omitempty"`
	ReleasedAt           *time.Time      `db:"released_at" json:"released_at,omitempty"`
	RefundReason         string          `db:"refund_reason" json:"refund_reason"`
}

// Distribution types
const (
	DistributionTypeOwnerPayment    = "OWNER_PAYMENT"
	DistributionTypeAgentCommission = "AGENT_COMMISSION"
	DistributionTypePlatformFee     = "PLATFORM_FEE"
)

// Distribution statuses
const (
	DistributionStatusPending    = "PENDING"
	DistributionStatusProcessing = "PROCESSING"
	DistributionStatusCompleted  = "COMPLETED"
	DistributionStatusFailed     = "FAILED"
)

// PaymentDistribution is one payout leg of a released escrow.
type PaymentDistribution struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	PaymentID        uuid.UUID       `db:"payment_id" json:"payment_id"`
	RecipientID      uuid.UUID       `db:"recipient_id" json:"recipient_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	DistributionType string          `db:"distribution_type" json:"distribution_type"`
	Status           string          `db:"status" json:"status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// Transaction types
const (
	TransactionTypePayment    = "PAYMENT"
	TransactionTypeRefund     = "REFUND"
	TransactionTypeCommission = "COMMISSION"
	TransactionTypeTransfer   = "TRANSFER"
	TransactionTypeFee        = "FEE"
)

// Transaction statuses
const (
	TransactionStatusPending    = "PENDING"
	TransactionStatusProcessing = "PROCESSING"
	TransactionStatusCompleted  = "COMPLETED"
	TransactionStatusFailed     = "FAILED"
	TransactionStatusCancelled  = "CANCELLED"
)

// Transaction is an append-only audit record of a monetary event tied to a
// payment. Completed and failed entries are never updated.
type Transaction struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	PaymentID        uuid.UUID       `db:"payment_id" json:"payment_id"`
	TransactionType  string          `db:"transaction_type" json:"transaction_type"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Status           string          `db:"status" json:"status"`
	Description      string          `db:"description" json:"description"`
	ProviderResponse []byte          `db:"provider_response" json:"-"`
	ErrorMessage     string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentMethod is a payer's saved mobile-money identity.
type PaymentMethod struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	MethodType  string     `db:"method_type" json:"method_type"`
	PhoneNumber string     `db:"phone_number" json:"phone_number"`
	IsDefault   bool       `db:"is_default" json:"is_default"`
	IsVerified  bool       `db:"is_verified" json:"is_verified"`
	Nickname    string     `db:"nickname" json:"nickname"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}
