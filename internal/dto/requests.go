package dto

// InitiatePaymentRequest starts a mobile-money payment for an occupation
// request.
type InitiatePaymentRequest struct {
	OccupationRequestID string `json:"occupation_request_id" binding:"required,uuid"`
	PaymentMethod       string `json:"payment_method" binding:"required"`
	PaymentPhone        string `json:"payment_phone" binding:"required"`
	SavePaymentMethod   bool   `json:"save_payment_method"`
}

// RefundRequest asks for a held payment to be returned to the payer.
type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// OpenDisputeRequest raises a dispute against a payment.
type OpenDisputeRequest struct {
	PaymentID string `json:"payment_id" binding:"required,uuid"`
	Reason    string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest records an admin decision on a dispute.
type ResolveDisputeRequest struct {
	Resolution      string `json:"resolution" binding:"required"`
	ResolutionNotes string `json:"resolution_notes"`
}

// CreatePaymentMethodRequest saves a mobile-money account for reuse.
type CreatePaymentMethodRequest struct {
	MethodType  string `json:"method_type" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Nickname    string `json:"nickname"`
	IsDefault   bool   `json:"is_default"`
}
