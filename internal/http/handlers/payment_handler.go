package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/logema/payments-backend/internal/dto"
	"github.com/logema/payments-backend/internal/http/handlers/common"
	"github.com/logema/payments-backend/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Initiate POST /payments/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	occupationID, err := uuid.Parse(req.OccupationRequestID)
	if err != nil {
		common.RespondBadRequest(c, "invalid occupation_request_id")
		return
	}

	out, err := h.payments.Initiate(c.Request.Context(), service.InitiateInput{
		OccupationRequestID: occupationID,
		PayerID:             userID,
		Method:              req.PaymentMethod,
		Phone:               req.PaymentPhone,
		SaveMethod:          req.SavePaymentMethod,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.InitiatePaymentResponse{
		Payment:    out.Payment,
		Message:    out.Message,
		USSDCode:   out.USSDCode,
		PaymentURL: out.PaymentURL,
	})
}

// Get GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.Get(c.Request.Context(), paymentID, userID, common.IsAdmin(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// List GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	payments, err := h.payments.ListByPayer(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// Verify POST /payments/:id/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	out, err := h.payments.Verify(c.Request.Context(), paymentID, userID, common.IsAdmin(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyPaymentResponse{
		Payment:        out.Payment,
		ProviderStatus: out.ProviderStatus,
		Escrow:         out.Escrow,
		Message:        out.Message,
	})
}

// Cancel POST /payments/:id/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.Cancel(c.Request.Context(), paymentID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListTransactions GET /payments/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	transactions, err := h.payments.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// ListPaymentTransactions GET /payments/:id/transactions
func (h *PaymentHandler) ListPaymentTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	transactions, err := h.payments.ListPaymentTransactions(c.Request.Context(), paymentID, userID, common.IsAdmin(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
