package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/logema/payments-backend/internal/dto"
	"github.com/logema/payments-backend/internal/http/handlers/common"
	"github.com/logema/payments-backend/internal/service"
)

type PaymentMethodHandler struct {
	methods *service.PaymentMethodService
}

func NewPaymentMethodHandler(methods *service.PaymentMethodService) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods}
}

// Create POST /payment-methods
func (h *PaymentMethodHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	method, err := h.methods.Create(c.Request.Context(), service.CreateMethodInput{
		UserID:      userID,
		MethodType:  req.MethodType,
		PhoneNumber: req.PhoneNumber,
		Nickname:    req.Nickname,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, method)
}

// List GET /payment-methods
func (h *PaymentMethodHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	methods, err := h.methods.List(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

// SetDefault PUT /payment-methods/:id/default
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	methodID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	method, err := h.methods.SetDefault(c.Request.Context(), userID, methodID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, method)
}

// Delete DELETE /payment-methods/:id
func (h *PaymentMethodHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	methodID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.methods.Delete(c.Request.Context(), userID, methodID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "payment method deleted", nil)
}
