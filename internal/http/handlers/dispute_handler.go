package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/logema/payments-backend/internal/dto"
	"github.com/logema/payments-backend/internal/http/handlers/common"
	"github.com/logema/payments-backend/internal/service"
)

type DisputeHandler struct {
	disputes *service.DisputeService
}

func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Open POST /disputes
func (h *DisputeHandler) Open(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		common.RespondBadRequest(c, "invalid payment_id")
		return
	}

	dispute, err := h.disputes.Open(c.Request.Context(), paymentID, userID, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// Get GET /disputes/:id
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Get(c.Request.Context(), disputeID, userID, common.IsAdmin(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// List GET /disputes
func (h *DisputeHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.List(c.Request.Context(), userID, common.IsAdmin(c), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// Resolve POST /disputes/:id/resolve (admin)
func (h *DisputeHandler) Resolve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), disputeID, req.Resolution, req.ResolutionNotes, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Close POST /disputes/:id/close (admin)
func (h *DisputeHandler) Close(c *gin.Context) {
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Close(c.Request.Context(), disputeID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}
