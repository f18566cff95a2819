package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/logema/payments-backend/internal/dto"
	"github.com/logema/payments-backend/internal/http/handlers/common"
	"github.com/logema/payments-backend/internal/service"
)

type EscrowHandler struct {
	escrow   *service.EscrowService
	disputes *service.DisputeService
}

func NewEscrowHandler(escrow *service.EscrowService, disputes *service.DisputeService) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, disputes: disputes}
}

// Get GET /escrow/:id
func (h *EscrowHandler) Get(c *gin.Context) {
	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrow.Get(c.Request.Context(), escrowID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, escrow)
}

// Release POST /escrow/:id/release (admin)
func (h *EscrowHandler) Release(c *gin.Context) {
	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	distributions, err := h.escrow.Release(c.Request.Context(), escrowID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReleaseEscrowResponse{Distributions: distributions})
}

// RequestRefund POST /escrow/:id/refund
//
// The payer does not get the money back immediately: this opens a dispute
// that an admin resolves.
func (h *EscrowHandler) RequestRefund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.RequestRefund(c.Request.Context(), escrowID, userID, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}
