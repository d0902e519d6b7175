package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bjscha03/Final-Banner-Site-sub004/services"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SweepTrigger runs an abandoned cart sweep on demand
type SweepTrigger interface {
	Trigger(ctx context.Context) (*services.SweepResult, error)
}

// ReminderService sends reminders and records clicks on them
type ReminderService interface {
	Send(ctx context.Context, cartID uuid.UUID, sequence int) (*services.ReminderResult, error)
	TrackClick(ctx context.Context, cartID uuid.UUID, sequence int) (string, error)
}

// RecoveryController serves the scheduler and email sender endpoints
type RecoveryController struct {
	sweeps    SweepTrigger
	reminders ReminderService
}

func NewRecoveryController(sweeps SweepTrigger, reminders ReminderService) *RecoveryController {
	return &RecoveryController{sweeps: sweeps, reminders: reminders}
}

// SendReminderRequest is the email sender contract
type SendReminderRequest struct {
	CartID         string `json:"cartId" binding:"required"`
	SequenceNumber int    `json:"sequenceNumber" binding:"required"`
}

// DetectAbandonedCarts runs one sweep and reports its counts
func (h *RecoveryController) DetectAbandonedCarts(c *gin.Context) {
	utils.LogInfo("DetectAbandonedCarts called")
	RunSweep(c, h.sweeps)
}

// RunSweep triggers a sweep and writes the sweep response. A failed step
// still reports the counts of the steps that ran.
func RunSweep(c *gin.Context, sweeps SweepTrigger) {
	result, err := sweeps.Trigger(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrSweepLocked):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": utils.ErrSweepInProgress})
	case err != nil && result == nil:
		utils.LogError("Abandoned cart sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	case err != nil:
		utils.LogError("Abandoned cart sweep finished with errors: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":        false,
			"error":          err.Error(),
			"newlyAbandoned": result.NewlyAbandoned,
			"email2Sent":     result.Email2Sent,
			"email3Sent":     result.Email3Sent,
			"expired":        result.Expired,
			"timestamp":      result.Timestamp,
		})
	default:
		c.JSON(http.StatusOK, result)
	}
}

// SendAbandonedCartEmail sends one reminder of the recovery sequence
func (h *RecoveryController) SendAbandonedCartEmail(c *gin.Context) {
	utils.LogInfo("SendAbandonedCartEmail called")

	var req SendReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid reminder request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "cartId and sequenceNumber are required"})
		return
	}
	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cartId must be a UUID"})
		return
	}

	result, err := h.reminders.Send(c.Request.Context(), cartID, req.SequenceNumber)
	if err != nil {
		utils.LogError("Failed to send reminder %d for cart %s: %v", req.SequenceNumber, cartID, err)
		utils.JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TrackReminderClick records the click and sends the shopper back to the cart
func (h *RecoveryController) TrackReminderClick(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("cartId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart link"})
		return
	}
	sequence, _ := strconv.Atoi(c.Query("seq"))

	target, err := h.reminders.TrackClick(c.Request.Context(), cartID, sequence)
	if err != nil {
		utils.LogError("Failed to record reminder click for cart %s: %v", cartID, err)
	}
	c.Redirect(http.StatusFound, target)
}
