package controllers

import (
	"context"
	"net/http"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/services"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-gonic/gin"
)

// SnapshotService is the cart snapshot behaviour the handlers need
type SnapshotService interface {
	Save(ctx context.Context, in services.SnapshotInput) (*services.SnapshotResult, error)
	MergeGuestCart(ctx context.Context, sessionID, userID string) (*models.AbandonedCart, error)
}

// CartController serves the storefront cart tracking endpoints
type CartController struct {
	snapshots SnapshotService
}

func NewCartController(snapshots SnapshotService) *CartController {
	return &CartController{snapshots: snapshots}
}

// MergeCartRequest represents the body sent right after a guest logs in
type MergeCartRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// SaveSnapshot records the shopper's current cart
func (h *CartController) SaveSnapshot(c *gin.Context) {
	utils.LogInfo("SaveSnapshot called")

	var req services.SnapshotInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid cart snapshot request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.UserID == "" && req.SessionID == "" {
		req.SessionID = utils.ExistingGuestSessionID(c)
	}

	result, err := h.snapshots.Save(c.Request.Context(), req)
	if err != nil {
		utils.LogError("Failed to save cart snapshot: %v", err)
		utils.JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MergeGuestCart folds the guest session cart into the logged-in user's cart
func (h *CartController) MergeGuestCart(c *gin.Context) {
	utils.LogInfo("MergeGuestCart called")

	var req MergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid merge request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = utils.ExistingGuestSessionID(c)
	}

	cart, err := h.snapshots.MergeGuestCart(c.Request.Context(), req.SessionID, req.UserID)
	if err != nil {
		utils.LogError("Failed to merge guest cart: %v", err)
		utils.JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cart})
}

// GuestSession returns the cookie-backed guest identity, issuing one if needed
func (h *CartController) GuestSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessionId": utils.GuestSessionID(c)})
}
