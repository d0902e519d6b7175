package controllers

import (
	"context"
	"net/http"

	"github.com/bjscha03/Final-Banner-Site-sub004/services"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-gonic/gin"
)

// DiscountService applies and validates discount codes at checkout
type DiscountService interface {
	Apply(ctx context.Context, in services.ApplyInput) (*services.ApplyResult, error)
	Validate(ctx context.Context, in services.ValidateInput) (*services.ValidateResult, error)
}

type DiscountController struct {
	discounts DiscountService
}

func NewDiscountController(discounts DiscountService) *DiscountController {
	return &DiscountController{discounts: discounts}
}

// ApplyDiscount redeems a code against an order
func (h *DiscountController) ApplyDiscount(c *gin.Context) {
	utils.LogInfo("ApplyDiscount called")

	var req services.ApplyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid apply discount request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.discounts.Apply(c.Request.Context(), req)
	if err != nil {
		utils.LogError("Discount code %q rejected for order %q: %v", req.Code, req.OrderID, err)
		utils.JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ValidateDiscountCode checks a code without redeeming it. A code that cannot
// be used is a normal answer, reported as valid=false with status 200.
func (h *DiscountController) ValidateDiscountCode(c *gin.Context) {
	utils.LogInfo("ValidateDiscountCode called")

	var req services.ValidateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid validate discount request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "Invalid request body"})
		return
	}

	result, err := h.discounts.Validate(c.Request.Context(), req)
	if err != nil {
		utils.LogError("Failed to validate discount code %q: %v", req.Code, err)
		c.JSON(utils.StatusOf(err), gin.H{"valid": false, "error": utils.MessageOf(err)})
		return
	}
	c.JSON(http.StatusOK, result)
}
