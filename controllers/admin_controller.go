package controllers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/services"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AdminCredentials is the single back-office account
type AdminCredentials struct {
	Email        string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// CartBrowser reads carts and their recovery history
type CartBrowser interface {
	ListCarts(ctx context.Context, filter services.CartFilter) ([]models.AbandonedCart, int64, error)
	GetCart(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error)
	ListLogs(ctx context.Context, cartID uuid.UUID) ([]models.CartRecoveryLog, error)
}

// CodeManager creates and lists discount codes
type CodeManager interface {
	CreateCode(ctx context.Context, in services.CreateCodeInput) (*models.DiscountCode, error)
	ListCodes(ctx context.Context, offset, limit int) ([]models.DiscountCode, int64, error)
}

// ReportBuilder builds the recovery report
type ReportBuilder interface {
	Build(ctx context.Context, days int) (*services.RecoveryReport, error)
}

type AdminController struct {
	creds   AdminCredentials
	carts   CartBrowser
	codes   CodeManager
	reports ReportBuilder
	sweeps  SweepTrigger
}

func NewAdminController(creds AdminCredentials, carts CartBrowser, codes CodeManager, reports ReportBuilder, sweeps SweepTrigger) *AdminController {
	if creds.TokenTTL <= 0 {
		creds.TokenTTL, _ = time.ParseDuration(utils.JWTExpiration)
	}
	return &AdminController{creds: creds, carts: carts, codes: codes, reports: reports, sweeps: sweeps}
}

// AdminLoginRequest represents the admin login request
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles admin authentication
func (h *AdminController) AdminLogin(c *gin.Context) {
	utils.LogInfo("AdminLogin called")

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid login request: %v", err)
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}

	if h.creds.Email == "" || h.creds.PasswordHash == "" ||
		!strings.EqualFold(req.Email, h.creds.Email) ||
		!utils.CheckPassword(req.Password, h.creds.PasswordHash) {
		utils.LogError("Failed admin login for email: %s", req.Email)
		utils.Unauthorized(c, utils.ErrInvalidCredentials)
		return
	}

	token, err := utils.GenerateAdminToken(h.creds.Email, h.creds.JWTSecret, h.creds.TokenTTL)
	if err != nil {
		utils.LogError("Failed to generate admin token: %v", err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	utils.LogInfo("Admin logged in: %s", h.creds.Email)
	utils.Success(c, utils.MsgLoginSuccess, gin.H{
		"token":      token,
		"expires_in": int(h.creds.TokenTTL.Seconds()),
	})
}

// ListAbandonedCarts lists carts, optionally filtered by recovery status
func (h *AdminController) ListAbandonedCarts(c *gin.Context) {
	utils.LogInfo("ListAbandonedCarts called")

	status := models.RecoveryStatus(c.Query("status"))
	switch status {
	case "", models.RecoveryStatusActive, models.RecoveryStatusAbandoned,
		models.RecoveryStatusRecovered, models.RecoveryStatusExpired:
	default:
		utils.BadRequest(c, "Invalid status filter", nil)
		return
	}

	pagination := utils.NewPagination(c)
	carts, total, err := h.carts.ListCarts(c.Request.Context(), services.CartFilter{
		Status: status,
		Offset: pagination.Offset,
		Limit:  pagination.Limit,
	})
	if err != nil {
		utils.LogError("Failed to list carts: %v", err)
		utils.InternalServerError(c, "Failed to fetch carts", nil)
		return
	}
	pagination.SetTotal(total)
	utils.SendPaginatedResponse(c, "carts", carts, pagination)
}

// GetAbandonedCart returns one cart with its items and recovery log
func (h *AdminController) GetAbandonedCart(c *gin.Context) {
	utils.LogInfo("GetAbandonedCart called")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid cart ID", nil)
		return
	}

	cart, err := h.carts.GetCart(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFound(c, "Cart not found")
			return
		}
		utils.LogError("Failed to load cart %s: %v", id, err)
		utils.InternalServerError(c, "Failed to fetch cart", nil)
		return
	}

	items, err := cart.Items()
	if err != nil {
		utils.LogError("Cart %s has unreadable contents: %v", id, err)
		items = nil
	}

	logs, err := h.carts.ListLogs(c.Request.Context(), id)
	if err != nil {
		utils.LogError("Failed to load logs for cart %s: %v", id, err)
		utils.InternalServerError(c, "Failed to fetch cart history", nil)
		return
	}

	utils.Success(c, "Cart retrieved successfully", gin.H{
		"cart":  cart,
		"items": items,
		"logs":  logs,
	})
}

// CreateDiscountCode creates a new discount code
func (h *AdminController) CreateDiscountCode(c *gin.Context) {
	utils.LogInfo("CreateDiscountCode called")

	var req services.CreateCodeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid discount code request: %v", err)
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}

	code, err := h.codes.CreateCode(c.Request.Context(), req)
	if err != nil {
		utils.LogError("Failed to create discount code %q: %v", req.Code, err)
		utils.RespondAppError(c, err)
		return
	}
	utils.Created(c, utils.MsgCreateSuccess, gin.H{"discount_code": code})
}

// ListDiscountCodes lists discount codes, newest first
func (h *AdminController) ListDiscountCodes(c *gin.Context) {
	utils.LogInfo("ListDiscountCodes called")

	pagination := utils.NewPagination(c)
	codes, total, err := h.codes.ListCodes(c.Request.Context(), pagination.Offset, pagination.Limit)
	if err != nil {
		utils.LogError("Failed to list discount codes: %v", err)
		utils.RespondAppError(c, err)
		return
	}
	pagination.SetTotal(total)
	utils.SendPaginatedResponse(c, "discount_codes", codes, pagination)
}

// RecoveryReport returns recovery metrics as JSON, Excel or PDF
func (h *AdminController) RecoveryReport(c *gin.Context) {
	utils.LogInfo("RecoveryReport called")

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		utils.BadRequest(c, "days must be a number", nil)
		return
	}

	report, err := h.reports.Build(c.Request.Context(), days)
	if err != nil {
		utils.LogError("Failed to build recovery report: %v", err)
		utils.RespondAppError(c, err)
		return
	}

	filename := fmt.Sprintf("cart_recovery_%dd_%s", days, time.Now().Format("20060102"))
	switch c.DefaultQuery("format", "json") {
	case "json":
		utils.Success(c, "Recovery report generated", report)
	case "xlsx", "excel":
		data, err := report.Excel()
		if err != nil {
			utils.LogError("Failed to render Excel report: %v", err)
			utils.InternalServerError(c, "Failed to generate Excel report", nil)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	case "pdf":
		data, err := report.PDF()
		if err != nil {
			utils.LogError("Failed to render PDF report: %v", err)
			utils.InternalServerError(c, "Failed to generate PDF report", nil)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(200, "application/pdf", data)
	default:
		utils.BadRequest(c, "format must be json, xlsx or pdf", nil)
	}
}

// TriggerSweep runs the abandoned cart sweep immediately
func (h *AdminController) TriggerSweep(c *gin.Context) {
	utils.LogInfo("TriggerSweep called by %s", c.GetString("admin_email"))
	RunSweep(c, h.sweeps)
}
