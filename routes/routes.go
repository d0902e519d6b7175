package routes

import (
	"net/http"

	"github.com/bjscha03/Final-Banner-Site-sub004/controllers"
	"github.com/bjscha03/Final-Banner-Site-sub004/middleware"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries what the router needs beyond the controllers
type Options struct {
	SessionSecret string
	SecureCookies bool
	CronSecret    string
	JWTSecret     string
	AllowOrigin   string
}

// Controllers groups every HTTP handler set
type Controllers struct {
	Cart      *controllers.CartController
	Discounts *controllers.DiscountController
	Recovery  *controllers.RecoveryController
	Admin     *controllers.AdminController
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(h Controllers, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.CORSMiddleware(opts.AllowOrigin))
	router.Use(utils.SecurityHeadersMiddleware())

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		MaxAge:   60 * 60 * 24 * 30, // 30 days
		Path:     "/",
		Secure:   opts.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("botf_session", store))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cron := middleware.CronAuthMiddleware(opts.CronSecret)

	// Paths the storefront and the scheduler already call
	router.POST("/save-cart-snapshot", h.Cart.SaveSnapshot)
	router.POST("/apply-discount", h.Discounts.ApplyDiscount)
	router.POST("/validate-discount-code", h.Discounts.ValidateDiscountCode)
	router.POST("/detect-abandoned-carts", cron, h.Recovery.DetectAbandonedCarts)
	router.POST("/send-abandoned-cart-email", cron, h.Recovery.SendAbandonedCartEmail)

	api := router.Group("/" + utils.APIVersion)
	{
		initCartRoutes(api, h)
		initRecoveryRoutes(api, h, cron)
		initAdminRoutes(api, h, opts)
	}

	return router
}

func initCartRoutes(api *gin.RouterGroup, h Controllers) {
	cart := api.Group("/cart")
	{
		cart.GET("/session", h.Cart.GuestSession)
		cart.POST("/snapshot", h.Cart.SaveSnapshot)
		cart.POST("/merge", h.Cart.MergeGuestCart)
	}

	discounts := api.Group("/discounts")
	{
		discounts.POST("/apply", h.Discounts.ApplyDiscount)
		discounts.POST("/validate", h.Discounts.ValidateDiscountCode)
	}
}

func initRecoveryRoutes(api *gin.RouterGroup, h Controllers, cron gin.HandlerFunc) {
	api.GET("/recover/:cartId", h.Recovery.TrackReminderClick)

	jobs := api.Group("/cron", cron)
	{
		jobs.POST("/detect-abandoned-carts", h.Recovery.DetectAbandonedCarts)
		jobs.POST("/send-abandoned-cart-email", h.Recovery.SendAbandonedCartEmail)
	}
}

func initAdminRoutes(api *gin.RouterGroup, h Controllers, opts Options) {
	admin := api.Group("/admin")
	admin.POST("/login", h.Admin.AdminLogin)

	protected := admin.Group("", middleware.AdminAuthMiddleware(opts.JWTSecret))
	{
		protected.GET("/abandoned-carts", h.Admin.ListAbandonedCarts)
		protected.GET("/abandoned-carts/:id", h.Admin.GetAbandonedCart)
		protected.POST("/discount-codes", h.Admin.CreateDiscountCode)
		protected.GET("/discount-codes", h.Admin.ListDiscountCodes)
		protected.GET("/recovery/report", h.Admin.RecoveryReport)
		protected.POST("/cron/detect-abandoned-carts", h.Admin.TriggerSweep)
	}
}
