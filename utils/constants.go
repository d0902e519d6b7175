package utils

// Application constants
const (
	// Application name
	AppName = "Banners On The Fly"

	// API version
	APIVersion = "v1"

	// Admin token expiration (24 hours)
	JWTExpiration = "24h"

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Session key holding the guest cart identity
	GuestSessionKey = "guest_session_id"

	// Header carrying the scheduler shared secret
	CronSecretHeader = "X-Cron-Secret"
)

// Error messages
const (
	ErrIdentityRequired   = "userId or sessionId is required"
	ErrCodeRequired       = "Discount code is required"
	ErrOrderRequired      = "orderId is required"
	ErrCodeNotFound       = "Invalid discount code"
	ErrCodeAlreadyUsed    = "This discount code has already been used"
	ErrCodeExpired        = "This discount code has expired"
	ErrCodeExhausted      = "This discount code has reached its usage limit"
	ErrNotFirstOrder      = "NEW20 is only valid on your first order"
	ErrInvalidCredentials = "Invalid email or password"
	ErrUnauthorized       = "Unauthorized access"
	ErrInvalidToken       = "Invalid or expired token"
	ErrRecordNotFound     = "Record not found"
	ErrInternalServer     = "Internal server error"
	ErrSweepInProgress    = "Abandoned cart sweep already running"
)

// Success messages
const (
	MsgLoginSuccess  = "Login successful"
	MsgCreateSuccess = "Created successfully"
)
