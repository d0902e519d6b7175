package utils

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GuestSessionID returns the guest cart identity kept in the cookie session,
// minting and persisting a new one when the visitor has none yet.
func GuestSessionID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(GuestSessionKey).(string); ok && id != "" {
		return id
	}
	id := uuid.New().String()
	session.Set(GuestSessionKey, id)
	if err := session.Save(); err != nil {
		LogError("Failed to persist guest session id: %v", err)
	}
	return id
}

// ExistingGuestSessionID returns the guest identity only if one was already
// issued. Routes without the session middleware yield "".
func ExistingGuestSessionID(c *gin.Context) string {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	id, _ := sessions.Default(c).Get(GuestSessionKey).(string)
	return id
}
