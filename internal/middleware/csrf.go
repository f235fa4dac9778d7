package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"likha/internal/uuid"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfCookieAge  = 12 * 60 * 60
)

// CSRF implements the double-submit cookie pattern. Safe methods receive
// a token cookie if they don't have one; state-changing methods must echo
// the cookie value back in the X-CSRF-Token header.
func CSRF(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if _, err := c.Cookie(csrfCookieName); err != nil {
				c.SetCookie(csrfCookieName, uuid.New(), csrfCookieAge, "/", "", false, false)
			}
			c.Next()
			return
		}

		cookie, err := c.Cookie(csrfCookieName)
		header := c.GetHeader(csrfHeaderName)
		if err != nil || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "CSRF_MISMATCH", "message": "Invalid or missing CSRF token"},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
