package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/logger"
)

// guestTokenHeader carries the opaque guest cart token for requests
// without a session.
const guestTokenHeader = "X-Guest-Token"

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get("userID")
	if !exists {
		return 0, apperrors.ErrUnauthorized
	}
	return userID.(uint), nil
}

// getIdentity resolves the request's checkout identity: the session's
// email when authenticated, else the guest token header. Returns
// ErrUnauthorized when neither is present.
func getIdentity(c *gin.Context) (identity.Identity, error) {
	if email, exists := c.Get("email"); exists {
		return identity.User(email.(string)), nil
	}
	if token := c.GetHeader(guestTokenHeader); token != "" {
		return identity.Guest(token), nil
	}
	return identity.Identity{}, apperrors.WithMessage(apperrors.ErrUnauthorized,
		"Authentication or a guest token is required")
}

// getGuestIdentity returns the guest identity from the header, if any.
func getGuestIdentity(c *gin.Context) (identity.Identity, bool) {
	if token := c.GetHeader(guestTokenHeader); token != "" {
		return identity.Guest(token), true
	}
	return identity.Identity{}, false
}

// parsePathID parses a uint path parameter.
// Returns ErrInvalidInput if the parameter is not a valid positive integer.
func parsePathID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return uint(id), nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}
