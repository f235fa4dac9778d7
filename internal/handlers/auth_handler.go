package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"likha/internal/config"
	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/logger"
	"likha/internal/middleware"
	"likha/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService services.AuthServicer
	cartService services.CartServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthServicer, cartService services.CartServicer) *AuthHandler {
	return &AuthHandler{authService: authService, cartService: cartService}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// EmailRequest carries a bare email address (resend, forgot password).
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest carries a reset token and the new password.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
	IsSeller      bool   `json:"is_seller"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new account; a verification link is emailed before login is allowed
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} UserResponse "Account created, verification email sent"
// @Failure     400 {object} ErrorResponse "Invalid input or weak password"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     429 {object} ErrorResponse "Too many attempts"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, verificationToken, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := gin.H{
		"message": "Account created. Check your email for a verification link.",
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
	}
	// Development convenience only: the token is never exposed in
	// production responses.
	if !config.Get().IsProduction() {
		resp["verification_token"] = verificationToken
	}
	c.JSON(http.StatusCreated, resp)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate and receive a session token; a guest cart named in X-Guest-Token is merged into the account cart
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     403 {object} ErrorResponse "Email not verified or account locked"
// @Failure     429 {object} ErrorResponse "Too many attempts"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := middleware.GenerateSessionToken(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	// A guest cart carried across login is merged into the account cart.
	// Best-effort: a merge failure must not fail the login.
	if guest, ok := getGuestIdentity(c); ok {
		if _, err := h.cartService.MergeGuestCart(guest, identity.User(user.Email)); err != nil {
			logger.Get().Warnw("guest cart merge failed on login",
				"email", user.Email, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":             user.ID,
			"email":          user.Email,
			"first_name":     user.FirstName,
			"last_name":      user.LastName,
			"email_verified": user.EmailVerified,
			"is_seller":      user.IsSeller,
		},
	})
}

// VerifyEmail consumes an email verification token
// @Summary     Verify email address
// @Description Consume the emailed verification token and activate the account
// @Tags        auth
// @Produce     json
// @Param       token query string true "Verification token"
// @Success     200 {object} MessageResponse "Email verified"
// @Failure     400 {object} ErrorResponse "Invalid or expired token"
// @Router      /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := h.authService.VerifyEmail(c.Query("token"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified. You can now log in.",
		"email":   user.Email,
	})
}

// ResendVerification re-issues a verification email
// @Summary     Resend verification email
// @Description Issue a fresh verification token for an unverified account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body EmailRequest true "Account email"
// @Success     200 {object} MessageResponse "Verification email sent if the account exists"
// @Failure     409 {object} ErrorResponse "Email already verified"
// @Failure     429 {object} ErrorResponse "Too many attempts"
// @Failure     502 {object} ErrorResponse "Email delivery failed"
// @Router      /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	token, err := h.authService.ResendVerification(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := gin.H{"message": "If that email is registered, a verification link has been sent."}
	if !config.Get().IsProduction() && token != "" {
		resp["verification_token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// ForgotPassword starts the password reset flow
// @Summary     Request a password reset
// @Description Email a single-use reset link valid for one hour
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body EmailRequest true "Account email"
// @Success     200 {object} MessageResponse "Reset email sent if the account exists"
// @Failure     429 {object} ErrorResponse "Too many attempts"
// @Failure     502 {object} ErrorResponse "Email delivery failed"
// @Router      /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	token, err := h.authService.ForgotPassword(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := gin.H{"message": "If that email is registered, a reset link has been sent."}
	if !config.Get().IsProduction() && token != "" {
		resp["reset_token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// ResetPassword completes the password reset flow
// @Summary     Reset password
// @Description Consume a reset token and set a new password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ResetPasswordRequest true "Reset token and new password"
// @Success     200 {object} MessageResponse "Password updated"
// @Failure     400 {object} ErrorResponse "Invalid, expired, or already-used token"
// @Router      /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated. You can now log in."})
}

// GetProfile returns the authenticated user's profile
// @Summary     Get user profile
// @Description Get the authenticated user's account details
// @Tags        auth
// @Produce     json
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/me [get]
// @Security    BearerAuth
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"email_verified": user.EmailVerified,
		"is_seller":      user.IsSeller,
	})
}
