package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"likha/internal/config"
	apperrors "likha/internal/errors"
	"likha/internal/events"
	"likha/internal/logger"
	"likha/internal/mailer"
	"likha/internal/models"
)

const (
	maxFailedLogins   = 5
	lockoutDuration   = 30 * time.Minute
	failedLoginWindow = 60 * time.Minute

	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour

	// Minimum zxcvbn score (0-4). 2 rejects the obviously guessable.
	minPasswordScore = 2
)

// authService implements the authentication and account-security pipeline.
type authService struct {
	db         *gorm.DB
	rateLimits RateLimitServicer
	mail       mailer.Sender
	publisher  events.Publisher
	cfg        *config.Config
	now        func() time.Time
}

// NewAuthService creates a new AuthServicer.
func NewAuthService(db *gorm.DB, rateLimits RateLimitServicer, mail mailer.Sender, publisher events.Publisher, cfg *config.Config) AuthServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &authService{
		db:         db,
		rateLimits: rateLimits,
		mail:       mail,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// generateToken returns a 256-bit opaque random token in hex.
func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Register creates an unverified account and emails a verification link.
// The raw verification token is returned so handlers can echo it in
// development mode; it is never included in production responses.
func (s *authService) Register(ctx context.Context, input RegisterInput, clientKey string) (*models.User, string, error) {
	if rl := s.rateLimits.Check(ctx, clientKey, "register"); !rl.Allowed {
		return nil, "", apperrors.WithMessage(apperrors.ErrRateLimited, rl.Message)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}

	if err := s.checkPasswordStrength(input.Password, email); err != nil {
		return nil, "", err
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, "", apperrors.ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expiry := s.now().Add(verificationTokenTTL)

	user := &models.User{
		Email:              email,
		PasswordHash:       string(hashed),
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Provider:           "local",
		VerificationToken:  token,
		VerificationExpiry: &expiry,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Email failure is non-fatal for registration: the user exists and
	// can request a resend.
	if err := s.sendVerificationMail(ctx, user, token); err != nil {
		logger.Get().Warnw("verification email failed after registration",
			"email", user.Email, "error", err)
	}

	s.rateLimits.Reset(ctx, clientKey, "register")
	s.publisher.Publish(events.TopicAccounts, user.Email, events.TypeUserRegistered, map[string]any{
		"user_id": user.ID,
	})
	return user, token, nil
}

// Login validates credentials with the gates applied in order: rate
// limit, account lockout, credential lookup, password comparison,
// email-verified. Credential failures are reported uniformly so callers
// cannot probe which emails exist.
func (s *authService) Login(ctx context.Context, email, password, clientKey string) (*models.User, error) {
	if rl := s.rateLimits.Check(ctx, clientKey, "login"); !rl.Allowed {
		return nil, apperrors.WithMessage(apperrors.ErrRateLimited, rl.Message)
	}

	email = strings.ToLower(strings.TrimSpace(email))

	if lockout := s.CheckAccountLockout(email); lockout.IsLocked {
		return nil, apperrors.ErrAccountLocked
	}

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Federated accounts have no local password to compare against.
	if user.PasswordHash == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.RecordFailedLogin(email)
		return nil, apperrors.ErrInvalidCredentials
	}

	// The caller has proven knowledge of the password, so an explicit
	// verification signal here does not enable enumeration.
	if !user.EmailVerified {
		return nil, apperrors.ErrEmailNotVerified
	}

	s.ResetFailedLogins(email)

	loginAt := s.now()
	if err := s.db.Model(&user).Update("last_login_at", loginAt).Error; err != nil {
		logger.Get().Warnw("failed to record last login", "email", email, "error", err)
	}
	user.LastLoginAt = &loginAt
	return &user, nil
}

// CheckAccountLockout reports whether the account is locked. An expired
// lock is cleared before evaluating. Store errors are swallowed and
// reported as "not locked" — lockout is best-effort, never a reason to
// reject legitimate access during an outage.
func (s *authService) CheckAccountLockout(email string) LockoutStatus {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return LockoutStatus{}
	}

	now := s.now()

	if user.AccountLockedUntil != nil {
		if user.AccountLockedUntil.After(now) {
			return LockoutStatus{
				IsLocked:       true,
				FailedAttempts: user.FailedLoginAttempts,
				LockedUntil:    user.AccountLockedUntil,
			}
		}
		// Stale lock: clear it along with the counter.
		s.clearLockout(&user)
		return LockoutStatus{}
	}

	// Attempts decay after a quiet hour even without a successful login.
	if user.LastFailedLogin != nil && now.Sub(*user.LastFailedLogin) >= failedLoginWindow {
		s.clearLockout(&user)
		return LockoutStatus{}
	}

	return LockoutStatus{FailedAttempts: user.FailedLoginAttempts}
}

// RecordFailedLogin increments the failure counter and locks the account
// once the threshold is crossed. Errors are swallowed (fail open).
func (s *authService) RecordFailedLogin(email string) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return
	}

	now := s.now()
	attempts := user.FailedLoginAttempts + 1
	if user.LastFailedLogin != nil && now.Sub(*user.LastFailedLogin) >= failedLoginWindow {
		attempts = 1
	}

	updates := map[string]any{
		"failed_login_attempts": attempts,
		"last_failed_login":     now,
	}
	if attempts >= maxFailedLogins {
		updates["account_locked_until"] = now.Add(lockoutDuration)
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		logger.Get().Warnw("failed to record login failure", "email", email, "error", err)
	}
}

// ResetFailedLogins clears the failure counter and any lock.
func (s *authService) ResetFailedLogins(email string) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return
	}
	s.clearLockout(&user)
}

func (s *authService) clearLockout(user *models.User) {
	err := s.db.Model(user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
		"account_locked_until":  nil,
	}).Error
	if err != nil {
		logger.Get().Warnw("failed to clear lockout", "email", user.Email, "error", err)
	}
}

// VerifyEmail consumes a verification token. The token is nulled on
// success so it can never be replayed.
func (s *authService) VerifyEmail(token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}

	var user models.User
	err := s.db.Where("verification_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if user.VerificationExpiry == nil || user.VerificationExpiry.Before(s.now()) {
		return nil, apperrors.ErrTokenExpired
	}

	err = s.db.Model(&user).Updates(map[string]any{
		"email_verified":      true,
		"verification_token":  "",
		"verification_expiry": nil,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	user.VerificationExpiry = nil
	return &user, nil
}

// ResendVerification issues a fresh verification token. A missing
// account yields a silent success so the endpoint cannot be used to
// probe for registered emails; a failed send is surfaced because the
// caller explicitly asked for the email.
func (s *authService) ResendVerification(ctx context.Context, email, clientKey string) (string, error) {
	if rl := s.rateLimits.Check(ctx, clientKey, "resend-verification"); !rl.Allowed {
		return "", apperrors.WithMessage(apperrors.ErrRateLimited, rl.Message)
	}

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user.EmailVerified {
		return "", apperrors.ErrAlreadyVerified
	}

	token, err := generateToken()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expiry := s.now().Add(verificationTokenTTL)

	err = s.db.Model(&user).Updates(map[string]any{
		"verification_token":  token,
		"verification_expiry": expiry,
	}).Error
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.sendVerificationMail(ctx, &user, token); err != nil {
		return "", apperrors.Wrap(apperrors.ErrEmailSendFailed, err)
	}
	return token, nil
}

// ForgotPassword issues a single-use reset token valid for one hour.
// Unknown emails yield a silent success (no enumeration).
func (s *authService) ForgotPassword(ctx context.Context, email, clientKey string) (string, error) {
	if rl := s.rateLimits.Check(ctx, clientKey, "forgot-password"); !rl.Allowed {
		return "", apperrors.WithMessage(apperrors.ErrRateLimited, rl.Message)
	}

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	token, err := generateToken()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expiry := s.now().Add(resetTokenTTL)

	err = s.db.Model(&user).Updates(map[string]any{
		"reset_token":        token,
		"reset_token_expiry": expiry,
		"reset_token_used":   false,
	}).Error
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.AppBaseURL, token)
	err = s.mail.Send(ctx, mailer.KindPasswordReset, user.Email, map[string]string{
		"name":       user.FirstName,
		"link":       link,
		"expires_in": "1 hour",
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrEmailSendFailed, err)
	}
	return token, nil
}

// ResetPassword consumes a reset token and sets the new password. The
// used flag is written in the same update as the password so the token
// cannot be replayed; a consumed token reports TOKEN_USED, distinct from
// INVALID_TOKEN and TOKEN_EXPIRED.
func (s *authService) ResetPassword(token, newPassword string) error {
	if token == "" {
		return apperrors.ErrInvalidToken
	}

	var user models.User
	err := s.db.Where("reset_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if user.ResetTokenUsed {
		return apperrors.ErrTokenUsed
	}
	if user.ResetTokenExpiry == nil || user.ResetTokenExpiry.Before(s.now()) {
		return apperrors.ErrTokenExpired
	}

	if err := s.checkPasswordStrength(newPassword, user.Email); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Model(&user).Updates(map[string]any{
		"password_hash":         string(hashed),
		"reset_token_used":      true,
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
		"account_locked_until":  nil,
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (s *authService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func (s *authService) checkPasswordStrength(password, email string) error {
	if len(password) < 8 {
		return apperrors.WithMessage(apperrors.ErrWeakPassword, "Password must be at least 8 characters")
	}
	if zxcvbn.PasswordStrength(password, []string{email}).Score < minPasswordScore {
		return apperrors.ErrWeakPassword
	}
	return nil
}

func (s *authService) sendVerificationMail(ctx context.Context, user *models.User, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.AppBaseURL, token)
	return s.mail.Send(ctx, mailer.KindVerification, user.Email, map[string]string{
		"name":       user.FirstName,
		"link":       link,
		"expires_in": "24 hours",
	})
}
