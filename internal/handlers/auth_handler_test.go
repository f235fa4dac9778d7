package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/models"
	"likha/internal/services"
	"likha/internal/validator"
)

// --- mock services ---

type mockAuthService struct {
	registerFn           func(input services.RegisterInput, clientKey string) (*models.User, string, error)
	loginFn              func(email, password, clientKey string) (*models.User, error)
	verifyEmailFn        func(token string) (*models.User, error)
	resendVerificationFn func(email, clientKey string) (string, error)
	forgotPasswordFn     func(email, clientKey string) (string, error)
	resetPasswordFn      func(token, newPassword string) error
	getUserByIDFn        func(id uint) (*models.User, error)
}

func (m *mockAuthService) Register(_ context.Context, input services.RegisterInput, clientKey string) (*models.User, string, error) {
	if m.registerFn != nil {
		return m.registerFn(input, clientKey)
	}
	return &models.User{Email: input.Email}, "tok", nil
}

func (m *mockAuthService) Login(_ context.Context, email, password, clientKey string) (*models.User, error) {
	if m.loginFn != nil {
		return m.loginFn(email, password, clientKey)
	}
	return &models.User{Email: email, EmailVerified: true}, nil
}

func (m *mockAuthService) VerifyEmail(token string) (*models.User, error) {
	if m.verifyEmailFn != nil {
		return m.verifyEmailFn(token)
	}
	return &models.User{EmailVerified: true}, nil
}

func (m *mockAuthService) ResendVerification(_ context.Context, email, clientKey string) (string, error) {
	if m.resendVerificationFn != nil {
		return m.resendVerificationFn(email, clientKey)
	}
	return "", nil
}

func (m *mockAuthService) ForgotPassword(_ context.Context, email, clientKey string) (string, error) {
	if m.forgotPasswordFn != nil {
		return m.forgotPasswordFn(email, clientKey)
	}
	return "", nil
}

func (m *mockAuthService) ResetPassword(token, newPassword string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(token, newPassword)
	}
	return nil
}

func (m *mockAuthService) GetUserByID(id uint) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{Base: models.Base{ID: id}}, nil
}

func (m *mockAuthService) CheckAccountLockout(string) services.LockoutStatus {
	return services.LockoutStatus{}
}
func (m *mockAuthService) RecordFailedLogin(string) {}
func (m *mockAuthService) ResetFailedLogins(string) {}

var _ services.AuthServicer = (*mockAuthService)(nil)

type mockCartService struct {
	getCartFn        func(owner identity.Identity) (*models.Cart, error)
	addItemFn        func(owner identity.Identity, productID uint, quantity int) (*models.Cart, error)
	updateQuantityFn func(owner identity.Identity, productID uint, quantity int) (*models.Cart, error)
	removeItemFn     func(owner identity.Identity, productID uint) (*models.Cart, error)
	clearFn          func(owner identity.Identity) error
	mergeGuestCartFn func(guest, user identity.Identity) (*models.Cart, error)
}

func (m *mockCartService) GetCart(owner identity.Identity) (*models.Cart, error) {
	if m.getCartFn != nil {
		return m.getCartFn(owner)
	}
	return &models.Cart{OwnerKey: owner.Key()}, nil
}

func (m *mockCartService) AddItem(owner identity.Identity, productID uint, quantity int) (*models.Cart, error) {
	if m.addItemFn != nil {
		return m.addItemFn(owner, productID, quantity)
	}
	return &models.Cart{OwnerKey: owner.Key()}, nil
}

func (m *mockCartService) UpdateQuantity(owner identity.Identity, productID uint, quantity int) (*models.Cart, error) {
	if m.updateQuantityFn != nil {
		return m.updateQuantityFn(owner, productID, quantity)
	}
	return &models.Cart{OwnerKey: owner.Key()}, nil
}

func (m *mockCartService) RemoveItem(owner identity.Identity, productID uint) (*models.Cart, error) {
	if m.removeItemFn != nil {
		return m.removeItemFn(owner, productID)
	}
	return &models.Cart{OwnerKey: owner.Key()}, nil
}

func (m *mockCartService) Clear(owner identity.Identity) error {
	if m.clearFn != nil {
		return m.clearFn(owner)
	}
	return nil
}

func (m *mockCartService) MergeGuestCart(guest, user identity.Identity) (*models.Cart, error) {
	if m.mergeGuestCartFn != nil {
		return m.mergeGuestCartFn(guest, user)
	}
	return &models.Cart{OwnerKey: user.Key()}, nil
}

var _ services.CartServicer = (*mockCartService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

// injectSession simulates the auth middleware for a logged-in user.
func injectSession(uid uint, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Set("email", email)
		c.Set("verified", true)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	return doRequestWithHeaders(r, method, path, body, nil)
}

func doRequestWithHeaders(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/reset-password", handler.ResetPassword)
	r.GET("/auth/me", injectSession(1, "maria@example.com"), handler.GetProfile)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		authSvc := &mockAuthService{
			registerFn: func(input services.RegisterInput, _ string) (*models.User, string, error) {
				return &models.User{Base: models.Base{ID: 7}, Email: input.Email}, "verif-tok", nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register",
			`{"email":"maria@example.com","password":"correct horse battery","first_name":"Maria"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		user := result["user"].(map[string]interface{})
		if user["email"] != "maria@example.com" {
			t.Errorf("unexpected user in response: %v", user)
		}
	})

	t.Run("returns 400 on malformed email", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register",
			`{"email":"not-an-email","password":"correct horse battery"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps duplicate email to 409", func(t *testing.T) {
		authSvc := &mockAuthService{
			registerFn: func(services.RegisterInput, string) (*models.User, string, error) {
				return nil, "", apperrors.ErrDuplicateEmail
			},
		}
		handler := NewAuthHandler(authSvc, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register",
			`{"email":"maria@example.com","password":"correct horse battery"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "DUPLICATE_EMAIL" {
			t.Errorf("expected DUPLICATE_EMAIL, got %v", errObj["code"])
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns token on success", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login",
			`{"email":"maria@example.com","password":"pw"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["token"] == nil || result["token"] == "" {
			t.Error("expected a session token in the response")
		}
	})

	t.Run("merges guest cart when header present", func(t *testing.T) {
		var gotGuest, gotUser identity.Identity
		cartSvc := &mockCartService{
			mergeGuestCartFn: func(guest, user identity.Identity) (*models.Cart, error) {
				gotGuest, gotUser = guest, user
				return &models.Cart{}, nil
			},
		}
		handler := NewAuthHandler(&mockAuthService{}, cartSvc)
		r := setupAuthRouter(handler)

		rec := doRequestWithHeaders(r, "POST", "/auth/login",
			`{"email":"maria@example.com","password":"pw"}`,
			map[string]string{"X-Guest-Token": "guest-abc"})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotGuest.Key() != "guest:guest-abc" {
			t.Errorf("expected guest identity from header, got %q", gotGuest.Key())
		}
		if gotUser.Key() != "user:maria@example.com" {
			t.Errorf("expected user identity, got %q", gotUser.Key())
		}
	})

	t.Run("merge failure does not fail login", func(t *testing.T) {
		cartSvc := &mockCartService{
			mergeGuestCartFn: func(_, _ identity.Identity) (*models.Cart, error) {
				return nil, apperrors.ErrInternalServer
			},
		}
		handler := NewAuthHandler(&mockAuthService{}, cartSvc)
		r := setupAuthRouter(handler)

		rec := doRequestWithHeaders(r, "POST", "/auth/login",
			`{"email":"maria@example.com","password":"pw"}`,
			map[string]string{"X-Guest-Token": "guest-abc"})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 despite merge failure, got %d", rec.Code)
		}
	})

	t.Run("maps invalid credentials to 401", func(t *testing.T) {
		authSvc := &mockAuthService{
			loginFn: func(string, string, string) (*models.User, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		handler := NewAuthHandler(authSvc, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login",
			`{"email":"maria@example.com","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("maps locked account to 403", func(t *testing.T) {
		authSvc := &mockAuthService{
			loginFn: func(string, string, string) (*models.User, error) {
				return nil, apperrors.ErrAccountLocked
			},
		}
		handler := NewAuthHandler(authSvc, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login",
			`{"email":"maria@example.com","password":"pw"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "ACCOUNT_LOCKED" {
			t.Errorf("expected ACCOUNT_LOCKED, got %v", errObj["code"])
		}
	})
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	t.Run("maps used token to 400 with code", func(t *testing.T) {
		authSvc := &mockAuthService{
			resetPasswordFn: func(string, string) error {
				return apperrors.ErrTokenUsed
			},
		}
		handler := NewAuthHandler(authSvc, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/reset-password",
			`{"token":"tok","new_password":"correct horse battery"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "TOKEN_USED" {
			t.Errorf("expected TOKEN_USED, got %v", errObj["code"])
		}
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	t.Run("returns the session user", func(t *testing.T) {
		authSvc := &mockAuthService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return &models.User{Base: models.Base{ID: id}, Email: "maria@example.com", IsSeller: true}, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockCartService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/auth/me", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["email"] != "maria@example.com" || result["is_seller"] != true {
			t.Errorf("unexpected profile: %v", result)
		}
	})
}
