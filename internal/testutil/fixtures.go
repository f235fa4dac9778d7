package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"likha/internal/identity"
	"likha/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plaintext behind every fixture user's hash.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a verified user with a hashed password and
// unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a verified user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:         email,
		PasswordHash:  string(hash),
		FirstName:     "Test",
		LastName:      "User",
		Provider:      "local",
		EmailVerified: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestProduct creates an active product with the given stock.
func CreateTestProduct(t *testing.T, db *gorm.DB, stock int) *models.Product {
	t.Helper()
	return CreateTestProductWithPrice(t, db, stock, 10000)
}

// CreateTestProductWithPrice creates an active product with the given
// stock and unit price in minor units.
func CreateTestProductWithPrice(t *testing.T, db *gorm.DB, stock int, price int64) *models.Product {
	t.Helper()

	n := nextID()
	product := &models.Product{
		SellerID:    1,
		SellerName:  "Test Seller",
		Name:        fmt.Sprintf("Product %d", n),
		Description: "A test product",
		Category:    "crafts",
		Price:       price,
		Stock:       stock,
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

// UserIdentity returns the checkout identity for a fixture user.
func UserIdentity(user *models.User) identity.Identity {
	return identity.User(user.Email)
}

// GuestIdentity returns a unique guest identity.
func GuestIdentity() identity.Identity {
	return identity.Guest(fmt.Sprintf("guest-token-%d", nextID()))
}

// CreateTestCartWithItem creates a cart for the identity holding one
// line of the given product.
func CreateTestCartWithItem(t *testing.T, db *gorm.DB, owner identity.Identity, product *models.Product, quantity int) *models.Cart {
	t.Helper()

	cart := &models.Cart{OwnerKey: owner.Key()}
	if err := db.Create(cart).Error; err != nil {
		t.Fatalf("failed to create test cart: %v", err)
	}

	item := &models.CartItem{
		CartID:     cart.ID,
		ProductID:  product.ID,
		Name:       product.Name,
		UnitPrice:  product.Price,
		Quantity:   quantity,
		SellerName: product.SellerName,
		MaxStock:   product.Stock,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test cart item: %v", err)
	}

	cart.Items = []models.CartItem{*item}
	return cart
}

// CreateTestOrder creates an order in the given state for the identity.
func CreateTestOrder(t *testing.T, db *gorm.DB, owner identity.Identity, status models.OrderStatus, paymentStatus models.PaymentStatus) *models.Order {
	t.Helper()

	n := nextID()
	order := &models.Order{
		OrderID:       fmt.Sprintf("ORD-20250101-%04d", n),
		OwnerKey:      owner.Key(),
		ShippingName:  "Test Buyer",
		ShippingLine1: "123 Test St",
		ShippingCity:  "Testville",
		PaymentMethod: models.PaymentMethodCard,
		PaymentStatus: paymentStatus,
		Subtotal:      10000,
		ShippingFee:   5800,
		Total:         15800,
		Status:        status,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("failed to create test order: %v", err)
	}
	return order
}

// AddTestOrderItem attaches a frozen product line to an order.
func AddTestOrderItem(t *testing.T, db *gorm.DB, order *models.Order, product *models.Product, quantity int) *models.OrderItem {
	t.Helper()

	item := &models.OrderItem{
		OrderRef:   order.ID,
		ProductID:  product.ID,
		Name:       product.Name,
		UnitPrice:  product.Price,
		Quantity:   quantity,
		SellerName: product.SellerName,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test order item: %v", err)
	}
	order.Items = append(order.Items, *item)
	return item
}
