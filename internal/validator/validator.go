// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
		_ = v.RegisterValidation("order_status", validateOrderStatus)
		_ = v.RegisterValidation("ewallet_type", validateEWalletType)
	}
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "card", "ewallet", "cod":
		return true
	}
	return false
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "processing", "shipped", "delivered", "cancelled":
		return true
	}
	return false
}

func validateEWalletType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "gcash", "grab_pay", "paymaya":
		return true
	}
	return false
}
