package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"likha/internal/config"
	"likha/internal/database"
	"likha/internal/events"
	"likha/internal/handlers"
	"likha/internal/logger"
	"likha/internal/mailer"
	"likha/internal/middleware"
	"likha/internal/payment"
	"likha/internal/services"
	"likha/internal/validator"
)

// @title           Likha API
// @version         1.0
// @description     Likha is a community marketplace for handmade goods: catalog, carts, checkout, and payment reconciliation.
// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	// Rate limit state lives in Redis when available so limits hold
	// across instances; otherwise it falls back to the database.
	var rateLimitStore services.RateLimitStore
	if appConfig.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddr})
		rateLimitStore = services.NewRedisRateLimitStore(client)
		log.Infof("Rate limiting backed by Redis at %s", appConfig.RedisAddr)
	} else {
		rateLimitStore = services.NewGormRateLimitStore(db)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(appConfig.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(appConfig.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("failed to connect to Kafka: %w", err)
		}
		defer publisher.Close()
		log.Infof("Domain events published to Kafka at %v", appConfig.KafkaBrokers)
	}

	var mailSender mailer.Sender
	if appConfig.SMTPHost != "" {
		mailSender = mailer.NewSMTPSender(appConfig.SMTPHost, appConfig.SMTPPort,
			appConfig.SMTPUser, appConfig.SMTPPass, appConfig.SMTPFrom)
	} else {
		mailSender = mailer.NewLogSender()
	}

	gateway := payment.NewClient(nil, appConfig.PaymentBaseURL, appConfig.PaymentSecretKey)

	// Initialize services
	rateLimitService := services.NewRateLimitService(rateLimitStore)
	authService := services.NewAuthService(db, rateLimitService, mailSender, publisher, appConfig)
	productService := services.NewProductService(db)
	cartService := services.NewCartService(db)
	notificationService := services.NewNotificationService(db)
	orderService := services.NewOrderService(db, notificationService, publisher)
	paymentService := services.NewPaymentService(gateway, orderService, appConfig)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cartService)
	productHandler := handlers.NewProductHandler(productService, authService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService, authService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Guest-Token, X-CSRF-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check and metrics endpoints
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")

	// The gateway signs webhook bodies itself; CSRF cookies do not apply.
	v1.POST("/webhooks/payments", paymentHandler.Webhook)

	csrf := v1.Group("/")
	csrf.Use(middleware.CSRF(appConfig.CSRFEnabled))

	// Public auth routes
	auth := csrf.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/verify-email", authHandler.VerifyEmail)
	auth.POST("/resend-verification", authHandler.ResendVerification)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// Public catalog
	csrf.GET("/products", productHandler.ListProducts)
	csrf.GET("/products/:id", productHandler.GetProduct)

	// Guest-capable routes: session when present, else X-Guest-Token
	guestCapable := csrf.Group("/")
	guestCapable.Use(middleware.OptionalAuthMiddleware())

	cart := guestCapable.Group("/cart")
	cart.GET("", cartHandler.GetCart)
	cart.DELETE("", cartHandler.ClearCart)
	cart.POST("/items", cartHandler.AddItem)
	cart.PUT("/items/:productId", cartHandler.UpdateQuantity)
	cart.DELETE("/items/:productId", cartHandler.RemoveItem)

	orders := guestCapable.Group("/orders")
	orders.POST("", orderHandler.CreateOrder)
	orders.GET("", orderHandler.ListOrders)
	orders.GET("/:orderId", orderHandler.GetOrder)
	orders.POST("/:orderId/cancel", orderHandler.CancelOrder)
	orders.POST("/:orderId/received", orderHandler.ConfirmReceived)
	orders.POST("/:orderId/payments/card", paymentHandler.CreateCardPayment)
	orders.GET("/:orderId/payments/card", paymentHandler.GetCardPaymentStatus)
	orders.POST("/:orderId/payments/card/confirm", paymentHandler.ConfirmCardPayment)
	orders.POST("/:orderId/payments/ewallet", paymentHandler.CreateEWalletPayment)
	orders.POST("/:orderId/payments/ewallet/complete", paymentHandler.CompleteEWalletPayment)

	notifications := guestCapable.Group("/notifications")
	notifications.GET("", notificationHandler.ListNotifications)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	// Protected routes
	protected := csrf.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/auth/me", authHandler.GetProfile)
	protected.POST("/products", productHandler.CreateProduct)
	protected.PUT("/products/:id", productHandler.UpdateProduct)
	protected.PUT("/orders/:orderId/status", orderHandler.UpdateStatus)

	log.Infof("Starting Likha backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
