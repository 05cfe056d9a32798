package main

import (
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/markettask/markettask-api/internal/config"
	"github.com/markettask/markettask-api/internal/constants"
	"github.com/markettask/markettask-api/internal/database"
	"github.com/markettask/markettask-api/internal/handlers"
	"github.com/markettask/markettask-api/internal/middleware"
	"github.com/markettask/markettask-api/internal/repository"
	"github.com/markettask/markettask-api/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	db := database.GetDB()

	// Repositories
	taskRepo := repository.NewTaskRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Collaborators
	notifier := services.NewLogNotifier(logger)
	gateway := services.NewFakePaymentGateway()

	// Services
	machine := services.NewStatusMachine(taskRepo)
	authService := services.NewAuthService(userRepo)
	taskService := services.NewTaskService(taskRepo, offerRepo, paymentRepo, machine, notifier, logger)
	offerService := services.NewOfferService(taskRepo, offerRepo, machine, gateway, notifier, cfg.ServiceFeeRate, logger)
	receiptService := services.NewReceiptService(taskRepo, offerRepo, paymentRepo, receiptRepo, userRepo, cfg.ReceiptPrefix, config.DefaultTaxTable(), logger)
	settlementService := services.NewSettlementService(taskRepo, offerRepo, paymentRepo, userRepo, receiptService, machine, gateway, notifier, logger)
	reviewService := services.NewReviewService(reviewRepo, taskRepo, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService, settlementService)
	offerHandler := handlers.NewOfferHandler(offerService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "MarketTask API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)
			tasks.POST("/:id/complete", taskHandler.CompleteTask)
			tasks.POST("/:id/cancel", taskHandler.CancelTask)

			tasks.GET("/:id/offers", offerHandler.ListOffers)
			tasks.POST("/:id/offers", offerHandler.CreateOffer)
			tasks.POST("/:id/offers/:offer_id/accept", offerHandler.AcceptOffer)
			tasks.POST("/:id/offers/:offer_id/withdraw", offerHandler.WithdrawOffer)

			tasks.POST("/:id/reviews", reviewHandler.SubmitReview)

			tasks.GET("/:id/receipts", receiptHandler.GetTaskReceipts)
			tasks.POST("/:id/receipts/:receipt_id/download", receiptHandler.DownloadReceipt)
		}

		// Review routes (protected)
		reviews := api.Group("/reviews")
		reviews.Use(middleware.RequireAuth())
		{
			reviews.PUT("/:review_id", reviewHandler.UpdateReview)
			reviews.DELETE("/:review_id", reviewHandler.DeleteReview)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.GET("/:user_id/rating", reviewHandler.GetRatingStats)
		}
	}

	// Background sweep for expired and overdue tasks
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			if n := taskService.SweepDueTasks(now); n > 0 {
				logger.WithField("count", n).Info("swept due tasks")
			}
		}
	}()

	// Start server
	log.Printf("Server starting on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
