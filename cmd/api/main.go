package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/charlene/kitchen-api/internal/config"
	"github.com/charlene/kitchen-api/internal/handler"
	"github.com/charlene/kitchen-api/internal/limiter"
	"github.com/charlene/kitchen-api/internal/mailer"
	"github.com/charlene/kitchen-api/internal/media"
	"github.com/charlene/kitchen-api/internal/middleware"
	"github.com/charlene/kitchen-api/internal/repository"
	"github.com/charlene/kitchen-api/internal/service"
	"github.com/charlene/kitchen-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB
	client, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
	if err != nil {
		log.Error("connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Error("ensure indexes", "error", err)
		os.Exit(1)
	}
	log.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	// Redis backs the login limiter and the email throttle when
	// configured; otherwise both run in process memory.
	var redisClient *redis.Client
	loginStore := limiter.NewMemoryStore(cfg.RateLimit.LoginWindow)
	emailThrottle := limiter.NewMemoryThrottle(cfg.RateLimit.EmailWindow)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("connect to Redis", "error", err)
			os.Exit(1)
		}
		loginStore = limiter.NewRedisStore(redisClient, "login", cfg.RateLimit.LoginWindow)
		emailThrottle = limiter.NewRedisThrottle(redisClient, "email", cfg.RateLimit.EmailWindow)
		log.Info("connected to Redis")
	}

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Cloudinary
	uploader, err := media.New(cfg.Cloudinary)
	if err != nil {
		log.Error("init Cloudinary", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Services
	notifier := service.NewAMQPNotifier(amqpCh, log)
	authSvc := service.NewAuthService(userRepo, notifier, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(orderRepo, productRepo, notifier, log)

	// Mailer and worker
	mail := mailer.New(cfg.SMTP, cfg.FrontendURL, emailThrottle, log)
	notificationWorker := worker.NewNotificationWorker(amqpCh, userRepo, orderRepo, mail, log)

	// Handlers
	authH := handler.NewAuthHandler(authSvc, uploader, log)
	productH := handler.NewProductHandler(productSvc, uploader, log)
	orderH := handler.NewOrderHandler(orderSvc, log)
	healthH := handler.NewHealthHandler(client, redisClient, amqpConn)

	requireAuth := middleware.RequireAuth(userRepo, cfg.JWT.Secret)
	optionalAuth := middleware.OptionalAuth(userRepo, cfg.JWT.Secret)
	requireAdmin := middleware.RequireAdmin()

	// Router
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", middleware.LoginRateLimit(loginStore, cfg.RateLimit.LoginAttempts, log), authH.Login)
		auth.GET("/me", requireAuth, authH.Me)
		auth.PUT("/profile", requireAuth, authH.UpdateProfile)
		auth.PUT("/change-password", requireAuth, authH.ChangePassword)
		auth.POST("/avatar", requireAuth, authH.UploadAvatar)

		products := api.Group("/products")
		products.GET("", optionalAuth, productH.List)
		products.GET("/categories", productH.Categories)
		products.GET("/featured", productH.Featured)
		products.GET("/:id", optionalAuth, productH.GetByID)
		products.POST("/:id/rating", requireAuth, productH.Rate)

		adminProducts := products.Group("", requireAuth, requireAdmin)
		adminProducts.POST("", productH.Create)
		adminProducts.PUT("/:id", productH.Update)
		adminProducts.DELETE("/:id", productH.Archive)
		adminProducts.PATCH("/:id/availability", productH.SetAvailability)
		adminProducts.POST("/:id/image", productH.UploadImage)

		orders := api.Group("/orders", requireAuth)
		orders.POST("", orderH.Create)
		orders.GET("", orderH.List)
		orders.GET("/:id", orderH.GetByID)
		orders.PUT("/:id/cancel", orderH.Cancel)
		orders.POST("/:id/rating", orderH.Rate)
		orders.PATCH("/:id/status", requireAdmin, orderH.UpdateStatus)
		orders.GET("/admin/all", requireAdmin, orderH.AdminList)
		orders.GET("/admin/statistics", requireAdmin, orderH.Statistics)

		if cfg.Development() {
			testMailH := handler.NewTestMailHandler(mail, log)
			test := api.Group("/test", requireAuth, requireAdmin)
			test.GET("/email/verify", testMailH.VerifyConnection)
			test.POST("/email/send", testMailH.Send)
		}
	}

	if err := notificationWorker.Start(ctx); err != nil {
		log.Error("start notification worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	notificationWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
