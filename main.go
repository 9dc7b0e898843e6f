// main.go - TeeTime API server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teetime/config"
	"teetime/database"
	"teetime/handlers"
	"teetime/logging"
	"teetime/mailer"
	"teetime/middleware"
	"teetime/realtime"
	"teetime/services"
	"teetime/storage"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.IsProduction() && (cfg.CORSOrigins == "" || cfg.CORSOrigins == "*") {
		logging.Warn().Msg("CORS_ORIGINS not properly configured for production")
	}

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("database initialization failed")
	}
	defer database.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("object storage initialization failed")
	}

	mail, mailState, closeMail := newMailer(cfg)
	defer closeMail()

	// Services
	signer := utils.NewTokenSigner(cfg.JWTSecret, cfg.JWTExpiry())
	notifier := services.NewNotificationService(db, mail, cfg.AppURL)
	chat := services.NewChatService(db, notifier, nil)
	hub := realtime.NewHub(chat)
	chat.SetBroadcaster(hub)

	services.NewCleanupService(db, cfg.NotificationRetention).Start(ctx, cfg.CleanupInterval)

	handlers.Init(handlers.Deps{
		DB:            db,
		Auth:          services.NewAuthService(db, signer, notifier),
		Users:         services.NewUserService(db, store),
		Matches:       services.NewMatchService(db, notifier),
		Ratings:       services.NewRatingService(db, notifier),
		Groups:        services.NewGroupService(db, notifier, store),
		Chat:          chat,
		Notifications: notifier,
		Courses:       services.NewCourseService(db),
		Contact:       services.NewContactService(db, notifier, cfg.ContactInbox),
		Hub:           hub,
		MailState:     mailState,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler(cfg.IsProduction()),
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.CORSOrigins != "*",
	}))

	routes := handlers.RouteConfig{Signer: signer, SocketContext: ctx}
	if cfg.RateLimitEnabled {
		routes.GeneralLimiter = middleware.NewRateLimiter("general", cfg.RateLimitRequests, cfg.RateLimitWindow)
		routes.AuthLimiter = middleware.NewRateLimiter("auth", cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow)
		routes.GeneralLimiter.StartCleanup(10*time.Minute, 30*time.Minute, ctx.Done())
		routes.AuthLimiter.StartCleanup(10*time.Minute, 30*time.Minute, ctx.Done())
	}
	handlers.RegisterRoutes(app, routes)

	go func() {
		<-ctx.Done()
		logging.Info().Msg("shutting down")
		hub.Shutdown()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logging.Error().Err(err).Msg("server shutdown")
		}
	}()

	logging.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("storage", cfg.StorageBackend).
		Bool("mail_queue", cfg.RabbitURL != "").
		Msg("HTTP server starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		logging.Fatal().Err(err).Msg("failed to start HTTP server")
	}
}

func newStore(ctx context.Context, cfg config.App) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicURL)
	case "supabase":
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket), nil
	default:
		return storage.Disabled{}, nil
	}
}

// newMailer publishes to RabbitMQ when configured and logs emails otherwise.
func newMailer(cfg config.App) (mailer.Mailer, func() string, func()) {
	if cfg.RabbitURL == "" {
		return mailer.LogMailer{}, func() string { return "disabled" }, func() {}
	}

	pub, err := mailer.NewRabbitPublisher(cfg.RabbitURL, cfg.MailExchange)
	if err != nil {
		logging.Error().Err(err).Msg("mail broker unavailable, logging emails instead")
		return mailer.LogMailer{}, func() string { return "unavailable" }, func() {}
	}
	qm := mailer.NewQueueMailer(pub, mailer.DefaultBreakerConfig())
	return qm, qm.State, func() { _ = pub.Close() }
}

func customErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		if code == fiber.StatusInternalServerError {
			logging.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			// Don't expose internal errors in production
			if production {
				message = "An error occurred. Please try again later."
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
