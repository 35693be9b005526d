package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	commonerrors "github.com/rmtechsolution/valentine-backend/services/common/errors"
	commonlogger "github.com/rmtechsolution/valentine-backend/services/common/logger"
	"github.com/rmtechsolution/valentine-backend/services/common/middleware"
	"github.com/rmtechsolution/valentine-backend/services/story-service/config"
	"github.com/rmtechsolution/valentine-backend/services/story-service/consumer"
	"github.com/rmtechsolution/valentine-backend/services/story-service/controllers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/database"
	"github.com/rmtechsolution/valentine-backend/services/story-service/media"
	"github.com/rmtechsolution/valentine-backend/services/story-service/pricing"
	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/rmtechsolution/valentine-backend/services/story-service/routes"
	"github.com/rmtechsolution/valentine-backend/services/story-service/sender"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"go.uber.org/zap"
)

const serviceName = "story-service"

func main() {
	boot, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	cfg, err := config.LoadConfig(boot)
	if err != nil {
		boot.Fatal("Config load failed", zap.Error(err))
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- AWS setup ---
	awsCfg, err := awspkg.LoadAWSConfig(rootCtx)
	if err != nil {
		boot.Fatal("Failed to load AWS config", zap.Error(err))
	}

	// --- Logging ---
	var cloudWatch io.Writer
	var cwLogs *awspkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled {
		cwLogs, err = awspkg.NewCloudWatchLogsClient(rootCtx, awsCfg, cfg.LogGroup, serviceName)
		if err != nil {
			boot.Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		} else {
			cloudWatch = cwLogs
			go cwLogs.Run(rootCtx)
		}
	}
	logger, err := commonlogger.New(cfg.AppEnv, cfg.LogLevel, cloudWatch)
	if err != nil {
		boot.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	snsClient := awspkg.NewSNSClient(awsCfg)

	// --- Ledger and promo catalog ---
	var attempts repository.AttemptRepository
	var catalog pricing.Catalog
	if cfg.UsesPostgres() {
		if err := database.Connect(rootCtx, cfg, logger); err != nil {
			logger.Fatal("DB connection failed", zap.Error(err))
		}
		promoRepo := repository.NewPromoRepository(database.DB)
		if err := promoRepo.Seed(rootCtx, pricing.DefaultCodes); err != nil {
			logger.Fatal("Promo seed failed", zap.Error(err))
		}
		attempts = repository.NewGormAttemptRepository(database.DB)
		catalog = promoRepo
	} else {
		attempts = repository.NewDynamoAttemptRepository(awspkg.NewDynamoDBClient(awsCfg), cfg.DynamoTable)
		catalog = pricing.NewStaticCatalog()
		logger.Info("Using DynamoDB ledger", zap.String("table", cfg.DynamoTable))
	}

	// --- Sessions ---
	var store repository.SessionStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		store = repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_URL not set, sessions are kept in memory")
		store = repository.NewMemorySessionStore()
	}

	// --- Media ---
	var mediaStore media.Store
	var localDir string
	switch cfg.MediaBackend {
	case config.MediaS3:
		mediaStore = media.NewS3Store(awspkg.NewS3Client(awsCfg), cfg.MediaBucket, cfg.PresignExpiry)
	default:
		local, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
		if err != nil {
			logger.Fatal("Media directory unavailable", zap.Error(err))
		}
		mediaStore = local
		localDir = local.Dir()
	}
	mediaManager := media.NewManager(mediaStore, cfg.MaxFileSize, logger)

	// --- Providers ---
	gateway := providers.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if !gateway.Configured() {
		logger.Warn("Razorpay keys not configured, order creation will fail")
	}
	archive := providers.NewRemoteStoryArchive(cfg.StoryEndpoint, cfg.StoryTimeout, mediaManager, logger)

	// --- Share link notification ---
	notificationService, err := services.NewNotificationService(emailSender(logger), smsSender(logger), logger)
	if err != nil {
		logger.Fatal("Notification templates failed to load", zap.Error(err))
	}
	var notifier services.ShareLinkNotifier
	var directNotifier *services.BackgroundNotifier
	if cfg.ShareLinkQueueURL == "" {
		logger.Warn("SHARE_LINK_QUEUE_URL not set, share links are sent in-process and lost on restart")
		directNotifier = services.NewBackgroundNotifier(notificationService, time.Minute, logger)
		notifier = directNotifier
	} else {
		queue := awspkg.NewSQSQueue(awsCfg, cfg.ShareLinkQueueURL, logger)
		notifier = services.NewQueuedNotifier(queue, logger)
		shareLinkConsumer := consumer.NewShareLinkConsumer(queue, notificationService, metricsClient, logger)
		go func() {
			if err := shareLinkConsumer.Start(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Share link consumer stopped", zap.Error(err))
			}
		}()
	}

	// --- Dependency injection ---
	promoService := services.NewPromoService(catalog, metricsClient, logger)
	wizardService := services.NewWizardService(store, mediaManager, promoService, logger)
	orderService := services.NewOrderService(gateway, catalog, attempts, metricsClient, services.OrderConfig{
		MerchantID:   cfg.MerchantID,
		EnforceQuote: cfg.EnforceQuote,
	}, logger)
	checkoutService := services.NewCheckoutService(services.CheckoutDeps{
		Store:    store,
		Orders:   orderService,
		Gateway:  gateway,
		Archive:  archive,
		Attempts: attempts,
		Notifier: notifier,
		Media:    mediaManager,
		SNS:      snsClient,
		TopicArn: cfg.StorySNSTopicARN,
		Metrics:  metricsClient,
	}, services.CheckoutConfig{
		PublicBaseURL:   cfg.PublicBaseURL,
		ShareHost:       cfg.ShareHost,
		KeySecret:       cfg.RazorpayKeySecret,
		VerifySignature: cfg.VerifySignature,
		UploadTimeout:   cfg.UploadTimeout,
	}, logger)
	webhookService := services.NewWebhookService(cfg.RazorpayWebhookSecret, attempts, snsClient, cfg.StorySNSTopicARN, metricsClient, logger)

	validator := controllers.NewRequestValidator()
	wizardController := controllers.NewWizardController(wizardService, validator)
	mediaController := controllers.NewMediaController(wizardService, validator, cfg.MaxRequestBytes)
	orderController := controllers.NewOrderController(orderService, promoService)
	checkoutController := controllers.NewCheckoutController(checkoutService)
	webhookController := controllers.NewWebhookController(webhookService)

	// --- HTTP router ---
	r := gin.New()
	r.Use(commonlogger.RequestID())
	r.Use(commonerrors.Recovery(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(commonerrors.ErrorMiddleware(logger))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(rootCtx)
	limit := middleware.RateLimit(limiter)

	routes.RegisterOrderRoutes(r, orderController, limit)
	routes.RegisterSessionRoutes(r, wizardController, mediaController, checkoutController, limit)
	routes.RegisterWebhookRoutes(r, webhookController)
	if localDir != "" {
		routes.RegisterMediaRoutes(r, localDir)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Story Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	stop()

	if directNotifier != nil {
		if err := directNotifier.Wait(httpShutdownCtx); err != nil {
			logger.Warn("Share link deliveries still in flight at shutdown", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("Story Service stopped gracefully")
	if cwLogs != nil {
		_ = logger.Sync()
		flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
		cwLogs.Flush(flushCtx)
		cancelFlush()
	}
}

// emailSender falls back to logging when SMTP is not configured.
func emailSender(logger *zap.Logger) sender.EmailSender {
	smtpSender, err := sender.NewSMTPSender()
	if err != nil {
		logger.Warn("SMTP not configured, share link emails will only be logged", zap.Error(err))
		return sender.NewLogSender(logger)
	}
	return smtpSender
}

// smsSender returns nil when Twilio is not configured; SMS is optional.
func smsSender(logger *zap.Logger) sender.SMSSender {
	twilioSender, err := sender.NewTwilioSender()
	if err != nil {
		logger.Info("Twilio not configured, share link SMS disabled", zap.String("reason", err.Error()))
		return nil
	}
	return twilioSender
}
