// Package main provides the main entry point for the Injera promo targeting service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Injera-Promo/app/handlers"
	applogger "github.com/amirphl/Injera-Promo/app/logger"
	"github.com/amirphl/Injera-Promo/app/middleware"
	"github.com/amirphl/Injera-Promo/app/router"
	"github.com/amirphl/Injera-Promo/app/scheduler"
	"github.com/amirphl/Injera-Promo/app/services"
	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	logger    *logrus.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := applogger.New(cfg.Logging)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	log.WithFields(logrus.Fields{
		"version":     cfg.Deployment.Version,
		"environment": cfg.Deployment.Environment,
	}).Info("Starting Injera promo service")

	app, err := initializeApplication(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Info("Shutting down gracefully")

	// Stop background workers before the clients they use
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	if err := app.router.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		log.WithError(err).Error("Error during shutdown")
	}

	log.Info("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if !cfg.SlowQueryLog {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		NowFunc:        utils.UTCNow,
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig, log *logrus.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithField("db", cfg.RedisDB).Info("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor periodically pings redis. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, log *logrus.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.WithError(err).Warn("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeMessaging picks real or in-memory delivery clients
func initializeMessaging(cfg *config.ProductionConfig, log *logrus.Logger) (services.SMSGateway, services.TelegramClient) {
	var sms services.SMSGateway
	if cfg.SMS.MockMode() {
		log.Warn("SMS provider not configured, using in-memory gateway")
		sms = services.NewMockSMSGateway()
	} else {
		sms = services.NewSMSGateway(&cfg.SMS)
	}

	var telegram services.TelegramClient
	if cfg.Telegram.MockMode() {
		log.Warn("Telegram bot token not configured, using in-memory client")
		telegram = services.NewMockTelegramClient()
	} else {
		telegram = services.NewTelegramClient(&cfg.Telegram)
	}
	return sms, telegram
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, log *logrus.Logger) (*Application, error) {
	var stopFuncs []func()
	clock := utils.SystemClock{}

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, log)
	if err != nil {
		// The service runs without preview caching and redis locks
		log.WithError(err).Warn("Cache disabled")
		rc = nil
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second, log))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	// Repositories
	audienceRepo := repository.NewAudienceRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	templateRepo := repository.NewSmsTemplateRepository(db)
	staffRepo := repository.NewStaffUserRepository(db)
	runRepo := repository.NewPromoCampaignRunRepository(db)
	deliveryRepo := repository.NewPromoDeliveryRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		clock,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	smsGateway, telegramClient := initializeMessaging(cfg, log)

	// Business flows
	loginFlow := businessflow.NewStaffLoginFlow(staffRepo, auditRepo, tokenService, clock)
	templateFlow := businessflow.NewSmsTemplateFlow(templateRepo, auditRepo)
	previewFlow := businessflow.NewPromoPreviewFlow(audienceRepo, orderRepo, auditRepo, rc, cfg.Cache, cfg.Promo, clock, log)
	campaignFlow := businessflow.NewPromoCampaignFlow(businessflow.PromoCampaignDeps{
		AudienceRepo: audienceRepo,
		CustomerRepo: customerRepo,
		OrderRepo:    orderRepo,
		TemplateRepo: templateRepo,
		RunRepo:      runRepo,
		DeliveryRepo: deliveryRepo,
		StaffRepo:    staffRepo,
		AuditRepo:    auditRepo,
		SMS:          smsGateway,
		Telegram:     telegramClient,
		Redis:        rc,
	}, cfg.Cache, cfg.Promo, clock, log)

	// Background workers
	if cfg.Scheduler.Enabled {
		schedulerLog, err := applogger.NewFileLogger(cfg.Logging, cfg.Scheduler.LogPath)
		if err != nil {
			log.WithError(err).Warn("Scheduler file logger unavailable, using application logger")
			schedulerLog = log
		}
		promoScheduler := scheduler.NewPromoScheduler(runRepo, campaignFlow, rc, cfg.Scheduler, cfg.Cache, clock, schedulerLog)
		stopFuncs = append(stopFuncs, promoScheduler.Start(context.Background()))
	}

	// Handlers and router
	r := router.NewFiberRouter(cfg, router.Handlers{
		Auth:        handlers.NewAuthHandler(loginFlow, log),
		Promo:       handlers.NewPromoCampaignHandler(previewFlow, campaignFlow, log),
		SmsTemplate: handlers.NewSmsTemplateHandler(templateFlow, log),
	}, middleware.NewAuthMiddleware(tokenService, staffRepo, log), log)

	return &Application{
		router:    r,
		config:    cfg,
		logger:    log,
		stopFuncs: stopFuncs,
	}, nil
}
