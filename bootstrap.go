package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marcoalfans/manud-be/app/handlers"
	"github.com/marcoalfans/manud-be/app/middleware"
	"github.com/marcoalfans/manud-be/app/router"
	"github.com/marcoalfans/manud-be/app/scheduler"
	"github.com/marcoalfans/manud-be/app/services"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/config"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/repository/mongostore"
)

// captchaSquareSize is the rendered edge of the rotate captcha image in pixels.
const captchaSquareSize = 300

// Application holds the wired server and what must be closed on exit
type Application struct {
	config *config.Config
	logger logging.Logger
	router router.Router

	verifications repository.VerificationTokenRepository
	sessions      repository.SessionTokenRepository
	cacheMonitor  *scheduler.CacheMonitor

	closers   []func() error
	stopFuncs []func()
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Error releasing resource", "error", err)
		}
	}
}

// catalogStore bundles the catalog repositories of the selected backend.
type catalogStore struct {
	backend      string
	umkm         repository.UmkmRepository
	destinations repository.DestinationRepository
	favorites    repository.FavoriteRepository
	counters     repository.CounterRepository
	tx           repository.TransactionManager
	health       repository.Pinger
	close        func()
}

// gormLogWriter routes gorm's slow query and error lines into the structured logger.
type gormLogWriter struct {
	logger logging.Logger
}

func (w gormLogWriter) Printf(format string, args ...any) {
	w.logger.Warn(fmt.Sprintf(format, args...))
}

// newGormConfig translates driver errors so duplicate keys surface as gorm.ErrDuplicatedKey.
func newGormConfig(cfg config.DatabaseConfig, log logging.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(gormLogWriter{logger: log.With("component", "gorm")}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// initializeDatabase opens the PostgreSQL pool that backs accounts and, by default, the catalog
func initializeDatabase(cfg config.DatabaseConfig, log logging.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), newGormConfig(cfg, log))
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)
	return db, nil
}

func initializeCatalogStore(cfg *config.Config, db *gorm.DB, log logging.Logger) (*catalogStore, error) {
	if cfg.Catalog.Store != config.CatalogStoreMongoDB {
		tx := repository.NewGormTransactionManager(db)
		return &catalogStore{
			backend:      config.CatalogStorePostgres,
			umkm:         repository.NewUmkmRepository(db),
			destinations: repository.NewDestinationRepository(db),
			favorites:    repository.NewFavoriteRepository(db),
			counters:     repository.NewCounterRepository(db),
			tx:           tx,
			health:       tx,
			close:        func() {},
		}, nil
	}

	adapter, err := mongostore.NewAdapter(mongostore.Config{
		URL:              cfg.Mongo.URL,
		Database:         cfg.Mongo.Database,
		ConnectTimeout:   cfg.Mongo.ConnectTimeout,
		OperationTimeout: cfg.Mongo.OperationTimeout,
		UseTransactions:  cfg.Mongo.UseTransactions,
	}, log.With("component", "mongostore"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := adapter.EnsureIndexes(ctx); err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to ensure mongodb indexes: %w", err)
	}

	return &catalogStore{
		backend:      config.CatalogStoreMongoDB,
		umkm:         mongostore.NewUmkmRepository(adapter),
		destinations: mongostore.NewDestinationRepository(adapter),
		favorites:    mongostore.NewFavoriteRepository(adapter),
		counters:     mongostore.NewCounterRepository(adapter),
		tx:           adapter,
		health:       adapter,
		close: func() {
			if err := adapter.Close(); err != nil {
				log.Warn("Error closing mongodb client", "error", err)
			}
		},
	}, nil
}

// initializeCache connects to Redis when caching is enabled; nil means disabled.
func initializeCache(cfg config.CacheConfig, log logging.Logger) (*redis.Client, error) {
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

	log.Info("Redis connection established", "db", cfg.RedisDB)
	return rc, nil
}

func initializeEmailService(cfg *config.Config, log logging.Logger) (services.EmailService, error) {
	var provider services.EmailProvider
	if cfg.Email.Configured() {
		smtp, err := services.NewSMTPProvider(services.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.FromEmail,
			FromName: cfg.Email.FromName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize smtp provider: %w", err)
		}
		provider = smtp
	} else {
		log.Warn("SMTP is not configured; verification and reset emails are disabled")
	}

	return services.NewEmailService(provider, services.EmailOptions{
		BaseURL:           cfg.App.BaseURL,
		RetryAttempts:     cfg.Email.RetryAttempts,
		RetryInitialDelay: cfg.Email.RetryInitialDelay,
		AttemptTimeout:    cfg.Email.Timeout,
	}, log.With("component", "email")), nil
}

func initializeChatClient(cfg config.ChatbotConfig, log logging.Logger) (services.ChatClient, error) {
	if cfg.APIKey == "" {
		log.Warn("Chatbot API key is not set; chatbot requests will fail")
		return nil, nil
	}
	client, err := services.NewGeminiClient(services.GeminiOptions{
		APIKey:            cfg.APIKey,
		Endpoint:          cfg.Endpoint,
		Model:             cfg.Model,
		MaxOutputTokens:   cfg.MaxOutputTokens,
		Timeout:           cfg.Timeout,
		RetryAttempts:     cfg.RetryAttempts,
		RetryInitialDelay: cfg.RetryInitialDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, log.With("component", "chat_client"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat client: %w", err)
	}
	return client, nil
}

// initializeApplication wires stores, services, flows and handlers into a router
func initializeApplication(cfg *config.Config, log logging.Logger) (*Application, error) {
	app := &Application{config: cfg, logger: log}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	store, err := initializeCatalogStore(cfg, db, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { store.close(); return nil })
	log.Info("Catalog store selected", "backend", store.backend)

	accountsTx := repository.NewGormTransactionManager(db)
	checks := []businessflow.HealthCheck{{Name: "postgres", Check: accountsTx}}
	if store.backend == config.CatalogStoreMongoDB {
		checks = append(checks, businessflow.HealthCheck{Name: "mongodb", Check: store.health})
	}

	rc, err := initializeCache(cfg.Cache, log)
	if err != nil {
		return nil, err
	}
	var history services.ChatHistoryStore
	if rc != nil {
		app.closers = append(app.closers, rc.Close)
		pinger := repository.RedisPinger{Client: rc}
		checks = append(checks, businessflow.HealthCheck{Name: "redis", Check: pinger})
		app.cacheMonitor = scheduler.NewCacheMonitor(pinger, log, cfg.Cache.HealthInterval)
		history = services.NewRedisChatHistoryStore(rc, cfg.Cache.RedisPrefix, cfg.Cache.ChatHistoryTTL)
	} else {
		history = services.NewMemoryChatHistoryStore(cfg.Cache.ChatHistoryTTL)
	}

	users := repository.NewUserRepository(db)
	app.verifications = repository.NewVerificationTokenRepository(db)
	app.sessions = repository.NewSessionTokenRepository(db)

	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Info("Token service initialized", "issuer", cfg.JWT.Issuer, "audience", cfg.JWT.Audience)

	emailService, err := initializeEmailService(cfg, log)
	if err != nil {
		return nil, err
	}

	var captcha services.CaptchaService
	if cfg.Captcha.Enabled {
		captcha = services.NewRotateCaptchaService(cfg.Captcha.TTL, cfg.Captcha.Tolerance, captchaSquareSize)
	}

	chatClient, err := initializeChatClient(cfg.Chatbot, log)
	if err != nil {
		return nil, err
	}

	allocator := businessflow.NewSequenceAllocator(store.counters, businessflow.AllocatorOptions{
		MaxRetries:      cfg.Catalog.AllocatorRetries,
		InitialInterval: cfg.Catalog.AllocatorBackoff,
	}, nil)

	authFlow := businessflow.NewAuthFlow(
		users,
		app.verifications,
		app.sessions,
		accountsTx,
		tokenService,
		emailService,
		captcha,
		businessflow.AuthOptions{
			BcryptCost:       cfg.Security.BcryptCost,
			SkipVerification: cfg.Email.SkipVerification,
			RequireCaptcha:   cfg.Captcha.Enabled,
		},
		log.With("component", "auth"),
	)
	umkmFlow := businessflow.NewUmkmFlow(store.umkm, store.tx, allocator, nil)
	destinationFlow := businessflow.NewDestinationFlow(store.destinations, store.favorites, store.tx, allocator, nil)
	exportFlow := businessflow.NewExportFlow(store.umkm, store.destinations)
	chatbotFlow := businessflow.NewChatbotFlow(chatClient, history, log.With("component", "chatbot"))
	systemFlow := businessflow.NewSystemFlow(checks, store.counters, allocator, store.backend, cfg.App.Version, nil)

	timeout := cfg.Server.RequestTimeout
	app.router = router.NewFiberRouter(cfg, router.Handlers{
		Auth:        handlers.NewAuthHandler(authFlow, log, timeout),
		User:        handlers.NewUserHandler(authFlow, log, timeout),
		Umkm:        handlers.NewUmkmHandler(umkmFlow, exportFlow, log, timeout),
		Destination: handlers.NewDestinationHandler(destinationFlow, exportFlow, log, timeout),
		Chatbot:     handlers.NewChatbotHandler(chatbotFlow, log, timeout),
		System:      handlers.NewSystemHandler(systemFlow, log, timeout),
	}, middleware.NewAuthMiddleware(authFlow), log)

	ok = true
	return app, nil
}
