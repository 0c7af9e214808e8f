package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"listing-service/internal/adapters/imaging"
	logger_adapter "listing-service/internal/adapters/logger"
	"listing-service/internal/adapters/memory"
	"listing-service/internal/adapters/metrics"
	objectstorage_adapter "listing-service/internal/adapters/objectstorage"
	postgres_adapter "listing-service/internal/adapters/postgres"
	rabbitmq_adapter "listing-service/internal/adapters/rabbitmq"
	redis_adapter "listing-service/internal/adapters/redis"
	"listing-service/internal/adapters/rest"
	"listing-service/internal/configs"
	"listing-service/internal/constants"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/port"
	"listing-service/internal/core/usecase"
	"listing-service/migrations"
	fluentlogger "listing-service/pkg/fluent_logger"
	"listing-service/pkg/objectstorage"
	"listing-service/pkg/postgres"
	"listing-service/pkg/rabbitmq/rabbitmq_common"
	"listing-service/pkg/rabbitmq/rabbitmq_consumer"
	"listing-service/pkg/rabbitmq/rabbitmq_producer"
	"listing-service/pkg/redis_client"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	dispatchLoop port.EventListenerPort

	dbPool      *pgxpool.Pool
	connManager *rabbitmq_common.ConnectionManager
	producer    *rabbitmq_producer.Publisher
	redisClient *redis.Client
}

// infrastructure - исходящие адаптеры, выбранные STORAGE_DRIVER
type infrastructure struct {
	properties port.PropertyRepositoryPort
	history    port.VerificationHistoryPort
	usage      port.UsageRepositoryPort
	profiles   port.ProfileRepositoryPort
	storage    port.ObjectStoragePort
	queue      port.NotificationQueuePort
	cache      port.AnalyticsCachePort

	// цикл доставки: читает очередь и вызывает use case диспетчеризации
	dispatchLoop port.EventListenerPort
}

// NewApp - точка сборки: все зависимости создаются и связываются здесь
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ЛОГГЕРЫ ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    logger_adapter.ParseLevel(appConfig.StdoutLogger.Level),
		IsJSON:   appConfig.StdoutLogger.IsJSON,
		UseColor: !appConfig.StdoutLogger.IsJSON,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, logger_adapter.ParseLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiLoggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers),
		"fluent_enabled": appConfig.FluentBit.Enabled,
		"storage_driver": appConfig.StorageDriver,
	})

	application := &App{
		config:       appConfig,
		fluentClient: fluentClient,
		logger:       appLogger,
	}

	// --- 2. ИСХОДЯЩИЕ АДАПТЕРЫ ---
	appMetrics := metrics.New()

	var infra *infrastructure
	switch appConfig.StorageDriver {
	case configs.StorageDriverMemory:
		infra = application.buildMemoryInfrastructure(baseLogger, appMetrics)
	default:
		infra, err = application.buildPostgresInfrastructure(baseLogger, appMetrics)
		if err != nil {
			application.closeResources()
			return nil, err
		}
	}
	application.dispatchLoop = infra.dispatchLoop
	appLogger.Info("All adapters initialized.", nil)

	// --- 3. USE CASES ---
	retry := usecase.RetryPolicy{
		MaxTries:        uint(appConfig.Retry.MaxTries),
		InitialInterval: appConfig.Retry.InitialInterval,
		MaxInterval:     appConfig.Retry.MaxInterval,
	}

	compressor := imaging.NewCompressor(uint(appConfig.Media.MaxDimension), appConfig.Media.JPEGQuality)
	mediaPipeline := usecase.NewMediaPipeline(infra.storage, compressor, infra.properties, usecase.MediaConfig{
		Workers: appConfig.Media.UploadWorkers,
		Retry:   retry,
	})

	createPropertyUC := usecase.NewCreatePropertyUseCase(infra.properties, mediaPipeline)
	getPropertyUC := usecase.NewGetPropertyUseCase(infra.properties, retry)
	updatePropertyUC := usecase.NewUpdatePropertyUseCase(infra.properties, retry)
	submitUC := usecase.NewSubmitForVerificationUseCase(infra.properties, infra.profiles, infra.queue, retry)
	returnToDraftUC := usecase.NewReturnToDraftUseCase(infra.properties)

	decideUC := usecase.NewDecideVerificationUseCase(infra.properties, infra.queue, retry)
	listPendingUC := usecase.NewListPendingVerificationsUseCase(infra.properties, retry)
	historyUC := usecase.NewGetVerificationHistoryUseCase(infra.properties, infra.history, retry)

	attachMediaUC := usecase.NewAttachMediaUseCase(infra.properties, mediaPipeline, retry)
	removeMediaUC := usecase.NewRemoveMediaUseCase(infra.properties, infra.storage, retry)

	recordViewUC := usecase.NewRecordViewUseCase(infra.usage)
	recordInquiryUC := usecase.NewRecordInquiryUseCase(infra.usage, infra.properties, infra.queue, retry)
	analyticsUC := usecase.NewGetPropertyAnalyticsUseCase(infra.properties, infra.usage, infra.cache, retry)

	ensureProfileUC := usecase.NewEnsureProfileUseCase(infra.profiles)
	appLogger.Info("All use cases initialized.", nil)

	// --- 4. REST ---
	maxUpload := int64(appConfig.Rest.MaxUploadSizeMB) << 20
	handlers := rest.Handlers{
		Properties:    rest.NewPropertyHandler(createPropertyUC, getPropertyUC, updatePropertyUC, submitUC, returnToDraftUC, maxUpload),
		Verifications: rest.NewVerificationHandler(decideUC, listPendingUC, historyUC, getPropertyUC),
		Media:         rest.NewMediaHandler(attachMediaUC, removeMediaUC, getPropertyUC, maxUpload),
		Usage:         rest.NewUsageHandler(recordViewUC, recordInquiryUC, analyticsUC, getPropertyUC),
		EnsureProfile: ensureProfileUC,
	}

	application.apiServer = rest.NewServer(rest.ServerConfig{
		Port:           appConfig.Rest.PORT,
		AllowedOrigins: appConfig.Rest.AllowedOrigins,
		ReadTimeout:    appConfig.Rest.ReadTimeout,
		WriteTimeout:   appConfig.Rest.WriteTimeout,
	}, handlers, appMetrics, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	return application, nil
}

func (a *App) buildMemoryInfrastructure(baseLogger port.LoggerPort, m *metrics.Metrics) *infrastructure {
	store := memory.NewStore()
	dispatchUC := usecase.NewDispatchNotificationUseCase(store.Inbox(), m)
	memQueue := memory.NewNotificationQueue(256, a.config.RabbitMQ.MaxRetries, dispatchUC, baseLogger).
		WithBackoff(a.config.Retry.InitialInterval, a.config.Retry.MaxInterval)

	infra := &infrastructure{
		properties:   store.Properties(),
		history:      store.History(),
		usage:        store.Usage(),
		profiles:     store.Profiles(),
		storage:      memory.NewObjectStorage("http://localhost:" + a.config.Rest.PORT + "/media"),
		queue:        memQueue,
		dispatchLoop: memQueue,
	}

	a.logger.Warn("Running with in-memory storage, data is lost on restart", nil)
	return infra
}

func (a *App) buildPostgresInfrastructure(baseLogger port.LoggerPort, m *metrics.Metrics) (*infrastructure, error) {
	cfg := a.config
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool, err := postgres.NewClient(ctx, postgres.Config{
		DatabaseURL:     cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		a.logger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.dbPool = dbPool
	a.logger.Info("Successfully connected to PostgreSQL pool!", nil)

	if cfg.Database.AutoMigrate {
		applied, err := postgres.ApplyMigrations(ctx, dbPool, migrations.FS)
		if err != nil {
			a.logger.Error("Failed to apply migrations", err, nil)
			return nil, err
		}
		a.logger.Info("Database migrations applied", port.Fields{"migrations": applied})
	}

	infra := &infrastructure{}
	if infra.properties, err = postgres_adapter.NewPostgresPropertyRepository(dbPool); err != nil {
		return nil, fmt.Errorf("failed to create property repository: %w", err)
	}
	if infra.history, err = postgres_adapter.NewPostgresHistoryRepository(dbPool); err != nil {
		return nil, fmt.Errorf("failed to create history repository: %w", err)
	}
	if infra.usage, err = postgres_adapter.NewPostgresUsageRepository(dbPool); err != nil {
		return nil, fmt.Errorf("failed to create usage repository: %w", err)
	}
	if infra.profiles, err = postgres_adapter.NewPostgresProfileRepository(dbPool); err != nil {
		return nil, fmt.Errorf("failed to create profile repository: %w", err)
	}
	a.logger.Info("Postgres repositories initialized.", nil)

	storageCfg := objectstorage.Config{
		Endpoint:      cfg.ObjectStorage.Endpoint,
		AccessKey:     cfg.ObjectStorage.AccessKey,
		SecretKey:     cfg.ObjectStorage.SecretKey,
		UseSSL:        cfg.ObjectStorage.UseSSL,
		Region:        cfg.ObjectStorage.Region,
		Bucket:        cfg.ObjectStorage.Bucket,
		PublicBaseURL: cfg.ObjectStorage.PublicBaseURL,
	}
	minioClient, err := objectstorage.NewClient(ctx, storageCfg)
	if err != nil {
		a.logger.Error("Failed to connect to object storage", err, nil)
		return nil, err
	}
	infra.storage = objectstorage_adapter.NewMinioObjectStorage(minioClient, storageCfg.Bucket, storageCfg.BaseURL())
	a.logger.Info("Object storage initialized.", port.Fields{"bucket": storageCfg.Bucket})

	if cfg.Redis.Enabled {
		a.redisClient, err = redis_client.NewClient(ctx, redis_client.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// аналитика работает и без кеша
			a.logger.Warn("Redis is unavailable, analytics cache disabled", port.Fields{"error": err.Error()})
		} else {
			infra.cache = redis_adapter.NewAnalyticsCache(a.redisClient, cfg.Redis.AnalyticsTTL)
			a.logger.Info("Redis analytics cache initialized.", nil)
		}
	}

	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
	a.connManager, err = rabbitmq_common.NewConnectionManager(context.Background(), rabbitmq_common.Config{URL: cfg.RabbitMQ.URL}, connManagerBridge)
	if err != nil {
		a.logger.Error("Failed to create connection manager", err, nil)
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.logger.Info("RabbitMQ Connection Manager initialized.", nil)

	a.producer, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		ExchangeName:    constants.ExchangeListing,
		ExchangeType:    "direct",
		DurableExchange: true,
		DeclareExchange: true,
		Logger:          rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
	}, a.connManager)
	if err != nil {
		a.logger.Error("Failed to create event producer", err, nil)
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}

	infra.queue, err = rabbitmq_adapter.NewRabbitMQNotificationQueueAdapter(a.producer, constants.RoutingKeyInboxDeliver)
	if err != nil {
		return nil, err
	}
	a.logger.Info("RabbitMQ notification queue initialized.", nil)

	consumerCfg := rabbitmq_consumer.ConsumerConfig{
		QueueName:     constants.QueueInboxNotifications,
		Exchange:      constants.ExchangeListing,
		ExchangeType:  "direct",
		RoutingKey:    constants.RoutingKeyInboxDeliver,
		PrefetchCount: cfg.RabbitMQ.Prefetch,
		ConsumerTag:   "inbox-dispatcher",

		EnableRetryMechanism: true,
		RetryExchange:        constants.RetryExchangeInbox,
		RetryQueue:           constants.QueueInboxRetryWait,
		RetryTTL:             cfg.RabbitMQ.RetryTTL,
		FinalDLXExchange:     constants.FinalDLXExchange,
		FinalDLQ:             constants.FinalDLQ,
		FinalDLQRoutingKey:   constants.FinalDLQRoutingKey,
		MaxRetries:           cfg.RabbitMQ.MaxRetries,
	}
	inboxDispatcher, err := postgres_adapter.NewPostgresInboxDispatcher(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create inbox dispatcher: %w", err)
	}
	dispatchUC := usecase.NewDispatchNotificationUseCase(inboxDispatcher, m)

	infra.dispatchLoop, err = rabbitmq_adapter.NewNotificationConsumerAdapter(consumerCfg, dispatchUC, baseLogger, a.connManager)
	if err != nil {
		a.logger.Error("Failed to create notification listener", err, nil)
		return nil, err
	}
	a.logger.Info("Notification dispatch listener initialized.", nil)

	return infra, nil
}

// Run запускает компоненты и управляет их жизненным циклом
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	appCtx = contextkeys.ContextWithLogger(appCtx, a.logger)

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		if a.apiServer != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := a.apiServer.Stop(stopCtx); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
			cancel()
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		a.closeResources()
		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				// fluent может быть уже недоступен
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 2)

	startListener := func(name string, listener port.EventListenerPort) {
		defer wg.Done()
		listenerLogger := a.logger.WithFields(port.Fields{"listener_name": name})
		listenerLogger.Info("Starting listener...", nil)

		if err := listener.Start(appCtx); err != nil {
			listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
			errorsCh <- fmt.Errorf("%s error: %w", name, err)
		} else {
			listenerLogger.Info("Listener stopped gracefully.", nil)
		}
	}

	wg.Add(1)
	go startListener("Notification Dispatch Loop", a.dispatchLoop)

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
		if err := a.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case runErr = <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", runErr, nil)
	}

	cancelApp()
	return runErr
}

// closeResources закрывает то, что успело создаться. Порядок обратный созданию.
func (a *App) closeResources() {
	if a.dispatchLoop != nil {
		if err := a.dispatchLoop.Close(); err != nil {
			a.logger.Error("Error closing notification dispatch loop", err, nil)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Error closing redis client", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
	}
}
