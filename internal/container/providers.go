package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-desk/internal/application/dispatcher"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/application/service"
	"github.com/garyjia/travel-desk/internal/application/workflow"
	"github.com/garyjia/travel-desk/internal/infrastructure/auth"
	infraLark "github.com/garyjia/travel-desk/internal/infrastructure/external/lark"
	"github.com/garyjia/travel-desk/internal/infrastructure/external/lognotify"
	"github.com/garyjia/travel-desk/internal/infrastructure/external/smtp"
	"github.com/garyjia/travel-desk/internal/infrastructure/metrics"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-desk/internal/infrastructure/report"
	"github.com/garyjia/travel-desk/internal/infrastructure/storage"
	"github.com/garyjia/travel-desk/internal/infrastructure/worker"
	"github.com/garyjia/travel-desk/pkg/database"
	"github.com/garyjia/travel-desk/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw            *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies the embedded migrations.
// Returns DatabaseBundle containing the raw handle and the TransactionManager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	raw, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(raw, logger).RunEmbedded(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw:            raw,
		TransactionMgr: sqlite.NewDB(raw.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over the transaction-aware DB.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		User:         repository.NewUserRepository(db, logger),
		Role:         repository.NewRoleRepository(db, logger),
		Request:      repository.NewRequestRepository(db, logger),
		Comment:      repository.NewCommentRepository(db, logger),
		Notification: repository.NewNotificationRepository(db, logger),
	}, nil
}

// ProvideNotifiers creates one notifier per enabled channel. When no
// channel is enabled notices are written to the log.
func ProvideNotifiers(emailCfg *EmailConfig, larkCfg *LarkConfig, logger *zap.Logger) ([]port.Notifier, error) {
	var notifiers []port.Notifier

	if emailCfg != nil && emailCfg.Enabled {
		mailer, err := smtp.NewMailer(smtp.Config{
			Host:      emailCfg.Host,
			Port:      emailCfg.Port,
			Username:  emailCfg.Username,
			Password:  emailCfg.Password,
			FromName:  emailCfg.FromName,
			FromEmail: emailCfg.FromEmail,
			UseTLS:    emailCfg.UseTLS,
		}, logger.Named("smtp"))
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp mailer: %w", err)
		}
		notifiers = append(notifiers, mailer)
	}

	if larkCfg != nil && larkCfg.Enabled {
		client, err := infraLark.NewSDKClient(infraLark.Config{
			AppID:     larkCfg.AppID,
			AppSecret: larkCfg.AppSecret,
			BaseURL:   larkCfg.BaseURL,
			Timeout:   larkCfg.APITimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create lark client: %w", err)
		}
		notifiers = append(notifiers, infraLark.NewMessenger(client, logger.Named("lark")))
	}

	if len(notifiers) == 0 {
		logger.Warn("No notification channel enabled, notices will only be logged")
		notifiers = append(notifiers, lognotify.New(logger))
	}

	return notifiers, nil
}

// ProvideStorage creates the document storage rooted at the configured directory.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	return storage.NewLocalFileStorage(cfg.DocumentDir, logger.Named("storage"))
}

// ProvideDispatcher creates the event dispatcher.
// Returns dispatcher.Dispatcher implementation.
func ProvideDispatcher(cfg *NotificationConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher")))}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}

	return dispatcher.NewDispatcher(opts...), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Metrics    port.WorkflowMetrics
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine publishing to the dispatcher.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	opts := []workflow.EngineOption{workflow.WithDispatcher(deps.Dispatcher)}
	if deps.Metrics != nil {
		opts = append(opts, workflow.WithMetrics(deps.Metrics))
	}

	return workflow.NewEngine(
		deps.Repos.Request,
		deps.Repos.Comment,
		deps.TxManager,
		deps.Logger.Named("workflow"),
		opts...,
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos        *RepositoryBundle
	TxManager    port.TransactionManager
	Engine       workflow.WorkflowEngine
	Dispatcher   dispatcher.Dispatcher
	Notifiers    []port.Notifier
	Storage      port.FileStorage
	Metrics      port.WorkflowMetrics
	Auth         *AuthConfig
	Notification *NotificationConfig
	StorageCfg   *StorageConfig
	Logger       *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification service to workflow events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Auth == nil || deps.Notification == nil || deps.StorageCfg == nil {
		return nil, fmt.Errorf("service configuration is required")
	}

	tokens, err := auth.NewJWTIssuer(auth.JWTConfig{
		Secret:   deps.Auth.JWTSecret,
		Issuer:   deps.Auth.Issuer,
		Audience: deps.Auth.Audience,
		TTL:      deps.Auth.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	hasher := auth.NewBcryptHasher(deps.Auth.BcryptCost)

	serviceLogger := utils.NewKVLogger(deps.Logger.Named("service"))

	notificationOpts := []service.NotificationOption{
		service.WithRetry(deps.Notification.MaxRetries, deps.Notification.RetryBackoff),
	}
	if deps.Metrics != nil {
		notificationOpts = append(notificationOpts, service.WithNotificationMetrics(deps.Metrics))
	}
	notifications := service.NewNotificationService(
		deps.Repos.User,
		deps.Repos.Notification,
		deps.Notifiers,
		serviceLogger,
		notificationOpts...,
	)
	if deps.Dispatcher != nil {
		notifications.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Auth: service.NewAuthService(deps.Repos.User, tokens, hasher, serviceLogger),
		Requests: service.NewRequestService(
			deps.Engine,
			deps.Repos.Request,
			report.NewExcelExporter(deps.Logger.Named("report")),
			serviceLogger,
		),
		Admin: service.NewAdminService(
			deps.Repos.User,
			deps.Repos.Role,
			deps.Repos.Request,
			deps.Repos.Comment,
			hasher,
			deps.TxManager,
			serviceLogger,
		),
		Documents: service.NewDocumentService(deps.Storage, service.DocumentConfig{
			PublicBaseURL:     deps.StorageCfg.PublicBaseURL,
			MaxUploadBytes:    deps.StorageCfg.MaxUploadBytes,
			AllowedExtensions: deps.StorageCfg.AllowedExtensions,
		}, serviceLogger),
		Notification: notifications,
	}, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Repos     *RepositoryBundle
	Notifiers []port.Notifier
	Metrics   port.WorkflowMetrics
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns *worker.Manager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}

	manager := worker.NewManager(deps.Logger.Named("workers"))

	if deps.WorkerCfg.RedeliveryEnabled {
		cfg := worker.DefaultRedeliveryConfig()
		if deps.WorkerCfg.RedeliveryPollInterval > 0 {
			cfg.PollInterval = deps.WorkerCfg.RedeliveryPollInterval
		}
		if deps.WorkerCfg.RedeliveryBatchSize > 0 {
			cfg.BatchSize = deps.WorkerCfg.RedeliveryBatchSize
		}
		if deps.WorkerCfg.RedeliveryMaxAttempts > 0 {
			cfg.MaxAttempts = deps.WorkerCfg.RedeliveryMaxAttempts
		}
		if deps.WorkerCfg.RedeliveryStaleAfter > 0 {
			cfg.StaleAfter = deps.WorkerCfg.RedeliveryStaleAfter
		}

		manager.Register(worker.NewRedeliveryWorker(
			cfg,
			deps.Repos.Notification,
			deps.Notifiers,
			deps.Metrics,
			deps.Logger.Named("redelivery"),
		))
	}

	return manager, nil
}

// ensure the metrics registry satisfies the workflow metrics port
var _ port.WorkflowMetrics = (*metrics.Registry)(nil)
