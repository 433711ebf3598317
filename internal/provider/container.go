package provider

import (
	"time"

	"github.com/betlink/affiliate-engine/internal/cache"
	"github.com/betlink/affiliate-engine/internal/config"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/queue"
	"github.com/betlink/affiliate-engine/internal/repository"
	"github.com/betlink/affiliate-engine/internal/service"
)

// Container wires configuration, repositories and services together.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AffiliateRepo   repository.AffiliateRepository
	TransactionRepo repository.TransactionRepository
	CommissionRepo  repository.CommissionRepository
	IndicationRepo  repository.IndicationRepository
	SettingRepo     repository.SettingRepository
	AuditLogRepo    repository.AuditLogRepository

	// Services
	EventPublisher   service.EventPublisher
	AuditService     *service.AuditService
	ConfigProvider   *service.CategoryConfigProvider
	Engine           *service.Engine
	AffiliateService *service.AffiliateService
}

// NewContainer initializes the container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.TransactionRepo = repository.NewTransactionRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.IndicationRepo = repository.NewIndicationRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
}

func (c *Container) initServices() {
	c.EventPublisher = service.NewQueuePublisher(c.QueueClient)
	c.AuditService = service.NewAuditService(c.AuditLogRepo)

	cacheTTL := time.Duration(c.Config.Commission.RateTableCacheTTL) * time.Second
	c.ConfigProvider = service.NewCategoryConfigProvider(c.SettingRepo, cacheTTL)

	decay := service.NewInactivityDecayCalculator()
	validator := service.NewTransactionValidator(c.TransactionRepo)
	resolver := service.NewHierarchyResolver(c.AffiliateRepo, c.Config.Commission.MaxHierarchyDepth)
	distributor := service.NewCommissionDistributor(c.AffiliateRepo, c.CommissionRepo, c.ConfigProvider, decay, c.EventPublisher)
	bonus := service.NewIndicationBonusProcessor(c.AffiliateRepo, c.IndicationRepo, c.EventPublisher)
	progression := service.NewProgressionEvaluator(c.AffiliateRepo, c.ConfigProvider, c.EventPublisher)

	c.Engine = service.NewEngine(
		c.AffiliateRepo,
		c.TransactionRepo,
		validator,
		resolver,
		distributor,
		bonus,
		progression,
		c.AuditService,
	)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.CommissionRepo, c.IndicationRepo, c.ConfigProvider)
}
