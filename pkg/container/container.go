package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"circulation-backend/internal/config"
	"circulation-backend/internal/domains/allocation"
	borrowHandler "circulation-backend/internal/domains/borrow/handler"
	borrowRepo "circulation-backend/internal/domains/borrow/repository"
	borrowService "circulation-backend/internal/domains/borrow/service"
	copyHandler "circulation-backend/internal/domains/copyreg/handler"
	copyRepo "circulation-backend/internal/domains/copyreg/repository"
	copyService "circulation-backend/internal/domains/copyreg/service"
	"circulation-backend/internal/domains/policy"
	reservationHandler "circulation-backend/internal/domains/reservation/handler"
	reservationRepo "circulation-backend/internal/domains/reservation/repository"
	reservationService "circulation-backend/internal/domains/reservation/service"
	infraCache "circulation-backend/internal/infrastructure/cache"
	"circulation-backend/internal/infrastructure/database"
	"circulation-backend/internal/infrastructure/queue"
	"circulation-backend/pkg/cache"
)

// Container is the root of the dependency graph. Everything here is a
// singleton built once at startup, in dependency order: config, then
// infrastructure, then repositories, then the coordinator and policy
// provider, then services, then handlers.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB     *database.PostgresDB
	Redis  *infraCache.RedisClient
	Cache  cache.Cache
	Events *queue.EventClient

	// Repositories
	CopyRepo        copyRepo.RepositoryInterface
	BorrowRepo      borrowRepo.RepositoryInterface
	ReservationRepo reservationRepo.RepositoryInterface

	// Coordination
	Coordinator    *allocation.Coordinator
	PolicyProvider policy.Provider

	// Services
	CopyService        copyService.ServiceInterface
	BorrowService      *borrowService.BorrowService
	ReservationService *reservationService.ReservationService

	// Handlers
	CopyHandler        *copyHandler.Handler
	BorrowHandler      *borrowHandler.Handler
	ReservationHandler *reservationHandler.Handler
}

// NewContainer builds the whole graph. A failure at any step tears down what
// was already connected and returns the error.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("[CONTAINER] Config loaded (environment: %s)", cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c.DB = database.NewPostgresDB(config.LoadDatabaseConfig(cfg))
	if err := c.DB.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		c.DB.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c.Cache = infraCache.NewRedisCache(c.Redis)
	c.Events = queue.NewEventClient(cfg.Redis.Host)

	// Repositories
	c.CopyRepo = copyRepo.NewRepository(c.DB.Pool)
	c.BorrowRepo = borrowRepo.NewRepository(c.DB.Pool)
	c.ReservationRepo = reservationRepo.NewRepository(c.DB.Pool)

	// Coordination layer
	locker := allocation.NewRedisLocker(c.Redis.NewLockClient())
	c.Coordinator = allocation.NewCoordinator(locker, c.CopyRepo)

	policyTTL := time.Duration(cfg.Policy.CacheTTLMinutes) * time.Minute
	c.PolicyProvider = policy.NewCachedProvider(policy.NewStaticSource(cfg.Policy), c.Cache, policyTTL)

	// Services
	c.CopyService = copyService.NewService(c.CopyRepo)
	c.BorrowService = borrowService.NewService(c.BorrowRepo, c.CopyRepo, c.Coordinator, c.PolicyProvider, c.Events)
	c.ReservationService = reservationService.NewService(
		c.ReservationRepo, c.CopyRepo, c.Coordinator, c.PolicyProvider, c.BorrowRepo, c.Events,
	)

	// Returns feed the reservation queue; wired after both services exist
	// to keep the domains acyclic.
	c.BorrowService.SetReturnListener(c.ReservationService)

	// Handlers
	c.CopyHandler = copyHandler.NewHandler(c.CopyService)
	c.BorrowHandler = borrowHandler.NewHandler(c.BorrowService)
	c.ReservationHandler = reservationHandler.NewHandler(c.ReservationService)

	log.Println("[CONTAINER] Dependency graph initialized")
	return c, nil
}

// HealthCheck verifies the infrastructure this container depends on.
func (c *Container) HealthCheck(ctx context.Context) error {
	if err := c.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := c.Redis.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Cleanup releases every connection the container owns, in reverse
// initialization order.
func (c *Container) Cleanup() {
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			log.Printf("[CONTAINER] Failed to close event client: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("[CONTAINER] Failed to close redis: %v", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	log.Println("[CONTAINER] Cleanup complete")
}
