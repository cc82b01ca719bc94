// Package app is the composition root: manual dependency wiring, no DI
// framework.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"fixflow.io/fixflow/internal/api/handlers"
	"fixflow.io/fixflow/internal/api/middleware"
	"fixflow.io/fixflow/internal/config"
	"fixflow.io/fixflow/internal/domain"
	"fixflow.io/fixflow/internal/infrastructure"
	"fixflow.io/fixflow/internal/jobs"
	"fixflow.io/fixflow/internal/notification"
	"fixflow.io/fixflow/internal/pkg/worker"
	"fixflow.io/fixflow/internal/repository"
	"fixflow.io/fixflow/internal/service"
	"fixflow.io/fixflow/internal/usecase"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools
}

// Bootstrap initializes all dependencies.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		NotifyPoolSize:  cfg.Worker.NotifyPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	// Repositories over the shared pool.
	buildingRepo := repository.NewBuildingRepo(db.Pool)
	identifierRepo := repository.NewIdentifierRepo(db.Pool)
	requestRepo := repository.NewRequestRepo(db.Pool)
	historyRepo := repository.NewHistoryRepo(db.Pool)
	userRepo := repository.NewUserRepo(db.Pool)
	notificationRepo := repository.NewNotificationRepo(db.Pool)
	eventRepo := repository.NewEventRepo(db.Pool)

	// Services and use cases.
	allocator := service.NewIdentifierAllocator(buildingRepo, identifierRepo)
	buildings := service.NewBuildingRegistry(buildingRepo)

	dispatcher := domain.NewEventDispatcher()
	sender := notification.NewInboxSender(notificationRepo)
	notification.NewTriggers(sender, userRepo, requestRepo).Subscribe(dispatcher)

	lifecycle := usecase.NewLifecycle(
		db.Pool, allocator, requestRepo, historyRepo, userRepo, eventRepo,
		dispatcher, pools,
	)

	// River workers and periodic jobs.
	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewAutoCloseWorker(lifecycle, requestRepo, cfg.Sweeper.AutoCloseCutoffDays))
	river.AddWorker(workers, jobs.NewNotificationCleanupWorker(notificationRepo, cfg.Sweeper.NotificationRetention))

	if err := db.InitRiverClient(workers, cfg.River); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river client: %w", err)
	}

	db.RiverClient.PeriodicJobs().Add(
		river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Sweeper.Interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.AutoCloseArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	)
	db.RiverClient.PeriodicJobs().Add(
		river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Sweeper.Interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.NotificationCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	)

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSecret),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  cfg.Security.TokenTTL,
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Pool:          db.Pool,
		JWTCfg:        jwtCfg,
		Lifecycle:     lifecycle,
		Buildings:     buildings,
		Users:         userRepo,
		Notifications: notificationRepo,
		BcryptCost:    cfg.Security.BcryptCost,
	})

	return &Application{
		Config: cfg,
		Router: newRouter(server, jwtCfg.SigningKey),
		DB:     db,
		Pools:  pools,
	}, nil
}
