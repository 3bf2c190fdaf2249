package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/azisaba/azisaba-commander-api/internal/api"
	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
	"github.com/azisaba/azisaba-commander-api/internal/core/service"
	"github.com/azisaba/azisaba-commander-api/internal/infrastructure/bus"
	"github.com/azisaba/azisaba-commander-api/internal/infrastructure/config"
	"github.com/azisaba/azisaba-commander-api/internal/infrastructure/db/postgres"
	redisdb "github.com/azisaba/azisaba-commander-api/internal/infrastructure/db/redis"
	"github.com/azisaba/azisaba-commander-api/internal/infrastructure/docker"
	"github.com/azisaba/azisaba-commander-api/internal/infrastructure/queue"
	"github.com/azisaba/azisaba-commander-api/internal/session"
	"github.com/azisaba/azisaba-commander-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer db.Close()

	// The invalidation bus is optional: without Redis the snapshot caches
	// converge on their refresh intervals alone.
	var rdb *redis.Client
	var invalidation ports.InvalidationBus = bus.Noop{}
	if cfg.Redis.Addr != "" {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rdb.Close()
		invalidation = bus.NewRedis(rdb, log)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, cross-process cache invalidation disabled")
	}

	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	permissionRepo := postgres.NewPermissionRepository(db)
	twoFARepo := postgres.NewTwoFARepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	caches := cache.NewSet(
		cache.NewUsers(userRepo, cfg.Cache.UsersInterval, log),
		cache.NewPermissions(permissionRepo, cfg.Cache.PermissionsInterval, log),
		cache.NewUserPermissions(permissionRepo, cfg.Cache.UserPermissionsInterval, log),
		cache.NewTwoFARegistered(twoFARepo, cfg.Cache.TwoFAInterval, log),
		log,
	)
	caches.Start(ctx)
	caches.Bind(ctx, invalidation)

	audit := queue.NewAuditDispatcher(0, auditRepo, log)
	audit.Start(ctx)

	// Vault construction calibrates the bcrypt cost and deliberately takes
	// about a second.
	vault := service.NewVault()
	log.Info().Int("cost", vault.Cost()).Msg("credential vault calibrated")

	sessions := session.NewStore(sessionRepo, log)
	twoFA := service.NewTwoFAService(twoFARepo, caches, invalidation, cfg.TwoFA.Issuer, log)
	accounts := service.NewAccountService(
		userRepo, sessions, vault, twoFA, caches, invalidation, audit,
		cfg.Auth.MinPasswordLength, cfg.Auth.SessionTTL, cfg.Auth.ReviewSessionTTL,
		log,
	)
	permissions := service.NewPermissionService(permissionRepo, caches, invalidation, audit, log)

	nodes, err := docker.ParseNodes(cfg.Docker.Nodes)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DOCKER_NODES")
	}
	if len(nodes) == 0 {
		log.Warn().Msg("DOCKER_NODES not set, container routes will serve an empty fleet")
	}
	containers := service.NewContainerService(docker.NewController(nodes, log), permissions, caches, audit, log)

	e := api.NewRouter(api.Dependencies{
		DB:          db,
		Redis:       rdb,
		Sessions:    sessions,
		Accounts:    accounts,
		TwoFA:       twoFA,
		Permissions: permissions,
		Containers:  containers,
		Audit:       auditRepo,
		Log:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting commander api")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("stopped")
}
