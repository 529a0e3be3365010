package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dtroode/assoc-server/internal/api/http/handler"
	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/api/http/middleware"
	"github.com/dtroode/assoc-server/internal/api/http/router"
	"github.com/dtroode/assoc-server/internal/config"
	"github.com/dtroode/assoc-server/internal/events"
	"github.com/dtroode/assoc-server/internal/guard"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
	"github.com/dtroode/assoc-server/internal/observability"
	"github.com/dtroode/assoc-server/internal/password"
	"github.com/dtroode/assoc-server/internal/permission"
	"github.com/dtroode/assoc-server/internal/repository/memory"
	"github.com/dtroode/assoc-server/internal/repository/postgres"
	"github.com/dtroode/assoc-server/internal/server"
	"github.com/dtroode/assoc-server/internal/service"
	"github.com/dtroode/assoc-server/internal/storage"
	"github.com/dtroode/assoc-server/internal/storage/minio"
	"github.com/dtroode/assoc-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

type stores struct {
	users           model.UserStore
	profiles        model.ProfileStore
	rolePermissions model.RolePermissionStore
	sessions        model.SessionRecordStore
	db              *sql.DB
	close           func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer st.close()

	var (
		bus         events.Bus
		redisClient redis.UniversalClient
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer redisClient.Close()

		redisBus := events.NewRedisBus(redisClient, cfg.Redis.Channel, logger.Named("events"))
		if err := redisBus.Start(ctx); err != nil {
			logger.Fatal("failed to start auth event bus", "error", err)
		}
		defer redisBus.Close()
		bus = redisBus
	} else {
		bus = events.NewLocalBus()
	}

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.SessionTTL)
	authService := service.NewAuth(st.users, st.profiles, st.rolePermissions, st.sessions, tokenManager, bus, logger, service.AuthParams{
		DefaultRole: model.Role(cfg.Auth.DefaultRole),
		SessionTTL:  cfg.JWT.SessionTTL,
		Password:    password.DefaultParams,
	})
	permissionCache := permission.NewCache(authService, cfg.Permissions.CacheSize, cfg.Permissions.CacheTTL)
	adminService := service.NewAdmin(st.profiles, st.rolePermissions, bus, permissionCache, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	var (
		recorder  model.IncidentRecorder
		incidents handler.IncidentReader
		archive   observability.Pinger
	)
	if cfg.Storage.Enabled {
		storageClient, err := minio.Connect(ctx, minio.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to initialize incident archive", "error", err)
		}
		incidentArchive := storage.NewIncidentArchive(storageClient)
		recorder, incidents, archive = incidentArchive, incidentArchive, storageClient
	}

	newGuard := func(p guard.Policy) *middleware.Guard {
		opts := []guard.Option{guard.WithTimeout(cfg.Guard.Timeout), guard.WithObserver(metrics)}
		if recorder != nil {
			opts = append(opts, guard.WithIncidentRecorder(recorder))
		}
		return middleware.NewGuard(guard.New(p, logger.Named("guard"), opts...), cfg.Guard.Timeout, logger)
	}

	cookie := httpx.SessionCookie{Secure: cfg.HTTP.CookieSecure, TTL: cfg.JWT.SessionTTL}
	r := router.New(
		handler.New(adminService, incidents, metrics, cookie, logger),
		middleware.NewIdentity(authService, permissionCache, cookie, logger),
		router.Guards{
			Admin:     newGuard(guard.Admin(cfg.Guard.AdminVerifyServerSide)),
			Moderator: newGuard(guard.Moderator()),
			Member:    newGuard(guard.Member()),
		},
		metrics,
		observability.NewHealthChecker(st.db, redisClient, archive, buildVersion),
		logger,
	)
	httpServer := server.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	logAppVersion()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on", "address", httpServer.Address())
		return httpServer.Start(sl)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received interruption signal, shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", "error", err, "address", httpServer.Address())
	}
	logger.Info("shutdown complete")
}

func openStores(ctx context.Context, cfg config.Database) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		m := memory.NewStore()
		return &stores{
			users:           m.Users(),
			profiles:        m.Profiles(),
			rolePermissions: m.RolePermissions(),
			sessions:        m.Sessions(),
			close:           func() error { return nil },
		}, nil
	case "postgres":
		db, err := postgres.NewConection(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB := db.SQL()
		return &stores{
			users:           postgres.NewUserRepository(db),
			profiles:        postgres.NewProfileRepository(db),
			rolePermissions: postgres.NewRolePermissionRepository(db),
			sessions:        postgres.NewSessionRepository(db),
			db:              sqlDB,
			close: func() error {
				_ = sqlDB.Close()
				return db.Close()
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
