package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	myMongoRepo "github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/db/mongo"
	myPostgresRepo "github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/db/redis"
	myGrpc "github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/grpc"
	myHttp "github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/cookie"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/health"
	lg "github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/metrics"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/ratelimit"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/server"
	"golang.org/x/sync/errgroup"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	connectTimeout  = 15 * time.Second
	healthInterval  = 10 * time.Second
	healthTimeout   = 2 * time.Second
	limiterCache    = 10_000
	limiterIdleTime = time.Hour
)

type userStore interface {
	repo.UserRepo
	health.Pinger
}

// openUserStore connects the configured user database and brings its schema
// up to date. The returned func releases the connection.
func openUserStore(ctx context.Context, cfg *config.Config, hasher *password.Hasher) (userStore, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.UserStore {
	case config.StorePostgres:
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("postgres handle: %w", err)
		}
		if err := migrate.UpPostgres(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return myPostgresRepo.NewPostgresUserRepo(db, hasher), func() { _ = sqlDB.Close() }, nil

	default:
		cli, err := myMongoRepo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = cli.Disconnect(context.Background()) }
		if err := migrate.UpMongo(cli, cfg.MongoDatabase); err != nil {
			closeFn()
			return nil, nil, err
		}
		db := cli.Database(cfg.MongoDatabase)
		if err := myMongoRepo.EnsureIndexes(ctx, db); err != nil {
			closeFn()
			return nil, nil, err
		}
		return myMongoRepo.NewMongoUserRepo(db, hasher), closeFn, nil
	}
}

func main() {
	os.Exit(run())
}

// run owns every resource so that deferred cleanup and the final log sync
// happen before the process exits.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		boot := lg.Must("", false)
		boot.Error("failed to load config", zap.Error(err))
		_ = boot.Sync()
		return 1
	}

	zapLog := lg.Must(cfg.LogLevel, cfg.Production())
	defer zapLog.Sync()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hasher := password.NewHasher(cfg.PasswordPepper, nil)
	users, closeUsers, err := openUserStore(ctx, cfg, hasher)
	if err != nil {
		zapLog.Error("failed to open user store", zap.String("store", cfg.UserStore), zap.Error(err))
		return 1
	}
	defer closeUsers()

	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCli.Close()
	sessions := myRedisRepo.NewRedisSessionRepo(redisCli)

	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Error("failed to init JWT util", zap.Error(err))
		return 1
	}

	authMetrics, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		zapLog.Error("failed to register metrics", zap.Error(err))
		return 1
	}

	limiter, err := ratelimit.New(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, limiterCache, limiterIdleTime)
	if err != nil {
		zapLog.Error("failed to init rate limiter", zap.Error(err))
		return 1
	}

	checker := health.NewChecker(healthTimeout).
		Add(cfg.UserStore, users).
		Add("redis", sessions)

	svc := appsvc.New(users, sessions, jwtUtil, validator.New())
	handler := myHttp.NewHandler(svc, cookie.New(cfg.Production(), cfg.CookieDomain), authMetrics, zapLog)
	router, err := myHttp.NewRouter(myHttp.RouterDeps{
		Handler:          handler,
		Health:           checker,
		Limiter:          limiter,
		Gatherer:         prometheus.DefaultGatherer,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
		TrustedProxies:   cfg.TrustedProxies,
		Log:              zapLog,
	})
	if err != nil {
		zapLog.Error("failed to build router", zap.Error(err))
		return 1
	}
	watcher := myGrpc.NewHealthWatcher(checker, healthInterval, zapLog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartHTTPServer(gctx, cfg, router, zapLog)
	})
	g.Go(func() error {
		return server.StartGRPCServer(gctx, cfg, watcher.Server(), limiter, zapLog)
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
		return 1
	}
	zapLog.Info("shutdown complete")
	return 0
}
