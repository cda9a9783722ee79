package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/materials-store-api/config"
	"github.com/oksasatya/materials-store-api/internal/container"
	"github.com/oksasatya/materials-store-api/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/materials-store-api/internal/infrastructure/postgres"
	"github.com/oksasatya/materials-store-api/internal/interface/middleware"
	"github.com/oksasatya/materials-store-api/internal/router"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/metrics"
	"github.com/oksasatya/materials-store-api/pkg/validation"
)

func main() {
	started := time.Now()
	_ = godotenv.Load() // load .env if present

	cfg, err := config.Load()
	if err != nil {
		helpers.NewLogger("materials-store-api", "production", "").WithError(err).Fatal("invalid configuration")
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// MongoDB holds the users; the API does not start without it
	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoConnectRetries, mongodb.RetryDelay, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(cfg.MongoDatabase)
	if err := mongodb.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Fatal("failed to create user indexes")
	}

	// Postgres holds rates and the audit log; without it the rate routes are not mounted
	pool := openPostgres(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable; rate limits fail open and token flows will error")
	}

	jwtManager := helpers.NewJWTManager(cfg.JWTSecret, cfg.RefreshTokenSecret, cfg.JWTExpire, cfg.RefreshTokenExpire)
	m := metrics.New("materials_store")

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetMongoDB(db)
	if pool != nil {
		container.SetPGPool(pool)
	}
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetMetrics(m)

	// Optional backends
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("gcs disabled")
		} else {
			defer func() { _ = gcsClient.Close() }()
			container.SetGCS(gcsClient)
		}
	}
	if es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass); err != nil {
		logger.WithError(err).Warn("elasticsearch disabled")
	} else if es != nil {
		container.SetES(es)
	}
	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; emails will not be sent")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RealIP())
	if cfg.HTTPLogEnabled || cfg.IsDevelopment() {
		r.Use(middleware.AccessLog(logger))
	}
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.SecurityHeaders(!cfg.IsDevelopment()))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.MetricsEnabled {
		r.Use(m.Middleware())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, started)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("server exited properly")
}

// openPostgres connects and migrates. Any failure is logged and yields nil.
func openPostgres(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *pgxpool.Pool {
	if cfg.DBHost == "" {
		logger.Warn("DB_HOST not set; rates and audit log disabled")
		return nil
	}
	pool, err := pginfra.NewPool(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("postgres unavailable; rates and audit log disabled")
		return nil
	}
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Warn("postgres migration failed; rates and audit log disabled")
		pool.Close()
		return nil
	}
	return pool
}
