package router

import (
	"context"
	"time"

	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/internal/container"
	"github.com/oksasatya/materials-store-api/internal/infrastructure/mongodb"
	"github.com/oksasatya/materials-store-api/internal/infrastructure/postgres"
	"github.com/oksasatya/materials-store-api/internal/infrastructure/search"
	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
	"github.com/oksasatya/materials-store-api/internal/router/modules"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
)

// buildDeps assembles service dependencies from the container. Optional backends are
// only assigned when present so the services see a nil interface, not a typed nil.
func buildDeps() app.Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	d := app.Deps{
		Config:  cfg,
		Logger:  logger,
		Users:   mongodb.NewUserRepository(container.GetMongoDB()),
		JWT:     container.GetJWT(),
		Redis:   container.GetRedis(),
		Metrics: container.GetMetrics(),
	}
	if pool := container.GetPGPool(); pool != nil {
		d.Rates = postgres.NewRateRepository(pool)
		d.Audit = postgres.NewAuditRepository(pool)
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		d.Mail = pub
	}
	if es := container.GetES(); es != nil {
		d.Index = search.NewUserIndex(es, cfg.ESUsersIndex, logger)
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		d.Storage = &helpers.GCSUploader{Client: gcs, Bucket: cfg.GCSBucket}
	}
	return d
}

func healthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"mongo": nil, "postgres": nil, "redis": nil}
	if db := container.GetMongoDB(); db != nil {
		checks["mongo"] = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
	}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// InitModules wires every feature module into the registry.
// Call once during startup, after the container is populated.
func InitModules(r *Registry, started time.Time) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	deps := buildDeps()

	authSvc := app.NewAuthService(deps)
	userSvc := app.NewUserService(deps)
	rateSvc := app.NewRateService(deps)

	var cookies *helpers.Manager
	if cfg.CookieTokensEnabled {
		cookies = helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)
	}

	guard := modules.Guard{JWT: deps.JWT, Users: deps.Users, Redis: deps.Redis, Dev: cfg.IsDevelopment()}

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, userSvc, logger, cookies), guard))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(userSvc, logger), guard))
	r.Add(modules.NewAdminModule(handlers.NewAdminHandler(userSvc, logger), guard))
	if deps.Rates != nil {
		r.Add(modules.NewRateModule(handlers.NewRateHandler(rateSvc, logger), guard))
	}
	r.Add(modules.NewEmailModule(handlers.NewEmailHandler(deps.Mail, logger, cfg, deps.Metrics), guard))

	m := container.GetMetrics()
	if !cfg.MetricsEnabled {
		m = nil
	}
	r.AddRoot(modules.NewHealthModule(handlers.NewHealthHandler(started, healthChecks()), m))
}
