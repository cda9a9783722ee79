package main

import (
	"context"
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/oksasatya/materials-store-api/config"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
	"github.com/oksasatya/materials-store-api/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/materials-store-api/internal/infrastructure/postgres"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
)

type seedOptions struct {
	AdminName     string `env:"SEED_ADMIN_NAME" envDefault:"Store Admin"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@materials.local"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD" envDefault:"admin12345"`
}

// sample rates, price for today and yesterday
var sampleRates = []struct {
	material, category, unit string
	today, yesterday         float64
}{
	{"Cement (OPC 53)", "cement", "bag", 385, 380},
	{"TMT Steel Fe500", "steel", "kg", 62.5, 63},
	{"River Sand", "aggregates", "cft", 55, 55},
	{"Red Bricks", "bricks", "piece", 8.5, 8.25},
	{"20mm Aggregate", "aggregates", "cft", 42, 41},
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		helpers.NewLogger("seed", "production", "").WithError(err).Fatal("invalid configuration")
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	var opts seedOptions
	if err := env.Parse(&opts); err != nil {
		logger.WithError(err).Fatal("invalid seed options")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := mongodb.Connect(ctx, cfg.MongoURI, 1, 0, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to mongodb")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	users := mongodb.NewUserRepository(client.Database(cfg.MongoDatabase))
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Fatal("failed to create indexes")
	}

	existing, err := users.GetByEmail(ctx, opts.AdminEmail)
	switch {
	case err == nil:
		logger.WithField("id", existing.ID).Info("admin already present")
	case errors.Is(err, repo.ErrNotFound):
		hash, err := helpers.HashPassword(opts.AdminPassword)
		if err != nil {
			logger.WithError(err).Fatal("failed to hash password")
		}
		admin := &entity.User{
			UserType: entity.UserTypeAdmin,
			Name:     opts.AdminName,
			Email:    opts.AdminEmail,
			Password: hash,
			IsActive: true,
		}
		if err := users.Create(ctx, admin); err != nil {
			logger.WithError(err).Fatal("failed to seed admin")
		}
		logger.WithField("id", admin.ID).WithField("email", admin.Email).Info("seeded admin")
	default:
		logger.WithError(err).Fatal("failed to look up admin")
	}

	pool, err := pginfra.NewPool(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	rates := pginfra.NewRateRepository(pool)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, s := range sampleRates {
		for day, price := range map[time.Time]float64{today: s.today, today.AddDate(0, 0, -1): s.yesterday} {
			r := &entity.MaterialRate{
				Material: s.material, Category: s.category, Unit: s.unit,
				Price: price, Currency: "INR", RateDate: day,
			}
			if err := rates.Upsert(ctx, r); err != nil {
				logger.WithError(err).WithField("material", s.material).Fatal("failed to seed rate")
			}
		}
	}
	logger.WithField("materials", len(sampleRates)).Info("seeded rates")
}
